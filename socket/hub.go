package socket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"clubsite/pkg/logger"
)

const (
	DocumentUpdatedType = "DOCUMENT_UPDATED" // A resource was saved
	PresenceUpdateType  = "PRESENCE_UPDATE"  // An admin connected or left
)

type WSMessage struct {
	Type     string          `json:"type"`
	Resource string          `json:"resource,omitempty"`
	At       time.Time       `json:"at"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type UserStatus struct {
	UserID      string    `json:"user_id"`
	Connections int       `json:"connections"`
	LastSeen    time.Time `json:"last_seen"`
}

// Hub fans change notices out to every connected admin panel.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	Presence   map[string]UserStatus // userID -> status
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan WSMessage, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		Presence:   make(map[string]UserStatus),
	}
}

// DocumentUpdated queues a notice for resource. It never blocks the writer;
// notices are dropped if the hub has fallen behind or stopped.
func (h *Hub) DocumentUpdated(resource string) {
	select {
	case h.Broadcast <- WSMessage{Type: DocumentUpdatedType, Resource: resource, At: time.Now().UTC()}:
	case <-h.done:
	default:
		logger.Sugar.Warnf("Hub broadcast queue full, dropping notice for %s", resource)
	}
}

// ClientCount reports the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Clients)
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.Clients {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.Presence = make(map[string]UserStatus)
			h.mu.Unlock()
			logger.Sugar.Info("Hub stopped")
			return nil

		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			status := h.Presence[client.UserID]
			status.UserID = client.UserID
			status.Connections++
			status.LastSeen = time.Now().UTC()
			h.Presence[client.UserID] = status
			h.mu.Unlock()
			h.broadcastPresenceUpdate()

		case client := <-h.Unregister:
			if h.remove(client) {
				h.broadcastPresenceUpdate()
			}

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}
			h.mu.Lock()
			clientsToSend := make([]*Client, 0, len(h.Clients))
			for client := range h.Clients {
				clientsToSend = append(clientsToSend, client)
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Clients[client]; !ok {
		return false
	}
	delete(h.Clients, client)
	close(client.Send)

	status := h.Presence[client.UserID]
	status.Connections--
	if status.Connections <= 0 {
		delete(h.Presence, client.UserID)
	} else {
		status.LastSeen = time.Now().UTC()
		h.Presence[client.UserID] = status
	}
	return true
}

func (h *Hub) broadcastPresenceUpdate() {
	h.mu.Lock()
	statuses := make([]UserStatus, 0, len(h.Presence))
	for _, status := range h.Presence {
		statuses = append(statuses, status)
	}
	clientsToSend := make([]*Client, 0, len(h.Clients))
	for client := range h.Clients {
		clientsToSend = append(clientsToSend, client)
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].UserID < statuses[j].UserID })

	payload, err := json.Marshal(statuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	msg, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, At: time.Now().UTC(), Payload: payload})

	for _, client := range clientsToSend {
		select {
		case client.Send <- msg:
		default:
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.UserID)
		}
	}
}
