package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"clubsite/internal/site/model"
	"clubsite/internal/site/service"
	"clubsite/internal/store"
	"clubsite/pkg/logger"
	"clubsite/pkg/respond"
)

const maxBodyBytes = 1 << 20

type SiteHandler struct {
	Service *service.SiteService
	// Environment and StoreName are reported by Status.
	Environment string
	StoreName   string
}

func NewSiteHandler(svc *service.SiteService, environment, storeName string) *SiteHandler {
	return &SiteHandler{Service: svc, Environment: environment, StoreName: storeName}
}

// serverFields are stamped by the server. Whatever a caller sends for them is
// dropped before decoding, so a stale or malformed value cannot fail a save.
var serverFields = []string{"lastUpdated", "createdAt"}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&fields); err != nil {
		return err
	}
	for name := range fields {
		for _, server := range serverFields {
			if strings.EqualFold(name, server) {
				delete(fields, name)
			}
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// serveDocument writes the document returned by read and reports its source.
func serveDocument[T any](w http.ResponseWriter, r *http.Request, read func(context.Context) T) {
	ctx, source := store.RecordSource(r.Context())
	doc := read(ctx)
	if src, ok := source(); ok {
		w.Header().Set(model.SourceHeader, src.String())
	}
	respond.JSON(w, http.StatusOK, doc)
}

func (h *SiteHandler) Content(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		serveDocument(w, r, h.Service.Content)
	case http.MethodPost:
		var req model.ClubContent
		if err := decodeBody(w, r, &req); err != nil {
			respond.BadRequest(w, "Invalid request body")
			return
		}
		if _, err := h.Service.SaveContent(r.Context(), req); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, model.SaveResponse{Success: true, Message: "Content saved successfully"})
	default:
		respond.MethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *SiteHandler) Events(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		serveDocument(w, r, h.Service.Events)
	case http.MethodPost:
		var req model.EventsData
		if err := decodeBody(w, r, &req); err != nil {
			respond.BadRequest(w, "Invalid data format")
			return
		}
		if _, err := h.Service.SaveEvents(r.Context(), req); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, model.SaveResponse{Success: true, Message: "Events saved successfully"})
	default:
		respond.MethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *SiteHandler) Galleries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		serveDocument(w, r, h.Service.ListGalleries)

	case http.MethodPost:
		var req model.GalleryMeta
		if err := decodeBody(w, r, &req); err != nil {
			respond.BadRequest(w, "Invalid request body")
			return
		}
		gallery, err := h.Service.CreateGallery(r.Context(), req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, model.GalleryResponse{Success: true, Message: "Gallery created successfully", Gallery: &gallery})

	case http.MethodPut:
		galleryID := r.URL.Query().Get("galleryId")
		if galleryID == "" {
			respond.BadRequest(w, "Missing gallery ID")
			return
		}
		patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			respond.BadRequest(w, "Invalid request body")
			return
		}
		if _, err := h.Service.UpdateGallery(r.Context(), galleryID, patch); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, model.SaveResponse{Success: true, Message: "Gallery updated successfully"})

	case http.MethodDelete:
		galleryID := r.URL.Query().Get("galleryId")
		if galleryID == "" {
			respond.BadRequest(w, "Missing gallery ID")
			return
		}
		if err := h.Service.DeleteGallery(r.Context(), galleryID); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, model.SaveResponse{Success: true, Message: "Gallery deleted successfully"})

	default:
		respond.MethodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	}
}

func (h *SiteHandler) Links(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		serveDocument(w, r, h.Service.Links)
	case http.MethodPost:
		var req model.LinksData
		if err := decodeBody(w, r, &req); err != nil {
			respond.BadRequest(w, "Missing required field: links array")
			return
		}
		if _, err := h.Service.SaveLinks(r.Context(), req); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, model.SaveResponse{Success: true, Message: "Links saved successfully"})
	default:
		respond.MethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *SiteHandler) News(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		serveDocument(w, r, h.Service.News)
	case http.MethodPost:
		var req model.NewsData
		if err := decodeBody(w, r, &req); err != nil {
			respond.BadRequest(w, "Missing required field: newsItems array")
			return
		}
		if _, err := h.Service.SaveNews(r.Context(), req); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, model.SaveResponse{Success: true, Message: "News saved successfully"})
	default:
		respond.MethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *SiteHandler) EmailConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		serveDocument(w, r, h.Service.EmailConfig)
	case http.MethodPost:
		var req model.EmailConfig
		if err := decodeBody(w, r, &req); err != nil {
			respond.BadRequest(w, "Invalid request body")
			return
		}
		if _, err := h.Service.SaveEmailConfig(r.Context(), req); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, model.SaveResponse{Success: true, Message: "Email config saved successfully"})
	default:
		respond.MethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// Status reports which backend is in use and where each document is served from.
func (h *SiteHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		respond.MethodNotAllowed(w, r, http.MethodGet, http.MethodHead)
		return
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	host := r.Host
	if host == "" {
		host, _ = os.Hostname()
	}
	docs := h.Service.DocumentSources(r.Context())
	logger.Sugar.Debugf("Status requested from %s", r.RemoteAddr)
	respond.JSON(w, http.StatusOK, model.StatusResponse{
		Environment: h.Environment,
		Hostname:    host,
		Timestamp:   time.Now().UTC(),
		Store:       h.StoreName,
		Documents:   docs,
		Message:     "API test endpoint working",
	})
}
