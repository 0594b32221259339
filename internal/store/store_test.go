package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"clubsite/internal/apperr"
	"clubsite/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Text        string    `json:"text"`
	LastUpdated time.Time `json:"lastUpdated"`
}

var noteResource = Resource[note]{
	Name:    "note",
	Layers:  2,
	Default: func() note { return note{Text: "default"} },
	Validate: func(n *note) error {
		if n.Text == "" {
			return apperr.Invalid("text", "is required")
		}
		return nil
	},
	Stamp: func(n *note, t time.Time) { n.LastUpdated = t },
}

type photo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"createdAt"`
}

type recorder struct{ updated []string }

func (r *recorder) DocumentUpdated(resource string) { r.updated = append(r.updated, resource) }

func newTestStore() (*Store, *kv.MemoryTransport, *time.Time) {
	mem := kv.NewMemoryTransport()
	s := New(mem, "club")
	now := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }
	return s, mem, &now
}

func photoList(s *Store) *List[photo] {
	return &List[photo]{
		Store:    s,
		Name:     "photos",
		IDPrefix: "gallery",
		ID:       func(p *photo) string { return p.ID },
		Assign: func(p *photo, id string, at time.Time) {
			p.ID = id
			p.CreatedAt = at
		},
		Validate: func(p *photo) error {
			if p.Title == "" {
				return apperr.Invalid("title", "is required")
			}
			return nil
		},
		Protected: []string{"id", "createdAt"},
	}
}

func TestRead_DefaultWhenAbsent(t *testing.T) {
	s, _, _ := newTestStore()
	doc, src, err := Load(context.Background(), s, noteResource)
	require.NoError(t, err)
	assert.Equal(t, FromDefault, src)
	assert.Equal(t, "default", doc.Text)
}

func TestRead_DefaultOnTransportFailure(t *testing.T) {
	s, mem, _ := newTestStore()
	mem.FailReads = true
	doc, src, err := Load(context.Background(), s, noteResource)
	assert.Equal(t, FromFallback, src)
	assert.True(t, IsRecovered(err))
	assert.Equal(t, "default", doc.Text)
}

func TestRead_DefaultOnMalformedValue(t *testing.T) {
	s, mem, _ := newTestStore()
	mem.Put("club:note", "{oops")
	doc := Read(context.Background(), s, noteResource)
	assert.Equal(t, "default", doc.Text)
}

func TestRecordSource(t *testing.T) {
	s, mem, _ := newTestStore()
	ctx, source := RecordSource(context.Background())
	_, ok := source()
	assert.False(t, ok)

	Read(ctx, s, noteResource)
	src, ok := source()
	require.True(t, ok)
	assert.Equal(t, FromDefault, src)

	mem.Put("club:note", `{"text":"saved"}`)
	ctx, source = RecordSource(context.Background())
	assert.Equal(t, "saved", Read(ctx, s, noteResource).Text)
	src, _ = source()
	assert.Equal(t, FromStore, src)

	mem.FailReads = true
	Read(ctx, s, noteResource)
	src, _ = source()
	assert.Equal(t, FromFallback, src)
}

func TestWrite_RoundTripStampsLastUpdated(t *testing.T) {
	s, mem, now := newTestStore()
	rec := &recorder{}
	s.Notifier = rec
	ctx := context.Background()

	stale := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := Write(ctx, s, noteResource, note{Text: "hello", LastUpdated: stale})
	require.NoError(t, err)

	got := Read(ctx, s, noteResource)
	assert.Equal(t, "hello", got.Text)
	assert.True(t, got.LastUpdated.Equal(*now))
	assert.Equal(t, []string{"note"}, rec.updated)

	raw, ok := mem.Raw("club:note")
	require.True(t, ok)
	assert.Equal(t, byte('"'), raw[0], "two-layer resources are stored double-encoded")
}

func TestWrite_ValidationSkipsTransport(t *testing.T) {
	s, mem, _ := newTestStore()
	_, err := Write(context.Background(), s, noteResource, note{})
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	_, sets := mem.Calls()
	assert.Zero(t, sets)
}

func TestWrite_TransportFailurePropagates(t *testing.T) {
	s, mem, _ := newTestStore()
	mem.FailWrites = true
	_, err := Write(context.Background(), s, noteResource, note{Text: "x"})
	var te *apperr.TransportError
	assert.True(t, errors.As(err, &te))
}

func TestList_Insert(t *testing.T) {
	s, _, now := newTestStore()
	l := photoList(s)
	ctx := context.Background()

	before := len(l.All(ctx))
	first, err := l.Insert(ctx, photo{Title: "A", Images: []string{}})
	require.NoError(t, err)
	second, err := l.Insert(ctx, photo{Title: "B", ID: "client-chosen"})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^gallery-\d+$`), first.ID)
	assert.NotEqual(t, first.ID, second.ID, "ids stay unique within the same millisecond")
	assert.NotEqual(t, "client-chosen", second.ID)
	assert.True(t, first.CreatedAt.Equal(*now))

	all := l.All(ctx)
	assert.Len(t, all, before+2)
}

func TestList_UpdateMergesShallowly(t *testing.T) {
	s, _, _ := newTestStore()
	l := photoList(s)
	ctx := context.Background()

	p, err := l.Insert(ctx, photo{Title: "A", Images: []string{"u1"}})
	require.NoError(t, err)

	patch := json.RawMessage(`{"title":"Renamed","id":"hijack","createdAt":"2000-01-01T00:00:00Z"}`)
	updated, err := l.Update(ctx, p.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, []string{"u1"}, updated.Images)
	assert.True(t, updated.CreatedAt.Equal(p.CreatedAt))

	all := l.All(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed", all[0].Title)
}

func TestList_UpdateMissingIsNotFound(t *testing.T) {
	s, mem, _ := newTestStore()
	l := photoList(s)
	ctx := context.Background()
	_, err := l.Insert(ctx, photo{Title: "A"})
	require.NoError(t, err)
	before, _ := mem.Raw("club:photos")

	_, err = l.Update(ctx, "gallery-0", json.RawMessage(`{"title":"x"}`))
	var nf *apperr.NotFoundError
	require.True(t, errors.As(err, &nf))

	after, _ := mem.Raw("club:photos")
	assert.Equal(t, before, after)
}

func TestList_DeleteMissingIsNoop(t *testing.T) {
	s, mem, _ := newTestStore()
	l := photoList(s)
	ctx := context.Background()
	_, err := l.Insert(ctx, photo{Title: "A"})
	require.NoError(t, err)
	_, setsBefore := mem.Calls()

	require.NoError(t, l.Delete(ctx, "gallery-404"))
	_, setsAfter := mem.Calls()
	assert.Equal(t, setsBefore, setsAfter)
	assert.Len(t, l.All(ctx), 1)
}

func TestList_Delete(t *testing.T) {
	s, _, _ := newTestStore()
	l := photoList(s)
	ctx := context.Background()
	p, err := l.Insert(ctx, photo{Title: "A"})
	require.NoError(t, err)

	require.NoError(t, l.Delete(ctx, p.ID))
	assert.Empty(t, l.All(ctx))
}

func TestList_MutationRefusesToOverwriteUnreadableList(t *testing.T) {
	s, mem, _ := newTestStore()
	l := photoList(s)
	ctx := context.Background()
	_, err := l.Insert(ctx, photo{Title: "A"})
	require.NoError(t, err)

	mem.FailReads = true
	_, err = l.Insert(ctx, photo{Title: "B"})
	var te *apperr.TransportError
	require.True(t, errors.As(err, &te))

	mem.FailReads = false
	assert.Len(t, l.All(ctx), 1)
}

func TestList_LastWriterWins(t *testing.T) {
	s, _, _ := newTestStore()
	l := photoList(s)
	ctx := context.Background()
	p, err := l.Insert(ctx, photo{Title: "A"})
	require.NoError(t, err)

	// Two admins load the same list; the second write discards the first.
	_, err = l.Update(ctx, p.ID, json.RawMessage(`{"title":"first"}`))
	require.NoError(t, err)
	_, err = l.Update(ctx, p.ID, json.RawMessage(`{"title":"second"}`))
	require.NoError(t, err)
	assert.Equal(t, "second", l.All(ctx)[0].Title)
}
