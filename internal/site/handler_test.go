package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"clubsite/internal/kv"
	"clubsite/internal/site/model"
	"clubsite/internal/site/service"
	"clubsite/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*SiteHandler, *kv.MemoryTransport) {
	t.Helper()
	mem := kv.NewMemoryTransport()
	svc := service.NewSiteService(store.New(mem, "walk4health"), service.Options{
		Defaults: model.Defaults{ClubName: "Walk4Health", ClubDescription: "desc", InquiryEmail: "admin@example.org"},
	})
	return NewSiteHandler(svc, "test", mem.Name()), mem
}

func do(t *testing.T, fn http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestContentHandler(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h.Content, http.MethodPost, "/content",
		`{"clubDescription":"Test club","walkingSchedule":{"sundaySummer":"09:00","sundayWinter":"09:30","tuesday":"10:00"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Content saved successfully"}`, rec.Body.String())

	rec = do(t, h.Content, http.MethodGet, "/content", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "store", rec.Header().Get(model.SourceHeader))
	var got model.ClubContent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Test club", got.ClubDescription)
	assert.Equal(t, "09:30", got.WalkingSchedule.SundayWinter)

	rec = do(t, h.Content, http.MethodPost, "/content", `{"walkingSchedule":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"validation_error"`)
}

func TestEventsHandlerRejectsNonLists(t *testing.T) {
	h, mem := newTestHandler(t)

	for _, body := range []string{
		`{"recurringEvents":"nope","specialEvents":[]}`,
		`{"recurringEvents":[]}`,
		`{"recurringEvents":null,"specialEvents":[]}`,
		`not json`,
	} {
		rec := do(t, h.Events, http.MethodPost, "/events", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	_, sets := mem.Calls()
	assert.Zero(t, sets)

	rec := do(t, h.Events, http.MethodPost, "/events",
		`{"recurringEvents":[{"id":1,"title":"Sunday walk","day":"Sunday","time":"09:00"}],"specialEvents":[]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventsHandlerServesDefaultWhenStoreDown(t *testing.T) {
	h, mem := newTestHandler(t)
	mem.FailReads = true
	rec := do(t, h.Events, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"recurringEvents":[],"specialEvents":[]}`, rec.Body.String())
	assert.Equal(t, "fallback", rec.Header().Get(model.SourceHeader))
}

func TestSaveIgnoresCallerTimestamps(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h.Content, http.MethodPost, "/content",
		`{"clubDescription":"Test club","lastUpdated":"","walkingSchedule":{"sundaySummer":"09:00","sundayWinter":"09:30","tuesday":"10:00"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h.Events, http.MethodPost, "/events", `{"recurringEvents":[],"specialEvents":[],"LastUpdated":"yesterday"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h.Content, http.MethodGet, "/content", "")
	var got model.ClubContent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Test club", got.ClubDescription)
	assert.False(t, got.LastUpdated.IsZero())

	rec = do(t, h.Galleries, http.MethodPost, "/galleries",
		`{"title":"A","description":"B","date":"2025-01-05","location":"C","createdAt":"soon"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h.Content, http.MethodPost, "/content", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGalleriesHandler(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h.Galleries, http.MethodPost, "/galleries",
		`{"title":"A","description":"B","date":"2025-01-05","location":"C","id":"mine"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created model.GalleryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Gallery)
	assert.Regexp(t, regexp.MustCompile(`^gallery-\d+$`), created.Gallery.ID)
	assert.Equal(t, []string{}, created.Gallery.Images)
	id := created.Gallery.ID

	rec = do(t, h.Galleries, http.MethodPut, "/galleries?galleryId="+id, `{"location":"Riverbank"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h.Galleries, http.MethodPut, "/galleries?galleryId=gallery-1", `{"location":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h.Galleries, http.MethodPut, "/galleries", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h.Galleries, http.MethodGet, "/galleries", "")
	var list []model.GalleryMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Riverbank", list[0].Location)

	rec = do(t, h.Galleries, http.MethodDelete, "/galleries?galleryId=gallery-404", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h.Galleries, http.MethodDelete, "/galleries?galleryId="+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h.Galleries, http.MethodGet, "/galleries", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestEmailConfigHandler(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h.EmailConfig, http.MethodPost, "/email-config", `{"subjectPrefix":"[X]"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h.EmailConfig, http.MethodPost, "/email-config", `{"inquiryEmail":"sec@example.org"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h.EmailConfig, http.MethodGet, "/email-config", "")
	var cfg model.EmailConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "sec@example.org", cfg.InquiryEmail)
	assert.Equal(t, "[Walk4Health]", cfg.SubjectPrefix)
}

func TestLinksAndNewsHandlers(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h.Links, http.MethodGet, "/links", "")
	assert.JSONEq(t, `{"links":[]}`, rec.Body.String())
	rec = do(t, h.Links, http.MethodPost, "/links", `{"links":[{"title":"Council","url":"https://example.org"}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h.Links, http.MethodPost, "/links", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h.News, http.MethodPost, "/news", `{"newsItems":[{"id":"n1","title":"AGM","content":"Hall","date":"2025-03-01"}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h.News, http.MethodGet, "/news", "")
	var news model.NewsData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &news))
	require.Len(t, news.NewsItems, 1)
	assert.Equal(t, "AGM", news.NewsItems[0].Title)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)
	cases := []struct {
		fn    http.HandlerFunc
		allow string
	}{
		{h.Content, "GET, POST"},
		{h.Events, "GET, POST"},
		{h.Galleries, "GET, POST, PUT, DELETE"},
		{h.Links, "GET, POST"},
		{h.News, "GET, POST"},
		{h.EmailConfig, "GET, POST"},
	}
	for _, tc := range cases {
		rec := do(t, tc.fn, http.MethodPatch, "/x", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, tc.allow, rec.Header().Get("Allow"))
	}
}

func TestStatusHandler(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := do(t, h.Status, http.MethodGet, "/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st model.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "memory", st.Store)
	assert.Equal(t, "default", st.Documents["events"])
}
