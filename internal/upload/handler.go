package handler

import (
	"encoding/json"
	"net/http"
	"path"
	"strconv"

	"clubsite/internal/upload/model"
	"clubsite/internal/upload/repository"
	"clubsite/internal/upload/service"
	"clubsite/pkg/respond"
)

// base64 inflates by 4/3; leave room for the JSON envelope.
const maxBodyBytes = service.MaxImageBytes*4/3 + 64<<10

type UploadHandler struct {
	Service *service.UploadService
}

func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{Service: svc}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req model.UploadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	resp, err := h.Service.Upload(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

// Serve returns images kept by the in-process blob store.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	mem, ok := h.Service.Blobs.(*repository.MemoryBlobStore)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data, contentType, found := mem.Get(path.Base(r.URL.Path))
	if !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
