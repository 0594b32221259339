package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"clubsite/internal/apperr"
	"clubsite/internal/upload/model"
	"clubsite/internal/upload/repository"
	"clubsite/pkg/logger"
)

const (
	DefaultContentType = "image/jpeg"
	MaxImageBytes      = 10 << 20
)

type UploadService struct {
	Blobs repository.BlobStore
	Now   func() time.Time
}

func NewUploadService(blobs repository.BlobStore) *UploadService {
	return &UploadService{Blobs: blobs, Now: time.Now}
}

// Upload decodes req.Image and stores it as "<epochMillis>-<filename>".
func (s *UploadService) Upload(ctx context.Context, req model.UploadRequest) (model.UploadResponse, error) {
	if req.Image == "" || req.Filename == "" {
		return model.UploadResponse{}, apperr.Invalid("image", "image and filename are required")
	}
	if s.Blobs == nil {
		return model.UploadResponse{}, &apperr.NotConfiguredError{What: "image storage"}
	}

	data, embeddedType, err := decodeImage(req.Image)
	if err != nil {
		return model.UploadResponse{}, err
	}
	if len(data) == 0 {
		return model.UploadResponse{}, apperr.Invalid("image", "is empty")
	}
	if len(data) > MaxImageBytes {
		return model.UploadResponse{}, apperr.Invalid("image", fmt.Sprintf("exceeds %d bytes", MaxImageBytes))
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = embeddedType
	}
	if contentType == "" {
		contentType = DefaultContentType
	}
	if !strings.HasPrefix(contentType, "image/") {
		return model.UploadResponse{}, apperr.Invalid("contentType", "must be an image type")
	}

	name := fmt.Sprintf("%d-%s", s.Now().UnixMilli(), cleanFilename(req.Filename))
	blob, err := s.Blobs.Put(ctx, name, contentType, data)
	if err != nil {
		logger.Sugar.Errorf("Service: upload of %s to %s failed: %v", name, s.Blobs.Name(), err)
		return model.UploadResponse{}, err
	}
	return model.UploadResponse{Success: true, URL: blob.URL, Filename: blob.Name, Size: blob.Size}, nil
}

// decodeImage accepts "data:<type>;base64,<payload>" or a bare base64 payload.
func decodeImage(image string) ([]byte, string, error) {
	payload := image
	var mediaType string
	if strings.HasPrefix(image, "data:") {
		header, rest, ok := strings.Cut(image, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", apperr.Invalid("image", "Invalid image format")
		}
		payload = rest
		if mt, _, err := mime.ParseMediaType(strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")); err == nil {
			mediaType = mt
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, "", apperr.Invalid("image", "Invalid image format")
	}
	return data, mediaType, nil
}

func cleanFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "-")
	if base == "." || base == "/" || base == ".." {
		return "image"
	}
	return base
}
