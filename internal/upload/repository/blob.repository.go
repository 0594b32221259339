package repository

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"

	"clubsite/internal/apperr"
	"clubsite/internal/upload/model"
	"clubsite/pkg/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// BlobStore persists uploaded images and returns their public address.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (model.Blob, error)
	Name() string
}

type GCSBlobStore struct {
	client *storage.Client
	Bucket string
}

// NewGCSBlobStore uses the service account key at credentialsFile, or
// application default credentials when it is empty.
func NewGCSBlobStore(ctx context.Context, bucket, credentialsFile string) (*GCSBlobStore, error) {
	if bucket == "" {
		return nil, &apperr.NotConfiguredError{What: "image bucket"}
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSBlobStore{client: client, Bucket: bucket}, nil
}

func (s *GCSBlobStore) Name() string { return "gcs" }

func (s *GCSBlobStore) Put(ctx context.Context, name, contentType string, data []byte) (model.Blob, error) {
	w := s.client.Bucket(s.Bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return model.Blob{}, fmt.Errorf("failed to write GCS object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return model.Blob{}, fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}
	logger.Sugar.Infof("Uploaded gs://%s/%s (%d bytes)", s.Bucket, name, len(data))
	return model.Blob{
		Name:        name,
		URL:         fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.Bucket, url.PathEscape(name)),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func (s *GCSBlobStore) Close() error { return s.client.Close() }

// MemoryBlobStore keeps uploads in process. Used in development and tests.
type MemoryBlobStore struct {
	mu      sync.Mutex
	BaseURL string
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	data        []byte
}

func NewMemoryBlobStore(baseURL string) *MemoryBlobStore {
	return &MemoryBlobStore{BaseURL: baseURL, objects: map[string]memoryObject{}}
}

func (s *MemoryBlobStore) Name() string { return "memory" }

func (s *MemoryBlobStore) Put(_ context.Context, name, contentType string, data []byte) (model.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = memoryObject{contentType: contentType, data: append([]byte(nil), data...)}
	return model.Blob{
		Name:        name,
		URL:         s.BaseURL + "/" + url.PathEscape(name),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Get returns a stored object and its content type.
func (s *MemoryBlobStore) Get(name string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[name]
	return obj.data, obj.contentType, ok
}
