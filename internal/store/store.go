// Package store is the document façade in front of the key-value transport.
//
// Every logical resource (content, events, galleries, ...) is one JSON
// document under one key. Reads never fail: an absent key, an unreachable
// backend and an undecodable value all yield the resource default. Writes
// validate first, stamp lastUpdated server-side and then issue a single Set.
//
// There is no locking or versioning. Two concurrent writers of the same key
// race and the last one wins.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"clubsite/internal/apperr"
	"clubsite/internal/codec"
	"clubsite/internal/kv"
	"clubsite/internal/metrics"
	"clubsite/pkg/logger"
)

// Notifier is told about every successful write.
type Notifier interface {
	DocumentUpdated(resource string)
}

type Store struct {
	Transport kv.Transport
	Prefix    string
	Now       func() time.Time
	Notifier  Notifier
}

func New(t kv.Transport, prefix string) *Store {
	return &Store{Transport: t, Prefix: prefix, Now: time.Now}
}

func (s *Store) key(resource string) string {
	return kv.KeyFor(s.Prefix, resource)
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Store) notify(resource string) {
	if s.Notifier != nil {
		s.Notifier.DocumentUpdated(resource)
	}
}

// Resource describes one single-document resource.
type Resource[T any] struct {
	Name string
	// Layers is the number of JSON encodings applied on write (see codec.Encode).
	Layers   int
	Default  func() T
	Validate func(*T) error
	// Stamp sets the server-side lastUpdated field; nil for documents without one.
	Stamp func(*T, time.Time)
}

// Source says where a Load result came from.
type Source int

const (
	FromStore Source = iota
	FromDefault
	FromFallback
)

func (s Source) String() string {
	switch s {
	case FromStore:
		return "store"
	case FromFallback:
		return "fallback"
	default:
		return "default"
	}
}

type sourceKey struct{}

// sourceRecorder keeps the least trustworthy source seen by the loads made
// with its context.
type sourceRecorder struct {
	mu   sync.Mutex
	src  Source
	seen bool
}

func (r *sourceRecorder) set(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seen || src > r.src {
		r.src = src
	}
	r.seen = true
}

// RecordSource returns a context whose loads report their Source to the
// returned func. ok is false when nothing was loaded.
func RecordSource(ctx context.Context) (context.Context, func() (src Source, ok bool)) {
	rec := &sourceRecorder{}
	return context.WithValue(ctx, sourceKey{}, rec), func() (Source, bool) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.src, rec.seen
	}
}

// Load reads res and reports where the value came from. The returned error is
// the failure that was recovered from (transport or decode), if any; the
// document is always usable.
func Load[T any](ctx context.Context, s *Store, res Resource[T]) (T, Source, error) {
	doc, src, err := load(ctx, s, res)
	if rec, ok := ctx.Value(sourceKey{}).(*sourceRecorder); ok {
		rec.set(src)
	}
	return doc, src, err
}

func load[T any](ctx context.Context, s *Store, res Resource[T]) (T, Source, error) {
	key := s.key(res.Name)
	out := s.Transport.Get(ctx, key)

	switch out.Kind {
	case kv.OutcomeAbsent:
		metrics.StoreOperations.WithLabelValues("read", res.Name, metrics.OutcomeAbsent).Inc()
		return res.Default(), FromDefault, nil
	case kv.OutcomeFailure:
		err := &apperr.TransportError{Op: "get", Key: key, Status: out.Status, Body: out.Body, Err: out.Err}
		logger.Sugar.Errorf("Failed to read %s, serving default: %v", res.Name, err)
		metrics.StoreOperations.WithLabelValues("read", res.Name, metrics.OutcomeFallback).Inc()
		return res.Default(), FromFallback, err
	}

	var doc T
	if err := codec.Decode(out.Raw, &doc); err != nil {
		logger.Sugar.Errorf("Stored %s is malformed, serving default: %v", res.Name, err)
		metrics.StoreOperations.WithLabelValues("read", res.Name, metrics.OutcomeFallback).Inc()
		return res.Default(), FromFallback, err
	}
	metrics.StoreOperations.WithLabelValues("read", res.Name, metrics.OutcomeOK).Inc()
	return doc, FromStore, nil
}

// Read returns the stored document or the resource default.
func Read[T any](ctx context.Context, s *Store, res Resource[T]) T {
	doc, _, _ := Load(ctx, s, res)
	return doc
}

// Write validates doc, stamps it and stores it. The stored document is
// returned. A ValidationError means the transport was never contacted.
func Write[T any](ctx context.Context, s *Store, res Resource[T], doc T) (T, error) {
	if res.Validate != nil {
		if err := res.Validate(&doc); err != nil {
			metrics.StoreOperations.WithLabelValues("write", res.Name, "invalid").Inc()
			return doc, err
		}
	}
	if res.Stamp != nil {
		res.Stamp(&doc, s.now())
	}
	if err := put(ctx, s, res.Name, res.Layers, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func put(ctx context.Context, s *Store, name string, layers int, doc any) error {
	raw, err := codec.Encode(doc, layers)
	if err != nil {
		return err
	}
	if err := s.Transport.Set(ctx, s.key(name), raw); err != nil {
		logger.Sugar.Errorf("Failed to write %s: %v", name, err)
		metrics.StoreOperations.WithLabelValues("write", name, metrics.OutcomeError).Inc()
		return err
	}
	metrics.StoreOperations.WithLabelValues("write", name, metrics.OutcomeOK).Inc()
	s.notify(name)
	return nil
}

// IsRecovered reports whether err is a failure that Load already recovered
// from by serving a default.
func IsRecovered(err error) bool {
	var te *apperr.TransportError
	var de *apperr.DecodeError
	return errors.As(err, &te) || errors.As(err, &de)
}
