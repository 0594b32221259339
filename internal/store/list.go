package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clubsite/internal/apperr"
	"clubsite/internal/codec"
	"clubsite/internal/metrics"
	"clubsite/pkg/logger"
)

// List is a collection resource stored as one JSON array. Every mutation is a
// read-modify-write of the whole array: two concurrent mutations can lose one
// of the updates.
type List[T any] struct {
	Store    *Store
	Name     string
	IDPrefix string
	Layers   int

	ID       func(*T) string
	Assign   func(item *T, id string, createdAt time.Time)
	Validate func(*T) error
	// Protected fields are never overwritten by Update.
	Protected []string
}

// All returns the collection, or an empty one when it cannot be read.
func (l *List[T]) All(ctx context.Context) []T {
	items, _, _ := Load(ctx, l.Store, l.resource())
	if items == nil {
		return []T{}
	}
	return items
}

func (l *List[T]) resource() Resource[[]T] {
	return Resource[[]T]{
		Name:    l.Name,
		Layers:  l.Layers,
		Default: func() []T { return []T{} },
	}
}

// current loads the list for a mutation. Unlike All, a failed or corrupt read
// is an error: writing back a default would wipe the collection.
func (l *List[T]) current(ctx context.Context) ([]T, error) {
	items, src, err := Load(ctx, l.Store, l.resource())
	if src == FromFallback {
		return nil, fmt.Errorf("load %s before update: %w", l.Name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (l *List[T]) save(ctx context.Context, items []T) error {
	return put(ctx, l.Store, l.Name, l.Layers, items)
}

func (l *List[T]) nextID(items []T, now time.Time) string {
	taken := make(map[string]bool, len(items))
	for i := range items {
		taken[l.ID(&items[i])] = true
	}
	ms := now.UnixMilli()
	for {
		id := fmt.Sprintf("%s-%d", l.IDPrefix, ms)
		if !taken[id] {
			return id
		}
		ms++
	}
}

// Insert appends item with a fresh server-assigned id and createdAt.
func (l *List[T]) Insert(ctx context.Context, item T) (T, error) {
	if l.Validate != nil {
		if err := l.Validate(&item); err != nil {
			return item, err
		}
	}
	items, err := l.current(ctx)
	if err != nil {
		return item, err
	}
	now := l.Store.now()
	l.Assign(&item, l.nextID(items, now), now)

	items = append(items, item)
	if err := l.save(ctx, items); err != nil {
		return item, err
	}
	metrics.StoreOperations.WithLabelValues("insert", l.Name, metrics.OutcomeOK).Inc()
	logger.Sugar.Infof("Inserted %s %s", l.Name, l.ID(&item))
	return item, nil
}

// Update shallow-merges the JSON object patch into the item with the given id.
func (l *List[T]) Update(ctx context.Context, id string, patch json.RawMessage) (T, error) {
	var zero T
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return zero, apperr.Invalid("body", "must be a JSON object")
	}

	items, err := l.current(ctx)
	if err != nil {
		return zero, err
	}
	idx := -1
	for i := range items {
		if l.ID(&items[i]) == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return zero, &apperr.NotFoundError{Resource: l.Name, ID: id}
	}

	merged, err := l.merge(items[idx], fields)
	if err != nil {
		return zero, err
	}
	if l.Validate != nil {
		if err := l.Validate(&merged); err != nil {
			return zero, err
		}
	}
	items[idx] = merged
	if err := l.save(ctx, items); err != nil {
		return zero, err
	}
	metrics.StoreOperations.WithLabelValues("update", l.Name, metrics.OutcomeOK).Inc()
	return merged, nil
}

func (l *List[T]) merge(item T, patch map[string]json.RawMessage) (T, error) {
	var zero T
	b, err := json.Marshal(item)
	if err != nil {
		return zero, err
	}
	var base map[string]json.RawMessage
	if err := json.Unmarshal(b, &base); err != nil {
		return zero, err
	}
	protected := make(map[string]bool, len(l.Protected))
	for _, f := range l.Protected {
		protected[f] = true
	}
	for k, v := range patch {
		if !protected[k] {
			base[k] = v
		}
	}
	b, err = json.Marshal(base)
	if err != nil {
		return zero, err
	}
	var out T
	if err := codec.Decode(string(b), &out); err != nil {
		return zero, apperr.Invalid("body", "fields have the wrong type")
	}
	return out, nil
}

// Delete removes the item with the given id. A missing id is not an error and
// nothing is written.
func (l *List[T]) Delete(ctx context.Context, id string) error {
	items, err := l.current(ctx)
	if err != nil {
		return err
	}
	kept := make([]T, 0, len(items))
	for i := range items {
		if l.ID(&items[i]) != id {
			kept = append(kept, items[i])
		}
	}
	if len(kept) == len(items) {
		logger.Sugar.Infof("Delete of %s %s: not present", l.Name, id)
		return nil
	}
	if err := l.save(ctx, kept); err != nil {
		return err
	}
	metrics.StoreOperations.WithLabelValues("delete", l.Name, metrics.OutcomeOK).Inc()
	return nil
}
