package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryRepository хранит записи в памяти процесса.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
	hub  *hub
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{data: make(map[string]map[string][]byte)}
	r.hub = newHub(r.List)
	return r
}

// Close ничего не делает и нужен для совместимости с другими хранилищами.
func (r *MemoryRepository) Close() error {
	return nil
}

// Append сохраняет документ под новым идентификатором и возвращает его.
func (r *MemoryRepository) Append(ctx context.Context, collection string, doc any) (string, error) {
	id := NewID()
	if err := r.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Set записывает документ целиком.
func (r *MemoryRepository) Set(ctx context.Context, collection, id string, doc any) error {
	if err := r.check(ctx, collection, id); err != nil {
		return err
	}
	payload, err := encodeDocument(doc, id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.data[collection] == nil {
		r.data[collection] = make(map[string][]byte)
	}
	r.data[collection][id] = payload
	r.mu.Unlock()

	return r.hub.publish(ctx, collection)
}

// Update заменяет указанные верхнеуровневые поля документа.
func (r *MemoryRepository) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := r.check(ctx, collection, id); err != nil {
		return err
	}

	r.mu.Lock()
	payload, ok := r.data[collection][id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	merged, err := mergeFields(payload, fields)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.data[collection][id] = merged
	r.mu.Unlock()

	return r.hub.publish(ctx, collection)
}

// Remove удаляет запись.
func (r *MemoryRepository) Remove(ctx context.Context, collection, id string) error {
	if err := r.check(ctx, collection, id); err != nil {
		return err
	}

	r.mu.Lock()
	if _, ok := r.data[collection][id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	delete(r.data[collection], id)
	r.mu.Unlock()

	return r.hub.publish(ctx, collection)
}

// Get возвращает документ по идентификатору.
func (r *MemoryRepository) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := r.check(ctx, collection, id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	payload, ok := r.data[collection][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return append(json.RawMessage(nil), payload...), nil
}

// List возвращает снимок коллекции.
func (r *MemoryRepository) List(ctx context.Context, collection string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if err := checkCollection(collection); err != nil {
		return Snapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{Collection: collection, Records: make([]Record, 0, len(r.data[collection]))}
	for id, payload := range r.data[collection] {
		snap.Records = append(snap.Records, Record{ID: id, Data: append(json.RawMessage(nil), payload...)})
	}
	sortRecords(snap.Records)
	return snap, nil
}

// Subscribe возвращает канал снимков коллекции. Первым приходит текущий снимок,
// канал закрывается после отмены ctx.
func (r *MemoryRepository) Subscribe(ctx context.Context, collection string) (<-chan Snapshot, error) {
	return r.hub.subscribe(ctx, collection)
}

func (r *MemoryRepository) check(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkCollection(collection); err != nil {
		return err
	}
	return checkID(id)
}
