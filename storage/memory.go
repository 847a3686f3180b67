package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// MemoryStore keeps objects in a map. Failures can be injected per operation.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	// FailPut, FailRemove and FailSign, when set, are returned by the
	// matching operation instead of touching the map.
	FailPut    error
	FailRemove error
	FailSign   error
}

var _ ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func objectID(bucket, key string) string { return bucket + "/" + key }

func (m *MemoryStore) Put(_ context.Context, bucket, key string, body io.Reader, _ int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut != nil {
		return m.FailPut
	}
	id := objectID(bucket, key)
	if _, exists := m.objects[id]; exists {
		return fmt.Errorf("%w: object %s already exists", ErrIntegrity, id)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	m.objects[id] = data
	m.types[id] = contentType
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRemove != nil {
		return m.FailRemove
	}
	id := objectID(bucket, key)
	delete(m.objects, id)
	delete(m.types, id)
	return nil
}

func (m *MemoryStore) SignedURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSign != nil {
		return "", m.FailSign
	}
	if _, ok := m.objects[objectID(bucket, key)]; !ok {
		return "", fmt.Errorf("%w: no object %s", ErrIntegrity, objectID(bucket, key))
	}
	u := url.URL{
		Scheme:   "memory",
		Host:     bucket,
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {fmt.Sprint(int(ttl.Seconds()))}}.Encode(),
	}
	return u.String(), nil
}

// Has reports whether the object exists.
func (m *MemoryStore) Has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectID(bucket, key)]
	return ok
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
