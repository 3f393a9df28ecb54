package objectstore

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemStore is an in-memory Store for tests and single-node dev runs.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	// MoveCalls counts Move invocations (tests assert dedupe behavior).
	MoveCalls int

	// FailMoveAfter, when > 0, makes Move fail once that many moves have
	// succeeded. Tests use it to force a mid-finalization fault.
	FailMoveAfter int
}

// NewMemStore constructs an empty in-memory object store.
func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// Seed places an object directly (test setup for temp uploads).
func (s *MemStore) Seed(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

// Has reports whether an object exists.
func (s *MemStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Keys returns every stored key.
func (s *MemStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

func (s *MemStore) Move(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailMoveAfter > 0 && s.MoveCalls >= s.FailMoveAfter {
		return fmt.Errorf("objectstore: simulated move failure for %s", src)
	}
	data, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("objectstore: source %s does not exist", src)
	}
	s.objects[dst] = data
	s.types[dst] = s.types[src]
	delete(s.objects, src)
	delete(s.types, src)
	s.MoveCalls++
	return nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.types, key)
	return nil
}

func (s *MemStore) Put(_ context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *MemStore) PresignPut(_ context.Context, key, contentType string, _ time.Duration) (string, error) {
	return "memory://" + key + "?type=" + contentType, nil
}
