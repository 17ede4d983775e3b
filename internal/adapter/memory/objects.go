package memory

import (
	"context"
	"strings"
	"sync"
)

// ObjectStore keeps uploaded objects in memory and serves them under baseURL
type ObjectStore struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewObjectStore creates a new in-memory object store
func NewObjectStore(baseURL string) *ObjectStore {
	return &ObjectStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

// Put stores a copy of data at path and returns its URL
func (s *ObjectStore) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[path] = append([]byte(nil), data...)
	return s.baseURL + "/" + path, nil
}

// Get returns the object stored at path
func (s *ObjectStore) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[path]
	return data, ok
}
