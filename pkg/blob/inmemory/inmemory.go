// Package inmemory provides a map-backed blob store.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/papercomputeco/factory/pkg/blob"
)

// Store implements blob.Store in memory.
type Store struct {
	mu      sync.RWMutex
	objects map[string]blob.Object
}

// NewStore creates an empty in-memory blob store.
func NewStore() *Store {
	return &Store{objects: make(map[string]blob.Object)}
}

func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) error {
	key, err := blob.CleanKey(key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = blob.DefaultContentType
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = blob.Object{
		Key:         key,
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) (*blob.Object, error) {
	key, err := blob.CleanKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return &obj, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]blob.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []blob.ObjectInfo{}
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, blob.ObjectInfo{
			Key:         key,
			Size:        int64(len(obj.Data)),
			ContentType: obj.ContentType,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	key, err := blob.CleanKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *Store) Close() error {
	return nil
}
