package storage

import (
	"context"
	"maps"
	"sync"

	"github.com/dmitrijs2005/exporter3/internal/common"
)

// MemoryStore is an ObjectStore kept in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]Object{}}
}

func (m *MemoryStore) Get(_ context.Context, bucket, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	obj.Body = append([]byte(nil), obj.Body...)
	obj.Metadata = maps.Clone(obj.Metadata)
	return &obj, nil
}

func (m *MemoryStore) Put(_ context.Context, bucket, key string, obj *Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = Object{
		Body:        append([]byte(nil), obj.Body...),
		ContentType: obj.ContentType,
		Metadata:    maps.Clone(obj.Metadata),
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}
