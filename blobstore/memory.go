package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/Itish41/DocIntel/apperrors"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, docID, fileName, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", apperrors.New(apperrors.ErrStorageFailure, "memory put", err)
	}
	key := ObjectKey(docID, fileName)
	m.mu.Lock()
	m.blobs[key] = data
	m.mu.Unlock()
	return key, nil
}

func (m *MemoryStore) Get(_ context.Context, handle string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.blobs[handle]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("blob", handle)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Delete(_ context.Context, handle string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[handle]; !ok {
		return false, nil
	}
	delete(m.blobs, handle)
	return true, nil
}

// Has reports whether handle is stored.
func (m *MemoryStore) Has(handle string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[handle]
	return ok
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
