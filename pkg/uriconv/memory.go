package uriconv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/jacoelho/ecore/pkg/uri"
)

// MemoryScheme is the scheme served by Memory.
const MemoryScheme = "mem"

// Memory keeps documents in process, keyed by URI.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemory returns an empty in-memory handler.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

// CanHandle accepts mem: URIs.
func (m *Memory) CanHandle(u uri.URI) bool { return u.Scheme() == MemoryScheme }

// Open returns the stored document.
func (m *Memory) Open(_ context.Context, u uri.URI) (io.ReadCloser, error) {
	data, ok := m.Get(u)
	if !ok {
		return nil, fmt.Errorf("open %s: %w", u, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create returns a writer storing the document on Close.
func (m *Memory) Create(_ context.Context, u uri.URI) (io.WriteCloser, error) {
	return &bufferWriter{commit: func(data []byte) error {
		m.Put(u, data)
		return nil
	}}, nil
}

// Put stores data at u.
func (m *Memory) Put(u uri.URI, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[u.String()] = slices.Clone(data)
}

// Get returns the document at u.
func (m *Memory) Get(u uri.URI) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[u.String()]
	return data, ok
}
