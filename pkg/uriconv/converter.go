// Package uriconv opens and creates the byte streams behind resource URIs.
// A Converter dispatches each URI to the first registered Handler that
// accepts it.
package uriconv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jacoelho/ecore/pkg/resource"
	"github.com/jacoelho/ecore/pkg/uri"
)

var (
	// ErrNotFound reports a URI with no stored document.
	ErrNotFound = errors.New("document not found")
	// ErrNoHandler reports a URI no handler accepts.
	ErrNoHandler = errors.New("no handler for uri")
)

// Handler provides streams for the URIs it accepts.
type Handler interface {
	CanHandle(u uri.URI) bool
	Open(ctx context.Context, u uri.URI) (io.ReadCloser, error)
	Create(ctx context.Context, u uri.URI) (io.WriteCloser, error)
}

// Converter is a resource.URIConverter composed of handlers.
type Converter struct {
	mu       sync.RWMutex
	handlers []Handler
}

var _ resource.URIConverter = (*Converter)(nil)

// New returns a converter trying handlers in order.
func New(handlers ...Handler) *Converter {
	return &Converter{handlers: handlers}
}

// Register adds h ahead of the existing handlers.
func (c *Converter) Register(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append([]Handler{h}, c.handlers...)
}

func (c *Converter) handler(u uri.URI) (Handler, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, h := range c.handlers {
		if h.CanHandle(u) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", u, ErrNoHandler)
}

// Open returns a reader for the document at u.
func (c *Converter) Open(ctx context.Context, u uri.URI) (io.ReadCloser, error) {
	h, err := c.handler(u)
	if err != nil {
		return nil, err
	}
	return h.Open(ctx, u.TrimFragment())
}

// Create returns a writer replacing the document at u once closed.
func (c *Converter) Create(ctx context.Context, u uri.URI) (io.WriteCloser, error) {
	h, err := c.handler(u)
	if err != nil {
		return nil, err
	}
	return h.Create(ctx, u.TrimFragment())
}

// bufferWriter collects a document and hands it to commit on Close.
type bufferWriter struct {
	buf    []byte
	commit func(data []byte) error
	closed bool
}

func (w *bufferWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write to closed document")
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *bufferWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.commit(w.buf)
}
