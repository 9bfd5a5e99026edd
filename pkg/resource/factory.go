package resource

import (
	"errors"
	"sync"

	"github.com/jacoelho/ecore/pkg/uri"
)

// DefaultExtension matches any URI without a more specific factory.
const DefaultExtension = "*"

// ErrNoFactory is returned when no factory is registered for a URI.
var ErrNoFactory = errors.New("no resource factory")

// Factory creates resources for URIs.
type Factory interface {
	NewResource(u uri.URI) *Resource
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(u uri.URI) *Resource

// NewResource implements Factory.
func (f FactoryFunc) NewResource(u uri.URI) *Resource { return f(u) }

// FactoryRegistry selects a factory by URI scheme, then by extension, then
// by the default extension.
type FactoryRegistry struct {
	protocols  map[string]Factory
	extensions map[string]Factory
	mu         sync.RWMutex
}

// NewFactoryRegistry returns an empty registry.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{protocols: map[string]Factory{}, extensions: map[string]Factory{}}
}

// RegisterProtocol binds f to a URI scheme.
func (r *FactoryRegistry) RegisterProtocol(scheme string, f Factory) {
	r.mu.Lock()
	r.protocols[scheme] = f
	r.mu.Unlock()
}

// RegisterExtension binds f to a path extension, or to DefaultExtension.
func (r *FactoryRegistry) RegisterExtension(ext string, f Factory) {
	r.mu.Lock()
	r.extensions[ext] = f
	r.mu.Unlock()
}

// Factory returns the factory for u, or nil.
func (r *FactoryRegistry) Factory(u uri.URI) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.protocols[u.Scheme()]; ok {
		return f
	}
	if ext := u.Extension(); ext != "" {
		if f, ok := r.extensions[ext]; ok {
			return f
		}
	}
	return r.extensions[DefaultExtension]
}
