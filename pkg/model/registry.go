package model

import (
	"maps"
	"slices"
	"sync"
)

// Registry maps namespace URIs to packages. Lookups that miss fall back to
// the delegate, if any.
type Registry struct {
	delegate *Registry
	packages map[string]*Package
	mu       sync.RWMutex
}

// NewRegistry returns an empty registry delegating misses to delegate.
// The Ecore package is always resolvable.
func NewRegistry(delegate *Registry) *Registry {
	return &Registry{delegate: delegate, packages: map[string]*Package{}}
}

// Register adds p under its namespace URI, replacing any previous entry.
func (r *Registry) Register(p *Package) {
	r.mu.Lock()
	r.packages[p.nsURI] = p
	r.mu.Unlock()
}

// Remove drops the package registered under nsURI.
func (r *Registry) Remove(nsURI string) {
	r.mu.Lock()
	delete(r.packages, nsURI)
	r.mu.Unlock()
}

// Package returns the package registered under nsURI, or nil.
func (r *Registry) Package(nsURI string) *Package {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	p := r.packages[nsURI]
	r.mu.RUnlock()
	if p != nil {
		return p
	}
	if r.delegate != nil {
		return r.delegate.Package(nsURI)
	}
	if nsURI == EcoreNsURI {
		return Ecore
	}
	return nil
}

// Factory returns the factory of the package registered under nsURI, or nil.
func (r *Registry) Factory(nsURI string) Factory {
	if p := r.Package(nsURI); p != nil {
		return p.factory
	}
	return nil
}

// NsURIs returns the locally registered namespace URIs in sorted order.
func (r *Registry) NsURIs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.packages))
}
