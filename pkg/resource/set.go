package resource

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jacoelho/ecore/internal/metrics"
	"github.com/jacoelho/ecore/pkg/model"
	"github.com/jacoelho/ecore/pkg/uri"
)

var discardLogger = slog.New(slog.DiscardHandler)

// Config wires the collaborators of a Set. Zero fields get defaults: an
// empty package registry, an empty factory registry, a discarding logger
// and a no-op metrics recorder.
type Config struct {
	Packages  *model.Registry
	Factories *FactoryRegistry
	Converter URIConverter
	Logger    *slog.Logger
	Metrics   metrics.Recorder
}

// Set groups resources that reference each other. A set is not safe for
// concurrent use.
type Set struct {
	packages  *model.Registry
	factories *FactoryRegistry
	converter URIConverter
	logger    *slog.Logger
	metrics   metrics.Recorder
	resources []*Resource
}

// NewSet returns an empty resource set.
func NewSet(cfg Config) *Set {
	s := &Set{
		packages:  cfg.Packages,
		factories: cfg.Factories,
		converter: cfg.Converter,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if s.packages == nil {
		s.packages = model.NewRegistry(nil)
	}
	if s.factories == nil {
		s.factories = NewFactoryRegistry()
	}
	if s.logger == nil {
		s.logger = discardLogger
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	return s
}

// Packages returns the package registry used to interpret documents.
func (s *Set) Packages() *model.Registry { return s.packages }

// Factories returns the resource factory registry.
func (s *Set) Factories() *FactoryRegistry { return s.factories }

// Converter returns the URI converter, or nil.
func (s *Set) Converter() URIConverter { return s.converter }

// SetConverter replaces the URI converter.
func (s *Set) SetConverter(c URIConverter) { s.converter = c }

// Logger returns the set's logger.
func (s *Set) Logger() *slog.Logger { return s.logger }

// Resources returns the resources of s in insertion order.
func (s *Set) Resources() []*Resource { return slices.Clone(s.resources) }

// Add attaches r to s, detaching it from its previous set.
func (s *Set) Add(r *Resource) {
	if r.set == s {
		return
	}
	old := r.set
	if old != nil {
		old.Remove(r)
	}
	r.set = s
	s.resources = append(s.resources, r)
	r.notify(FeatureResourceSet, old, s)
}

// Remove detaches r from s.
func (s *Set) Remove(r *Resource) {
	i := slices.Index(s.resources, r)
	if i < 0 {
		return
	}
	s.resources = slices.Delete(s.resources, i, i+1)
	r.set = nil
	r.notify(FeatureResourceSet, s, (*Set)(nil))
}

// CreateResource creates an empty resource for u with the factory registered
// for it and adds it to s.
func (s *Set) CreateResource(u uri.URI) (*Resource, error) {
	f := s.factories.Factory(u)
	if f == nil {
		return nil, fmt.Errorf("create resource %s: %w", u, ErrNoFactory)
	}
	r := f.NewResource(u)
	s.Add(r)
	return r, nil
}

// Resource returns the resource of s addressed by u, ignoring its fragment.
// With loadOnDemand a missing resource is created and an unloaded one is
// loaded.
func (s *Set) Resource(ctx context.Context, u uri.URI, loadOnDemand bool) (*Resource, error) {
	base := u.TrimFragment()
	for _, r := range s.resources {
		if !r.uri.TrimFragment().Equal(base) {
			continue
		}
		if loadOnDemand && !r.loaded {
			if err := r.Load(ctx); err != nil {
				return r, err
			}
		}
		return r, nil
	}
	if !loadOnDemand {
		return nil, nil
	}
	r, err := s.CreateResource(base)
	if err != nil {
		return nil, err
	}
	if err := r.Load(ctx); err != nil {
		return r, err
	}
	return r, nil
}

// Object returns the object addressed by u, loading its resource on demand.
func (s *Set) Object(ctx context.Context, u uri.URI, loadOnDemand bool) (*model.Object, error) {
	r, err := s.Resource(ctx, u, loadOnDemand)
	if err != nil || r == nil {
		return nil, err
	}
	return r.ObjectAt(u.Fragment())
}
