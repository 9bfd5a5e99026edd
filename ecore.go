// Package ecore loads and saves reflective object graphs as XML and XMI
// resources.
//
// Metamodels are built with package model (or described in YAML with package
// metadesc), instances are created reflectively, and resources grouped in a
// resource set resolve references across documents:
//
//	set, err := ecore.NewResourceSet(ecore.NewOptions().WithPackages(pkg))
//	r, err := set.Resource(ctx, uri.New("library.xml"), true)
package ecore

import (
	"context"
	"fmt"
	"path/filepath"

	ecoreerrors "github.com/jacoelho/ecore/errors"
	"github.com/jacoelho/ecore/pkg/resource"
	"github.com/jacoelho/ecore/pkg/uri"
	"github.com/jacoelho/ecore/pkg/uriconv"
	"github.com/jacoelho/ecore/pkg/xmlres"
)

// NewResourceSet returns a resource set configured by opts. Documents are
// read through the handlers given with WithURIHandler, then in-memory mem:
// URIs, then the file system.
func NewResourceSet(opts Options) (*resource.Set, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("resource set options: %w", err)
	}
	handlers := append(append([]uriconv.Handler(nil), resolved.handlers...), uriconv.NewMemory(), uriconv.File{})
	set := resource.NewSet(resource.Config{
		Packages:  resolved.registry,
		Converter: uriconv.New(handlers...),
		Logger:    resolved.logger,
		Metrics:   resolved.recorder,
	})
	xmlres.RegisterFactories(set.Factories(), resolved.codec)
	return set, nil
}

// Load reads the resource at location into a new resource set. Diagnostics
// recorded as errors are returned as an errors.DiagnosticList together with
// the resource.
func Load(ctx context.Context, location string, opts Options) (*resource.Resource, error) {
	set, err := NewResourceSet(opts)
	if err != nil {
		return nil, err
	}
	r, err := set.Resource(ctx, uri.New(location), true)
	if err != nil {
		return r, err
	}
	if errs := r.Errors(); len(errs) > 0 {
		return r, ecoreerrors.DiagnosticList(errs)
	}
	return r, nil
}

// LoadFile reads the resource stored at path.
func LoadFile(ctx context.Context, path string, opts Options) (*resource.Resource, error) {
	return Load(ctx, filepath.ToSlash(path), opts)
}
