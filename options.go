package ecore

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacoelho/ecore/internal/metrics"
	"github.com/jacoelho/ecore/pkg/model"
	"github.com/jacoelho/ecore/pkg/uriconv"
	"github.com/jacoelho/ecore/pkg/xmlres"
)

type intOption struct {
	value int
	set   bool
}

func (o intOption) resolved() int {
	if !o.set {
		return 0
	}
	return o.value
}

// Options configures resource sets built by this package. The zero value is
// valid; With methods return modified copies.
type Options struct {
	logger       *slog.Logger
	registerer   prometheus.Registerer
	packages     []*model.Package
	handlers     []uriconv.Handler
	maxDepth     intOption
	maxAttrs     intOption
	keepDefaults bool
	useUUIDs     bool
}

type resolvedOptions struct {
	logger   *slog.Logger
	recorder metrics.Recorder
	registry *model.Registry
	codec    xmlres.Options
	handlers []uriconv.Handler
}

// NewOptions returns a default, valid options value.
func NewOptions() Options {
	return Options{}
}

// Validate validates option values.
func (o Options) Validate() error {
	_, err := o.withDefaults()
	return err
}

// WithLogger sets the logger receiving load and save records (nil discards).
func (o Options) WithLogger(logger *slog.Logger) Options {
	o.logger = logger
	return o
}

// WithMetrics registers resource metrics with reg (nil disables metrics).
func (o Options) WithMetrics(reg prometheus.Registerer) Options {
	o.registerer = reg
	return o
}

// WithPackages adds packages to the registry of new resource sets.
func (o Options) WithPackages(pkgs ...*model.Package) Options {
	o.packages = append(append([]*model.Package(nil), o.packages...), pkgs...)
	return o
}

// WithURIHandler adds a handler tried before the built-in ones.
func (o Options) WithURIHandler(h uriconv.Handler) Options {
	o.handlers = append(append([]uriconv.Handler(nil), o.handlers...), h)
	return o
}

// WithMaxDepth sets the XML max element depth (0 uses default).
func (o Options) WithMaxDepth(value int) Options {
	o.maxDepth = intOption{value: value, set: true}
	return o
}

// WithMaxAttrs sets the XML max attributes per element (0 uses default).
func (o Options) WithMaxAttrs(value int) Options {
	o.maxAttrs = intOption{value: value, set: true}
	return o
}

// WithKeepDefaults controls whether attributes equal to their default are saved.
func (o Options) WithKeepDefaults(value bool) Options {
	o.keepDefaults = value
	return o
}

// WithUseUUIDs controls whether XMI resources assign generated ids on save.
func (o Options) WithUseUUIDs(value bool) Options {
	o.useUUIDs = value
	return o
}

func (o Options) withDefaults() (resolvedOptions, error) {
	limits, err := resolveXMLParseLimits(o.maxDepth.resolved(), o.maxAttrs.resolved())
	if err != nil {
		return resolvedOptions{}, fmt.Errorf("xml limits: %w", err)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var recorder metrics.Recorder = metrics.Noop{}
	if o.registerer != nil {
		p, err := metrics.NewPrometheus(o.registerer)
		if err != nil {
			return resolvedOptions{}, fmt.Errorf("metrics: %w", err)
		}
		recorder = p
	}
	registry := model.NewRegistry(nil)
	for _, p := range o.packages {
		if p == nil {
			return resolvedOptions{}, fmt.Errorf("packages: nil package")
		}
		registry.Register(p)
	}
	for _, h := range o.handlers {
		if h == nil {
			return resolvedOptions{}, fmt.Errorf("uri handlers: nil handler")
		}
	}
	return resolvedOptions{
		logger:   logger,
		recorder: recorder,
		registry: registry,
		handlers: o.handlers,
		codec: xmlres.Options{
			Packages:     registry,
			KeepDefaults: o.keepDefaults,
			UseUUIDs:     o.useUUIDs,
			MaxDepth:     limits.maxDepth,
			MaxAttrs:     limits.maxAttrs,
		},
	}, nil
}
