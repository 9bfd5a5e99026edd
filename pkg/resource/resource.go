// Package resource holds object graphs addressed by URI and groups them into
// sets that resolve proxies across documents.
package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	ecoreerrors "github.com/jacoelho/ecore/errors"
	"github.com/jacoelho/ecore/internal/metrics"
	"github.com/jacoelho/ecore/pkg/model"
	"github.com/jacoelho/ecore/pkg/notify"
	"github.com/jacoelho/ecore/pkg/uri"
)

// Feature IDs carried by resource notifications.
const (
	FeatureContents    = model.ContentsFeatureID
	FeatureIsLoaded    = 1
	FeatureURI         = 2
	FeatureResourceSet = 3
)

// ErrNoConverter is returned when a resource has no way to open its URI.
var ErrNoConverter = errors.New("no URI converter")

// Codec converts between document bytes and resource contents.
type Codec interface {
	Load(ctx context.Context, r *Resource, in io.Reader) error
	Save(ctx context.Context, r *Resource, out io.Writer) error
}

// URIConverter opens byte streams for URIs.
type URIConverter interface {
	Open(ctx context.Context, u uri.URI) (io.ReadCloser, error)
	Create(ctx context.Context, u uri.URI) (io.WriteCloser, error)
}

// Resource is a document: root contents plus the diagnostics of its last
// load or save. A resource is not safe for concurrent use.
type Resource struct {
	uri      uri.URI
	set      *Set
	codec    Codec
	notifier *notify.Base
	contents *model.List
	errors   []ecoreerrors.Diagnostic
	warnings []ecoreerrors.Diagnostic
	ids      map[string]*model.Object
	objIDs   map[*model.Object]string
	loaded   bool
	useUUIDs bool
}

// New returns an empty resource for u whose bytes are handled by codec.
func New(u uri.URI, codec Codec) *Resource {
	r := &Resource{
		uri:    u,
		codec:  codec,
		ids:    map[string]*model.Object{},
		objIDs: map[*model.Object]string{},
	}
	r.notifier = notify.NewBase(r)
	r.contents = model.NewContentsList(r, r.notifier)
	return r
}

// URI returns the resource address.
func (r *Resource) URI() uri.URI { return r.uri }

// SetURI changes the resource address.
func (r *Resource) SetURI(u uri.URI) {
	old := r.uri
	r.uri = u
	r.notify(FeatureURI, old, u)
}

// Set returns the resource set holding r, or nil.
func (r *Resource) Set() *Set { return r.set }

// Codec returns the codec converting r's bytes.
func (r *Resource) Codec() Codec { return r.codec }

// Contents returns the root objects.
func (r *Resource) Contents() *model.List { return r.contents }

// Notifier returns the notifier delivering r's notifications.
func (r *Resource) Notifier() *notify.Base { return r.notifier }

// Errors returns the error diagnostics in the order they were recorded.
func (r *Resource) Errors() []ecoreerrors.Diagnostic { return r.errors }

// Warnings returns the warning diagnostics in the order they were recorded.
func (r *Resource) Warnings() []ecoreerrors.Diagnostic { return r.warnings }

// AddError records an error diagnostic.
func (r *Resource) AddError(d ecoreerrors.Diagnostic) { r.errors = append(r.errors, d) }

// AddWarning records a warning diagnostic.
func (r *Resource) AddWarning(d ecoreerrors.Diagnostic) { r.warnings = append(r.warnings, d) }

// IsLoaded reports whether r holds loaded contents.
func (r *Resource) IsLoaded() bool { return r.loaded }

// UseUUIDs reports whether saving assigns generated identifiers.
func (r *Resource) UseUUIDs() bool { return r.useUUIDs }

// SetUseUUIDs makes saving assign a UUID to every object without an identifier.
func (r *Resource) SetUseUUIDs(v bool) { r.useUUIDs = v }

func (r *Resource) notify(featureID int, old, new any) {
	if r.notifier.Required() {
		r.notifier.Notify(notify.New(r.notifier, notify.Set, featureID, old, new, notify.NoIndex))
	}
}

func (r *Resource) setLoaded(v bool) {
	old := r.loaded
	r.loaded = v
	r.notify(FeatureIsLoaded, old, v)
}

// ID returns the identifier r assigned to o, or "".
func (r *Resource) ID(o *model.Object) string { return r.objIDs[o] }

// SetID assigns id to o; an empty id removes o's identifier.
func (r *Resource) SetID(o *model.Object, id string) {
	if old, ok := r.objIDs[o]; ok {
		delete(r.ids, old)
		delete(r.objIDs, o)
	}
	if id == "" {
		return
	}
	if prev, ok := r.ids[id]; ok {
		delete(r.objIDs, prev)
	}
	r.ids[id] = o
	r.objIDs[o] = id
}

// AssignUUIDs gives a generated identifier to every object held by r that has
// neither a resource identifier nor an identifier attribute.
func (r *Resource) AssignUUIDs() {
	for o := range r.AllContents() {
		if _, ok := r.objIDs[o]; ok || model.ObjectID(o) != "" {
			continue
		}
		r.SetID(o, uuid.NewString())
	}
}

// ObjectByID returns the object of r with the given identifier, or nil.
func (r *Resource) ObjectByID(id string) *model.Object {
	if id == "" {
		return nil
	}
	if o, ok := r.ids[id]; ok && o.Resource() == model.Resource(r) {
		return o
	}
	for o := range r.AllContents() {
		if model.ObjectID(o) == id {
			return o
		}
	}
	return nil
}

// AllContents iterates over the roots and everything they contain, in
// pre-order.
func (r *Resource) AllContents() iter.Seq[*model.Object] {
	return func(yield func(*model.Object) bool) {
		for _, root := range r.contents.BasicObjects() {
			if !yield(root) {
				return
			}
			for o := range model.AllContents(root) {
				if !yield(o) {
					return
				}
			}
		}
	}
}

// ResolveProxy returns the object proxy stands for, or nil when it cannot be
// found. Targets in other documents are loaded through the resource set.
func (r *Resource) ResolveProxy(proxy *model.Object) *model.Object {
	target := r.uri.Resolve(proxy.ProxyURI())
	if r.set != nil {
		o, err := r.set.Object(context.Background(), target, true)
		if err != nil {
			r.set.logger.Debug("proxy resolution failed", slog.String("uri", target.String()), slog.Any("error", err))
			return nil
		}
		return o
	}
	if !target.TrimFragment().Equal(r.uri.TrimFragment()) {
		return nil
	}
	o, err := r.ObjectAt(target.Fragment())
	if err != nil {
		return nil
	}
	return o
}

// Load reads r from its URI unless it is already loaded.
func (r *Resource) Load(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	conv := r.converter()
	if conv == nil {
		return fmt.Errorf("load %s: %w", r.uri, ErrNoConverter)
	}
	in, err := conv.Open(ctx, r.uri)
	if err != nil {
		return fmt.Errorf("load %s: %w", r.uri, err)
	}
	defer in.Close()
	return r.LoadFrom(ctx, in)
}

// LoadFrom reads r from in unless it is already loaded. Recoverable problems
// are recorded as diagnostics; the returned error reports fatal syntax or
// stream failures only.
func (r *Resource) LoadFrom(ctx context.Context, in io.Reader) error {
	if r.loaded {
		return nil
	}
	r.errors, r.warnings = nil, nil
	r.setLoaded(true)

	start := time.Now()
	err := r.codec.Load(ctx, r, in)
	r.observe(ctx, metrics.OpLoad, start, err)
	return err
}

// Save writes r to its URI.
func (r *Resource) Save(ctx context.Context) (err error) {
	conv := r.converter()
	if conv == nil {
		return fmt.Errorf("save %s: %w", r.uri, ErrNoConverter)
	}
	out, err := conv.Create(ctx, r.uri)
	if err != nil {
		return fmt.Errorf("save %s: %w", r.uri, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("save %s: %w", r.uri, cerr)
		}
	}()
	return r.SaveTo(ctx, out)
}

// SaveTo writes r to out.
func (r *Resource) SaveTo(ctx context.Context, out io.Writer) error {
	r.errors, r.warnings = nil, nil
	if r.useUUIDs {
		r.AssignUUIDs()
	}
	start := time.Now()
	err := r.codec.Save(ctx, r, out)
	r.observe(ctx, metrics.OpSave, start, err)
	return err
}

// Unload drops the contents and identifiers of r.
func (r *Resource) Unload() {
	if !r.loaded {
		return
	}
	r.setLoaded(false)
	r.contents.Clear()
	clear(r.ids)
	clear(r.objIDs)
	r.errors, r.warnings = nil, nil
}

func (r *Resource) converter() URIConverter {
	if r.set == nil {
		return nil
	}
	return r.set.converter
}

func (r *Resource) observe(ctx context.Context, op string, start time.Time, err error) {
	logger, rec := discardLogger, metrics.Recorder(metrics.Noop{})
	if r.set != nil {
		logger, rec = r.set.logger, r.set.metrics
	}
	elapsed := time.Since(start)
	rec.Observe(ctx, op, err == nil, elapsed)
	rec.Diagnostics(op, len(r.errors), len(r.warnings))
	logger.Debug("resource "+op,
		slog.String("uri", r.uri.String()),
		slog.Duration("duration", elapsed),
		slog.Int("errors", len(r.errors)),
		slog.Int("warnings", len(r.warnings)),
		slog.Any("error", err),
	)
}
