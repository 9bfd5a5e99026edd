// Package xmlres reads and writes resources as XML and XMI documents.
package xmlres

import (
	"context"
	"fmt"
	"io"

	"github.com/jacoelho/ecore/internal/saxdrive"
	"github.com/jacoelho/ecore/pkg/model"
	"github.com/jacoelho/ecore/pkg/resource"
	"github.com/jacoelho/ecore/pkg/uri"
)

// Options configures a Codec.
type Options struct {
	// Packages resolves namespaces when the resource is not in a set.
	Packages *model.Registry
	// XMI writes xmi:version, xmi:id and an xmi:XMI wrapper for several roots.
	XMI bool
	// KeepDefaults saves attributes whose value equals their default.
	KeepDefaults bool
	// UseUUIDs assigns generated ids to objects of XMI resources on save.
	UseUUIDs bool
	MaxDepth int
	MaxAttrs int
}

// Codec implements resource.Codec for XML and XMI.
type Codec struct {
	opts Options
}

var _ resource.Codec = (*Codec)(nil)

// NewCodec returns a codec using opts.
func NewCodec(opts Options) *Codec {
	return &Codec{opts: opts}
}

// Options returns the codec configuration.
func (c *Codec) Options() Options { return c.opts }

// Load parses in into r. Problems inside the document are recorded on r;
// the returned error reports a document that could not be read at all.
func (c *Codec) Load(ctx context.Context, r *resource.Resource, in io.Reader) error {
	packages := c.opts.Packages
	if s := r.Set(); s != nil {
		packages = s.Packages()
	}
	if packages == nil {
		packages = model.NewRegistry(nil)
	}
	l := newLoader(r, packages, c.opts.XMI)
	limits := saxdrive.Limits{MaxDepth: c.opts.MaxDepth, MaxAttrs: c.opts.MaxAttrs}
	if err := saxdrive.Drive(ctx, in, l, limits); err != nil {
		return fmt.Errorf("load %s: %w", r.URI(), err)
	}
	return nil
}

// Save writes r to out.
func (c *Codec) Save(_ context.Context, r *resource.Resource, out io.Writer) error {
	return newSaver(r, c.opts).save(out)
}

// NewFactory returns a factory of XML resources.
func NewFactory(opts Options) resource.Factory {
	opts.XMI = false
	return resource.FactoryFunc(func(u uri.URI) *resource.Resource {
		return resource.New(u, NewCodec(opts))
	})
}

// NewXMIFactory returns a factory of XMI resources.
func NewXMIFactory(opts Options) resource.Factory {
	opts.XMI = true
	return resource.FactoryFunc(func(u uri.URI) *resource.Resource {
		r := resource.New(u, NewCodec(opts))
		r.SetUseUUIDs(opts.UseUUIDs)
		return r
	})
}

// RegisterFactories binds the xml, xmi and ecore extensions, and makes
// XML the fallback for any other extension.
func RegisterFactories(reg *resource.FactoryRegistry, opts Options) {
	xml, xmi := NewFactory(opts), NewXMIFactory(opts)
	reg.RegisterExtension("xml", xml)
	reg.RegisterExtension("xmi", xmi)
	reg.RegisterExtension("ecore", xmi)
	reg.RegisterExtension(resource.DefaultExtension, xml)
}
