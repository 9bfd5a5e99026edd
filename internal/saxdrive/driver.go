// Package saxdrive pushes XML events to a handler, SAX style, on top of the
// xmlstream reader. Handlers see namespace URIs alongside the original
// qualified names, and namespace declarations arrive as prefix mappings.
package saxdrive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jacoelho/ecore/pkg/xmlstream"
	"github.com/jacoelho/ecore/pkg/xmltext"
)

// Default limits applied when Limits fields are zero.
const (
	DefaultMaxDepth     = 256
	DefaultMaxAttrs     = 256
	DefaultMaxTokenSize = 4 << 20
)

// Attr is a resolved attribute of a start tag. Namespace declarations are
// reported through StartPrefixMapping and never appear as attributes.
type Attr struct {
	URI   string
	Local string
	QName string
	Value string
}

// Locator reports the position of the most recent event.
type Locator interface {
	Position() (line, column int)
}

// Handler receives document events in order.
type Handler interface {
	SetLocator(Locator)
	StartDocument()
	StartPrefixMapping(prefix, uri string)
	EndPrefixMapping(prefix string)
	StartElement(uri, local, qname string, attrs []Attr)
	Characters(text string)
	EndElement(uri, local, qname string)
	EndDocument()
}

// ErrorHandler is implemented by handlers that want fatal errors delivered
// as an event before Drive returns them.
type ErrorHandler interface {
	FatalError(err *SyntaxError)
}

// Limits bounds document shape.
type Limits struct {
	MaxDepth     int
	MaxAttrs     int
	MaxTokenSize int
}

// SyntaxError is a fatal well-formedness or limit violation.
type SyntaxError struct {
	Msg    string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (line %d, column %d)", e.Msg, e.Line, e.Column)
}

type driver struct {
	ctx     context.Context
	reader  *xmlstream.Reader
	handler Handler
	attrs   []Attr
	depth   int
}

func (d *driver) Position() (int, int) {
	return d.reader.CurrentPos()
}

// Drive tokenizes r and delivers events to h. It returns a *SyntaxError for
// malformed input, the context error if ctx is cancelled, or nil.
func Drive(ctx context.Context, r io.Reader, h Handler, limits Limits) error {
	reader, err := xmlstream.NewReader(r,
		xmlstream.MaxDepth(orDefault(limits.MaxDepth, DefaultMaxDepth)),
		xmlstream.MaxAttrs(orDefault(limits.MaxAttrs, DefaultMaxAttrs)),
		xmlstream.MaxTokenSize(orDefault(limits.MaxTokenSize, DefaultMaxTokenSize)),
		xmlstream.WithCharsetReader(charsetReader),
	)
	if err != nil {
		return err
	}
	d := &driver{ctx: ctx, reader: reader, handler: h}
	h.SetLocator(d)
	err = d.run()
	var syntax *SyntaxError
	if eh, ok := h.(ErrorHandler); ok && errors.As(err, &syntax) {
		eh.FatalError(syntax)
	}
	return err
}

func (d *driver) run() error {
	started := false
	for count := 0; ; count++ {
		if count&0xff == 0 {
			if err := d.ctx.Err(); err != nil {
				return err
			}
		}
		ev, err := d.reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return wrap(err)
		}
		if !started {
			started = true
			d.handler.StartDocument()
		}

		switch ev.Kind {
		case xmlstream.EventStartElement:
			d.start(&ev)
		case xmlstream.EventEndElement:
			d.end(&ev)
		case xmlstream.EventCharData:
			// the decoder rejects non-whitespace text outside the root.
			if d.depth > 0 {
				d.handler.Characters(string(ev.Text))
			}
		}
	}
	d.handler.EndDocument()
	return nil
}

func (d *driver) start(ev *xmlstream.Event) {
	for _, decl := range d.reader.NamespaceDecls() {
		d.handler.StartPrefixMapping(decl.Prefix, decl.URI)
	}
	d.attrs = d.attrs[:0]
	for _, a := range ev.Attrs {
		d.attrs = append(d.attrs, Attr{
			URI:   a.Name.Namespace,
			Local: a.Name.Local,
			QName: string(a.Raw),
			Value: string(a.Value),
		})
	}
	d.depth++
	// handlers keep what they need; the slice is reused for the next element.
	d.handler.StartElement(ev.Name.Namespace, ev.Name.Local, string(ev.Raw), d.attrs)
}

func (d *driver) end(ev *xmlstream.Event) {
	d.handler.EndElement(ev.Name.Namespace, ev.Name.Local, string(ev.Raw))
	d.depth--
	for _, decl := range d.reader.NamespaceDecls() {
		d.handler.EndPrefixMapping(decl.Prefix)
	}
}

func wrap(err error) error {
	var syntax *xmltext.SyntaxError
	if errors.As(err, &syntax) {
		return &SyntaxError{Msg: syntax.Err.Error(), Line: syntax.Line, Column: syntax.Column}
	}
	return err
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
