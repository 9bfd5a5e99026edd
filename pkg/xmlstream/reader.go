package xmlstream

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/jacoelho/ecore/pkg/xmltext"
)

const readerBufferSize = 256 * 1024

var errNilReader = errors.New("nil XML reader")

// Reader provides a streaming XML event interface with namespace tracking.
type Reader struct {
	dec        *xmltext.Decoder
	names      *qnameCache
	tok        xmltext.Token
	ns         nsStack
	attrBuf    []Attr
	elemStack  []QName
	nextID     ElementID
	lastLine   int
	lastColumn int
	pendingPop bool
}

// NewReader creates a new streaming reader for r.
func NewReader(r io.Reader, opts ...Option) (*Reader, error) {
	if r == nil {
		return nil, errNilReader
	}
	options := buildOptions(opts...)
	names := newQNameCache()
	names.setMaxEntries(qnameCacheLimit(options))
	return &Reader{
		dec:   xmltext.NewDecoder(bufio.NewReaderSize(r, readerBufferSize), options...),
		names: names,
	}, nil
}

// Next returns the next XML event. It returns io.EOF after the root element
// closes and only trailing whitespace, comments or processing instructions
// remain.
func (r *Reader) Next() (Event, error) {
	if r == nil || r.dec == nil {
		return Event{}, errNilReader
	}
	if r.pendingPop {
		r.ns.pop()
		r.pendingPop = false
	}

	for {
		if err := r.dec.ReadTokenInto(&r.tok); err != nil {
			return Event{}, err
		}
		tok := &r.tok
		r.lastLine, r.lastColumn = tok.Line, tok.Column

		switch tok.Kind {
		case xmltext.KindStartElement:
			return r.startEvent(tok)
		case xmltext.KindEndElement:
			return r.endEvent(tok)
		case xmltext.KindCharData, xmltext.KindCDATA:
			return r.textEvent(EventCharData, tok), nil
		case xmltext.KindComment:
			return r.textEvent(EventComment, tok), nil
		case xmltext.KindPI:
			if tok.IsXMLDecl {
				continue
			}
			return r.textEvent(EventPI, tok), nil
		case xmltext.KindDirective:
			return r.textEvent(EventDirective, tok), nil
		}
	}
}

func (r *Reader) textEvent(kind EventKind, tok *xmltext.Token) Event {
	return Event{
		Kind:       kind,
		Text:       r.dec.SpanBytes(tok.Text),
		Line:       tok.Line,
		Column:     tok.Column,
		ScopeDepth: r.currentScopeDepth(),
	}
}

func (r *Reader) startEvent(tok *xmltext.Token) (Event, error) {
	line, column := tok.Line, tok.Column
	scope, err := collectNamespaceScope(r.dec, tok)
	if err != nil {
		return Event{}, r.syntaxError(line, column, err)
	}
	scopeDepth := r.ns.push(scope)
	namespace, local, err := resolveElementName(r.dec, &r.ns, tok.Name, scopeDepth)
	if err != nil {
		return Event{}, r.syntaxError(line, column, err)
	}
	name := r.names.internBytes(namespace, local)

	r.attrBuf = r.attrBuf[:0]
	for _, attr := range tok.Attrs {
		raw := r.dec.SpanBytes(attr.Name.Full)
		if isNamespaceAttr(raw) {
			continue
		}
		attrNamespace, attrLocal, err := resolveAttrName(r.dec, &r.ns, attr.Name, scopeDepth)
		if err != nil {
			return Event{}, r.syntaxError(line, column, err)
		}
		attrName := r.names.internBytes(attrNamespace, attrLocal)
		for _, prev := range r.attrBuf {
			if prev.Name == attrName {
				return Event{}, r.syntaxError(line, column, ErrDuplicateAttr)
			}
		}
		r.attrBuf = append(r.attrBuf, Attr{
			Name:  attrName,
			Raw:   raw,
			Value: r.dec.SpanBytes(attr.ValueSpan),
		})
	}

	id := r.nextID
	r.nextID++
	r.elemStack = append(r.elemStack, name)
	return Event{
		Kind:       EventStartElement,
		Name:       name,
		Raw:        r.dec.SpanBytes(tok.Name.Full),
		Attrs:      r.attrBuf,
		Line:       line,
		Column:     column,
		ID:         id,
		ScopeDepth: scopeDepth,
	}, nil
}

func (r *Reader) endEvent(tok *xmltext.Token) (Event, error) {
	scopeDepth := r.ns.depth() - 1
	if len(r.elemStack) == 0 {
		return Event{}, r.syntaxError(tok.Line, tok.Column, errors.New("unexpected end element"))
	}
	name := r.elemStack[len(r.elemStack)-1]
	r.elemStack = r.elemStack[:len(r.elemStack)-1]
	r.pendingPop = true
	return Event{
		Kind:       EventEndElement,
		Name:       name,
		Raw:        r.dec.SpanBytes(tok.Name.Full),
		Line:       tok.Line,
		Column:     tok.Column,
		ScopeDepth: scopeDepth,
	}, nil
}

// CurrentPos returns the line and column of the most recent token.
func (r *Reader) CurrentPos() (line, column int) {
	if r == nil {
		return 0, 0
	}
	return r.lastLine, r.lastColumn
}

// InputOffset returns the current byte position in the input stream.
func (r *Reader) InputOffset() int64 {
	if r == nil || r.dec == nil {
		return 0
	}
	return r.dec.InputOffset()
}

// LookupNamespace resolves a prefix in the current scope.
func (r *Reader) LookupNamespace(prefix string) (string, bool) {
	if r == nil {
		return "", false
	}
	return r.ns.lookup(prefix, r.ns.depth()-1)
}

// NamespaceDecls returns namespace declarations of the element reported by
// the last start or end event. The slice is valid until the next Next call.
func (r *Reader) NamespaceDecls() []NamespaceDecl {
	if r == nil || len(r.ns.scopes) == 0 {
		return nil
	}
	return r.ns.scopes[len(r.ns.scopes)-1].decls
}

func (r *Reader) currentScopeDepth() int {
	return max(r.ns.depth()-1, 0)
}

func (r *Reader) syntaxError(line, column int, err error) error {
	return &xmltext.SyntaxError{
		Offset: r.dec.InputOffset(),
		Line:   line,
		Column: column,
		Path:   r.dec.StackPath(nil),
		Err:    err,
	}
}

func isNamespaceAttr(name []byte) bool {
	return isDefaultNamespaceDecl(name) || bytes.HasPrefix(name, []byte("xmlns:"))
}
