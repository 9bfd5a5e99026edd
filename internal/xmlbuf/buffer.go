// Package xmlbuf lays out XML text one element per line and supports
// inserting text at an earlier position through marks.
package xmlbuf

import (
	"io"
	"strings"
)

const indentUnit = "  "

// Mark is a position in a Buffer that later text can be inserted at.
type Mark int

// Buffer accumulates XML text in segments. Text is always appended to the
// current segment; ResetToMark makes an earlier segment current again.
type Buffer struct {
	segments []*strings.Builder
	open     []string
	cur      int
	inStart  bool
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{segments: []*strings.Builder{{}}}
}

func (b *Buffer) w() *strings.Builder { return b.segments[b.cur] }

// Add writes s verbatim.
func (b *Buffer) Add(s string) { b.w().WriteString(s) }

// AddLine ends the current line.
func (b *Buffer) AddLine() { b.w().WriteByte('\n') }

func (b *Buffer) closeStart() {
	if b.inStart {
		b.w().WriteString(">\n")
		b.inStart = false
	}
}

func (b *Buffer) indent(depth int) {
	for range depth {
		b.w().WriteString(indentUnit)
	}
}

// Depth returns the number of open elements.
func (b *Buffer) Depth() int { return len(b.open) }

// StartElement opens an element on a new line. Attributes may follow until
// the next element or content is written.
func (b *Buffer) StartElement(name string) {
	b.closeStart()
	b.indent(len(b.open))
	w := b.w()
	w.WriteByte('<')
	w.WriteString(name)
	b.open = append(b.open, name)
	b.inStart = true
}

// AddAttribute writes name="value" into the open start tag.
func (b *Buffer) AddAttribute(name, value string) {
	w := b.w()
	w.WriteByte(' ')
	w.WriteString(name)
	w.WriteString(`="`)
	escapeAttr(w, value)
	w.WriteByte('"')
}

// AddNil writes an empty child element flagged with xsi:nil.
func (b *Buffer) AddNil(name string) {
	b.StartElement(name)
	b.AddAttribute("xsi:nil", "true")
	b.EndEmptyElement()
}

// AddContent writes a child element holding text on a single line.
func (b *Buffer) AddContent(name, text string) {
	b.closeStart()
	b.indent(len(b.open))
	w := b.w()
	w.WriteByte('<')
	w.WriteString(name)
	w.WriteByte('>')
	escapeText(w, text)
	w.WriteString("</")
	w.WriteString(name)
	w.WriteString(">\n")
}

// EndEmptyElement closes the open start tag as an empty element.
func (b *Buffer) EndEmptyElement() {
	b.w().WriteString("/>\n")
	b.inStart = false
	b.open = b.open[:len(b.open)-1]
}

// EndElement closes the innermost open element.
func (b *Buffer) EndElement() {
	if b.inStart {
		b.EndEmptyElement()
		return
	}
	name := b.open[len(b.open)-1]
	b.open = b.open[:len(b.open)-1]
	b.indent(len(b.open))
	w := b.w()
	w.WriteString("</")
	w.WriteString(name)
	w.WriteString(">\n")
}

// Mark records the current position. Text written afterwards goes to a new
// segment so ResetToMark can insert text at the mark.
func (b *Buffer) Mark() Mark {
	m := Mark(b.cur)
	b.segments = append(b.segments, &strings.Builder{})
	b.cur = len(b.segments) - 1
	return m
}

// ResetToMark makes subsequent writes land at m.
func (b *Buffer) ResetToMark(m Mark) {
	if int(m) >= 0 && int(m) < len(b.segments) {
		b.cur = int(m)
	}
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	n := 0
	for _, s := range b.segments {
		n += s.Len()
	}
	return n
}

// String returns the buffered text.
func (b *Buffer) String() string {
	var sb strings.Builder
	sb.Grow(b.Len())
	for _, s := range b.segments {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// WriteTo writes the buffered text to w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, s := range b.segments {
		n, err := io.WriteString(w, s.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func escapeAttr(w *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			w.WriteString("&amp;")
		case '<':
			w.WriteString("&lt;")
		case '"':
			w.WriteString("&quot;")
		case '\n':
			w.WriteString("&#xA;")
		case '\r':
			w.WriteString("&#xD;")
		case '\t':
			w.WriteString("&#x9;")
		default:
			w.WriteByte(c)
		}
	}
}

func escapeText(w *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			w.WriteString("&amp;")
		case '<':
			w.WriteString("&lt;")
		case '>':
			w.WriteString("&gt;")
		case '\r':
			w.WriteString("&#xD;")
		default:
			w.WriteByte(c)
		}
	}
}
