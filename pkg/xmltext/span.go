package xmltext

// Span references bytes in a decoder-owned buffer.
// Spans are only valid until the next read call unless the buffer is stable.
type Span struct {
	buf   *spanBuffer
	Start int
	End   int
	gen   uint32
}

// QNameSpan splits a qualified name into prefix and local parts.
type QNameSpan struct {
	Full      Span
	Prefix    Span
	Local     Span
	HasPrefix bool
}

// AttrSpan is a single attribute of a start element.
type AttrSpan struct {
	Name      QNameSpan
	ValueSpan Span
}

type attrSeenEntry = Span

type spanBuffer struct {
	entities *entityResolver
	data     []byte
	gen      uint32
	poison   bool
	stable   bool
}

func makeSpan(buf *spanBuffer, start, end int) Span {
	if buf == nil {
		return Span{Start: start, End: end}
	}
	return Span{Start: start, End: end, buf: buf, gen: buf.gen}
}

func makeQNameSpan(buf *spanBuffer, start, end, colon int) QNameSpan {
	full := makeSpan(buf, start, end)
	if colon < 0 {
		return QNameSpan{Full: full, Local: full}
	}
	return QNameSpan{
		Full:      full,
		Prefix:    makeSpan(buf, start, colon),
		Local:     makeSpan(buf, colon+1, end),
		HasPrefix: true,
	}
}

func (s Span) bytes() []byte {
	if s.buf == nil {
		return nil
	}
	if s.buf.poison && s.gen != s.buf.gen {
		panic("xmltext: span is invalid after buffer reuse")
	}
	if s.Start < 0 || s.End < s.Start || s.End > len(s.buf.data) {
		if s.buf.poison {
			panic("xmltext: span bounds are invalid")
		}
		return nil
	}
	return s.buf.data[s.Start:s.End]
}

// Len reports the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}
