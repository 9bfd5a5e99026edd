package xmltext

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecoderTokensBasic(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`<root attr="v">text</root>`))

	tok, err := dec.ReadToken()
	if err != nil {
		t.Fatalf("ReadToken start error = %v", err)
	}
	if tok.Kind != KindStartElement {
		t.Fatalf("start kind = %v, want %v", tok.Kind, KindStartElement)
	}
	if got := string(dec.SpanBytes(tok.Name.Local)); got != "root" {
		t.Fatalf("start name = %q, want root", got)
	}
	if len(tok.Attrs) != 1 {
		t.Fatalf("attr count = %d, want 1", len(tok.Attrs))
	}
	attr := tok.Attrs[0]
	if got := string(dec.SpanBytes(attr.Name.Local)); got != "attr" {
		t.Fatalf("attr name = %q, want attr", got)
	}
	if got := string(dec.SpanBytes(attr.ValueSpan)); got != "v" {
		t.Fatalf("attr value = %q, want v", got)
	}

	tok, err = dec.ReadToken()
	if err != nil {
		t.Fatalf("ReadToken text error = %v", err)
	}
	if tok.Kind != KindCharData {
		t.Fatalf("text kind = %v, want %v", tok.Kind, KindCharData)
	}
	if got := string(dec.SpanBytes(tok.Text)); got != "text" {
		t.Fatalf("text = %q, want text", got)
	}

	tok, err = dec.ReadToken()
	if err != nil {
		t.Fatalf("ReadToken end error = %v", err)
	}
	if tok.Kind != KindEndElement {
		t.Fatalf("end kind = %v, want %v", tok.Kind, KindEndElement)
	}
	if got := string(dec.SpanBytes(tok.Name.Local)); got != "root" {
		t.Fatalf("end name = %q, want root", got)
	}

	if _, err := dec.ReadToken(); err != io.EOF {
		t.Fatalf("ReadToken EOF = %v, want io.EOF", err)
	}
}

func TestDecoderResolveEntities(t *testing.T) {
	input := `<root attr="a&amp;b">x&amp;y&#65;</root>`

	dec := NewDecoder(strings.NewReader(input))
	tok, err := dec.ReadToken()
	if err != nil {
		t.Fatalf("ReadToken start error = %v", err)
	}
	if !tok.AttrNeeds[0] {
		t.Fatalf("AttrNeeds[0] = false, want true")
	}
	if got := string(dec.SpanBytes(tok.Attrs[0].ValueSpan)); got != "a&amp;b" {
		t.Fatalf("raw attr value = %q, want a&amp;b", got)
	}
	tok, err = dec.ReadToken()
	if err != nil {
		t.Fatalf("ReadToken text error = %v", err)
	}
	if !tok.TextNeeds {
		t.Fatalf("TextNeeds = false, want true")
	}
	unescaped, err := UnescapeInto(nil, tok.Text)
	if err != nil {
		t.Fatalf("UnescapeInto error = %v", err)
	}
	if string(unescaped) != "x&yA" {
		t.Fatalf("UnescapeInto = %q, want x&yA", unescaped)
	}

	dec = NewDecoder(strings.NewReader(input), ResolveEntities(true))
	tok, err = dec.ReadToken()
	if err != nil {
		t.Fatalf("ReadToken start resolve error = %v", err)
	}
	if tok.AttrNeeds[0] {
		t.Fatalf("AttrNeeds[0] = true, want false")
	}
	if got := string(dec.SpanBytes(tok.Attrs[0].ValueSpan)); got != "a&b" {
		t.Fatalf("unescaped attr value = %q, want a&b", got)
	}
	tok, err = dec.ReadToken()
	if err != nil {
		t.Fatalf("ReadToken text resolve error = %v", err)
	}
	if got := string(dec.SpanBytes(tok.Text)); got != "x&yA" {
		t.Fatalf("unescaped text = %q, want x&yA", got)
	}
}

func TestDecoderStackPath(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`<root><child/><child>t</child></root>`))

	if _, err := dec.ReadToken(); err != nil {
		t.Fatalf("start root error = %v", err)
	}
	if got := dec.StackPath(nil).String(); got != "/root[1]" {
		t.Fatalf("root path = %q, want /root[1]", got)
	}
	if _, err := dec.ReadToken(); err != nil {
		t.Fatalf("child1 start error = %v", err)
	}
	if got := dec.StackPath(nil).String(); got != "/root[1]/child[1]" {
		t.Fatalf("child1 path = %q, want /root[1]/child[1]", got)
	}
	tok, err := dec.ReadToken()
	if err != nil {
		t.Fatalf("child1 end error = %v", err)
	}
	if tok.Kind != KindEndElement {
		t.Fatalf("child1 end kind = %v, want %v", tok.Kind, KindEndElement)
	}
	if _, err := dec.ReadToken(); err != nil {
		t.Fatalf("child2 start error = %v", err)
	}
	if got := dec.StackPointer(); got != "/root[1]/child[2]" {
		t.Fatalf("child2 path = %q, want /root[1]/child[2]", got)
	}
}

func TestDecoderCoalesceCharData(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`<root><![CDATA[a<b]]>&amp;c<!--x-->d</root>`), CoalesceCharData(true), ResolveEntities(true))
	if _, err := dec.ReadToken(); err != nil {
		t.Fatalf("start root error = %v", err)
	}
	tok, err := dec.ReadToken()
	if err != nil {
		t.Fatalf("text error = %v", err)
	}
	if tok.Kind != KindCharData {
		t.Fatalf("text kind = %v, want %v", tok.Kind, KindCharData)
	}
	if got := string(dec.SpanBytes(tok.Text)); got != "a<b&cd" {
		t.Fatalf("text = %q, want a<b&cd", got)
	}
}

func TestDecoderNonASCIINames(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`<bücher·x café="1"/>`))
	tok, err := dec.ReadToken()
	if err != nil {
		t.Fatalf("ReadToken error = %v", err)
	}
	if got := string(dec.SpanBytes(tok.Name.Full)); got != "bücher·x" {
		t.Fatalf("name = %q, want bücher·x", got)
	}
	if got := string(dec.SpanBytes(tok.Attrs[0].Name.Local)); got != "café" {
		t.Fatalf("attr name = %q, want café", got)
	}

	dec = NewDecoder(strings.NewReader(`<·x/>`))
	if _, err := dec.ReadToken(); !errors.Is(err, errInvalidName) {
		t.Fatalf("ReadToken error = %v, want %v", err, errInvalidName)
	}
}

func TestDecoderWellFormedness(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []Options
		want  error
	}{
		{name: "duplicate attrs", input: `<root a="1" a="2"/>`, want: errDuplicateAttr},
		{name: "content outside root", input: `text<root/>`, want: errContentOutsideRoot},
		{name: "multiple roots", input: `<a/><b/>`, want: errMultipleRoots},
		{name: "missing root", input: `<!--c-->`, want: errMissingRoot},
		{name: "misplaced decl", input: `<!--c--><?xml version="1.0"?><root/>`, want: errMisplacedXMLDecl},
		{name: "duplicate decl", input: `<?xml version="1.0"?><?xml version="1.0"?><root/>`, want: errDuplicateXMLDecl},
		{name: "invalid comment", input: `<!--a--b--><root/>`, want: errInvalidComment},
		{name: "invalid char", input: "<a>\x01</a>", want: errInvalidChar},
		{name: "invalid name", input: `<1a/>`, want: errInvalidName},
		{name: "mismatched", input: `<a></b>`, want: errMismatchedEndTag},
		{name: "unterminated", input: `<a><b>`, want: errUnexpectedEOF},
		{name: "depth", input: `<a><b/></a>`, opts: []Options{MaxDepth(1)}, want: errDepthLimit},
		{name: "attrs", input: `<a b="1" c="2"/>`, opts: []Options{MaxAttrs(1)}, want: errAttrLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder(strings.NewReader(tt.input), tt.opts...)
			var err error
			for err == nil {
				_, err = dec.ReadToken()
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var syntax *SyntaxError
			if !errors.As(err, &syntax) {
				t.Fatalf("error type = %T, want *SyntaxError", err)
			}
			if syntax.Line < 1 {
				t.Fatalf("Line = %d, want >= 1", syntax.Line)
			}
		})
	}
}

func TestDecoderCharsetReader(t *testing.T) {
	input := `<?xml version="1.0" encoding="ISO-8859-1"?><root/>`
	dec := NewDecoder(strings.NewReader(input))
	if _, err := dec.ReadToken(); !errors.Is(err, errUnsupportedEncoding) {
		t.Fatalf("ReadToken error = %v, want %v", err, errUnsupportedEncoding)
	}

	var label string
	dec = NewDecoder(strings.NewReader(input), WithCharsetReader(func(l string, r io.Reader) (io.Reader, error) {
		label = l
		return r, nil
	}))
	if _, err := dec.ReadToken(); err != nil {
		t.Fatalf("ReadToken error = %v", err)
	}
	if label != "ISO-8859-1" {
		t.Fatalf("label = %q, want ISO-8859-1", label)
	}
}

func TestDecoderInternStats(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`<root><root/></root>`))
	for {
		_, err := dec.ReadToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadToken error = %v", err)
		}
	}
	stats := dec.InternStats()
	if stats.Count == 0 {
		t.Fatalf("intern count = 0, want > 0")
	}
	if stats.Hits == 0 {
		t.Fatalf("intern hits = 0, want > 0")
	}
}
