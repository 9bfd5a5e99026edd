package saxdrive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type recorder struct {
	events  []string
	locator Locator
}

func (r *recorder) SetLocator(l Locator) { r.locator = l }
func (r *recorder) StartDocument()       { r.events = append(r.events, "start-doc") }
func (r *recorder) EndDocument()         { r.events = append(r.events, "end-doc") }
func (r *recorder) StartPrefixMapping(prefix, uri string) {
	r.events = append(r.events, fmt.Sprintf("map %s=%s", prefix, uri))
}
func (r *recorder) EndPrefixMapping(prefix string) {
	r.events = append(r.events, "unmap "+prefix)
}
func (r *recorder) StartElement(uri, local, qname string, attrs []Attr) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "start {%s}%s %s", uri, local, qname)
	for _, a := range attrs {
		fmt.Fprintf(&sb, " {%s}%s=%q", a.URI, a.Local, a.Value)
	}
	r.events = append(r.events, sb.String())
}
func (r *recorder) Characters(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	r.events = append(r.events, "text "+text)
}
func (r *recorder) EndElement(uri, local, qname string) {
	r.events = append(r.events, fmt.Sprintf("end {%s}%s", uri, local))
}

func TestDriveEvents(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<lib:Library xmlns:lib="urn:lib" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" name="City &amp; Co">
  <books xsi:type="lib:Book">Dune</books>
</lib:Library>`
	var rec recorder
	if err := Drive(context.Background(), strings.NewReader(doc), &rec, Limits{}); err != nil {
		t.Fatalf("Drive() error = %v", err)
	}
	want := []string{
		"start-doc",
		"map lib=urn:lib",
		"map xsi=http://www.w3.org/2001/XMLSchema-instance",
		`start {urn:lib}Library lib:Library {}name="City & Co"`,
		`start {}books books {http://www.w3.org/2001/XMLSchema-instance}type="lib:Book"`,
		"text Dune",
		"end {}books",
		"end {urn:lib}Library",
		"unmap lib",
		"unmap xsi",
		"end-doc",
	}
	if strings.Join(rec.events, "\n") != strings.Join(want, "\n") {
		t.Fatalf("events =\n%s\nwant\n%s", strings.Join(rec.events, "\n"), strings.Join(want, "\n"))
	}
	if rec.locator == nil {
		t.Fatalf("locator not set")
	}
}

func TestDriveErrors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		limits Limits
		want   string
	}{
		{name: "mismatched", doc: `<a><b></a>`, want: "mismatched end element"},
		{name: "unbound", doc: `<p:a/>`, want: "unbound namespace prefix"},
		{name: "trailing element", doc: `<a/><b/>`, want: "multiple root elements"},
		{name: "text outside", doc: `<a/>junk`, want: "content outside root element"},
		{name: "empty", doc: ``, want: "missing root element"},
		{name: "unterminated", doc: `<a><b>`, want: "unexpected EOF"},
		{name: "depth", doc: `<a><b><c/></b></a>`, limits: Limits{MaxDepth: 2}, want: "element depth exceeds MaxDepth"},
		{name: "attrs", doc: `<a x="1" y="2"/>`, limits: Limits{MaxAttrs: 1}, want: "attribute count exceeds MaxAttrs"},
		{name: "duplicate", doc: `<a xmlns:p="urn:x" xmlns:q="urn:x" p:v="1" q:v="2"/>`, want: "duplicate attribute"},
		{name: "duplicate raw", doc: `<a v="1" v="2"/>`, want: "duplicate attribute"},
		{name: "token size", doc: `<a>0123456789abcdef</a>`, limits: Limits{MaxTokenSize: 8}, want: "token exceeds MaxTokenSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec recorder
			err := Drive(context.Background(), strings.NewReader(tt.doc), &rec, tt.limits)
			var syntax *SyntaxError
			if !errors.As(err, &syntax) {
				t.Fatalf("Drive() error = %v, want *SyntaxError", err)
			}
			if !strings.Contains(syntax.Msg, tt.want) {
				t.Fatalf("Msg = %q, want substring %q", syntax.Msg, tt.want)
			}
			if syntax.Line < 1 {
				t.Fatalf("Line = %d, want >= 1", syntax.Line)
			}
		})
	}
}

func TestDriveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var rec recorder
	err := Drive(ctx, strings.NewReader(`<a/>`), &rec, Limits{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Drive() error = %v, want context.Canceled", err)
	}
}

func TestDriveCharset(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><a name=\"caf\xe9\">na\xefve</a>"
	var rec recorder
	if err := Drive(context.Background(), strings.NewReader(doc), &rec, Limits{}); err != nil {
		t.Fatalf("Drive() error = %v", err)
	}
	want := []string{"start-doc", `start {}a a {}name="café"`, "text naïve", "end {}a", "end-doc"}
	if strings.Join(rec.events, "\n") != strings.Join(want, "\n") {
		t.Fatalf("events = %q, want %q", rec.events, want)
	}
}

func TestDriveLocator(t *testing.T) {
	var rec lineRecorder
	doc := "<a>\n  <b/>\n</a>"
	if err := Drive(context.Background(), strings.NewReader(doc), &rec, Limits{}); err != nil {
		t.Fatalf("Drive() error = %v", err)
	}
	if rec.lines["b"] != 2 {
		t.Fatalf("line of b = %d, want 2", rec.lines["b"])
	}
}

type lineRecorder struct {
	recorder
	lines map[string]int
}

func (r *lineRecorder) StartElement(uri, local, qname string, attrs []Attr) {
	if r.lines == nil {
		r.lines = make(map[string]int)
	}
	line, _ := r.locator.Position()
	r.lines[local] = line
}
