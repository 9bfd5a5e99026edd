package xmlbuf

import (
	"bytes"
	"testing"
)

func TestLayout(t *testing.T) {
	b := New()
	b.Add(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.AddLine()
	b.StartElement("lib:Library")
	m := b.Mark()
	b.AddAttribute("name", "City")
	b.StartElement("books")
	b.AddAttribute("title", `A "quoted" <title> & more`)
	b.EndEmptyElement()
	b.StartElement("writers")
	b.AddContent("aliases", "x<y")
	b.AddNil("birth")
	b.EndElement()
	b.StartElement("empty")
	b.EndElement()
	b.EndElement()
	b.ResetToMark(m)
	b.AddAttribute("xmlns:lib", "http://example.com/library")

	want := `<?xml version="1.0" encoding="UTF-8"?>
<lib:Library xmlns:lib="http://example.com/library" name="City">
  <books title="A &quot;quoted&quot; &lt;title> &amp; more"/>
  <writers>
    <aliases>x&lt;y</aliases>
    <birth xsi:nil="true"/>
  </writers>
  <empty/>
</lib:Library>
`
	if got := b.String(); got != want {
		t.Fatalf("String() =\n%s\nwant\n%s", got, want)
	}

	var out bytes.Buffer
	n, err := b.WriteTo(&out)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if int(n) != len(want) || out.String() != want {
		t.Fatalf("WriteTo() wrote %d bytes, want %d", n, len(want))
	}
	if b.Depth() != 0 {
		t.Fatalf("Depth() = %d, want 0", b.Depth())
	}
}

func TestAttributeEscapesWhitespace(t *testing.T) {
	b := New()
	b.StartElement("a")
	b.AddAttribute("v", "1\n2\t3\r")
	b.EndEmptyElement()
	want := "<a v=\"1&#xA;2&#x9;3&#xD;\"/>\n"
	if got := b.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
