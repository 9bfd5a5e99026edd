package metadesc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jacoelho/ecore/pkg/model"
)

const libraryDescriptor = `
packages:
  - name: library
    nsURI: http://example.com/library
    nsPrefix: lib
    enums:
      - name: BookCategory
        literals: [Mystery, Biography]
    classes:
      - name: Named
        abstract: true
        attributes:
          - {name: name, type: EString}
      - name: Library
        supers: [Named]
        references:
          - {name: books, type: Book, containment: true, many: true}
          - {name: writers, type: Writer, containment: true, many: true}
      - name: Writer
        supers: [Named]
        references:
          - {name: books, type: Book, many: true, opposite: author}
      - name: Book
        attributes:
          - {name: title, type: EString, id: true}
          - {name: pages, type: EInt, default: "100"}
          - {name: category, type: BookCategory}
          - {name: tags, type: EString, many: true, unsettable: true}
        references:
          - {name: author, type: Writer, opposite: books}
        operations:
          - name: isLong
            returns: EBoolean
            expr: get("pages") > limit
            params:
              - {name: limit, type: EInt}
`

func TestLoad(t *testing.T) {
	pkgs, err := Load(strings.NewReader(libraryDescriptor))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("packages = %d, want 1", len(pkgs))
	}
	p := pkgs[0]
	if p.NsURI() != "http://example.com/library" || p.NsPrefix() != "lib" {
		t.Fatalf("package = %s %s, want library namespace", p.NsURI(), p.NsPrefix())
	}
	named, book, writer := p.Class("Named"), p.Class("Book"), p.Class("Writer")
	if !named.IsAbstract() {
		t.Fatalf("Named.IsAbstract() = false, want true")
	}
	if !named.IsSuperTypeOf(p.Class("Library")) {
		t.Fatalf("Named is not a super type of Library")
	}
	if book.IDAttribute() == nil || book.IDAttribute().Name() != "title" {
		t.Fatalf("Book.IDAttribute() = %v, want title", book.IDAttribute())
	}
	pages := book.Feature("pages").(*model.Attribute)
	if got := pages.Default(); got != 100 {
		t.Fatalf("pages default = %v, want 100", got)
	}
	tags := book.Feature("tags")
	if !tags.IsMany() || !tags.IsUnsettable() {
		t.Fatalf("tags many=%v unsettable=%v, want both", tags.IsMany(), tags.IsUnsettable())
	}
	author := book.Feature("author").(*model.Reference)
	if author.Opposite() == nil || author.Opposite() != writer.Feature("books") {
		t.Fatalf("author opposite = %v, want Writer.books", author.Opposite())
	}
	if cat := book.Feature("category").(*model.Attribute); !cat.DataType().IsEnum() {
		t.Fatalf("category type is not an enum")
	}

	b := model.New(book)
	_ = b.Set(pages, 250)
	got, err := b.Invoke(book.Operation("isLong"), 200)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got != true {
		t.Fatalf("isLong(200) = %v, want true", got)
	}
}

func TestCrossPackageTypes(t *testing.T) {
	doc := `
packages:
  - name: base
    nsURI: http://example.com/base
    nsPrefix: base
    classes:
      - name: Element
        attributes:
          - {name: id, type: EString, id: true}
  - name: shapes
    nsURI: http://example.com/shapes
    nsPrefix: shapes
    classes:
      - name: Circle
        supers: ["base:Element"]
        attributes:
          - {name: radius, type: EDouble}
`
	pkgs, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	circle := pkgs[1].Class("Circle")
	if !pkgs[0].Class("Element").IsSuperTypeOf(circle) {
		t.Fatalf("Element is not a super type of Circle")
	}
	if circle.IDAttribute() == nil {
		t.Fatalf("Circle.IDAttribute() = nil, want inherited id")
	}

	reg := model.NewRegistry(nil)
	Register(reg, pkgs)
	if reg.Package("http://example.com/shapes") != pkgs[1] {
		t.Fatalf("Register() did not register shapes")
	}
}

func TestInvalidDescriptors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "missing namespace",
			doc:  "packages:\n  - name: x\n",
		},
		{
			name: "unknown type",
			doc: `packages:
  - name: x
    nsURI: urn:x
    classes:
      - name: A
        attributes:
          - {name: a, type: Missing}
`,
		},
		{
			name: "class used as data type",
			doc: `packages:
  - name: x
    nsURI: urn:x
    classes:
      - name: A
        attributes:
          - {name: a, type: A}
`,
		},
		{
			name: "missing opposite",
			doc: `packages:
  - name: x
    nsURI: urn:x
    classes:
      - name: A
        references:
          - {name: b, type: A, opposite: nothing}
`,
		},
		{
			name: "bad default",
			doc: `packages:
  - name: x
    nsURI: urn:x
    classes:
      - name: A
        attributes:
          - {name: n, type: EInt, default: "ten"}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatalf("Load() error = nil, want error")
			}
			if tt.name != "bad default" && !errors.Is(err, ErrInvalidDescriptor) {
				t.Fatalf("Load() error = %v, want ErrInvalidDescriptor", err)
			}
		})
	}
}

func TestUnknownKeysRejected(t *testing.T) {
	_, err := Load(strings.NewReader("packages:\n  - name: x\n    nsURI: urn:x\n    colour: red\n"))
	if err == nil {
		t.Fatalf("Load() error = nil, want unknown field error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	if err := os.WriteFile(path, []byte(libraryDescriptor), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	pkgs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if pkgs[0].Class("Book") == nil {
		t.Fatalf("LoadFile() missing Book")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatalf("LoadFile(missing) error = nil, want error")
	}
}
