package ecore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacoelho/ecore"
	ecoreerrors "github.com/jacoelho/ecore/errors"
	"github.com/jacoelho/ecore/pkg/model"
	"github.com/jacoelho/ecore/pkg/uri"
	"github.com/jacoelho/ecore/pkg/uriconv"
)

func shelfPackage() (*model.Package, *model.Class, *model.Attribute) {
	p := model.NewPackage("shelf", "http://example.com/shelf", "sh")
	shelf := p.AddClass("Shelf")
	label := shelf.AddAttribute("label", model.EString)
	shelf.AddReference("items", shelf, model.Containment(), model.Many())
	return p, shelf, label
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    ecore.Options
		wantErr bool
	}{
		{name: "default", opts: ecore.NewOptions()},
		{name: "limits", opts: ecore.NewOptions().WithMaxDepth(10).WithMaxAttrs(5)},
		{name: "zero limits use defaults", opts: ecore.NewOptions().WithMaxDepth(0)},
		{name: "negative depth", opts: ecore.NewOptions().WithMaxDepth(-1), wantErr: true},
		{name: "negative attrs", opts: ecore.NewOptions().WithMaxAttrs(-1), wantErr: true},
		{name: "nil package", opts: ecore.NewOptions().WithPackages(nil), wantErr: true},
		{name: "nil handler", opts: ecore.NewOptions().WithURIHandler(nil), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsAreValues(t *testing.T) {
	p, _, _ := shelfPackage()
	base := ecore.NewOptions()
	_ = base.WithPackages(p)
	set, err := ecore.NewResourceSet(base)
	if err != nil {
		t.Fatalf("NewResourceSet() error = %v", err)
	}
	if set.Packages().Package(p.NsURI()) != nil {
		t.Fatalf("base options were modified by WithPackages")
	}
}

func TestLoadFileRoundTrip(t *testing.T) {
	p, shelf, label := shelfPackage()
	path := filepath.Join(t.TempDir(), "shelf.xml")
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<sh:Shelf xmlns:sh="http://example.com/shelf" label="top">
  <items label="inner"/>
</sh:Shelf>
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	reg := prometheus.NewRegistry()
	opts := ecore.NewOptions().WithPackages(p).WithMetrics(reg)
	r, err := ecore.LoadFile(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	root := r.Contents().Object(0)
	if root.Class() != shelf || root.Get(label) != "top" {
		t.Fatalf("root = %v, want Shelf labelled top", root)
	}
	if err := r.Save(context.Background()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != doc {
		t.Fatalf("saved =\n%s\nwant\n%s", got, doc)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("Gather() = no metrics, want load and save counters")
	}
}

func TestLoadReportsDiagnostics(t *testing.T) {
	p, _, _ := shelfPackage()
	mem := uriconv.NewMemory()
	mem.Put(uri.New("mem:/bad.xml"), []byte(`<sh:Shelf xmlns:sh="http://example.com/shelf" colour="red"/>`))
	opts := ecore.NewOptions().WithPackages(p).WithURIHandler(mem)

	r, err := ecore.Load(context.Background(), "mem:/bad.xml", opts)
	diags, ok := ecoreerrors.AsDiagnostics(err)
	if !ok || len(diags) != 1 || !diags[0].HasCode(ecoreerrors.ErrInvalidFeature) {
		t.Fatalf("Load() error = %v, want one invalid feature diagnostic", err)
	}
	if r == nil || r.Contents().Len() != 1 {
		t.Fatalf("Load() resource = %v, want the partially loaded resource", r)
	}
}

func TestLoadMissingDocument(t *testing.T) {
	_, err := ecore.Load(context.Background(), "mem:/none.xml", ecore.NewOptions())
	if !errors.Is(err, uriconv.ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLoadDepthOption(t *testing.T) {
	p, _, _ := shelfPackage()
	mem := uriconv.NewMemory()
	mem.Put(uri.New("mem:/deep.xml"), []byte(`<sh:Shelf xmlns:sh="http://example.com/shelf"><items><items/></items></sh:Shelf>`))
	opts := ecore.NewOptions().WithPackages(p).WithURIHandler(mem).WithMaxDepth(2)
	_, err := ecore.Load(context.Background(), "mem:/deep.xml", opts)
	if err == nil || !strings.Contains(err.Error(), "depth") {
		t.Fatalf("Load() error = %v, want depth limit error", err)
	}
}
