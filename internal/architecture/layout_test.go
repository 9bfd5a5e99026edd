package architecture_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPublicPackagesHaveDoc(t *testing.T) {
	root := repoRoot(t)
	required := []string{
		".",
		"errors",
		"pkg/metadesc",
		"pkg/model",
		"pkg/notify",
		"pkg/resource",
		"pkg/uri",
		"pkg/uriconv",
		"pkg/xmlres",
		"pkg/xmlstream",
		"pkg/xmltext",
	}

	fset := token.NewFileSet()
	for _, rel := range required {
		dir := filepath.Join(root, rel)
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		documented := false
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
				continue
			}
			file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.PackageClauseOnly|parser.ParseComments)
			if err != nil {
				t.Fatalf("parse %s: %v", name, err)
			}
			if file.Doc != nil {
				documented = true
				break
			}
		}
		if !documented {
			t.Errorf("missing package doc: %s", rel)
		}
	}
}

func TestCommandsAreMainPackages(t *testing.T) {
	root := repoRoot(t)
	entries, err := os.ReadDir(filepath.Join(root, "cmd"))
	if err != nil {
		t.Fatalf("read cmd: %v", err)
	}
	fset := token.NewFileSet()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, "cmd", entry.Name(), "main.go")
		file, err := parser.ParseFile(fset, path, nil, parser.PackageClauseOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		if file.Name.Name != "main" {
			t.Errorf("cmd/%s/main.go package = %s, want main", entry.Name(), file.Name.Name)
		}
	}
}
