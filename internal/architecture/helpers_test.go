package architecture_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const modulePath = "github.com/jacoelho/ecore"

type repoGoFile struct {
	path    string
	relPath string
}

func repoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repository root with go.mod not found from %s", dir)
		}
		dir = parent
	}
}

func modulePkg(rel string) string {
	return modulePath + "/" + strings.Trim(rel, "/")
}

func hasPkgPrefix(pkg, prefix string) bool {
	return pkg == prefix || strings.HasPrefix(pkg, prefix+"/")
}

// skipDir reports directories the go tool ignores.
func skipDir(name string) bool {
	return name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func withinScope(relPath, scope string) bool {
	relPath = filepath.ToSlash(relPath)
	return relPath == scope || strings.HasPrefix(relPath, scope+"/")
}

// forEachRepoGoFile calls fn for every Go file of the module, tests
// included when tests is set.
func forEachRepoGoFile(t *testing.T, tests bool, fn func(repoGoFile)) {
	t.Helper()

	root := repoRoot(t)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		if !tests && strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		fn(repoGoFile{path: path, relPath: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		t.Fatalf("walk repository: %v", err)
	}
}

func forEachParsedRepoProductionGoFile(t *testing.T, mode parser.Mode, fn func(repoGoFile, *ast.File)) {
	t.Helper()

	fset := token.NewFileSet()
	forEachRepoGoFile(t, false, func(file repoGoFile) {
		parsed, err := parser.ParseFile(fset, file.path, nil, mode)
		if err != nil {
			t.Fatalf("parse %s: %v", file.relPath, err)
		}
		fn(file, parsed)
	})
}

// collectPackageImports maps every production package of the module to the
// set of module packages it imports.
func collectPackageImports(t *testing.T) map[string]map[string]struct{} {
	t.Helper()

	graph := make(map[string]map[string]struct{})
	forEachParsedRepoProductionGoFile(t, parser.ImportsOnly, func(file repoGoFile, parsed *ast.File) {
		pkg := modulePath
		if dir := filepath.ToSlash(filepath.Dir(file.relPath)); dir != "." {
			pkg = modulePkg(dir)
		}
		imports := graph[pkg]
		if imports == nil {
			imports = make(map[string]struct{})
			graph[pkg] = imports
		}
		for _, imp := range parsed.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				t.Fatalf("unquote import in %s: %v", file.relPath, err)
			}
			if hasPkgPrefix(path, modulePath) {
				imports[path] = struct{}{}
			}
		}
	})
	return graph
}

func collectRootExports(t *testing.T) map[string]struct{} {
	t.Helper()

	root := repoRoot(t)
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read repo root: %v", err)
	}

	exports := make(map[string]struct{})
	fset := token.NewFileSet()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}

		path := filepath.Join(root, name)
		node, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		if node.Name.Name != "ecore" {
			continue
		}

		for _, decl := range node.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch s := spec.(type) {
					case *ast.TypeSpec:
						if ast.IsExported(s.Name.Name) {
							exports["type "+s.Name.Name] = struct{}{}
						}
					case *ast.ValueSpec:
						for _, n := range s.Names {
							if !ast.IsExported(n.Name) {
								continue
							}
							switch d.Tok {
							case token.CONST:
								exports["const "+n.Name] = struct{}{}
							case token.VAR:
								exports["var "+n.Name] = struct{}{}
							}
						}
					}
				}
			case *ast.FuncDecl:
				if d.Recv == nil {
					if ast.IsExported(d.Name.Name) {
						exports["func "+d.Name.Name] = struct{}{}
					}
					continue
				}
				if !ast.IsExported(d.Name.Name) {
					continue
				}
				recvName := receiverTypeName(d.Recv.List[0].Type)
				if recvName == "" || !ast.IsExported(recvName) {
					continue
				}
				exports["method "+recvName+"."+d.Name.Name] = struct{}{}
			}
		}
	}

	return exports
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
	case *ast.Ident:
		return t.Name
	}
	return ""
}
