package architecture_test

import (
	"go/parser"
	"go/token"
	"strconv"
	"testing"
)

var allowedImportAliases = map[string]string{
	"ecoreerrors": "github.com/jacoelho/ecore/errors",
	"awshttp":     "github.com/aws/aws-sdk-go-v2/aws/transport/http",
	"dto":         "github.com/prometheus/client_model/go",
	"exprlang":    "github.com/expr-lang/expr",
	"exprvm":      "github.com/expr-lang/expr/vm",
}

func TestImportAliasPolicy(t *testing.T) {
	fset := token.NewFileSet()

	forEachRepoGoFile(t, true, func(file repoGoFile) {
		node, err := parser.ParseFile(fset, file.path, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", file.relPath, err)
		}
		for _, imp := range node.Imports {
			if imp.Name == nil || imp.Name.Name == "_" {
				continue
			}
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				t.Fatalf("unquote import in %s: %v", file.relPath, err)
			}
			if allowedImportAliases[imp.Name.Name] == path {
				continue
			}
			pos := fset.Position(imp.Name.Pos())
			t.Errorf(
				"%s:%s:%s disallowed import alias %q for %s",
				file.relPath,
				strconv.Itoa(pos.Line),
				strconv.Itoa(pos.Column),
				imp.Name.Name,
				imp.Path.Value,
			)
		}
	})
}
