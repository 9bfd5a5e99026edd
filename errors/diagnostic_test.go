package errors

import (
	"fmt"
	"testing"
)

func TestDiagnosticErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		want string
		d    Diagnostic
	}{
		{
			name: "message only",
			d:    Diagnostic{Code: "invalid-feature", Message: "Feature x not found"},
			want: "[invalid-feature] Feature x not found",
		},
		{
			name: "with location",
			d:    Diagnostic{Code: "invalid-feature", Message: "Feature x not found", Location: "mem:///a.xml"},
			want: "[invalid-feature] Feature x not found in mem:///a.xml",
		},
		{
			name: "with position",
			d:    Diagnostic{Code: "unresolved-reference", Message: "Unresolved reference 'b1'", Line: 3, Column: 7},
			want: "[unresolved-reference] Unresolved reference 'b1' (line 3, column 7)",
		},
		{
			name: "line without column",
			d:    Diagnostic{Code: "xml-syntax", Message: "bad", Line: 3},
			want: "[xml-syntax] bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDiagnosticf(t *testing.T) {
	d := NewDiagnosticf(ErrUnresolvedReference, "a.xml", 4, 2, "Unresolved reference '%s'", "w3")
	if !d.HasCode(ErrUnresolvedReference) {
		t.Fatalf("Code = %q, want %q", d.Code, ErrUnresolvedReference)
	}
	if d.Message != "Unresolved reference 'w3'" {
		t.Fatalf("Message = %q", d.Message)
	}
	if d.Line != 4 || d.Column != 2 {
		t.Fatalf("position = %d:%d, want 4:2", d.Line, d.Column)
	}
}

func TestDiagnosticListError(t *testing.T) {
	var empty DiagnosticList
	if got := empty.Error(); got != "no diagnostics" {
		t.Fatalf("Error() = %q", got)
	}
	list := DiagnosticList{
		NewDiagnostic(ErrUnknownPackage, "Package http://x not found", ""),
		NewDiagnostic(ErrInvalidFeature, "Feature y not found", ""),
	}
	want := "[unknown-package] Package http://x not found (and 1 more)"
	if got := list.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestAsDiagnostics(t *testing.T) {
	list := DiagnosticList{NewDiagnostic(ErrSyntax, "bad", "")}
	wrapped := fmt.Errorf("load: %w", list)

	got, ok := AsDiagnostics(wrapped)
	if !ok || len(got) != 1 {
		t.Fatalf("AsDiagnostics() = %v, %v", got, ok)
	}
	if _, ok := AsDiagnostics(fmt.Errorf("plain")); ok {
		t.Fatalf("AsDiagnostics(plain) ok = true")
	}
	if _, ok := AsDiagnostics(nil); ok {
		t.Fatalf("AsDiagnostics(nil) ok = true")
	}

	single := &Diagnostic{Code: string(ErrFatalSyntax), Message: "eof"}
	got, ok = AsDiagnostics(fmt.Errorf("wrap: %w", single))
	if !ok || got[0].Message != "eof" {
		t.Fatalf("AsDiagnostics(single) = %v, %v", got, ok)
	}
}
