// Package errors defines the diagnostic codes recorded by resource loading.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a diagnostic category.
type ErrorCode string

const (
	// ErrInvalidFeature indicates a name does not match any feature of the object's class.
	ErrInvalidFeature ErrorCode = "invalid-feature"
	// ErrUnknownPackage indicates a namespace could not be mapped to a registered package.
	ErrUnknownPackage ErrorCode = "unknown-package"
	// ErrUnknownClass indicates a type name is not a classifier of its package.
	ErrUnknownClass ErrorCode = "unknown-class"
	// ErrAbstractClass indicates an instance of an abstract class was requested.
	ErrAbstractClass ErrorCode = "abstract-class"
	// ErrUnresolvedReference indicates a reference target was not found by end of document.
	ErrUnresolvedReference ErrorCode = "unresolved-reference"
	// ErrMalformedFragment indicates a URI fragment could not be parsed.
	ErrMalformedFragment ErrorCode = "malformed-fragment"
	// ErrValueConversion indicates a literal could not be converted to its data type.
	ErrValueConversion ErrorCode = "value-conversion"
	// ErrFeatureValue indicates a converted value could not be stored in its feature.
	ErrFeatureValue ErrorCode = "feature-value"
	// ErrUnsavedContent indicates part of a resource could not be written.
	ErrUnsavedContent ErrorCode = "unsaved-content"
	// ErrSyntax indicates a recoverable parser problem.
	ErrSyntax ErrorCode = "xml-syntax"
	// ErrFatalSyntax indicates a parser problem that stopped the load.
	ErrFatalSyntax ErrorCode = "xml-fatal-syntax"
)

// Diagnostic is one entry of a resource's error or warning list.
//
//nolint:errname // domain term.
type Diagnostic struct {
	Code     string
	Message  string
	Location string
	Line     int
	Column   int
}

// DiagnosticList is an error that wraps one or more diagnostics.
type DiagnosticList []Diagnostic //nolint:errname // domain term.

// Error returns a compact summary of the diagnostics.
func (l DiagnosticList) Error() string {
	switch len(l) {
	case 0:
		return "no diagnostics"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", l[0].Error(), len(l)-1)
	}
}

// Error formats the diagnostic with its code, location and position.
func (d *Diagnostic) Error() string {
	if d == nil {
		return "diagnostic <nil>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", d.Code, d.Message)
	if d.Location != "" {
		fmt.Fprintf(&b, " in %s", d.Location)
	}
	if d.Line > 0 && d.Column > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", d.Line, d.Column)
	}
	return b.String()
}

// NewDiagnostic builds a Diagnostic for a location without position information.
func NewDiagnostic(code ErrorCode, msg, location string) Diagnostic {
	return Diagnostic{Code: string(code), Message: msg, Location: location}
}

// NewDiagnosticf formats a message and builds a Diagnostic positioned at line and column.
func NewDiagnosticf(code ErrorCode, location string, line, column int, format string, args ...any) Diagnostic {
	d := NewDiagnostic(code, fmt.Sprintf(format, args...), location)
	d.Line = line
	d.Column = column
	return d
}

// HasCode reports whether the diagnostic carries code.
func (d Diagnostic) HasCode(code ErrorCode) bool {
	return d.Code == string(code)
}

// AsDiagnostics extracts the diagnostics carried by err.
func AsDiagnostics(err error) ([]Diagnostic, bool) {
	if err == nil {
		return nil, false
	}
	var list DiagnosticList
	if errors.As(err, &list) {
		return []Diagnostic(list), true
	}
	var listPtr *DiagnosticList
	if errors.As(err, &listPtr) && listPtr != nil {
		return []Diagnostic(*listPtr), true
	}
	var one *Diagnostic
	if errors.As(err, &one) && one != nil {
		return []Diagnostic{*one}, true
	}
	return nil, false
}
