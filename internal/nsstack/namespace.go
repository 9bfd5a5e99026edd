// Package nsstack tracks namespace declarations per element scope.
package nsstack

import "strings"

// Common XML namespaces.
const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"
)

// Decl is a namespace declaration of one scope.
type Decl struct {
	Prefix string
	URI    string
}

type scope struct {
	prefixes   map[string]string
	defaultNS  string
	decls      []Decl
	defaultSet bool
}

// Stack holds one scope per open element.
type Stack struct {
	scopes []scope
}

// Push opens a new, empty scope.
func (s *Stack) Push() {
	s.scopes = append(s.scopes, scope{})
}

// Pop closes the innermost scope and returns its declarations.
func (s *Stack) Pop() []Decl {
	if len(s.scopes) == 0 {
		return nil
	}
	top := s.scopes[len(s.scopes)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
	return top.decls
}

// Declare binds prefix to uri in the innermost scope; an empty prefix sets
// the default namespace. A scope is opened if none exists.
func (s *Stack) Declare(prefix, uri string) {
	if len(s.scopes) == 0 {
		s.Push()
	}
	top := &s.scopes[len(s.scopes)-1]
	top.decls = append(top.decls, Decl{Prefix: prefix, URI: uri})
	if prefix == "" {
		top.defaultNS = uri
		top.defaultSet = true
		return
	}
	if top.prefixes == nil {
		top.prefixes = make(map[string]string, 1)
	}
	top.prefixes[prefix] = uri
}

// Lookup resolves prefix against the open scopes, innermost first.
func (s *Stack) Lookup(prefix string) (string, bool) {
	switch prefix {
	case "xml":
		return XMLNamespace, true
	case "xmlns":
		return XMLNSNamespace, true
	}
	if prefix == "" {
		for i := len(s.scopes) - 1; i >= 0; i-- {
			if s.scopes[i].defaultSet {
				return s.scopes[i].defaultNS, true
			}
		}
		// no default namespace declared; use empty namespace.
		return "", true
	}
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if ns, ok := s.scopes[i].prefixes[prefix]; ok {
			return ns, true
		}
	}
	return "", false
}

// SplitQName splits prefix:local.
func SplitQName(name string) (prefix, local string, hasPrefix bool) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:], true
	}
	return "", name, false
}
