package xmlstream

import (
	"bytes"
	"errors"

	"github.com/jacoelho/ecore/pkg/xmltext"
)

// Common XML namespaces.
const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"
	XSINamespace   = "http://www.w3.org/2001/XMLSchema-instance"
)

var (
	// ErrUnboundPrefix reports usage of an undeclared namespace prefix.
	ErrUnboundPrefix = errors.New("unbound namespace prefix")
	// ErrEmptyPrefixBinding reports xmlns:p="" which namespaces 1.0 forbids.
	ErrEmptyPrefixBinding = errors.New("empty namespace binding for prefix")
	// ErrDuplicateAttr reports two attributes with the same expanded name.
	ErrDuplicateAttr = errors.New("duplicate attribute after namespace resolution")
)

// NamespaceDecl reports a namespace declaration on the current element.
type NamespaceDecl struct {
	Prefix string
	URI    string
}

var (
	xmlnsBytes = []byte("xmlns")
	xmlBytes   = []byte("xml")
)

type nsScope struct {
	prefixes   map[string]string
	defaultNS  string
	decls      []NamespaceDecl
	defaultSet bool
}

type nsStack struct {
	scopes []nsScope
}

func (s *nsStack) push(scope nsScope) int {
	s.scopes = append(s.scopes, scope)
	return len(s.scopes) - 1
}

func (s *nsStack) pop() {
	if len(s.scopes) == 0 {
		return
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *nsStack) depth() int {
	return len(s.scopes)
}

func (s *nsStack) lookup(prefix string, depth int) (string, bool) {
	if prefix == "xml" {
		return XMLNamespace, true
	}
	if depth >= len(s.scopes) {
		depth = len(s.scopes) - 1
	}
	if prefix == "" {
		for i := depth; i >= 0; i-- {
			if s.scopes[i].defaultSet {
				return s.scopes[i].defaultNS, true
			}
		}
		// no default namespace declared; use empty namespace.
		return "", true
	}
	for i := depth; i >= 0; i-- {
		if ns, ok := s.scopes[i].prefixes[prefix]; ok {
			return ns, true
		}
	}
	return "", false
}

func collectNamespaceScope(dec *xmltext.Decoder, tok *xmltext.Token) (nsScope, error) {
	scope := nsScope{}
	for _, attr := range tok.Attrs {
		name := dec.SpanBytes(attr.Name.Full)
		if isDefaultNamespaceDecl(name) {
			value := string(dec.SpanBytes(attr.ValueSpan))
			scope.defaultNS = value
			scope.defaultSet = true
			scope.decls = append(scope.decls, NamespaceDecl{Prefix: "", URI: value})
			continue
		}
		local, ok := prefixedNamespaceDecl(name)
		if !ok {
			continue
		}
		if bytes.Equal(local, xmlnsBytes) {
			continue
		}
		value := string(dec.SpanBytes(attr.ValueSpan))
		if value == "" {
			return nsScope{}, ErrEmptyPrefixBinding
		}
		if scope.prefixes == nil {
			scope.prefixes = make(map[string]string, 1)
		}
		prefix := string(local)
		scope.prefixes[prefix] = value
		scope.decls = append(scope.decls, NamespaceDecl{Prefix: prefix, URI: value})
	}
	return scope, nil
}

func resolveElementName(dec *xmltext.Decoder, ns *nsStack, name xmltext.QNameSpan, depth int) (string, []byte, error) {
	local := dec.SpanBytes(name.Local)
	if !name.HasPrefix {
		namespace, _ := ns.lookup("", depth)
		return namespace, local, nil
	}
	namespace, ok := ns.lookup(unsafeString(dec.SpanBytes(name.Prefix)), depth)
	if !ok {
		return "", nil, ErrUnboundPrefix
	}
	return namespace, local, nil
}

func resolveAttrName(dec *xmltext.Decoder, ns *nsStack, name xmltext.QNameSpan, depth int) (string, []byte, error) {
	local := dec.SpanBytes(name.Local)
	if !name.HasPrefix {
		return "", local, nil
	}
	prefix := unsafeString(dec.SpanBytes(name.Prefix))
	if prefix == "xmlns" {
		return XMLNSNamespace, local, nil
	}
	namespace, ok := ns.lookup(prefix, depth)
	if !ok {
		return "", nil, ErrUnboundPrefix
	}
	return namespace, local, nil
}

func isDefaultNamespaceDecl(name []byte) bool {
	return bytes.Equal(name, xmlnsBytes)
}

func prefixedNamespaceDecl(name []byte) ([]byte, bool) {
	prefix, local, hasPrefix := bytes.Cut(name, []byte{':'})
	if !hasPrefix || !bytes.Equal(prefix, xmlnsBytes) {
		return nil, false
	}
	if bytes.Equal(local, xmlBytes) {
		return nil, false
	}
	return local, true
}
