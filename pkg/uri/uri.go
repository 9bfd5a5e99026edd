// Package uri addresses resources and the objects inside them.
package uri

import (
	"net/url"
	"path"
	"strings"
)

// URI is an immutable resource address with an optional fragment that
// addresses an object inside the resource. The text is kept verbatim so
// fragments round-trip exactly.
type URI struct {
	raw string
}

// New returns the URI for s.
func New(s string) URI {
	return URI{raw: s}
}

// String returns the URI text.
func (u URI) String() string { return u.raw }

// IsEmpty reports whether u has no text at all.
func (u URI) IsEmpty() bool { return u.raw == "" }

// HasFragment reports whether u carries a '#'.
func (u URI) HasFragment() bool { return strings.IndexByte(u.raw, '#') >= 0 }

// Fragment returns the text after '#'.
func (u URI) Fragment() string {
	if i := strings.IndexByte(u.raw, '#'); i >= 0 {
		return u.raw[i+1:]
	}
	return ""
}

// TrimFragment returns u without its fragment.
func (u URI) TrimFragment() URI {
	if i := strings.IndexByte(u.raw, '#'); i >= 0 {
		return URI{raw: u.raw[:i]}
	}
	return u
}

// WithFragment returns u with its fragment replaced by fragment.
func (u URI) WithFragment(fragment string) URI {
	return URI{raw: u.TrimFragment().raw + "#" + fragment}
}

// Scheme returns the lower-cased scheme, or "" for relative references.
func (u URI) Scheme() string {
	p, err := url.Parse(u.TrimFragment().raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(p.Scheme)
}

// Host returns the authority host, if any.
func (u URI) Host() string {
	p, err := url.Parse(u.TrimFragment().raw)
	if err != nil {
		return ""
	}
	return p.Host
}

// Path returns the decoded path component.
func (u URI) Path() string {
	p, err := url.Parse(u.TrimFragment().raw)
	if err != nil {
		return u.TrimFragment().raw
	}
	if p.Opaque != "" {
		return p.Opaque
	}
	return p.Path
}

// Extension returns the file extension of the last path segment without the dot.
func (u URI) Extension() string {
	return strings.TrimPrefix(path.Ext(u.Path()), ".")
}

// IsRelative reports whether u has no scheme.
func (u URI) IsRelative() bool {
	return u.Scheme() == ""
}

// Resolve resolves ref against u. A reference made of a fragment only
// addresses u itself. The result keeps the authority form of u, so
// "mem:/dir/a.xml" resolves "b.xml" to "mem:/dir/b.xml".
func (u URI) Resolve(ref URI) URI {
	base := ref.TrimFragment()
	if base.IsEmpty() {
		if !ref.HasFragment() {
			return u.TrimFragment()
		}
		return u.WithFragment(ref.Fragment())
	}
	if !base.IsRelative() || u.IsEmpty() {
		return ref
	}
	bu, err := url.Parse(u.TrimFragment().raw)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(base.raw)
	if err != nil {
		return ref
	}
	joined := bu.ResolveReference(ru)
	joined.OmitHost = bu.OmitHost && joined.Host == ""
	resolved := URI{raw: joined.String()}
	if ref.HasFragment() {
		return resolved.WithFragment(ref.Fragment())
	}
	return resolved
}

// Equal reports whether u and other have the same text.
func (u URI) Equal(other URI) bool {
	return u.raw == other.raw
}
