package uri

import "testing"

func TestFragmentHandling(t *testing.T) {
	tests := []struct {
		in        string
		base      string
		fragment  string
		hasFrag   bool
		extension string
		scheme    string
	}{
		{in: "mem:///lib.xml#//@books.1", base: "mem:///lib.xml", fragment: "//@books.1", hasFrag: true, extension: "xml", scheme: "mem"},
		{in: "file:///tmp/a.ecore", base: "file:///tmp/a.ecore", extension: "ecore", scheme: "file"},
		{in: "#/0/2", base: "", fragment: "/0/2", hasFrag: true},
		{in: "b.xmi#?w1", base: "b.xmi", fragment: "?w1", hasFrag: true, extension: "xmi"},
		{in: "s3://bucket/dir/doc.xml", base: "s3://bucket/dir/doc.xml", extension: "xml", scheme: "s3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u := New(tt.in)
			if got := u.TrimFragment().String(); got != tt.base {
				t.Fatalf("TrimFragment() = %q, want %q", got, tt.base)
			}
			if got := u.Fragment(); got != tt.fragment {
				t.Fatalf("Fragment() = %q, want %q", got, tt.fragment)
			}
			if got := u.HasFragment(); got != tt.hasFrag {
				t.Fatalf("HasFragment() = %v, want %v", got, tt.hasFrag)
			}
			if got := u.Extension(); got != tt.extension {
				t.Fatalf("Extension() = %q, want %q", got, tt.extension)
			}
			if got := u.Scheme(); got != tt.scheme {
				t.Fatalf("Scheme() = %q, want %q", got, tt.scheme)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	base := New("file:///data/library.xml")
	tests := []struct {
		ref  string
		want string
	}{
		{ref: "#//@writers.3", want: "file:///data/library.xml#//@writers.3"},
		{ref: "", want: "file:///data/library.xml"},
		{ref: "other.xml#//@books.0", want: "file:///data/other.xml#//@books.0"},
		{ref: "../x/y.xml", want: "file:///x/y.xml"},
		{ref: "mem:///z.xml#/", want: "mem:///z.xml#/"},
	}
	for _, tt := range tests {
		if got := base.Resolve(New(tt.ref)).String(); got != tt.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestResolveKeepsAuthorityForm(t *testing.T) {
	tests := []struct {
		base string
		ref  string
		want string
	}{
		{base: "mem:/dir/main.xml", ref: "other.xml", want: "mem:/dir/other.xml"},
		{base: "mem:/dir/main.xml", ref: "../top.xml#/", want: "mem:/top.xml#/"},
		{base: "mem:///dir/main.xml", ref: "other.xml", want: "mem:///dir/other.xml"},
		{base: "s3://bucket/dir/main.xml", ref: "other.xml#//@books.0", want: "s3://bucket/dir/other.xml#//@books.0"},
	}
	for _, tt := range tests {
		got := New(tt.base).Resolve(New(tt.ref))
		if got.String() != tt.want {
			t.Fatalf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
		if !got.TrimFragment().Equal(New(tt.want).TrimFragment()) {
			t.Fatalf("Resolve(%q, %q) does not equal %q", tt.base, tt.ref, tt.want)
		}
	}
}

func TestWithFragment(t *testing.T) {
	u := New("mem:///a.xml#old").WithFragment("/0")
	if u.String() != "mem:///a.xml#/0" {
		t.Fatalf("WithFragment() = %q", u)
	}
	if !u.Equal(New("mem:///a.xml#/0")) {
		t.Fatalf("Equal() = false")
	}
}
