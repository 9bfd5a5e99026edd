package model

import "testing"

func TestCopyAndEquals(t *testing.T) {
	l := newLibrary()
	lib := New(l.library)
	lib.Set(l.libName, "City")
	w := New(l.writer)
	w.Set(l.pName, "Lem")
	lib.List(l.writers).Add(w)
	b := New(l.book)
	b.Set(l.title, "Solaris")
	b.Set(l.cat, "ScienceFiction")
	b.Set(l.tags, []any{"classic"})
	lib.List(l.books).Add(b)
	b.Set(l.author, w)

	c := Copy(lib)
	if !Equals(lib, c) {
		t.Fatalf("Equals(lib, Copy(lib)) = false")
	}
	cb := c.List(l.books).Object(0)
	if cb == b {
		t.Fatalf("copy shares the book")
	}
	cw := c.List(l.writers).Object(0)
	if cb.Get(l.author) != cw {
		t.Fatalf("copied reference points outside the copy")
	}

	cb.Set(l.title, "Eden")
	if Equals(lib, c) {
		t.Fatalf("Equals() = true after diverging")
	}
	if ObjectID(b) != "Solaris" {
		t.Fatalf("ObjectID() = %q, want Solaris", ObjectID(b))
	}
	if ObjectID(lib) != "" {
		t.Fatalf("ObjectID(lib) = %q, want empty", ObjectID(lib))
	}
}
