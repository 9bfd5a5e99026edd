package model

import (
	"testing"

	"github.com/jacoelho/ecore/pkg/notify"
)

func TestContentAdapterFollowsContainment(t *testing.T) {
	l := newLibrary()
	lib := New(l.library)
	var got []*notify.Notification
	a := NewContentAdapter(func(n *notify.Notification) { got = append(got, n) })
	a.Attach(lib)

	b := New(l.book)
	lib.List(l.books).Add(b)
	if !a.Observed(b) {
		t.Fatalf("adapter not attached to added book")
	}
	b.Set(l.title, "Solaris")
	if len(got) != 2 || got[1].NewValue != "Solaris" {
		t.Fatalf("notifications = %d, want add and nested set", len(got))
	}

	lib.List(l.books).Remove(b)
	if a.Observed(b) {
		t.Fatalf("adapter still attached after removal")
	}
	b.Set(l.title, "Other")
	if len(got) != 3 {
		t.Fatalf("notifications = %d, want 3", len(got))
	}
}

func TestContentAdapterOnResource(t *testing.T) {
	l := newLibrary()
	r := newTestResource("mem:///a.xml")
	a := NewContentAdapter(nil)
	a.AttachResource(r)
	lib := New(l.library)
	r.Contents().Add(lib)
	if !a.Observed(lib) {
		t.Fatalf("adapter not attached to new root")
	}
}
