package model

import (
	"errors"
	"slices"
	"testing"

	"github.com/jacoelho/ecore/pkg/notify"
	"github.com/jacoelho/ecore/pkg/uri"
)

func TestScalarSetGetUnset(t *testing.T) {
	l := newLibrary()
	b := New(l.book)
	rec := &recorder{}
	b.AddListener(rec)

	if got := b.Get(l.pages); got != 100 {
		t.Fatalf("default pages = %v, want 100", got)
	}
	if b.IsSet(l.pages) {
		t.Fatalf("IsSet(pages) = true before set")
	}
	if err := b.Set(l.pages, 320); err != nil {
		t.Fatalf("Set(pages) error = %v", err)
	}
	if got := b.Get(l.pages); got != 320 {
		t.Fatalf("pages = %v, want 320", got)
	}
	if !b.IsSet(l.pages) {
		t.Fatalf("IsSet(pages) = false after set")
	}
	if err := b.Set(l.pages, 100); err != nil {
		t.Fatalf("Set(pages) error = %v", err)
	}
	if b.IsSet(l.pages) {
		t.Fatalf("IsSet(pages) = true with default value")
	}
	if err := b.Unset(l.pages); err != nil {
		t.Fatalf("Unset(pages) error = %v", err)
	}
	want := []notify.Kind{notify.Set, notify.Set, notify.Unset}
	if !slices.Equal(rec.kinds(), want) {
		t.Fatalf("notifications = %v, want %v", rec.kinds(), want)
	}
	if rec.got[0].OldValue != 100 || rec.got[0].NewValue != 320 {
		t.Fatalf("first notification = %v->%v, want 100->320", rec.got[0].OldValue, rec.got[0].NewValue)
	}
}

func TestSetErrors(t *testing.T) {
	l := newLibrary()
	b := New(l.book)

	tests := []struct {
		name    string
		feature Feature
		value   any
		want    error
	}{
		{name: "foreign feature", feature: l.libName, value: "x", want: ErrInvalidFeature},
		{name: "nil feature", feature: nil, value: "x", want: ErrInvalidFeature},
		{name: "unchangeable", feature: l.frozen, value: "x", want: ErrNotChangeable},
		{name: "wrong scalar type", feature: l.pages, value: "many", want: ErrInvalidValue},
		{name: "unknown literal", feature: l.cat, value: "Poetry", want: ErrInvalidValue},
		{name: "wrong class", feature: l.author, value: New(l.book), want: ErrInvalidValue},
		{name: "not an object", feature: l.author, value: 3, want: ErrInvalidValue},
		{name: "not a slice", feature: l.tags, value: 3, want: ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Set(tt.feature, tt.value)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Set() error = %v, want %v", err, tt.want)
			}
		})
	}
	if err := b.Unset(l.libName); !errors.Is(err, ErrInvalidFeature) {
		t.Fatalf("Unset(foreign) error = %v", err)
	}
	if got := b.Get(l.libName); got != nil {
		t.Fatalf("Get(foreign) = %v, want nil", got)
	}
	if b.IsSet(l.libName) {
		t.Fatalf("IsSet(foreign) = true")
	}
}

func TestInheritedFeatures(t *testing.T) {
	l := newLibrary()
	w := New(l.writer)
	if err := w.Set(l.pName, "Ursula"); err != nil {
		t.Fatalf("Set(name) error = %v", err)
	}
	if got := l.writer.FeatureID(l.pName); got != 0 {
		t.Fatalf("FeatureID(name) = %d, want 0", got)
	}
	if !l.person.IsSuperTypeOf(l.writer) || l.writer.IsSuperTypeOf(l.person) {
		t.Fatalf("IsSuperTypeOf wrong for Person/Writer")
	}
	if !EObject.IsSuperTypeOf(l.book) {
		t.Fatalf("EObject is not a super type of Book")
	}
	if _, err := l.pkg.Factory().Create(l.person); !errors.Is(err, ErrAbstractClass) {
		t.Fatalf("Create(abstract) error = %v", err)
	}
}

func TestUnsettableNil(t *testing.T) {
	l := newLibrary()
	b := New(l.book)
	if b.IsSet(l.subtitle) {
		t.Fatalf("IsSet(subtitle) = true initially")
	}
	if err := b.Set(l.subtitle, nil); err != nil {
		t.Fatalf("Set(nil) error = %v", err)
	}
	if !b.IsSet(l.subtitle) {
		t.Fatalf("IsSet(subtitle) = false after explicit nil")
	}
	if got := b.Slot(l.subtitle).Tag(); got != TagScalar {
		t.Fatalf("slot tag = %v, want scalar", got)
	}
	if err := b.Unset(l.subtitle); err != nil {
		t.Fatalf("Unset() error = %v", err)
	}
	if b.IsSet(l.subtitle) {
		t.Fatalf("IsSet(subtitle) = true after unset")
	}
}

func TestContainmentIsExclusive(t *testing.T) {
	l := newLibrary()
	lib1, lib2 := New(l.library), New(l.library)
	b := New(l.book)

	if err := lib1.List(l.books).Add(b); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if b.Container() != lib1 || b.ContainingFeature() != l.books {
		t.Fatalf("container = %v, want lib1.books", b.Container())
	}

	var seenContainer *Object
	lib1.AddListener(notify.ListenerFunc(func(n *notify.Notification) {
		if n.Kind == notify.Remove {
			seenContainer = b.Container()
		}
	}))
	if err := lib2.List(l.books).Add(b); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if lib1.List(l.books).Len() != 0 {
		t.Fatalf("lib1 still holds the book")
	}
	if b.Container() != lib2 {
		t.Fatalf("container = %v, want lib2", b.Container())
	}
	if seenContainer != lib2 {
		t.Fatalf("listener observed container %v, want lib2 after compound move", seenContainer)
	}

	if err := lib1.Set(l.featured, b); err != nil {
		t.Fatalf("Set(featured) error = %v", err)
	}
	if lib2.List(l.books).Len() != 0 || b.Container() != lib1 || b.ContainingFeature() != l.featured {
		t.Fatalf("single containment did not move the book")
	}
	if err := b.Set(l.bookOwner, lib2); err != nil {
		t.Fatalf("Set(library) error = %v", err)
	}
	if lib1.Get(l.featured) != nil || !lib2.List(l.books).Contains(b) {
		t.Fatalf("container reference did not move the book")
	}
	if got := b.Get(l.bookOwner); got != lib2 {
		t.Fatalf("Get(library) = %v, want lib2", got)
	}
}

func TestContainmentCycleRejected(t *testing.T) {
	l := newLibrary()
	lib := New(l.library)
	b := New(l.book)
	lib.List(l.books).Add(b)
	if err := lib.Set(l.featured, lib); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Set(self) error = %v, want invalid value", err)
	}
}

func TestOppositesStayConsistent(t *testing.T) {
	l := newLibrary()
	w1, w2 := New(l.writer), New(l.writer)
	b := New(l.book)

	if err := b.Set(l.author, w1); err != nil {
		t.Fatalf("Set(author) error = %v", err)
	}
	if !w1.List(l.wBooks).Contains(b) {
		t.Fatalf("w1.books missing book")
	}
	if err := b.Set(l.author, w2); err != nil {
		t.Fatalf("Set(author) error = %v", err)
	}
	if w1.List(l.wBooks).Contains(b) || !w2.List(l.wBooks).Contains(b) {
		t.Fatalf("opposite not moved to w2")
	}
	if !w2.List(l.wBooks).Remove(b) {
		t.Fatalf("Remove() = false")
	}
	if b.Get(l.author) != nil {
		t.Fatalf("author = %v, want nil after removing from writer", b.Get(l.author))
	}
	if err := w1.List(l.wBooks).Add(b); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if b.Get(l.author) != w1 {
		t.Fatalf("author = %v, want w1", b.Get(l.author))
	}
	if err := b.Unset(l.author); err != nil {
		t.Fatalf("Unset() error = %v", err)
	}
	if w1.List(l.wBooks).Len() != 0 {
		t.Fatalf("w1.books = %d after unset, want 0", w1.List(l.wBooks).Len())
	}
}

func TestRootMovedIntoContainerLeavesResource(t *testing.T) {
	l := newLibrary()
	r := newTestResource("mem:///a.xml")
	lib := New(l.library)
	b := New(l.book)
	r.Contents().Add(lib)
	r.Contents().Add(b)
	if b.Resource() != r || b.DirectResource() != r {
		t.Fatalf("Resource() = %v, want r", b.Resource())
	}

	rec := &recorder{}
	r.Notifier().AddListener(rec)
	if err := lib.List(l.books).Add(b); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if r.Contents().Len() != 1 || b.DirectResource() != nil {
		t.Fatalf("book still a root of the resource")
	}
	if b.Resource() != r {
		t.Fatalf("Resource() through container = %v", b.Resource())
	}
	if len(rec.got) != 1 || rec.got[0].Kind != notify.Remove {
		t.Fatalf("resource notifications = %v, want one remove", rec.kinds())
	}
}

func TestContainedObjectAddedToResourceLeavesContainer(t *testing.T) {
	l := newLibrary()
	r := newTestResource("mem:///a.xml")
	lib := New(l.library)
	b := New(l.book)
	r.Contents().Add(lib)
	if err := lib.List(l.books).Add(b); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rec := &recorder{}
	lib.AddListener(rec)
	if err := r.Contents().Add(b); err != nil {
		t.Fatalf("Contents().Add() error = %v", err)
	}
	if lib.List(l.books).Contains(b) {
		t.Fatalf("library still contains the book")
	}
	if b.Container() != nil || b.ContainingFeature() != nil {
		t.Fatalf("container = %v, want nil", b.Container())
	}
	if b.DirectResource() != r || r.Contents().Len() != 2 {
		t.Fatalf("book is not a root of the resource")
	}
	if len(rec.got) != 1 || rec.got[0].Kind != notify.Remove {
		t.Fatalf("library notifications = %v, want one remove", rec.kinds())
	}
}

func TestExplicitEmptyListIsSet(t *testing.T) {
	l := newLibrary()
	b := New(l.book)
	if b.IsSet(l.tags) {
		t.Fatalf("IsSet(tags) = true before set")
	}
	if err := b.Set(l.tags, []string{}); err != nil {
		t.Fatalf("Set(tags) error = %v", err)
	}
	if !b.IsSet(l.tags) {
		t.Fatalf("IsSet(tags) = false after setting an empty list")
	}

	w := New(l.writer)
	bk := New(l.book)
	if err := w.List(l.wBooks).Add(bk); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !w.IsSet(l.wBooks) {
		t.Fatalf("IsSet(books) = false with one entry")
	}
	if !w.List(l.wBooks).Remove(bk) {
		t.Fatalf("Remove() = false")
	}
	if w.IsSet(l.wBooks) {
		t.Fatalf("IsSet(books) = true after removing the last entry")
	}
}

func TestProxyResolutionIsIdempotent(t *testing.T) {
	l := newLibrary()
	r := newTestResource("mem:///a.xml")
	lib := New(l.library)
	r.Contents().Add(lib)
	b := New(l.book)
	lib.List(l.books).Add(b)

	target := New(l.writer)
	proxy := New(l.writer)
	proxy.SetProxyURI(uri.New("mem:///b.xml#//@writers.0"))
	r.targets["mem:///b.xml#//@writers.0"] = target

	if err := b.Set(l.author, proxy); err != nil {
		t.Fatalf("Set(proxy) error = %v", err)
	}
	if got := b.Slot(l.author).Tag(); got != TagProxy {
		t.Fatalf("slot tag = %v, want proxy", got)
	}
	if got := b.GetResolve(l.author, false); got != proxy {
		t.Fatalf("GetResolve(false) = %v, want proxy", got)
	}

	rec := &recorder{}
	b.AddListener(rec)
	if got := b.Get(l.author); got != target {
		t.Fatalf("Get() = %v, want target", got)
	}
	if got := b.Get(l.author); got != target {
		t.Fatalf("second Get() = %v, want target", got)
	}
	if len(rec.got) != 1 || rec.got[0].Kind != notify.Resolve {
		t.Fatalf("notifications = %v, want one resolve", rec.kinds())
	}
	if r.resolved != 1 {
		t.Fatalf("ResolveProxy calls = %d, want 1", r.resolved)
	}
	if !target.List(l.wBooks).Contains(b) || proxy.List(l.wBooks).Contains(b) {
		t.Fatalf("opposite not moved from proxy to target")
	}
}

func TestUnresolvableProxyStays(t *testing.T) {
	l := newLibrary()
	r := newTestResource("mem:///a.xml")
	b := New(l.book)
	r.Contents().Add(b)
	proxy := New(l.writer)
	proxy.SetProxyURI(uri.New("mem:///missing.xml#/"))
	b.Set(l.author, proxy)
	if got := b.Get(l.author); got != proxy {
		t.Fatalf("Get() = %v, want proxy", got)
	}
}

func TestDynamicExtensionGrowsSlots(t *testing.T) {
	l := newLibrary()
	b := New(l.book)
	b.Set(l.pages, 7)
	isbn := l.book.AddAttribute("edition", EInt)
	if err := b.Set(isbn, 2); err != nil {
		t.Fatalf("Set(edition) error = %v", err)
	}
	if got := b.Get(isbn); got != 2 {
		t.Fatalf("edition = %v, want 2", got)
	}
	if got := b.Get(l.pages); got != 7 {
		t.Fatalf("pages = %v, want 7 after extension", got)
	}
}

func TestManyAttributes(t *testing.T) {
	l := newLibrary()
	b := New(l.book)
	if err := b.Set(l.tags, []string{"a", "b", "a"}); err != nil {
		t.Fatalf("Set(tags) error = %v", err)
	}
	tags := b.List(l.tags)
	if got := tags.Values(); !slices.Equal(got, []any{"a", "b", "a"}) {
		t.Fatalf("tags = %v", got)
	}
	if err := tags.Move(0, 2); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if got := tags.Values(); !slices.Equal(got, []any{"b", "a", "a"}) {
		t.Fatalf("tags after move = %v", got)
	}
	if _, err := tags.Set(0, "c"); err != nil {
		t.Fatalf("Set(0) error = %v", err)
	}
	if err := tags.Insert(5, "z"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Insert(5) error = %v", err)
	}
	if err := tags.Add(3); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Add(3) error = %v", err)
	}
	if tags.IndexOf("a") != 1 {
		t.Fatalf("IndexOf(a) = %d, want 1", tags.IndexOf("a"))
	}
	if err := b.Unset(l.tags); err != nil {
		t.Fatalf("Unset() error = %v", err)
	}
	if b.IsSet(l.tags) {
		t.Fatalf("IsSet(tags) = true after unset")
	}
}

func TestReplaceProxyInList(t *testing.T) {
	l := newLibrary()
	w := New(l.writer)
	b1, b2 := New(l.book), New(l.book)
	proxy := New(l.book)
	proxy.SetProxyURI(uri.New("#//@books.1"))

	list := w.List(l.wBooks)
	list.Add(b1)
	list.Add(proxy)
	if proxy.Get(l.author) != w {
		t.Fatalf("proxy.author not set through opposite")
	}
	if !w.ReplaceProxy(l.wBooks, proxy, b2) {
		t.Fatalf("ReplaceProxy() = false")
	}
	if got := list.BasicObjects(); !slices.Equal(got, []*Object{b1, b2}) {
		t.Fatalf("books = %v, want [b1 b2]", got)
	}
	if b2.Get(l.author) != w || proxy.Get(l.author) != nil {
		t.Fatalf("opposites not fixed up")
	}

	// target already present through the other side
	p2 := New(l.book)
	p2.SetProxyURI(uri.New("#//@books.0"))
	b3 := New(l.book)
	list.Insert(0, p2)
	b3.Set(l.author, w)
	if !w.ReplaceProxy(l.wBooks, p2, b3) {
		t.Fatalf("ReplaceProxy() = false")
	}
	if got := list.BasicObjects(); !slices.Equal(got, []*Object{b3, b1, b2}) {
		t.Fatalf("books = %v, want [b3 b1 b2]", got)
	}
	if w.ReplaceProxy(l.wBooks, p2, b3) {
		t.Fatalf("second ReplaceProxy() = true")
	}
}

func TestContents(t *testing.T) {
	l := newLibrary()
	lib := New(l.library)
	w := New(l.writer)
	b := New(l.book)
	f := New(l.book)
	lib.List(l.writers).Add(w)
	lib.List(l.books).Add(b)
	lib.Set(l.featured, f)

	if got := lib.Contents(); !slices.Equal(got, []*Object{w, b, f}) {
		t.Fatalf("Contents() = %v", got)
	}
	var all []*Object
	for o := range AllContents(lib) {
		all = append(all, o)
	}
	if len(all) != 3 {
		t.Fatalf("AllContents() = %d objects, want 3", len(all))
	}
	if !IsAncestor(lib, b) || IsAncestor(b, lib) {
		t.Fatalf("IsAncestor wrong")
	}
}
