package model

import (
	"github.com/jacoelho/ecore/pkg/notify"
	"github.com/jacoelho/ecore/pkg/uri"
)

type library struct {
	pkg       *Package
	library   *Class
	writer    *Class
	book      *Class
	person    *Class
	category  *DataType
	libName   *Attribute
	books     *Reference
	writers   *Reference
	featured  *Reference
	wName     *Attribute
	wBooks    *Reference
	title     *Attribute
	pages     *Attribute
	cat       *Attribute
	tags      *Attribute
	author    *Reference
	owner     *Reference
	subtitle  *Attribute
	pName     *Attribute
	frozen    *Attribute
	isLong    *Operation
	scaled    *Operation
	describe  *Operation
	brokenOp  *Operation
	bookOwner *Reference
}

func newLibrary() *library {
	l := &library{}
	l.pkg = NewPackage("library", "http://example.com/library", "lib")
	l.category = l.pkg.AddEnum("BookCategory", "Mystery", "ScienceFiction", "Biography")

	l.person = l.pkg.AddClass("Person", Abstract())
	l.pName = l.person.AddAttribute("name", EString)

	l.library = l.pkg.AddClass("Library")
	l.writer = l.pkg.AddClass("Writer", Supers(l.person))
	l.book = l.pkg.AddClass("Book")

	l.libName = l.library.AddAttribute("name", EString)
	l.writers = l.library.AddReference("writers", l.writer, Containment(), Many())
	l.books = l.library.AddReference("books", l.book, Containment(), Many())
	l.featured = l.library.AddReference("featured", l.book, Containment(), Unsettable())

	l.wName = l.pName
	l.wBooks = l.writer.AddReference("books", l.book, Many())

	l.title = l.book.AddAttribute("title", EString, ID())
	l.pages = l.book.AddAttribute("pages", EInt, DefaultValue(100))
	l.cat = l.book.AddAttribute("category", l.category)
	l.tags = l.book.AddAttribute("tags", EString, Many())
	l.subtitle = l.book.AddAttribute("subtitle", EString, Unsettable())
	l.frozen = l.book.AddAttribute("isbn", EString, Unchangeable())
	l.author = l.book.AddReference("author", l.writer)
	l.owner = l.book.AddReference("library", l.library, Transient())
	SetOpposite(l.author, l.wBooks)
	SetOpposite(l.owner, l.books)
	l.bookOwner = l.owner

	l.isLong = l.book.AddOperation("isLong", Expr(`get("pages") > 300`))
	l.scaled = l.book.AddOperation("scaled", Params(Parameter{Name: "factor", Type: EInt}), Expr(`get("pages") * factor`))
	l.describe = l.book.AddOperation("describe", Body(func(self *Object, _ []any) (any, error) {
		return self.Get(l.title).(string) + "!", nil
	}))
	l.brokenOp = l.book.AddOperation("broken", Expr(`get("pages") +`))
	return l
}

type testResource struct {
	u        uri.URI
	base     *notify.Base
	contents *List
	targets  map[string]*Object
	resolved int
}

func newTestResource(u string) *testResource {
	r := &testResource{u: uri.New(u), targets: map[string]*Object{}}
	r.base = notify.NewBase(r)
	r.contents = NewContentsList(r, r.base)
	return r
}

func (r *testResource) URI() uri.URI           { return r.u }
func (r *testResource) Contents() *List        { return r.contents }
func (r *testResource) Notifier() *notify.Base { return r.base }

func (r *testResource) ResolveProxy(p *Object) *Object {
	r.resolved++
	return r.targets[p.ProxyURI().String()]
}

type recorder struct {
	got []*notify.Notification
}

func (r *recorder) Notify(n *notify.Notification) { r.got = append(r.got, n) }

func (r *recorder) kinds() []notify.Kind {
	out := make([]notify.Kind, len(r.got))
	for i, n := range r.got {
		out[i] = n.Kind
	}
	return out
}
