package ecore_test

import (
	"context"
	"fmt"
	"os"

	"github.com/jacoelho/ecore"
	"github.com/jacoelho/ecore/pkg/model"
	"github.com/jacoelho/ecore/pkg/uri"
	"github.com/jacoelho/ecore/pkg/uriconv"
)

func ExampleNewResourceSet() {
	p := model.NewPackage("library", "http://example.com/library", "lib")
	library := p.AddClass("Library")
	name := library.AddAttribute("name", model.EString)
	book := p.AddClass("Book")
	title := book.AddAttribute("title", model.EString)
	books := library.AddReference("books", book, model.Containment(), model.Many())

	set, err := ecore.NewResourceSet(ecore.NewOptions().WithPackages(p))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	r, err := set.CreateResource(uri.New("mem:/library.xml"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	root := model.New(library)
	_ = root.Set(name, "City")
	b := model.New(book)
	_ = b.Set(title, "Dune")
	_ = root.List(books).Add(b)
	_ = r.Contents().Add(root)

	if err := r.SaveTo(context.Background(), os.Stdout); err != nil {
		fmt.Println("error:", err)
	}
	fmt.Println(r.FragmentOf(b))
	// Output:
	// <?xml version="1.0" encoding="UTF-8"?>
	// <lib:Library xmlns:lib="http://example.com/library" name="City">
	//   <books title="Dune"/>
	// </lib:Library>
	// //@books.0
}

func ExampleLoad() {
	p := model.NewPackage("library", "http://example.com/library", "lib")
	library := p.AddClass("Library")
	name := library.AddAttribute("name", model.EString)

	mem := uriconv.NewMemory()
	mem.Put(uri.New("mem:/in.xml"), []byte(`<lib:Library xmlns:lib="http://example.com/library" name="City"/>`))

	r, err := ecore.Load(context.Background(), "mem:/in.xml", ecore.NewOptions().WithPackages(p).WithURIHandler(mem))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(r.Contents().Object(0).Get(name))
	// Output: City
}
