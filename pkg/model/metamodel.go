// Package model holds the runtime metamodel (packages, classes, features)
// and the dynamic objects whose shape it describes.
package model

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// generation is bumped by every structural metamodel change so derived
// class views are rebuilt before their next use.
var generation atomic.Uint64

func touch() { generation.Add(1) }

// Classifier is a Class or a DataType.
type Classifier interface {
	Name() string
	Package() *Package
	classifier()
}

// Package groups classifiers under a namespace URI.
type Package struct {
	factory     Factory
	byName      map[string]Classifier
	name        string
	nsURI       string
	nsPrefix    string
	classifiers []Classifier
}

// NewPackage returns an empty package using a DynamicFactory.
func NewPackage(name, nsURI, nsPrefix string) *Package {
	p := &Package{name: name, nsURI: nsURI, nsPrefix: nsPrefix, byName: map[string]Classifier{}}
	p.factory = &DynamicFactory{pkg: p}
	return p
}

// Name returns the package name.
func (p *Package) Name() string { return p.name }

// NsURI returns the namespace URI identifying the package in documents.
func (p *Package) NsURI() string { return p.nsURI }

// NsPrefix returns the preferred namespace prefix.
func (p *Package) NsPrefix() string { return p.nsPrefix }

// Factory returns the factory creating instances of the package classes.
func (p *Package) Factory() Factory { return p.factory }

// SetFactory replaces the package factory.
func (p *Package) SetFactory(f Factory) { p.factory = f }

// Classifiers returns the classifiers in declaration order.
func (p *Package) Classifiers() []Classifier { return slices.Clone(p.classifiers) }

// Classifier returns the classifier called name, or nil.
func (p *Package) Classifier(name string) Classifier { return p.byName[name] }

// Class returns the class called name, or nil.
func (p *Package) Class(name string) *Class {
	c, _ := p.byName[name].(*Class)
	return c
}

// DataType returns the data type called name, or nil.
func (p *Package) DataType(name string) *DataType {
	d, _ := p.byName[name].(*DataType)
	return d
}

func (p *Package) add(c Classifier) {
	p.classifiers = append(p.classifiers, c)
	p.byName[c.Name()] = c
}

// AddClass declares a new class.
func (p *Package) AddClass(name string, opts ...ClassOption) *Class {
	c := &Class{name: name, pkg: p}
	for _, opt := range opts {
		opt(c)
	}
	p.add(c)
	touch()
	return c
}

// ClassOption configures a class at declaration.
type ClassOption func(*Class)

// Abstract marks a class as not instantiable.
func Abstract() ClassOption { return func(c *Class) { c.abstract = true } }

// Interface marks a class as an interface; interfaces are not instantiable.
func Interface() ClassOption {
	return func(c *Class) {
		c.abstract = true
		c.iface = true
	}
}

// Supers adds super types.
func Supers(supers ...*Class) ClassOption {
	return func(c *Class) { c.supers = append(c.supers, supers...) }
}

// Class describes the shape of dynamic objects.
type Class struct {
	pkg      *Package
	view     atomic.Pointer[classView]
	name     string
	supers   []*Class
	declared []Feature
	ops      []*Operation
	mu       sync.Mutex
	abstract bool
	iface    bool
}

type classView struct {
	ids      map[Feature]int
	byName   map[string]Feature
	opByName map[string]*Operation
	idAttr   *Attribute
	features []Feature
	supers   []*Class
	ops      []*Operation
	gen      uint64
}

func (*Class) classifier() {}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Package returns the owning package.
func (c *Class) Package() *Package { return c.pkg }

// IsAbstract reports whether the class cannot be instantiated.
func (c *Class) IsAbstract() bool { return c.abstract }

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool { return c.iface }

// AddSuperType appends a direct super type.
func (c *Class) AddSuperType(s *Class) {
	c.supers = append(c.supers, s)
	touch()
}

// SuperTypes returns the direct super types.
func (c *Class) SuperTypes() []*Class { return slices.Clone(c.supers) }

// DeclaredFeatures returns the features declared by c itself.
func (c *Class) DeclaredFeatures() []Feature { return slices.Clone(c.declared) }

func (c *Class) current() *classView {
	gen := generation.Load()
	if v := c.view.Load(); v != nil && v.gen == gen {
		return v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v := c.view.Load(); v != nil && v.gen == gen {
		return v
	}
	v := c.build(gen)
	c.view.Store(v)
	return v
}

func (c *Class) build(gen uint64) *classView {
	v := &classView{
		gen:      gen,
		ids:      map[Feature]int{},
		byName:   map[string]Feature{},
		opByName: map[string]*Operation{},
	}
	seen := map[*Class]bool{}
	var walk func(*Class)
	walk = func(s *Class) {
		for _, sup := range s.supers {
			if seen[sup] || sup == c {
				continue
			}
			seen[sup] = true
			walk(sup)
			v.supers = append(v.supers, sup)
		}
	}
	walk(c)

	addFeature := func(f Feature) {
		if _, ok := v.ids[f]; ok {
			return
		}
		v.ids[f] = len(v.features)
		v.features = append(v.features, f)
		v.byName[f.Name()] = f
		if a, ok := f.(*Attribute); ok && a.id && v.idAttr == nil {
			v.idAttr = a
		}
	}
	addOp := func(op *Operation) {
		v.ops = append(v.ops, op)
		v.opByName[op.name] = op
	}
	for _, sup := range v.supers {
		for _, f := range sup.declared {
			addFeature(f)
		}
		for _, op := range sup.ops {
			addOp(op)
		}
	}
	for _, f := range c.declared {
		addFeature(f)
	}
	for _, op := range c.ops {
		addOp(op)
	}
	return v
}

// AllFeatures returns inherited and declared features in feature-ID order.
func (c *Class) AllFeatures() []Feature { return slices.Clone(c.current().features) }

// FeatureCount returns the number of features including inherited ones.
func (c *Class) FeatureCount() int { return len(c.current().features) }

// FeatureAt returns the feature with the given ID, or nil.
func (c *Class) FeatureAt(id int) Feature {
	v := c.current()
	if id < 0 || id >= len(v.features) {
		return nil
	}
	return v.features[id]
}

// FeatureID returns the position of f in the class, or -1 if f is not a member.
func (c *Class) FeatureID(f Feature) int {
	if id, ok := c.current().ids[f]; ok {
		return id
	}
	return -1
}

// Feature returns the feature called name, or nil.
func (c *Class) Feature(name string) Feature { return c.current().byName[name] }

// IDAttribute returns the first attribute flagged as identifier, or nil.
func (c *Class) IDAttribute() *Attribute { return c.current().idAttr }

// AllSuperTypes returns every transitive super type, most general first.
func (c *Class) AllSuperTypes() []*Class { return slices.Clone(c.current().supers) }

// AllOperations returns inherited and declared operations.
func (c *Class) AllOperations() []*Operation { return slices.Clone(c.current().ops) }

// Operation returns the operation called name, or nil.
func (c *Class) Operation(name string) *Operation { return c.current().opByName[name] }

// IsSuperTypeOf reports whether instances of other conform to c.
func (c *Class) IsSuperTypeOf(other *Class) bool {
	if c == nil || other == nil {
		return false
	}
	if c == other || c == EObject {
		return true
	}
	return slices.Contains(other.current().supers, c)
}

// DataType describes the values of attributes.
type DataType struct {
	pkg          *Package
	defaultValue any
	goType       reflect.Type
	parse        func(string) (any, error)
	format       func(any) (string, error)
	name         string
	literals     []string
	unserialized bool
}

func (*DataType) classifier() {}

// Name returns the data type name.
func (d *DataType) Name() string { return d.name }

// Package returns the owning package.
func (d *DataType) Package() *Package { return d.pkg }

// IsSerializable reports whether values can be written to documents.
func (d *DataType) IsSerializable() bool { return !d.unserialized }

// Default returns the value of unset attributes of this type.
func (d *DataType) Default() any { return d.defaultValue }

// IsEnum reports whether the data type is an enumeration.
func (d *DataType) IsEnum() bool { return d.literals != nil }

// Literals returns the enumeration literals.
func (d *DataType) Literals() []string { return slices.Clone(d.literals) }

// DataTypeOption configures a data type at declaration.
type DataTypeOption func(*DataType)

// WithConverter sets the literal conversion functions.
func WithConverter(parse func(string) (any, error), format func(any) (string, error)) DataTypeOption {
	return func(d *DataType) {
		d.parse = parse
		d.format = format
	}
}

// WithGoType restricts values to t.
func WithGoType(t reflect.Type) DataTypeOption { return func(d *DataType) { d.goType = t } }

// WithDefault sets the default value.
func WithDefault(v any) DataTypeOption { return func(d *DataType) { d.defaultValue = v } }

// Unserializable excludes values of the type from documents.
func Unserializable() DataTypeOption { return func(d *DataType) { d.unserialized = true } }

// AddDataType declares a data type. Without a converter values are strings.
func (p *Package) AddDataType(name string, opts ...DataTypeOption) *DataType {
	d := &DataType{name: name, pkg: p}
	for _, opt := range opts {
		opt(d)
	}
	if d.parse == nil {
		d.parse, d.format = parseString, formatAny
		if d.goType == nil {
			d.goType = reflect.TypeFor[string]()
		}
	}
	p.add(d)
	touch()
	return d
}

// AddEnum declares an enumeration whose values are its literal names.
func (p *Package) AddEnum(name string, literals ...string) *DataType {
	d := &DataType{name: name, pkg: p, literals: slices.Clone(literals), goType: reflect.TypeFor[string]()}
	if len(literals) > 0 {
		d.defaultValue = literals[0]
	}
	d.parse = func(s string) (any, error) {
		if !slices.Contains(d.literals, s) {
			return nil, errUnknownLiteral(d, s)
		}
		return s, nil
	}
	d.format = formatAny
	p.add(d)
	touch()
	return d
}
