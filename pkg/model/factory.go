package model

import "fmt"

// Factory creates instances of the classes of one package and converts
// literals of its data types.
type Factory interface {
	Create(c *Class) (*Object, error)
	CreateFromString(d *DataType, literal string) (any, error)
	ConvertToString(d *DataType, v any) (string, error)
}

// DynamicFactory is the default factory: it creates slot-backed objects.
type DynamicFactory struct {
	pkg *Package
}

// NewDynamicFactory returns the dynamic factory of p.
func NewDynamicFactory(p *Package) *DynamicFactory {
	return &DynamicFactory{pkg: p}
}

// Create instantiates c.
func (f *DynamicFactory) Create(c *Class) (*Object, error) {
	if c == nil {
		return nil, fmt.Errorf("create: nil class")
	}
	if f.pkg != nil && c.pkg != f.pkg {
		return nil, fmt.Errorf("create %s: class belongs to package %s, not %s", c.name, c.pkg.name, f.pkg.name)
	}
	if c.abstract {
		return nil, fmt.Errorf("create %s: %w", c.name, ErrAbstractClass)
	}
	return newObject(c), nil
}

// CreateFromString converts a literal of d.
func (f *DynamicFactory) CreateFromString(d *DataType, literal string) (any, error) {
	return d.ConvertFromString(literal)
}

// ConvertToString formats a value of d.
func (f *DynamicFactory) ConvertToString(d *DataType, v any) (string, error) {
	return d.ConvertToString(v)
}

// New instantiates c through its package factory and panics on failure.
// It is meant for metamodels known to be well formed.
func New(c *Class) *Object {
	o, err := c.pkg.factory.Create(c)
	if err != nil {
		panic(err)
	}
	return o
}
