// Package metadesc builds metamodel packages from YAML descriptors.
//
// A descriptor lists packages with their enumerations, data types and
// classes:
//
//	packages:
//	  - name: library
//	    nsURI: http://example.com/library
//	    nsPrefix: lib
//	    enums:
//	      - name: BookCategory
//	        literals: [Mystery, Biography]
//	    classes:
//	      - name: Book
//	        attributes:
//	          - {name: title, type: EString, id: true}
//	        references:
//	          - {name: author, type: Writer, opposite: books}
//
// Type names resolve against the declaring package first, then other
// packages of the descriptor as "prefix:Name", then the Ecore data types.
package metadesc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jacoelho/ecore/pkg/model"
)

// ErrInvalidDescriptor reports a descriptor that does not describe a
// consistent metamodel.
var ErrInvalidDescriptor = errors.New("invalid metamodel descriptor")

// Document is the root of a descriptor.
type Document struct {
	Packages []Package `yaml:"packages"`
}

// Package describes one package.
type Package struct {
	Name      string     `yaml:"name"`
	NsURI     string     `yaml:"nsURI"`
	NsPrefix  string     `yaml:"nsPrefix"`
	Enums     []Enum     `yaml:"enums"`
	DataTypes []DataType `yaml:"dataTypes"`
	Classes   []Class    `yaml:"classes"`
}

// Enum describes an enumeration.
type Enum struct {
	Name     string   `yaml:"name"`
	Literals []string `yaml:"literals"`
}

// DataType describes a string valued data type.
type DataType struct {
	Name         string `yaml:"name"`
	Serializable *bool  `yaml:"serializable"`
}

// Class describes a class.
type Class struct {
	Name       string      `yaml:"name"`
	Abstract   bool        `yaml:"abstract"`
	Interface  bool        `yaml:"interface"`
	Supers     []string    `yaml:"supers"`
	Attributes []Attribute `yaml:"attributes"`
	References []Reference `yaml:"references"`
	Operations []Operation `yaml:"operations"`
}

// Flags are the structural feature flags.
type Flags struct {
	Many         bool `yaml:"many"`
	Unsettable   bool `yaml:"unsettable"`
	Transient    bool `yaml:"transient"`
	Unchangeable bool `yaml:"unchangeable"`
}

func (f Flags) options() []model.FeatureOption {
	var opts []model.FeatureOption
	if f.Many {
		opts = append(opts, model.Many())
	}
	if f.Unsettable {
		opts = append(opts, model.Unsettable())
	}
	if f.Transient {
		opts = append(opts, model.Transient())
	}
	if f.Unchangeable {
		opts = append(opts, model.Unchangeable())
	}
	return opts
}

// Attribute describes an attribute. Default is a literal of its type.
type Attribute struct {
	Name    string  `yaml:"name"`
	Type    string  `yaml:"type"`
	ID      bool    `yaml:"id"`
	Default *string `yaml:"default"`
	Flags   `yaml:",inline"`
}

// Reference describes a reference. Opposite names a reference of the
// target class.
type Reference struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Containment bool   `yaml:"containment"`
	Opposite    string `yaml:"opposite"`
	NoResolve   bool   `yaml:"noResolve"`
	Flags       `yaml:",inline"`
}

// Parameter describes an operation parameter.
type Parameter struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Operation describes an operation with an expression body.
type Operation struct {
	Name    string      `yaml:"name"`
	Params  []Parameter `yaml:"params"`
	Returns string      `yaml:"returns"`
	Expr    string      `yaml:"expr"`
}

// Decode reads a descriptor. Unknown keys are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	return &doc, nil
}

// Load decodes and builds the packages of r.
func Load(r io.Reader) ([]*model.Package, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

// LoadFile builds the packages described in the file at path.
func LoadFile(path string) ([]*model.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open descriptor: %w", err)
	}
	defer f.Close()
	pkgs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pkgs, nil
}

// Register adds pkgs to reg.
func Register(reg *model.Registry, pkgs []*model.Package) {
	for _, p := range pkgs {
		reg.Register(p)
	}
}

// builder resolves names while a document is turned into packages.
type builder struct {
	byPrefix map[string]*model.Package
	classes  map[*model.Class]Class
}

// Build creates the packages of d. Classifiers are declared first so
// features and super types may refer to classes declared later.
func (d *Document) Build() ([]*model.Package, error) {
	b := &builder{byPrefix: map[string]*model.Package{}, classes: map[*model.Class]Class{}}
	pkgs := make([]*model.Package, 0, len(d.Packages))
	var order []*model.Class
	for _, pd := range d.Packages {
		if pd.Name == "" || pd.NsURI == "" {
			return nil, fmt.Errorf("package %q: name and nsURI are required: %w", pd.Name, ErrInvalidDescriptor)
		}
		p := model.NewPackage(pd.Name, pd.NsURI, pd.NsPrefix)
		if pd.NsPrefix != "" {
			if _, dup := b.byPrefix[pd.NsPrefix]; dup {
				return nil, fmt.Errorf("prefix %q declared twice: %w", pd.NsPrefix, ErrInvalidDescriptor)
			}
			b.byPrefix[pd.NsPrefix] = p
		}
		for _, e := range pd.Enums {
			p.AddEnum(e.Name, e.Literals...)
		}
		for _, dt := range pd.DataTypes {
			var opts []model.DataTypeOption
			if dt.Serializable != nil && !*dt.Serializable {
				opts = append(opts, model.Unserializable())
			}
			p.AddDataType(dt.Name, opts...)
		}
		for _, cd := range pd.Classes {
			if p.Classifier(cd.Name) != nil {
				return nil, fmt.Errorf("%s.%s declared twice: %w", pd.Name, cd.Name, ErrInvalidDescriptor)
			}
			var opts []model.ClassOption
			switch {
			case cd.Interface:
				opts = append(opts, model.Interface())
			case cd.Abstract:
				opts = append(opts, model.Abstract())
			}
			c := p.AddClass(cd.Name, opts...)
			b.classes[c] = cd
			order = append(order, c)
		}
		pkgs = append(pkgs, p)
	}

	for _, c := range order {
		for _, name := range b.classes[c].Supers {
			s, err := b.class(c.Package(), name)
			if err != nil {
				return nil, fmt.Errorf("%s supers: %w", c.Name(), err)
			}
			c.AddSuperType(s)
		}
	}
	for _, c := range order {
		if err := b.features(c); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", c.Package().Name(), c.Name(), err)
		}
	}
	for _, c := range order {
		if err := b.opposites(c); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", c.Package().Name(), c.Name(), err)
		}
	}
	return pkgs, nil
}

func (b *builder) classifier(p *model.Package, name string) (model.Classifier, error) {
	if prefix, local, ok := strings.Cut(name, ":"); ok {
		other, found := b.byPrefix[prefix]
		if !found {
			return nil, fmt.Errorf("unknown package prefix %q: %w", prefix, ErrInvalidDescriptor)
		}
		if c := other.Classifier(local); c != nil {
			return c, nil
		}
		return nil, fmt.Errorf("unknown type %q: %w", name, ErrInvalidDescriptor)
	}
	if c := p.Classifier(name); c != nil {
		return c, nil
	}
	if c := model.Ecore.Classifier(name); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("unknown type %q: %w", name, ErrInvalidDescriptor)
}

func (b *builder) class(p *model.Package, name string) (*model.Class, error) {
	c, err := b.classifier(p, name)
	if err != nil {
		return nil, err
	}
	class, ok := c.(*model.Class)
	if !ok {
		return nil, fmt.Errorf("type %q is not a class: %w", name, ErrInvalidDescriptor)
	}
	return class, nil
}

func (b *builder) dataType(p *model.Package, name string) (*model.DataType, error) {
	c, err := b.classifier(p, name)
	if err != nil {
		return nil, err
	}
	d, ok := c.(*model.DataType)
	if !ok {
		return nil, fmt.Errorf("type %q is not a data type: %w", name, ErrInvalidDescriptor)
	}
	return d, nil
}

func (b *builder) features(c *model.Class) error {
	cd := b.classes[c]
	p := c.Package()
	for _, ad := range cd.Attributes {
		d, err := b.dataType(p, ad.Type)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", ad.Name, err)
		}
		opts := ad.options()
		if ad.ID {
			opts = append(opts, model.ID())
		}
		if ad.Default != nil {
			v, err := d.ConvertFromString(*ad.Default)
			if err != nil {
				return fmt.Errorf("attribute %s default: %w", ad.Name, err)
			}
			opts = append(opts, model.DefaultValue(v))
		}
		c.AddAttribute(ad.Name, d, opts...)
	}
	for _, rd := range cd.References {
		t, err := b.class(p, rd.Type)
		if err != nil {
			return fmt.Errorf("reference %s: %w", rd.Name, err)
		}
		opts := rd.options()
		if rd.Containment {
			opts = append(opts, model.Containment())
		}
		if rd.NoResolve {
			opts = append(opts, model.NoProxyResolution())
		}
		c.AddReference(rd.Name, t, opts...)
	}
	for _, od := range cd.Operations {
		opts := []model.OperationOption{model.Expr(od.Expr)}
		for _, pd := range od.Params {
			t, err := b.classifier(p, pd.Type)
			if err != nil {
				return fmt.Errorf("operation %s: %w", od.Name, err)
			}
			opts = append(opts, model.Params(model.Parameter{Name: pd.Name, Type: t}))
		}
		if od.Returns != "" {
			t, err := b.classifier(p, od.Returns)
			if err != nil {
				return fmt.Errorf("operation %s: %w", od.Name, err)
			}
			opts = append(opts, model.Returns(t))
		}
		c.AddOperation(od.Name, opts...)
	}
	return nil
}

func (b *builder) opposites(c *model.Class) error {
	for _, rd := range b.classes[c].References {
		if rd.Opposite == "" {
			continue
		}
		r, _ := c.Feature(rd.Name).(*model.Reference)
		op, _ := r.ReferenceType().Feature(rd.Opposite).(*model.Reference)
		if op == nil {
			return fmt.Errorf("reference %s: opposite %q not found: %w", rd.Name, rd.Opposite, ErrInvalidDescriptor)
		}
		if back := op.Opposite(); back != nil && back != r {
			return fmt.Errorf("reference %s: opposite %q already paired: %w", rd.Name, rd.Opposite, ErrInvalidDescriptor)
		}
		model.SetOpposite(r, op)
	}
	return nil
}
