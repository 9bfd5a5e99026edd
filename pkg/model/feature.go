package model

import "sync"

// Kind is the classification of a feature, computed once per feature.
type Kind uint16

const (
	// KindMany marks many-valued features.
	KindMany Kind = 1 << iota
	// KindUnsettable marks features with an explicit set state.
	KindUnsettable
	// KindAttribute marks data-valued features.
	KindAttribute
	// KindReference marks object-valued features.
	KindReference
	// KindContainment marks references owning their targets.
	KindContainment
	// KindContainer marks references whose opposite is a containment.
	KindContainer
	// KindBidirectional marks references with an opposite.
	KindBidirectional
	// KindResolveProxies marks references resolving proxies on access.
	KindResolveProxies
	// KindTransient marks features that are never serialized.
	KindTransient
)

// Has reports whether every flag of f is present.
func (k Kind) Has(f Kind) bool { return k&f == f }

// Shape is the storage layout implied by a Kind.
type Shape uint8

const (
	ShapeScalar Shape = iota
	ShapeScalarMany
	ShapeContainment
	ShapeContainmentMany
	ShapeContainer
	ShapeReference
	ShapeReferenceMany
)

// Shape returns the storage layout of k.
func (k Kind) Shape() Shape {
	many := k.Has(KindMany)
	switch {
	case k.Has(KindContainment):
		if many {
			return ShapeContainmentMany
		}
		return ShapeContainment
	case k.Has(KindContainer):
		return ShapeContainer
	case k.Has(KindReference):
		if many {
			return ShapeReferenceMany
		}
		return ShapeReference
	case many:
		return ShapeScalarMany
	default:
		return ShapeScalar
	}
}

// Feature is an attribute or a reference of a class.
type Feature interface {
	Name() string
	Class() *Class
	Type() Classifier
	IsMany() bool
	IsUnsettable() bool
	IsTransient() bool
	IsChangeable() bool
	Default() any
	Kind() Kind
	base() *feature
}

type feature struct {
	class        *Class
	typ          Classifier
	defaultValue any
	name         string
	kindOnce     sync.Once
	kind         Kind
	many         bool
	unsettable   bool
	transient    bool
	unchangeable bool
	id           bool
	containment  bool
	noResolve    bool
}

func (f *feature) base() *feature { return f }

// Name returns the feature name.
func (f *feature) Name() string { return f.name }

// Class returns the declaring class.
func (f *feature) Class() *Class { return f.class }

// Type returns the declared value type.
func (f *feature) Type() Classifier { return f.typ }

// IsMany reports whether the feature holds a list.
func (f *feature) IsMany() bool { return f.many }

// IsUnsettable reports whether the feature tracks an explicit set state.
func (f *feature) IsUnsettable() bool { return f.unsettable }

// IsTransient reports whether the feature is excluded from documents.
func (f *feature) IsTransient() bool { return f.transient }

// IsChangeable reports whether the feature can be written.
func (f *feature) IsChangeable() bool { return !f.unchangeable }

// FeatureOption configures a feature at declaration.
type FeatureOption func(*feature)

// Many makes the feature many-valued.
func Many() FeatureOption { return func(f *feature) { f.many = true } }

// Unsettable gives the feature an explicit set state.
func Unsettable() FeatureOption { return func(f *feature) { f.unsettable = true } }

// Transient excludes the feature from documents.
func Transient() FeatureOption { return func(f *feature) { f.transient = true } }

// Unchangeable makes the feature read-only for reflective writes.
func Unchangeable() FeatureOption { return func(f *feature) { f.unchangeable = true } }

// DefaultValue sets the value reported while the feature is unset.
func DefaultValue(v any) FeatureOption { return func(f *feature) { f.defaultValue = v } }

// ID marks an attribute as the object identifier.
func ID() FeatureOption { return func(f *feature) { f.id = true } }

// Containment makes a reference own its targets.
func Containment() FeatureOption { return func(f *feature) { f.containment = true } }

// NoProxyResolution keeps proxies in place on access.
func NoProxyResolution() FeatureOption { return func(f *feature) { f.noResolve = true } }

// Attribute is a data-valued feature.
type Attribute struct {
	feature
}

// DataType returns the attribute value type.
func (a *Attribute) DataType() *DataType {
	d, _ := a.typ.(*DataType)
	return d
}

// IsID reports whether the attribute identifies its object.
func (a *Attribute) IsID() bool { return a.id }

// Default returns the value reported while unset.
func (a *Attribute) Default() any {
	if a.defaultValue != nil || a.many {
		return a.defaultValue
	}
	if d := a.DataType(); d != nil {
		return d.defaultValue
	}
	return nil
}

// HasDefault reports whether the attribute declares its own default value.
func (a *Attribute) HasDefault() bool { return a.defaultValue != nil }

// Kind returns the cached classification.
func (a *Attribute) Kind() Kind {
	a.kindOnce.Do(func() {
		k := KindAttribute
		if a.many {
			k |= KindMany
		}
		if a.unsettable {
			k |= KindUnsettable
		}
		if a.transient {
			k |= KindTransient
		}
		a.kind = k
	})
	return a.kind
}

// Reference is an object-valued feature.
type Reference struct {
	opposite *Reference
	feature
}

// ReferenceType returns the class of the targets.
func (r *Reference) ReferenceType() *Class {
	c, _ := r.typ.(*Class)
	return c
}

// IsContainment reports whether the reference owns its targets.
func (r *Reference) IsContainment() bool { return r.containment }

// IsContainer reports whether the opposite of r is a containment.
func (r *Reference) IsContainer() bool { return r.opposite != nil && r.opposite.containment }

// Opposite returns the paired back reference, or nil.
func (r *Reference) Opposite() *Reference { return r.opposite }

// ResolvesProxies reports whether access replaces proxies by their targets.
func (r *Reference) ResolvesProxies() bool { return !r.noResolve }

// Default returns nil: unset references have no target.
func (r *Reference) Default() any { return nil }

// Kind returns the cached classification.
func (r *Reference) Kind() Kind {
	r.kindOnce.Do(func() {
		k := KindReference
		if r.many {
			k |= KindMany
		}
		if r.unsettable {
			k |= KindUnsettable
		}
		if r.transient {
			k |= KindTransient
		}
		if r.containment {
			k |= KindContainment
		}
		if r.IsContainer() {
			k |= KindContainer
		}
		if r.opposite != nil {
			k |= KindBidirectional
		}
		if !r.noResolve && !r.containment {
			k |= KindResolveProxies
		}
		r.kind = k
	})
	return r.kind
}

// AddAttribute declares an attribute.
func (c *Class) AddAttribute(name string, typ *DataType, opts ...FeatureOption) *Attribute {
	a := &Attribute{}
	a.name, a.class, a.typ = name, c, typ
	for _, opt := range opts {
		opt(&a.feature)
	}
	c.declared = append(c.declared, a)
	touch()
	return a
}

// AddReference declares a reference.
func (c *Class) AddReference(name string, typ *Class, opts ...FeatureOption) *Reference {
	r := &Reference{}
	r.name, r.class, r.typ = name, c, typ
	for _, opt := range opts {
		opt(&r.feature)
	}
	c.declared = append(c.declared, r)
	touch()
	return r
}

// SetOpposite pairs two references. It must be called before either
// reference is used by an object.
func SetOpposite(a, b *Reference) {
	a.opposite = b
	b.opposite = a
	touch()
}
