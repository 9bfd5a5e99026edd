package model

import (
	"iter"
	"reflect"
	"time"
)

// AllContents iterates over the objects contained in o, transitively, in
// pre-order. o itself is not included.
func AllContents(o *Object) iter.Seq[*Object] {
	return func(yield func(*Object) bool) {
		walkContents(o, yield)
	}
}

func walkContents(o *Object, yield func(*Object) bool) bool {
	for _, child := range o.Contents() {
		if !yield(child) || !walkContents(child, yield) {
			return false
		}
	}
	return true
}

// ObjectID returns the literal of o's identifier attribute, or "".
func ObjectID(o *Object) string {
	a := o.class.IDAttribute()
	if a == nil || !o.IsSet(a) {
		return ""
	}
	s, err := a.DataType().ConvertToString(o.Get(a))
	if err != nil {
		return ""
	}
	return s
}

// Copy returns a deep copy of o's containment tree. References to objects
// inside the tree point to their copies; others are kept as is.
func Copy(o *Object) *Object {
	if o == nil {
		return nil
	}
	copies := map[*Object]*Object{}
	root := copyTree(o, copies)
	for src, dst := range copies {
		copyReferences(src, dst, copies)
	}
	return root
}

func copyTree(src *Object, copies map[*Object]*Object) *Object {
	dst := newObject(src.class)
	dst.proxy = src.proxy
	copies[src] = dst
	src.grow()
	for id, f := range src.class.current().features {
		k := f.Kind()
		if k.Has(KindContainer) {
			continue
		}
		v := src.slots[id]
		switch k.Shape() {
		case ShapeScalar:
			if v.tag == TagScalar {
				dst.slots[id] = v
			}
		case ShapeScalarMany:
			if v.tag == TagList {
				l := dst.list(id)
				l.items = append(l.items, v.list.items...)
				l.isSet = v.list.isSet
			}
		case ShapeContainment:
			switch child := v.Object(); {
			case child != nil:
				c := copyTree(child, copies)
				c.attachTo(dst, id)
				dst.slots[id] = objectValue(c, true)
			case v.tag == TagScalar:
				dst.slots[id] = nilValue()
			}
		case ShapeContainmentMany:
			if v.tag == TagList {
				l := dst.list(id)
				for _, child := range v.list.basicObjects() {
					c := copyTree(child, copies)
					c.attachTo(dst, id)
					l.items = append(l.items, objectValue(c, true))
				}
				l.isSet = v.list.isSet
			}
		}
	}
	return dst
}

func copyReferences(src, dst *Object, copies map[*Object]*Object) {
	mapped := func(o *Object) *Object {
		if c, ok := copies[o]; ok {
			return c
		}
		return o
	}
	for id, f := range src.class.current().features {
		k := f.Kind()
		if k.Has(KindContainment) || k.Has(KindContainer) || !k.Has(KindReference) {
			continue
		}
		v := src.slots[id]
		switch k.Shape() {
		case ShapeReference:
			if t := v.Object(); t != nil {
				dst.slots[id] = objectValue(mapped(t), false)
			} else if v.tag == TagScalar {
				dst.slots[id] = nilValue()
			}
		case ShapeReferenceMany:
			if v.tag == TagList {
				l := dst.list(id)
				for _, t := range v.list.basicObjects() {
					l.items = append(l.items, objectValue(mapped(t), false))
				}
				l.isSet = v.list.isSet
			}
		}
	}
}

// Equals reports whether a and b are structurally equal: same classes,
// equal attribute values, equal contained trees and references to
// corresponding objects.
func Equals(a, b *Object) bool {
	return (&equality{pairs: map[*Object]*Object{}}).equal(a, b)
}

type equality struct {
	pairs map[*Object]*Object
}

func (e *equality) equal(a, b *Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if m, ok := e.pairs[a]; ok {
		return m == b
	}
	if a.class != b.class || a.proxy != b.proxy {
		return false
	}
	e.pairs[a] = b
	for _, f := range a.class.AllFeatures() {
		if f.Kind().Has(KindContainer) {
			continue
		}
		if a.IsSet(f) != b.IsSet(f) {
			return false
		}
		if !e.equalValues(f, a.GetResolve(f, false), b.GetResolve(f, false)) {
			return false
		}
	}
	return true
}

func (e *equality) equalValues(f Feature, va, vb any) bool {
	if la, ok := va.(*List); ok {
		lb := vb.(*List)
		if la.Len() != lb.Len() {
			return false
		}
		for i := range la.Len() {
			if !e.equalValue(la.BasicGet(i), lb.BasicGet(i)) {
				return false
			}
		}
		return true
	}
	return e.equalValue(va, vb)
}

func (e *equality) equalValue(va, vb any) bool {
	oa, aok := va.(*Object)
	ob, bok := vb.(*Object)
	if aok || bok {
		return aok && bok && e.equal(oa, ob)
	}
	ta, aok := va.(time.Time)
	tb, bok := vb.(time.Time)
	if aok && bok {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(va, vb)
}
