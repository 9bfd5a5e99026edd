package model

import "weak"

// Tag identifies the variant held by a Value.
type Tag uint8

const (
	// TagEmpty is an unset slot.
	TagEmpty Tag = iota
	// TagScalar is a data value. An explicit nil is a scalar holding nil.
	TagScalar
	// TagOwned is a contained object.
	TagOwned
	// TagWeak is a non-owning reference.
	TagWeak
	// TagProxy is an unresolved reference placeholder.
	TagProxy
	// TagList is a many-valued slot.
	TagList
)

// Value is the content of an object slot or list entry.
type Value struct {
	scalar any
	obj    *Object
	list   *List
	ref    weak.Pointer[Object]
	tag    Tag
}

func scalarValue(v any) Value { return Value{tag: TagScalar, scalar: v} }

func nilValue() Value { return Value{tag: TagScalar} }

func listValue(l *List) Value { return Value{tag: TagList, list: l} }

// objectValue wraps o as owned or weak; proxies are always held strongly.
func objectValue(o *Object, owned bool) Value {
	switch {
	case o == nil:
		return Value{}
	case o.IsProxy():
		return Value{tag: TagProxy, obj: o}
	case owned:
		return Value{tag: TagOwned, obj: o}
	default:
		return Value{tag: TagWeak, ref: weak.Make(o)}
	}
}

// Tag returns the variant.
func (v Value) Tag() Tag { return v.tag }

// IsEmpty reports whether the value is unset.
func (v Value) IsEmpty() bool { return v.tag == TagEmpty }

// Object returns the referenced object, or nil. A weak reference whose
// target has been collected yields nil.
func (v Value) Object() *Object {
	switch v.tag {
	case TagOwned, TagProxy:
		return v.obj
	case TagWeak:
		return v.ref.Value()
	default:
		return nil
	}
}

// Interface returns the value as seen by reflective callers.
func (v Value) Interface() any {
	switch v.tag {
	case TagScalar:
		return v.scalar
	case TagOwned, TagWeak, TagProxy:
		return objectAny(v.Object())
	case TagList:
		return v.list
	default:
		return nil
	}
}

func objectAny(o *Object) any {
	if o == nil {
		return nil
	}
	return o
}
