package model

import (
	"fmt"
	"iter"

	"github.com/jacoelho/ecore/pkg/notify"
)

// List is the ordered content of a many-valued feature or of a resource's
// root contents. Object lists are unique; every change keeps containment
// and opposite references consistent and is reported through the owner's
// notifier.
type List struct {
	owner     *Object
	res       Resource
	base      *notify.Base
	feature   Feature
	items     []Value
	featureID int
	kind      Kind
	isSet     bool
}

// NewContentsList returns the root contents list of res. Objects added to
// it report res as their resource.
func NewContentsList(res Resource, base *notify.Base) *List {
	return &List{
		res:       res,
		base:      base,
		featureID: ContentsFeatureID,
		kind:      KindReference | KindContainment | KindMany,
	}
}

// Feature returns the feature the list belongs to; nil for resource contents.
func (l *List) Feature() Feature { return l.feature }

// Owner returns the object owning the list; nil for resource contents.
func (l *List) Owner() *Object { return l.owner }

// Len returns the number of entries.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// IsSet reports whether the list has entries or was explicitly assigned,
// possibly empty.
func (l *List) IsSet() bool { return l != nil && (l.isSet || len(l.items) > 0) }

func (l *List) objects() bool { return l.kind.Has(KindReference) }

func (l *List) notify(chain *notify.Chain, kind notify.Kind, oldValue, newValue any, pos int) *notify.Chain {
	if !l.base.Required() {
		return chain
	}
	return notify.Append(chain, notify.New(l.base, kind, l.featureID, oldValue, newValue, pos))
}

// Get returns entry i, resolving a proxy when the feature resolves proxies.
func (l *List) Get(i int) any {
	if i < 0 || i >= len(l.items) {
		return nil
	}
	v := l.items[i]
	if v.tag == TagProxy && l.kind.Has(KindResolveProxies) && l.owner != nil {
		if target := l.owner.resolveProxy(v.obj); target != nil {
			if chain, ok := l.replaceProxy(v.obj, target, nil); ok {
				chain.Dispatch()
			}
			return target
		}
	}
	return v.Interface()
}

// BasicGet returns entry i without resolving proxies.
func (l *List) BasicGet(i int) any {
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i].Interface()
}

// Object returns entry i as an object, resolving proxies.
func (l *List) Object(i int) *Object {
	o, _ := l.Get(i).(*Object)
	return o
}

// Values returns the entries, resolving proxies.
func (l *List) Values() []any {
	out := make([]any, 0, l.Len())
	for i := range l.Len() {
		out = append(out, l.Get(i))
	}
	return out
}

// Objects returns the object entries, resolving proxies.
func (l *List) Objects() []*Object {
	out := make([]*Object, 0, l.Len())
	for i := range l.Len() {
		if o := l.Object(i); o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (l *List) basicObjects() []*Object {
	out := make([]*Object, 0, len(l.items))
	for _, v := range l.items {
		if o := v.Object(); o != nil {
			out = append(out, o)
		}
	}
	return out
}

// BasicObjects returns the object entries without resolving proxies.
func (l *List) BasicObjects() []*Object {
	if l == nil {
		return nil
	}
	return l.basicObjects()
}

// All iterates over the entries, resolving proxies.
func (l *List) All() iter.Seq2[int, any] {
	return func(yield func(int, any) bool) {
		for i := 0; i < l.Len(); i++ {
			if !yield(i, l.Get(i)) {
				return
			}
		}
	}
}

// IndexOf returns the position of v, or -1.
func (l *List) IndexOf(v any) int {
	if l.objects() {
		o, _ := v.(*Object)
		if o == nil {
			return -1
		}
		return l.indexOfObject(o)
	}
	for i, item := range l.items {
		if sameScalar(item.scalar, v) {
			return i
		}
	}
	return -1
}

func (l *List) indexOfObject(o *Object) int {
	for i, item := range l.items {
		if item.Object() == o {
			return i
		}
	}
	return -1
}

// Contains reports whether v is an entry.
func (l *List) Contains(v any) bool { return l.IndexOf(v) >= 0 }

func (l *List) wrap(v any) (Value, error) {
	if !l.objects() {
		if a, ok := l.feature.(*Attribute); ok {
			if d := a.DataType(); d != nil && !d.Accepts(v) {
				return Value{}, fmt.Errorf("%s: %T: %w", l.name(), v, ErrInvalidValue)
			}
		}
		return scalarValue(v), nil
	}
	o, ok := v.(*Object)
	if !ok || o == nil {
		return Value{}, fmt.Errorf("%s: %T: %w", l.name(), v, ErrInvalidValue)
	}
	if r, ok := l.feature.(*Reference); ok {
		if t := r.ReferenceType(); t != nil && !t.IsSuperTypeOf(o.class) {
			return Value{}, fmt.Errorf("%s: %s: %w", l.name(), o.class.name, ErrInvalidValue)
		}
	}
	if l.kind.Has(KindContainment) && l.owner != nil && IsAncestor(o, l.owner) {
		return Value{}, fmt.Errorf("%s: containment cycle: %w", l.name(), ErrInvalidValue)
	}
	return objectValue(o, l.kind.Has(KindContainment)), nil
}

func (l *List) name() string {
	if l.feature == nil {
		return "contents"
	}
	return l.feature.Class().name + "." + l.feature.Name()
}

// Add appends v. Adding an object already present is a no-op.
func (l *List) Add(v any) error {
	return l.Insert(l.Len(), v)
}

// Insert places v at position i.
func (l *List) Insert(i int, v any) error {
	if i < 0 || i > l.Len() {
		return fmt.Errorf("%s: insert at %d: %w", l.name(), i, ErrIndexOutOfRange)
	}
	chain, _, err := l.insert(i, v, nil)
	chain.Dispatch()
	return err
}

func (l *List) insert(i int, v any, chain *notify.Chain) (*notify.Chain, bool, error) {
	val, err := l.wrap(v)
	if err != nil {
		return chain, false, err
	}
	if l.objects() {
		o := val.Object()
		if l.indexOfObject(o) >= 0 {
			return chain, false, nil
		}
		chain = l.basicInsert(i, val, chain)
		chain = l.inverseAdd(o, chain)
		return chain, true, nil
	}
	return l.basicInsert(i, val, chain), true, nil
}

func (l *List) basicInsert(i int, val Value, chain *notify.Chain) *notify.Chain {
	if i > len(l.items) {
		i = len(l.items)
	}
	l.items = append(l.items, Value{})
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = val
	l.isSet = true
	return l.notify(chain, notify.Add, nil, val.Interface(), i)
}

func (l *List) basicRemoveAt(i int, chain *notify.Chain) *notify.Chain {
	old := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	if len(l.items) == 0 && !l.kind.Has(KindUnsettable) {
		l.isSet = false
	}
	if o := old.Object(); o != nil && l.kind.Has(KindContainment) {
		if l.res != nil {
			o.resource = nil
		} else {
			o.clearContainer()
		}
	}
	return l.notify(chain, notify.Remove, old.Interface(), nil, i)
}

func (l *List) inverseAdd(o *Object, chain *notify.Chain) *notify.Chain {
	switch {
	case l.res != nil:
		chain = o.detach(chain)
		o.resource = l.res
	case l.kind.Has(KindContainment):
		chain = o.detach(chain)
		o.attachTo(l.owner, l.featureID)
	case l.kind.Has(KindBidirectional):
		chain = o.inverseAdd(l.feature.(*Reference).opposite, l.owner, chain)
	}
	return chain
}

func (l *List) inverseRemove(o *Object, chain *notify.Chain) *notify.Chain {
	if l.kind.Has(KindBidirectional) && !l.kind.Has(KindContainment) && l.owner != nil {
		chain = o.inverseRemove(l.feature.(*Reference).opposite, l.owner, chain)
	}
	return chain
}

// RemoveAt deletes entry i and returns it.
func (l *List) RemoveAt(i int) (any, error) {
	if i < 0 || i >= l.Len() {
		return nil, fmt.Errorf("%s: remove at %d: %w", l.name(), i, ErrIndexOutOfRange)
	}
	old := l.items[i].Interface()
	chain := l.removeAt(i, nil)
	chain.Dispatch()
	return old, nil
}

func (l *List) removeAt(i int, chain *notify.Chain) *notify.Chain {
	o := l.items[i].Object()
	chain = l.basicRemoveAt(i, chain)
	if o != nil {
		chain = l.inverseRemove(o, chain)
	}
	return chain
}

// Remove deletes the first entry equal to v and reports whether one was found.
func (l *List) Remove(v any) bool {
	i := l.IndexOf(v)
	if i < 0 {
		return false
	}
	l.removeAt(i, nil).Dispatch()
	return true
}

// Set replaces entry i and returns the previous entry.
func (l *List) Set(i int, v any) (any, error) {
	if i < 0 || i >= l.Len() {
		return nil, fmt.Errorf("%s: set at %d: %w", l.name(), i, ErrIndexOutOfRange)
	}
	val, err := l.wrap(v)
	if err != nil {
		return nil, err
	}
	old := l.items[i]
	if l.objects() {
		o := val.Object()
		if o == old.Object() {
			return v, nil
		}
		if l.indexOfObject(o) >= 0 {
			return nil, fmt.Errorf("%s: %s already present: %w", l.name(), o, ErrInvalidValue)
		}
		var chain *notify.Chain
		if prev := old.Object(); prev != nil {
			if l.kind.Has(KindContainment) {
				if l.res != nil {
					prev.resource = nil
				} else {
					prev.clearContainer()
				}
			} else {
				chain = l.inverseRemove(prev, chain)
			}
		}
		chain = l.inverseAdd(o, chain)
		l.items[i] = val
		chain = l.notify(chain, notify.Set, old.Interface(), o, i)
		chain.Dispatch()
		return old.Interface(), nil
	}
	l.items[i] = val
	l.notify(nil, notify.Set, old.scalar, v, i).Dispatch()
	return old.scalar, nil
}

// Move relocates the entry at from to position to.
func (l *List) Move(from, to int) error {
	n := l.Len()
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%s: move %d to %d: %w", l.name(), from, to, ErrIndexOutOfRange)
	}
	l.move(from, to, nil).Dispatch()
	return nil
}

func (l *List) move(from, to int, chain *notify.Chain) *notify.Chain {
	if from == to {
		return chain
	}
	v := l.items[from]
	if from < to {
		copy(l.items[from:to], l.items[from+1:to+1])
	} else {
		copy(l.items[to+1:from+1], l.items[to:from])
	}
	l.items[to] = v
	return l.notify(chain, notify.Move, from, v.Interface(), to)
}

// Clear removes every entry.
func (l *List) Clear() {
	l.clear(nil).Dispatch()
}

func (l *List) clear(chain *notify.Chain) *notify.Chain {
	for i := len(l.items) - 1; i >= 0; i-- {
		chain = l.removeAt(i, chain)
	}
	return chain
}

// replaceProxy swaps proxy for target in place. When target is already an
// entry it is moved to the proxy position and the proxy entry is dropped.
func (l *List) replaceProxy(proxy, target *Object, chain *notify.Chain) (*notify.Chain, bool) {
	pi := l.indexOfObject(proxy)
	if pi < 0 {
		return chain, false
	}
	var opposite *Reference
	if r, ok := l.feature.(*Reference); ok {
		opposite = r.opposite
	}
	if ri := l.indexOfObject(target); ri >= 0 {
		chain = l.move(ri, pi, chain)
		if ri > pi {
			pi++
		} else {
			pi--
		}
		chain = l.basicRemoveAt(pi, chain)
		if opposite != nil {
			chain = proxy.inverseRemove(opposite, l.owner, chain)
		}
		return chain, true
	}
	if opposite != nil {
		chain = proxy.inverseRemove(opposite, l.owner, chain)
		chain = target.inverseAdd(opposite, l.owner, chain)
	}
	l.items[pi] = objectValue(target, l.kind.Has(KindContainment))
	return l.notify(chain, notify.Resolve, proxy, target, pi), true
}
