package model

import (
	"fmt"
	"reflect"
	"weak"

	"github.com/jacoelho/ecore/pkg/notify"
	"github.com/jacoelho/ecore/pkg/uri"
)

// ContentsFeatureID is the feature ID carried by notifications about a
// resource's root contents.
const ContentsFeatureID = 0

// Resource is the part of a resource the object graph depends on.
type Resource interface {
	URI() uri.URI
	Contents() *List
	Notifier() *notify.Base
	ResolveProxy(proxy *Object) *Object
}

// Object is a dynamic instance: one slot per feature of its class.
type Object struct {
	class       *Class
	notifier    *notify.Base
	resource    Resource
	container   weak.Pointer[Object]
	proxy       uri.URI
	slots       []Value
	containerID int
}

func newObject(c *Class) *Object {
	o := &Object{class: c, containerID: -1, slots: make([]Value, c.FeatureCount())}
	o.notifier = notify.NewBase(o)
	return o
}

// Class returns the class describing o.
func (o *Object) Class() *Class { return o.class }

// Notifier returns the notifier delivering o's notifications.
func (o *Object) Notifier() *notify.Base { return o.notifier }

// AddListener registers l for o's notifications and returns its remover.
func (o *Object) AddListener(l notify.Listener) func() { return o.notifier.AddListener(l) }

// IsProxy reports whether o is an unresolved placeholder.
func (o *Object) IsProxy() bool { return !o.proxy.IsEmpty() }

// ProxyURI returns the address of the object o stands for.
func (o *Object) ProxyURI() uri.URI { return o.proxy }

// SetProxyURI turns o into a proxy for u, or back into a regular object when u is empty.
func (o *Object) SetProxyURI(u uri.URI) { o.proxy = u }

// Container returns the object containing o, or nil.
func (o *Object) Container() *Object { return o.container.Value() }

// ContainingFeature returns the containment reference holding o, or nil.
func (o *Object) ContainingFeature() *Reference {
	c := o.Container()
	if c == nil {
		return nil
	}
	r, _ := c.class.FeatureAt(o.containerID).(*Reference)
	return r
}

// DirectResource returns the resource whose root contents hold o, or nil.
func (o *Object) DirectResource() Resource { return o.resource }

// Resource returns the resource holding o directly or through its containers.
func (o *Object) Resource() Resource {
	for x := o; x != nil; x = x.Container() {
		if x.resource != nil {
			return x.resource
		}
	}
	return nil
}

// String identifies o for diagnostics.
func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	if o.IsProxy() {
		return fmt.Sprintf("%s(proxy %s)", o.class.name, o.proxy)
	}
	return fmt.Sprintf("%s@%p", o.class.name, o)
}

func (o *Object) attachTo(c *Object, id int) {
	o.container = weak.Make(c)
	o.containerID = id
}

func (o *Object) clearContainer() {
	o.container = weak.Pointer[Object]{}
	o.containerID = -1
}

// grow extends the slots after the class gained features.
func (o *Object) grow() {
	if n := o.class.FeatureCount(); len(o.slots) < n {
		o.slots = append(o.slots, make([]Value, n-len(o.slots))...)
	}
}

func (o *Object) featureID(f Feature) (int, error) {
	if f == nil {
		return -1, fmt.Errorf("%s: nil feature: %w", o.class.name, ErrInvalidFeature)
	}
	o.grow()
	id := o.class.FeatureID(f)
	if id < 0 {
		return -1, fmt.Errorf("%s.%s: %w", o.class.name, f.Name(), ErrInvalidFeature)
	}
	return id, nil
}

func (o *Object) notify(chain *notify.Chain, kind notify.Kind, id int, oldValue, newValue any, pos int) *notify.Chain {
	if !o.notifier.Required() {
		return chain
	}
	return notify.Append(chain, notify.New(o.notifier, kind, id, oldValue, newValue, pos))
}

func (o *Object) list(id int) *List {
	v := o.slots[id]
	if v.tag == TagList {
		return v.list
	}
	f := o.class.FeatureAt(id)
	l := &List{owner: o, base: o.notifier, feature: f, featureID: id, kind: f.Kind()}
	o.slots[id] = listValue(l)
	return l
}

// List returns the list of a many-valued feature, or nil.
func (o *Object) List(f Feature) *List {
	id, err := o.featureID(f)
	if err != nil || !f.IsMany() {
		return nil
	}
	return o.list(id)
}

// Get returns the value of f, resolving proxies.
func (o *Object) Get(f Feature) any { return o.GetResolve(f, true) }

// GetResolve returns the value of f. Many-valued features yield a *List,
// unset single features their default. When resolve is set a proxy held by
// the slot is replaced by its target if the target can be found.
func (o *Object) GetResolve(f Feature, resolve bool) any {
	id, err := o.featureID(f)
	if err != nil {
		return nil
	}
	k := f.Kind()
	switch k.Shape() {
	case ShapeScalar:
		v := o.slots[id]
		if v.tag == TagEmpty {
			return f.Default()
		}
		return v.scalar
	case ShapeScalarMany, ShapeContainmentMany, ShapeReferenceMany:
		return o.list(id)
	case ShapeContainer:
		return objectAny(o.containerVia(f.(*Reference)))
	case ShapeContainment, ShapeReference:
		v := o.slots[id]
		if resolve && v.tag == TagProxy && k.Has(KindResolveProxies) {
			if target := o.resolveProxy(v.obj); target != nil {
				o.replaceProxySlot(id, f.(*Reference), v.obj, target, nil).Dispatch()
				return target
			}
		}
		return objectAny(v.Object())
	}
	return nil
}

func (o *Object) containerVia(r *Reference) *Object {
	c := o.Container()
	if c == nil || c.class.FeatureAt(o.containerID) != Feature(r.opposite) {
		return nil
	}
	return c
}

func (o *Object) resolveProxy(p *Object) *Object {
	r := o.Resource()
	if r == nil {
		return nil
	}
	target := r.ResolveProxy(p)
	if target == p || (target != nil && target.IsProxy()) {
		return nil
	}
	return target
}

// IsSet reports whether f holds a value other than its default. Unsettable
// features report their explicit set state.
func (o *Object) IsSet(f Feature) bool {
	id, err := o.featureID(f)
	if err != nil {
		return false
	}
	k := f.Kind()
	v := o.slots[id]
	switch k.Shape() {
	case ShapeScalar:
		if k.Has(KindUnsettable) {
			return v.tag != TagEmpty
		}
		return v.tag != TagEmpty && !sameScalar(v.scalar, f.Default())
	case ShapeScalarMany, ShapeContainmentMany, ShapeReferenceMany:
		if v.tag != TagList {
			return false
		}
		return v.list.IsSet()
	case ShapeContainer:
		return o.containerVia(f.(*Reference)) != nil
	case ShapeContainment, ShapeReference:
		if k.Has(KindUnsettable) {
			return v.tag != TagEmpty
		}
		return v.Object() != nil
	}
	return false
}

// Set assigns v to f. Many-valued features take a slice replacing the list
// content. All notifications are dispatched after every change is applied.
func (o *Object) Set(f Feature, v any) error {
	id, err := o.featureID(f)
	if err != nil {
		return err
	}
	if !f.IsChangeable() {
		return fmt.Errorf("%s.%s: %w", o.class.name, f.Name(), ErrNotChangeable)
	}
	chain, err := o.set(id, f, v, nil)
	chain.Dispatch()
	return err
}

// BasicSet assigns v to f like Set but also writes unchangeable features.
// Deserializers use it to restore read-only values.
func (o *Object) BasicSet(f Feature, v any) error {
	id, err := o.featureID(f)
	if err != nil {
		return err
	}
	chain, err := o.set(id, f, v, nil)
	chain.Dispatch()
	return err
}

func (o *Object) set(id int, f Feature, v any, chain *notify.Chain) (*notify.Chain, error) {
	k := f.Kind()
	switch k.Shape() {
	case ShapeScalar:
		a := f.(*Attribute)
		if d := a.DataType(); d != nil && !d.Accepts(v) {
			return chain, fmt.Errorf("%s.%s: %T: %w", o.class.name, f.Name(), v, ErrInvalidValue)
		}
		old := o.slots[id]
		oldValue := f.Default()
		if old.tag == TagScalar {
			oldValue = old.scalar
		}
		o.slots[id] = scalarValue(v)
		return o.notify(chain, notify.Set, id, oldValue, v, notify.NoIndex), nil
	case ShapeScalarMany, ShapeContainmentMany, ShapeReferenceMany:
		items, err := toSlice(v)
		if err != nil {
			return chain, fmt.Errorf("%s.%s: %w", o.class.name, f.Name(), err)
		}
		l := o.list(id)
		for _, item := range items {
			if _, err := l.wrap(item); err != nil {
				return chain, err
			}
		}
		chain = l.clear(chain)
		for _, item := range items {
			chain, _, err = l.insert(l.Len(), item, chain)
			if err != nil {
				return chain, err
			}
		}
		l.isSet = true
		return chain, nil
	case ShapeContainer:
		r := f.(*Reference)
		target, err := o.asObject(r, v)
		if err != nil {
			return chain, err
		}
		return o.setContainer(id, r, target, chain)
	case ShapeContainment:
		target, err := o.asObject(f.(*Reference), v)
		if err != nil {
			return chain, err
		}
		if target != nil && IsAncestor(target, o) {
			return chain, fmt.Errorf("%s.%s: containment cycle: %w", o.class.name, f.Name(), ErrInvalidValue)
		}
		return o.setContainment(id, target, chain), nil
	case ShapeReference:
		target, err := o.asObject(f.(*Reference), v)
		if err != nil {
			return chain, err
		}
		return o.setReference(id, f.(*Reference), target, chain), nil
	}
	return chain, nil
}

func (o *Object) asObject(r *Reference, v any) (*Object, error) {
	if v == nil {
		return nil, nil
	}
	target, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %T: %w", o.class.name, r.name, v, ErrInvalidValue)
	}
	if target == nil {
		return nil, nil
	}
	if t := r.ReferenceType(); t != nil && !t.IsSuperTypeOf(target.class) {
		return nil, fmt.Errorf("%s.%s: %s: %w", o.class.name, r.name, target.class.name, ErrInvalidValue)
	}
	return target, nil
}

func (o *Object) emptyFor(f Feature) Value {
	if f.IsUnsettable() {
		return nilValue()
	}
	return Value{}
}

func (o *Object) setContainment(id int, target *Object, chain *notify.Chain) *notify.Chain {
	f := o.class.FeatureAt(id)
	old := o.slots[id]
	oldObj := old.Object()
	if oldObj == target && old.tag != TagEmpty {
		return chain
	}
	if oldObj != nil {
		oldObj.clearContainer()
	}
	if target != nil {
		chain = target.detach(chain)
		target.attachTo(o, id)
		o.slots[id] = objectValue(target, true)
	} else {
		o.slots[id] = o.emptyFor(f)
	}
	return o.notify(chain, notify.Set, id, objectAny(oldObj), objectAny(target), notify.NoIndex)
}

func (o *Object) setContainer(id int, r *Reference, target *Object, chain *notify.Chain) (*notify.Chain, error) {
	current := o.containerVia(r)
	if current == target {
		return chain, nil
	}
	var oppID int
	if target != nil {
		if IsAncestor(o, target) {
			return chain, fmt.Errorf("%s.%s: containment cycle: %w", o.class.name, r.name, ErrInvalidValue)
		}
		oppID = target.class.FeatureID(r.opposite)
		if oppID < 0 {
			return chain, fmt.Errorf("%s.%s: %s has no %s: %w", o.class.name, r.name, target.class.name, r.opposite.name, ErrInvalidValue)
		}
		target.grow()
	}
	chain = o.detach(chain)
	if target != nil {
		if r.opposite.many {
			l := target.list(oppID)
			chain, _, _ = l.insert(l.Len(), o, chain)
		} else {
			chain = target.setContainment(oppID, o, chain)
		}
	}
	return o.notify(chain, notify.Set, id, objectAny(current), objectAny(target), notify.NoIndex), nil
}

func (o *Object) setReference(id int, r *Reference, target *Object, chain *notify.Chain) *notify.Chain {
	old := o.slots[id]
	oldObj := old.Object()
	if oldObj == target && old.tag != TagEmpty {
		return chain
	}
	if r.opposite != nil {
		if oldObj != nil {
			chain = oldObj.inverseRemove(r.opposite, o, chain)
		}
		if target != nil {
			chain = target.inverseAdd(r.opposite, o, chain)
		}
	}
	if target != nil {
		o.slots[id] = objectValue(target, false)
	} else {
		o.slots[id] = o.emptyFor(r)
	}
	return o.notify(chain, notify.Set, id, objectAny(oldObj), objectAny(target), notify.NoIndex)
}

// inverseAdd records other in o's feature r without touching other.
func (o *Object) inverseAdd(r *Reference, other *Object, chain *notify.Chain) *notify.Chain {
	id := o.class.FeatureID(r)
	if id < 0 {
		return chain
	}
	o.grow()
	switch r.Kind().Shape() {
	case ShapeReferenceMany:
		l := o.list(id)
		if l.indexOfObject(other) < 0 {
			chain = l.basicInsert(l.Len(), objectValue(other, false), chain)
		}
	case ShapeReference:
		oldObj := o.slots[id].Object()
		if oldObj == other {
			return chain
		}
		if oldObj != nil {
			chain = oldObj.inverseRemove(r.opposite, o, chain)
		}
		o.slots[id] = objectValue(other, false)
		chain = o.notify(chain, notify.Set, id, objectAny(oldObj), other, notify.NoIndex)
	}
	return chain
}

// inverseRemove drops other from o's feature r without touching other.
func (o *Object) inverseRemove(r *Reference, other *Object, chain *notify.Chain) *notify.Chain {
	id := o.class.FeatureID(r)
	if id < 0 {
		return chain
	}
	o.grow()
	switch r.Kind().Shape() {
	case ShapeReferenceMany:
		l := o.list(id)
		if i := l.indexOfObject(other); i >= 0 {
			chain = l.basicRemoveAt(i, chain)
		}
	case ShapeReference:
		if o.slots[id].Object() == other {
			o.slots[id] = o.emptyFor(r)
			chain = o.notify(chain, notify.Set, id, other, nil, notify.NoIndex)
		}
	}
	return chain
}

// detach removes o from its container slot or from its resource's root contents.
func (o *Object) detach(chain *notify.Chain) *notify.Chain {
	if c := o.Container(); c != nil {
		id := o.containerID
		c.grow()
		f := c.class.FeatureAt(id)
		if f.IsMany() {
			l := c.list(id)
			if i := l.indexOfObject(o); i >= 0 {
				chain = l.basicRemoveAt(i, chain)
			}
		} else if c.slots[id].Object() == o {
			c.slots[id] = c.emptyFor(f)
			chain = c.notify(chain, notify.Set, id, o, nil, notify.NoIndex)
		}
		o.clearContainer()
		return chain
	}
	if r := o.resource; r != nil {
		l := r.Contents()
		if i := l.indexOfObject(o); i >= 0 {
			chain = l.basicRemoveAt(i, chain)
		}
		o.resource = nil
	}
	return chain
}

// Unset restores the default of f.
func (o *Object) Unset(f Feature) error {
	id, err := o.featureID(f)
	if err != nil {
		return err
	}
	if !f.IsChangeable() {
		return fmt.Errorf("%s.%s: %w", o.class.name, f.Name(), ErrNotChangeable)
	}
	var chain *notify.Chain
	k := f.Kind()
	switch k.Shape() {
	case ShapeScalar:
		old := o.slots[id]
		o.slots[id] = Value{}
		chain = o.notify(chain, notify.Unset, id, old.scalar, f.Default(), notify.NoIndex)
	case ShapeScalarMany, ShapeContainmentMany, ShapeReferenceMany:
		l := o.list(id)
		chain = l.clear(chain)
		l.isSet = false
		if k.Has(KindUnsettable) {
			chain = o.notify(chain, notify.Unset, id, nil, nil, notify.NoIndex)
		}
	case ShapeContainer:
		current := o.containerVia(f.(*Reference))
		if current != nil {
			chain = o.detach(chain)
		}
		chain = o.notify(chain, notify.Unset, id, objectAny(current), nil, notify.NoIndex)
	case ShapeContainment:
		oldObj := o.slots[id].Object()
		if oldObj != nil {
			oldObj.clearContainer()
		}
		o.slots[id] = Value{}
		chain = o.notify(chain, notify.Unset, id, objectAny(oldObj), nil, notify.NoIndex)
	case ShapeReference:
		r := f.(*Reference)
		oldObj := o.slots[id].Object()
		if r.opposite != nil && oldObj != nil {
			chain = oldObj.inverseRemove(r.opposite, o, chain)
		}
		o.slots[id] = Value{}
		chain = o.notify(chain, notify.Unset, id, objectAny(oldObj), nil, notify.NoIndex)
	}
	chain.Dispatch()
	return nil
}

// ReplaceProxy swaps proxy for target in f, keeping the opposite side
// consistent. It reports whether proxy was found.
func (o *Object) ReplaceProxy(f Feature, proxy, target *Object) bool {
	id, err := o.featureID(f)
	if err != nil || proxy == nil || target == nil {
		return false
	}
	r, ok := f.(*Reference)
	if !ok {
		return false
	}
	var chain *notify.Chain
	if f.IsMany() {
		chain, ok = o.list(id).replaceProxy(proxy, target, nil)
	} else {
		ok = o.slots[id].tag == TagProxy && o.slots[id].obj == proxy
		if ok {
			chain = o.replaceProxySlot(id, r, proxy, target, nil)
		}
	}
	chain.Dispatch()
	return ok
}

func (o *Object) replaceProxySlot(id int, r *Reference, proxy, target *Object, chain *notify.Chain) *notify.Chain {
	if r.opposite != nil {
		chain = proxy.inverseRemove(r.opposite, o, chain)
		chain = target.inverseAdd(r.opposite, o, chain)
	}
	o.slots[id] = objectValue(target, r.containment)
	return o.notify(chain, notify.Resolve, id, proxy, target, notify.NoIndex)
}

// Slot returns the raw slot content of f without resolving proxies.
func (o *Object) Slot(f Feature) Value {
	id, err := o.featureID(f)
	if err != nil {
		return Value{}
	}
	return o.slots[id]
}

// Contents returns the directly contained objects in feature order.
func (o *Object) Contents() []*Object {
	var out []*Object
	o.grow()
	for id, f := range o.class.current().features {
		if !f.Kind().Has(KindContainment) {
			continue
		}
		v := o.slots[id]
		switch v.tag {
		case TagList:
			out = append(out, v.list.basicObjects()...)
		case TagOwned, TagProxy:
			out = append(out, v.obj)
		}
	}
	return out
}

// IsAncestor reports whether ancestor is o or contains o transitively.
func IsAncestor(ancestor, o *Object) bool {
	for x := o; x != nil; x = x.Container() {
		if x == ancestor {
			return true
		}
	}
	return false
}

func toSlice(v any) ([]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return x, nil
	case []*Object:
		out := make([]any, len(x))
		for i, o := range x {
			out[i] = o
		}
		return out, nil
	case *List:
		return x.Values(), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%T is not a slice: %w", v, ErrInvalidValue)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func sameScalar(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
