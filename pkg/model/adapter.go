package model

import "github.com/jacoelho/ecore/pkg/notify"

// ContentAdapter follows a containment tree: it listens to every object
// of the tree, attaches itself to objects entering it and detaches from
// objects leaving it. Each notification is forwarded to fn.
type ContentAdapter struct {
	fn       func(n *notify.Notification)
	removers map[*notify.Base]func()
}

// NewContentAdapter returns an adapter forwarding notifications to fn.
func NewContentAdapter(fn func(n *notify.Notification)) *ContentAdapter {
	return &ContentAdapter{fn: fn, removers: map[*notify.Base]func(){}}
}

// Attach starts observing o and its contents.
func (a *ContentAdapter) Attach(o *Object) {
	if o == nil {
		return
	}
	a.listen(o.notifier)
	for _, child := range o.Contents() {
		a.Attach(child)
	}
}

// AttachResource starts observing the root contents of r and their trees.
func (a *ContentAdapter) AttachResource(r Resource) {
	a.listen(r.Notifier())
	for _, root := range r.Contents().basicObjects() {
		a.Attach(root)
	}
}

// Detach stops observing o and its contents.
func (a *ContentAdapter) Detach(o *Object) {
	if o == nil {
		return
	}
	if remove, ok := a.removers[o.notifier]; ok {
		remove()
		delete(a.removers, o.notifier)
	}
	for _, child := range o.Contents() {
		a.Detach(child)
	}
}

// Observed reports whether o is currently observed.
func (a *ContentAdapter) Observed(o *Object) bool {
	_, ok := a.removers[o.notifier]
	return ok
}

func (a *ContentAdapter) listen(b *notify.Base) {
	if _, ok := a.removers[b]; ok {
		return
	}
	a.removers[b] = b.AddListener(a)
}

// Notify implements notify.Listener.
func (a *ContentAdapter) Notify(n *notify.Notification) {
	if a.fn != nil {
		a.fn(n)
	}
	b := n.Notifier()
	if b == nil {
		return
	}
	switch owner := b.Owner().(type) {
	case *Object:
		f := owner.class.FeatureAt(n.FeatureID)
		if f == nil || !f.Kind().Has(KindContainment) {
			return
		}
	case Resource:
		if n.FeatureID != ContentsFeatureID {
			return
		}
	default:
		return
	}
	switch n.Kind {
	case notify.Set, notify.Unset, notify.Resolve:
		if old, ok := n.OldValue.(*Object); ok {
			a.Detach(old)
		}
		if nw, ok := n.NewValue.(*Object); ok {
			a.Attach(nw)
		}
	case notify.Add:
		if nw, ok := n.NewValue.(*Object); ok {
			a.Attach(nw)
		}
	case notify.Remove:
		if old, ok := n.OldValue.(*Object); ok {
			a.Detach(old)
		}
	}
}
