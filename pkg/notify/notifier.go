package notify

// Listener observes notifications delivered by a notifier.
type Listener interface {
	Notify(n *Notification)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(n *Notification)

// Notify calls f(n).
func (f ListenerFunc) Notify(n *Notification) {
	f(n)
}

type listenerEntry struct {
	l  Listener
	id uint64
}

// Base is the notifier state shared by every observable object. Owner is the
// object the notifications are about.
type Base struct {
	owner     any
	listeners []listenerEntry
	nextID    uint64
	muted     bool
}

// NewBase returns a delivering notifier for owner.
func NewBase(owner any) *Base {
	return &Base{owner: owner}
}

// Owner returns the object the notifier reports on.
func (b *Base) Owner() any {
	return b.owner
}

// AddListener registers l and returns a function that unregisters it.
func (b *Base) AddListener(l Listener) func() {
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listenerEntry{id: id, l: l})
	return func() {
		for i, e := range b.listeners {
			if e.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Listeners returns the number of registered listeners.
func (b *Base) Listeners() int {
	return len(b.listeners)
}

// SetDeliver enables or disables delivery.
func (b *Base) SetDeliver(deliver bool) {
	b.muted = !deliver
}

// Deliver reports whether notifications are delivered.
func (b *Base) Deliver() bool {
	return !b.muted
}

// Required reports whether building a notification is worth it.
func (b *Base) Required() bool {
	return b != nil && !b.muted && len(b.listeners) > 0
}

// Notify delivers n to the current listeners.
func (b *Base) Notify(n *Notification) {
	if b.muted {
		return
	}
	listeners := append([]listenerEntry(nil), b.listeners...)
	for _, e := range listeners {
		e.l.Notify(n)
	}
}
