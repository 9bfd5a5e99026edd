package notify

// Chain accumulates notifications of a compound mutation until Dispatch.
// The zero value is ready to use.
type Chain struct {
	items []*Notification
}

// Append adds n to c, allocating the chain on first use. It returns the chain
// to use for subsequent appends.
func Append(c *Chain, n *Notification) *Chain {
	if n == nil {
		return c
	}
	if c == nil {
		c = &Chain{}
	}
	c.Add(n)
	return c
}

// Add merges n into an existing notification when possible, otherwise appends it.
// It reports whether n was kept as a separate entry.
func (c *Chain) Add(n *Notification) bool {
	if n == nil {
		return false
	}
	for _, existing := range c.items {
		if existing.Merge(n) {
			return false
		}
	}
	c.items = append(c.items, n)
	return true
}

// Len returns the number of retained notifications, cancelled ones included.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Notifications returns the retained notifications in chain order.
func (c *Chain) Notifications() []*Notification {
	if c == nil {
		return nil
	}
	return append([]*Notification(nil), c.items...)
}

// Dispatch delivers every live, non-cancelled notification to its notifier in
// chain order, then empties the chain.
func (c *Chain) Dispatch() {
	if c == nil {
		return
	}
	items := c.items
	c.items = nil
	for _, n := range items {
		if n.Kind == None {
			continue
		}
		if b := n.Notifier(); b != nil {
			b.Notify(n)
		}
	}
}
