// Package notify records elementary changes to notifiers and dispatches them
// in batches once a compound mutation has completed.
package notify

import (
	"reflect"
	"weak"
)

// Kind identifies the kind of an elementary change.
type Kind int

const (
	// None marks a notification cancelled by a later one.
	None Kind = iota
	// Set replaces a single value.
	Set
	// Unset restores a feature's default.
	Unset
	// Add inserts one value into a many-valued feature.
	Add
	// Remove deletes one value from a many-valued feature.
	Remove
	// Move changes the position of a value within a many-valued feature.
	Move
	// Resolve replaces a proxy with its target in place.
	Resolve
)

// NoIndex is the position of notifications that do not target a list slot.
const NoIndex = -1

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Set:
		return "set"
	case Unset:
		return "unset"
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Move:
		return "move"
	case Resolve:
		return "resolve"
	default:
		return "unknown"
	}
}

// Notification describes one elementary change. The notifier is held weakly
// so a pending notification never keeps its source alive.
type Notification struct {
	OldValue  any
	NewValue  any
	notifier  weak.Pointer[Base]
	Kind      Kind
	FeatureID int
	Position  int
}

// New returns a notification emitted by notifier.
func New(notifier *Base, kind Kind, featureID int, oldValue, newValue any, position int) *Notification {
	return &Notification{
		notifier:  weak.Make(notifier),
		Kind:      kind,
		FeatureID: featureID,
		OldValue:  oldValue,
		NewValue:  newValue,
		Position:  position,
	}
}

// Notifier returns the source of the notification, or nil once it has been collected.
func (n *Notification) Notifier() *Base {
	if n == nil {
		return nil
	}
	return n.notifier.Value()
}

// Merge folds newer into n when both target the same notifier and feature.
// It reports whether newer was absorbed and must not be kept separately.
func (n *Notification) Merge(newer *Notification) bool {
	if n == nil || newer == nil {
		return false
	}
	if n.notifier != newer.notifier || n.FeatureID != newer.FeatureID {
		return false
	}
	switch n.Kind {
	case Set, Unset:
		switch newer.Kind {
		case Set, Unset:
			n.Kind = newer.Kind
			n.NewValue = newer.NewValue
			return true
		}
	case Add:
		if newer.Kind == Remove && n.Position == newer.Position && sameValue(n.NewValue, newer.OldValue) {
			n.Kind = None
			return true
		}
	}
	return false
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
