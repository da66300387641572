// Package events implements the synchronous, in-process event bus that
// game events are raised on. Dispatch is single-pass fan-out by concrete
// event type, in subscription order, on the caller's stack.
package events

import "reflect"

// ItemCollected is raised when the player gains Amount of an item.
type ItemCollected struct {
	ItemID string
	Amount int
}

// AreaEntered is raised when the player enters an area.
type AreaEntered struct {
	AreaID string
}

// FlagChanged is raised when a world flag is written.
type FlagChanged struct {
	FlagID string
	Value  bool
}

type listener struct {
	id      uint64
	fn      func(any)
	removed bool
}

// Bus fans events out to listeners registered for their concrete type.
// It is not safe for concurrent use.
type Bus struct {
	listeners map[reflect.Type][]*listener
	nextID    uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: map[reflect.Type][]*listener{}}
}

// Subscription is the handle returned by AddListener. It is owned by the
// caller and must be passed to RemoveListener (or cancelled) to unsubscribe.
type Subscription struct {
	bus *Bus
	typ reflect.Type
	l   *listener
}

// Cancel removes the listener. Cancelling twice is a no-op.
func (s *Subscription) Cancel() {
	RemoveListener(s)
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool {
	return s != nil && s.l != nil && !s.l.removed
}

// AddListener subscribes h to events of type E.
func AddListener[E any](b *Bus, h func(E)) *Subscription {
	typ := reflect.TypeFor[E]()
	b.nextID++
	l := &listener{
		id: b.nextID,
		fn: func(v any) { h(v.(E)) },
	}
	b.listeners[typ] = append(b.listeners[typ], l)
	return &Subscription{bus: b, typ: typ, l: l}
}

// RemoveListener unsubscribes the listener behind s. Safe to call during
// dispatch: a listener removed mid-dispatch is not invoked afterwards.
func RemoveListener(s *Subscription) {
	if s == nil || s.l == nil || s.l.removed {
		return
	}
	s.l.removed = true
	list := s.bus.listeners[s.typ]
	for i, l := range list {
		if l == s.l {
			// Copy instead of in-place splice; a dispatch in progress
			// may still be iterating the old slice.
			next := make([]*listener, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(s.bus.listeners, s.typ)
			} else {
				s.bus.listeners[s.typ] = next
			}
			return
		}
	}
}

// Raise dispatches e to every listener of type E, synchronously.
// Listeners added during dispatch are first called on the next Raise.
func Raise[E any](b *Bus, e E) {
	list := b.listeners[reflect.TypeFor[E]()]
	if len(list) == 0 {
		return
	}
	snapshot := make([]*listener, len(list))
	copy(snapshot, list)
	for _, l := range snapshot {
		if l.removed {
			continue
		}
		l.fn(e)
	}
}

// ListenerCount returns the number of live listeners for type E.
func ListenerCount[E any](b *Bus) int {
	return len(b.listeners[reflect.TypeFor[E]()])
}
