package engine

import (
	"log"

	"github.com/nathoo/questflow/engine/quest"
	"github.com/nathoo/questflow/types"
)

// ObjectiveChanged is delivered when an objective reaches a new status
// during a tick.
type ObjectiveChanged struct {
	Quest     *quest.QuestState
	Objective *quest.ObjectiveState
	Status    types.Status
}

// ConditionChanged is delivered for every condition callback of a bound
// objective, before the pair is marked dirty.
type ConditionChanged struct {
	Objective *quest.ObjectiveState
	Met       bool
}

type subscriber[T any] struct {
	fn      func(T) error
	removed bool
}

// Signal is a list of notification subscribers. Each subscriber is called
// independently: an error or panic is logged and delivery continues.
type Signal[T any] struct {
	name string
	subs []*subscriber[T]
}

// Subscribe adds fn and returns a func that removes it. The cancel func is
// safe to call from inside a delivery and more than once.
func (s *Signal[T]) Subscribe(fn func(T) error) (cancel func()) {
	sub := &subscriber[T]{fn: fn}
	s.subs = append(s.subs, sub)
	return func() {
		if sub.removed {
			return
		}
		sub.removed = true
		next := make([]*subscriber[T], 0, len(s.subs))
		for _, existing := range s.subs {
			if existing != sub {
				next = append(next, existing)
			}
		}
		s.subs = next
	}
}

// Len returns the number of subscribers.
func (s *Signal[T]) Len() int {
	return len(s.subs)
}

func (s *Signal[T]) emit(logger *log.Logger, v T) {
	for _, sub := range s.subs {
		if sub.removed {
			continue
		}
		s.deliver(logger, sub, v)
	}
}

func (s *Signal[T]) deliver(logger *log.Logger, sub *subscriber[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("engine: %s subscriber panicked: %v", s.name, r)
		}
	}()
	if err := sub.fn(v); err != nil {
		logger.Printf("engine: %s subscriber: %v", s.name, err)
	}
}
