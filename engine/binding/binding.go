// Package binding connects objective conditions to the event bus. Each
// bound objective gets one stable callback that reports condition changes
// and marks the (quest, objective) pair dirty; the Binding handles it
// produces are owned here until the objective is unbound.
package binding

import (
	"github.com/nathoo/questflow/engine/conditions"
	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/quest"
	"github.com/nathoo/questflow/engine/services"
)

// DirtyFunc schedules a (quest, objective) pair for evaluation.
type DirtyFunc func(q *quest.QuestState, o *quest.ObjectiveState)

// ChangeFunc observes individual condition changes.
type ChangeFunc func(o *quest.ObjectiveState, inst conditions.Instance, met bool)

type bound struct {
	quest    *quest.QuestState
	callback conditions.ChangedFunc
	handles  []*conditions.Binding
}

// Service binds and unbinds objective conditions.
type Service struct {
	bus       *events.Bus
	ctx       *services.Context
	markDirty DirtyFunc
	onChange  ChangeFunc

	bound map[*quest.ObjectiveState]*bound
}

// New creates a binding service. onChange may be nil.
func New(bus *events.Bus, ctx *services.Context, markDirty DirtyFunc, onChange ChangeFunc) *Service {
	return &Service{
		bus:       bus,
		ctx:       ctx,
		markDirty: markDirty,
		onChange:  onChange,
		bound:     map[*quest.ObjectiveState]*bound{},
	}
}

// BindObjective binds o's completion and fail conditions. Binding an
// objective that is already bound is a no-op.
func (s *Service) BindObjective(q *quest.QuestState, o *quest.ObjectiveState) {
	if _, ok := s.bound[o]; ok {
		return
	}
	b := &bound{quest: q}
	b.callback = func(inst conditions.Instance, met bool) {
		if s.onChange != nil {
			s.onChange(o, inst, met)
		}
		if s.markDirty != nil {
			s.markDirty(q, o)
		}
	}
	for _, inst := range []conditions.Instance{o.Completion, o.Fail} {
		if inst == nil {
			continue
		}
		b.handles = append(b.handles, inst.Bind(s.bus, s.ctx, b.callback))
	}
	s.bound[o] = b
}

// UnbindObjective releases every subscription held for o.
func (s *Service) UnbindObjective(o *quest.ObjectiveState) {
	b, ok := s.bound[o]
	if !ok {
		return
	}
	delete(s.bound, o)
	for _, h := range b.handles {
		h.Unbind()
	}
}

// UnbindQuest releases every objective of q.
func (s *Service) UnbindQuest(q *quest.QuestState) {
	for _, o := range q.Ordered() {
		s.UnbindObjective(o)
	}
}

// RefreshPollingConditions drives Refresh on o's polling conditions.
// Objectives that are not bound are skipped.
func (s *Service) RefreshPollingConditions(o *quest.ObjectiveState) {
	b, ok := s.bound[o]
	if !ok {
		return
	}
	for _, inst := range []conditions.Instance{o.Completion, o.Fail} {
		if p, ok := inst.(conditions.Poller); ok {
			p.Refresh(s.ctx, b.callback)
		}
	}
}

// IsBound reports whether o currently holds subscriptions.
func (s *Service) IsBound(o *quest.ObjectiveState) bool {
	_, ok := s.bound[o]
	return ok
}

// BoundCount returns the number of bound objectives.
func (s *Service) BoundCount() int {
	return len(s.bound)
}
