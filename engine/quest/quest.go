// Package quest holds the runtime state containers: objective and quest
// states wrapping immutable definitions, and the log of active quests.
package quest

import (
	"errors"
	"fmt"

	"github.com/nathoo/questflow/engine/conditions"
	"github.com/nathoo/questflow/types"
)

var (
	// ErrNilDefinition is returned when a quest is built from a nil definition.
	ErrNilDefinition = errors.New("quest definition is nil")
	// ErrEmptyID is returned for a quest or objective without an ID.
	ErrEmptyID = errors.New("empty id")
	// ErrDuplicateObjective is returned when two objectives share an ID.
	ErrDuplicateObjective = errors.New("duplicate objective id")
)

// ObjectiveState is the runtime wrapper around an objective definition.
// Its condition instances are created once and live as long as it does.
type ObjectiveState struct {
	Def        *types.ObjectiveDef
	Status     types.Status
	Completion conditions.Instance // nil: never met
	Fail       conditions.Instance // nil: cannot fail
}

// NewObjectiveState builds the objective and its condition instances.
func NewObjectiveState(def *types.ObjectiveDef) (*ObjectiveState, error) {
	completion, err := conditions.New(def.Completion)
	if err != nil {
		return nil, fmt.Errorf("objective %s completion: %w", def.ID, err)
	}
	fail, err := conditions.New(def.Fail)
	if err != nil {
		return nil, fmt.Errorf("objective %s fail: %w", def.ID, err)
	}
	return &ObjectiveState{
		Def:        def,
		Status:     types.StatusNotStarted,
		Completion: completion,
		Fail:       fail,
	}, nil
}

// ID returns the objective ID.
func (o *ObjectiveState) ID() string {
	return o.Def.ID
}

// CanProgress reports whether the objective may be activated or evaluated:
// it is not terminal and every prerequisite is Completed. Prerequisites
// that do not exist in the quest are treated as satisfied.
func (o *ObjectiveState) CanProgress(q *QuestState) bool {
	if o.Status.IsTerminal() {
		return false
	}
	for _, id := range o.Def.Prerequisites {
		if id == "" {
			continue
		}
		prereq, ok := q.Objectives[id]
		if !ok {
			continue
		}
		if prereq.Status != types.StatusCompleted {
			return false
		}
	}
	return true
}

// Start moves NotStarted to InProgress. Reports whether it did.
func (o *ObjectiveState) Start() bool {
	if o.Status != types.StatusNotStarted {
		return false
	}
	o.Status = types.StatusInProgress
	return true
}

// Complete moves a non-terminal objective to Completed.
func (o *ObjectiveState) Complete() bool {
	if o.Status.IsTerminal() {
		return false
	}
	o.Status = types.StatusCompleted
	return true
}

// MarkFailed moves a non-terminal objective to Failed.
func (o *ObjectiveState) MarkFailed() bool {
	if o.Status.IsTerminal() {
		return false
	}
	o.Status = types.StatusFailed
	return true
}

// QuestState is the runtime wrapper around a quest definition.
type QuestState struct {
	Def        *types.QuestDef
	Status     types.Status
	Objectives map[string]*ObjectiveState

	order []*ObjectiveState
}

// NewQuestState builds a NotStarted quest with one ObjectiveState per
// objective in the definition.
func NewQuestState(def *types.QuestDef) (*QuestState, error) {
	if def == nil {
		return nil, ErrNilDefinition
	}
	if def.ID == "" {
		return nil, fmt.Errorf("quest: %w", ErrEmptyID)
	}
	q := &QuestState{
		Def:        def,
		Status:     types.StatusNotStarted,
		Objectives: make(map[string]*ObjectiveState, len(def.Objectives)),
	}
	for i := range def.Objectives {
		od := &def.Objectives[i]
		if od.ID == "" {
			return nil, fmt.Errorf("quest %s objective %d: %w", def.ID, i, ErrEmptyID)
		}
		if _, dup := q.Objectives[od.ID]; dup {
			return nil, fmt.Errorf("quest %s: %w %q", def.ID, ErrDuplicateObjective, od.ID)
		}
		obj, err := NewObjectiveState(od)
		if err != nil {
			return nil, fmt.Errorf("quest %s: %w", def.ID, err)
		}
		q.Objectives[od.ID] = obj
		q.order = append(q.order, obj)
	}
	return q, nil
}

// ID returns the quest ID.
func (q *QuestState) ID() string {
	return q.Def.ID
}

// Ordered returns the objectives in definition order.
func (q *QuestState) Ordered() []*ObjectiveState {
	out := make([]*ObjectiveState, len(q.order))
	copy(out, q.order)
	return out
}

// RequiredComplete reports whether every non-optional objective is
// Completed. Optional objectives never block completion.
func (q *QuestState) RequiredComplete() bool {
	for _, o := range q.order {
		if o.Def.Optional {
			continue
		}
		if o.Status != types.StatusCompleted {
			return false
		}
	}
	return true
}

// Start moves NotStarted to InProgress.
func (q *QuestState) Start() bool {
	if q.Status != types.StatusNotStarted {
		return false
	}
	q.Status = types.StatusInProgress
	return true
}

// Complete moves a non-terminal quest to Completed.
func (q *QuestState) Complete() bool {
	if q.Status.IsTerminal() {
		return false
	}
	q.Status = types.StatusCompleted
	return true
}

// MarkFailed moves a non-terminal quest to Failed.
func (q *QuestState) MarkFailed() bool {
	if q.Status.IsTerminal() {
		return false
	}
	q.Status = types.StatusFailed
	return true
}
