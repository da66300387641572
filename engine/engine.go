// Package engine ties the quest runtime together: it owns the quest log,
// the binding service, the evaluator and the dirty queue, and drives them
// once per tick.
package engine

import (
	"errors"
	"fmt"

	"github.com/nathoo/questflow/engine/binding"
	"github.com/nathoo/questflow/engine/conditions"
	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/quest"
	"github.com/nathoo/questflow/engine/services"
	"github.com/nathoo/questflow/types"
)

var (
	// ErrQuestActive is returned when a quest with the same ID is already
	// in the log.
	ErrQuestActive = errors.New("quest already active")
	// ErrPrerequisites is returned when a quest's prerequisite quests have
	// not all been completed.
	ErrPrerequisites = errors.New("quest prerequisites not met")
	// ErrNotResumable is returned by ResumeQuest for a quest that is not
	// InProgress.
	ErrNotResumable = errors.New("quest is not in progress")
)

// Engine tracks active quests and evaluates them against live game state.
// It is single-threaded: every method must be called from the game loop.
type Engine struct {
	Bus *events.Bus
	Ctx *services.Context

	log    *quest.Log
	binder *binding.Service
	eval   *Evaluator
	dirty  *DirtyQueue

	// quests that entered the log with every required objective already
	// Completed; they complete on the next tick
	settled []*quest.QuestState

	// outcome of every quest that reached a terminal status
	finished map[string]types.Status

	ticks       int
	evaluations int

	objectiveChanged Signal[ObjectiveChanged]
	questCompleted   Signal[*quest.QuestState]
	questFailed      Signal[*quest.QuestState]
	conditionChanged Signal[ConditionChanged]
}

// New creates an engine on bus, with conditions reading services from ctx.
// Nil arguments get fresh defaults.
func New(bus *events.Bus, ctx *services.Context) *Engine {
	if bus == nil {
		bus = events.NewBus()
	}
	if ctx == nil {
		ctx = services.NewContext(nil)
	}
	e := &Engine{
		Bus:              bus,
		Ctx:              ctx,
		log:              quest.NewLog(),
		dirty:            NewDirtyQueue(),
		finished:         map[string]types.Status{},
		objectiveChanged: Signal[ObjectiveChanged]{name: "objective changed"},
		questCompleted:   Signal[*quest.QuestState]{name: "quest completed"},
		questFailed:      Signal[*quest.QuestState]{name: "quest failed"},
		conditionChanged: Signal[ConditionChanged]{name: "condition changed"},
	}
	e.binder = binding.New(bus, ctx, e.dirty.MarkDirty, e.conditionCallback)
	e.eval = NewEvaluator(e.log, e.binder)
	return e
}

func (e *Engine) conditionCallback(o *quest.ObjectiveState, _ conditions.Instance, met bool) {
	e.conditionChanged.emit(e.Ctx.Logger(), ConditionChanged{Objective: o, Met: met})
}

// --- Lifecycle ---

// StartQuest creates a QuestState for def, registers it and activates the
// objectives whose prerequisites are satisfied.
func (e *Engine) StartQuest(def *types.QuestDef) (*quest.QuestState, error) {
	if def == nil {
		return nil, quest.ErrNilDefinition
	}
	if _, ok := e.log.Find(def.ID); ok {
		return nil, fmt.Errorf("start %s: %w", def.ID, ErrQuestActive)
	}
	if missing := e.missingPrerequisites(def); len(missing) > 0 {
		return nil, fmt.Errorf("start %s: %w: %v", def.ID, ErrPrerequisites, missing)
	}
	q, err := quest.NewQuestState(def)
	if err != nil {
		return nil, err
	}
	q.Start()
	e.log.Add(q)
	e.activateReadyObjectives(q)
	e.scheduleIfSettled(q)
	return q, nil
}

// ResumeQuest registers a restored InProgress quest. Objectives that can
// progress are bound and scheduled, whether restored InProgress or
// NotStarted. InProgress objectives still waiting on a prerequisite are
// bound once it completes.
func (e *Engine) ResumeQuest(q *quest.QuestState) error {
	if q == nil {
		return quest.ErrNilDefinition
	}
	if q.Status != types.StatusInProgress {
		return fmt.Errorf("resume %s: %w (status %s)", q.ID(), ErrNotResumable, q.Status)
	}
	if e.log.Contains(q) {
		return nil
	}
	if _, ok := e.log.Find(q.ID()); ok {
		return fmt.Errorf("resume %s: %w", q.ID(), ErrQuestActive)
	}
	e.log.Add(q)
	e.activateReadyObjectives(q)
	e.scheduleIfSettled(q)
	return nil
}

// StopQuest removes q from tracking without changing its status. It is
// safe to call at any time, including from a notification handler.
func (e *Engine) StopQuest(q *quest.QuestState) {
	if q == nil {
		return
	}
	e.binder.UnbindQuest(q)
	e.dirty.Forget(q)
	e.log.Remove(q)
	for i, sq := range e.settled {
		if sq == q {
			e.settled = append(e.settled[:i], e.settled[i+1:]...)
			break
		}
	}
}

// CompleteQuest forces an active quest to Completed. Reports whether the
// quest was active.
func (e *Engine) CompleteQuest(q *quest.QuestState) bool {
	if q == nil || !e.log.Contains(q) || !q.Complete() {
		return false
	}
	e.StopQuest(q)
	e.finished[q.ID()] = types.StatusCompleted
	e.questCompleted.emit(e.Ctx.Logger(), q)
	return true
}

// FailQuest forces an active quest to Failed. Reports whether the quest
// was active.
func (e *Engine) FailQuest(q *quest.QuestState) bool {
	if q == nil || !e.log.Contains(q) || !q.MarkFailed() {
		return false
	}
	e.StopQuest(q)
	e.finished[q.ID()] = types.StatusFailed
	e.questFailed.emit(e.Ctx.Logger(), q)
	return true
}

// RecordOutcome registers a terminal outcome for questID without a live
// QuestState, as when restoring finished quests from a save.
func (e *Engine) RecordOutcome(questID string, status types.Status) {
	if questID == "" || !status.IsTerminal() {
		return
	}
	e.finished[questID] = status
}

// --- Queries ---

// ActiveQuests returns the quests currently in the log, in start order.
func (e *Engine) ActiveQuests() []*quest.QuestState {
	return e.log.Active()
}

// Find returns the active quest with the given ID.
func (e *Engine) Find(id string) (*quest.QuestState, bool) {
	return e.log.Find(id)
}

// HasCompleted reports whether a quest with this ID has completed.
func (e *Engine) HasCompleted(questID string) bool {
	return e.finished[questID] == types.StatusCompleted
}

// Outcome returns the terminal status recorded for questID.
func (e *Engine) Outcome(questID string) (types.Status, bool) {
	s, ok := e.finished[questID]
	return s, ok
}

// Finished returns the recorded outcomes.
func (e *Engine) Finished() map[string]types.Status {
	out := make(map[string]types.Status, len(e.finished))
	for id, s := range e.finished {
		out[id] = s
	}
	return out
}

// CanStart reports whether def could be started now.
func (e *Engine) CanStart(def *types.QuestDef) bool {
	if def == nil || def.ID == "" {
		return false
	}
	if _, ok := e.log.Find(def.ID); ok {
		return false
	}
	return len(e.missingPrerequisites(def)) == 0
}

func (e *Engine) missingPrerequisites(def *types.QuestDef) []string {
	var missing []string
	for _, id := range def.Prerequisites {
		if id != "" && !e.HasCompleted(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

// IsBound reports whether o currently holds condition subscriptions.
func (e *Engine) IsBound(o *quest.ObjectiveState) bool {
	return e.binder.IsBound(o)
}

// Pending returns the number of pairs awaiting evaluation.
func (e *Engine) Pending() int {
	return e.dirty.Len() + len(e.settled)
}

// Ticks returns the number of completed Tick calls.
func (e *Engine) Ticks() int {
	return e.ticks
}

// Evaluations returns the number of Evaluate calls made so far.
func (e *Engine) Evaluations() int {
	return e.evaluations
}

// --- Notifications ---

// OnObjectiveChanged subscribes to objective status changes.
func (e *Engine) OnObjectiveChanged(fn func(ObjectiveChanged) error) (cancel func()) {
	return e.objectiveChanged.Subscribe(fn)
}

// OnQuestCompleted subscribes to quest completion.
func (e *Engine) OnQuestCompleted(fn func(*quest.QuestState) error) (cancel func()) {
	return e.questCompleted.Subscribe(fn)
}

// OnQuestFailed subscribes to quest failure.
func (e *Engine) OnQuestFailed(fn func(*quest.QuestState) error) (cancel func()) {
	return e.questFailed.Subscribe(fn)
}

// OnConditionChanged subscribes to raw condition callbacks.
func (e *Engine) OnConditionChanged(fn func(ConditionChanged) error) (cancel func()) {
	return e.conditionChanged.Subscribe(fn)
}
