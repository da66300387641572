package engine

import (
	"github.com/nathoo/questflow/engine/quest"
	"github.com/nathoo/questflow/types"
)

// activateReadyObjectives starts every unbound, non-terminal objective of
// q whose prerequisites are met, binds its conditions and schedules it.
func (e *Engine) activateReadyObjectives(q *quest.QuestState) {
	for _, o := range q.Ordered() {
		if !o.CanProgress(q) || e.binder.IsBound(o) {
			continue
		}
		o.Start()
		e.binder.BindObjective(q, o)
		e.dirty.MarkDirty(q, o)
	}
}

// scheduleIfSettled queues q for completion when nothing is left for its
// objectives to do: no objectives at all, or only optional ones
// outstanding.
func (e *Engine) scheduleIfSettled(q *quest.QuestState) {
	if q.RequiredComplete() {
		e.settled = append(e.settled, q)
	}
}

// Poll refreshes the polling conditions of every objective that can
// progress. Poll never changes a status; transitions happen on Tick.
func (e *Engine) Poll() {
	for _, q := range e.log.Active() {
		if q.Status.IsTerminal() {
			continue
		}
		for _, o := range q.Ordered() {
			if !o.CanProgress(q) {
				continue
			}
			e.binder.RefreshPollingConditions(o)
		}
	}
}

// Tick drains the dirty queue once. Pairs marked while draining are
// evaluated on the next tick. Returns the number of pairs evaluated.
func (e *Engine) Tick() int {
	e.ticks++
	settled := e.settled
	e.settled = nil
	batch := e.dirty.drain()
	n := 0
	for _, q := range settled {
		if !e.log.Contains(q) || !q.RequiredComplete() {
			continue
		}
		n++
		e.evaluations++
		e.CompleteQuest(q)
	}
	for _, p := range batch {
		if !e.log.Contains(p.q) {
			continue
		}
		n++
		e.evaluations++
		res := e.eval.Evaluate(p.q, p.o)
		e.dispatch(p.q, p.o, res)
	}
	return n
}

func (e *Engine) dispatch(q *quest.QuestState, o *quest.ObjectiveState, res types.EvalResult) {
	logger := e.Ctx.Logger()
	switch res {
	case types.ObjectiveCompleted:
		e.objectiveChanged.emit(logger, ObjectiveChanged{Quest: q, Objective: o, Status: o.Status})
		// A handler may have stopped the quest.
		if e.log.Contains(q) {
			e.activateReadyObjectives(q)
		}

	case types.QuestCompleted:
		e.finished[q.ID()] = types.StatusCompleted
		e.objectiveChanged.emit(logger, ObjectiveChanged{Quest: q, Objective: o, Status: o.Status})
		e.questCompleted.emit(logger, q)

	case types.QuestFailed:
		e.dirty.Forget(q)
		e.finished[q.ID()] = types.StatusFailed
		e.objectiveChanged.emit(logger, ObjectiveChanged{Quest: q, Objective: o, Status: o.Status})
		e.questFailed.emit(logger, q)
	}
}

// Settle ticks until nothing is pending or limit ticks have run.
// Returns the number of ticks run.
func (e *Engine) Settle(limit int) int {
	n := 0
	for e.Pending() > 0 && n < limit {
		e.Tick()
		n++
	}
	return n
}
