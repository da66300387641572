package engine

import (
	"github.com/nathoo/questflow/engine/binding"
	"github.com/nathoo/questflow/engine/quest"
	"github.com/nathoo/questflow/types"
)

// Evaluator resolves condition state into objective and quest transitions.
type Evaluator struct {
	log    *quest.Log
	binder *binding.Service
}

// NewEvaluator creates an evaluator over the given log and binding service.
func NewEvaluator(log *quest.Log, binder *binding.Service) *Evaluator {
	return &Evaluator{log: log, binder: binder}
}

// Evaluate checks o's fail condition, then its completion condition, and
// applies the resulting transition. Fail always wins over completion.
func (ev *Evaluator) Evaluate(q *quest.QuestState, o *quest.ObjectiveState) types.EvalResult {
	if q.Status.IsTerminal() || !o.CanProgress(q) {
		return types.NoChange
	}

	// 1. Fail.
	if o.Fail != nil && o.Fail.IsMet() {
		ev.binder.UnbindObjective(o)
		ev.binder.UnbindQuest(q)
		o.MarkFailed()
		q.MarkFailed()
		ev.log.Remove(q)
		return types.QuestFailed
	}

	// 2. Completion.
	if o.Completion != nil && o.Completion.IsMet() {
		o.Start()
		ev.binder.UnbindObjective(o)
		o.Complete()
		if q.RequiredComplete() {
			q.Complete()
			ev.binder.UnbindQuest(q)
			ev.log.Remove(q)
			return types.QuestCompleted
		}
		return types.ObjectiveCompleted
	}

	return types.NoChange
}
