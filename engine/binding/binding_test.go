package binding

import (
	"io"
	"log"
	"testing"

	"github.com/nathoo/questflow/engine/conditions"
	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/quest"
	"github.com/nathoo/questflow/engine/services"
	"github.com/nathoo/questflow/types"
)

type pair struct {
	q *quest.QuestState
	o *quest.ObjectiveState
}

type change struct {
	o    *quest.ObjectiveState
	inst conditions.Instance
	met  bool
}

type fixture struct {
	bus     *events.Bus
	ctx     *services.Context
	svc     *Service
	dirty   []pair
	changes []change
}

type stubClock struct{ total float64 }

func (c *stubClock) TotalElapsedSeconds() float64 { return c.total }
func (c *stubClock) DeltaSeconds() float64        { return 0 }
func (c *stubClock) TimeOfDay() float64           { return 0 }
func (c *stubClock) CurrentDay() int              { return 1 }

func newFixture() *fixture {
	f := &fixture{
		bus: events.NewBus(),
		ctx: services.NewContext(log.New(io.Discard, "", 0)),
	}
	f.svc = New(f.bus, f.ctx,
		func(q *quest.QuestState, o *quest.ObjectiveState) { f.dirty = append(f.dirty, pair{q, o}) },
		func(o *quest.ObjectiveState, inst conditions.Instance, met bool) {
			f.changes = append(f.changes, change{o, inst, met})
		},
	)
	return f
}

func testQuest(t *testing.T) *quest.QuestState {
	t.Helper()
	q, err := quest.NewQuestState(&types.QuestDef{
		ID: "q",
		Objectives: []types.ObjectiveDef{
			{
				ID:         "collect",
				Completion: &types.ConditionSpec{Type: types.CondItemCollected, Params: map[string]any{"item": "key", "count": 1}},
				Fail:       &types.ConditionSpec{Type: types.CondCustomFlag, Params: map[string]any{"flag": "alarm", "value": true}},
			},
			{
				ID:         "wait",
				Completion: &types.ConditionSpec{Type: types.CondTimeElapsed, Params: map[string]any{"seconds": 10}},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewQuestState: %v", err)
	}
	return q
}

func TestBindObjective_ForwardsChangesAndMarksDirty(t *testing.T) {
	f := newFixture()
	q := testQuest(t)
	o := q.Objectives["collect"]

	f.svc.BindObjective(q, o)
	events.Raise(f.bus, events.ItemCollected{ItemID: "key", Amount: 1})

	if len(f.changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(f.changes))
	}
	if f.changes[0].o != o || f.changes[0].inst != o.Completion || !f.changes[0].met {
		t.Errorf("change = %+v", f.changes[0])
	}
	if len(f.dirty) != 1 || f.dirty[0].q != q || f.dirty[0].o != o {
		t.Errorf("dirty = %+v", f.dirty)
	}

	events.Raise(f.bus, events.FlagChanged{FlagID: "alarm", Value: true})
	if len(f.changes) != 2 || f.changes[1].inst != o.Fail {
		t.Errorf("fail condition change not forwarded: %+v", f.changes)
	}
}

func TestBindObjective_Idempotent(t *testing.T) {
	f := newFixture()
	q := testQuest(t)
	o := q.Objectives["collect"]

	f.svc.BindObjective(q, o)
	f.svc.BindObjective(q, o)

	if n := events.ListenerCount[events.ItemCollected](f.bus); n != 1 {
		t.Errorf("item listeners = %d, want 1", n)
	}
	if f.svc.BoundCount() != 1 {
		t.Errorf("BoundCount = %d, want 1", f.svc.BoundCount())
	}
}

func TestUnbindObjective_RemovesSubscriptions(t *testing.T) {
	f := newFixture()
	q := testQuest(t)
	o := q.Objectives["collect"]

	f.svc.BindObjective(q, o)
	f.svc.UnbindObjective(o)
	f.svc.UnbindObjective(o)

	if f.svc.IsBound(o) {
		t.Error("objective still bound")
	}
	if n := events.ListenerCount[events.ItemCollected](f.bus); n != 0 {
		t.Errorf("item listeners = %d, want 0", n)
	}
	if n := events.ListenerCount[events.FlagChanged](f.bus); n != 0 {
		t.Errorf("flag listeners = %d, want 0", n)
	}

	events.Raise(f.bus, events.ItemCollected{ItemID: "key", Amount: 1})
	if len(f.dirty) != 0 || len(f.changes) != 0 {
		t.Errorf("callbacks after unbind: dirty=%d changes=%d", len(f.dirty), len(f.changes))
	}
}

func TestUnbindQuest_RemovesAllObjectives(t *testing.T) {
	f := newFixture()
	q := testQuest(t)
	for _, o := range q.Ordered() {
		f.svc.BindObjective(q, o)
	}
	f.svc.UnbindQuest(q)

	if f.svc.BoundCount() != 0 {
		t.Errorf("BoundCount = %d, want 0", f.svc.BoundCount())
	}
}

func TestRefreshPollingConditions(t *testing.T) {
	f := newFixture()
	clock := &stubClock{}
	services.Register[services.Time](f.ctx, clock)
	q := testQuest(t)
	o := q.Objectives["wait"]

	// Unbound objectives are not refreshed.
	clock.total = 50
	f.svc.RefreshPollingConditions(o)
	if o.Completion.(*conditions.TimeElapsed).Elapsed() != 0 {
		t.Fatal("unbound objective was refreshed")
	}

	f.svc.BindObjective(q, o)
	clock.total = 55
	f.svc.RefreshPollingConditions(o)
	if len(f.dirty) != 0 {
		t.Fatalf("dirty before requirement reached: %+v", f.dirty)
	}
	clock.total = 61
	f.svc.RefreshPollingConditions(o)

	if !o.Completion.IsMet() {
		t.Fatal("expected time condition met")
	}
	if len(f.dirty) != 1 || f.dirty[0].o != o {
		t.Errorf("dirty = %+v, want one entry for wait", f.dirty)
	}
}

func TestRefreshPollingConditions_IgnoresEventConditions(t *testing.T) {
	f := newFixture()
	q := testQuest(t)
	o := q.Objectives["collect"]
	f.svc.BindObjective(q, o)

	f.svc.RefreshPollingConditions(o)
	if len(f.dirty) != 0 {
		t.Errorf("event-only objective marked dirty by refresh: %+v", f.dirty)
	}
}
