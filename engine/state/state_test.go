package state

import (
	"math"
	"testing"

	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/services"
	"github.com/nathoo/questflow/types"
)

// Compile-time checks that the reference world implements the services.
var (
	_ services.Flags     = (*World)(nil)
	_ services.Inventory = (*World)(nil)
	_ services.Area      = (*World)(nil)
	_ services.Time      = (*Clock)(nil)
)

type captured struct {
	items []events.ItemCollected
	areas []events.AreaEntered
	flags []events.FlagChanged
}

func capture(bus *events.Bus) *captured {
	c := &captured{}
	events.AddListener(bus, func(e events.ItemCollected) { c.items = append(c.items, e) })
	events.AddListener(bus, func(e events.AreaEntered) { c.areas = append(c.areas, e) })
	events.AddListener(bus, func(e events.FlagChanged) { c.flags = append(c.flags, e) })
	return c
}

func TestDefs_Quest(t *testing.T) {
	d := &Defs{Quests: map[string]*types.QuestDef{"q": {ID: "q"}}}
	if q, ok := d.Quest("q"); !ok || q.ID != "q" {
		t.Errorf("Quest(q) = %v, %v", q, ok)
	}
	if _, ok := d.Quest("missing"); ok {
		t.Error("Quest(missing) should miss")
	}
}

func TestWorld_Flags(t *testing.T) {
	bus := events.NewBus()
	c := capture(bus)
	w := NewWorld(bus)

	if w.GetFlag("lever") {
		t.Error("unset flag should be false")
	}
	w.SetFlag("lever", false) // unset → false: no change
	w.SetFlag("lever", true)
	w.SetFlag("lever", true) // same value: no event
	w.SetFlag("lever", false)

	if len(c.flags) != 2 {
		t.Fatalf("flag events = %+v, want 2", c.flags)
	}
	if !c.flags[0].Value || c.flags[1].Value {
		t.Errorf("flag events = %+v", c.flags)
	}
	if !w.HasFlagBeenSet("lever") {
		t.Error("HasFlagBeenSet = false after set")
	}
	if w.HasFlagBeenSet("other") {
		t.Error("HasFlagBeenSet(other) = true")
	}
}

func TestWorld_Counters(t *testing.T) {
	w := NewWorld(nil)
	if got := w.IncrementCounter("visits", 2); got != 2 {
		t.Errorf("IncrementCounter = %d, want 2", got)
	}
	w.IncrementCounter("visits", -1)
	if w.GetCounter("visits") != 1 {
		t.Errorf("visits = %d, want 1", w.GetCounter("visits"))
	}
	w.SetCounter("visits", 10)
	if w.GetCounter("visits") != 10 {
		t.Errorf("visits = %d, want 10", w.GetCounter("visits"))
	}
}

func TestWorld_Inventory(t *testing.T) {
	bus := events.NewBus()
	c := capture(bus)
	w := NewWorld(bus)

	w.GiveItem("coin", 3)
	w.GiveItem("coin", 0)
	w.GiveItem("coin", -2)
	if w.GetItemCount("coin") != 3 {
		t.Errorf("coin = %d, want 3", w.GetItemCount("coin"))
	}
	if len(c.items) != 1 || c.items[0].Amount != 3 {
		t.Errorf("item events = %+v", c.items)
	}

	if got := w.RemoveItem("coin", 5); got != 3 {
		t.Errorf("RemoveItem = %d, want 3", got)
	}
	if w.HasItem("coin") {
		t.Error("HasItem after removing all")
	}
	if !w.HasEverCollected("coin") {
		t.Error("HasEverCollected = false")
	}
	if len(c.items) != 1 {
		t.Error("RemoveItem must not raise events")
	}
	if got := w.RemoveItem("nothing", 1); got != 0 {
		t.Errorf("RemoveItem(nothing) = %d", got)
	}
}

func TestWorld_MovePlayer(t *testing.T) {
	bus := events.NewBus()
	c := capture(bus)
	w := NewWorld(bus)

	w.MovePlayer("village")
	w.MovePlayer("village")
	w.MovePlayer("")
	w.MovePlayer("forest")

	if len(c.areas) != 2 {
		t.Fatalf("area events = %+v, want 2", c.areas)
	}
	if w.CurrentAreaID() != "forest" || !w.IsInArea("forest") || w.IsInArea("village") {
		t.Errorf("area = %q", w.CurrentAreaID())
	}
	if !w.HasEnteredArea("village") || w.HasEnteredArea("cave") {
		t.Error("HasEnteredArea mismatch")
	}
}

func TestWorld_SnapshotRestore(t *testing.T) {
	bus := events.NewBus()
	w := NewWorld(bus)
	w.MovePlayer("village")
	w.MovePlayer("vault")
	w.SetFlag("lever", true)
	w.SetCounter("visits", 4)
	w.GiveItem("key", 1)
	w.GiveItem("coin", 2)
	w.RemoveItem("coin", 2)

	snap := w.Snapshot()

	c := capture(bus)
	w2 := NewWorld(bus)
	w2.Restore(snap)

	if len(c.items)+len(c.areas)+len(c.flags) != 0 {
		t.Error("Restore must not raise events")
	}
	if w2.CurrentAreaID() != "vault" || !w2.HasEnteredArea("village") {
		t.Errorf("area not restored: %q", w2.CurrentAreaID())
	}
	if !w2.GetFlag("lever") || !w2.HasFlagBeenSet("lever") {
		t.Error("flag not restored")
	}
	if w2.GetCounter("visits") != 4 {
		t.Errorf("visits = %d", w2.GetCounter("visits"))
	}
	if w2.GetItemCount("key") != 1 || w2.HasItem("coin") || !w2.HasEverCollected("coin") {
		t.Errorf("inventory = %v", w2.Inventory())
	}

	// Snapshot maps are copies.
	snap.Flags["lever"] = false
	if !w.GetFlag("lever") {
		t.Error("snapshot shares the flag map")
	}
}

func TestClock(t *testing.T) {
	c := NewClock(100)
	c.Advance(30)
	c.Advance(-5)
	if c.TotalElapsedSeconds() != 30 || c.DeltaSeconds() != 0 {
		t.Errorf("total=%v delta=%v", c.TotalElapsedSeconds(), c.DeltaSeconds())
	}
	c.Advance(95)
	if c.DeltaSeconds() != 95 {
		t.Errorf("delta = %v, want 95", c.DeltaSeconds())
	}
	if c.CurrentDay() != 2 {
		t.Errorf("CurrentDay = %d, want 2", c.CurrentDay())
	}
	if math.Abs(c.TimeOfDay()-0.25) > 1e-9 {
		t.Errorf("TimeOfDay = %v, want 0.25", c.TimeOfDay())
	}

	c.Set(10)
	if c.TotalElapsedSeconds() != 10 || c.CurrentDay() != 1 {
		t.Errorf("after Set: total=%v day=%d", c.TotalElapsedSeconds(), c.CurrentDay())
	}

	if NewClock(0).DayLength != DefaultDayLength {
		t.Error("non-positive day length should use the default")
	}
}
