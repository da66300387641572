// Package state holds the loaded game definitions and the in-memory
// reference world: flags, counters, inventory, the player's area and the
// game clock. Mutations raise the matching bus events.
package state

import (
	"math"
	"sort"

	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/types"
)

// Defs holds the immutable game definitions loaded from Lua.
type Defs struct {
	Game   types.GameDef
	Areas  map[string]types.AreaDef
	Quests map[string]*types.QuestDef
	Order  []string // quest IDs in declaration order
}

// Quest returns the definition with the given ID.
func (d *Defs) Quest(id string) (*types.QuestDef, bool) {
	q, ok := d.Quests[id]
	return q, ok
}

// World is the mutable sandbox state. It implements services.Flags,
// services.Inventory and services.Area.
type World struct {
	bus *events.Bus

	flags     map[string]bool
	everSet   map[string]bool
	counters  map[string]int
	inventory map[string]int
	collected map[string]bool
	area      string
	visited   map[string]bool
}

// NewWorld creates an empty world raising events on bus. A nil bus is
// allowed; mutations then raise nothing.
func NewWorld(bus *events.Bus) *World {
	return &World{
		bus:       bus,
		flags:     map[string]bool{},
		everSet:   map[string]bool{},
		counters:  map[string]int{},
		inventory: map[string]int{},
		collected: map[string]bool{},
		visited:   map[string]bool{},
	}
}

// --- services.Flags ---

// GetFlag returns the value of a flag. Unset flags return false.
func (w *World) GetFlag(id string) bool {
	return w.flags[id]
}

// SetFlag sets a flag and raises FlagChanged when the value changes.
func (w *World) SetFlag(id string, value bool) {
	old, had := w.flags[id]
	w.flags[id] = value
	if value {
		w.everSet[id] = true
	}
	if had && old == value {
		return
	}
	if !had && !value {
		return
	}
	if w.bus != nil {
		events.Raise(w.bus, events.FlagChanged{FlagID: id, Value: value})
	}
}

// HasFlagBeenSet reports whether the flag was ever true.
func (w *World) HasFlagBeenSet(id string) bool {
	return w.everSet[id]
}

// GetCounter returns the value of a counter. Unset counters return 0.
func (w *World) GetCounter(id string) int {
	return w.counters[id]
}

// SetCounter sets a counter.
func (w *World) SetCounter(id string, value int) {
	w.counters[id] = value
}

// IncrementCounter adds amount to a counter and returns the new value.
func (w *World) IncrementCounter(id string, amount int) int {
	w.counters[id] += amount
	return w.counters[id]
}

// --- services.Inventory ---

// GetItemCount returns how many of an item the player holds.
func (w *World) GetItemCount(itemID string) int {
	return w.inventory[itemID]
}

// HasItem returns true if the player holds at least one of the item.
func (w *World) HasItem(itemID string) bool {
	return w.inventory[itemID] > 0
}

// HasEverCollected reports whether the item was ever given to the player.
func (w *World) HasEverCollected(itemID string) bool {
	return w.collected[itemID]
}

// GiveItem adds amount of an item and raises ItemCollected. Non-positive
// amounts are ignored.
func (w *World) GiveItem(itemID string, amount int) {
	if amount <= 0 {
		return
	}
	w.inventory[itemID] += amount
	w.collected[itemID] = true
	if w.bus != nil {
		events.Raise(w.bus, events.ItemCollected{ItemID: itemID, Amount: amount})
	}
}

// RemoveItem removes up to amount of an item. Returns how many were
// removed. No event is raised: collection progress never decreases.
func (w *World) RemoveItem(itemID string, amount int) int {
	have := w.inventory[itemID]
	if amount > have {
		amount = have
	}
	if amount <= 0 {
		return 0
	}
	w.inventory[itemID] = have - amount
	if w.inventory[itemID] == 0 {
		delete(w.inventory, itemID)
	}
	return amount
}

// Inventory returns a copy of the held items.
func (w *World) Inventory() map[string]int {
	out := make(map[string]int, len(w.inventory))
	for id, n := range w.inventory {
		out[id] = n
	}
	return out
}

// --- services.Area ---

// CurrentAreaID returns the player's area.
func (w *World) CurrentAreaID() string {
	return w.area
}

// HasEnteredArea reports whether the player has ever been in the area.
func (w *World) HasEnteredArea(areaID string) bool {
	return w.visited[areaID]
}

// IsInArea reports whether the player is in the area now.
func (w *World) IsInArea(areaID string) bool {
	return w.area == areaID
}

// MovePlayer moves the player and raises AreaEntered. Moving to the
// current area raises nothing.
func (w *World) MovePlayer(areaID string) {
	if areaID == "" || areaID == w.area {
		return
	}
	w.area = areaID
	w.visited[areaID] = true
	if w.bus != nil {
		events.Raise(w.bus, events.AreaEntered{AreaID: areaID})
	}
}

// --- Persistence ---

// Snapshot is the serializable form of a World.
type Snapshot struct {
	Area      string
	Visited   []string
	Flags     map[string]bool
	Counters  map[string]int
	Inventory map[string]int
	Collected []string
}

// Snapshot copies the world's contents.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Area:      w.area,
		Flags:     make(map[string]bool, len(w.flags)),
		Counters:  make(map[string]int, len(w.counters)),
		Inventory: w.Inventory(),
		Visited:   sortedKeys(w.visited),
		Collected: sortedKeys(w.collected),
	}
	for k, v := range w.flags {
		s.Flags[k] = v
	}
	for k, v := range w.counters {
		s.Counters[k] = v
	}
	return s
}

// Restore replaces the world's contents without raising events.
func (w *World) Restore(s Snapshot) {
	w.area = s.Area
	w.flags = map[string]bool{}
	w.everSet = map[string]bool{}
	w.counters = map[string]int{}
	w.inventory = map[string]int{}
	w.collected = map[string]bool{}
	w.visited = map[string]bool{}
	for k, v := range s.Flags {
		w.flags[k] = v
		if v {
			w.everSet[k] = true
		}
	}
	for k, v := range s.Counters {
		w.counters[k] = v
	}
	for k, v := range s.Inventory {
		if v > 0 {
			w.inventory[k] = v
		}
	}
	for _, id := range s.Collected {
		w.collected[id] = true
	}
	for _, id := range s.Visited {
		w.visited[id] = true
	}
	if s.Area != "" {
		w.visited[s.Area] = true
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// DefaultDayLength is the length of a game day in seconds.
const DefaultDayLength = 600.0

// Clock is a manually advanced game clock. It implements services.Time.
type Clock struct {
	DayLength float64

	total float64
	delta float64
}

// NewClock creates a clock at zero. A non-positive dayLength uses
// DefaultDayLength.
func NewClock(dayLength float64) *Clock {
	if dayLength <= 0 {
		dayLength = DefaultDayLength
	}
	return &Clock{DayLength: dayLength}
}

// Advance moves the clock forward. Negative values are ignored.
func (c *Clock) Advance(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	c.delta = seconds
	c.total += seconds
}

// Set places the clock at an absolute time, as when loading a save.
func (c *Clock) Set(total float64) {
	c.total = total
	c.delta = 0
}

// TotalElapsedSeconds returns the time since the clock started.
func (c *Clock) TotalElapsedSeconds() float64 {
	return c.total
}

// DeltaSeconds returns the size of the last Advance.
func (c *Clock) DeltaSeconds() float64 {
	return c.delta
}

// TimeOfDay returns the position within the current day in [0,1).
func (c *Clock) TimeOfDay() float64 {
	return math.Mod(c.total, c.DayLength) / c.DayLength
}

// CurrentDay returns the 1-based day number.
func (c *Clock) CurrentDay() int {
	return int(c.total/c.DayLength) + 1
}
