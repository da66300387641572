// Package sandbox provides the Step() orchestrator that drives the quest
// engine from typed commands: parse, mutate the world, poll, tick.
package sandbox

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/questflow/engine"
	"github.com/nathoo/questflow/engine/conditions"
	"github.com/nathoo/questflow/engine/effects"
	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/parser"
	"github.com/nathoo/questflow/engine/quest"
	"github.com/nathoo/questflow/engine/resolve"
	"github.com/nathoo/questflow/engine/save"
	"github.com/nathoo/questflow/engine/services"
	"github.com/nathoo/questflow/engine/state"
	"github.com/nathoo/questflow/types"
)

// SaveVersion is written to every save file.
const SaveVersion = "1"

const (
	DefaultMaxSettleTicks = 32
	DefaultWaitSeconds    = 10.0
)

var (
	// ErrUnknownQuest is returned when a snapshot names a quest the loaded
	// game does not define.
	ErrUnknownQuest = errors.New("unknown quest")
	// ErrWrongGame is returned when loading a save made for another game.
	ErrWrongGame = errors.New("save belongs to another game")
)

// Options tunes a session. Zero values get defaults.
type Options struct {
	PollInterval   float64 // game seconds between polls; 0 polls after every step
	MaxSettleTicks int
	DayLength      float64
	WaitSeconds    float64 // time advanced by a bare "wait"
	Logger         *log.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxSettleTicks <= 0 {
		o.MaxSettleTicks = DefaultMaxSettleTicks
	}
	if o.WaitSeconds <= 0 {
		o.WaitSeconds = DefaultWaitSeconds
	}
	if o.PollInterval < 0 {
		o.PollInterval = 0
	}
	return o
}

// Session holds the game definitions and one live world, clock and engine.
type Session struct {
	Defs   *state.Defs
	Engine *engine.Engine
	World  *state.World
	Clock  *state.Clock

	CommandLog []string

	opts        Options
	lastPoll    float64
	turns       int
	trace       bool
	traceCancel func()
	cancels     []func()
	out         *types.Result // result of the call in progress
}

// New creates a session for defs. Call Begin before the first Step.
func New(defs *state.Defs, opts Options) *Session {
	s := &Session{Defs: defs, opts: opts.withDefaults()}
	s.reset()
	return s
}

// reset builds a fresh bus, world, clock and engine and subscribes the
// session to the engine's notifications.
func (s *Session) reset() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.traceCancel = nil

	bus := events.NewBus()
	s.World = state.NewWorld(bus)
	s.Clock = state.NewClock(s.opts.DayLength)

	ctx := services.NewContext(s.opts.Logger)
	services.Register[services.Flags](ctx, s.World)
	services.Register[services.Inventory](ctx, s.World)
	services.Register[services.Area](ctx, s.World)
	services.Register[services.Time](ctx, s.Clock)

	s.Engine = engine.New(bus, ctx)
	s.lastPoll = 0
	s.turns = 0
	s.cancels = append(s.cancels,
		s.Engine.OnObjectiveChanged(s.objectiveChanged),
		s.Engine.OnQuestCompleted(s.questCompleted),
		s.Engine.OnQuestFailed(s.questFailed),
	)
	if s.trace {
		s.SetTrace(true)
	}
}

// Turns returns the number of steps taken.
func (s *Session) Turns() int {
	return s.turns
}

// Tracing reports whether condition tracing is on.
func (s *Session) Tracing() bool {
	return s.trace
}

// SetTrace turns per-condition trace output on or off.
func (s *Session) SetTrace(on bool) {
	s.trace = on
	if s.traceCancel != nil {
		s.traceCancel()
		s.traceCancel = nil
	}
	if on {
		s.traceCancel = s.Engine.OnConditionChanged(s.conditionChanged)
	}
}

// Begin places the player in the start area and starts the auto_start
// quests.
func (s *Session) Begin() types.Result {
	var result types.Result
	s.out = &result
	defer func() { s.out = nil }()

	if start := s.Defs.Game.Start; start != "" {
		s.World.MovePlayer(start)
	}
	for _, id := range s.Defs.Game.AutoStart {
		s.startQuest(id)
	}
	s.settle()
	return result
}

// Step processes one command and returns the result.
func (s *Session) Step(input string) types.Result {
	var result types.Result
	s.out = &result
	defer func() { s.out = nil }()

	// 1. Parse input.
	intent := parser.Parse(input)

	// 2. Log the command.
	s.CommandLog = append(s.CommandLog, input)

	// 3. Empty input.
	if intent.Verb == "" {
		result.Output = append(result.Output, "What do you want to do?")
		return result
	}

	// 4. Built-in behavior: direct output plus effects to apply.
	effs, out := s.builtinBehavior(intent)
	result.Output = append(result.Output, out...)

	// 5. Apply effects. World mutations raise bus events, which mark
	// objectives dirty.
	s.applyEffects(effs, effects.Context{})

	// 6. Poll when the clock crossed the interval.
	s.maybePoll()

	// 7. Tick until the dirty set drains.
	s.settle()

	// 8. Increment turn count.
	s.turns++

	return result
}

func (s *Session) maybePoll() {
	now := s.Clock.TotalElapsedSeconds()
	if s.opts.PollInterval > 0 && now-s.lastPoll < s.opts.PollInterval {
		return
	}
	s.lastPoll = now
	s.Engine.Poll()
}

func (s *Session) settle() {
	s.Engine.Settle(s.opts.MaxSettleTicks)
	if n := s.Engine.Pending(); n > 0 {
		s.Engine.Ctx.Logger().Printf("sandbox: %d pairs still pending after %d ticks", n, s.opts.MaxSettleTicks)
	}
}

// applyEffects applies effs to the world and handles the start_quest
// events they emit.
func (s *Session) applyEffects(effs []types.Effect, ctx effects.Context) {
	if len(effs) == 0 {
		return
	}
	evts, output := effects.Apply(s.World, s.Defs, effs, ctx)
	if s.out != nil {
		s.out.Effects = append(s.out.Effects, effs...)
		s.out.Events = append(s.out.Events, evts...)
	}
	s.say(output...)
	for _, ev := range evts {
		if ev.Type != effects.StartQuest {
			continue
		}
		if id, _ := ev.Data["quest"].(string); id != "" {
			s.startQuest(id)
		}
	}
}

func (s *Session) say(lines ...string) {
	if s.out == nil || len(lines) == 0 {
		return
	}
	s.out.Output = append(s.out.Output, lines...)
}

func (s *Session) startQuest(id string) {
	def, ok := s.Defs.Quest(id)
	if !ok {
		s.say(fmt.Sprintf("There is no quest called %q.", id))
		return
	}
	if status, done := s.Engine.Outcome(id); done {
		s.say(fmt.Sprintf("%s is already %s.", title(def), strings.ToLower(status.String())))
		return
	}
	_, err := s.Engine.StartQuest(def)
	switch {
	case errors.Is(err, engine.ErrQuestActive):
		s.say(fmt.Sprintf("%s is already active.", title(def)))
	case errors.Is(err, engine.ErrPrerequisites):
		s.say(fmt.Sprintf("You can't start %s yet.", title(def)))
	case err != nil:
		s.say(fmt.Sprintf("Cannot start %s: %v", title(def), err))
	default:
		s.say("Quest started: " + title(def))
	}
}

// --- Notifications ---

func (s *Session) objectiveChanged(c engine.ObjectiveChanged) error {
	desc := c.Objective.Def.Description
	if desc == "" {
		desc = c.Objective.ID()
	}
	switch c.Status {
	case types.StatusCompleted:
		s.say("Objective complete: " + desc)
	case types.StatusFailed:
		s.say("Objective failed: " + desc)
	}
	return nil
}

func (s *Session) questCompleted(q *quest.QuestState) error {
	s.say("Quest complete: " + title(q.Def))
	s.applyEffects(q.Def.Rewards, effects.Context{QuestID: q.ID(), QuestTitle: title(q.Def)})
	return nil
}

func (s *Session) questFailed(q *quest.QuestState) error {
	s.say("Quest failed: " + title(q.Def))
	return nil
}

func (s *Session) conditionChanged(c engine.ConditionChanged) error {
	s.say(fmt.Sprintf("[trace] %s: condition met=%t (%s)", c.Objective.ID(), c.Met, conditions.Describe(c.Objective.Completion)))
	return nil
}

// --- Built-in commands ---

// builtinBehavior handles one parsed command. Returns effects to apply
// and direct output text.
func (s *Session) builtinBehavior(intent types.Intent) ([]types.Effect, []string) {
	switch intent.Verb {
	case "take":
		return s.builtinTake(intent)
	case "drop":
		return s.builtinDrop(intent)
	case "go":
		return s.builtinGo(intent.Object)
	case "set":
		return s.builtinSet(intent.Object, flagValue(intent.Amount))
	case "unset":
		return s.builtinSet(intent.Object, false)
	case "wait":
		return s.builtinWait(intent.Amount)
	case "start":
		if intent.Object == "" {
			return nil, []string{"Start which quest?"}
		}
		id, err := resolve.Quest(s.Defs, intent.Object)
		if err != nil {
			return nil, []string{sentence(err)}
		}
		return []types.Effect{{Type: effects.StartQuest, Params: map[string]any{"quest": id}}}, nil
	case "abandon", "complete", "fail":
		return nil, s.builtinOverride(intent.Verb, intent.Object)
	case "quests":
		return nil, s.DescribeQuests()
	case "inventory":
		return nil, []string{"You are carrying: " + effects.FormatInventory(s.World.Inventory()) + "."}
	case "look":
		return nil, s.Look()
	default:
		return nil, []string{fmt.Sprintf("I don't know how to %q.", intent.Verb)}
	}
}

func (s *Session) builtinTake(intent types.Intent) ([]types.Effect, []string) {
	if intent.Object == "" {
		return nil, []string{"Take what?"}
	}
	n, err := parseCount(intent.Amount)
	if err != nil || n <= 0 {
		return nil, []string{"You can't take that many."}
	}
	effs := []types.Effect{
		{Type: effects.GiveItem, Params: map[string]any{"item": intent.Object, "count": n}},
	}
	return effs, []string{fmt.Sprintf("You take %s.", itemLabel(intent.Object, n))}
}

func (s *Session) builtinDrop(intent types.Intent) ([]types.Effect, []string) {
	if intent.Object == "" {
		return nil, []string{"Drop what?"}
	}
	have := s.World.GetItemCount(intent.Object)
	if have == 0 {
		return nil, []string{"You don't have that."}
	}
	n, err := parseCount(intent.Amount)
	if err != nil || n <= 0 {
		return nil, []string{"You can't drop that many."}
	}
	if n > have {
		n = have
	}
	effs := []types.Effect{
		{Type: effects.RemoveItem, Params: map[string]any{"item": intent.Object, "count": n}},
	}
	return effs, []string{fmt.Sprintf("You drop %s.", itemLabel(intent.Object, n))}
}

func (s *Session) builtinGo(target string) ([]types.Effect, []string) {
	if target == "" {
		return nil, []string{"Go where?"}
	}
	if len(s.Defs.Areas) > 0 {
		id, err := resolve.Area(s.Defs, target)
		if err != nil {
			return nil, []string{sentence(err)}
		}
		target = id
	}
	if target == s.World.CurrentAreaID() {
		return nil, []string{"You are already there."}
	}
	if len(s.Defs.Areas) > 0 {
		cur, ok := s.Defs.Areas[s.World.CurrentAreaID()]
		if ok && len(cur.Exits) > 0 && !contains(cur.Exits, target) {
			return nil, []string{"You can't get there from here."}
		}
	}
	effs := []types.Effect{
		{Type: effects.MovePlayer, Params: map[string]any{"area": target}},
	}
	return effs, s.describeArea(target)
}

func (s *Session) builtinSet(flag string, value bool) ([]types.Effect, []string) {
	if flag == "" {
		return nil, []string{"Set which flag?"}
	}
	effs := []types.Effect{
		{Type: effects.SetFlag, Params: map[string]any{"flag": flag, "value": value}},
	}
	word := "off"
	if value {
		word = "on"
	}
	return effs, []string{fmt.Sprintf("Flag %s is now %s.", flag, word)}
}

func (s *Session) builtinWait(amount string) ([]types.Effect, []string) {
	seconds := s.opts.WaitSeconds
	if amount != "" {
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil || v <= 0 {
			return nil, []string{"Wait how long?"}
		}
		seconds = v
	}
	s.Clock.Advance(seconds)
	return nil, []string{fmt.Sprintf("Time passes. It is %s.", FormatTime(s.Clock))}
}

func (s *Session) builtinOverride(verb, id string) []string {
	if id == "" {
		return []string{strings.ToUpper(verb[:1]) + verb[1:] + " which quest?"}
	}
	var nf *resolve.NotFoundError
	resolved, err := resolve.Quest(s.Defs, id)
	switch {
	case errors.As(err, &nf):
	case err != nil:
		return []string{sentence(err)}
	default:
		id = resolved
	}
	q, ok := s.Engine.Find(id)
	if !ok {
		return []string{fmt.Sprintf("No active quest called %q.", id)}
	}
	switch verb {
	case "abandon":
		s.Engine.StopQuest(q)
		return []string{"Quest abandoned: " + title(q.Def)}
	case "complete":
		s.Engine.CompleteQuest(q)
	case "fail":
		s.Engine.FailQuest(q)
	}
	return nil
}

// --- Descriptions ---

// Look describes the current area and time without taking a turn.
func (s *Session) Look() []string {
	return append(s.describeArea(s.World.CurrentAreaID()), "It is "+FormatTime(s.Clock)+".")
}

func (s *Session) describeArea(id string) []string {
	a, ok := s.Defs.Areas[id]
	if !ok {
		if id == "" {
			return []string{"You are nowhere in particular."}
		}
		return []string{fmt.Sprintf("You are in %s.", id)}
	}
	name := a.Name
	if name == "" {
		name = a.ID
	}
	out := []string{name}
	if a.Description != "" {
		out = append(out, a.Description)
	}
	if len(a.Exits) > 0 {
		exits := append([]string(nil), a.Exits...)
		sort.Strings(exits)
		out = append(out, "Exits: "+strings.Join(exits, ", ")+".")
	}
	return out
}

// DescribeQuests lists active quests with objective progress, then
// finished quests.
func (s *Session) DescribeQuests() []string {
	active := s.Engine.ActiveQuests()
	finished := s.Engine.Finished()
	if len(active) == 0 && len(finished) == 0 {
		return []string{"You have no quests."}
	}

	var out []string
	for _, q := range active {
		out = append(out, fmt.Sprintf("%s [%s]", title(q.Def), q.Status))
		for _, o := range q.Ordered() {
			line := fmt.Sprintf("  %s %s", objectiveMarker(q, o), o.ID())
			if o.Def.Description != "" {
				line += ": " + o.Def.Description
			}
			if o.Status == types.StatusInProgress {
				line += " (" + conditions.Describe(o.Completion) + ")"
			}
			if o.Def.Optional {
				line += " [optional]"
			}
			out = append(out, line)
		}
	}

	ids := make([]string, 0, len(finished))
	for id := range finished {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		name := id
		if def, ok := s.Defs.Quest(id); ok {
			name = title(def)
		}
		out = append(out, fmt.Sprintf("%s [%s]", name, finished[id]))
	}
	return out
}

func objectiveMarker(q *quest.QuestState, o *quest.ObjectiveState) string {
	switch o.Status {
	case types.StatusCompleted:
		return "[x]"
	case types.StatusFailed:
		return "[!]"
	case types.StatusInProgress:
		return "[ ]"
	}
	if !o.CanProgress(q) {
		return "[-]"
	}
	return "[ ]"
}

// FormatTime renders the clock as "day N, HH:MM".
func FormatTime(c *state.Clock) string {
	into := math.Mod(c.TotalElapsedSeconds(), c.DayLength)
	minutes := int(into * 24 * 60 / c.DayLength)
	return fmt.Sprintf("day %d, %02d:%02d", c.CurrentDay(), minutes/60, minutes%60)
}

// --- Save / load ---

// Snapshots captures every active quest followed by the recorded outcome
// of every finished quest, in ID order.
func (s *Session) Snapshots() []save.Snapshot {
	var out []save.Snapshot
	for _, q := range s.Engine.ActiveQuests() {
		out = append(out, save.Capture(q))
	}
	finished := s.Engine.Finished()
	ids := make([]string, 0, len(finished))
	for id := range finished {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, save.Snapshot{QuestID: id, Status: finished[id]})
	}
	return out
}

// RestoreSnapshots adds snaps to the running engine: finished quests are
// recorded as outcomes, InProgress quests are rebuilt and resumed. Nothing
// is applied if any snapshot is invalid.
func (s *Session) RestoreSnapshots(snaps []save.Snapshot) error {
	restored, outcomes, err := s.prepare(snaps)
	if err != nil {
		return err
	}
	return s.resume(restored, outcomes)
}

func (s *Session) prepare(snaps []save.Snapshot) ([]*quest.QuestState, []save.Snapshot, error) {
	var restored []*quest.QuestState
	var outcomes []save.Snapshot
	seen := map[string]bool{}
	for i := range snaps {
		snap := &snaps[i]
		if snap.QuestID == "" {
			return nil, nil, fmt.Errorf("quest %d: %w", i, save.ErrEmptyQuestID)
		}
		if seen[snap.QuestID] {
			return nil, nil, fmt.Errorf("quest %s: %w", snap.QuestID, engine.ErrQuestActive)
		}
		seen[snap.QuestID] = true
		if snap.Status.IsTerminal() {
			outcomes = append(outcomes, *snap)
			continue
		}
		def, ok := s.Defs.Quest(snap.QuestID)
		if !ok {
			return nil, nil, fmt.Errorf("quest %s: %w", snap.QuestID, ErrUnknownQuest)
		}
		q, err := save.Restore(snap, def)
		if err != nil {
			return nil, nil, fmt.Errorf("restore: %w", err)
		}
		if q.Status == types.StatusInProgress {
			restored = append(restored, q)
		}
	}
	return restored, outcomes, nil
}

func (s *Session) resume(restored []*quest.QuestState, outcomes []save.Snapshot) error {
	for _, snap := range outcomes {
		s.Engine.RecordOutcome(snap.QuestID, snap.Status)
	}
	for _, q := range restored {
		if err := s.Engine.ResumeQuest(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveFile captures the world, clock and quests.
func (s *Session) SaveFile() *save.File {
	ws := s.World.Snapshot()
	return &save.File{
		Version:   SaveVersion,
		Game:      s.Defs.Game.Title,
		Tick:      s.turns,
		Elapsed:   s.Clock.TotalElapsedSeconds(),
		Area:      ws.Area,
		Visited:   ws.Visited,
		Flags:     ws.Flags,
		Counters:  ws.Counters,
		Inventory: ws.Inventory,
		Collected: ws.Collected,
		Quests:    s.Snapshots(),
	}
}

// LoadFile replaces the session with the contents of f. On error the
// session is left untouched.
func (s *Session) LoadFile(f *save.File) (types.Result, error) {
	var result types.Result
	if f == nil {
		return result, save.ErrMissingQuestID
	}
	if f.Game != "" && f.Game != s.Defs.Game.Title {
		return result, fmt.Errorf("%w: %q", ErrWrongGame, f.Game)
	}
	restored, outcomes, err := s.prepare(f.Quests)
	if err != nil {
		return result, err
	}

	s.reset()
	s.World.Restore(state.Snapshot{
		Area:      f.Area,
		Visited:   f.Visited,
		Flags:     f.Flags,
		Counters:  f.Counters,
		Inventory: f.Inventory,
		Collected: f.Collected,
	})
	s.Clock.Set(f.Elapsed)
	s.lastPoll = f.Elapsed
	s.turns = f.Tick

	s.out = &result
	defer func() { s.out = nil }()
	if err := s.resume(restored, outcomes); err != nil {
		return result, err
	}
	s.settle()
	return result, nil
}

// --- Helpers ---

// sentence renders an error as player-facing text.
func sentence(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

func title(def *types.QuestDef) string {
	if def.Title != "" {
		return def.Title
	}
	return def.ID
}

func itemLabel(item string, n int) string {
	if n == 1 {
		return item
	}
	return fmt.Sprintf("%d x %s", n, item)
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 1, nil
	}
	return strconv.Atoi(s)
}

func flagValue(s string) bool {
	switch s {
	case "off", "false", "no", "0":
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
