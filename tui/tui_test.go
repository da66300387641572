package tui

import (
	"io"
	"log"
	"strings"
	"testing"

	"github.com/nathoo/questflow/cli"
	"github.com/nathoo/questflow/engine/state"
	"github.com/nathoo/questflow/sandbox"
	"github.com/nathoo/questflow/types"
)

func TestAreaDisplayName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"hall", "Hall"},
		{"great_hall", "Great Hall"},
		{"castle_gates", "Castle Gates"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := areaDisplayName(tt.id); got != tt.want {
			t.Errorf("areaDisplayName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"You are carrying: 1 x key.", kindCarrying},
		{"Exits: garden, hall.", kindExits},
		{"[Game saved to test.]", kindSystem},
		{"[trace] Effects: 2", kindTrace},
		{"Quest started: Fetch the Key", kindQuest},
		{"Quest complete: Fetch the Key", kindQuest},
		{"Quest failed: Fetch the Key", kindFailure},
		{"Objective complete: Find the key.", kindObjective},
		{"Objective failed: Stay hidden.", kindFailure},
		{"  [x] get_key: Find the key.", kindObjective},
		{"  [!] stay_hidden", kindFailure},
		{"You can't get there from here.", kindError},
		{"There is no place called \"moon\".", kindError},
		{"I don't know how to \"dance\".", kindError},
		{"You don't have that.", kindError},
		{"A grand hall with stone walls.", kindNarrative},
		{"", kindNarrative},
		{"'Ah, the adventurer. I wondered when they'd send someone.'", kindDialogue},
	}
	for _, tt := range tests {
		if got := classifyLine(tt.line); got != tt.want {
			t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestContainsQuotedSpeech(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"'Hello, adventurer. Welcome to the castle.'", true},
		{"It's a door.", false},
		{"No quotes here.", false},
		{"'Hi'", false},
		{"She says 'the crown is lost forever, you must find it.'", true},
	}
	for _, tt := range tests {
		if got := containsQuotedSpeech(tt.line); got != tt.want {
			t.Errorf("containsQuotedSpeech(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 80, "short"},
		{"hello world", 5, "hello\nworld"},
		{"The great hall stretches before you with its vaulted ceiling.", 30,
			"The great hall stretches\nbefore you with its vaulted\nceiling."},
		{"", 80, ""},
		{"one", 80, "one"},
		{"a b c d e", 3, "a b\nc d\ne"},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_Back(t *testing.T) {
	h := NewHistory(5)
	for _, line := range []string{"look", "go garden", "take key"} {
		h.Add(line)
	}
	for i, want := range []string{"take key", "go garden", "look", "look"} {
		got, ok := h.Back("")
		if !ok || got != want {
			t.Errorf("Back #%d = %q (ok=%v), want %q", i, got, ok, want)
		}
	}
}

func TestHistory_ForwardRestoresDraft(t *testing.T) {
	h := NewHistory(5)
	h.Add("look")
	h.Add("go garden")

	h.Back("take ke")
	h.Back("ignored while browsing")

	if got, ok := h.Forward(); !ok || got != "go garden" {
		t.Errorf("Forward = %q (ok=%v), want go garden", got, ok)
	}
	if got, ok := h.Forward(); !ok || got != "take ke" {
		t.Errorf("Forward past newest = %q (ok=%v), want the draft", got, ok)
	}
	if _, ok := h.Forward(); ok {
		t.Error("Forward when not browsing should report false")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Back("draft"); ok {
		t.Error("Back on empty history should report false")
	}
	if _, ok := h.Forward(); ok {
		t.Error("Forward on empty history should report false")
	}
}

func TestHistory_Limit(t *testing.T) {
	tests := []struct {
		limit  int
		add    []string
		oldest string
		length int
	}{
		{2, []string{"a", "b", "c"}, "b", 2},
		{0, []string{"a", "b"}, "b", 1},
		{5, []string{"look", "look", "look"}, "look", 1},
	}
	for _, tt := range tests {
		h := NewHistory(tt.limit)
		for _, line := range tt.add {
			h.Add(line)
		}
		if h.Len() != tt.length {
			t.Errorf("limit %d: len = %d, want %d", tt.limit, h.Len(), tt.length)
		}
		var got string
		for i := 0; i < len(tt.add)+1; i++ {
			got, _ = h.Back("")
		}
		if got != tt.oldest {
			t.Errorf("limit %d: oldest = %q, want %q", tt.limit, got, tt.oldest)
		}
	}
}

func TestHistory_AddEndsBrowsing(t *testing.T) {
	h := NewHistory(5)
	h.Add("look")
	h.Add("go garden")
	h.Back("")
	h.Back("")
	h.Add("take key")

	if got, _ := h.Back(""); got != "take key" {
		t.Errorf("Back after Add = %q, want take key", got)
	}
}

// testDefs returns minimal game definitions for TUI testing.
func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{
			Title:     "Test Game",
			Author:    "Test",
			Version:   "1.0",
			Start:     "hall",
			Intro:     "Welcome to the test.",
			AutoStart: []string{"fetch"},
		},
		Areas: map[string]types.AreaDef{
			"hall":   {ID: "hall", Name: "Great Hall", Description: "A grand hall.", Exits: []string{"garden"}},
			"garden": {ID: "garden", Description: "A peaceful garden.", Exits: []string{"hall"}},
		},
		Quests: map[string]*types.QuestDef{
			"fetch": {
				ID:    "fetch",
				Title: "Fetch the Key",
				Objectives: []types.ObjectiveDef{
					{ID: "get_key", Description: "Find the key.", Completion: &types.ConditionSpec{
						Type: types.CondItemCollected, Params: map[string]any{"item": "key", "count": 1},
					}},
				},
			},
		},
		Order: []string{"fetch"},
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	s := sandbox.New(testDefs(), sandbox.Options{Logger: log.New(io.Discard, "", 0)})
	m := New(s, &cli.Meta{Session: s, SaveDir: t.TempDir()})
	m.width = 120
	return m
}

// begin runs the initial output command the way Init would.
func begin(m Model) Model {
	return m.appendOutput(m.initialOutput()().(gameOutputMsg))
}

// submit types input and presses enter.
func submit(m Model, input string) (Model, bool) {
	m.input.SetValue(input)
	next, _ := m.handleEnter()
	nm := next.(Model)
	return nm, nm.quitting
}

func transcript(m Model) string {
	lines := make([]string, 0, len(m.rawLines))
	for _, rl := range m.rawLines {
		lines = append(lines, rl.text)
	}
	return strings.Join(lines, "\n")
}

func TestInitialOutput(t *testing.T) {
	m := begin(newTestModel(t))

	out := transcript(m)
	for _, want := range []string{"Test Game v1.0 by Test", "Welcome to the test.", "Quest started: Fetch the Key", "Great Hall", "A grand hall."} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestEnter_GameCommand(t *testing.T) {
	m := begin(newTestModel(t))
	m, quit := submit(m, "take key")
	if quit {
		t.Fatal("game command should not quit")
	}
	out := transcript(m)
	if !strings.Contains(out, "> take key") || !strings.Contains(out, "Quest complete: Fetch the Key") {
		t.Errorf("output:\n%s", out)
	}
	if m.history.Len() != 1 {
		t.Errorf("history len = %d, want 1", m.history.Len())
	}
}

func TestEnter_Again(t *testing.T) {
	m := begin(newTestModel(t))
	m, _ = submit(m, "g")
	if !strings.Contains(transcript(m), "Nothing to repeat.") {
		t.Error("expected 'Nothing to repeat.'")
	}

	m, _ = submit(m, "take herb")
	m, _ = submit(m, "again")
	if n := m.session.World.GetItemCount("herb"); n != 2 {
		t.Errorf("herb = %d, want 2", n)
	}
}

func TestEnter_MetaCommands(t *testing.T) {
	m := begin(newTestModel(t))

	m, quit := submit(m, "/help")
	if quit {
		t.Fatal("help should not quit")
	}
	out := transcript(m)
	for _, want := range []string{"/save", "/load", "start <quest>", "PgUp/PgDn"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in help output", want)
		}
	}

	m, _ = submit(m, "/save test")
	m, _ = submit(m, "/load nonexistent")
	out = transcript(m)
	if !strings.Contains(out, "Game saved to test.") || !strings.Contains(out, "Load failed") {
		t.Errorf("output:\n%s", out)
	}

	for _, rl := range m.rawLines {
		if strings.HasPrefix(rl.text, "Game saved") && !rl.isSystem {
			t.Error("meta output should be marked as system")
		}
	}

	if _, quit := submit(m, "/quit"); !quit {
		t.Error("expected /quit to quit")
	}
}

func TestEnter_Trace(t *testing.T) {
	m := begin(newTestModel(t))
	m, _ = submit(m, "/trace")
	if !m.session.Tracing() {
		t.Fatal("expected tracing on")
	}
	m, _ = submit(m, "take key")
	if !strings.Contains(transcript(m), "[trace]   give_item") {
		t.Errorf("expected effect trace:\n%s", transcript(m))
	}
}

func TestStatusBar(t *testing.T) {
	m := begin(newTestModel(t))

	bar := m.renderStatusBar()
	for _, want := range []string{"Great Hall", "Exits: garden", "Quests: 1", "day 1, 00:00", "T:0"} {
		if !strings.Contains(bar, want) {
			t.Errorf("expected %q in status bar %q", want, bar)
		}
	}

	m, _ = submit(m, "go garden")
	bar = m.renderStatusBar()
	if !strings.Contains(bar, "Garden") || !strings.Contains(bar, "T:1") {
		t.Errorf("status bar after move = %q", bar)
	}

	m.width = 30
	if bar := m.renderStatusBar(); !strings.Contains(bar, "Q:1") {
		t.Errorf("narrow status bar = %q", bar)
	}
}
