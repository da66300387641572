package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/questflow/engine/effects"
	"github.com/nathoo/questflow/engine/save"
	"github.com/nathoo/questflow/sandbox"
	"github.com/nathoo/questflow/storage/sqlite"
	"github.com/nathoo/questflow/types"
)

// SlotStore persists save files by slot name. *sqlite.Store implements it.
type SlotStore interface {
	Save(ctx context.Context, slot string, f *save.File) error
	Load(ctx context.Context, slot string) (*save.File, error)
	Slots(ctx context.Context) ([]sqlite.Slot, error)
	Delete(ctx context.Context, slot string) error
}

// Meta dispatches slash commands. It is shared by the line CLI and the TUI.
type Meta struct {
	Session *sandbox.Session
	SaveDir string    // JSON save files, used when Store is nil
	Store   SlotStore // optional
}

// Handle runs one meta-command. Returns output lines and whether the
// program should exit.
func (m *Meta) Handle(input string) ([]string, bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil, false
	}
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/slots":
		return m.cmdSlots(), false

	case "/delete":
		return m.cmdDelete(arg), false

	case "/help":
		return HelpLines(), false

	case "/state":
		return m.cmdState(), false

	case "/trace":
		m.Session.SetTrace(!m.Session.Tracing())
		if m.Session.Tracing() {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func slotName(name string) (string, error) {
	if name == "" {
		return "quicksave", nil
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid save name %q", name)
	}
	return name, nil
}

func (m *Meta) cmdSave(name string) []string {
	name, err := slotName(name)
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	f := m.Session.SaveFile()

	if m.Store != nil {
		if err := m.Store.Save(context.Background(), name, f); err != nil {
			return []string{fmt.Sprintf("Save failed: %v", err)}
		}
		return []string{fmt.Sprintf("Game saved to %s.", name)}
	}

	data, err := save.Save(f)
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if err := os.MkdirAll(m.SaveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	path := filepath.Join(m.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Game saved to %s.", name)}
}

func (m *Meta) cmdLoad(name string) []string {
	name, err := slotName(name)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	var f *save.File
	if m.Store != nil {
		f, err = m.Store.Load(context.Background(), name)
	} else {
		var data []byte
		data, err = os.ReadFile(filepath.Join(m.SaveDir, name+".json"))
		if err == nil {
			f, err = save.Load(data)
		}
	}
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	result, err := m.Session.LoadFile(f)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	output := []string{fmt.Sprintf("Game loaded from %s (turn %d).", name, f.Tick)}
	output = append(output, result.Output...)
	return append(output, m.Session.Look()...)
}

func (m *Meta) cmdSlots() []string {
	if m.Store != nil {
		slots, err := m.Store.Slots(context.Background())
		if err != nil {
			return []string{fmt.Sprintf("Listing saves failed: %v", err)}
		}
		if len(slots) == 0 {
			return []string{"No saves."}
		}
		out := make([]string, 0, len(slots))
		for _, s := range slots {
			out = append(out, fmt.Sprintf("%s  turn %d, %d quests, %s", s.Name, s.Turn, s.Quests, s.UpdatedAt.Local().Format("2006-01-02 15:04")))
		}
		return out
	}

	matches, err := filepath.Glob(filepath.Join(m.SaveDir, "*.json"))
	if err != nil {
		return []string{fmt.Sprintf("Listing saves failed: %v", err)}
	}
	if len(matches) == 0 {
		return []string{"No saves."}
	}
	out := make([]string, 0, len(matches))
	for _, path := range matches {
		out = append(out, strings.TrimSuffix(filepath.Base(path), ".json"))
	}
	sort.Strings(out)
	return out
}

func (m *Meta) cmdDelete(name string) []string {
	if name == "" {
		return []string{"Delete which save?"}
	}
	name, err := slotName(name)
	if err != nil {
		return []string{fmt.Sprintf("Delete failed: %v", err)}
	}
	if m.Store != nil {
		err = m.Store.Delete(context.Background(), name)
	} else {
		err = os.Remove(filepath.Join(m.SaveDir, name+".json"))
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%s: %w", name, sqlite.ErrNotFound)
		}
	}
	if err != nil {
		return []string{fmt.Sprintf("Delete failed: %v", err)}
	}
	return []string{fmt.Sprintf("Deleted %s.", name)}
}

func (m *Meta) cmdState() []string {
	s := m.Session
	output := []string{
		fmt.Sprintf("Turn: %d", s.Turns()),
		fmt.Sprintf("Ticks: %d (%d evaluations, %d pending)", s.Engine.Ticks(), s.Engine.Evaluations(), s.Engine.Pending()),
		fmt.Sprintf("Location: %s", s.World.CurrentAreaID()),
		fmt.Sprintf("Time: %s", sandbox.FormatTime(s.Clock)),
		fmt.Sprintf("Inventory: %s", effects.FormatInventory(s.World.Inventory())),
	}
	snap := s.World.Snapshot()
	if len(snap.Flags) > 0 {
		output = append(output, "Flags: "+formatMap(snap.Flags))
	}
	if len(snap.Counters) > 0 {
		output = append(output, "Counters: "+formatMap(snap.Counters))
	}
	output = append(output, fmt.Sprintf("Quests: %d active, %d finished", len(s.Engine.ActiveQuests()), len(s.Engine.Finished())))
	return output
}

func formatMap[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

// HelpLines returns the help text for meta and sandbox commands.
func HelpLines() []string {
	return []string{
		"System:",
		"  /save [name]    Save game (default: quicksave)",
		"  /load [name]    Load game (default: quicksave)",
		"  /slots          List saves",
		"  /delete <name>  Delete a save",
		"  /quit           Exit",
		"  /help           Show this help",
		"  /state          Debug: dump world and engine state",
		"  /trace          Toggle condition and effect trace output",
		"",
		"Sandbox commands:",
		"  look (l)               Describe the current area",
		"  go <area>              Move to an area",
		"  take <item> [n]        Collect items",
		"  drop <item> [n]        Drop items",
		"  set <flag> [on|off]    Set a flag",
		"  unset <flag>           Clear a flag",
		"  wait [seconds] (z)     Let game time pass",
		"  start <quest>          Start a quest",
		"  abandon <quest>        Stop tracking a quest",
		"  complete <quest>       Force a quest to complete",
		"  fail <quest>           Force a quest to fail",
		"  quests (q)             Show the quest log",
		"  inventory (i)          Show carried items",
		"  again (g)              Repeat your last command",
	}
}

// FormatTrace lists the effects and events of one step.
func FormatTrace(result types.Result) []string {
	var lines []string
	if len(result.Effects) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Effects: %d", len(result.Effects)))
		for _, e := range result.Effects {
			lines = append(lines, fmt.Sprintf("[trace]   %s %v", e.Type, e.Params))
		}
	}
	if len(result.Events) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Events: %d", len(result.Events)))
		for _, e := range result.Events {
			lines = append(lines, fmt.Sprintf("[trace]   %s", e.Type))
		}
	}
	return lines
}
