// Package effects applies quest reward effects to the world. Every effect
// type is one atomic operation; world mutations raise their bus events
// through the world itself.
package effects

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/questflow/engine/state"
	"github.com/nathoo/questflow/types"
)

// Effect types understood by Apply.
const (
	Say        = "say"
	GiveItem   = "give_item"
	RemoveItem = "remove_item"
	SetFlag    = "set_flag"
	IncCounter = "inc_counter"
	SetCounter = "set_counter"
	MovePlayer = "move_player"
	StartQuest = "start_quest"
	Stop       = "stop"
)

// Known reports whether t is an effect type Apply understands.
func Known(t string) bool {
	switch t {
	case Say, GiveItem, RemoveItem, SetFlag, IncCounter, SetCounter, MovePlayer, StartQuest, Stop:
		return true
	}
	return false
}

// Context carries the values available to text templates.
type Context struct {
	QuestID    string
	QuestTitle string
}

// Apply applies effects to the world in order, mutating it. Returns the
// events emitted and the output text collected. start_quest is not
// applied here: it is surfaced as an event for the caller.
func Apply(w *state.World, defs *state.Defs, effs []types.Effect, ctx Context) ([]types.Event, []string) {
	var events []types.Event
	var output []string

	for _, eff := range effs {
		switch eff.Type {
		case Say:
			text, _ := eff.Params["text"].(string)
			output = append(output, interpolate(text, w, defs, ctx))

		case GiveItem:
			item, _ := eff.Params["item"].(string)
			count := countParam(eff.Params)
			w.GiveItem(item, count)
			events = append(events, types.Event{
				Type: "item_given",
				Data: map[string]any{"item": item, "count": count},
			})

		case RemoveItem:
			item, _ := eff.Params["item"].(string)
			removed := w.RemoveItem(item, countParam(eff.Params))
			events = append(events, types.Event{
				Type: "item_removed",
				Data: map[string]any{"item": item, "count": removed},
			})

		case SetFlag:
			flag, _ := eff.Params["flag"].(string)
			value, _ := eff.Params["value"].(bool)
			w.SetFlag(flag, value)
			events = append(events, types.Event{
				Type: "flag_changed",
				Data: map[string]any{"flag": flag, "value": value},
			})

		case IncCounter:
			counter, _ := eff.Params["counter"].(string)
			amount := 1
			if v, ok := eff.Params["amount"]; ok {
				amount = toInt(v)
			}
			w.IncrementCounter(counter, amount)

		case SetCounter:
			counter, _ := eff.Params["counter"].(string)
			w.SetCounter(counter, toInt(eff.Params["value"]))

		case MovePlayer:
			area, _ := eff.Params["area"].(string)
			w.MovePlayer(area)
			events = append(events, types.Event{
				Type: "player_moved",
				Data: map[string]any{"area": area},
			})

		case StartQuest:
			quest, _ := eff.Params["quest"].(string)
			events = append(events, types.Event{
				Type: StartQuest,
				Data: map[string]any{"quest": quest},
			})

		case Stop:
			return events, output

		default:
			// Unknown effect type: ignore silently.
		}
	}

	return events, output
}

// interpolate replaces template variables in text.
func interpolate(text string, w *state.World, defs *state.Defs, ctx Context) string {
	if !strings.Contains(text, "{") {
		return text
	}
	r := strings.NewReplacer(
		"{quest}", ctx.QuestID,
		"{quest.title}", ctx.QuestTitle,
		"{player.area}", w.CurrentAreaID(),
	)
	text = r.Replace(text)

	// {player.inventory}: formatted list.
	if strings.Contains(text, "{player.inventory}") {
		text = strings.ReplaceAll(text, "{player.inventory}", FormatInventory(w.Inventory()))
	}

	// {area.name}
	if strings.Contains(text, "{area.name}") {
		name := w.CurrentAreaID()
		if defs != nil {
			if a, ok := defs.Areas[name]; ok && a.Name != "" {
				name = a.Name
			}
		}
		text = strings.ReplaceAll(text, "{area.name}", name)
	}

	return text
}

// FormatInventory creates a human-readable inventory list.
func FormatInventory(items map[string]int) string {
	if len(items) == 0 {
		return "nothing"
	}
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := items[id]; n > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", id, n))
		} else {
			parts = append(parts, id)
		}
	}
	return strings.Join(parts, ", ")
}

func countParam(params map[string]any) int {
	if v, ok := params["count"]; ok {
		return toInt(v)
	}
	return 1
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
