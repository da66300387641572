// Package loader loads Lua quest content into Go structs at load time.
// The Lua VM is discarded after loading; no Lua at runtime.
package loader

import (
	"fmt"
	"sort"

	"github.com/nathoo/questflow/engine/state"
	"github.com/nathoo/questflow/types"
	lua "github.com/yuin/gopher-lua"
)

// rawArea holds an area table before compilation.
type rawArea struct {
	id    string
	table *lua.LTable
}

// rawQuest holds a quest table before compilation.
type rawQuest struct {
	id    string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns the string elements of an array field, or a single
// string field as a one-element list.
func getStrings(tbl *lua.LTable, key string) []string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return []string{string(s)}
	}
	arr, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	for i := 1; i <= arr.MaxN(); i++ {
		if s, ok := arr.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Check if it's an array (sequential integer keys starting at 1).
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		// Otherwise treat as map.
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// compile converts all collected Lua data into a Defs struct.
func compile(coll *collector) (*state.Defs, error) {
	defs := &state.Defs{
		Areas:  map[string]types.AreaDef{},
		Quests: map[string]*types.QuestDef{},
	}

	// Game.
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	defs.Game = compileGame(coll.game)

	for _, raw := range coll.areas {
		defs.Areas[raw.id] = compileArea(raw)
	}

	// Quests keep declaration order; duplicates are reported by validate,
	// so the first declaration wins here.
	for _, raw := range coll.quests {
		q, err := compileQuest(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling quest %s: %w", raw.id, err)
		}
		defs.Order = append(defs.Order, q.ID)
		if _, dup := defs.Quests[q.ID]; !dup {
			defs.Quests[q.ID] = q
		}
	}

	return defs, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	return types.GameDef{
		Title:     getString(tbl, "title"),
		Author:    getString(tbl, "author"),
		Version:   getString(tbl, "version"),
		Start:     getString(tbl, "start"),
		Intro:     getString(tbl, "intro"),
		AutoStart: getStrings(tbl, "auto_start"),
	}
}

func compileArea(raw rawArea) types.AreaDef {
	return types.AreaDef{
		ID:          raw.id,
		Name:        getString(raw.table, "name"),
		Description: getString(raw.table, "description"),
		Exits:       getStrings(raw.table, "exits"),
	}
}

func compileQuest(raw rawQuest) (*types.QuestDef, error) {
	tbl := raw.table
	q := &types.QuestDef{
		ID:            raw.id,
		Title:         getString(tbl, "title"),
		Description:   getString(tbl, "description"),
		Prerequisites: getStrings(tbl, "requires"),
	}

	if objTbl := getTable(tbl, "objectives"); objTbl != nil {
		for i := 1; i <= objTbl.MaxN(); i++ {
			entry, ok := objTbl.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("objective %d is not a table", i)
			}
			obj, err := compileObjective(entry)
			if err != nil {
				return nil, fmt.Errorf("objective %d: %w", i, err)
			}
			q.Objectives = append(q.Objectives, obj)
		}
	}

	if rewTbl := getTable(tbl, "rewards"); rewTbl != nil {
		q.Rewards = compileEffects(rewTbl)
	}
	return q, nil
}

func compileObjective(tbl *lua.LTable) (types.ObjectiveDef, error) {
	obj := types.ObjectiveDef{
		ID:            getString(tbl, "__objective_id"),
		Description:   getString(tbl, "description"),
		Optional:      getBool(tbl, "optional", false),
		Prerequisites: getStrings(tbl, "requires"),
	}
	if c := getTable(tbl, "complete"); c != nil {
		spec, err := compileCondition(c)
		if err != nil {
			return obj, fmt.Errorf("complete: %w", err)
		}
		obj.Completion = &spec
	}
	if f := getTable(tbl, "fail"); f != nil {
		spec, err := compileCondition(f)
		if err != nil {
			return obj, fmt.Errorf("fail: %w", err)
		}
		obj.Fail = &spec
	}
	return obj, nil
}

// compileCondition converts a condition helper table into a spec. Group
// children are compiled recursively.
func compileCondition(tbl *lua.LTable) (types.ConditionSpec, error) {
	spec := types.ConditionSpec{
		Type:   getString(tbl, "type"),
		Params: map[string]any{},
	}
	if spec.Type == "" {
		return spec, fmt.Errorf("condition has no type (use a condition helper)")
	}

	if spec.Type == types.CondAll || spec.Type == types.CondAny {
		children := getTable(tbl, "children")
		if children == nil {
			return spec, nil
		}
		for i := 1; i <= children.MaxN(); i++ {
			childTbl, ok := children.RawGetInt(i).(*lua.LTable)
			if !ok {
				return spec, fmt.Errorf("%s child %d is not a condition", spec.Type, i)
			}
			child, err := compileCondition(childTbl)
			if err != nil {
				return spec, fmt.Errorf("%s child %d: %w", spec.Type, i, err)
			}
			spec.Children = append(spec.Children, child)
		}
		return spec, nil
	}

	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			key := string(ks)
			if key != "type" {
				spec.Params[key] = toGoValue(v)
			}
		}
	})
	return spec, nil
}

func compileEffects(tbl *lua.LTable) []types.Effect {
	var effects []types.Effect
	for i := 1; i <= tbl.MaxN(); i++ {
		if effTbl, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			effects = append(effects, compileEffect(effTbl))
		}
	}
	return effects
}

func compileEffect(tbl *lua.LTable) types.Effect {
	effType := getString(tbl, "type")
	params := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			key := string(ks)
			if key != "type" {
				params[key] = toGoValue(v)
			}
		}
	})
	return types.Effect{
		Type:   effType,
		Params: params,
	}
}

// sortedLuaFiles returns .lua files in a directory, with game.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
