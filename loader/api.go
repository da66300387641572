package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerEffectHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.game = tbl
		return 0
	}))

	// Area "id" { ... } is curried: Area("id") returns a function that takes a table.
	L.SetGlobal("Area", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.areas = append(coll.areas, rawArea{id: id, table: tbl})
			return 0
		}))
		return 1
	}))

	// Quest "id" { ... } is curried.
	L.SetGlobal("Quest", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.quests = append(coll.quests, rawQuest{id: id, table: tbl})
			return 0
		}))
		return 1
	}))

	// Objective "id" { ... } is curried. Returns the table tagged with its
	// id, for use inside a quest's objectives list.
	L.SetGlobal("Objective", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			tbl.RawSetString("__objective_id", lua.LString(id))
			L.Push(tbl)
			return 1
		}))
		return 1
	}))
}

func registerConditionHelpers(L *lua.LState) {
	// ItemCollected("key", count)
	L.SetGlobal("ItemCollected", L.NewFunction(func(L *lua.LState) int {
		item := L.CheckString(1)
		count := L.OptNumber(2, 1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("item_collected"))
		tbl.RawSetString("item", lua.LString(item))
		tbl.RawSetString("count", count)
		L.Push(tbl)
		return 1
	}))

	// AreaEntered("area")
	L.SetGlobal("AreaEntered", L.NewFunction(func(L *lua.LState) int {
		area := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("area_entered"))
		tbl.RawSetString("area", lua.LString(area))
		L.Push(tbl)
		return 1
	}))

	// TimeElapsed(seconds)
	L.SetGlobal("TimeElapsed", L.NewFunction(func(L *lua.LState) int {
		seconds := L.CheckNumber(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("time_elapsed"))
		tbl.RawSetString("seconds", seconds)
		L.Push(tbl)
		return 1
	}))

	// Flag("flag", value)
	L.SetGlobal("Flag", L.NewFunction(func(L *lua.LState) int {
		flag := L.CheckString(1)
		value := L.OptBool(2, true)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("custom_flag"))
		tbl.RawSetString("flag", lua.LString(flag))
		tbl.RawSetString("value", lua.LBool(value))
		L.Push(tbl)
		return 1
	}))

	// All { cond, cond, ... }
	L.SetGlobal("All", L.NewFunction(func(L *lua.LState) int {
		children := L.CheckTable(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("all"))
		tbl.RawSetString("children", children)
		L.Push(tbl)
		return 1
	}))

	// Any { cond, cond, ... }
	L.SetGlobal("Any", L.NewFunction(func(L *lua.LState) int {
		children := L.CheckTable(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("any"))
		tbl.RawSetString("children", children)
		L.Push(tbl)
		return 1
	}))
}

func registerEffectHelpers(L *lua.LState) {
	// Say("text")
	L.SetGlobal("Say", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("say"))
		tbl.RawSetString("text", lua.LString(text))
		L.Push(tbl)
		return 1
	}))

	// GiveItem("id", count)
	L.SetGlobal("GiveItem", L.NewFunction(func(L *lua.LState) int {
		item := L.CheckString(1)
		count := L.OptNumber(2, 1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("give_item"))
		tbl.RawSetString("item", lua.LString(item))
		tbl.RawSetString("count", count)
		L.Push(tbl)
		return 1
	}))

	// RemoveItem("id", count)
	L.SetGlobal("RemoveItem", L.NewFunction(func(L *lua.LState) int {
		item := L.CheckString(1)
		count := L.OptNumber(2, 1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("remove_item"))
		tbl.RawSetString("item", lua.LString(item))
		tbl.RawSetString("count", count)
		L.Push(tbl)
		return 1
	}))

	// SetFlag("flag", value)
	L.SetGlobal("SetFlag", L.NewFunction(func(L *lua.LState) int {
		flag := L.CheckString(1)
		value := L.CheckBool(2)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("set_flag"))
		tbl.RawSetString("flag", lua.LString(flag))
		tbl.RawSetString("value", lua.LBool(value))
		L.Push(tbl)
		return 1
	}))

	// IncCounter("counter", amount)
	L.SetGlobal("IncCounter", L.NewFunction(func(L *lua.LState) int {
		counter := L.CheckString(1)
		amount := L.OptNumber(2, 1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("inc_counter"))
		tbl.RawSetString("counter", lua.LString(counter))
		tbl.RawSetString("amount", amount)
		L.Push(tbl)
		return 1
	}))

	// SetCounter("counter", value)
	L.SetGlobal("SetCounter", L.NewFunction(func(L *lua.LState) int {
		counter := L.CheckString(1)
		value := L.CheckNumber(2)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("set_counter"))
		tbl.RawSetString("counter", lua.LString(counter))
		tbl.RawSetString("value", value)
		L.Push(tbl)
		return 1
	}))

	// MovePlayer("area")
	L.SetGlobal("MovePlayer", L.NewFunction(func(L *lua.LState) int {
		area := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("move_player"))
		tbl.RawSetString("area", lua.LString(area))
		L.Push(tbl)
		return 1
	}))

	// StartQuest("id")
	L.SetGlobal("StartQuest", L.NewFunction(func(L *lua.LState) int {
		quest := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("start_quest"))
		tbl.RawSetString("quest", lua.LString(quest))
		L.Push(tbl)
		return 1
	}))

	// Stop()
	L.SetGlobal("Stop", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("stop"))
		L.Push(tbl)
		return 1
	}))
}
