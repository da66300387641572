package loader

import (
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/questflow/types"
)

func TestLoad_MinimalGame(t *testing.T) {
	defs, err := Load("testdata/minimal")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if defs.Game.Title != "Minimal Test Game" {
		t.Errorf("Title = %q, want %q", defs.Game.Title, "Minimal Test Game")
	}
	if defs.Game.Start != "hall" {
		t.Errorf("Start = %q, want %q", defs.Game.Start, "hall")
	}
	q, ok := defs.Quest("fetch")
	if !ok {
		t.Fatal("quest 'fetch' not found")
	}
	if len(q.Objectives) != 1 || q.Objectives[0].ID != "get_key" {
		t.Fatalf("objectives = %+v", q.Objectives)
	}
	c := q.Objectives[0].Completion
	if c == nil || c.Type != types.CondItemCollected || c.Params["item"] != "key" || c.Params["count"] != 1 {
		t.Errorf("completion = %+v", c)
	}
}

func TestLoad_FullGame(t *testing.T) {
	defs, err := Load("testdata/full")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Game metadata.
	if defs.Game.Title != "Full Test Game" {
		t.Errorf("Title = %q", defs.Game.Title)
	}
	if defs.Game.Author != "Tester" {
		t.Errorf("Author = %q", defs.Game.Author)
	}
	if defs.Game.Start != "village" {
		t.Errorf("Start = %q", defs.Game.Start)
	}
	if len(defs.Game.AutoStart) != 1 || defs.Game.AutoStart[0] != "find_treasure" {
		t.Errorf("AutoStart = %v", defs.Game.AutoStart)
	}

	// Areas.
	if len(defs.Areas) != 3 {
		t.Errorf("expected 3 areas, got %d", len(defs.Areas))
	}
	village := defs.Areas["village"]
	if village.Name != "Oakvale Village" || len(village.Exits) != 2 {
		t.Errorf("village = %+v", village)
	}

	// Quests in declaration order.
	if len(defs.Order) != 2 || defs.Order[0] != "find_treasure" || defs.Order[1] != "night_watch" {
		t.Errorf("Order = %v", defs.Order)
	}

	ft := defs.Quests["find_treasure"]
	if ft.Title != "Find the Treasure" || len(ft.Objectives) != 3 {
		t.Fatalf("find_treasure = %+v", ft)
	}

	chest := ft.Objectives[1]
	if chest.ID != "open_chest" || len(chest.Prerequisites) != 1 || chest.Prerequisites[0] != "get_key" {
		t.Errorf("open_chest = %+v", chest)
	}
	if chest.Completion == nil || chest.Completion.Type != types.CondAll || len(chest.Completion.Children) != 2 {
		t.Fatalf("open_chest completion = %+v", chest.Completion)
	}
	if chest.Completion.Children[0].Type != types.CondAreaEntered || chest.Completion.Children[0].Params["area"] != "vault" {
		t.Errorf("first child = %+v", chest.Completion.Children[0])
	}
	if chest.Fail == nil || chest.Fail.Type != types.CondCustomFlag || chest.Fail.Params["value"] != true {
		t.Errorf("open_chest fail = %+v", chest.Fail)
	}

	herbs := ft.Objectives[2]
	if !herbs.Optional || herbs.Completion.Params["count"] != 3 {
		t.Errorf("gather_herbs = %+v", herbs)
	}

	// Rewards.
	if len(ft.Rewards) != 4 {
		t.Fatalf("expected 4 rewards, got %d", len(ft.Rewards))
	}
	if ft.Rewards[1].Type != "give_item" || ft.Rewards[1].Params["count"] != 50 {
		t.Errorf("reward[1] = %+v", ft.Rewards[1])
	}
	if ft.Rewards[3].Type != "start_quest" || ft.Rewards[3].Params["quest"] != "night_watch" {
		t.Errorf("reward[3] = %+v", ft.Rewards[3])
	}

	nw := defs.Quests["night_watch"]
	if len(nw.Prerequisites) != 1 || nw.Prerequisites[0] != "find_treasure" {
		t.Errorf("night_watch requires = %v", nw.Prerequisites)
	}
	watch := nw.Objectives[0].Completion
	if watch.Type != types.CondAny || len(watch.Children) != 2 {
		t.Errorf("keep_watch completion = %+v", watch)
	}
	if watch.Children[0].Params["seconds"] != 120 {
		t.Errorf("TimeElapsed seconds = %v", watch.Children[0].Params["seconds"])
	}
}

func TestLoad_InvalidRefs_Fails(t *testing.T) {
	_, err := Load("testdata/invalid_refs")
	if err == nil {
		t.Fatal("expected error for invalid references")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	msg := err.Error()
	for _, want := range []string{"undefined area \"atlantis\"", "undefined area \"nowhere\"", "undefined quest \"ghost_quest\""} {
		if !strings.Contains(msg, want) {
			t.Errorf("error = %q, expected %s", msg, want)
		}
	}
}

func TestLoad_DuplicateQuestIDs_Fails(t *testing.T) {
	_, err := Load("testdata/duplicate_quests")
	if err == nil {
		t.Fatal("expected error for duplicate quest IDs")
	}
	if !strings.Contains(err.Error(), "duplicate quest ID") {
		t.Errorf("error = %q, expected 'duplicate quest ID'", err.Error())
	}
}

func TestLoad_PrerequisiteCycle_Fails(t *testing.T) {
	_, err := Load("testdata/cycle")
	if err == nil {
		t.Fatal("expected error for prerequisite cycle")
	}
	if !strings.Contains(err.Error(), "prerequisite cycle") {
		t.Errorf("error = %q, expected 'prerequisite cycle'", err.Error())
	}
}

func TestLoad_BadLuaSyntax_Fails(t *testing.T) {
	_, err := Load("testdata/bad_lua")
	if err == nil {
		t.Fatal("expected error for bad Lua syntax")
	}
}

func TestLoad_NoGameDef_Fails(t *testing.T) {
	_, err := Load("testdata/no_game")
	if err == nil {
		t.Fatal("expected error for missing Game{} definition")
	}
	if !strings.Contains(err.Error(), "no Game{} definition") {
		t.Errorf("error = %q, expected 'no Game{} definition'", err.Error())
	}
}

func TestLoad_MissingDir_Fails(t *testing.T) {
	if _, err := Load("testdata/does_not_exist"); err == nil {
		t.Fatal("expected error for missing directory")
	}
	if _, err := Load(t.TempDir()); err == nil || !strings.Contains(err.Error(), "no .lua files") {
		t.Errorf("empty dir err = %v", err)
	}
}

func TestLoad_SandboxEnforced(t *testing.T) {
	// os library should not be available.
	L, _ := newTestVM()
	defer L.Close()

	err := L.DoString(`os.execute("echo pwned")`)
	if err == nil {
		t.Fatal("expected sandbox to block os.execute")
	}
	if err := L.DoString(`dofile("x.lua")`); err == nil {
		t.Fatal("expected sandbox to block dofile")
	}
}

func TestLoad_FileOrdering(t *testing.T) {
	files := sortedLuaFiles([]string{"quests.lua", "game.lua", "areas.lua", "side.lua"})
	if files[0] != "game.lua" {
		t.Errorf("first file = %q, want game.lua", files[0])
	}
	// Rest should be alphabetical.
	if files[1] != "areas.lua" || files[3] != "side.lua" {
		t.Errorf("files = %v", files)
	}
}
