package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/nathoo/questflow/engine/save"
	"github.com/nathoo/questflow/types"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func sampleFile() *save.File {
	return &save.File{
		Version:   "1",
		Game:      "Test Game",
		Tick:      7,
		Elapsed:   42.5,
		Area:      "vault",
		Visited:   []string{"vault", "village"},
		Flags:     map[string]bool{"lantern": true},
		Counters:  map[string]int{"reputation": 2},
		Inventory: map[string]int{"key": 1, "gold": 50},
		Collected: []string{"gold", "key"},
		Quests: []save.Snapshot{
			{
				QuestID: "find_treasure",
				Status:  types.StatusInProgress,
				Objectives: []save.ObjectiveSnapshot{
					{ObjectiveID: "get_key", Status: types.StatusCompleted},
					{ObjectiveID: "open_chest", Status: types.StatusInProgress},
					{ObjectiveID: "gather_herbs", Status: types.StatusNotStarted},
				},
			},
			{QuestID: "prologue", Status: types.StatusCompleted},
		},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "saves.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	in := sampleFile()
	if err := store.Save(ctx, "slot1", in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, "slot1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Game != in.Game || got.Tick != in.Tick || got.Elapsed != in.Elapsed || got.Area != in.Area {
		t.Fatalf("header = %+v", got)
	}
	if !got.Flags["lantern"] || got.Counters["reputation"] != 2 || got.Inventory["gold"] != 50 {
		t.Fatalf("world = %+v", got)
	}
	if len(got.Quests) != 2 {
		t.Fatalf("quests = %+v", got.Quests)
	}
	ft := got.Quests[0]
	if ft.QuestID != "find_treasure" || ft.Status != types.StatusInProgress || len(ft.Objectives) != 3 {
		t.Fatalf("find_treasure = %+v", ft)
	}
	if ft.Objectives[0].ObjectiveID != "get_key" || ft.Objectives[0].Status != types.StatusCompleted {
		t.Fatalf("objective order lost: %+v", ft.Objectives)
	}
	if ft.Objectives[2].Status != types.StatusNotStarted {
		t.Fatalf("gather_herbs = %+v", ft.Objectives[2])
	}
	if p := got.Quests[1]; p.QuestID != "prologue" || p.Status != types.StatusCompleted || len(p.Objectives) != 0 {
		t.Fatalf("prologue = %+v", p)
	}
}

func TestSaveReplacesSlot(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, "slot1", sampleFile()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	next := sampleFile()
	next.Tick = 9
	next.Quests = next.Quests[1:]
	if err := store.Save(ctx, "slot1", next); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.Load(ctx, "slot1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Tick != 9 || len(got.Quests) != 1 || got.Quests[0].QuestID != "prologue" {
		t.Fatalf("got = %+v", got)
	}
}

func TestSaveValidation(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, " ", sampleFile()); err == nil {
		t.Fatal("expected slot name error")
	}
	if err := store.Save(ctx, "slot", nil); err == nil {
		t.Fatal("expected nil file error")
	}
	bad := sampleFile()
	bad.Quests = append(bad.Quests, save.Snapshot{Status: types.StatusInProgress})
	if err := store.Save(ctx, "slot", bad); !errors.Is(err, save.ErrEmptyQuestID) {
		t.Fatalf("err = %v, want ErrEmptyQuestID", err)
	}
	if _, err := store.Load(ctx, "slot"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("failed save left a slot behind: %v", err)
	}
}

func TestLoadMissingSlot(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSlotsAndDelete(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	clock := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	if err := store.Save(ctx, "older", sampleFile()); err != nil {
		t.Fatalf("save older: %v", err)
	}
	clock = clock.Add(time.Minute)
	if err := store.Save(ctx, "newer", sampleFile()); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	slots, err := store.Slots(ctx)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(slots) != 2 || slots[0].Name != "newer" || slots[1].Name != "older" {
		t.Fatalf("slots = %+v", slots)
	}
	if slots[0].Quests != 2 || slots[0].Turn != 7 || !slots[0].UpdatedAt.Equal(clock) {
		t.Fatalf("slot summary = %+v", slots[0])
	}

	if err := store.Delete(ctx, "older"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "older"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
	slots, err = store.Slots(ctx)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(slots) != 1 || slots[0].Name != "newer" {
		t.Fatalf("slots after delete = %+v", slots)
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Save(ctx, "slot", sampleFile()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExtractUpMigration(t *testing.T) {
	t.Parallel()

	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n"
	got := extractUpMigration(content)
	if got != "\nCREATE TABLE a (id INTEGER);\n" {
		t.Fatalf("up = %q", got)
	}
	if extractUpMigration("SELECT 1;") != "SELECT 1;" {
		t.Fatal("content without markers should pass through")
	}
}

func TestApplyMigrationsRecordsApplied(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"900_extra.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE extra (id INTEGER);\n")},
	}
	for i := 0; i < 2; i++ {
		if err := applyMigrations(ctx, store.sqlDB, fsys); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	var n int
	if err := store.sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("recorded migrations = %d, want 2", n)
	}
}
