// Package sqlite persists sandbox save files in SQLite: one row per slot
// for the world, plus normalized quest and objective snapshot rows.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nathoo/questflow/engine/save"
	"github.com/nathoo/questflow/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a slot does not exist.
var ErrNotFound = errors.New("save slot not found")

// Slot summarizes one stored save.
type Slot struct {
	Name      string
	Game      string
	Turn      int
	Quests    int
	UpdatedAt time.Time
}

// Store persists save files in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite save store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// Save writes f under slot, replacing any previous save in that slot.
func (s *Store) Save(ctx context.Context, slot string, f *save.File) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return fmt.Errorf("slot name is required")
	}
	if f == nil {
		return fmt.Errorf("save file is required")
	}

	world := *f
	world.Quests = nil
	worldJSON, err := json.Marshal(world)
	if err != nil {
		return fmt.Errorf("encode world: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteSlot(ctx, tx, slot); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO save_slots (slot, game, version, turn, elapsed, world_json, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		slot, f.Game, f.Version, f.Tick, f.Elapsed, string(worldJSON), toMillis(s.now()),
	); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}

	for i, snap := range f.Quests {
		if snap.QuestID == "" {
			return fmt.Errorf("save slot %s quest %d: %w", slot, i, save.ErrEmptyQuestID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quest_snapshots (slot, position, quest_id, status) VALUES (?, ?, ?, ?)`,
			slot, i, snap.QuestID, snap.Status.String(),
		); err != nil {
			return fmt.Errorf("save quest %s: %w", snap.QuestID, err)
		}
		for j, o := range snap.Objectives {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO objective_snapshots (slot, quest_id, position, objective_id, status)
				 VALUES (?, ?, ?, ?, ?)`,
				slot, snap.QuestID, j, o.ObjectiveID, o.Status.String(),
			); err != nil {
				return fmt.Errorf("save objective %s/%s: %w", snap.QuestID, o.ObjectiveID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load reads the save stored under slot.
func (s *Store) Load(ctx context.Context, slot string) (*save.File, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	slot = strings.TrimSpace(slot)

	var worldJSON string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT world_json FROM save_slots WHERE slot = ?`, slot,
	).Scan(&worldJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", slot, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", slot, err)
	}
	f, err := save.Load([]byte(worldJSON))
	if err != nil {
		return nil, fmt.Errorf("decode world %s: %w", slot, err)
	}

	quests, err := s.loadQuests(ctx, slot)
	if err != nil {
		return nil, err
	}
	f.Quests = quests
	return f, nil
}

func (s *Store) loadQuests(ctx context.Context, slot string) ([]save.Snapshot, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT q.quest_id, q.status, o.objective_id, o.status
		   FROM quest_snapshots q
		   LEFT JOIN objective_snapshots o
		     ON o.slot = q.slot AND o.quest_id = q.quest_id
		  WHERE q.slot = ?
		  ORDER BY q.position ASC, o.position ASC`,
		slot,
	)
	if err != nil {
		return nil, fmt.Errorf("load quests %s: %w", slot, err)
	}
	defer rows.Close()

	var quests []save.Snapshot
	for rows.Next() {
		var (
			questID, questStatus string
			objectiveID, objStat sql.NullString
		)
		if err := rows.Scan(&questID, &questStatus, &objectiveID, &objStat); err != nil {
			return nil, fmt.Errorf("load quests %s: %w", slot, err)
		}
		if n := len(quests); n == 0 || quests[n-1].QuestID != questID {
			status, err := save.ParseStatus(questStatus)
			if err != nil {
				return nil, fmt.Errorf("quest %s: %w", questID, err)
			}
			quests = append(quests, save.Snapshot{QuestID: questID, Status: status})
		}
		if !objectiveID.Valid {
			continue
		}
		status, err := save.ParseStatus(objStat.String)
		if err != nil {
			return nil, fmt.Errorf("objective %s/%s: %w", questID, objectiveID.String, err)
		}
		last := &quests[len(quests)-1]
		last.Objectives = append(last.Objectives, save.ObjectiveSnapshot{ObjectiveID: objectiveID.String, Status: status})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load quests %s: %w", slot, err)
	}
	return quests, nil
}

// Slots lists stored saves, most recently written first.
func (s *Store) Slots(ctx context.Context) ([]Slot, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT s.slot, s.game, s.turn, s.updated_at,
		        (SELECT COUNT(*) FROM quest_snapshots q WHERE q.slot = s.slot)
		   FROM save_slots s
		  ORDER BY s.updated_at DESC, s.slot ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var sl Slot
		var updatedAt int64
		if err := rows.Scan(&sl.Name, &sl.Game, &sl.Turn, &updatedAt, &sl.Quests); err != nil {
			return nil, fmt.Errorf("list slots: %w", err)
		}
		sl.UpdatedAt = fromMillis(updatedAt)
		slots = append(slots, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// Delete removes a slot. Deleting a missing slot returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, slot string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var found int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM save_slots WHERE slot = ?`, slot).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete %s: %w", slot, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	if err := deleteSlot(ctx, tx, slot); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func deleteSlot(ctx context.Context, tx *sql.Tx, slot string) error {
	for _, q := range []string{
		`DELETE FROM objective_snapshots WHERE slot = ?`,
		`DELETE FROM quest_snapshots WHERE slot = ?`,
		`DELETE FROM save_slots WHERE slot = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, slot); err != nil {
			return fmt.Errorf("clear slot %s: %w", slot, err)
		}
	}
	return nil
}
