// Package save implements quest snapshots and the JSON save file that
// carries them alongside the sandbox world.
package save

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nathoo/questflow/engine/quest"
	"github.com/nathoo/questflow/types"
)

var (
	// ErrMissingQuestID is returned when restoring a nil snapshot.
	ErrMissingQuestID = errors.New("snapshot has no quest id")
	// ErrEmptyQuestID is returned when a snapshot's quest id is empty.
	ErrEmptyQuestID = errors.New("snapshot quest id is empty")
	// ErrQuestMismatch is returned when the snapshot and definition ids differ.
	ErrQuestMismatch = errors.New("snapshot quest id does not match definition")
	// ErrNilDefinition is returned when restoring against a nil definition.
	ErrNilDefinition = errors.New("quest definition is nil")
	// ErrInvalidStatus is returned for an unknown status name.
	ErrInvalidStatus = errors.New("invalid status")
)

// ObjectiveSnapshot is the persisted status of one objective.
type ObjectiveSnapshot struct {
	ObjectiveID string       `json:"objectiveId"`
	Status      types.Status `json:"-"`
}

// Snapshot is the persisted status of one quest. Condition progress is
// not persisted.
type Snapshot struct {
	QuestID    string              `json:"questId"`
	Status     types.Status        `json:"-"`
	Objectives []ObjectiveSnapshot `json:"objectiveStatuses"`
}

// Capture records q's status and its objectives' statuses in definition
// order.
func Capture(q *quest.QuestState) Snapshot {
	snap := Snapshot{QuestID: q.ID(), Status: q.Status}
	for _, o := range q.Ordered() {
		snap.Objectives = append(snap.Objectives, ObjectiveSnapshot{ObjectiveID: o.ID(), Status: o.Status})
	}
	return snap
}

// Restore rebuilds a QuestState for def with the statuses in snap. The
// result is not bound to anything until the engine resumes it. Unknown
// objective ids are ignored; objectives missing from the snapshot stay
// NotStarted.
func Restore(snap *Snapshot, def *types.QuestDef) (*quest.QuestState, error) {
	if snap == nil {
		return nil, ErrMissingQuestID
	}
	if snap.QuestID == "" {
		return nil, ErrEmptyQuestID
	}
	if def == nil {
		return nil, ErrNilDefinition
	}
	if snap.QuestID != def.ID {
		return nil, fmt.Errorf("%w: %q != %q", ErrQuestMismatch, snap.QuestID, def.ID)
	}
	if !validStatus(snap.Status) {
		return nil, fmt.Errorf("quest %s: %w %d", snap.QuestID, ErrInvalidStatus, int(snap.Status))
	}

	q, err := quest.NewQuestState(def)
	if err != nil {
		return nil, err
	}
	q.Status = snap.Status
	for _, os := range snap.Objectives {
		o, ok := q.Objectives[os.ObjectiveID]
		if !ok {
			continue
		}
		if !validStatus(os.Status) {
			return nil, fmt.Errorf("objective %s: %w %d", os.ObjectiveID, ErrInvalidStatus, int(os.Status))
		}
		o.Status = os.Status
	}
	return q, nil
}

// --- JSON ---

type objectiveJSON struct {
	ObjectiveID string `json:"objectiveId"`
	Status      string `json:"status"`
}

type snapshotJSON struct {
	QuestID    string          `json:"questId"`
	Status     string          `json:"status"`
	Objectives []objectiveJSON `json:"objectiveStatuses"`
}

// MarshalJSON encodes statuses by name.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{QuestID: s.QuestID, Status: s.Status.String(), Objectives: []objectiveJSON{}}
	for _, o := range s.Objectives {
		out.Objectives = append(out.Objectives, objectiveJSON{ObjectiveID: o.ObjectiveID, Status: o.Status.String()})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes statuses by name.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	status, err := ParseStatus(in.Status)
	if err != nil {
		return fmt.Errorf("quest %s: %w", in.QuestID, err)
	}
	s.QuestID = in.QuestID
	s.Status = status
	s.Objectives = nil
	for _, o := range in.Objectives {
		os, err := ParseStatus(o.Status)
		if err != nil {
			return fmt.Errorf("objective %s: %w", o.ObjectiveID, err)
		}
		s.Objectives = append(s.Objectives, ObjectiveSnapshot{ObjectiveID: o.ObjectiveID, Status: os})
	}
	return nil
}

// ParseStatus returns the status with the given name.
func ParseStatus(name string) (types.Status, error) {
	for _, s := range []types.Status{types.StatusNotStarted, types.StatusInProgress, types.StatusCompleted, types.StatusFailed} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrInvalidStatus, name)
}

func validStatus(s types.Status) bool {
	return s >= types.StatusNotStarted && s <= types.StatusFailed
}

// Encode serializes a snapshot to JSON.
func Encode(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Decode parses a JSON snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// --- Save file ---

// File is the sandbox save format: the world alongside the quest
// snapshots.
type File struct {
	Version   string          `json:"version"`
	Game      string          `json:"game"`
	Tick      int             `json:"tick"`
	Elapsed   float64         `json:"elapsed"`
	Area      string          `json:"area"`
	Visited   []string        `json:"visited"`
	Flags     map[string]bool `json:"flags"`
	Counters  map[string]int  `json:"counters"`
	Inventory map[string]int  `json:"inventory"`
	Collected []string        `json:"collected"`
	Quests    []Snapshot      `json:"quests"`
}

// Save serializes a save file to indented JSON.
func Save(f *File) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// Load deserializes a save file.
func Load(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	// Ensure maps are never nil after load.
	if f.Flags == nil {
		f.Flags = map[string]bool{}
	}
	if f.Counters == nil {
		f.Counters = map[string]int{}
	}
	if f.Inventory == nil {
		f.Inventory = map[string]int{}
	}
	return &f, nil
}
