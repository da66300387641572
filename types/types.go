// Package types defines the shared data structures for the QuestFlow engine.
// This package contains only type definitions and their constants; no
// engine logic.
package types

// Status is the lifecycle state shared by quests and objectives.
// Completed and Failed are terminal.
type Status int

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
)

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NotStarted"
	case StatusInProgress:
		return "InProgress"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// EvalResult is the outcome of evaluating one (quest, objective) pair.
type EvalResult int

const (
	NoChange EvalResult = iota
	ObjectiveCompleted
	QuestCompleted
	QuestFailed
)

func (r EvalResult) String() string {
	switch r {
	case NoChange:
		return "NoChange"
	case ObjectiveCompleted:
		return "ObjectiveCompleted"
	case QuestCompleted:
		return "QuestCompleted"
	case QuestFailed:
		return "QuestFailed"
	default:
		return "Unknown"
	}
}

// Condition spec types understood by the condition factory.
const (
	CondItemCollected = "item_collected"
	CondAreaEntered   = "area_entered"
	CondTimeElapsed   = "time_elapsed"
	CondCustomFlag    = "custom_flag"
	CondAll           = "all"
	CondAny           = "any"
)

// ConditionSpec is the authored description of a condition.
type ConditionSpec struct {
	Type     string
	Params   map[string]any  // condition-specific parameters
	Children []ConditionSpec // for "all" / "any" groups
}

// ObjectiveDef is an immutable, authored sub-goal of a quest.
type ObjectiveDef struct {
	ID            string
	Description   string
	Optional      bool
	Prerequisites []string       // objective IDs within the same quest
	Completion    *ConditionSpec // nil: never completes
	Fail          *ConditionSpec // optional
}

// QuestDef is an immutable, authored quest.
type QuestDef struct {
	ID            string
	Title         string
	Description   string
	Objectives    []ObjectiveDef
	Prerequisites []string // quest IDs that must be completed first
	Rewards       []Effect // applied by the host when the quest completes
}

// Effect is a single atomic world mutation instruction.
type Effect struct {
	Type   string
	Params map[string]any
}

// Event is emitted by the host after effects are applied.
type Event struct {
	Type string
	Data map[string]any
}

// Intent is the parsed representation of a sandbox command.
type Intent struct {
	Verb   string
	Object string // optional
	Amount string // optional
}

// Result is the output of a single sandbox step.
type Result struct {
	Effects []Effect
	Events  []Event
	Output  []string
}

// GameDef holds game metadata from Lua.
type GameDef struct {
	Title     string
	Author    string
	Version   string
	Intro     string
	Start     string   // starting area ID
	AutoStart []string // quests started when a session begins
}

// AreaDef is a named place the player can move between.
type AreaDef struct {
	ID          string
	Name        string
	Description string
	Exits       []string // area IDs reachable with "go"; empty: any area
}
