package quest

// Log is the registry of active quests, in the order they were added.
// It holds membership only.
type Log struct {
	quests []*QuestState
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Add registers q. Adding a quest already present is a no-op.
func (l *Log) Add(q *QuestState) {
	if l.Contains(q) {
		return
	}
	l.quests = append(l.quests, q)
}

// Remove unregisters q. Reports whether it was present.
func (l *Log) Remove(q *QuestState) bool {
	for i, existing := range l.quests {
		if existing == q {
			next := make([]*QuestState, 0, len(l.quests)-1)
			next = append(next, l.quests[:i]...)
			next = append(next, l.quests[i+1:]...)
			l.quests = next
			return true
		}
	}
	return false
}

// Contains reports whether q is registered.
func (l *Log) Contains(q *QuestState) bool {
	for _, existing := range l.quests {
		if existing == q {
			return true
		}
	}
	return false
}

// Find returns the active quest with the given definition ID.
func (l *Log) Find(id string) (*QuestState, bool) {
	for _, q := range l.quests {
		if q.ID() == id {
			return q, true
		}
	}
	return nil, false
}

// Active returns a copy of the registered quests.
func (l *Log) Active() []*QuestState {
	out := make([]*QuestState, len(l.quests))
	copy(out, l.quests)
	return out
}

// Len returns the number of active quests.
func (l *Log) Len() int {
	return len(l.quests)
}
