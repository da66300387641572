package engine

import "github.com/nathoo/questflow/engine/quest"

// pair identifies one objective of one quest instance.
type pair struct {
	q *quest.QuestState
	o *quest.ObjectiveState
}

// DirtyQueue is an insertion-ordered set of (quest, objective) pairs
// awaiting evaluation. Pairs are keyed by pointer identity.
type DirtyQueue struct {
	order []pair
	seen  map[pair]struct{}
}

// NewDirtyQueue creates an empty queue.
func NewDirtyQueue() *DirtyQueue {
	return &DirtyQueue{seen: map[pair]struct{}{}}
}

// MarkDirty schedules (q, o). Marking a pending pair again is a no-op.
func (d *DirtyQueue) MarkDirty(q *quest.QuestState, o *quest.ObjectiveState) {
	p := pair{q, o}
	if _, ok := d.seen[p]; ok {
		return
	}
	d.seen[p] = struct{}{}
	d.order = append(d.order, p)
}

// Forget drops every pending pair of q.
func (d *DirtyQueue) Forget(q *quest.QuestState) {
	kept := d.order[:0:0]
	for _, p := range d.order {
		if p.q == q {
			delete(d.seen, p)
			continue
		}
		kept = append(kept, p)
	}
	d.order = kept
}

// Len returns the number of pending pairs.
func (d *DirtyQueue) Len() int {
	return len(d.order)
}

// drain returns the pending pairs and resets the queue. Pairs marked
// after drain land in the fresh set.
func (d *DirtyQueue) drain() []pair {
	out := d.order
	d.order = nil
	d.seen = map[pair]struct{}{}
	return out
}
