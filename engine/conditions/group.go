package conditions

import (
	"fmt"

	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/services"
)

// Operator combines the children of a Group.
type Operator int

const (
	And Operator = iota
	Or
)

func (o Operator) String() string {
	if o == Or {
		return "any"
	}
	return "all"
}

// Group is a composite condition over child instances. An empty And group
// is met; an empty Or group is never met. A nil child counts as unmet.
type Group struct {
	lifecycle
	Op       Operator
	Children []Instance

	met bool
}

// NewGroup creates an unbound group.
func NewGroup(op Operator, children ...Instance) *Group {
	g := &Group{Op: op, Children: children}
	g.met = g.IsMet()
	return g
}

// Bind binds every child with the group as their callback target.
func (g *Group) Bind(bus *events.Bus, ctx *services.Context, onChanged ChangedFunc) *Binding {
	g.begin(onChanged)
	b := &Binding{}
	for _, child := range g.Children {
		if child == nil {
			continue
		}
		b.children = append(b.children, child.Bind(bus, ctx, g.childChanged))
	}
	g.met = g.IsMet()
	return g.finish(b)
}

func (g *Group) childChanged(Instance, bool) {
	now := g.IsMet()
	if now == g.met {
		return
	}
	g.met = now
	g.fire(g, now)
}

// Refresh refreshes polling children, then reports a false→true flip of
// the aggregate through onChanged.
func (g *Group) Refresh(ctx *services.Context, onChanged ChangedFunc) {
	for _, child := range g.Children {
		if p, ok := child.(Poller); ok {
			p.Refresh(ctx, func(Instance, bool) {})
		}
	}
	now := g.IsMet()
	if now == g.met {
		return
	}
	g.met = now
	if !now {
		return
	}
	if onChanged == nil {
		onChanged = g.onChanged
	}
	if onChanged != nil {
		onChanged(g, now)
	}
}

// IsMet evaluates the aggregate over the children's current state.
func (g *Group) IsMet() bool {
	switch g.Op {
	case Or:
		for _, c := range g.Children {
			if c != nil && c.IsMet() {
				return true
			}
		}
		return false
	default:
		for _, c := range g.Children {
			if c == nil || !c.IsMet() {
				return false
			}
		}
		return true
	}
}

// Progress is the mean child progress for And and the maximum for Or.
// Children without progress reporting count as 0 or 1.
func (g *Group) Progress() float64 {
	if len(g.Children) == 0 {
		if g.IsMet() {
			return 1
		}
		return 0
	}
	var sum, best float64
	for _, c := range g.Children {
		p := childProgress(c)
		sum += p
		if p > best {
			best = p
		}
	}
	if g.Op == Or {
		return best
	}
	return sum / float64(len(g.Children))
}

// ProgressDescription returns e.g. "1/2 conditions met (all)".
func (g *Group) ProgressDescription() string {
	n := 0
	for _, c := range g.Children {
		if c != nil && c.IsMet() {
			n++
		}
	}
	return fmt.Sprintf("%d/%d conditions met (%s)", n, len(g.Children), g.Op)
}

func childProgress(c Instance) float64 {
	if c == nil {
		return 0
	}
	if p, ok := c.(ProgressReporter); ok {
		return p.Progress()
	}
	if c.IsMet() {
		return 1
	}
	return 0
}
