// Package conditions implements the condition instances that gate objective
// completion and failure: event-driven leaves, a polling leaf, and the
// composite And/Or group.
package conditions

import (
	"fmt"

	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/services"
	"github.com/nathoo/questflow/types"
)

// ChangedFunc is invoked when an instance's IsMet value changes.
type ChangedFunc func(inst Instance, met bool)

// Instance is a condition bound to live game state.
type Instance interface {
	// Bind subscribes to the bus and captures context services. The
	// returned Binding is owned by the caller; Unbind on it tears the
	// subscriptions down. Binding again while bound releases the
	// previous Binding first.
	Bind(bus *events.Bus, ctx *services.Context, onChanged ChangedFunc) *Binding
	// IsMet is a pure read of the derived state.
	IsMet() bool
}

// Poller is implemented by instances whose state advances by polling
// rather than events.
type Poller interface {
	// Refresh recomputes accumulated state and calls onChanged only on a
	// false→true transition of IsMet.
	Refresh(ctx *services.Context, onChanged ChangedFunc)
}

// ProgressReporter is implemented by instances that can report partial
// progress for display.
type ProgressReporter interface {
	Progress() float64 // in [0,1]
	ProgressDescription() string
}

// Binding is the subscription handle produced by Bind. After Unbind the
// instance never invokes its callback until bound again.
type Binding struct {
	subs     []*events.Subscription
	children []*Binding
	release  []func()
	done     bool
}

// Unbind removes every subscription held by the binding. Calling it more
// than once is a no-op.
func (b *Binding) Unbind() {
	if b == nil || b.done {
		return
	}
	b.done = true
	for _, s := range b.subs {
		s.Cancel()
	}
	for _, c := range b.children {
		c.Unbind()
	}
	for _, fn := range b.release {
		fn()
	}
}

// Active reports whether the binding has not been released yet.
func (b *Binding) Active() bool {
	return b != nil && !b.done
}

// lifecycle holds the bound callback shared by every variant.
type lifecycle struct {
	onChanged ChangedFunc
	current   *Binding
}

func (l *lifecycle) begin(onChanged ChangedFunc) {
	if l.current != nil {
		l.current.Unbind()
	}
	l.onChanged = onChanged
}

func (l *lifecycle) finish(b *Binding) *Binding {
	b.release = append(b.release, func() {
		l.onChanged = nil
		if l.current == b {
			l.current = nil
		}
	})
	l.current = b
	return b
}

func (l *lifecycle) fire(self Instance, met bool) {
	if l.onChanged != nil {
		l.onChanged(self, met)
	}
}

// Bound reports whether the instance currently holds a live binding.
func (l *lifecycle) Bound() bool {
	return l.current.Active()
}

// New builds the instance described by spec. A nil spec yields a nil
// instance, which callers treat as never met.
func New(spec *types.ConditionSpec) (Instance, error) {
	if spec == nil {
		return nil, nil
	}

	switch spec.Type {
	case types.CondItemCollected:
		item, err := requireString(spec.Params, "item")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Type, err)
		}
		count := 1
		if v, ok := spec.Params["count"]; ok {
			count = toInt(v)
		}
		return NewItemCollected(item, count), nil

	case types.CondAreaEntered:
		area, err := requireString(spec.Params, "area")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Type, err)
		}
		return NewAreaEntered(area), nil

	case types.CondTimeElapsed:
		if _, ok := spec.Params["seconds"]; !ok {
			return nil, fmt.Errorf("%s: missing param %q", spec.Type, "seconds")
		}
		return NewTimeElapsed(toFloat(spec.Params["seconds"])), nil

	case types.CondCustomFlag:
		flag, err := requireString(spec.Params, "flag")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Type, err)
		}
		expected := true
		if v, ok := spec.Params["value"].(bool); ok {
			expected = v
		}
		return NewCustomFlag(flag, expected), nil

	case types.CondAll, types.CondAny:
		op := And
		if spec.Type == types.CondAny {
			op = Or
		}
		children := make([]Instance, 0, len(spec.Children))
		for i := range spec.Children {
			child, err := New(&spec.Children[i])
			if err != nil {
				return nil, fmt.Errorf("%s child %d: %w", spec.Type, i, err)
			}
			children = append(children, child)
		}
		return NewGroup(op, children...), nil

	default:
		return nil, fmt.Errorf("unknown condition type %q", spec.Type)
	}
}

// Describe returns a short human-readable status for inst.
func Describe(inst Instance) string {
	if inst == nil {
		return "never"
	}
	if p, ok := inst.(ProgressReporter); ok {
		return p.ProgressDescription()
	}
	if inst.IsMet() {
		return "done"
	}
	return "pending"
}

func requireString(params map[string]any, key string) (string, error) {
	s, _ := params[key].(string)
	if s == "" {
		return "", fmt.Errorf("missing param %q", key)
	}
	return s, nil
}

// toInt converts an any value to int, handling float64 from JSON/Lua.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
