package conditions

import (
	"fmt"

	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/services"
)

// TimeElapsed is met once Required seconds of game time have accumulated
// across Refresh calls. Time only accumulates while a services.Time is
// available; without one the condition never advances.
type TimeElapsed struct {
	lifecycle
	Required float64

	accumulated float64
	last        float64
	hasLast     bool
	warned      bool
}

// NewTimeElapsed creates an unbound TimeElapsed condition.
func NewTimeElapsed(seconds float64) *TimeElapsed {
	return &TimeElapsed{Required: seconds}
}

// Bind captures the current clock reading as the accumulation baseline.
// Time that passes while unbound is not counted.
func (c *TimeElapsed) Bind(bus *events.Bus, ctx *services.Context, onChanged ChangedFunc) *Binding {
	c.begin(onChanged)
	if clock, ok := services.Get[services.Time](ctx); ok {
		c.last = clock.TotalElapsedSeconds()
		c.hasLast = true
	} else {
		c.warnNoClock(ctx)
	}
	b := &Binding{}
	b.release = append(b.release, func() { c.hasLast = false })
	return c.finish(b)
}

// Refresh adds the clock delta since the previous reading.
func (c *TimeElapsed) Refresh(ctx *services.Context, onChanged ChangedFunc) {
	clock, ok := services.Get[services.Time](ctx)
	if !ok {
		c.warnNoClock(ctx)
		return
	}
	now := clock.TotalElapsedSeconds()
	if !c.hasLast {
		c.last = now
		c.hasLast = true
		return
	}
	delta := now - c.last
	c.last = now
	if delta <= 0 {
		return
	}

	was := c.IsMet()
	c.accumulated += delta
	if was || !c.IsMet() {
		return
	}
	if onChanged == nil {
		onChanged = c.onChanged
	}
	if onChanged != nil {
		onChanged(c, true)
	}
}

func (c *TimeElapsed) warnNoClock(ctx *services.Context) {
	if c.warned {
		return
	}
	c.warned = true
	ctx.Logger().Printf("warning: time_elapsed: no time service available, condition cannot advance")
}

// IsMet reports whether enough time has accumulated.
func (c *TimeElapsed) IsMet() bool {
	return c.accumulated >= c.Required
}

// Elapsed returns the accumulated seconds.
func (c *TimeElapsed) Elapsed() float64 {
	return c.accumulated
}

// Progress returns elapsed/required, capped at 1.
func (c *TimeElapsed) Progress() float64 {
	if c.Required <= 0 {
		return 1
	}
	p := c.accumulated / c.Required
	if p > 1 {
		return 1
	}
	return p
}

// ProgressDescription returns e.g. "12/30s".
func (c *TimeElapsed) ProgressDescription() string {
	e := c.accumulated
	if e > c.Required {
		e = c.Required
	}
	return fmt.Sprintf("%.0f/%.0fs", e, c.Required)
}
