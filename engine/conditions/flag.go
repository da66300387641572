package conditions

import (
	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/services"
)

// CustomFlag is met while FlagID equals Expected. Unlike AreaEntered it
// can flip back to unmet.
type CustomFlag struct {
	lifecycle
	FlagID   string
	Expected bool

	value bool
}

// NewCustomFlag creates an unbound CustomFlag condition.
func NewCustomFlag(flagID string, expected bool) *CustomFlag {
	return &CustomFlag{FlagID: flagID, Expected: expected}
}

// Bind reads the current flag value from services.Flags, when registered,
// and subscribes to FlagChanged events.
func (c *CustomFlag) Bind(bus *events.Bus, ctx *services.Context, onChanged ChangedFunc) *Binding {
	c.begin(onChanged)
	if flags, ok := services.Get[services.Flags](ctx); ok {
		c.value = flags.GetFlag(c.FlagID)
	} else {
		c.value = false
		ctx.Logger().Printf("warning: custom_flag %q: no flag service available, assuming false", c.FlagID)
	}
	sub := events.AddListener(bus, c.handle)
	return c.finish(&Binding{subs: []*events.Subscription{sub}})
}

func (c *CustomFlag) handle(e events.FlagChanged) {
	if e.FlagID != c.FlagID {
		return
	}
	was := c.IsMet()
	c.value = e.Value
	if now := c.IsMet(); now != was {
		c.fire(c, now)
	}
}

// IsMet reports whether the flag currently holds the expected value.
func (c *CustomFlag) IsMet() bool {
	return c.value == c.Expected
}
