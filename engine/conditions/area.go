package conditions

import (
	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/services"
)

// AreaEntered becomes permanently met the first time AreaID is entered
// while bound.
type AreaEntered struct {
	lifecycle
	AreaID string

	entered bool
}

// NewAreaEntered creates an unbound AreaEntered condition.
func NewAreaEntered(areaID string) *AreaEntered {
	return &AreaEntered{AreaID: areaID}
}

// Bind subscribes to AreaEntered events.
func (c *AreaEntered) Bind(bus *events.Bus, ctx *services.Context, onChanged ChangedFunc) *Binding {
	c.begin(onChanged)
	sub := events.AddListener(bus, c.handle)
	return c.finish(&Binding{subs: []*events.Subscription{sub}})
}

func (c *AreaEntered) handle(e events.AreaEntered) {
	if c.entered || e.AreaID != c.AreaID {
		return
	}
	c.entered = true
	c.fire(c, true)
}

// IsMet reports whether the area has been entered.
func (c *AreaEntered) IsMet() bool {
	return c.entered
}
