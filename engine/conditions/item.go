package conditions

import (
	"fmt"
	"log"

	"github.com/nathoo/questflow/engine/events"
	"github.com/nathoo/questflow/engine/services"
)

// ItemCollected is met once Required items of ItemID have been collected
// since the instance was created. Collection events with a non-positive
// amount are rejected, so the counter never decreases.
type ItemCollected struct {
	lifecycle
	ItemID   string
	Required int

	count  int
	logger *log.Logger
}

// NewItemCollected creates an unbound ItemCollected condition.
func NewItemCollected(itemID string, required int) *ItemCollected {
	return &ItemCollected{ItemID: itemID, Required: required}
}

// Bind subscribes to ItemCollected events.
func (c *ItemCollected) Bind(bus *events.Bus, ctx *services.Context, onChanged ChangedFunc) *Binding {
	c.begin(onChanged)
	c.logger = ctx.Logger()
	sub := events.AddListener(bus, c.handle)
	return c.finish(&Binding{subs: []*events.Subscription{sub}})
}

func (c *ItemCollected) handle(e events.ItemCollected) {
	if e.ItemID != c.ItemID {
		return
	}
	if e.Amount <= 0 {
		c.logger.Printf("warning: item_collected %q: ignoring non-positive amount %d", c.ItemID, e.Amount)
		return
	}
	was := c.IsMet()
	c.count += e.Amount
	if !was && c.IsMet() {
		c.fire(c, true)
	}
}

// IsMet reports whether enough items have been collected.
func (c *ItemCollected) IsMet() bool {
	return c.count >= c.Required
}

// Count returns the number of matching items observed so far.
func (c *ItemCollected) Count() int {
	return c.count
}

// Progress returns count/required, capped at 1.
func (c *ItemCollected) Progress() float64 {
	if c.Required <= 0 {
		return 1
	}
	p := float64(c.count) / float64(c.Required)
	if p > 1 {
		return 1
	}
	return p
}

// ProgressDescription returns e.g. "3/5 sword".
func (c *ItemCollected) ProgressDescription() string {
	n := c.count
	if n > c.Required {
		n = c.Required
	}
	return fmt.Sprintf("%d/%d %s", n, c.Required, c.ItemID)
}
