// Package services provides the quest context: a typed locator for the
// optional game services conditions may consult. The engine only reads
// services, never mutates them.
package services

import (
	"log"
	"reflect"
)

// Time exposes the game clock.
type Time interface {
	TotalElapsedSeconds() float64
	DeltaSeconds() float64
	TimeOfDay() float64
	CurrentDay() int
}

// Flags exposes persistent boolean flags and integer counters.
type Flags interface {
	GetFlag(id string) bool
	SetFlag(id string, value bool)
	GetCounter(id string) int
	SetCounter(id string, value int)
	IncrementCounter(id string, amount int) int
	HasFlagBeenSet(id string) bool
}

// Inventory exposes the player's items.
type Inventory interface {
	GetItemCount(itemID string) int
	HasItem(itemID string) bool
	HasEverCollected(itemID string) bool
}

// Area exposes the player's location.
type Area interface {
	CurrentAreaID() string
	HasEnteredArea(areaID string) bool
	IsInArea(areaID string) bool
}

// Context is constructed once per engine and threaded through every
// condition Bind and Refresh call.
type Context struct {
	services map[reflect.Type]any
	logger   *log.Logger
}

// NewContext creates an empty context. A nil logger uses log.Default().
func NewContext(logger *log.Logger) *Context {
	if logger == nil {
		logger = log.Default()
	}
	return &Context{
		services: map[reflect.Type]any{},
		logger:   logger,
	}
}

// Logger returns the context logger. Safe on a nil context.
func (c *Context) Logger() *log.Logger {
	if c == nil || c.logger == nil {
		return log.Default()
	}
	return c.logger
}

// Register makes svc available under the service type T, usually one of
// the interfaces in this package:
//
//	services.Register[services.Time](ctx, clock)
func Register[T any](c *Context, svc T) {
	c.services[reflect.TypeFor[T]()] = svc
}

// Get returns the service registered as T.
func Get[T any](c *Context) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.services[reflect.TypeFor[T]()]
	if !ok {
		return zero, false
	}
	svc, ok := v.(T)
	return svc, ok
}

// Has reports whether a service is registered as T.
func Has[T any](c *Context) bool {
	_, ok := Get[T](c)
	return ok
}
