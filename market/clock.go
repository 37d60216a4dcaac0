package market

import (
	"fmt"
	"time"
)

// Hook is called synchronously on every clock tick with the new time.
type Hook func(now time.Time)

// Clock is a simulation clock. It only moves when Advance is called, and it
// notifies attached hooks in attach order on each tick.
type Clock struct {
	now   time.Time
	next  int
	hooks []attachedHook
}

type attachedHook struct {
	id   int
	hook Hook
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time { return c.now }

// Attach registers a hook and returns a function that detaches it.
func (c *Clock) Attach(h Hook) (detach func()) {
	id := c.next
	c.next++
	c.hooks = append(c.hooks, attachedHook{id: id, hook: h})
	return func() { c.detach(id) }
}

func (c *Clock) detach(id int) {
	for i, h := range c.hooks {
		if h.id == id {
			c.hooks = append(c.hooks[:i], c.hooks[i+1:]...)
			return
		}
	}
}

// Advance moves the clock to t and ticks every hook. Advancing to the current
// time is a tick too.
func (c *Clock) Advance(t time.Time) error {
	if t.Before(c.now) {
		return fmt.Errorf("advance to %s from %s: %w", t.Format(time.RFC3339), c.now.Format(time.RFC3339), ErrClockBackwards)
	}
	c.now = t
	// hooks may detach themselves while running
	hooks := append([]attachedHook(nil), c.hooks...)
	for _, h := range hooks {
		h.hook(t)
	}
	return nil
}

// Hooks returns the number of attached hooks.
func (c *Clock) Hooks() int { return len(c.hooks) }
