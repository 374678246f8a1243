package session

import "sync"

// Actor runs events against one Controller one at a time, for transports
// that deliver events on several goroutines.
type Actor struct {
	mu  sync.Mutex
	ctl *Controller
}

// NewActor wraps ctl.
func NewActor(ctl *Controller) *Actor {
	return &Actor{ctl: ctl}
}

// Do runs fn with exclusive access to the controller.
func (a *Actor) Do(fn func(c *Controller) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.ctl)
}
