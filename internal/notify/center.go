package notify

import (
	"sync"
	"time"
)

// DefaultTTL is how long a notification stays up before auto-expiring.
const DefaultTTL = 3 * time.Second

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

type Notification struct {
	Message  string
	Severity Severity
}

// Center holds at most one active notification. A new message always
// replaces the current one; there is no stacking. Expiry and dismissal
// are idempotent.
type Center struct {
	mu      sync.RWMutex
	ttl     time.Duration
	current *Notification
	seq     uint64 // bumped per Show, guards the expiry timer
	timer   *time.Timer

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// NewCenter creates a Center with the given auto-expiry duration.
// A zero ttl falls back to DefaultTTL.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		ttl:  ttl,
		subs: make(map[int]func()),
	}
}

// Success shows a success notification, replacing any current one.
func (c *Center) Success(message string) {
	c.show(message, SeveritySuccess)
}

// Error shows an error notification, replacing any current one.
func (c *Center) Error(message string) {
	c.show(message, SeverityError)
}

func (c *Center) show(message string, severity Severity) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.current = &Notification{Message: message, Severity: severity}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.ttl, func() { c.expire(seq) })
	c.mu.Unlock()

	c.publish()
}

// expire clears the notification only if it is still the one the timer
// was armed for. A message shown after the timer fired is left alone.
func (c *Center) expire(seq uint64) {
	c.mu.Lock()
	cleared := c.seq == seq && c.current != nil
	if cleared {
		c.current = nil
	}
	c.mu.Unlock()

	if cleared {
		c.publish()
	}
}

// Dismiss clears the active notification. Dismissing an already-expired
// notification is a no-op.
func (c *Center) Dismiss() {
	c.mu.Lock()
	cleared := c.current != nil
	c.current = nil
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	if cleared {
		c.publish()
	}
}

// Current returns a copy of the active notification, or nil.
func (c *Center) Current() *Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	n := *c.current
	return &n
}

// Subscribe registers fn to run after every change. The returned func
// unsubscribes.
func (c *Center) Subscribe(fn func()) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Center) publish() {
	c.subMu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
