// internal/clock/clock.go
package clock

import (
	"sync"
	"time"
)

// Layout is the wire format of the clock device.
const Layout = "2006/01/02,15:04:05"

// Clock is the time collaborator.
type Clock interface {
	Now() time.Time
	Set(t time.Time)
}

// Offset keeps a settable clock as an offset over the system clock.
type Offset struct {
	mu  sync.Mutex
	off time.Duration
	now func() time.Time
}

func NewOffset() *Offset {
	return &Offset{now: time.Now}
}

func (o *Offset) Now() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now().Add(o.off)
}

func (o *Offset) Set(t time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.off = t.Sub(o.now())
}
