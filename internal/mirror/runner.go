// internal/mirror/runner.go
package mirror

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/hexbus-drive/internal/bus"
	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/status"
)

// Transport error codes published in last_error_code.
const (
	CodeGeneric      uint16 = 1
	CodeBusAvailable uint16 = 0x101
	CodeTimeout      uint16 = 0x102
	CodeIllegalSlave uint16 = 0x103
)

// Runner folds engine events into a status snapshot and delivers it.
// It owns the snapshot; nothing else writes it.
type Runner struct {
	w      StatusWriter
	events <-chan hexbus.Event

	// Device reports the drive's current device code. Optional.
	Device func() uint8

	snap status.Snapshot
	tick time.Duration
}

func NewRunner(w StatusWriter, events <-chan hexbus.Event) *Runner {
	return &Runner{
		w:      w,
		events: events,
		snap:   status.Snapshot{Health: status.HealthUnknown},
		tick:   time.Second,
	}
}

// Run consumes events until ctx ends or the event channel closes.
// Health changes are written at once; counters are flushed on the 1Hz tick.
func (r *Runner) Run(ctx context.Context) {
	secTicker := time.NewTicker(r.tick)
	defer secTicker.Stop()

	r.refreshDevice()

	// Full block write on start (identity re-assert).
	r.write("start")

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-r.events:
			if !ok {
				return
			}
			if r.apply(ev) {
				r.write("health")
			}

		case <-secTicker.C:
			// Tick 1 Hz while in error.
			if r.snap.Health == status.HealthError && r.snap.SecondsInError < status.MaxSecondsInError {
				r.snap.SecondsInError++
			}
			r.refreshDevice()
			r.write("tick")
		}
	}
}

// apply folds one event into the snapshot and reports a health change.
func (r *Runner) apply(ev hexbus.Event) bool {
	before := r.snap.Health

	if ev.Err != nil {
		r.snap.Health = status.HealthError
		r.snap.LastErrorCode = ErrorCode(ev.Err)
		r.snap.Aborts++
		return before != r.snap.Health
	}
	if !ev.Matched {
		return false
	}

	// Recovery / OK
	r.snap.Health = status.HealthOK
	r.snap.LastErrorCode = 0
	r.snap.SecondsInError = 0
	r.snap.Transactions++
	r.snap.OpenSessions = uint16(ev.Sessions)
	if ev.Replied {
		r.snap.LastStatus = uint16(ev.Status)
	}
	return before != r.snap.Health
}

func (r *Runner) refreshDevice() {
	if r.Device != nil {
		r.snap.DeviceCode = uint16(r.Device())
	}
}

func (r *Runner) write(origin string) {
	if err := r.w.WriteStatus(r.snap); err != nil {
		log.WithField("origin", origin).Warnf("status write failed: %v", err)
	}
}

// ErrorCode maps a transport error to its published code.
// Unknown errors map to CodeGeneric.
func ErrorCode(err error) uint16 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, bus.ErrBusAvailable):
		return CodeBusAvailable
	case errors.Is(err, bus.ErrTimeout):
		return CodeTimeout
	case errors.Is(err, bus.ErrIllegalSlave):
		return CodeIllegalSlave
	}
	return CodeGeneric
}
