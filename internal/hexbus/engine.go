// internal/hexbus/engine.go
package hexbus

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultBufferSize is the shared I/O buffer size and the buffer length
// offered to hosts that do not request one.
const DefaultBufferSize = 256

// Event describes one finished transaction.
type Event struct {
	At      time.Time
	Device  uint8
	Command Command
	LUN     uint8

	// Matched is false for traffic addressed to another peripheral.
	Matched bool
	// Replied is false for silent commands (RESET) and aborted transactions.
	Replied bool
	Status  Status

	// Sessions is the number of open sessions after the transaction.
	Sessions int

	// Err is the transport error that aborted the transaction, if any.
	Err error
}

// Config is the engine runtime config.
type Config struct {
	BufferSize int
	// Events receives one Event per transaction. Sends never block.
	Events chan<- Event
	// Sessions reports open sessions for Event.Sessions. Optional.
	Sessions func() int
}

// Engine is the PAB receive and dispatch state machine.
// Exactly one transaction runs at a time; mu is held for its whole duration.
type Engine struct {
	mu       sync.Mutex
	port     Port
	reg      *Registry
	buf      []byte
	events   chan<- Event
	sessions func() int
}

func NewEngine(port Port, reg *Registry, cfg Config) (*Engine, error) {
	if port == nil {
		return nil, errors.New("hexbus: port required")
	}
	if reg == nil {
		return nil, errors.New("hexbus: registry required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &Engine{
		port:     port,
		reg:      reg,
		buf:      make([]byte, cfg.BufferSize),
		events:   cfg.Events,
		sessions: cfg.Sessions,
	}, nil
}

// Run serves transactions until ctx is cancelled.
// Transport errors end only the current transaction.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := e.Serve(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// Serve waits for and processes exactly one transaction.
// It returns an error only when ctx ends.
func (e *Engine) Serve(ctx context.Context) error {
	if err := e.port.WaitStart(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ev := Event{At: time.Now()}
	ev.Err = e.transact(&ev)
	if e.sessions != nil {
		ev.Sessions = e.sessions()
	}

	if ev.Err != nil {
		log.WithFields(log.Fields{
			"dev": ev.Device,
			"cmd": ev.Command,
			"lun": ev.LUN,
		}).Warnf("transaction aborted: %v", ev.Err)
	} else if ev.Matched {
		log.WithFields(log.Fields{
			"dev":    ev.Device,
			"cmd":    ev.Command,
			"lun":    ev.LUN,
			"status": ev.Status,
		}).Debug("transaction")
	}

	err := e.port.WaitIdle(ctx)
	e.emit(ev)
	return err
}

// Do runs fn between transactions, with the bus lock held.
func (e *Engine) Do(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// BufferSize returns the shared I/O buffer size.
func (e *Engine) BufferSize() int { return len(e.buf) }

func (e *Engine) transact(ev *Event) error {
	var hdr [PABSize]byte

	b, err := e.port.RecvByte()
	if err != nil {
		return err
	}
	hdr[0] = b
	ev.Device = b
	entry := e.reg.Lookup(b)

	// the rest of the header is drained even when the device is not ours
	for i := 1; i < PABSize; i++ {
		if hdr[i], err = e.port.RecvByte(); err != nil {
			return err
		}
	}

	pab, err := DecodePAB(hdr[:])
	if err != nil {
		return err
	}
	ev.Command = pab.Command
	ev.LUN = pab.LUN

	if pab.Device == DeviceBroadcast {
		if pab.Command == CmdReset {
			ev.Matched = true
			e.reg.ResetAll()
		}
		return nil
	}
	if entry == nil {
		// another peripheral may own this address: never answer
		return nil
	}
	ev.Matched = true

	tx := &Txn{
		PAB:   pab,
		Buf:   e.buf,
		port:  e.port,
		entry: entry,
		reg:   e.reg,
	}
	defer func() {
		ev.Replied = tx.replied
		ev.Status = tx.status
	}()

	h, ok := entry.Handlers[pab.Command]
	if !ok || h == nil {
		return tx.Fail(int(pab.DataLen), StatusUnsupportedCmd)
	}
	return h(tx)
}

func (e *Engine) emit(ev Event) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- ev:
	default:
	}
}
