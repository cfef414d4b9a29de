// internal/bus/transport.go
package bus

import (
	"context"
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DefaultSettle is the minimum time a sender holds HSK low per nibble.
const DefaultSettle = 8 * time.Microsecond

// pollInterval bounds a single edge wait so BAV and ctx are re-checked.
const pollInterval = time.Millisecond

// Config is the transport timing config.
type Config struct {
	// Settle is the HSK low hold per transmitted nibble. Zero means DefaultSettle.
	Settle time.Duration
	// HandshakeTimeout bounds every HSK edge wait. Zero waits forever
	// (edge driven, aborted only by BAV).
	HandshakeTimeout time.Duration
}

// Transport moves bytes over the HEX-BUS two-line handshake.
// A Transport serves one transaction at a time; it is not safe for concurrent use.
type Transport struct {
	lines   Lines
	settle  time.Duration
	timeout time.Duration
	delay   func(time.Duration)

	active  bool // inside a transaction (BAV seen low)
	holding bool // we are holding HSK low after a received nibble
}

// New builds a transport over the given lines.
func New(lines Lines, cfg Config) (*Transport, error) {
	if lines == nil {
		return nil, errors.New("bus: lines required")
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	return &Transport{
		lines:   lines,
		settle:  cfg.Settle,
		timeout: cfg.HandshakeTimeout,
		delay:   spin,
	}, nil
}

// ---- transaction framing ----

// WaitStart blocks until the host pulls BAV low.
func (t *Transport) WaitStart(ctx context.Context) error {
	for t.lines.BAV() == gpio.High {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.lines.WaitBAV(pollInterval)
	}
	t.active = true
	return nil
}

// WaitIdle releases the bus and blocks until the host lets BAV go high.
func (t *Transport) WaitIdle(ctx context.Context) error {
	t.Finish()
	for t.lines.BAV() == gpio.Low {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.lines.WaitBAV(pollInterval)
	}
	t.active = false
	return nil
}

// Finish releases HSK and the data lines. Safe to call more than once.
func (t *Transport) Finish() {
	_ = t.lines.DriveData(0x0F)
	_ = t.lines.DriveHSK(gpio.High)
	t.holding = false
}

// ---- byte / word ----

// SendByte transmits one byte, low nibble first.
func (t *Transport) SendByte(b byte) error {
	if !t.active {
		return ErrIllegalSlave
	}
	if err := t.sendNibble(b & 0x0F); err != nil {
		return err
	}
	return t.sendNibble(b >> 4)
}

// RecvByte receives one byte, low nibble first. On return HSK is held low
// until the next transfer or Finish.
func (t *Transport) RecvByte() (byte, error) {
	if !t.active {
		return 0, ErrIllegalSlave
	}
	lo, err := t.recvNibble()
	if err != nil {
		return 0, err
	}
	hi, err := t.recvNibble()
	if err != nil {
		return 0, err
	}
	return lo | hi<<4, nil
}

// SendWord transmits a little-endian 16-bit value.
func (t *Transport) SendWord(v uint16) error {
	if err := t.SendByte(byte(v)); err != nil {
		return err
	}
	return t.SendByte(byte(v >> 8))
}

// ---- nibble primitives ----

func (t *Transport) sendNibble(n uint8) error {
	t.release()
	if err := t.waitHSK(gpio.High); err != nil {
		return err
	}
	if err := t.lines.DriveData(n & 0x0F); err != nil {
		return err
	}
	if err := t.lines.DriveHSK(gpio.Low); err != nil {
		return err
	}
	t.delay(t.settle)
	if err := t.lines.DriveHSK(gpio.High); err != nil {
		return err
	}
	return t.waitHSK(gpio.High)
}

func (t *Transport) recvNibble() (uint8, error) {
	t.release()
	if err := t.waitHSK(gpio.High); err != nil {
		return 0, err
	}
	if err := t.waitStrobe(); err != nil {
		return 0, err
	}
	// hold the line so the sender cannot start the next nibble
	if err := t.lines.DriveHSK(gpio.Low); err != nil {
		return 0, err
	}
	t.holding = true
	return t.lines.Data() & 0x0F, nil
}

func (t *Transport) release() {
	if t.holding {
		_ = t.lines.DriveHSK(gpio.High)
		t.holding = false
	}
}

// waitHSK waits for HSK to reach level l. BAV going high aborts.
func (t *Transport) waitHSK(l gpio.Level) error {
	var deadline time.Time
	if t.timeout > 0 {
		deadline = time.Now().Add(t.timeout)
	}
	for {
		if t.lines.HSK() == l {
			return nil
		}
		if t.lines.BAV() == gpio.High {
			return ErrBusAvailable
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrTimeout
		}
		t.lines.WaitHSK(pollInterval)
	}
}

// waitStrobe waits for the sender to pull HSK low. HSK was last read high,
// so a reported edge is the falling strobe even when the pulse has already
// ended by the time the line is sampled.
func (t *Transport) waitStrobe() error {
	var deadline time.Time
	if t.timeout > 0 {
		deadline = time.Now().Add(t.timeout)
	}
	for {
		if t.lines.HSK() == gpio.Low {
			return nil
		}
		if t.lines.BAV() == gpio.High {
			return ErrBusAvailable
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrTimeout
		}
		if t.lines.WaitHSK(pollInterval) {
			return nil
		}
	}
}

// spin busy-waits; time.Sleep cannot resolve single microseconds.
func spin(d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}
