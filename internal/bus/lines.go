// internal/bus/lines.go
package bus

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Transport-level errors. These are always fatal to the current transaction
// and are never answered with a status byte.
var (
	// ErrBusAvailable reports that BAV went high while an operation was pending:
	// the host abandoned the transaction.
	ErrBusAvailable = errors.New("bus: bus-available abort")

	// ErrTimeout reports that a handshake edge did not arrive within the
	// configured handshake timeout.
	ErrTimeout = errors.New("bus: handshake timeout")

	// ErrIllegalSlave reports an attempt to drive the bus outside a transaction.
	ErrIllegalSlave = errors.New("bus: illegal slave access")
)

// Lines is the physical line driver consumed by the transport.
// All lines are open collector: driving High means releasing the line,
// which then reads high unless the far end pulls it low.
type Lines interface {
	BAV() gpio.Level
	HSK() gpio.Level
	DriveHSK(l gpio.Level) error

	// Data returns the 4-bit nibble currently on D0..D3.
	Data() uint8
	// DriveData pulls low every data line whose bit is 0. 0x0F releases all.
	DriveData(nibble uint8) error

	// WaitHSK blocks until an HSK edge or the timeout. It may return early;
	// callers always re-read the line.
	WaitHSK(timeout time.Duration) bool
	// WaitBAV blocks until a BAV edge or the timeout.
	WaitBAV(timeout time.Duration) bool
}
