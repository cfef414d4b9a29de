// internal/bus/bustest/wire.go

// Package bustest simulates a HEX-BUS cable with a scripted host on one end.
// The device end implements bus.Lines; the host end is driven by test code.
package bustest

import (
	"errors"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// ErrHostTimeout is returned by host operations that saw no device progress.
var ErrHostTimeout = errors.New("bustest: host timed out waiting for device")

// Wire is an open-collector cable: a line reads low when either end pulls it.
type Wire struct {
	mu   sync.Mutex
	cond *sync.Cond
	stop chan struct{}

	// Timeout bounds every host wait.
	Timeout time.Duration

	bavLow   bool
	hostHSK  bool
	devHSK   bool
	hostData uint8
	devData  uint8

	// the device has read HSK high since the host last pulled it low
	devSawHigh bool
	// the device pulled HSK low while the host strobe was held
	acked bool

	// nibbles latched by the host on device strobes
	latched []uint8
	strobes int
}

// NewWire returns an idle cable. Call Close when done.
func NewWire() *Wire {
	w := &Wire{
		stop:     make(chan struct{}),
		Timeout:  2 * time.Second,
		hostData: 0x0F,
		devData:  0x0F,
	}
	w.cond = sync.NewCond(&w.mu)

	// periodic wake-up so host waits can observe their deadline
	go func() {
		t := time.NewTicker(time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-t.C:
				w.cond.Broadcast()
			}
		}
	}()
	return w
}

// Close stops the wake-up ticker.
func (w *Wire) Close() { close(w.stop) }

func (w *Wire) hskLow() bool { return w.hostHSK || w.devHSK }

// ---- device end (bus.Lines) ----

func (w *Wire) BAV() gpio.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bavLow {
		return gpio.Low
	}
	return gpio.High
}

func (w *Wire) HSK() gpio.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hskLow() {
		return gpio.Low
	}
	if !w.devSawHigh {
		w.devSawHigh = true
		w.cond.Broadcast()
	}
	return gpio.High
}

func (w *Wire) DriveHSK(l gpio.Level) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	low := l == gpio.Low
	if low && w.hostHSK && !w.devHSK {
		w.acked = true
	}
	if low && !w.devHSK && !w.hostHSK {
		// device strobe: the host captures the nibble and stretches HSK.
		// A receiving host has its own data lines released.
		w.hostHSK = true
		w.latched = append(w.latched, w.devData&0x0F)
		w.strobes++
	}
	w.devHSK = low
	w.cond.Broadcast()
	return nil
}

func (w *Wire) Data() uint8 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hostData & w.devData & 0x0F
}

func (w *Wire) DriveData(n uint8) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.devData = n & 0x0F
	return nil
}

func (w *Wire) WaitHSK(timeout time.Duration) bool {
	time.Sleep(5 * time.Microsecond)
	return false
}

func (w *Wire) WaitBAV(timeout time.Duration) bool {
	time.Sleep(5 * time.Microsecond)
	return false
}

// ---- host end ----

// Strobes reports how many nibbles the device has transmitted.
func (w *Wire) Strobes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.strobes
}

// Begin pulls BAV low.
func (w *Wire) Begin() {
	w.mu.Lock()
	w.bavLow = true
	w.mu.Unlock()
}

// End releases every host line, BAV included.
func (w *Wire) End() {
	w.mu.Lock()
	w.bavLow = false
	w.hostHSK = false
	w.acked = false
	w.hostData = 0x0F
	w.latched = nil
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *Wire) waitLocked(cond func() bool) error {
	deadline := time.Now().Add(w.Timeout)
	for !cond() {
		if time.Now().After(deadline) {
			return ErrHostTimeout
		}
		w.cond.Wait()
	}
	return nil
}

// SendNibble strobes one nibble to the device and waits for its acknowledge.
func (w *Wire) SendNibble(n uint8) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.waitLocked(func() bool { return !w.hskLow() && w.devSawHigh }); err != nil {
		return err
	}
	w.hostData = n & 0x0F
	w.hostHSK = true
	w.devSawHigh = false
	w.acked = false
	w.cond.Broadcast()

	// the device may already have released for the next nibble when we wake
	if err := w.waitLocked(func() bool { return w.acked }); err != nil {
		return err
	}
	w.hostHSK = false
	w.cond.Broadcast()
	return nil
}

// Send transmits bytes low nibble first.
func (w *Wire) Send(data ...byte) error {
	for _, b := range data {
		if err := w.SendNibble(b & 0x0F); err != nil {
			return err
		}
		if err := w.SendNibble(b >> 4); err != nil {
			return err
		}
	}
	return nil
}

// RecvNibble waits for a device strobe and releases the stretched HSK.
func (w *Wire) RecvNibble() (uint8, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.waitLocked(func() bool { return len(w.latched) > 0 }); err != nil {
		return 0, err
	}
	n := w.latched[0]
	w.latched = w.latched[1:]
	w.hostHSK = false
	w.cond.Broadcast()
	return n, nil
}

// Recv receives n bytes.
func (w *Wire) Recv(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		lo, err := w.RecvNibble()
		if err != nil {
			return out, err
		}
		hi, err := w.RecvNibble()
		if err != nil {
			return out, err
		}
		out = append(out, lo|hi<<4)
	}
	return out, nil
}

// RecvResponse reads a standard response: length word, data, status byte.
func (w *Wire) RecvResponse() (data []byte, status byte, err error) {
	hdr, err := w.Recv(2)
	if err != nil {
		return nil, 0, err
	}
	n := int(hdr[0]) | int(hdr[1])<<8
	if data, err = w.Recv(n); err != nil {
		return data, 0, err
	}
	st, err := w.Recv(1)
	if err != nil {
		return data, 0, err
	}
	return data, st[0], nil
}
