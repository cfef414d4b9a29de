// internal/bus/transport_test.go
package bus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/tamzrod/hexbus-drive/internal/bus"
	"github.com/tamzrod/hexbus-drive/internal/bus/bustest"
)

func newTransport(t *testing.T) (*bus.Transport, *bustest.Wire) {
	t.Helper()
	w := bustest.NewWire()
	t.Cleanup(w.Close)

	tr, err := bus.New(w, bus.Config{Settle: time.Microsecond})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return tr, w
}

func TestTransport_RecvBytesFromHost(t *testing.T) {
	tr, w := newTransport(t)

	hostErr := make(chan error, 1)
	go func() {
		w.Begin()
		hostErr <- w.Send(0x64, 0xA5, 0x00, 0xFF)
	}()

	if err := tr.WaitStart(context.Background()); err != nil {
		t.Fatalf("WaitStart err=%v", err)
	}

	want := []byte{0x64, 0xA5, 0x00, 0xFF}
	for i, b := range want {
		got, err := tr.RecvByte()
		if err != nil {
			t.Fatalf("RecvByte[%d] err=%v", i, err)
		}
		if got != b {
			t.Fatalf("RecvByte[%d]: got=0x%02x want=0x%02x", i, got, b)
		}
	}
	if err := <-hostErr; err != nil {
		t.Fatalf("host send err=%v", err)
	}
}

func TestTransport_SendWordThenByte(t *testing.T) {
	tr, w := newTransport(t)

	type result struct {
		data   []byte
		status byte
		err    error
	}
	done := make(chan result, 1)

	w.Begin()
	go func() {
		data, st, err := w.RecvResponse()
		done <- result{data, st, err}
	}()

	if err := tr.WaitStart(context.Background()); err != nil {
		t.Fatalf("WaitStart err=%v", err)
	}
	if err := tr.SendWord(3); err != nil {
		t.Fatalf("SendWord err=%v", err)
	}
	for _, b := range []byte{'a', 'b', 'c', 0x07} {
		if err := tr.SendByte(b); err != nil {
			t.Fatalf("SendByte err=%v", err)
		}
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("host recv err=%v", res.err)
	}
	if string(res.data) != "abc" || res.status != 0x07 {
		t.Fatalf("unexpected response data=%q status=%d", res.data, res.status)
	}
	tr.Finish()
}

func TestTransport_BusAvailableAbort(t *testing.T) {
	tr, w := newTransport(t)

	w.Begin()
	if err := tr.WaitStart(context.Background()); err != nil {
		t.Fatalf("WaitStart err=%v", err)
	}

	go func() {
		_ = w.Send(0x12)
		w.End()
	}()

	if _, err := tr.RecvByte(); err != nil {
		t.Fatalf("first RecvByte err=%v", err)
	}
	_, err := tr.RecvByte()
	if !errors.Is(err, bus.ErrBusAvailable) {
		t.Fatalf("expected ErrBusAvailable, got %v", err)
	}
}

func TestTransport_IllegalOutsideTransaction(t *testing.T) {
	tr, _ := newTransport(t)

	if err := tr.SendByte(1); !errors.Is(err, bus.ErrIllegalSlave) {
		t.Fatalf("expected ErrIllegalSlave, got %v", err)
	}
}

func TestTransport_HandshakeTimeout(t *testing.T) {
	w := bustest.NewWire()
	defer w.Close()

	tr, err := bus.New(w, bus.Config{HandshakeTimeout: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	w.Begin()
	if err := tr.WaitStart(context.Background()); err != nil {
		t.Fatalf("WaitStart err=%v", err)
	}
	// host holds BAV low but never strobes
	if _, err := tr.RecvByte(); !errors.Is(err, bus.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestTransport_WaitStartHonoursContext(t *testing.T) {
	tr, _ := newTransport(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	if err := tr.WaitStart(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

// pulseLines reports host strobes only as edges: by the time HSK is sampled
// the pulse is over and the line reads high again.
type pulseLines struct {
	pending []uint8
	data    uint8
	holds   int
}

func (p *pulseLines) BAV() gpio.Level { return gpio.Low }
func (p *pulseLines) HSK() gpio.Level { return gpio.High }

func (p *pulseLines) DriveHSK(l gpio.Level) error {
	if l == gpio.Low {
		p.holds++
	}
	return nil
}

func (p *pulseLines) Data() uint8                { return p.data }
func (p *pulseLines) DriveData(uint8) error      { return nil }
func (p *pulseLines) WaitBAV(time.Duration) bool { return false }

func (p *pulseLines) WaitHSK(time.Duration) bool {
	if len(p.pending) == 0 {
		return false
	}
	p.data = p.pending[0]
	p.pending = p.pending[1:]
	return true
}

func TestTransport_EndedStrobeStillCaptured(t *testing.T) {
	lines := &pulseLines{pending: []uint8{0x4, 0x6}}
	tr, err := bus.New(lines, bus.Config{Settle: time.Microsecond, HandshakeTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := tr.WaitStart(context.Background()); err != nil {
		t.Fatalf("WaitStart err=%v", err)
	}

	got, err := tr.RecvByte()
	if err != nil {
		t.Fatalf("RecvByte err=%v", err)
	}
	if got != 0x64 {
		t.Fatalf("expected 0x64, got 0x%02x", got)
	}
	if lines.holds != 2 {
		t.Fatalf("expected HSK held after each nibble, got %d holds", lines.holds)
	}
}

func TestWire_HostSeesAckReleasedBeforeItWakes(t *testing.T) {
	w := bustest.NewWire()
	defer w.Close()
	w.Timeout = 200 * time.Millisecond

	w.Begin()
	hostErr := make(chan error, 1)
	go func() { hostErr <- w.SendNibble(0x5) }()

	// device: see the line idle, catch the strobe, ack and release at once
	deadline := time.Now().Add(time.Second)
	for w.HSK() != gpio.Low {
		if time.Now().After(deadline) {
			t.Fatalf("host never strobed")
		}
	}
	if got := w.Data(); got != 0x5 {
		t.Fatalf("expected nibble 0x5, got 0x%x", got)
	}
	w.DriveHSK(gpio.Low)
	w.DriveHSK(gpio.High)

	if err := <-hostErr; err != nil {
		t.Fatalf("host send err=%v", err)
	}
}
