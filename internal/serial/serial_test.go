// internal/serial/serial_test.go
package serial

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	goserial "github.com/goburrow/serial"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
)

// ---- fakes ----

type fakeRS232 struct {
	rx     bytes.Buffer
	tx     bytes.Buffer
	closed bool
}

func (f *fakeRS232) Read(p []byte) (int, error) {
	if f.rx.Len() == 0 {
		return 0, goserial.ErrTimeout
	}
	return f.rx.Read(p)
}

func (f *fakeRS232) Write(p []byte) (int, error) { return f.tx.Write(p) }
func (f *fakeRS232) Close() error                { f.closed = true; return nil }

type hostPort struct {
	in  []byte
	out []byte
}

func (h *hostPort) WaitStart(ctx context.Context) error { return ctx.Err() }
func (h *hostPort) WaitIdle(context.Context) error      { return nil }
func (h *hostPort) Finish()                             {}

func (h *hostPort) RecvByte() (byte, error) {
	b := h.in[0]
	h.in = h.in[1:]
	return b, nil
}

func (h *hostPort) SendByte(b byte) error   { h.out = append(h.out, b); return nil }
func (h *hostPort) SendWord(v uint16) error { h.out = append(h.out, byte(v), byte(v>>8)); return nil }

type rig struct {
	t      *testing.T
	reg    *hexbus.Registry
	port   *fakeRS232
	opened []goserial.Config
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{t: t, reg: hexbus.NewRegistry(), port: &fakeRS232{}}
	s, err := New(Config{Address: "/dev/ttyTEST"}, func(c *goserial.Config) (io.ReadWriteCloser, error) {
		r.opened = append(r.opened, *c)
		return r.port, nil
	})
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	if err := s.Register(r.reg, DeviceDefault); err != nil {
		t.Fatalf("Register err=%v", err)
	}
	return r
}

func (r *rig) do(cmd hexbus.Command, lun uint8, buflen uint16, payload []byte) ([]byte, hexbus.Status) {
	r.t.Helper()
	p := hexbus.PAB{Device: DeviceDefault, Command: cmd, LUN: lun, BufLen: buflen, DataLen: uint16(len(payload))}
	hp := &hostPort{in: append(p.Encode(), payload...)}
	e, _ := hexbus.NewEngine(hp, r.reg, hexbus.Config{})
	if err := e.Serve(context.Background()); err != nil {
		r.t.Fatalf("Serve err=%v", err)
	}
	if len(hp.out) < 3 {
		r.t.Fatalf("%s: short response % x", cmd, hp.out)
	}
	n := int(binary.LittleEndian.Uint16(hp.out))
	return hp.out[2 : 2+n], hexbus.Status(hp.out[2+n])
}

func openPayload(a hexbus.OpenAttr, opts string) []byte {
	return append([]byte{0, 0, a.Byte()}, opts...)
}

// ---- tests ----

func TestParseOptions(t *testing.T) {
	base := goserial.Config{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "N"}

	c, err := ParseOptions(".BA=1200.DA=7.PA=e.ST=2", base)
	if err != nil {
		t.Fatalf("ParseOptions err=%v", err)
	}
	if c.BaudRate != 1200 || c.DataBits != 7 || c.Parity != "E" || c.StopBits != 2 {
		t.Fatalf("unexpected config %+v", c)
	}

	for _, bad := range []string{".BA=1234", ".DA=9", ".PA=M", ".ST=3", ".XX=1", ".BA"} {
		if _, err := ParseOptions(bad, base); err == nil {
			t.Fatalf("%q: expected error, got nil", bad)
		}
	}
}

func TestSerial_OpenWithOptions(t *testing.T) {
	r := newRig(t)

	_, st := r.do(hexbus.CmdOpen, 1, 0, openPayload(hexbus.OpenAttr{Mode: hexbus.ModeUpdate}, ".BA=2400"))
	if st != hexbus.StatusSuccess {
		t.Fatalf("expected success, got %v", st)
	}
	if len(r.opened) != 1 || r.opened[0].BaudRate != 2400 || r.opened[0].Address != "/dev/ttyTEST" {
		t.Fatalf("unexpected port config %+v", r.opened)
	}

	_, st = r.do(hexbus.CmdOpen, 2, 0, openPayload(hexbus.OpenAttr{Mode: hexbus.ModeUpdate}, ""))
	if st != hexbus.StatusSuccess || len(r.opened) != 1 {
		t.Fatalf("second lun must share the port: st=%v opens=%d", st, len(r.opened))
	}

	_, st = r.do(hexbus.CmdOpen, 3, 0, openPayload(hexbus.OpenAttr{Mode: hexbus.ModeUpdate}, ".BA=7"))
	if st != hexbus.StatusOptionErr {
		t.Fatalf("expected OptionErr, got %v", st)
	}
}

func TestSerial_WriteAndRead(t *testing.T) {
	r := newRig(t)
	r.do(hexbus.CmdOpen, 1, 0, openPayload(hexbus.OpenAttr{Mode: hexbus.ModeUpdate}, ""))

	if _, st := r.do(hexbus.CmdWrite, 1, 0, []byte("AT")); st != hexbus.StatusSuccess {
		t.Fatalf("expected write success, got %v", st)
	}
	if r.port.tx.String() != "AT\r\n" {
		t.Fatalf("expected AT+CRLF on the wire, got %q", r.port.tx.String())
	}

	data, st := r.do(hexbus.CmdRead, 1, 80, nil)
	if st != hexbus.StatusSuccess || len(data) != 0 {
		t.Fatalf("expected empty read on timeout, got st=%v data=%q", st, data)
	}

	r.port.rx.WriteString("OK")
	data, _ = r.do(hexbus.CmdRead, 1, 80, nil)
	if string(data) != "OK" {
		t.Fatalf("expected OK, got %q", data)
	}
}

func TestSerial_LastCloseReleasesPort(t *testing.T) {
	r := newRig(t)
	r.do(hexbus.CmdOpen, 1, 0, openPayload(hexbus.OpenAttr{Mode: hexbus.ModeWrite}, ""))
	r.do(hexbus.CmdOpen, 2, 0, openPayload(hexbus.OpenAttr{Mode: hexbus.ModeWrite}, ""))

	r.do(hexbus.CmdClose, 1, 0, nil)
	if r.port.closed {
		t.Fatalf("port closed while a lun is still open")
	}
	r.do(hexbus.CmdClose, 2, 0, nil)
	if !r.port.closed {
		t.Fatalf("port left open after last close")
	}
	if _, st := r.do(hexbus.CmdClose, 2, 0, nil); st != hexbus.StatusNotOpen {
		t.Fatalf("expected NotOpen, got %v", st)
	}
}

func TestSerial_OpenFailure(t *testing.T) {
	reg := hexbus.NewRegistry()
	s, _ := New(Config{Address: "/dev/none"}, func(*goserial.Config) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	})
	s.Register(reg, DeviceDefault)
	r := &rig{t: t, reg: reg}

	if _, st := r.do(hexbus.CmdOpen, 1, 0, openPayload(hexbus.OpenAttr{Mode: hexbus.ModeWrite}, "")); st != hexbus.StatusDeviceErr {
		t.Fatalf("expected DeviceErr, got %v", st)
	}
	if _, st := r.do(hexbus.CmdWrite, 1, 0, []byte("x")); st != hexbus.StatusNotOpen {
		t.Fatalf("failed open must release the lun, got %v", st)
	}
}
