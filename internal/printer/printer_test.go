// internal/printer/printer_test.go
package printer

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
)

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

// status runs one transaction and returns the final byte, or -1 for silence.
func status(t *testing.T, reg *hexbus.Registry, cmd hexbus.Command, lun uint8, payload []byte) int {
	t.Helper()
	p := hexbus.PAB{Device: DeviceDefault, Command: cmd, LUN: lun, DataLen: uint16(len(payload))}
	port := &hostPort{in: append(p.Encode(), payload...)}
	e, _ := hexbus.NewEngine(port, reg, hexbus.Config{})
	if err := e.Serve(context.Background()); err != nil {
		t.Fatalf("Serve err=%v", err)
	}
	if len(port.in) != 0 {
		t.Fatalf("%s: payload not drained", cmd)
	}
	if len(port.out) == 0 {
		return -1
	}
	return int(port.out[len(port.out)-1])
}

func newPrinter(t *testing.T) (*hexbus.Registry, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	p, err := New(mem, "/print.txt", 2)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	reg := hexbus.NewRegistry()
	if err := p.Register(reg, DeviceDefault); err != nil {
		t.Fatalf("Register err=%v", err)
	}
	return reg, mem
}

func TestPrinter_RecordsGetCRLF(t *testing.T) {
	reg, mem := newPrinter(t)
	open := []byte{0, 0, hexbus.OpenAttr{Mode: hexbus.ModeWrite}.Byte()}

	if st := status(t, reg, hexbus.CmdOpen, 1, open); st != int(hexbus.StatusSuccess) {
		t.Fatalf("expected open success, got %d", st)
	}
	status(t, reg, hexbus.CmdWrite, 1, []byte("LINE 1"))
	status(t, reg, hexbus.CmdWrite, 1, []byte("LINE 2"))
	if st := status(t, reg, hexbus.CmdClose, 1, nil); st != int(hexbus.StatusSuccess) {
		t.Fatalf("expected close success, got %d", st)
	}

	got, _ := afero.ReadFile(mem, "/print.txt")
	if string(got) != "LINE 1\r\nLINE 2\r\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPrinter_ReadOnlyOpenRejected(t *testing.T) {
	reg, _ := newPrinter(t)
	open := []byte{0, 0, hexbus.OpenAttr{Mode: hexbus.ModeRead}.Byte()}

	if st := status(t, reg, hexbus.CmdOpen, 1, open); st != int(hexbus.StatusAttrErr) {
		t.Fatalf("expected AttrErr, got %d", st)
	}
	if st := status(t, reg, hexbus.CmdRead, 1, nil); st != int(hexbus.StatusUnsupportedCmd) {
		t.Fatalf("expected UnsupportedCmd, got %d", st)
	}
}

func TestPrinter_WriteNotOpen(t *testing.T) {
	reg, _ := newPrinter(t)
	if st := status(t, reg, hexbus.CmdWrite, 3, []byte("x")); st != int(hexbus.StatusNotOpen) {
		t.Fatalf("expected NotOpen, got %d", st)
	}
}

func TestPrinter_ResetIsSilent(t *testing.T) {
	reg, _ := newPrinter(t)
	open := []byte{0, 0, hexbus.OpenAttr{Mode: hexbus.ModeAppend}.Byte()}
	status(t, reg, hexbus.CmdOpen, 1, open)

	if st := status(t, reg, hexbus.CmdReset, 0, nil); st != -1 {
		t.Fatalf("expected silence, got %d", st)
	}
	if st := status(t, reg, hexbus.CmdWrite, 1, []byte("x")); st != int(hexbus.StatusNotOpen) {
		t.Fatalf("expected NotOpen after reset, got %d", st)
	}
}
