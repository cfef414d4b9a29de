// internal/clock/device.go
package clock

import (
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/session"
)

const (
	DeviceLow     uint8 = 230
	DeviceHigh    uint8 = 239
	DeviceDefault uint8 = 230
)

const EntryName = "clock"

// Device serves a Clock on the bus.
type Device struct {
	clk   Clock
	table *session.Table
}

func NewDevice(clk Clock, maxOpen int) *Device {
	if clk == nil {
		clk = NewOffset()
	}
	return &Device{clk: clk, table: session.NewTable(maxOpen, nil)}
}

func (d *Device) Entry() *hexbus.Entry {
	return &hexbus.Entry{
		Name: EntryName,
		Low:  DeviceLow,
		High: DeviceHigh,
		Handlers: map[hexbus.Command]hexbus.Handler{
			hexbus.CmdOpen:         d.open,
			hexbus.CmdClose:        d.close,
			hexbus.CmdRead:         d.read,
			hexbus.CmdWrite:        d.write,
			hexbus.CmdReturnStatus: d.returnStatus,
			hexbus.CmdReset:        d.reset,
		},
		Reset: func() { d.table.Reset(nil) },
	}
}

func (d *Device) Register(reg *hexbus.Registry, cur uint8) error {
	return reg.Register(d.Entry(), cur)
}

func (d *Device) open(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	if n > len(tx.Buf) {
		return tx.Fail(n, hexbus.StatusOptionErr)
	}
	if err := tx.Recv(tx.Buf[:n]); err != nil {
		return err
	}
	req, err := hexbus.DecodeOpenRequest(tx.Buf[:n])
	if err != nil {
		return tx.SendStatus(hexbus.StatusAttrErr)
	}

	s, err := d.table.Reserve(tx.PAB.LUN)
	switch {
	case errors.Is(err, session.ErrInUse):
		return tx.SendStatus(hexbus.StatusAlreadyOpen)
	case err != nil:
		return tx.SendStatus(hexbus.StatusMaxLUNs)
	}
	s.Attr = session.Attr{Read: req.Attr.Readable(), Write: req.Attr.Writable(), Display: true}
	return tx.SendData(hexbus.OpenReply(len(Layout)), hexbus.StatusSuccess)
}

func (d *Device) close(tx *hexbus.Txn) error {
	if !d.table.Release(tx.PAB.LUN) {
		return tx.Fail(int(tx.PAB.DataLen), hexbus.StatusNotOpen)
	}
	if err := tx.EatPayload(); err != nil {
		return err
	}
	return tx.SendStatus(hexbus.StatusSuccess)
}

func (d *Device) read(tx *hexbus.Txn) error {
	s := d.table.Find(tx.PAB.LUN)
	if s == nil {
		return tx.Fail(int(tx.PAB.DataLen), hexbus.StatusNotOpen)
	}
	if err := tx.EatPayload(); err != nil {
		return err
	}
	if !s.Attr.Read {
		return tx.SendStatus(hexbus.StatusOutputModeErr)
	}
	out := []byte(d.clk.Now().Format(Layout))
	if bl := int(tx.PAB.BufLen); bl > 0 && len(out) > bl {
		out = out[:bl]
	}
	return tx.SendData(out, hexbus.StatusSuccess)
}

func (d *Device) write(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	s := d.table.Find(tx.PAB.LUN)
	if s == nil {
		return tx.Fail(n, hexbus.StatusNotOpen)
	}
	if !s.Attr.Write {
		return tx.Fail(n, hexbus.StatusInputModeErr)
	}
	if n > len(tx.Buf) {
		return tx.Fail(n, hexbus.StatusTooLong)
	}
	if err := tx.Recv(tx.Buf[:n]); err != nil {
		return err
	}

	v := strings.TrimSpace(strings.TrimRight(string(tx.Buf[:n]), "\x00"))
	t, err := time.ParseInLocation(Layout, v, time.Local)
	if err != nil {
		return tx.SendStatus(hexbus.StatusDataInvalid)
	}
	d.clk.Set(t)
	log.Infof("clock set to %s", t.Format(Layout))
	return tx.SendStatus(hexbus.StatusSuccess)
}

func (d *Device) returnStatus(tx *hexbus.Txn) error {
	if err := tx.EatPayload(); err != nil {
		return err
	}
	var bits byte
	if d.table.Count() > 0 {
		bits |= 0x10
	}
	return tx.SendData([]byte{bits}, hexbus.StatusSuccess)
}

func (d *Device) reset(tx *hexbus.Txn) error {
	if err := tx.EatPayload(); err != nil {
		return err
	}
	d.table.Reset(nil)
	return nil
}
