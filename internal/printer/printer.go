// internal/printer/printer.go
package printer

import (
	"errors"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/session"
)

const (
	DeviceLow     uint8 = 10
	DeviceHigh    uint8 = 19
	DeviceDefault uint8 = 12
)

const EntryName = "printer"

// Printer appends every record printed by the host to an output file.
type Printer struct {
	fs    afero.Fs
	path  string
	table *session.Table
	out   afero.File
}

func New(fs afero.Fs, path string, maxOpen int) (*Printer, error) {
	if fs == nil {
		return nil, errors.New("printer: filesystem required")
	}
	if path == "" {
		return nil, errors.New("printer: output path required")
	}
	return &Printer{
		fs:    fs,
		path:  path,
		table: session.NewTable(maxOpen, nil),
	}, nil
}

func (p *Printer) Entry() *hexbus.Entry {
	return &hexbus.Entry{
		Name: EntryName,
		Low:  DeviceLow,
		High: DeviceHigh,
		Handlers: map[hexbus.Command]hexbus.Handler{
			hexbus.CmdOpen:         p.open,
			hexbus.CmdClose:        p.close,
			hexbus.CmdWrite:        p.write,
			hexbus.CmdReturnStatus: p.returnStatus,
			hexbus.CmdReset:        p.reset,
		},
		Reset: p.closeAll,
	}
}

func (p *Printer) Register(reg *hexbus.Registry, cur uint8) error {
	return reg.Register(p.Entry(), cur)
}

// ---- handlers ----

func (p *Printer) open(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	if n > len(tx.Buf) {
		return tx.Fail(n, hexbus.StatusOptionErr)
	}
	if err := tx.Recv(tx.Buf[:n]); err != nil {
		return err
	}
	req, err := hexbus.DecodeOpenRequest(tx.Buf[:n])
	if err != nil || !req.Attr.Writable() {
		return tx.SendStatus(hexbus.StatusAttrErr)
	}

	s, err := p.table.Reserve(tx.PAB.LUN)
	switch {
	case errors.Is(err, session.ErrInUse):
		return tx.SendStatus(hexbus.StatusAlreadyOpen)
	case err != nil:
		return tx.SendStatus(hexbus.StatusMaxLUNs)
	}
	s.Attr = session.Attr{Write: true, Display: !req.Attr.Internal}

	if p.out == nil {
		f, err := p.fs.OpenFile(p.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			log.Errorf("printer: open %s: %v", p.path, err)
			p.table.Release(s.LUN)
			return tx.SendStatus(hexbus.StatusDeviceErr)
		}
		p.out = f
	}
	return tx.SendData(hexbus.OpenReply(len(tx.Buf)), hexbus.StatusSuccess)
}

func (p *Printer) write(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	s := p.table.Find(tx.PAB.LUN)
	if s == nil {
		return tx.Fail(n, hexbus.StatusNotOpen)
	}
	if n > len(tx.Buf)-2 {
		return tx.Fail(n, hexbus.StatusTooLong)
	}
	if err := tx.Recv(tx.Buf[:n]); err != nil {
		return err
	}
	if s.Attr.Display {
		tx.Buf[n] = '\r'
		tx.Buf[n+1] = '\n'
		n += 2
	}
	if m, err := p.out.Write(tx.Buf[:n]); err != nil || m != n {
		log.Errorf("printer: write %s: %d/%d bytes: %v", p.path, m, n, err)
		return tx.SendStatus(hexbus.StatusDeviceErr)
	}
	return tx.SendStatus(hexbus.StatusSuccess)
}

func (p *Printer) close(tx *hexbus.Txn) error {
	if !p.table.Release(tx.PAB.LUN) {
		return tx.Fail(int(tx.PAB.DataLen), hexbus.StatusNotOpen)
	}
	if err := tx.EatPayload(); err != nil {
		return err
	}
	st := hexbus.StatusSuccess
	if p.table.Count() == 0 {
		if err := p.closeOutput(); err != nil {
			st = hexbus.StatusDeviceErr
		}
	}
	return tx.SendStatus(st)
}

func (p *Printer) returnStatus(tx *hexbus.Txn) error {
	if err := tx.EatPayload(); err != nil {
		return err
	}
	var bits byte
	if p.table.Count() > 0 {
		bits |= 0x10
	}
	if p.table.Find(tx.PAB.LUN) != nil {
		bits |= 0x02
	}
	return tx.SendData([]byte{bits}, hexbus.StatusSuccess)
}

func (p *Printer) reset(tx *hexbus.Txn) error {
	if err := tx.EatPayload(); err != nil {
		return err
	}
	p.closeAll()
	return nil
}

// ---- output ----

func (p *Printer) closeAll() {
	p.table.Reset(nil)
	if err := p.closeOutput(); err != nil {
		log.Warnf("printer: reset: %v", err)
	}
}

func (p *Printer) closeOutput() error {
	if p.out == nil {
		return nil
	}
	f := p.out
	p.out = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
