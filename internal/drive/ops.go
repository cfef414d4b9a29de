// internal/drive/ops.go
package drive

import (
	"io"
	"strings"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/session"
	"github.com/tamzrod/hexbus-drive/internal/storage"
)

// RETURN STATUS bits.
const (
	statEOF      byte = 0x80
	statInternal byte = 0x40
	statProtect  byte = 0x20
	statOpen     byte = 0x10
	statRelative byte = 0x08
	statRead     byte = 0x04
	statWrite    byte = 0x02
)

func (d *Drive) close(tx *hexbus.Txn) error {
	s := d.table.Find(tx.PAB.LUN)
	if s == nil {
		return tx.Fail(int(tx.PAB.DataLen), hexbus.StatusNotOpen)
	}
	if err := tx.EatPayload(); err != nil {
		return err
	}

	st := hexbus.StatusSuccess
	if err := closeFile(s); err != nil {
		st = statusOf("close", s.Path, err)
	}
	// the LUN is released even when the close failed
	d.table.Release(s.LUN)
	return tx.SendStatus(st)
}

func (d *Drive) restore(tx *hexbus.Txn) error {
	s := d.table.Find(tx.PAB.LUN)
	if s == nil {
		return tx.Fail(int(tx.PAB.DataLen), hexbus.StatusNotOpen)
	}
	if err := tx.EatPayload(); err != nil {
		return err
	}

	switch s.Kind {
	case session.KindCommand:
		return tx.SendStatus(hexbus.StatusUnsupportedCmd)
	case session.KindCatalog:
		s.Data = nil
		s.Offset = 0
		if err := s.Catalog.Rewind(); err != nil {
			return tx.SendStatus(statusOf("restore", s.Path, err))
		}
		return tx.SendStatus(hexbus.StatusSuccess)
	}

	var pos int64
	if s.Attr.Relative {
		pos = int64(tx.PAB.Record) * int64(s.RecordLen)
	}
	if _, err := s.File.Seek(pos, io.SeekStart); err != nil {
		return tx.SendStatus(hexbus.StatusUnsupportedCmd)
	}
	return tx.SendStatus(hexbus.StatusSuccess)
}

// delete unlinks by name. Open sessions on the same file are not checked.
func (d *Drive) delete(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	if n > len(tx.Buf) {
		return tx.Fail(n, hexbus.StatusFileNameInvalid)
	}
	if err := tx.Recv(tx.Buf[:n]); err != nil {
		return err
	}
	name := strings.TrimRight(string(tx.Buf[:n]), " \x00")

	if d.cfg.ReadOnly {
		return tx.SendStatus(hexbus.StatusWPErr)
	}
	if name == "" {
		return tx.SendStatus(hexbus.StatusFileNameInvalid)
	}
	if err := d.fs.Remove(name); err != nil {
		return tx.SendStatus(statusOf("delete", name, err))
	}
	return tx.SendStatus(hexbus.StatusSuccess)
}

func (d *Drive) returnStatus(tx *hexbus.Txn) error {
	if err := tx.EatPayload(); err != nil {
		return err
	}

	var bits byte
	if d.table.Count() > 0 {
		bits |= statOpen
	}
	if s := d.table.Find(tx.PAB.LUN); s != nil {
		bits |= attrBits(s.Attr)
		if atEOF(s) {
			bits |= statEOF
		}
	}
	return tx.SendData([]byte{bits}, hexbus.StatusSuccess)
}

func attrBits(a session.Attr) byte {
	var b byte
	if a.Internal {
		b |= statInternal
	}
	if a.Protect {
		b |= statProtect
	}
	if a.Relative {
		b |= statRelative
	}
	if a.Read {
		b |= statRead
	}
	if a.Write {
		b |= statWrite
	}
	return b
}

func atEOF(s *session.Session) bool {
	switch s.Kind {
	case session.KindCommand:
		return false
	case session.KindCatalog:
		if s.LUN == hexbus.LUNProgram {
			return s.Data != nil && s.Offset >= len(s.Data)
		}
		return s.Catalog.Remaining() == 0
	}
	size, err := storage.Size(s.File)
	if err != nil {
		return false
	}
	pos, err := storage.Pos(s.File)
	if err != nil {
		return false
	}
	return pos >= size
}

// reset force-closes everything. RESET is never answered.
func (d *Drive) reset(tx *hexbus.Txn) error {
	if err := tx.EatPayload(); err != nil {
		return err
	}
	d.closeAll()
	return nil
}
