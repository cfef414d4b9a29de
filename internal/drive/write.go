// internal/drive/write.go
package drive

import (
	"io"

	"github.com/spf13/afero"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/session"
	"github.com/tamzrod/hexbus-drive/internal/storage"
)

func (d *Drive) write(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	s := d.table.Find(tx.PAB.LUN)
	if s == nil {
		return tx.Fail(n, hexbus.StatusNotOpen)
	}

	switch s.Kind {
	case session.KindCommand:
		return d.command(tx)
	case session.KindCatalog:
		return tx.Fail(n, hexbus.StatusInputModeErr)
	}
	if s.Attr.Protect {
		return tx.Fail(n, hexbus.StatusWPErr)
	}
	if !s.Attr.Write {
		return tx.Fail(n, hexbus.StatusInputModeErr)
	}
	if s.LUN == hexbus.LUNProgram {
		return d.writeRaw(tx, s)
	}

	limit := len(tx.Buf)
	switch {
	case s.Attr.Relative:
		limit = s.RecordLen
	case s.Attr.Display:
		limit -= 2
	}
	if n > limit {
		return tx.Fail(n, hexbus.StatusTooLong)
	}
	if err := tx.Recv(tx.Buf[:n]); err != nil {
		return err
	}

	var err error
	switch {
	case s.Attr.Relative:
		err = writeRelative(s, tx.Buf[:n], tx.PAB.Record)
	case s.Attr.Display:
		tx.Buf[n] = '\r'
		tx.Buf[n+1] = '\n'
		err = writeAll(s.File, tx.Buf[:n+2])
	default:
		err = writeAll(s.File, tx.Buf[:n])
	}
	if err != nil {
		return tx.SendStatus(statusOf("write", s.Path, err))
	}
	return tx.SendStatus(hexbus.StatusSuccess)
}

// writeRelative stores rec in the fixed slot of index record, zero-padding
// any gap before the slot and the rest of the slot.
func writeRelative(s *session.Session, rec []byte, record uint16) error {
	pos := int64(record) * int64(s.RecordLen)
	size, err := storage.Size(s.File)
	if err != nil {
		return err
	}

	zeros := make([]byte, s.RecordLen)
	if pos > size {
		if _, err := s.File.Seek(size, io.SeekStart); err != nil {
			return err
		}
		for gap := pos - size; gap > 0; {
			chunk := zeros
			if int64(len(chunk)) > gap {
				chunk = chunk[:gap]
			}
			if err := writeAll(s.File, chunk); err != nil {
				return err
			}
			gap -= int64(len(chunk))
		}
	}

	if _, err := s.File.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	if err := writeAll(s.File, rec); err != nil {
		return err
	}
	return writeAll(s.File, zeros[:s.RecordLen-len(rec)])
}

// writeRaw streams a program image of any length to the file.
func (d *Drive) writeRaw(tx *hexbus.Txn, s *session.Session) error {
	left := int(tx.PAB.DataLen)
	var werr error
	for left > 0 {
		chunk := tx.Buf
		if len(chunk) > left {
			chunk = chunk[:left]
		}
		if err := tx.Recv(chunk); err != nil {
			return err
		}
		left -= len(chunk)
		if werr == nil {
			werr = writeAll(s.File, chunk)
		}
	}
	if werr != nil {
		return tx.SendStatus(statusOf("write", s.Path, werr))
	}
	return tx.SendStatus(hexbus.StatusSuccess)
}

// writeAll treats a short write as a failure.
func writeAll(f afero.File, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := f.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}
