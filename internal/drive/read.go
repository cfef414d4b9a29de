// internal/drive/read.go
package drive

import (
	"io"

	"github.com/spf13/afero"

	"github.com/tamzrod/hexbus-drive/internal/catalog"
	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/session"
	"github.com/tamzrod/hexbus-drive/internal/storage"
)

func (d *Drive) read(tx *hexbus.Txn) error {
	s := d.table.Find(tx.PAB.LUN)
	if s == nil {
		return tx.Fail(int(tx.PAB.DataLen), hexbus.StatusNotOpen)
	}
	if err := tx.EatPayload(); err != nil {
		return err
	}

	switch s.Kind {
	case session.KindCommand:
		return tx.SendData(clip([]byte(d.cfg.Ident), int(tx.PAB.BufLen)), hexbus.StatusSuccess)
	case session.KindCatalog:
		return d.readCatalog(tx, s)
	}
	if !s.Attr.Read {
		return tx.SendStatus(hexbus.StatusOutputModeErr)
	}
	if s.LUN == hexbus.LUNProgram {
		return d.readRaw(tx, s)
	}

	limit := int(tx.PAB.BufLen)
	if limit == 0 || limit > len(tx.Buf) {
		limit = len(tx.Buf)
	}

	var (
		n   int
		eof bool
		err error
	)
	switch {
	case s.Attr.Relative:
		n, err = readRelative(s, tx.Buf[:limit], tx.PAB.Record)
		eof = n == 0
	case s.Attr.Internal:
		n, err = readInternal(s.File, tx.Buf[:limit])
		eof = n == 0
	default:
		n, eof, err = readDisplay(s.File, tx.Buf, limit)
	}
	if err != nil {
		return tx.SendStatus(statusOf("read", s.Path, err))
	}
	if eof {
		return tx.SendStatus(hexbus.StatusEOF)
	}
	return tx.SendData(tx.Buf[:n], hexbus.StatusSuccess)
}

// ---- record framing ----

// readRelative reads one fixed-length record at index record.
func readRelative(s *session.Session, buf []byte, record uint16) (int, error) {
	n := s.RecordLen
	if n > len(buf) {
		n = len(buf)
	}
	if _, err := s.File.Seek(int64(record)*int64(s.RecordLen), io.SeekStart); err != nil {
		return 0, err
	}
	return readFull(s.File, buf[:n])
}

// readInternal reads one length-prefixed record, prefix included.
func readInternal(f afero.File, buf []byte) (int, error) {
	var p [1]byte
	n, err := f.Read(p[:])
	if n == 0 {
		if err == nil || err == io.EOF {
			return 0, nil
		}
		return 0, err
	}
	if _, err := f.Seek(-1, io.SeekCurrent); err != nil {
		return 0, err
	}

	want := int(p[0]) + 1
	if want > len(buf) {
		want = len(buf)
	}
	return readFull(f, buf[:want])
}

// readDisplay reads one text record into buf, at most limit bytes of it.
// The terminator is skipped when the whole record was delivered.
// eof is set only when nothing is left in the file.
func readDisplay(f afero.File, buf []byte, limit int) (int, bool, error) {
	start, err := storage.Pos(f)
	if err != nil {
		return 0, false, err
	}
	n, err := readFull(f, buf)
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, true, nil
	}

	reclen, term := scanRecord(buf[:n])
	if reclen > limit {
		reclen, term = limit, 0
	}
	if _, err := f.Seek(start+int64(reclen+term), io.SeekStart); err != nil {
		return 0, false, err
	}
	return reclen, false, nil
}

// scanRecord finds the first LF outside a quoted run. An immediately
// preceding CR outside a string is part of the terminator.
// It returns the record length and the terminator length.
func scanRecord(b []byte) (reclen, term int) {
	inStr := false
	cr := false
	for i, c := range b {
		if c == '\n' && !inStr {
			if cr {
				return i - 1, 2
			}
			return i, 1
		}
		cr = false
		switch c {
		case '"':
			inStr = !inStr
		case '\r':
			cr = !inStr
		}
	}
	return len(b), 0
}

// ---- raw and catalog streams ----

// readRaw streams up to buflen bytes of a program file.
func (d *Drive) readRaw(tx *hexbus.Txn, s *session.Session) error {
	size, err := storage.Size(s.File)
	if err != nil {
		return tx.SendStatus(statusOf("stat", s.Path, err))
	}
	pos, err := storage.Pos(s.File)
	if err != nil {
		return tx.SendStatus(statusOf("seek", s.Path, err))
	}
	left := size - pos
	if left <= 0 {
		return tx.SendStatus(hexbus.StatusEOF)
	}
	if bl := int64(tx.PAB.BufLen); bl > 0 && left > bl {
		left = bl
	}
	if left > 0xFFFF {
		left = 0xFFFF
	}

	if err := tx.Begin(uint16(left)); err != nil {
		return err
	}
	st := hexbus.StatusSuccess
	for left > 0 {
		chunk := tx.Buf
		if int64(len(chunk)) > left {
			chunk = chunk[:left]
		}
		n, rerr := readFull(s.File, chunk)
		if rerr != nil || n < len(chunk) {
			// length is already on the wire: pad out and fail the status
			for i := n; i < len(chunk); i++ {
				chunk[i] = 0
			}
			if rerr == nil {
				rerr = io.ErrUnexpectedEOF
			}
			st = statusOf("read", s.Path, rerr)
		}
		if err := tx.SendBytes(chunk); err != nil {
			return err
		}
		left -= int64(len(chunk))
	}
	return tx.End(st)
}

func (d *Drive) readCatalog(tx *hexbus.Txn, s *session.Session) error {
	if s.LUN != hexbus.LUNProgram {
		e, ok, err := s.Catalog.Next()
		if err != nil {
			return tx.SendStatus(statusOf("catalog", s.Path, err))
		}
		if !ok {
			return tx.SendStatus(hexbus.StatusEOF)
		}
		return tx.SendData(clip([]byte(catalog.FormatText(e)), int(tx.PAB.BufLen)), hexbus.StatusSuccess)
	}

	if st := renderProgram(s); st != hexbus.StatusSuccess {
		return tx.SendStatus(st)
	}
	if s.Offset >= len(s.Data) {
		return tx.SendStatus(hexbus.StatusEOF)
	}
	end := len(s.Data)
	if bl := int(tx.PAB.BufLen); bl > 0 && s.Offset+bl < end {
		end = s.Offset + bl
	}
	chunk := s.Data[s.Offset:end]
	s.Offset = end
	return tx.SendData(chunk, hexbus.StatusSuccess)
}

// renderProgram builds the program image of a catalog once.
func renderProgram(s *session.Session) hexbus.Status {
	if s.Data != nil {
		return hexbus.StatusSuccess
	}
	data, err := catalog.RenderPGM(s.Catalog)
	if err != nil {
		return statusOf("catalog", s.Path, err)
	}
	s.Data = data
	s.Offset = 0
	return hexbus.StatusSuccess
}

// ---- helpers ----

// readFull reads until b is full or the file ends.
func readFull(r io.Reader, b []byte) (int, error) {
	n, err := io.ReadFull(r, b)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	return n, err
}

// clip bounds a reply to the host's buffer; zero means no bound.
func clip(b []byte, limit int) []byte {
	if limit > 0 && len(b) > limit {
		return b[:limit]
	}
	return b
}
