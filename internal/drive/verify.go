// internal/drive/verify.go
package drive

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/session"
)

// verify compares the host's bytes with the session's content.
//
// Half of the shared buffer holds host bytes, the other half file bytes.
// The first chunk's word at offset 2 is the program length on either side;
// differing lengths answer BufSizeErr, differing content VerifyErr. Every
// declared host byte is drained before the answer.
func (d *Drive) verify(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	s := d.table.Find(tx.PAB.LUN)
	if s == nil {
		return tx.Fail(n, hexbus.StatusNotOpen)
	}

	var src io.Reader
	switch {
	case s.Kind == session.KindCommand:
		return tx.Fail(n, hexbus.StatusUnsupportedCmd)
	case s.Kind == session.KindCatalog:
		if s.LUN != hexbus.LUNProgram {
			return tx.Fail(n, hexbus.StatusFileTypeErr)
		}
		if st := renderProgram(s); st != hexbus.StatusSuccess {
			return tx.Fail(n, st)
		}
		src = bytes.NewReader(s.Data)
	case !s.Attr.Read:
		return tx.Fail(n, hexbus.StatusOutputModeErr)
	default:
		src = s.File
	}

	half := len(tx.Buf) / 2
	host, file := tx.Buf[:half], tx.Buf[half:2*half]

	var (
		lenMismatch bool
		mismatch    bool
		readErr     error
		first       = true
	)
	for left := n; left > 0; {
		c := half
		if c > left {
			c = left
		}
		if err := tx.Recv(host[:c]); err != nil {
			return err
		}
		left -= c

		m := 0
		if readErr == nil {
			m, readErr = readFull(src, file[:c])
		}

		if first && c >= 4 {
			hostLen := binary.LittleEndian.Uint16(host[2:4])
			if m < 4 || binary.LittleEndian.Uint16(file[2:4]) != hostLen {
				lenMismatch = true
			}
		}
		first = false

		// only overlapping bytes are compared
		if !bytes.Equal(host[:m], file[:m]) {
			mismatch = true
		}
	}

	switch {
	case readErr != nil:
		return tx.SendStatus(statusOf("verify", s.Path, readErr))
	case lenMismatch:
		return tx.SendStatus(hexbus.StatusBufSizeErr)
	case mismatch:
		return tx.SendStatus(hexbus.StatusVerifyErr)
	}
	return tx.SendStatus(hexbus.StatusSuccess)
}
