// internal/drive/open.go
package drive

import (
	"errors"
	"os"
	"strings"

	"github.com/tamzrod/hexbus-drive/internal/catalog"
	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/session"
	"github.com/tamzrod/hexbus-drive/internal/storage"
)

// catalogPrefix marks an OPEN name as a directory listing.
const catalogPrefix = "$"

func (d *Drive) open(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	if n > len(tx.Buf) {
		// never touch storage with a name we could not hold
		return tx.Fail(n, hexbus.StatusFileNameInvalid)
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

	size, st := d.openSession(s, req)
	if st != hexbus.StatusSuccess {
		d.table.Release(s.LUN)
		return tx.SendStatus(st)
	}
	return tx.SendData(hexbus.OpenReply(size), hexbus.StatusSuccess)
}

// openSession fills s for req and returns the size reported to the host.
func (d *Drive) openSession(s *session.Session, req hexbus.OpenRequest) (int, hexbus.Status) {
	switch {
	case s.LUN == hexbus.LUNCommand || req.Name == "":
		s.Kind = session.KindCommand
		s.Attr = session.Attr{Read: true, Write: true, Display: true}
		return d.cfg.BufferSize, hexbus.StatusSuccess

	case strings.HasPrefix(req.Name, catalogPrefix):
		return d.openCatalog(s, req)
	}
	return d.openFile(s, req)
}

func (d *Drive) openCatalog(s *session.Session, req hexbus.OpenRequest) (int, hexbus.Status) {
	if req.Attr.Mode != hexbus.ModeRead {
		return 0, hexbus.StatusAttrErr
	}
	dir, pattern := catalog.SplitPath(strings.TrimPrefix(req.Name, catalogPrefix))
	l, err := catalog.Open(d.fs, dir, pattern, d.cfg.Volume)
	if err != nil {
		return 0, statusOf("catalog", req.Name, err)
	}

	s.Kind = session.KindCatalog
	s.Attr = session.Attr{Read: true, Protect: true, Display: true}
	s.Path = l.Dir()
	s.Catalog = l

	if s.LUN == hexbus.LUNProgram {
		return catalog.PGMSize(l), hexbus.StatusSuccess
	}
	return l.TextLen(), hexbus.StatusSuccess
}

func (d *Drive) openFile(s *session.Session, req hexbus.OpenRequest) (int, hexbus.Status) {
	a := req.Attr
	if d.cfg.ReadOnly && a.Writable() {
		return 0, hexbus.StatusWPErr
	}

	f, err := d.fs.OpenFile(req.Name, openFlag(a.Mode))
	if err != nil {
		return 0, statusOf("open", req.Name, err)
	}

	s.Kind = session.KindFile
	s.File = f
	s.Path = req.Name
	s.Attr = session.Attr{
		Read:     a.Readable(),
		Write:    a.Writable(),
		Protect:  d.cfg.ReadOnly,
		Display:  !a.Internal,
		Relative: a.Relative,
		Internal: a.Internal,
	}

	reclen := int(req.Length)
	if reclen == 0 || reclen > d.cfg.BufferSize {
		reclen = d.cfg.BufferSize
	}
	if a.Relative {
		s.RecordLen = reclen
	}

	if a.Mode != hexbus.ModeRead {
		return reclen, hexbus.StatusSuccess
	}
	size, err := storage.Size(f)
	if err != nil {
		discard("open", s)
		return 0, statusOf("stat", req.Name, err)
	}
	return int(size), hexbus.StatusSuccess
}

func openFlag(m hexbus.OpenMode) int {
	switch m {
	case hexbus.ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case hexbus.ModeWrite:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case hexbus.ModeUpdate:
		return os.O_RDWR | os.O_CREATE
	}
	return os.O_RDONLY
}
