// internal/drive/drive.go
package drive

import (
	"errors"
	"io/fs"

	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/session"
	"github.com/tamzrod/hexbus-drive/internal/storage"
)

// Device code range of the drive.
const (
	DeviceLow     uint8 = 100
	DeviceHigh    uint8 = 109
	DeviceDefault uint8 = 100
)

// EntryName is the drive's registry name.
const EntryName = "drive"

// DefaultIdent is returned by command channel reads.
const DefaultIdent = "HEXDRIVE V1.0"

// Persister writes the current device codes to persistent configuration.
type Persister interface {
	Store() error
}

type Config struct {
	// BufferSize is offered to hosts that OPEN with length zero.
	BufferSize int
	ReadOnly   bool
	// Volume is listed first in root catalogs when set.
	Volume string
	Ident  string
}

// Drive serves the mass storage device.
type Drive struct {
	fs    *storage.FS
	table *session.Table
	cfg   Config
	store Persister
}

// New builds a drive over files. store may be nil, in which case STORE is rejected.
func New(files *storage.FS, table *session.Table, cfg Config, store Persister) (*Drive, error) {
	if files == nil {
		return nil, errors.New("drive: storage required")
	}
	if table == nil {
		return nil, errors.New("drive: session table required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = hexbus.DefaultBufferSize
	}
	if cfg.Ident == "" {
		cfg.Ident = DefaultIdent
	}
	return &Drive{fs: files, table: table, cfg: cfg, store: store}, nil
}

// Sessions is the number of open LUNs.
func (d *Drive) Sessions() int { return d.table.Count() }

// Entry builds the registry entry for the drive.
func (d *Drive) Entry() *hexbus.Entry {
	return &hexbus.Entry{
		Name: EntryName,
		Low:  DeviceLow,
		High: DeviceHigh,
		Handlers: map[hexbus.Command]hexbus.Handler{
			hexbus.CmdOpen:         d.open,
			hexbus.CmdClose:        d.close,
			hexbus.CmdRead:         d.read,
			hexbus.CmdWrite:        d.write,
			hexbus.CmdRestore:      d.restore,
			hexbus.CmdDelete:       d.delete,
			hexbus.CmdReturnStatus: d.returnStatus,
			hexbus.CmdVerify:       d.verify,
			hexbus.CmdReset:        d.reset,
		},
		Reset: d.closeAll,
	}
}

// Register adds the drive to reg at device code cur.
func (d *Drive) Register(reg *hexbus.Registry, cur uint8) error {
	return reg.Register(d.Entry(), cur)
}

// ---- session teardown ----

// closeAll force-closes every session, syncing open files.
func (d *Drive) closeAll() {
	d.table.Reset(func(s *session.Session) { discard("reset", s) })
}

// discard closes s where no status can report the failure.
func discard(op string, s *session.Session) {
	if err := closeFile(s); err != nil {
		log.Warnf("drive: %s close lun=%d path=%s: %v", op, s.LUN, s.Path, err)
	}
}

func closeFile(s *session.Session) error {
	if s.File == nil {
		return nil
	}
	f := s.File
	s.File = nil
	var errs []error
	if s.Attr.Write {
		if err := f.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := f.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ---- error mapping ----

// statusOf coarsens a storage error for the host. The error itself is logged.
func statusOf(op, name string, err error) hexbus.Status {
	var st hexbus.Status
	switch {
	case errors.Is(err, fs.ErrNotExist):
		st = hexbus.StatusFileNotFound
	case errors.Is(err, fs.ErrPermission):
		st = hexbus.StatusWPErr
	case errors.Is(err, storage.ErrInvalidName), errors.Is(err, storage.ErrNotDir),
		errors.Is(err, fs.ErrInvalid), errors.Is(err, fs.ErrExist):
		st = hexbus.StatusFileNameInvalid
	default:
		st = hexbus.StatusDeviceErr
	}
	log.WithFields(log.Fields{
		"op":     op,
		"name":   name,
		"status": st,
	}).Warnf("storage: %v", err)
	return st
}
