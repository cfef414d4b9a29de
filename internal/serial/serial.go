// internal/serial/serial.go
package serial

import (
	"errors"
	"io"
	"time"

	goserial "github.com/goburrow/serial"
	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/session"
)

const (
	DeviceLow     uint8 = 20
	DeviceHigh    uint8 = 29
	DeviceDefault uint8 = 20
)

const EntryName = "serial"

// DefaultTimeout bounds a READ waiting for incoming bytes.
const DefaultTimeout = 500 * time.Millisecond

// Opener opens the physical port.
type Opener func(c *goserial.Config) (io.ReadWriteCloser, error)

// OpenPort opens the port with goburrow/serial.
func OpenPort(c *goserial.Config) (io.ReadWriteCloser, error) {
	return goserial.Open(c)
}

type Config struct {
	Address string
	Timeout time.Duration
	MaxOpen int
}

// Serial bridges HEX-BUS LUNs to one RS-232 port. The port opens with the
// first LUN's options and closes with the last LUN.
type Serial struct {
	base   goserial.Config
	opener Opener
	table  *session.Table
	port   io.ReadWriteCloser
}

func New(cfg Config, opener Opener) (*Serial, error) {
	if cfg.Address == "" {
		return nil, errors.New("serial: address required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if opener == nil {
		opener = OpenPort
	}
	return &Serial{
		base: goserial.Config{
			Address:  cfg.Address,
			BaudRate: 9600,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
			Timeout:  cfg.Timeout,
		},
		opener: opener,
		table:  session.NewTable(cfg.MaxOpen, nil),
	}, nil
}

func (s *Serial) Entry() *hexbus.Entry {
	return &hexbus.Entry{
		Name: EntryName,
		Low:  DeviceLow,
		High: DeviceHigh,
		Handlers: map[hexbus.Command]hexbus.Handler{
			hexbus.CmdOpen:         s.open,
			hexbus.CmdClose:        s.close,
			hexbus.CmdRead:         s.read,
			hexbus.CmdWrite:        s.write,
			hexbus.CmdReturnStatus: s.returnStatus,
			hexbus.CmdReset:        s.reset,
		},
		Reset: s.closeAll,
	}
}

func (s *Serial) Register(reg *hexbus.Registry, cur uint8) error {
	return reg.Register(s.Entry(), cur)
}

// ---- handlers ----

func (s *Serial) open(tx *hexbus.Txn) error {
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
	pc, err := ParseOptions(req.Name, s.base)
	if err != nil {
		log.Warnf("%v", err)
		return tx.SendStatus(hexbus.StatusOptionErr)
	}

	sess, err := s.table.Reserve(tx.PAB.LUN)
	switch {
	case errors.Is(err, session.ErrInUse):
		return tx.SendStatus(hexbus.StatusAlreadyOpen)
	case err != nil:
		return tx.SendStatus(hexbus.StatusMaxLUNs)
	}
	sess.Attr = session.Attr{
		Read:     req.Attr.Readable(),
		Write:    req.Attr.Writable(),
		Display:  !req.Attr.Internal,
		Internal: req.Attr.Internal,
	}

	if s.port == nil {
		p, err := s.opener(&pc)
		if err != nil {
			log.Errorf("serial: open %s: %v", pc.Address, err)
			s.table.Release(sess.LUN)
			return tx.SendStatus(hexbus.StatusDeviceErr)
		}
		log.Infof("serial: %s open at %d %d%s%d", pc.Address, pc.BaudRate, pc.DataBits, pc.Parity, pc.StopBits)
		s.port = p
	}
	return tx.SendData(hexbus.OpenReply(len(tx.Buf)), hexbus.StatusSuccess)
}

func (s *Serial) read(tx *hexbus.Txn) error {
	sess := s.table.Find(tx.PAB.LUN)
	if sess == nil {
		return tx.Fail(int(tx.PAB.DataLen), hexbus.StatusNotOpen)
	}
	if err := tx.EatPayload(); err != nil {
		return err
	}
	if !sess.Attr.Read {
		return tx.SendStatus(hexbus.StatusOutputModeErr)
	}

	limit := int(tx.PAB.BufLen)
	if limit == 0 || limit > len(tx.Buf) {
		limit = len(tx.Buf)
	}
	n, err := s.port.Read(tx.Buf[:limit])
	if err != nil && !errors.Is(err, goserial.ErrTimeout) {
		log.Errorf("serial: read: %v", err)
		return tx.SendStatus(hexbus.StatusDeviceErr)
	}
	return tx.SendData(tx.Buf[:n], hexbus.StatusSuccess)
}

func (s *Serial) write(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	sess := s.table.Find(tx.PAB.LUN)
	if sess == nil {
		return tx.Fail(n, hexbus.StatusNotOpen)
	}
	if !sess.Attr.Write {
		return tx.Fail(n, hexbus.StatusInputModeErr)
	}
	if n > len(tx.Buf)-2 {
		return tx.Fail(n, hexbus.StatusTooLong)
	}
	if err := tx.Recv(tx.Buf[:n]); err != nil {
		return err
	}
	if sess.Attr.Display {
		tx.Buf[n] = '\r'
		tx.Buf[n+1] = '\n'
		n += 2
	}
	if m, err := s.port.Write(tx.Buf[:n]); err != nil || m != n {
		log.Errorf("serial: write %d/%d bytes: %v", m, n, err)
		return tx.SendStatus(hexbus.StatusDeviceErr)
	}
	return tx.SendStatus(hexbus.StatusSuccess)
}

func (s *Serial) close(tx *hexbus.Txn) error {
	if !s.table.Release(tx.PAB.LUN) {
		return tx.Fail(int(tx.PAB.DataLen), hexbus.StatusNotOpen)
	}
	if err := tx.EatPayload(); err != nil {
		return err
	}
	st := hexbus.StatusSuccess
	if s.table.Count() == 0 {
		if err := s.closePort(); err != nil {
			log.Warnf("serial: close: %v", err)
			st = hexbus.StatusDeviceErr
		}
	}
	return tx.SendStatus(st)
}

func (s *Serial) returnStatus(tx *hexbus.Txn) error {
	if err := tx.EatPayload(); err != nil {
		return err
	}
	var bits byte
	if s.table.Count() > 0 {
		bits |= 0x10
	}
	if sess := s.table.Find(tx.PAB.LUN); sess != nil {
		if sess.Attr.Read {
			bits |= 0x04
		}
		if sess.Attr.Write {
			bits |= 0x02
		}
	}
	return tx.SendData([]byte{bits}, hexbus.StatusSuccess)
}

func (s *Serial) reset(tx *hexbus.Txn) error {
	if err := tx.EatPayload(); err != nil {
		return err
	}
	s.closeAll()
	return nil
}

// ---- port ----

func (s *Serial) closeAll() {
	s.table.Reset(nil)
	if err := s.closePort(); err != nil {
		log.Warnf("serial: reset: %v", err)
	}
}

func (s *Serial) closePort() error {
	if s.port == nil {
		return nil
	}
	p := s.port
	s.port = nil
	return p.Close()
}
