// internal/drive/command.go
package drive

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/hexbus-drive/internal/hexbus"
)

// command runs a configuration line written to the command channel.
//
//	D=NNN        move the drive to device code NNN
//	STORE        persist the current device codes
//	CD=path      change the working directory
//	MD=path      make a directory
//	RN=old:new   rename
//
// Tokens are comma separated and run in order; the first failure answers.
func (d *Drive) command(tx *hexbus.Txn) error {
	n := int(tx.PAB.DataLen)
	if n > len(tx.Buf) {
		return tx.Fail(n, hexbus.StatusDataInvalid)
	}
	if err := tx.Recv(tx.Buf[:n]); err != nil {
		return err
	}
	return tx.SendStatus(d.exec(tx, string(tx.Buf[:n])))
}

func (d *Drive) exec(tx *hexbus.Txn, line string) hexbus.Status {
	for _, tok := range strings.Split(line, ",") {
		tok = strings.TrimSpace(strings.Trim(tok, "\x00"))
		if tok == "" {
			continue
		}
		key, val, hasVal := strings.Cut(tok, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		var st hexbus.Status
		switch {
		case key == "D" && hasVal:
			st = d.setDevice(tx, val)
		case key == "STORE" && !hasVal:
			st = d.storeConfig()
		case key == "CD" && hasVal:
			st = d.fsOp("cd", val, d.fs.Chdir, false)
		case key == "MD" && hasVal:
			st = d.fsOp("md", val, d.fs.Mkdir, true)
		case key == "RN" && hasVal:
			oldName, newName, ok := strings.Cut(val, ":")
			if !ok || oldName == "" || newName == "" {
				st = hexbus.StatusDataInvalid
				break
			}
			st = d.fsOp("rn", val, func(string) error { return d.fs.Rename(oldName, newName) }, true)
		default:
			log.Warnf("drive: unknown command token %q", tok)
			st = hexbus.StatusDataInvalid
		}
		if st != hexbus.StatusSuccess {
			return st
		}
	}
	return hexbus.StatusSuccess
}

func (d *Drive) setDevice(tx *hexbus.Txn, val string) hexbus.Status {
	if len(val) != 3 {
		return hexbus.StatusDataInvalid
	}
	code, err := strconv.ParseUint(val, 10, 8)
	if err != nil {
		return hexbus.StatusDataInvalid
	}
	name := tx.Entry().Name
	if err := tx.Registry().SetCurrent(name, uint8(code)); err != nil {
		log.Warnf("drive: %v", err)
		return hexbus.StatusDataInvalid
	}
	log.Infof("%s now answers to device %d", name, code)
	return hexbus.StatusSuccess
}

func (d *Drive) storeConfig() hexbus.Status {
	if d.store == nil {
		return hexbus.StatusUnsupportedCmd
	}
	if err := d.store.Store(); err != nil {
		log.Errorf("drive: store config: %v", err)
		return hexbus.StatusDeviceErr
	}
	return hexbus.StatusSuccess
}

func (d *Drive) fsOp(op, name string, fn func(string) error, mutates bool) hexbus.Status {
	if mutates && d.cfg.ReadOnly {
		return hexbus.StatusWPErr
	}
	if err := fn(name); err != nil {
		return statusOf(op, name, err)
	}
	return hexbus.StatusSuccess
}
