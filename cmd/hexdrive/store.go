// cmd/hexdrive/store.go
package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/hexbus-drive/internal/clock"
	"github.com/tamzrod/hexbus-drive/internal/config"
	"github.com/tamzrod/hexbus-drive/internal/drive"
	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/printer"
	"github.com/tamzrod/hexbus-drive/internal/serial"
)

// configStore persists the current device codes for the STORE token.
// It runs inside a transaction, so registry reads need no extra lock.
type configStore struct {
	path string
	cfg  *config.Config
	reg  *hexbus.Registry
}

func (s *configStore) Store() error {
	for _, e := range s.reg.Entries() {
		switch e.Name {
		case drive.EntryName:
			s.cfg.Drive.Device = e.Current()
		case printer.EntryName:
			s.cfg.Printer.Device = e.Current()
		case serial.EntryName:
			s.cfg.Serial.Device = e.Current()
		case clock.EntryName:
			s.cfg.Clock.Device = e.Current()
		}
	}
	if err := config.Save(s.path, s.cfg); err != nil {
		return err
	}
	log.WithField("path", s.path).Info("device codes stored")
	return nil
}
