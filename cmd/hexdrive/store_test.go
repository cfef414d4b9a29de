// cmd/hexdrive/store_test.go
package main

import (
	"path/filepath"
	"testing"

	"github.com/tamzrod/hexbus-drive/internal/clock"
	"github.com/tamzrod/hexbus-drive/internal/config"
	"github.com/tamzrod/hexbus-drive/internal/hexbus"
)

func TestConfigStore_WritesCurrentCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hexdrive.yaml")
	cfg := &config.Config{Drive: config.DriveConfig{Root: "/srv", Device: 100}}

	reg := hexbus.NewRegistry()
	if err := reg.Register(&hexbus.Entry{Name: "drive", Low: 100, High: 109}, 100); err != nil {
		t.Fatalf("Register err=%v", err)
	}
	if err := reg.Register(&hexbus.Entry{Name: clock.EntryName, Low: 230, High: 239}, 230); err != nil {
		t.Fatalf("Register err=%v", err)
	}
	reg.SetCurrent("drive", 107)
	reg.SetCurrent(clock.EntryName, 231)

	s := &configStore{path: path, cfg: cfg, reg: reg}
	if err := s.Store(); err != nil {
		t.Fatalf("Store err=%v", err)
	}

	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if got.Drive.Device != 107 || got.Clock.Device != 231 || got.Drive.Root != "/srv" {
		t.Fatalf("unexpected stored config: %+v", got)
	}
}
