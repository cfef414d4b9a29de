// cmd/hexdrive/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	getopt "github.com/pborman/getopt/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"periph.io/x/host/v3"

	"github.com/tamzrod/hexbus-drive/internal/bus"
	"github.com/tamzrod/hexbus-drive/internal/clock"
	"github.com/tamzrod/hexbus-drive/internal/config"
	"github.com/tamzrod/hexbus-drive/internal/drive"
	"github.com/tamzrod/hexbus-drive/internal/hexbus"
	"github.com/tamzrod/hexbus-drive/internal/led"
	"github.com/tamzrod/hexbus-drive/internal/mirror"
	"github.com/tamzrod/hexbus-drive/internal/printer"
	"github.com/tamzrod/hexbus-drive/internal/serial"
	"github.com/tamzrod/hexbus-drive/internal/session"
	"github.com/tamzrod/hexbus-drive/internal/storage"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "hexdrive.yaml", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*optConfig)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	if *optLogFile != "" {
		cfg.Log.File = *optLogFile
	}
	closeLog, err := setupLogging(cfg.Log, *optDebug)
	if err != nil {
		log.Fatalf("log setup failed: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("hexdrive started")
	if err := run(ctx, cfg, *optConfig); err != nil {
		log.Errorf("hexdrive stopped: %v", err)
		os.Exit(1)
	}
	log.Info("hexdrive stopped")
}

func setupLogging(c config.LogConfig, debug bool) (func(), error) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		lvl = log.DebugLevel
	}
	log.SetLevel(lvl)

	if c.File == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return func() { f.Close() }, nil
}

func run(ctx context.Context, cfg *config.Config, cfgPath string) error {
	// --------------------
	// Bus lines
	// --------------------

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("gpio host init: %w", err)
	}

	lines, err := bus.OpenGPIO(bus.Pins{
		BAV:  cfg.Bus.BAV,
		HSK:  cfg.Bus.HSK,
		Data: cfg.Bus.Data,
	})
	if err != nil {
		return err
	}
	tr, err := bus.New(lines, bus.Config{
		Settle:           time.Duration(cfg.Bus.SettleUs) * time.Microsecond,
		HandshakeTimeout: time.Duration(cfg.Bus.HskTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	var ind led.Indicator = led.Nop{}
	if cfg.Bus.LED != "" {
		g, err := led.Open(cfg.Bus.LED, cfg.Bus.LEDActiveLow)
		if err != nil {
			return err
		}
		ind = g
	}

	// --------------------
	// Devices
	// --------------------

	reg := hexbus.NewRegistry()

	root := afero.NewOsFs()
	if ok, err := afero.DirExists(root, cfg.Drive.Root); err != nil || !ok {
		return fmt.Errorf("drive root %q is not a directory", cfg.Drive.Root)
	}
	var files afero.Fs = afero.NewBasePathFs(root, cfg.Drive.Root)
	if cfg.Drive.ReadOnly {
		files = afero.NewReadOnlyFs(files)
	}

	store := &configStore{path: cfgPath, cfg: cfg, reg: reg}
	drv, err := drive.New(
		storage.New(files),
		session.NewTable(cfg.Drive.MaxOpenFiles, ind),
		drive.Config{
			BufferSize: cfg.Bus.BufferSize,
			ReadOnly:   cfg.Drive.ReadOnly,
			Volume:     cfg.Drive.Volume,
		},
		store,
	)
	if err != nil {
		return err
	}
	if err := drv.Register(reg, cfg.Drive.Device); err != nil {
		return err
	}

	if cfg.Printer.Enabled {
		p, err := printer.New(afero.NewOsFs(), cfg.Printer.Output, cfg.Drive.MaxOpenFiles)
		if err != nil {
			return err
		}
		if err := p.Register(reg, cfg.Printer.Device); err != nil {
			return err
		}
	}

	if cfg.Serial.Enabled {
		s, err := serial.New(serial.Config{
			Address: cfg.Serial.Port,
			Timeout: time.Duration(cfg.Serial.TimeoutMs) * time.Millisecond,
			MaxOpen: cfg.Drive.MaxOpenFiles,
		}, serial.OpenPort)
		if err != nil {
			return err
		}
		if err := s.Register(reg, cfg.Serial.Device); err != nil {
			return err
		}
	}

	if cfg.Clock.Enabled {
		if err := clock.NewDevice(clock.NewOffset(), cfg.Drive.MaxOpenFiles).Register(reg, cfg.Clock.Device); err != nil {
			return err
		}
	}

	for _, e := range reg.Entries() {
		log.WithFields(log.Fields{"device": e.Current(), "range": fmt.Sprintf("%d-%d", e.Low, e.High)}).Infof("%s registered", e.Name)
	}

	// --------------------
	// Engine + status mirror
	// --------------------

	var events chan hexbus.Event
	if cfg.Status.Endpoint != "" {
		events = make(chan hexbus.Event, 64)
	}

	eng, err := hexbus.NewEngine(tr, reg, hexbus.Config{
		BufferSize: cfg.Bus.BufferSize,
		Events:     events,
		Sessions:   drv.Sessions,
	})
	if err != nil {
		return err
	}

	if events != nil {
		cli, err := mirror.NewEndpointClient(mirror.ClientConfig{
			Endpoint: cfg.Status.Endpoint,
			Timeout:  time.Duration(cfg.Status.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return err
		}
		defer cli.Close()

		w, err := mirror.NewStatusWriter(mirror.WriterConfig{
			UnitID:     cfg.Status.UnitID,
			BaseSlot:   cfg.Status.BaseSlot,
			DeviceName: cfg.Status.DeviceName,
		}, cli)
		if err != nil {
			return err
		}

		r := mirror.NewRunner(w, events)
		entry := reg.Find(drive.EntryName)
		r.Device = func() uint8 {
			var code uint8
			eng.Do(func() { code = entry.Current() })
			return code
		}
		go r.Run(ctx)
	}

	err = eng.Run(ctx)

	// files still open at shutdown are synced and closed
	reg.ResetAll()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
