// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Device code ranges per subsystem.
const (
	DriveLow, DriveHigh     = 100, 109
	PrinterLow, PrinterHigh = 10, 19
	SerialLow, SerialHigh   = 20, 29
	ClockLow, ClockHigh     = 230, 239
)

// MinBufferSize must hold the largest fixed-size response (a catalog
// PGM entry) and a DISPLAY record with its CR/LF.
const MinBufferSize = 64

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// A zero device code means "use the default" and is accepted.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}

	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	if cfg.Bus.BAV == "" {
		add("bus.bav is required")
	}
	if cfg.Bus.HSK == "" {
		add("bus.hsk is required")
	}
	for i, p := range cfg.Bus.Data {
		if p == "" {
			add("bus.data[%d] is required", i)
		}
	}
	if cfg.Bus.SettleUs < 0 {
		add("bus.settle_us must not be negative")
	}
	if cfg.Bus.HskTimeoutMs < 0 {
		add("bus.hsk_timeout_ms must not be negative")
	}
	if cfg.Bus.BufferSize != 0 && (cfg.Bus.BufferSize < MinBufferSize || cfg.Bus.BufferSize > 0xFFFF) {
		add("bus.buffer_size must be within %d-%d", MinBufferSize, 0xFFFF)
	}

	// ------------------------------------------------------------
	// DEVICES
	// ------------------------------------------------------------

	if cfg.Drive.Root == "" {
		add("drive.root is required")
	}
	if cfg.Drive.MaxOpenFiles < 0 || cfg.Drive.MaxOpenFiles > 254 {
		add("drive.max_open_files must be within 0-254")
	}
	checkDevice(add, "drive.device", cfg.Drive.Device, DriveLow, DriveHigh)

	if cfg.Printer.Enabled {
		checkDevice(add, "printer.device", cfg.Printer.Device, PrinterLow, PrinterHigh)
		if cfg.Printer.Output == "" {
			add("printer.output is required when the printer is enabled")
		}
	}

	if cfg.Serial.Enabled {
		checkDevice(add, "serial.device", cfg.Serial.Device, SerialLow, SerialHigh)
		if cfg.Serial.Port == "" {
			add("serial.port is required when serial is enabled")
		}
		if cfg.Serial.TimeoutMs < 0 {
			add("serial.timeout_ms must not be negative")
		}
	}

	if cfg.Clock.Enabled {
		checkDevice(add, "clock.device", cfg.Clock.Device, ClockLow, ClockHigh)
	}

	// ------------------------------------------------------------
	// STATUS MIRROR (OPT-IN)
	// ------------------------------------------------------------

	if cfg.Status.Endpoint != "" {
		// device_name sanity (ASCII only)
		for i := 0; i < len(cfg.Status.DeviceName); i++ {
			if cfg.Status.DeviceName[i] > 0x7F {
				add("status.device_name must contain ASCII characters only")
				break
			}
		}
		if cfg.Status.TimeoutMs < 0 {
			add("status.timeout_ms must not be negative")
		}
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	switch strings.ToLower(cfg.Log.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		add("log.level %q is not a known level", cfg.Log.Level)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, " | "))
	}
	return nil
}

func checkDevice(add func(string, ...any), field string, dev uint8, low, high uint8) {
	if dev == 0 {
		return
	}
	if dev < low || dev > high {
		add("%s %d outside %d-%d", field, dev, low, high)
	}
}
