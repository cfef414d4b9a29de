// internal/config/normalize.go
package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultSettleUs     = 10
	DefaultHskTimeoutMs = 500
	DefaultBufferSize   = 256
	DefaultMaxOpenFiles = 4
	DefaultVolume       = "HEXDRIVE"

	DefaultDriveDevice   = 100
	DefaultPrinterDevice = 12
	DefaultSerialDevice  = 20
	DefaultClockDevice   = 230

	DefaultSerialTimeoutMs = 500
	DefaultStatusTimeoutMs = 1000
	DefaultStatusUnitID    = 1

	MaxDeviceName = 16
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	b := &cfg.Bus
	if b.SettleUs == 0 {
		b.SettleUs = DefaultSettleUs
	}
	if b.HskTimeoutMs == 0 {
		b.HskTimeoutMs = DefaultHskTimeoutMs
	}
	if b.BufferSize == 0 {
		b.BufferSize = DefaultBufferSize
	}

	d := &cfg.Drive
	if d.Device == 0 {
		d.Device = DefaultDriveDevice
	}
	if d.MaxOpenFiles == 0 {
		d.MaxOpenFiles = DefaultMaxOpenFiles
	}
	if d.Volume == "" {
		d.Volume = DefaultVolume
	}

	if cfg.Printer.Device == 0 {
		cfg.Printer.Device = DefaultPrinterDevice
	}

	if cfg.Serial.Device == 0 {
		cfg.Serial.Device = DefaultSerialDevice
	}
	if cfg.Serial.TimeoutMs == 0 {
		cfg.Serial.TimeoutMs = DefaultSerialTimeoutMs
	}

	if cfg.Clock.Device == 0 {
		cfg.Clock.Device = DefaultClockDevice
	}

	s := &cfg.Status
	if s.Endpoint != "" {
		if s.UnitID == 0 {
			s.UnitID = DefaultStatusUnitID
		}
		if s.TimeoutMs == 0 {
			s.TimeoutMs = DefaultStatusTimeoutMs
		}
		// ASCII already validated
		if len(s.DeviceName) > MaxDeviceName {
			s.DeviceName = s.DeviceName[:MaxDeviceName]
		}
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
