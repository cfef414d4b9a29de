// internal/config/config.go
package config

type Config struct {
	Bus     BusConfig     `yaml:"bus"`
	Drive   DriveConfig   `yaml:"drive"`
	Printer PrinterConfig `yaml:"printer"`
	Serial  SerialConfig  `yaml:"serial"`
	Clock   ClockConfig   `yaml:"clock"`
	Status  StatusConfig  `yaml:"status"`
	Log     LogConfig     `yaml:"log"`
}

// ---- BUS ----

type BusConfig struct {
	// GPIO pin names as known to periph gpioreg
	BAV  string    `yaml:"bav"`
	HSK  string    `yaml:"hsk"`
	Data [4]string `yaml:"data"` // D0..D3

	SettleUs     int `yaml:"settle_us"`
	HskTimeoutMs int `yaml:"hsk_timeout_ms"`

	// Activity indicator (optional)
	LED          string `yaml:"led"`
	LEDActiveLow bool   `yaml:"led_active_low"`

	BufferSize int `yaml:"buffer_size"`
}

// ---- DRIVE ----

type DriveConfig struct {
	Root         string `yaml:"root"`
	Device       uint8  `yaml:"device"`
	MaxOpenFiles int    `yaml:"max_open_files"`
	ReadOnly     bool   `yaml:"read_only"`
	Volume       string `yaml:"volume"`
}

// ---- PRINTER ----

type PrinterConfig struct {
	Enabled bool   `yaml:"enabled"`
	Device  uint8  `yaml:"device"`
	Output  string `yaml:"output"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Device    uint8  `yaml:"device"`
	Port      string `yaml:"port"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- CLOCK ----

type ClockConfig struct {
	Enabled bool  `yaml:"enabled"`
	Device  uint8 `yaml:"device"`
}

// ---- STATUS MIRROR ----

// StatusConfig publishes the drive status block to a Modbus TCP endpoint.
// Opt-in: an empty endpoint disables the mirror.
type StatusConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	BaseSlot   uint16 `yaml:"base_slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}
