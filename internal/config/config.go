// internal/config/config.go
package config

type Config struct {
	Replicator ReplicatorConfig `yaml:"replicator" toml:"replicator"`
}

type ReplicatorConfig struct {
	StatusMemory StatusMemoryConfig `yaml:"status_memory" toml:"status_memory"`
	Metrics      MetricsConfig      `yaml:"metrics" toml:"metrics"`
	Events       EventsConfig       `yaml:"events" toml:"events"`
	Units        []UnitConfig       `yaml:"units" toml:"units"`
}

// ---- SHARED ENDPOINTS ----

// StatusMemoryConfig is where device status blocks are written.
type StatusMemoryConfig struct {
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen" toml:"listen"` // empty disables /metrics
}

// EventsConfig enables publishing of unsolicited device events.
type EventsConfig struct {
	NatsURL string `yaml:"nats_url" toml:"nats_url"` // empty disables publishing
	Subject string `yaml:"subject" toml:"subject"`
}

// ---- UNIT ----

type UnitConfig struct {
	ID      string         `yaml:"id" toml:"id"`
	Source  SourceConfig   `yaml:"source" toml:"source"`
	Reads   []string       `yaml:"reads" toml:"reads"` // register names, mirrored in this order
	Targets []TargetConfig `yaml:"targets" toml:"targets"`
	Poll    PollConfig     `yaml:"poll" toml:"poll"`
}

// ---- SOURCE ----

// SourceConfig is the Harp device behind one serial port.
type SourceConfig struct {
	Port      string `yaml:"port" toml:"port"`
	BaudRate  int    `yaml:"baud_rate" toml:"baud_rate"`
	TimeoutMs int    `yaml:"timeout_ms" toml:"timeout_ms"`

	// Simulate replaces the serial port with an in-memory device.
	Simulate bool `yaml:"simulate" toml:"simulate"`

	// Device status block (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot" toml:"status_slot"`
	DeviceName string  `yaml:"device_name" toml:"device_name"`
}

// ---- TARGET ----

type TargetConfig struct {
	ID           uint32 `yaml:"id" toml:"id"` // modbus unit id of the data memory
	Endpoint     string `yaml:"endpoint" toml:"endpoint"`
	Protocol     string `yaml:"protocol" toml:"protocol"` // modbus | ingest
	Offset       uint16 `yaml:"offset" toml:"offset"`
	StatusUnitID *uint8 `yaml:"status_unit_id" toml:"status_unit_id"` // per-target status memory (optional)
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms" toml:"interval_ms"`
}

const (
	ProtocolModbus = "modbus"
	ProtocolIngest = "ingest"
)
