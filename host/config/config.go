package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"

	"gorover/core"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Backend names
const (
	BackendSim    = "sim"
	BackendPeriph = "periph"
	BackendSerial = "serial"
)

// Config represents the complete configuration for the host programs
type Config struct {
	DeviceName string          `yaml:"device_name"`
	Backend    string          `yaml:"backend"`
	Motion     MotionConfig    `yaml:"motion"`
	HTTP       HTTPConfig      `yaml:"http"`
	Heartbeat  HeartbeatConfig `yaml:"heartbeat"`
	Serial     SerialConfig    `yaml:"serial"`
	MQTT       MQTTConfig      `yaml:"mqtt"`
	Periph     PeriphConfig    `yaml:"periph"`
	Log        LogConfig       `yaml:"log"`
}

// MotionConfig holds the motion limits of a local backend
type MotionConfig struct {
	MaxSpeed int    `yaml:"max_speed"`
	DutyMax  uint32 `yaml:"duty_max"`
	Idle     string `yaml:"idle"` // coast or decay
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	Listen        string `yaml:"listen"`
	ControlPath   string `yaml:"control_path"`
	WebsocketPath string `yaml:"websocket_path"`
}

// HeartbeatConfig holds the idle tick settings. Zero interval disables it.
type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// SerialConfig holds the link settings of the serial backend
type SerialConfig struct {
	Device        string        `yaml:"device"` // path or "auto"
	Baud          int           `yaml:"baud"`
	ReadTimeoutMs int           `yaml:"read_timeout_ms"`
	Timeout       time.Duration `yaml:"timeout"`
}

// MQTTConfig holds status publishing settings. Empty broker disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PeriphConfig holds the Linux GPIO wiring of the periph backend
type PeriphConfig struct {
	PWMFrequencyHz int                    `yaml:"pwm_frequency_hz"`
	Wheels         map[string]WheelConfig `yaml:"wheels"`
}

// WheelConfig names the driver pins of one wheel
type WheelConfig struct {
	Enable string `yaml:"enable"` // PWM capable pin
	In1    string `yaml:"in1"`
	In2    string `yaml:"in2"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"` // empty logs to stderr
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	Compress    bool   `yaml:"compress"`
}

// WheelKeys are the wheel names used in PeriphConfig.Wheels, in core.Wheel order
var WheelKeys = [core.NumWheels]string{
	core.WheelFrontRight: "front_right",
	core.WheelFrontLeft:  "front_left",
	core.WheelBackRight:  "back_right",
	core.WheelBackLeft:   "back_left",
}

// Load loads configuration from a YAML file and environment variables.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse parses YAML configuration data
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the default configuration. The device name is left empty
// and generated when defaults are applied.
func Default() *Config {
	return &Config{
		Backend: BackendSim,
		Motion: MotionConfig{
			MaxSpeed: core.DefaultMaxSpeed,
			DutyMax:  core.DefaultDutyMax,
			Idle:     core.IdleCoast.String(),
		},
		HTTP: HTTPConfig{
			Listen:        ":8080",
			ControlPath:   "/control.cgi",
			WebsocketPath: "/ws",
		},
		Serial: SerialConfig{
			Device:        "auto",
			Baud:          115200,
			ReadTimeoutMs: 100,
			Timeout:       500 * time.Millisecond,
		},
		Periph: PeriphConfig{
			PWMFrequencyHz: 1000,
			Wheels: map[string]WheelConfig{
				"front_right": {Enable: "GPIO12", In1: "GPIO5", In2: "GPIO6"},
				"front_left":  {Enable: "GPIO13", In1: "GPIO16", In2: "GPIO20"},
				"back_right":  {Enable: "GPIO18", In1: "GPIO23", In2: "GPIO24"},
				"back_left":   {Enable: "GPIO19", In1: "GPIO25", In2: "GPIO26"},
			},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if name := os.Getenv("ROVER_DEVICE_NAME"); name != "" {
		cfg.DeviceName = name
	}
	if backend := os.Getenv("ROVER_BACKEND"); backend != "" {
		cfg.Backend = backend
	}
	if device := os.Getenv("ROVER_SERIAL_DEVICE"); device != "" {
		cfg.Serial.Device = device
	}
	if broker := os.Getenv("ROVER_MQTT_BROKER"); broker != "" {
		cfg.MQTT.Broker = broker
	}
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.DeviceName == "" {
		cfg.DeviceName = NewDeviceName()
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendSim
	}
	if cfg.Motion.Idle == "" {
		cfg.Motion.Idle = core.IdleCoast.String()
	}
	if cfg.HTTP.ControlPath == "" {
		cfg.HTTP.ControlPath = "/control.cgi"
	}
	if cfg.Serial.Timeout == 0 {
		cfg.Serial.Timeout = 500 * time.Millisecond
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "rover/" + cfg.DeviceName + "/status"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = cfg.DeviceName
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// NewDeviceName generates a device name from a random UUID
func NewDeviceName() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "rover-" + strings.ToUpper(id[:4])
}

// CoreConfig returns the motion settings as a core.Config
func (c *Config) CoreConfig() (core.Config, error) {
	idle, ok := core.ParseIdlePolicy(c.Motion.Idle)
	if !ok {
		return core.Config{}, fmt.Errorf("%w: unknown idle policy %q", ErrInvalid, c.Motion.Idle)
	}
	cfg := core.Config{
		MaxSpeed: c.Motion.MaxSpeed,
		DutyMax:  c.Motion.DutyMax,
		Idle:     idle,
	}
	if err := cfg.Validate(); err != nil {
		return core.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSim, BackendPeriph, BackendSerial:
	default:
		return fmt.Errorf("%w: backend %q, must be one of: %v", ErrInvalid, c.Backend,
			[]string{BackendSim, BackendPeriph, BackendSerial})
	}

	if _, err := c.CoreConfig(); err != nil {
		return err
	}

	if c.HTTP.Listen == "" {
		return fmt.Errorf("%w: http.listen is empty", ErrInvalid)
	}
	if !strings.HasPrefix(c.HTTP.ControlPath, "/") {
		return fmt.Errorf("%w: http.control_path %q must start with /", ErrInvalid, c.HTTP.ControlPath)
	}
	if c.HTTP.WebsocketPath != "" && !strings.HasPrefix(c.HTTP.WebsocketPath, "/") {
		return fmt.Errorf("%w: http.websocket_path %q must start with /", ErrInvalid, c.HTTP.WebsocketPath)
	}
	if c.Heartbeat.Interval < 0 {
		return fmt.Errorf("%w: heartbeat.interval %v is negative", ErrInvalid, c.Heartbeat.Interval)
	}

	if c.Backend == BackendSerial {
		if c.Serial.Device == "" {
			return fmt.Errorf("%w: serial.device is empty", ErrInvalid)
		}
		if c.Serial.Timeout < 0 {
			return fmt.Errorf("%w: serial.timeout %v is negative", ErrInvalid, c.Serial.Timeout)
		}
	}

	if c.Backend == BackendPeriph {
		if c.Periph.PWMFrequencyHz <= 0 {
			return fmt.Errorf("%w: periph.pwm_frequency_hz must be positive", ErrInvalid)
		}
		for _, key := range WheelKeys {
			w, ok := c.Periph.Wheels[key]
			if !ok {
				return fmt.Errorf("%w: periph.wheels.%s is missing", ErrInvalid, key)
			}
			if w.Enable == "" || w.In1 == "" || w.In2 == "" {
				return fmt.Errorf("%w: periph.wheels.%s needs enable, in1 and in2", ErrInvalid, key)
			}
		}
	}

	return nil
}
