// Package config loads the panel's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/preamp-panel/internal/bus"
	"github.com/sweeney/preamp-panel/internal/gpio"
	"github.com/sweeney/preamp-panel/internal/logic"
	"github.com/sweeney/preamp-panel/internal/switches"
	"github.com/sweeney/preamp-panel/internal/tick"
)

// DefaultPath is read when no -config flag is given.
const DefaultPath = "/etc/preamp-panel.yaml"

// Shift register drivers.
const (
	DriverGPIOCDev = "gpiocdev"
	DriverGovattu  = "govattu"
)

// Config mirrors preamp-panel.yaml.
type Config struct {
	GPIO    GPIOConfig    `yaml:"gpio"`
	Scan    ScanConfig    `yaml:"scan"`
	Bus     BusConfig     `yaml:"bus"`
	Shift   ShiftConfig   `yaml:"shift"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Console ConsoleConfig `yaml:"console"`
}

type GPIOConfig struct {
	Chip string `yaml:"chip"`
	// Switches lists the input offsets in switch word order:
	// input 1-3, output 1-3, mono, dim.
	Switches        []int         `yaml:"switches"`
	EncoderA        int           `yaml:"encoder_a"`
	EncoderB        int           `yaml:"encoder_b"`
	EncoderDebounce time.Duration `yaml:"encoder_debounce"`
	DebounceTicks   int           `yaml:"debounce_ticks"`
	MonoMode        string        `yaml:"mono_mode"` // momentary | latching
	DimMode         string        `yaml:"dim_mode"`  // momentary | latching
}

type ScanConfig struct {
	Period  time.Duration `yaml:"period"`
	Divider int           `yaml:"divider"`
}

type BusConfig struct {
	Device      string `yaml:"device"`
	Address     uint8  `yaml:"address"`
	RetryFailed bool   `yaml:"retry_failed"`
}

type ShiftConfig struct {
	Driver string `yaml:"driver"` // gpiocdev | govattu
	Data   int    `yaml:"data"`
	Clock  int    `yaml:"clock"`
	Latch  int    `yaml:"latch"`
}

type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type ConsoleConfig struct {
	Device string `yaml:"device"` // empty disables the console
	Baud   int    `yaml:"baud"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:          gpio.DefaultChip,
			Switches:      append([]int(nil), gpio.DefaultSwitchPins...),
			EncoderA:      gpio.DefaultPinEncoderA,
			EncoderB:      gpio.DefaultPinEncoderB,
			DebounceTicks: switches.DefaultDebounceTicks,
			MonoMode:      string(switches.ModeMomentary),
			DimMode:       string(switches.ModeMomentary),
		},
		Scan: ScanConfig{
			Period:  tick.DefaultPeriod,
			Divider: logic.DefaultDivider,
		},
		Bus: BusConfig{
			Device:      bus.DefaultDevice,
			Address:     logic.DefaultAddress,
			RetryFailed: true,
		},
		Shift: ShiftConfig{
			Driver: DriverGPIOCDev,
			Data:   16,
			Clock:  20,
			Latch:  21,
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://192.168.1.200:1883",
			ClientID:  "preamp-panel",
			Heartbeat: 15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Console: ConsoleConfig{
			Baud: 9600,
		},
	}
}

// Load reads the file at path over the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// MonoMode returns the parsed mono switch mode. Call after Validate.
func (c *Config) MonoMode() switches.Mode {
	m, _ := switches.ParseMode(c.GPIO.MonoMode)
	return m
}

// DimMode returns the parsed dim switch mode. Call after Validate.
func (c *Config) DimMode() switches.Mode {
	m, _ := switches.ParseMode(c.GPIO.DimMode)
	return m
}
