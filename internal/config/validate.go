package config

import (
	"fmt"

	"github.com/sweeney/preamp-panel/internal/switches"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// GPIO
	// ------------------------------------------------------------

	if cfg.GPIO.Chip == "" {
		return fmt.Errorf("gpio.chip must be set")
	}

	if len(cfg.GPIO.Switches) != switches.NumInputs {
		return fmt.Errorf(
			"gpio.switches: got %d offsets, want %d",
			len(cfg.GPIO.Switches),
			switches.NumInputs,
		)
	}

	// key = line offset, value = owner
	owner := make(map[int]string)
	claim := func(pin int, name string) error {
		if pin < 0 {
			return fmt.Errorf("%s: offset %d must not be negative", name, pin)
		}
		if prev, exists := owner[pin]; exists {
			return fmt.Errorf("line %d used by both %s and %s", pin, prev, name)
		}
		owner[pin] = name
		return nil
	}

	for i, pin := range cfg.GPIO.Switches {
		if err := claim(pin, fmt.Sprintf("gpio.switches[%d]", i)); err != nil {
			return err
		}
	}
	if err := claim(cfg.GPIO.EncoderA, "gpio.encoder_a"); err != nil {
		return err
	}
	if err := claim(cfg.GPIO.EncoderB, "gpio.encoder_b"); err != nil {
		return err
	}

	if cfg.GPIO.EncoderDebounce < 0 {
		return fmt.Errorf("gpio.encoder_debounce must not be negative")
	}
	if cfg.GPIO.DebounceTicks < 1 {
		return fmt.Errorf("gpio.debounce_ticks must be at least 1")
	}
	if _, err := switches.ParseMode(cfg.GPIO.MonoMode); err != nil {
		return fmt.Errorf("gpio.mono_mode: %w", err)
	}
	if _, err := switches.ParseMode(cfg.GPIO.DimMode); err != nil {
		return fmt.Errorf("gpio.dim_mode: %w", err)
	}

	// ------------------------------------------------------------
	// SCAN
	// ------------------------------------------------------------

	if cfg.Scan.Period <= 0 {
		return fmt.Errorf("scan.period must be positive")
	}
	if cfg.Scan.Divider < 1 {
		return fmt.Errorf("scan.divider must be at least 1")
	}

	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	if cfg.Bus.Device == "" {
		return fmt.Errorf("bus.device must be set")
	}
	// 7-bit addresses outside the reserved blocks.
	if cfg.Bus.Address < 0x08 || cfg.Bus.Address > 0x77 {
		return fmt.Errorf("bus.address 0x%02x outside 0x08-0x77", cfg.Bus.Address)
	}

	// ------------------------------------------------------------
	// SHIFT REGISTER
	// ------------------------------------------------------------

	switch cfg.Shift.Driver {
	case DriverGPIOCDev:
	case DriverGovattu:
		for _, pin := range []int{cfg.Shift.Data, cfg.Shift.Clock, cfg.Shift.Latch} {
			if pin > 53 {
				return fmt.Errorf("shift: govattu pin %d out of range", pin)
			}
		}
	default:
		return fmt.Errorf("shift.driver %q: want %s or %s", cfg.Shift.Driver, DriverGPIOCDev, DriverGovattu)
	}

	if err := claim(cfg.Shift.Data, "shift.data"); err != nil {
		return err
	}
	if err := claim(cfg.Shift.Clock, "shift.clock"); err != nil {
		return err
	}
	if err := claim(cfg.Shift.Latch, "shift.latch"); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// MQTT / HTTP / CONSOLE
	// ------------------------------------------------------------

	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker must be set")
	}
	if cfg.MQTT.ClientID == "" {
		return fmt.Errorf("mqtt.client_id must be set")
	}
	if cfg.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt.heartbeat must not be negative")
	}

	if cfg.Console.Device != "" && cfg.Console.Baud <= 0 {
		return fmt.Errorf("console.baud must be positive when console.device is set")
	}

	return nil
}
