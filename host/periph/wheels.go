// Package periph drives the four wheel channels of an L298N style bridge
// from Linux GPIO and PWM lines.
package periph

import (
	"fmt"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"gorover/core"
	"gorover/host/config"
)

// OutputPin is the part of gpio.PinIO the driver uses
type OutputPin interface {
	Name() string
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
	Halt() error
}

// WheelPins are the bridge inputs of one wheel
type WheelPins struct {
	Enable OutputPin // speed, PWM
	In1    OutputPin // high for forward
	In2    OutputPin // high for backward
}

// WheelDriver implements core.ActuatorDriver on GPIO lines
type WheelDriver struct {
	wheels    [core.NumWheels]WheelPins
	dutyMax   uint32
	frequency physic.Frequency
}

// NewWheelDriver creates a driver for already resolved pins.
// Duty values from the core are scaled from [0, dutyMax] to gpio.DutyMax.
func NewWheelDriver(wheels [core.NumWheels]WheelPins, dutyMax uint32, freqHz int) (*WheelDriver, error) {
	if dutyMax == 0 {
		return nil, fmt.Errorf("duty max must be positive")
	}
	if freqHz <= 0 {
		return nil, fmt.Errorf("pwm frequency must be positive, got %d", freqHz)
	}
	for i, w := range wheels {
		if w.Enable == nil || w.In1 == nil || w.In2 == nil {
			return nil, fmt.Errorf("wheel %v: missing pin", core.Wheel(i))
		}
	}
	return &WheelDriver{
		wheels:    wheels,
		dutyMax:   dutyMax,
		frequency: physic.Hertz * physic.Frequency(freqHz),
	}, nil
}

// Open initializes the host drivers and resolves the configured pin names
func Open(cfg config.PeriphConfig, dutyMax uint32) (*WheelDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	var wheels [core.NumWheels]WheelPins
	for i, key := range config.WheelKeys {
		wc, ok := cfg.Wheels[key]
		if !ok {
			return nil, fmt.Errorf("no pins configured for wheel %s", key)
		}
		var err error
		if wheels[i].Enable, err = lookup(key, "enable", wc.Enable); err != nil {
			return nil, err
		}
		if wheels[i].In1, err = lookup(key, "in1", wc.In1); err != nil {
			return nil, err
		}
		if wheels[i].In2, err = lookup(key, "in2", wc.In2); err != nil {
			return nil, err
		}
	}

	return NewWheelDriver(wheels, dutyMax, cfg.PWMFrequencyHz)
}

func lookup(wheel, role, name string) (OutputPin, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("wheel %s %s: no GPIO pin named %q", wheel, role, name)
	}
	return pin, nil
}

// SetDirection sets the bridge inputs of one wheel. Neutral releases both.
func (d *WheelDriver) SetDirection(w core.Wheel, dir core.Direction) error {
	pins, err := d.pins(w)
	if err != nil {
		return err
	}

	in1, in2 := gpio.Low, gpio.Low
	switch dir {
	case core.DirectionForward:
		in1 = gpio.High
	case core.DirectionBackward:
		in2 = gpio.High
	}

	if err := pins.In1.Out(in1); err != nil {
		return fmt.Errorf("wheel %v: %s: %w", w, pins.In1.Name(), err)
	}
	if err := pins.In2.Out(in2); err != nil {
		return fmt.Errorf("wheel %v: %s: %w", w, pins.In2.Name(), err)
	}
	return nil
}

// SetDuty sets the enable line duty cycle. Zero drives the line low.
func (d *WheelDriver) SetDuty(w core.Wheel, duty uint32) error {
	pins, err := d.pins(w)
	if err != nil {
		return err
	}

	if duty == 0 {
		if err := pins.Enable.Out(gpio.Low); err != nil {
			return fmt.Errorf("wheel %v: %s: %w", w, pins.Enable.Name(), err)
		}
		return nil
	}

	if err := pins.Enable.PWM(d.scale(duty), d.frequency); err != nil {
		return fmt.Errorf("wheel %v: %s: %w", w, pins.Enable.Name(), err)
	}
	return nil
}

// scale converts a core duty to the periph duty range
func (d *WheelDriver) scale(duty uint32) gpio.Duty {
	return gpio.Duty(core.ScaleDuty(duty, d.dutyMax, uint32(gpio.DutyMax)))
}

func (d *WheelDriver) pins(w core.Wheel) (WheelPins, error) {
	if int(w) >= core.NumWheels {
		return WheelPins{}, fmt.Errorf("unknown wheel %d", w)
	}
	return d.wheels[w], nil
}

// Close stops every wheel and releases the pins
func (d *WheelDriver) Close() error {
	var err error
	for i, pins := range d.wheels {
		w := core.Wheel(i)
		err = multierr.Append(err, d.SetDuty(w, 0))
		err = multierr.Append(err, d.SetDirection(w, core.DirectionNeutral))
		err = multierr.Append(err, pins.Enable.Halt())
		err = multierr.Append(err, pins.In1.Halt())
		err = multierr.Append(err, pins.In2.Halt())
	}
	return err
}
