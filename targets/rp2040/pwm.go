//go:build rp2040 || rp2350

package main

import (
	"machine"
)

// wheelPWMPeriod is the enable-line PWM period in nanoseconds (1 kHz)
const wheelPWMPeriod = 1000000

// pwmPeripheral is an interface for PWM hardware peripherals.
// It abstracts over TinyGo's unexported *pwmGroup type and is what the
// l293x driver takes for its speed line.
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
	SetPeriod(period uint64) error
}

// pwmSlices tracks the slices already configured, so wheels sharing a
// slice keep the same period
type pwmSlices struct {
	configured [8]bool
}

// forPin returns the configured PWM slice driving pin.
// RP2040: GPIO N maps to slice (N >> 1) & 0x7, channel N & 1.
func (s *pwmSlices) forPin(pin machine.Pin) (pwmPeripheral, error) {
	sliceNum := uint8((uint32(pin) >> 1) & 0x7)
	pwm := getPWMPeripheral(sliceNum)

	if !s.configured[sliceNum] {
		err := pwm.Configure(machine.PWMConfig{
			Period: wheelPWMPeriod,
		})
		if err != nil {
			return nil, err
		}
		s.configured[sliceNum] = true
	}
	return pwm, nil
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	default:
		return machine.PWM0
	}
}
