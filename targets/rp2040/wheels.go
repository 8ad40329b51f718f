//go:build rp2040 || rp2350

package main

import (
	"errors"
	"gorover/core"
	"machine"

	"tinygo.org/x/drivers/l293x"
)

var errUnknownWheel = errors.New("unknown wheel")

// wheelPins is the H-bridge wiring of one wheel
type wheelPins struct {
	enable machine.Pin // PWM speed line (ENA/ENB)
	in1    machine.Pin // High for forward
	in2    machine.Pin // High for backward
}

// wheelWiring is the L298N wiring of the rover board, indexed by core.Wheel
var wheelWiring = [core.NumWheels]wheelPins{
	core.WheelFrontRight: {enable: machine.GPIO2, in1: machine.GPIO3, in2: machine.GPIO4},
	core.WheelFrontLeft:  {enable: machine.GPIO6, in1: machine.GPIO7, in2: machine.GPIO8},
	core.WheelBackRight:  {enable: machine.GPIO10, in1: machine.GPIO11, in2: machine.GPIO12},
	core.WheelBackLeft:   {enable: machine.GPIO13, in1: machine.GPIO14, in2: machine.GPIO15},
}

// wheel is one configured H-bridge channel
type wheel struct {
	bridge    l293x.PWMDevice
	pwm       pwmPeripheral
	channel   uint8
	direction core.Direction
}

// WheelDriver implements core.ActuatorDriver on the RP2040 PWM slices.
// The l293x driver sets both direction pins and the enable duty together,
// so SetDirection is latched and applied by the following SetDuty.
type WheelDriver struct {
	wheels  [core.NumWheels]wheel
	dutyMax uint32
}

// NewWheelDriver configures the pins of every wheel and leaves them stopped
func NewWheelDriver(dutyMax uint32) (*WheelDriver, error) {
	d := &WheelDriver{dutyMax: dutyMax}
	var slices pwmSlices

	for i, pins := range wheelWiring {
		pwm, err := slices.forPin(pins.enable)
		if err != nil {
			return nil, err
		}
		// Switches the enable pin to PWM mode
		ch, err := pwm.Channel(pins.enable)
		if err != nil {
			return nil, err
		}

		w := &d.wheels[i]
		w.pwm = pwm
		w.channel = ch
		w.bridge = l293x.NewWithSpeed(pins.in1, pins.in2, ch, pwm)
		w.bridge.Configure()
		w.bridge.Stop()
	}
	return d, nil
}

func (d *WheelDriver) SetDirection(w core.Wheel, dir core.Direction) error {
	if int(w) >= core.NumWheels {
		return errUnknownWheel
	}
	d.wheels[w].direction = dir
	if dir == core.DirectionNeutral {
		d.wheels[w].bridge.Stop()
	}
	return nil
}

// SetDuty drives the direction pins through l293x, which only takes a
// percentage, then writes the exact level scaled to the slice's counter top.
func (d *WheelDriver) SetDuty(w core.Wheel, duty uint32) error {
	if int(w) >= core.NumWheels {
		return errUnknownWheel
	}
	wh := &d.wheels[w]
	percent := core.ScaleDuty(duty, d.dutyMax, 100)

	switch {
	case duty == 0 || wh.direction == core.DirectionNeutral:
		wh.bridge.Stop()
		return nil
	case wh.direction == core.DirectionForward:
		wh.bridge.Forward(percent)
	default:
		wh.bridge.Backward(percent)
	}
	wh.pwm.Set(wh.channel, core.ScaleDuty(duty, d.dutyMax, wh.pwm.Top()))
	return nil
}
