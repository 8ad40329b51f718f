package periph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"gorover/core"
)

type fakePin struct {
	name    string
	level   gpio.Level
	duty    gpio.Duty
	freq    physic.Frequency
	halted  bool
	failOut error
}

func (p *fakePin) Name() string { return p.name }

func (p *fakePin) Out(l gpio.Level) error {
	if p.failOut != nil {
		return p.failOut
	}
	p.level = l
	p.duty = 0
	return nil
}

func (p *fakePin) PWM(duty gpio.Duty, f physic.Frequency) error {
	p.duty = duty
	p.freq = f
	return nil
}

func (p *fakePin) Halt() error {
	p.halted = true
	return nil
}

func newFakeWheels() ([core.NumWheels]WheelPins, [core.NumWheels][3]*fakePin) {
	var wheels [core.NumWheels]WheelPins
	var fakes [core.NumWheels][3]*fakePin
	for i := range wheels {
		en := &fakePin{name: "EN" + core.Wheel(i).String()}
		in1 := &fakePin{name: "IN1" + core.Wheel(i).String()}
		in2 := &fakePin{name: "IN2" + core.Wheel(i).String()}
		wheels[i] = WheelPins{Enable: en, In1: in1, In2: in2}
		fakes[i] = [3]*fakePin{en, in1, in2}
	}
	return wheels, fakes
}

func TestWheelDriverDirections(t *testing.T) {
	wheels, fakes := newFakeWheels()
	d, err := NewWheelDriver(wheels, 1000, 1000)
	require.NoError(t, err)

	require.NoError(t, d.SetDirection(core.WheelFrontRight, core.DirectionForward))
	assert.Equal(t, gpio.High, fakes[core.WheelFrontRight][1].level)
	assert.Equal(t, gpio.Low, fakes[core.WheelFrontRight][2].level)

	require.NoError(t, d.SetDirection(core.WheelBackLeft, core.DirectionBackward))
	assert.Equal(t, gpio.Low, fakes[core.WheelBackLeft][1].level)
	assert.Equal(t, gpio.High, fakes[core.WheelBackLeft][2].level)

	require.NoError(t, d.SetDirection(core.WheelFrontRight, core.DirectionNeutral))
	assert.Equal(t, gpio.Low, fakes[core.WheelFrontRight][1].level)
	assert.Equal(t, gpio.Low, fakes[core.WheelFrontRight][2].level)
}

func TestWheelDriverDutyScaling(t *testing.T) {
	wheels, fakes := newFakeWheels()
	d, err := NewWheelDriver(wheels, 1000, 2000)
	require.NoError(t, err)

	require.NoError(t, d.SetDuty(core.WheelFrontLeft, 500))
	en := fakes[core.WheelFrontLeft][0]
	assert.Equal(t, gpio.DutyMax/2, en.duty)
	assert.Equal(t, 2000*physic.Hertz, en.freq)

	require.NoError(t, d.SetDuty(core.WheelFrontLeft, 5000))
	assert.Equal(t, gpio.DutyMax, en.duty, "duty above max is clamped")

	require.NoError(t, d.SetDuty(core.WheelFrontLeft, 0))
	assert.Equal(t, gpio.Low, en.level)
	assert.Zero(t, en.duty)
}

func TestWheelDriverWithDispatcher(t *testing.T) {
	wheels, fakes := newFakeWheels()
	d, err := NewWheelDriver(wheels, core.DefaultDutyMax, 1000)
	require.NoError(t, err)

	disp := core.NewDispatcher(core.DefaultConfig(), d)
	disp.Dispatch("LFT")

	// Left pivot: right side backward, left side forward, duty 1/10
	assert.Equal(t, gpio.High, fakes[core.WheelFrontRight][2].level)
	assert.Equal(t, gpio.High, fakes[core.WheelFrontLeft][1].level)
	for i := range fakes {
		assert.Equal(t, gpio.DutyMax/10, fakes[i][0].duty, "wheel %v", core.Wheel(i))
	}
	_, faults := disp.Stats()
	assert.Zero(t, faults)
}

func TestWheelDriverErrors(t *testing.T) {
	wheels, fakes := newFakeWheels()
	boom := errors.New("line busy")
	fakes[core.WheelBackRight][1].failOut = boom

	d, err := NewWheelDriver(wheels, 1000, 1000)
	require.NoError(t, err)

	err = d.SetDirection(core.WheelBackRight, core.DirectionForward)
	assert.ErrorIs(t, err, boom)

	assert.Error(t, d.SetDuty(core.Wheel(7), 10))
}

func TestWheelDriverClose(t *testing.T) {
	wheels, fakes := newFakeWheels()
	boom := errors.New("line busy")
	fakes[core.WheelFrontRight][2].failOut = boom

	d, err := NewWheelDriver(wheels, 1000, 1000)
	require.NoError(t, err)

	err = d.Close()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	for i := range fakes {
		for _, p := range fakes[i] {
			assert.True(t, p.halted, p.name)
		}
	}
}

func TestNewWheelDriverValidates(t *testing.T) {
	wheels, _ := newFakeWheels()
	_, err := NewWheelDriver(wheels, 0, 1000)
	assert.Error(t, err)
	_, err = NewWheelDriver(wheels, 1000, 0)
	assert.Error(t, err)

	wheels[core.WheelBackLeft].In2 = nil
	_, err = NewWheelDriver(wheels, 1000, 1000)
	assert.Error(t, err)
}
