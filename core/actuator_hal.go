package core

// ActuatorDriver is the abstract wheel interface the dispatcher drives.
// Platform-specific implementations handle the H-bridge direction pins and
// the PWM enable line of each wheel.
type ActuatorDriver interface {
	// SetDirection sets the rotation sense of a wheel.
	// DirectionNeutral releases both direction pins.
	SetDirection(w Wheel, d Direction) error

	// SetDuty sets the PWM duty of a wheel
	// duty: 0 (stopped) to Config.DutyMax (full power)
	SetDuty(w Wheel, duty uint32) error
}

// ScaleDuty maps duty from [0, dutyMax] onto [0, top], clamping duty to
// dutyMax. Drivers use it to reach their hardware counter range.
func ScaleDuty(duty, dutyMax, top uint32) uint32 {
	if dutyMax == 0 {
		return 0
	}
	if duty > dutyMax {
		duty = dutyMax
	}
	return uint32(uint64(duty) * uint64(top) / uint64(dutyMax))
}

// NullActuator discards all writes
type NullActuator struct{}

func (NullActuator) SetDirection(Wheel, Direction) error { return nil }
func (NullActuator) SetDuty(Wheel, uint32) error         { return nil }

// RecordingActuator keeps the last direction and duty written to each wheel.
// Used by the simulated backend and by tests.
type RecordingActuator struct {
	Outputs [NumWheels]WheelOutput
	Writes  int // Total SetDirection + SetDuty calls
}

func (r *RecordingActuator) SetDirection(w Wheel, d Direction) error {
	if int(w) >= NumWheels {
		return nil
	}
	r.Outputs[w].Direction = d
	r.Writes++
	return nil
}

func (r *RecordingActuator) SetDuty(w Wheel, duty uint32) error {
	if int(w) >= NumWheels {
		return nil
	}
	r.Outputs[w].Duty = duty
	r.Writes++
	return nil
}
