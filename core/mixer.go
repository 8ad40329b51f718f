package core

// Wheel identifies one of the four drive wheels.
// The order matches the coefficient columns of the maneuver table.
type Wheel uint8

const (
	WheelFrontRight Wheel = iota
	WheelFrontLeft
	WheelBackRight
	WheelBackLeft
)

// NumWheels is the number of driven wheels
const NumWheels = 4

var wheelNames = [NumWheels]string{"front-right", "front-left", "back-right", "back-left"}

func (w Wheel) String() string {
	if int(w) >= NumWheels {
		return "invalid"
	}
	return wheelNames[w]
}

// Direction is the rotation sense applied to a wheel's H-bridge inputs
type Direction int8

const (
	DirectionBackward Direction = -1
	DirectionNeutral  Direction = 0 // no direction pin asserted
	DirectionForward  Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	}
	return "neutral"
}

// Maneuver holds the signed per-wheel coefficients of a maneuver,
// indexed by Wheel. Each coefficient is in [-1, 1].
type Maneuver [NumWheels]float64

// WheelOutput is the actuation for one wheel during one dispatch
type WheelOutput struct {
	Direction Direction
	Duty      uint32 // 0 to Config.DutyMax
}

// Mix converts the scalar speed and the active maneuver into per-wheel
// outputs: duty = round(speed * |coef| * DutyMax / MaxSpeed) and
// direction = sign(coef). A zero coefficient yields a neutral wheel with
// zero duty.
func Mix(speed int, m Maneuver, cfg Config) [NumWheels]WheelOutput {
	var out [NumWheels]WheelOutput

	if speed < 0 {
		speed = 0
	}
	if speed > cfg.MaxSpeed {
		speed = cfg.MaxSpeed
	}

	for i, coef := range m {
		mag := coef
		switch {
		case coef > 0:
			out[i].Direction = DirectionForward
		case coef < 0:
			out[i].Direction = DirectionBackward
			mag = -coef
		default:
			// Neutral wheel, duty stays 0
			continue
		}
		if mag > 1 {
			mag = 1
		}

		// Round half up; all operands are non-negative
		duty := float64(speed)*mag*float64(cfg.DutyMax)/float64(cfg.MaxSpeed) + 0.5
		d := uint32(duty)
		if d > cfg.DutyMax {
			d = cfg.DutyMax
		}
		out[i].Duty = d
	}

	return out
}
