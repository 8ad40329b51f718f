package core

import "errors"

// Default limits of the Pico W rover board: ten speed steps and
// a PWM wrap of 1000.
const (
	DefaultMaxSpeed = 10
	DefaultDutyMax  = 1000
)

// IdlePolicy selects how VehicleSpeed reacts to a CmdNone tick
type IdlePolicy uint8

const (
	// IdleCoast holds speed on the first idle tick after a command and
	// decays by one on every following idle tick.
	IdleCoast IdlePolicy = iota
	// IdleDecay decays by one on every idle tick.
	IdleDecay
)

// ErrInvalidConfig is returned by Config.Validate
var ErrInvalidConfig = errors.New("invalid motion config")

// Config holds the fixed limits of the motion core
type Config struct {
	MaxSpeed int        // Highest VehicleSpeed step
	DutyMax  uint32     // PWM resolution; full duty
	Idle     IdlePolicy // Ramp-down behaviour on CmdNone
}

// DefaultConfig returns the limits used by the firmware
func DefaultConfig() Config {
	return Config{
		MaxSpeed: DefaultMaxSpeed,
		DutyMax:  DefaultDutyMax,
		Idle:     IdleCoast,
	}
}

// Validate checks the limits are usable
func (c Config) Validate() error {
	if c.MaxSpeed < 1 {
		return ErrInvalidConfig
	}
	if c.DutyMax < 1 {
		return ErrInvalidConfig
	}
	if c.Idle > IdleDecay {
		return ErrInvalidConfig
	}
	return nil
}

// ParseIdlePolicy converts a config string ("coast" or "decay")
func ParseIdlePolicy(s string) (IdlePolicy, bool) {
	switch s {
	case "", "coast":
		return IdleCoast, true
	case "decay":
		return IdleDecay, true
	}
	return IdleCoast, false
}

func (p IdlePolicy) String() string {
	if p == IdleDecay {
		return "decay"
	}
	return "coast"
}
