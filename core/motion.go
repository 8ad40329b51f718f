package core

// maneuverTable holds the fixed coefficient row of every maneuver command,
// ordered FrontRight, FrontLeft, BackRight, BackLeft.
var maneuverTable = [CmdStop]Maneuver{
	CmdForward:      {1.0, 1.0, 1.0, 1.0},
	CmdBackward:     {-1.0, -1.0, -1.0, -1.0},
	CmdForwardLeft:  {0.5, 1.0, 0.5, 1.0},
	CmdForwardRight: {1.0, 0.5, 1.0, 0.5},
	CmdBackLeft:     {-0.5, -1.0, -0.5, -1.0},
	CmdBackRight:    {-1.0, -0.5, -1.0, -0.5},
	CmdLeft:         {-1.0, 1.0, -1.0, 1.0},
	CmdRight:        {1.0, -1.0, 1.0, -1.0},
}

// ManeuverFor returns the coefficient row of a maneuver command.
// ok is false for CmdStop and CmdNone.
func ManeuverFor(c Command) (m Maneuver, ok bool) {
	if !c.IsManeuver() {
		return Maneuver{}, false
	}
	return maneuverTable[c], true
}

// History is the (current, previous) pair of decoded commands
type History struct {
	Current  Command
	Previous Command
}

// Snapshot is the motion state read by the mixer after a transition
type Snapshot struct {
	History  History
	Speed    int
	Maneuver Maneuver
}

// Motion is the command-interpretation and ramping state machine.
// It is not safe for concurrent use; Dispatcher serializes access.
type Motion struct {
	cfg      Config
	history  History
	speed    int
	maneuver Maneuver
}

// NewMotion creates a state machine in the idle state.
// An invalid config falls back to DefaultConfig.
func NewMotion(cfg Config) *Motion {
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}
	m := &Motion{cfg: cfg}
	m.Reset()
	return m
}

// Reset returns to the initial state: speed 0, empty history and the
// forward row as the neutral maneuver.
func (m *Motion) Reset() {
	m.history = History{Current: CmdNone, Previous: CmdNone}
	m.speed = 0
	m.maneuver = maneuverTable[CmdForward]
}

// Config returns the limits the state machine was built with
func (m *Motion) Config() Config {
	return m.cfg
}

// Advance records a decoded command and applies the transition rules
func (m *Motion) Advance(decoded Command) Snapshot {
	if int(decoded) >= NumCommands {
		decoded = CmdNone
	}

	prev := m.history.Current
	m.history.Previous = prev
	m.history.Current = decoded

	switch {
	case decoded == CmdStop:
		// Maneuver is kept; wheels stop through zero duty
		m.speed = 0

	case decoded == CmdNone:
		if m.cfg.Idle == IdleCoast && prev != CmdNone {
			break
		}
		if m.speed > 0 {
			m.speed--
		}

	case decoded == prev:
		if m.speed < m.cfg.MaxSpeed {
			m.speed++
		}

	default:
		m.speed = 1
		m.maneuver = maneuverTable[decoded]
	}

	return m.Snapshot()
}

// Snapshot returns the current state without advancing
func (m *Motion) Snapshot() Snapshot {
	return Snapshot{
		History:  m.history,
		Speed:    m.speed,
		Maneuver: m.maneuver,
	}
}

// Outputs mixes the current state into per-wheel outputs
func (m *Motion) Outputs() [NumWheels]WheelOutput {
	return Mix(m.speed, m.maneuver, m.cfg)
}
