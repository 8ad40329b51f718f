package core

import "sync"

// Dispatcher runs one complete dispatch per token: decode, advance, mix and
// actuate. It owns the motion state and the actuator and serializes callers,
// so transports that serve requests concurrently can share one instance.
type Dispatcher struct {
	mu       sync.Mutex
	motion   *Motion
	actuator ActuatorDriver
	outputs  [NumWheels]WheelOutput
	count    uint32 // Dispatches processed
	faults   uint32 // Actuator writes that returned an error
}

// NewDispatcher creates a dispatcher in the idle state.
// A nil actuator is replaced by NullActuator.
func NewDispatcher(cfg Config, actuator ActuatorDriver) *Dispatcher {
	if actuator == nil {
		actuator = NullActuator{}
	}
	return &Dispatcher{
		motion:   NewMotion(cfg),
		actuator: actuator,
	}
}

// Dispatch processes one request token and returns the resulting status.
// Unknown or empty tokens are idle ticks, never errors.
func (d *Dispatcher) Dispatch(token string) Status {
	return d.DispatchCommand(DecodeCommand(token))
}

// DispatchCommand processes an already decoded command
func (d *Dispatcher) DispatchCommand(cmd Command) Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.motion.Advance(cmd)
	outputs := Mix(snap.Speed, snap.Maneuver, d.motion.Config())

	// All four outputs are computed before the first write
	d.apply(outputs)
	d.outputs = outputs
	d.count++

	status := Status{Command: snap.History.Current, Speed: snap.Speed}
	if debugEnabled {
		DebugPrintln("dispatch cmd=" + status.Command.String() +
			" speed=" + itoa(status.Speed) +
			" ordinal=" + itoa(int(status.Command)))
	}
	return status
}

// Reset returns the state machine to idle and stops every wheel
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.motion.Reset()
	snap := d.motion.Snapshot()
	outputs := Mix(snap.Speed, snap.Maneuver, d.motion.Config())
	d.apply(outputs)
	d.outputs = outputs
}

// Snapshot returns the current motion state
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.motion.Snapshot()
}

// Outputs returns the wheel outputs applied by the last dispatch
func (d *Dispatcher) Outputs() [NumWheels]WheelOutput {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outputs
}

// Stats returns the dispatch count and the number of failed actuator writes
func (d *Dispatcher) Stats() (dispatches, faults uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count, d.faults
}

// apply writes direction then duty for every wheel.
// Write errors are counted and reported but never stop the sequence.
func (d *Dispatcher) apply(outputs [NumWheels]WheelOutput) {
	for i, out := range outputs {
		w := Wheel(i)
		if err := d.actuator.SetDirection(w, out.Direction); err != nil {
			d.fault(w, err)
		}
		if err := d.actuator.SetDuty(w, out.Duty); err != nil {
			d.fault(w, err)
		}
	}
}

func (d *Dispatcher) fault(w Wheel, err error) {
	d.faults++
	DebugPrintln("actuator " + w.String() + ": " + err.Error())
}
