// Package gateway serves the rover command interface over HTTP and
// websockets, publishes status over MQTT and ticks idle rovers.
package gateway

import (
	"context"

	"gorover/core"
)

// Commander runs one command token and returns the resulting status
type Commander interface {
	Command(ctx context.Context, token string) (core.Status, error)
}

// LocalBackend runs the motion core in this process
type LocalBackend struct {
	Dispatcher *core.Dispatcher
}

// NewLocalBackend creates a backend around a new dispatcher
func NewLocalBackend(cfg core.Config, actuator core.ActuatorDriver) *LocalBackend {
	return &LocalBackend{Dispatcher: core.NewDispatcher(cfg, actuator)}
}

// Command implements Commander. Local dispatches never fail.
func (b *LocalBackend) Command(ctx context.Context, token string) (core.Status, error) {
	if err := ctx.Err(); err != nil {
		return core.Status{}, err
	}
	return b.Dispatcher.Dispatch(token), nil
}
