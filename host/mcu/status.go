package mcu

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gorover/core"
)

// statusPayload mirrors the firmware status JSON. The numbers travel as
// strings.
type statusPayload struct {
	Status       int    `json:"status"`
	Command      string `json:"command"`
	VehicleSpeed string `json:"vehicle_speed"`
}

// ParseStatus decodes a status payload produced by core.Status.AppendJSON
func ParseStatus(payload []byte) (core.Status, error) {
	var p statusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return core.Status{}, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	if p.Status != 1 {
		return core.Status{}, fmt.Errorf("unexpected status field %d", p.Status)
	}

	ordinal, err := strconv.Atoi(p.Command)
	if err != nil {
		return core.Status{}, fmt.Errorf("invalid command ordinal %q: %w", p.Command, err)
	}
	if ordinal < 0 || ordinal >= core.NumCommands {
		return core.Status{}, fmt.Errorf("command ordinal %d out of range", ordinal)
	}

	speed, err := strconv.Atoi(p.VehicleSpeed)
	if err != nil {
		return core.Status{}, fmt.Errorf("invalid vehicle speed %q: %w", p.VehicleSpeed, err)
	}
	if speed < 0 {
		return core.Status{}, fmt.Errorf("negative vehicle speed %d", speed)
	}

	return core.Status{Command: core.Command(ordinal), Speed: speed}, nil
}
