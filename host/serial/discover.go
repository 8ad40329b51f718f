//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	bugst "go.bug.st/serial"
)

// ErrNoPorts is returned when no candidate port is attached
var ErrNoPorts = errors.New("no serial ports found")

// listPorts is replaced in tests
var listPorts = bugst.GetPortsList

// usbPrefixes are the device names USB CDC adapters show up under
var usbPrefixes = []string{
	"/dev/ttyACM",
	"/dev/ttyUSB",
	"/dev/cu.usbmodem",
	"/dev/tty.usbmodem",
	"COM",
}

// ListPorts returns the serial ports present on the system, USB CDC ports first
func ListPorts() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	sort.SliceStable(ports, func(i, j int) bool {
		return isUSB(ports[i]) && !isUSB(ports[j])
	})
	return ports, nil
}

// Discover returns the first USB CDC port, where the firmware enumerates
func Discover() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		if isUSB(p) {
			return p, nil
		}
	}
	return "", ErrNoPorts
}

func isUSB(port string) bool {
	for _, prefix := range usbPrefixes {
		if strings.HasPrefix(port, prefix) {
			return true
		}
	}
	return false
}
