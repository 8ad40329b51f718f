package mcu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorover/core"
	"gorover/host/serial"
	"gorover/protocol"
)

var (
	// ErrNotConnected is returned when no link to the firmware is open
	ErrNotConnected = errors.New("not connected to MCU")

	// ErrTimeout is returned when the firmware does not answer in time
	ErrTimeout = protocol.ErrTimeout
)

// DefaultTimeout bounds one request/response exchange
const DefaultTimeout = 500 * time.Millisecond

// MCU represents a connection to the rover firmware
type MCU struct {
	mu sync.Mutex

	// Transport layer
	transport *protocol.HostTransport

	// Serial port
	port serial.Port

	// Last status reported by the firmware
	last     core.Status
	hasLast  bool
	requests uint32

	// Connection state
	connected bool

	// Timeout bounds a single exchange, retries included per attempt
	Timeout time.Duration
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{
		connected: false,
		Timeout:   DefaultTimeout,
	}
}

// Connect connects to the firmware via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to the firmware with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	// Drop anything the firmware sent before we were listening
	_ = port.Flush()

	m.ConnectPort(port)

	// Give the firmware time to initialize (if it just powered on)
	time.Sleep(100 * time.Millisecond)

	return nil
}

// ConnectPort attaches an already open port. The first request starts at
// sequence 0x10, which the firmware treats as a host reset.
func (m *MCU) ConnectPort(port serial.Port) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.connected = true
	m.hasLast = false
}

// Close closes the connection to the firmware
func (m *MCU) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}
	m.connected = false
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

// Send delivers one command token and returns the status the firmware reports.
// An empty token is an idle tick.
func (m *MCU) Send(token string) (core.Status, error) {
	return m.SendContext(context.Background(), token)
}

// SendContext is Send bounded by ctx as well as Timeout
func (m *MCU) SendContext(ctx context.Context, token string) (core.Status, error) {
	m.mu.Lock()
	transport := m.transport
	connected := m.connected
	timeout := m.Timeout
	m.mu.Unlock()

	if !connected || transport == nil {
		return core.Status{}, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return core.Status{}, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	resp, err := transport.Exchange([]byte(token), timeout)
	if err != nil {
		if errors.Is(err, protocol.ErrClosed) {
			return core.Status{}, ErrNotConnected
		}
		return core.Status{}, fmt.Errorf("command %q: %w", token, err)
	}

	st, err := ParseStatus(resp.Payload)
	if err != nil {
		return core.Status{}, fmt.Errorf("command %q: %w", token, err)
	}

	m.mu.Lock()
	m.last = st
	m.hasLast = true
	m.requests++
	m.mu.Unlock()

	return st, nil
}

// Command implements the gateway backend over the serial link
func (m *MCU) Command(ctx context.Context, token string) (core.Status, error) {
	return m.SendContext(ctx, token)
}

// Reset restarts the link sequence. The firmware resets its motion state
// on the next request.
func (m *MCU) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected || m.transport == nil {
		return ErrNotConnected
	}
	m.transport.Reset()
	m.hasLast = false
	return nil
}

// LastStatus returns the most recent status, if any request succeeded
func (m *MCU) LastStatus() (core.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasLast
}

// Requests returns the number of successful exchanges
func (m *MCU) Requests() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// IsConnected returns whether the MCU is connected
func (m *MCU) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}
