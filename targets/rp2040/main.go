//go:build rp2040 || rp2350

package main

import (
	"gorover/core"
	"gorover/protocol"
	"machine"
	"time"
)

// watchdogTimeoutMs reboots the board when the main loop stops running
const watchdogTimeoutMs = 2000

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	dispatcher *core.Dispatcher
	wheels     *WheelDriver

	// Debug counters
	messagesReceived uint32
	messagesSent     uint32
	msgerrors        uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	// Initialize USB CDC immediately
	InitUSB()
	InitDebugUART()

	cfg := core.DefaultConfig()
	wheels, err = NewWheelDriver(cfg.DutyMax)
	if err != nil {
		DebugPrintln("wheel setup failed: " + err.Error())
		// Keep serving the link; status still reports the motion state
		dispatcher = core.NewDispatcher(cfg, nil)
	} else {
		dispatcher = core.NewDispatcher(cfg, wheels)
	}

	// Create buffers
	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	// Each request payload is one command token; the response is the status
	transport = protocol.NewTransport(outputBuffer, handleRequest)
	transport.SetResetCallback(func() {
		outputBuffer.Reset()
		dispatcher.Reset()
		if debugEnabled {
			requests, duplicates := transport.Stats()
			DebugPrintln("host reset after " + itoa(int(requests)) +
				" requests, " + itoa(int(duplicates)) + " retransmits")
		}
	})
	// Send every response as soon as it is encoded
	transport.SetFlushCallback(func() {
		writeUSB()
	})

	err = machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: watchdogTimeoutMs})
	if err == nil {
		err = machine.Watchdog.Start()
	}
	if err != nil {
		DebugPrintln("watchdog start failed: " + err.Error())
	}

	// Start USB reader goroutine
	go usbReaderLoop()

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
					dispatcher.Reset()
				}
			}()

			machine.Watchdog.Update()

			if inputBuffer.Available() > 0 {
				transport.Receive(inputBuffer)
				messagesReceived++
			}

			// Write anything the flush callback could not send
			if len(outputBuffer.Result()) > 0 {
				writeUSB()
				messagesSent++
			}
		}()

		// Yield to the reader goroutine
		time.Sleep(10 * time.Microsecond)
	}
}

// handleRequest runs one dispatch and appends the status body
func handleRequest(payload []byte, dst []byte) []byte {
	return dispatcher.Dispatch(string(payload)).AppendJSON(dst)
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		available := USBAvailable()
		if available > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// First byte after a disconnect: start over with a stopped rover
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				messagesReceived = 0
				messagesSent = 0
				consecutiveWriteFailures = 0
			}

			written := inputBuffer.Write([]byte{data})
			if written == 0 {
				// Buffer full
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB writes the pending output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Likely disconnect; after several failures drop stale data
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
				DebugPrintln("usb disconnected, errors=" + itoa(int(msgerrors)))
			}
			return
		}
		written += n
	}

	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
