package protocol

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrTimeout is returned when no response arrives in time
	ErrTimeout = errors.New("response timeout")

	// ErrClosed is returned after the transport has been closed
	ErrClosed = errors.New("transport closed")
)

// HostTransport handles the link from the host side.
// It sends one request frame at a time and waits for the frame carrying the
// same sequence byte.
type HostTransport struct {
	// Serial I/O
	port io.ReadWriteCloser

	// Sequence of the next request (0x10-0x1F)
	currentSeq uint32 // atomic uint8 stored as uint32

	scanner     frameScanner
	inputBuffer *FifoBuffer

	// Responses decoded by the read loop
	responseChan chan *Message

	// Serializes request/response exchanges
	exchangeMutex sync.Mutex
	writeMutex    sync.Mutex
	readMutex     sync.Mutex

	// Stop channel for graceful shutdown
	stopChan  chan struct{}
	doneChan  chan struct{}
	closeOnce sync.Once

	// Retries is the number of times a request is resent before giving up
	Retries int
}

// NewHostTransport creates a new host-side transport and starts its reader
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		currentSeq:   MessageDest, // Start at 0x10
		scanner:      newFrameScanner(),
		inputBuffer:  NewFifoBuffer(MessageMax),
		responseChan: make(chan *Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
		Retries:      2,
	}

	go t.readLoop()

	return t
}

// Exchange sends payload as one request and returns the matching response.
// On timeout the same frame is resent, so the device answers from its cache
// instead of handling the request twice.
func (t *HostTransport) Exchange(payload []byte, timeout time.Duration) (*Message, error) {
	t.exchangeMutex.Lock()
	defer t.exchangeMutex.Unlock()

	seq := uint8(atomic.LoadUint32(&t.currentSeq))
	frame, err := AppendFrame(make([]byte, 0, MessageLengthMax), seq, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	t.drainResponses()

	for attempt := 0; attempt <= t.Retries; attempt++ {
		if err := t.writeMessage(frame); err != nil {
			return nil, fmt.Errorf("failed to write request: %w", err)
		}

		resp, err := t.waitFor(seq, timeout)
		if err == nil {
			atomic.StoreUint32(&t.currentSeq, uint32(NextSequence(seq)))
			return resp, nil
		}
		if !errors.Is(err, ErrTimeout) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("seq 0x%02x after %d attempts: %w", seq, t.Retries+1, ErrTimeout)
}

// waitFor returns the first response carrying seq
func (t *HostTransport) waitFor(seq uint8, timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case resp := <-t.responseChan:
			if resp.Sequence == seq {
				return resp, nil
			}
			// Stale answer to an earlier attempt, or an out-of-order notice

		case <-timer.C:
			return nil, ErrTimeout

		case <-t.stopChan:
			return nil, ErrClosed
		}
	}
}

func (t *HostTransport) drainResponses() {
	for {
		select {
		case <-t.responseChan:
		default:
			return
		}
	}
}

// writeMessage sends a message to the serial port
func (t *HostTransport) writeMessage(msg []byte) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	n, err := t.port.Write(msg)
	if err != nil {
		return err
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}

	return nil
}

// readLoop continuously reads from the port and decodes frames
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			t.processMessages(buffer[:n])
		}
		if err != nil {
			if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return
			}
			// io.EOF is a read timeout on a quiet serial line; anything
			// else is transient. Keep reading until Close.
			wait := 10 * time.Millisecond
			if errors.Is(err, io.EOF) {
				wait = time.Millisecond
			}
			select {
			case <-t.stopChan:
				return
			case <-time.After(wait):
			}
		}
	}
}

// processMessages buffers incoming bytes and dispatches complete frames
func (t *HostTransport) processMessages(incoming []byte) {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	t.inputBuffer.Write(incoming)

	data := t.inputBuffer.Data()
	rest := t.scanner.scan(data, func(seq uint8, payload []byte, crc uint16) {
		msg := &Message{
			Length:   uint8(len(payload) + MessageLengthMin),
			Sequence: seq,
			Payload:  append([]byte(nil), payload...),
			CRC:      crc,
		}
		t.dispatchMessage(msg)
	})

	consumed := len(data) - len(rest)
	if consumed > 0 {
		t.inputBuffer.Pop(consumed)
	}
}

// dispatchMessage hands a response to the waiting exchange
func (t *HostTransport) dispatchMessage(msg *Message) {
	select {
	case t.responseChan <- msg:
	default:
		// Response channel full, drop oldest
		select {
		case <-t.responseChan:
		default:
		}
		select {
		case t.responseChan <- msg:
		default:
		}
	}
}

// Close stops the transport and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan // Wait for read loop to finish
	})
	return err
}

// Reset restarts the sequence at 0x10. The next request tells the device
// that the host restarted.
func (t *HostTransport) Reset() {
	t.exchangeMutex.Lock()
	defer t.exchangeMutex.Unlock()

	atomic.StoreUint32(&t.currentSeq, MessageDest)
	t.drainResponses()

	t.readMutex.Lock()
	t.scanner = newFrameScanner()
	if t.inputBuffer.Available() > 0 {
		t.inputBuffer.Pop(t.inputBuffer.Available())
	}
	t.readMutex.Unlock()
}

// GetCurrentSequence returns the current sequence number (for debugging)
func (t *HostTransport) GetCurrentSequence() uint8 {
	return uint8(atomic.LoadUint32(&t.currentSeq))
}
