package protocol

import "sync/atomic"

// RequestHandler handles one request payload and appends the response
// payload to dst
type RequestHandler func(payload []byte, dst []byte) []byte

// Transport handles the device side of the link.
// Every accepted request is answered with a frame carrying the same seq.
// A repeated seq is answered from the cached response without calling the
// handler again, so host retries never dispatch a command twice.
type Transport struct {
	scanner      frameScanner
	expectedSeq  uint32 // atomic uint8 stored as uint32
	output       OutputBuffer
	handler      RequestHandler
	lastSeq      uint8
	lastResponse []byte
	hasLast      bool
	scratch      [MessagePayloadMax]byte
	requests     uint32
	duplicates   uint32

	resetCallback func() // Called when host reset is detected
	flushCallback func() // Called to flush a response to the wire
}

// NewTransport creates a new Transport instance
func NewTransport(output OutputBuffer, handler RequestHandler) *Transport {
	return &Transport{
		scanner:      newFrameScanner(),
		expectedSeq:  MessageDest,
		output:       output,
		handler:      handler,
		lastResponse: make([]byte, 0, MessagePayloadMax),
	}
}

// Receive processes incoming data from the input buffer.
// Consumed bytes are popped; a trailing partial frame stays in input.
// Bytes appended to input while frames are handled stay for the next call.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	rest := t.scanner.scan(data, func(seq uint8, payload []byte, _ uint16) {
		t.handleFrame(seq, payload)
	})

	consumed := len(data) - len(rest)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) handleFrame(seq uint8, payload []byte) {
	expected := uint8(atomic.LoadUint32(&t.expectedSeq))

	// Host restarted its sequence
	if seq == MessageDest && expected != MessageDest {
		t.resetState()
		expected = MessageDest
		if t.resetCallback != nil {
			t.resetCallback()
		}
	}

	switch {
	case seq == expected:
		atomic.AddUint32(&t.requests, 1)
		resp := t.scratch[:0]
		if t.handler != nil {
			resp = t.handler(payload, resp)
		}
		if len(resp) > MessagePayloadMax {
			resp = resp[:MessagePayloadMax]
		}
		t.lastResponse = append(t.lastResponse[:0], resp...)
		t.lastSeq = seq
		t.hasLast = true
		atomic.StoreUint32(&t.expectedSeq, uint32(NextSequence(seq)))
		t.send(seq, t.lastResponse)

	case t.hasLast && seq == t.lastSeq:
		// Retransmitted request: the response was lost
		atomic.AddUint32(&t.duplicates, 1)
		t.send(seq, t.lastResponse)

	default:
		// Out of order: answer with an empty frame carrying the expected seq
		t.send(expected, nil)
	}
}

func (t *Transport) send(seq uint8, payload []byte) {
	if err := EncodeFrame(t.output, seq, payload); err != nil {
		return
	}
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

func (t *Transport) resetState() {
	atomic.StoreUint32(&t.expectedSeq, MessageDest)
	t.hasLast = false
	t.lastResponse = t.lastResponse[:0]
}

// Reset resets the transport state (useful after USB disconnect/reconnect)
func (t *Transport) Reset() {
	t.scanner = newFrameScanner()
	t.resetState()

	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// ExpectedSequence returns the next sequence the transport will accept
func (t *Transport) ExpectedSequence() uint8 {
	return uint8(atomic.LoadUint32(&t.expectedSeq))
}

// Stats returns the number of handled requests and answered retransmits
func (t *Transport) Stats() (requests, duplicates uint32) {
	return atomic.LoadUint32(&t.requests), atomic.LoadUint32(&t.duplicates)
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback to immediately flush responses to USB
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}
