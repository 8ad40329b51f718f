package core

import "io"

// ResponseMax is the capacity of a Response backing buffer.
// The longest payload is well under 64 bytes.
const ResponseMax = 96

// Status is the outcome of one dispatch reported to the caller
type Status struct {
	Command Command // Decoded command of this dispatch
	Speed   int     // VehicleSpeed after the transition
}

// AppendJSON appends the fixed-schema status payload:
//
//	{"status":1,"command":"<ordinal>","vehicle_speed":"<speed>"}
//
// Built by hand so the firmware does not pull in fmt or encoding/json.
func (s Status) AppendJSON(dst []byte) []byte {
	dst = append(dst, `{"status":1,"command":"`...)
	dst = appendInt(dst, int(s.Command))
	dst = append(dst, `","vehicle_speed":"`...)
	dst = appendInt(dst, s.Speed)
	dst = append(dst, `"}`...)
	return dst
}

// String returns the status payload
func (s Status) String() string {
	var buf [ResponseMax]byte
	return string(s.AppendJSON(buf[:0]))
}

// Response is a single-shot status payload.
// It has one owner and is read exactly once: reading to EOF or calling
// Close zeroes the backing buffer, so stale content can never leak into a
// later read.
type Response struct {
	buf [ResponseMax]byte
	n   int // Payload length
	pos int // Read position
}

// NewResponse renders a status into a fresh Response
func NewResponse(s Status) *Response {
	r := &Response{}
	r.n = len(s.AppendJSON(r.buf[:0]))
	return r
}

// Len returns the number of unread bytes
func (r *Response) Len() int {
	return r.n - r.pos
}

// Bytes returns the unread part of the payload without consuming it.
// The slice is only valid until the next Read or Close.
func (r *Response) Bytes() []byte {
	return r.buf[r.pos:r.n]
}

// Read implements io.Reader
func (r *Response) Read(p []byte) (int, error) {
	if r.pos >= r.n {
		r.clear()
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.pos:r.n])
	r.pos += n
	if r.pos >= r.n {
		r.clear()
	}
	return n, nil
}

// WriteTo implements io.WriterTo so io.Copy drains the payload in one write
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	if r.pos >= r.n {
		r.clear()
		return 0, nil
	}
	n, err := w.Write(r.buf[r.pos:r.n])
	r.pos += n
	if r.pos >= r.n {
		r.clear()
	}
	return int64(n), err
}

// Close releases the payload. Safe to call more than once.
func (r *Response) Close() error {
	r.clear()
	return nil
}

func (r *Response) clear() {
	for i := range r.buf[:r.n] {
		r.buf[i] = 0
	}
	r.n = 0
	r.pos = 0
}
