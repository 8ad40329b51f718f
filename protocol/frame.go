package protocol

// frameScanner extracts frames from a byte stream.
// On any framing error it drops out of sync and skips to the next sync byte.
type frameScanner struct {
	synchronized bool
}

func newFrameScanner() frameScanner {
	return frameScanner{synchronized: true}
}

// scan calls emit for every complete, valid frame at the front of data and
// returns the unconsumed remainder (a partial frame, or nothing).
// The payload passed to emit aliases data.
func (s *frameScanner) scan(data []byte, emit func(seq uint8, payload []byte, crc uint16)) []byte {
	for len(data) > 0 {
		if !s.synchronized {
			// Look for sync byte to resynchronize
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				return nil
			}
			data = data[syncPos+1:]
			s.synchronized = true
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			s.synchronized = false
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			s.synchronized = false
			continue
		}

		// Wait for full message
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			s.synchronized = false
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			s.synchronized = false
			continue
		}

		emit(seq, data[MessageHeaderSize:msgLen-MessageTrailerSize], frameCRC)
		data = data[msgLen:]
	}
	return data
}

// EncodeFrame writes one complete frame carrying payload to out
func EncodeFrame(out OutputBuffer, seq uint8, payload []byte) error {
	if len(payload) > MessagePayloadMax {
		return ErrFrameTooLong
	}
	msgLen := MessageLengthMin + len(payload)

	var buf [MessageLengthMax]byte
	frame := append(buf[:0], uint8(msgLen), seq)
	frame = append(frame, payload...)
	frame = appendTrailer(frame)

	out.Output(frame)
	return nil
}

// AppendFrame appends one complete frame to dst
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > MessagePayloadMax {
		return dst, ErrFrameTooLong
	}
	start := len(dst)
	dst = append(dst, uint8(MessageLengthMin+len(payload)), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc&0xFF), MessageValueSync), nil
}
