package protocol

import (
	"bytes"
	"io"
	"time"

	"github.com/google/uuid"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// NewID returns a fresh, opaque message id.
func NewID() string {
	return uuid.NewString()
}

// NowMillis returns the current time as milliseconds since the epoch,
// the unit spec.md's Message.timestamp field is defined in.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// New builds a message with a fresh id and the current timestamp.
func New(t Type, payload any) *Message {
	return &Message{
		ID:        NewID(),
		Type:      t,
		Timestamp: NowMillis(),
		Payload:   payload,
	}
}

// Reply builds a message that correlates to requestID (same id as the
// request), used for AUTH_RESPONSE and PONG replies
func Reply(requestID string, t Type, payload any) *Message {
	return &Message{
		ID:        requestID,
		Type:      t,
		Timestamp: NowMillis(),
		Payload:   payload,
	}
}

// Split is a bufio.SplitFunc-compatible newline splitter with the same
// per-line rules as FrameReader: it trims surrounding whitespace, skips
// empty lines, and fails with ErrFrameTooLarge past maxLine. Unlike
// FrameReader, it returns a final line left unterminated at EOF as a
// token instead of dropping it. A bufio.Scanner built from it can
// replace FrameReader wherever a caller already owns a Scanner-based
// read loop
// (mirroring the teacher's own carry-over buffer pattern, generalized
// to the bufio.SplitFunc shape instead of a bespoke reader type).
func Split(maxLine int) func(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
			line := bytes.TrimSpace(data[:idx])
			if len(line) == 0 {
				return idx + 1, nil, nil
			}
			return idx + 1, line, nil
		}
		if len(data) > maxLine {
			return 0, nil, ErrFrameTooLarge
		}
		if atEOF && len(data) > 0 {
			line := bytes.TrimSpace(data)
			if len(line) == 0 {
				return len(data), nil, nil
			}
			return len(data), line, nil
		}
		return 0, nil, nil
	}
}
