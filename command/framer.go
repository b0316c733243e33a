package command

import (
	"bytes"
	"fmt"

	"github.com/gerickson-labs/hlxgo/buffer"
)

// frameMinimum is the smallest possible complete frame: one opening
// bracket, one payload byte, one closing bracket — per §4.6's
// "at minimum, one '[', one 'payload' character, and one ']'".
const frameMinimum = 3

// ErrorResponse is the literal frame sent when no registered regex
// matches an inbound request (§6.2).
var ErrorResponse = []byte("(ERROR)")

// scanFrame finds the earliest complete bracket-delimited frame in buf,
// where the closing bracket is whichever of ']' or ')' occurs first — the
// Command Manager is shared between a server role scanning '[' ... ']'
// request frames and a client role scanning '(' ... ')' response/
// notification frames (§6.2: "]" is the dispatch boundary for requests;
// the same scan generalizes to ")" for responses). It returns the frame
// including both delimiters, and the unconsumed remainder.
func scanFrame(buf []byte) (frame, rest []byte, ok bool) {
	if len(buf) < frameMinimum {
		return nil, buf, false
	}
	idxBracket := bytes.IndexByte(buf, ']')
	idxParen := bytes.IndexByte(buf, ')')
	end := -1
	switch {
	case idxBracket < 0 && idxParen < 0:
		return nil, buf, false
	case idxBracket < 0:
		end = idxParen
	case idxParen < 0:
		end = idxBracket
	case idxBracket < idxParen:
		end = idxBracket
	default:
		end = idxParen
	}
	if end+1 < frameMinimum {
		// A terminator before the third byte can't close a well-formed
		// frame; it is consumed and returned as a frame all the same, so
		// the caller moves past the junk instead of looping on it.
		return buf[:end+1], buf[end+1:], true
	}
	return buf[:end+1], buf[end+1:], true
}

// payload strips the frame's opening and closing delimiter, returning the
// bytes regexes are matched against.
func payload(frame []byte) []byte {
	if len(frame) < 2 {
		return nil
	}
	return frame[1 : len(frame)-1]
}

// WrapRequest encloses body in the request delimiter pair, e.g.
// WrapRequest("VO3R-25") -> "[VO3R-25]".
func WrapRequest(body string) []byte {
	return []byte(fmt.Sprintf("[%s]", body))
}

// WrapResponse encloses body in the response/notification delimiter pair,
// e.g. WrapResponse("VO3R-25") -> "(VO3R-25)".
func WrapResponse(body string) []byte {
	return []byte(fmt.Sprintf("(%s)", body))
}

// frameSource accumulates inbound bytes and yields complete frames as they
// close, carrying partial frames across calls the way the Connection
// Buffer does for a raw socket read.
type frameSource struct {
	buf *buffer.Buffer
}

func newFrameSource() *frameSource {
	return &frameSource{buf: buffer.New(256)}
}

// Feed appends data and returns every complete frame now available, in
// arrival order, leaving any trailing partial frame buffered.
func (s *frameSource) Feed(data []byte) ([][]byte, error) {
	if err := s.buf.Put(data, len(data)); err != nil {
		return nil, err
	}
	var frames [][]byte
	for {
		raw := s.buf.Bytes()
		frame, _, ok := scanFrame(raw)
		if !ok {
			break
		}
		consumed := make([]byte, len(frame))
		if _, err := s.buf.Get(consumed, len(frame)); err != nil {
			return frames, err
		}
		frames = append(frames, consumed)
	}
	return frames, nil
}
