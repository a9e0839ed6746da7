package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Operation codes.
const (
	OpConnect     byte = '1'
	OpDisconnect  byte = '2'
	OpSubscribe   byte = '3'
	OpUnsubscribe byte = '4'
)

// Response status bytes.
const (
	StatusOK   byte = '1'
	StatusFail byte = '0'
)

// MaxLineSize bounds one protocol line, newline included.
const MaxLineSize = 4096

const separator = "|"

var (
	// ErrMalformed is returned for a line that does not follow the protocol.
	ErrMalformed = errors.New("wire: malformed message")

	// ErrLineTooLong is returned when a line exceeds MaxLineSize.
	ErrLineTooLong = errors.New("wire: line too long")
)

// OpName returns the lowercase name of an operation.
func OpName(op byte) string {
	switch op {
	case OpConnect:
		return "connect"
	case OpDisconnect:
		return "disconnect"
	case OpSubscribe:
		return "subscribe"
	case OpUnsubscribe:
		return "unsubscribe"
	default:
		return "unknown"
	}
}

// ConnectRequest is the registration message.
type ConnectRequest struct {
	RequestPath  string
	ResponsePath string
	NotifyPath   string
}

// Encode returns the registration line.
func (c ConnectRequest) Encode() string {
	return string(OpConnect) + separator + c.RequestPath + separator + c.ResponsePath + separator + c.NotifyPath + "\n"
}

// ParseConnect parses a registration line without its newline.
func ParseConnect(line string) (ConnectRequest, error) {
	parts := strings.Split(line, separator)
	if len(parts) != 4 || parts[0] != string(OpConnect) {
		return ConnectRequest{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}
	for _, p := range parts[1:] {
		if p == "" {
			return ConnectRequest{}, fmt.Errorf("%w: empty path in %q", ErrMalformed, line)
		}
	}
	return ConnectRequest{
		RequestPath:  parts[1],
		ResponsePath: parts[2],
		NotifyPath:   parts[3],
	}, nil
}

// Request is one message on a client's request channel.
type Request struct {
	Op  byte
	Key string
}

// Encode returns the request line.
func (r Request) Encode() string {
	if r.Op == OpDisconnect {
		return string(OpDisconnect) + "\n"
	}
	return string(r.Op) + separator + r.Key + "\n"
}

// ParseRequest parses a request line without its newline. The op is
// not checked against the known set so that callers can answer unknown
// ops with StatusFail.
func ParseRequest(line string) (Request, error) {
	if line == "" {
		return Request{}, fmt.Errorf("%w: empty request", ErrMalformed)
	}
	op := line[0]
	rest := line[1:]
	switch {
	case rest == "":
		return Request{Op: op}, nil
	case strings.HasPrefix(rest, separator):
		return Request{Op: op, Key: rest[1:]}, nil
	default:
		return Request{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}
}

// ReadLine reads one '\n'-terminated line and returns it without the
// newline. A final line without newline is returned with io.EOF. A line
// longer than MaxLineSize is consumed and reported as ErrLineTooLong.
func ReadLine(r *bufio.Reader) (string, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > MaxLineSize {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			if err != nil {
				return "", err
			}
			return "", ErrLineTooLong
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				return string(buf), io.EOF
			}
			return "", err
		}
		return strings.TrimRight(string(buf[:len(buf)-1]), "\r"), nil
	}
}

// WriteStatus writes a single status byte.
func WriteStatus(w io.Writer, ok bool) error {
	b := StatusFail
	if ok {
		b = StatusOK
	}
	_, err := w.Write([]byte{b})
	return err
}

// ReadStatus reads a single status byte.
func ReadStatus(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	if buf[0] != StatusOK && buf[0] != StatusFail {
		return buf[0], fmt.Errorf("%w: status %q", ErrMalformed, buf[0])
	}
	return buf[0], nil
}
