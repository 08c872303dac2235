package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrProtocol    = errors.New("protocol error")
)

// Operations reported in ProtocolError.Op.
const (
	OpPublish  = "publish"
	OpFinalize = "finalize"
)

// ProtocolError is a terminal failure of a negotiate or finalize call: the
// server reported an error, answered with a non-success status, or sent a
// response the client cannot use. It matches ErrProtocol with errors.Is.
type ProtocolError struct {
	Op         string
	StatusCode int
	Message    string
	// ServerReported is set when Message is the server's own error text.
	ServerReported bool
}

func (e *ProtocolError) Error() string {
	if e.ServerReported {
		return e.Message
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}
