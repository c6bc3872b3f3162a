// Package rtoerr defines the typed error values rto returns, so callers can
// use errors.As/errors.Is instead of matching on message text.
package rtoerr

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by TransportError; test with errors.Is.
var (
	ErrTimeout    = errors.New("rto: timeout")
	ErrTerminated = errors.New("rto: transport terminated")
)

// TransportError reports a failure from the Transport adapter: dial/listen
// setup, a send, or a receive.
type TransportError struct {
	Operation string
	Err       error
	Details   string
}

func (e *TransportError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("rto: transport %s: %v (%s)", e.Operation, e.Err, e.Details)
	}
	return fmt.Sprintf("rto: transport %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiring rather than
// termination or a lower-level I/O error.
func (e *TransportError) Timeout() bool { return errors.Is(e.Err, ErrTimeout) }

// ProtocolError reports a wire-level violation: an unknown service id or a
// malformed frame (too short for a header, or a length prefix over the
// frame size limit). An unknown method id is reported by the skeleton
// itself (rto.UnknownMethodError), not through this type.
type ProtocolError struct {
	Operation string
	Details   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("rto: protocol violation during %s: %s", e.Operation, e.Details)
}

// CallTimeoutError is returned by Client.Call when no call slot becomes
// available within the configured call timeout.
type CallTimeoutError struct {
	ServiceID uint32
	Method    uint32
}

func (e *CallTimeoutError) Error() string {
	return fmt.Sprintf("rto: timed out waiting for a free call slot (service=%d method=%d)", e.ServiceID, e.Method)
}

// CodecError wraps a Marshal/Unmarshal failure with the operation that
// triggered it.
type CodecError struct {
	Operation string
	Err       error
}

func (e *CodecError) Error() string { return fmt.Sprintf("rto: codec %s: %v", e.Operation, e.Err) }
func (e *CodecError) Unwrap() error { return e.Err }
