// Package transport defines the duplex byte-transport contract rto's
// Multiplexer consumes, and ships two reference adapters: inproc (an
// in-process channel pair, for tests and same-binary peers) and unixsocket
// (a length-prefixed stream over a net.Conn, typically a Unix-domain
// socket). The contract is deliberately small: Send, Receive, and a way to
// force a blocked Receive to return.
package transport

import "time"

// Transport is the external send/receive capability a Context consumes. A
// Transport carries whole frames: framing any underlying stream protocol
// needs is the adapter's job, not the caller's.
type Transport interface {
	// Send writes one frame. Concurrent Sends are not required to be
	// supported by the Transport itself — rto's Client and Server
	// serialize their own writes with a shared mutex.
	Send(frame []byte) error

	// Receive blocks for the next inbound frame. A timeout of zero means
	// wait indefinitely; a positive timeout returns a TransportError
	// wrapping rtoerr.ErrTimeout if it elapses first.
	Receive(timeout time.Duration) ([]byte, error)

	// CreateTerminator returns a handle that, when Terminate is called,
	// causes every blocked and future Receive/Send on this Transport to
	// return rtoerr.ErrTerminated. It exists separately from the
	// Transport itself because the multiplexer that owns Receive calls
	// and the Context that decides to shut down are different goroutines.
	CreateTerminator() Terminator
}

// Terminator forces a Transport to stop serving, unblocking any goroutine
// parked in Receive.
type Terminator interface {
	Terminate()
}
