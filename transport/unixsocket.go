package transport

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/flowtrait/rto/rtoerr"
)

// maxFrameSize caps a single length-prefixed frame; the largest payload the
// testable-properties scenarios exercise is well under 1MiB, so this just
// guards against a corrupted length prefix turning into an unbounded
// allocation.
const maxFrameSize = 64 << 20

// UnixSocketTransport frames messages over a stream-oriented net.Conn with
// a 4-byte big-endian length prefix. Unlike a datagram socket, a stream
// socket has no message boundary of its own, so the adapter has to supply
// one.
type UnixSocketTransport struct {
	conn   net.Conn
	done   chan struct{}
	once   sync.Once
	readMu sync.Mutex
}

// ListenUnix opens a Unix-domain socket listener at path, removing any
// stale socket file an unclean shutdown left behind.
func ListenUnix(path string) (net.Listener, error) {
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, &rtoerr.TransportError{Operation: "listen", Err: err, Details: path}
	}
	return l, nil
}

// DialUnix connects to a listener created by ListenUnix.
func DialUnix(path string) (*UnixSocketTransport, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, &rtoerr.TransportError{Operation: "dial", Err: err, Details: path}
	}
	return NewUnixSocketTransport(conn), nil
}

// NewUnixSocketTransport wraps an already-established connection (typically
// one returned by net.Listener.Accept) as a Transport.
func NewUnixSocketTransport(conn net.Conn) *UnixSocketTransport {
	tuneBuffers(conn, 1<<20)
	return &UnixSocketTransport{conn: conn, done: make(chan struct{})}
}

// Send implements Transport.
func (t *UnixSocketTransport) Send(frame []byte) error {
	fail := func(err error) error {
		select {
		case <-t.done:
			err = rtoerr.ErrTerminated
		default:
		}
		return &rtoerr.TransportError{Operation: "send", Err: err}
	}
	select {
	case <-t.done:
		return fail(nil)
	default:
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(frame)))
	if _, err := t.conn.Write(prefix[:]); err != nil {
		return fail(err)
	}
	if _, err := t.conn.Write(frame); err != nil {
		return fail(err)
	}
	return nil
}

// Receive implements Transport.
func (t *UnixSocketTransport) Receive(timeout time.Duration) ([]byte, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	if timeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(timeout))
		defer t.conn.SetReadDeadline(time.Time{})
	} else {
		_ = t.conn.SetReadDeadline(time.Time{})
	}

	var prefix [4]byte
	if _, err := io.ReadFull(t.conn, prefix[:]); err != nil {
		return nil, t.classify(err)
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > maxFrameSize {
		return nil, &rtoerr.ProtocolError{Operation: "receive", Details: "frame length exceeds maxFrameSize"}
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		return nil, t.classify(err)
	}
	return buf, nil
}

func (t *UnixSocketTransport) classify(err error) error {
	select {
	case <-t.done:
		return &rtoerr.TransportError{Operation: "receive", Err: rtoerr.ErrTerminated}
	default:
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &rtoerr.TransportError{Operation: "receive", Err: rtoerr.ErrTimeout}
	}
	return &rtoerr.TransportError{Operation: "receive", Err: rtoerr.ErrTerminated, Details: err.Error()}
}

// CreateTerminator implements Transport.
func (t *UnixSocketTransport) CreateTerminator() Terminator {
	return &unixTerminator{t: t}
}

type unixTerminator struct{ t *UnixSocketTransport }

func (term *unixTerminator) Terminate() {
	term.t.once.Do(func() {
		close(term.t.done)
		_ = term.t.conn.Close()
	})
}
