package transport

import (
	"sync"
	"time"

	"github.com/flowtrait/rto/rtoerr"
)

// inprocTransport is a channel-backed Transport linking two same-process
// peers without touching the network stack, used by rto's own tests to
// drive the Transport interface against an in-memory fake instead of a
// real socket.
type inprocTransport struct {
	out  chan<- []byte
	in   <-chan []byte
	done chan struct{}
	once sync.Once
}

// NewInprocPair returns two Transports such that a Send on one is a
// Receive on the other, with buffer slots of frames queued in each
// direction before Send blocks.
func NewInprocPair(buffer int) (a, b Transport) {
	ab := make(chan []byte, buffer)
	ba := make(chan []byte, buffer)
	ta := &inprocTransport{out: ab, in: ba, done: make(chan struct{})}
	tb := &inprocTransport{out: ba, in: ab, done: make(chan struct{})}
	return ta, tb
}

func (t *inprocTransport) Send(frame []byte) error {
	select {
	case <-t.done:
		return &rtoerr.TransportError{Operation: "send", Err: rtoerr.ErrTerminated}
	default:
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	select {
	case t.out <- cp:
		return nil
	case <-t.done:
		return &rtoerr.TransportError{Operation: "send", Err: rtoerr.ErrTerminated}
	}
}

func (t *inprocTransport) Receive(timeout time.Duration) ([]byte, error) {
	select {
	case <-t.done:
		return nil, &rtoerr.TransportError{Operation: "receive", Err: rtoerr.ErrTerminated}
	default:
	}
	if timeout <= 0 {
		select {
		case f := <-t.in:
			return f, nil
		case <-t.done:
			return nil, &rtoerr.TransportError{Operation: "receive", Err: rtoerr.ErrTerminated}
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-t.in:
		return f, nil
	case <-t.done:
		return nil, &rtoerr.TransportError{Operation: "receive", Err: rtoerr.ErrTerminated}
	case <-timer.C:
		return nil, &rtoerr.TransportError{Operation: "receive", Err: rtoerr.ErrTimeout}
	}
}

func (t *inprocTransport) CreateTerminator() Terminator {
	return &inprocTerminator{t: t}
}

type inprocTerminator struct{ t *inprocTransport }

func (term *inprocTerminator) Terminate() {
	term.t.once.Do(func() { close(term.t.done) })
}
