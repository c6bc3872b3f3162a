package rto

import (
	"sync"

	"github.com/flowtrait/rto/internal/wire"
	"github.com/flowtrait/rto/rtoerr"
	"github.com/flowtrait/rto/transport"
	"github.com/op/go-logging"
)

// muxMessage is what the multiplexer hands to the Client/Server: either a
// decoded packet belonging to that sub-stream, or the terminal error that
// ended the reader (after which no more messages follow on either
// sub-stream).
type muxMessage struct {
	packet wire.Packet
	err    error
}

// multiplexer runs the single background reader a Transport supports and
// de-interleaves inbound frames into request and response sub-streams by
// inspecting each header's slot field, so Client and Server never have to
// share a Receive call.
type multiplexer struct {
	t          transport.Transport
	terminator transport.Terminator

	requests  chan muxMessage
	responses chan muxMessage

	log *logging.Logger
	wg  sync.WaitGroup
}

func newMultiplexer(t transport.Transport, bufSize int, log *logging.Logger) *multiplexer {
	m := &multiplexer{
		t:          t,
		terminator: t.CreateTerminator(),
		requests:   make(chan muxMessage, bufSize),
		responses:  make(chan muxMessage, bufSize),
		log:        log,
	}
	m.wg.Add(1)
	go m.readLoop()
	return m
}

func (m *multiplexer) readLoop() {
	defer m.wg.Done()
	for {
		frame, err := m.t.Receive(0)
		if err != nil {
			// A timeout at this layer is unexpected (Receive was asked to
			// block indefinitely) and, like any other receive failure,
			// ends the connection.
			m.fail(err)
			return
		}
		pkt, err := wire.Decode(frame)
		if err != nil {
			m.fail(&rtoerr.ProtocolError{Operation: "decode", Details: err.Error()})
			return
		}
		if pkt.Header.IsRequest() {
			m.requests <- muxMessage{packet: pkt}
		} else {
			m.responses <- muxMessage{packet: pkt}
		}
	}
}

func (m *multiplexer) fail(err error) {
	if m.log != nil {
		m.log.Errorf("rto: multiplexer stopped: %v", err)
	}
	m.requests <- muxMessage{err: err}
	m.responses <- muxMessage{err: err}
	close(m.requests)
	close(m.responses)
}

// shutdown terminates the transport and waits for the reader goroutine to
// exit. This must run before the Client and Server are shut down, since
// they read from the channels this reader produces.
func (m *multiplexer) shutdown() {
	m.terminator.Terminate()
	m.wg.Wait()
}
