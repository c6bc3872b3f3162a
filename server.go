package rto

import (
	"fmt"
	"sync"
	"time"

	"github.com/flowtrait/rto/internal/metrics"
	"github.com/flowtrait/rto/internal/wire"
	"github.com/op/go-logging"
)

// workerAcquireTimeout bounds how long dispatchLoop waits for an idle
// worker token before giving up. Exceeding it means the worker pool is
// undersized for the offered load; there is no graceful degradation for
// that in this version, so it is treated as an unrecoverable configuration
// error rather than silently queuing requests without bound.
const workerAcquireTimeout = 30 * time.Second

// Server consumes the inbound request sub-stream and dispatches each call
// to the Port's registry using a fixed-size worker pool, so one slow
// method doesn't stall every other inbound call.
type Server struct {
	port   *Port
	sendMu *sync.Mutex
	send   func([]byte) error

	tokens chan struct{}

	log     *logging.Logger
	metrics *metrics.Metrics

	stopped chan struct{}
}

func newServer(port *Port, sendMu *sync.Mutex, send func([]byte) error, workerCount int, log *logging.Logger, m *metrics.Metrics, requests <-chan muxMessage) *Server {
	s := &Server{
		port:    port,
		sendMu:  sendMu,
		send:    send,
		tokens:  make(chan struct{}, workerCount),
		log:     log,
		metrics: m,
		stopped: make(chan struct{}),
	}
	for i := 0; i < workerCount; i++ {
		s.tokens <- struct{}{}
	}
	go s.dispatchLoop(requests)
	return s
}

func (s *Server) dispatchLoop(requests <-chan muxMessage) {
	defer close(s.stopped)
	var wg sync.WaitGroup
	for msg := range requests {
		if msg.err != nil {
			break
		}
		select {
		case <-s.tokens:
		case <-time.After(workerAcquireTimeout):
			panic("rto: server worker pool exhausted past its acquire timeout; configure more server threads")
		}
		wg.Add(1)
		go func(pkt wire.Packet) {
			defer wg.Done()
			defer func() { s.tokens <- struct{}{} }()
			s.handle(pkt)
		}(msg.packet)
	}
	wg.Wait()
}

func (s *Server) handle(pkt wire.Packet) {
	start := time.Now()
	correlation := pkt.Header.CorrelationID()

	var (
		body []byte
		err  error
	)
	if pkt.Header.Method == wire.Delete {
		err = s.port.delete(ServiceID(pkt.Header.ServiceID))
	} else {
		body, err = s.port.dispatch(ServiceID(pkt.Header.ServiceID), pkt.Header.Method, pkt.Body)
	}
	if err != nil {
		// There is no structured error channel on the wire; a protocol
		// violation like an unknown service or method id is logged and
		// the response is dropped rather than risking the caller
		// misinterpreting garbage as a successful reply.
		if s.log != nil {
			s.log.Errorf("rto: %v", err)
		}
		if s.metrics != nil {
			s.metrics.Errors.WithLabelValues("protocol_violation").Inc()
		}
		return
	}

	resp := wire.Packet{Header: wire.Header{Slot: correlation}, Body: body}
	frame := wire.Encode(resp)

	s.sendMu.Lock()
	sendErr := s.send(frame)
	s.sendMu.Unlock()
	if sendErr != nil && s.log != nil {
		s.log.Errorf("rto: sending response failed: %v", sendErr)
	}

	if s.metrics != nil {
		label := fmt.Sprintf("%d", pkt.Header.ServiceID)
		method := fmt.Sprintf("%d", pkt.Header.Method)
		s.metrics.DispatchLatency.WithLabelValues(label, method).Observe(time.Since(start).Seconds())
	}
}

// shutdown waits for the dispatch loop and every in-flight worker it
// started to finish.
func (s *Server) shutdown() {
	<-s.stopped
}
