package rto

import (
	"sync"
	"time"

	"github.com/flowtrait/rto/internal/callslot"
	"github.com/flowtrait/rto/internal/metrics"
	"github.com/flowtrait/rto/internal/wire"
	"github.com/flowtrait/rto/rtoerr"
	"github.com/op/go-logging"
)

// Client issues outbound calls: it allocates a call slot per in-flight
// call and matches each inbound response to the caller waiting on it, the
// same correlation shape as go-ethereum's rpc.Client (requestOp keyed by
// id, delivered over a per-call channel), but against a fixed-size slot
// pool instead of an unbounded map.
type Client struct {
	sendMu *sync.Mutex
	send   func([]byte) error

	slots   *callslot.Pool
	timeout time.Duration

	log     *logging.Logger
	metrics *metrics.Metrics

	stopped chan struct{}
}

func newClient(sendMu *sync.Mutex, send func([]byte) error, responses <-chan muxMessage, slotCount int, timeout time.Duration, log *logging.Logger, m *metrics.Metrics) *Client {
	c := &Client{
		sendMu:  sendMu,
		send:    send,
		slots:   callslot.NewPool(slotCount),
		timeout: timeout,
		log:     log,
		metrics: m,
		stopped: make(chan struct{}),
	}
	go c.receiveLoop(responses)
	return c
}

func (c *Client) receiveLoop(responses <-chan muxMessage) {
	defer close(c.stopped)
	for msg := range responses {
		if msg.err != nil {
			c.failAll(msg.err)
			return
		}
		slot := c.slots.BySlotID(msg.packet.Header.Slot)
		if slot == nil {
			if c.log != nil {
				c.log.Errorf("rto: response for unknown call slot %d", msg.packet.Header.Slot)
			}
			continue
		}
		slot.Deliver(callslot.Response{Body: msg.packet.Body})
	}
	// The sub-stream channel closed without an explicit terminal error;
	// treat it the same as one, since no further responses can arrive.
	c.failAll(&rtoerr.TransportError{Operation: "receive", Err: rtoerr.ErrTerminated})
}

func (c *Client) failAll(err error) {
	for _, slot := range c.slots.All() {
		slot.Deliver(callslot.Response{Err: err})
	}
}

// Call sends method on serviceID with args and blocks for the response. It
// fails with a CallTimeoutError if no call slot frees up within the
// configured call timeout (zero means wait indefinitely).
func (c *Client) Call(serviceID uint32, method uint32, args []byte) ([]byte, error) {
	var timeoutCh <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	slot, ok := c.slots.Acquire(timeoutCh)
	if !ok {
		if c.metrics != nil {
			c.metrics.Errors.WithLabelValues("call_timeout").Inc()
		}
		return nil, &rtoerr.CallTimeoutError{ServiceID: serviceID, Method: method}
	}
	defer c.slots.Release(slot)

	if c.metrics != nil {
		c.metrics.SlotsInUse.Inc()
		c.metrics.CallsInFlight.Inc()
		defer c.metrics.SlotsInUse.Dec()
		defer c.metrics.CallsInFlight.Dec()
	}

	header := wire.Header{Slot: wire.RequestSlot(slot.ID), ServiceID: serviceID, Method: method}
	frame := wire.Encode(wire.Packet{Header: header, Body: args})

	c.sendMu.Lock()
	err := c.send(frame)
	c.sendMu.Unlock()
	if err != nil {
		return nil, err
	}

	resp := slot.Wait()
	return resp.Body, resp.Err
}

// Delete sends a release request for serviceID. The caller is not blocked
// on the server's ack: the server answers a DELETE it accepts with a
// header-only response, which a background goroutine waits for before
// recycling the slot. A DELETE the server rejects (an unknown service id)
// gets no response, and its slot is not returned to the pool.
func (c *Client) Delete(serviceID uint32) error {
	slot, ok := c.slots.Acquire(nil)
	if !ok {
		return &rtoerr.CallTimeoutError{ServiceID: serviceID, Method: wire.Delete}
	}

	header := wire.Header{Slot: wire.RequestSlot(slot.ID), ServiceID: serviceID, Method: wire.Delete}
	frame := wire.Encode(wire.Packet{Header: header, Body: nil})

	c.sendMu.Lock()
	err := c.send(frame)
	c.sendMu.Unlock()
	if err != nil {
		c.slots.Release(slot)
		return err
	}

	go func() {
		slot.Wait()
		c.slots.Release(slot)
	}()
	return nil
}

// shutdown waits for the response receiver goroutine to exit, which it
// does once the multiplexer closes the responses sub-stream.
func (c *Client) shutdown() {
	<-c.stopped
}
