package rto

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/flowtrait/rto/internal/metrics"
	"github.com/flowtrait/rto/rtoerr"
	"github.com/op/go-logging"
)

// registryEntry is one exported service object.
type registryEntry struct {
	obj Dispatch
}

// Port is the per-Context registry of exported service objects. It routes
// inbound dispatch/delete requests to the right entry and routes outbound
// calls made against a RemoteObject to the Client. The registry map itself
// is guarded by an RWMutex rather than a plain Mutex: reads (dispatch) far
// outnumber writes (register/delete) once a connection is steady-state.
type Port struct {
	mu     sync.RWMutex
	nextID uint32
	entries map[ServiceID]*registryEntry

	client     *Client
	terminated int32

	codec   Codec
	log     *logging.Logger
	metrics *metrics.Metrics
}

func newPort(client *Client, c Codec, log *logging.Logger, m *metrics.Metrics) *Port {
	return &Port{
		entries: make(map[ServiceID]*registryEntry),
		client:  client,
		codec:   c,
		log:     log,
		metrics: m,
	}
}

// Codec returns the Codec this Context was configured with (WithCodec),
// for generated proxy/skeleton code to marshal and unmarshal values
// embedded in call arguments and return values.
func (p *Port) Codec() Codec { return p.codec }

// register inserts obj into the registry and assigns it a fresh id. The
// first call on a freshly built Port always returns id 0, which is how a
// Context's initial service ends up at the well-known handle.
func (p *Port) register(obj Dispatch) ServiceID {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := ServiceID(atomic.AddUint32(&p.nextID, 1) - 1)
	p.entries[id] = &registryEntry{obj: obj}
	if p.metrics != nil {
		p.metrics.RegistrySize.Set(float64(len(p.entries)))
	}
	if p.log != nil {
		p.log.Debugf("rto: registered service %d", id)
	}
	return id
}

// dispatch looks up id and invokes method with args, for the Server's
// worker to call on an inbound request.
func (p *Port) dispatch(id ServiceID, method uint32, args []byte) ([]byte, error) {
	p.mu.RLock()
	entry, ok := p.entries[id]
	p.mu.RUnlock()
	if !ok {
		return nil, &rtoerr.ProtocolError{Operation: "dispatch", Details: unknownServiceDetail(id)}
	}
	return entry.obj.DispatchCall(method, args)
}

// delete removes id from the registry, for the Server's worker to call
// when it sees an inbound DELETE request.
func (p *Port) delete(id ServiceID) error {
	p.mu.Lock()
	_, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
	}
	size := len(p.entries)
	p.mu.Unlock()

	if !ok {
		return &rtoerr.ProtocolError{Operation: "delete", Details: unknownServiceDetail(id)}
	}
	if p.metrics != nil {
		p.metrics.RegistrySize.Set(float64(size))
	}
	if p.log != nil {
		p.log.Debugf("rto: deleted service %d", id)
	}
	return nil
}

// callRemote sends a call for id through this Port's Client, for a
// RemoteObject's Call method.
func (p *Port) callRemote(id ServiceID, method uint32, args []byte) ([]byte, error) {
	return p.client.Call(uint32(id), method, args)
}

// requestDelete asks the peer to drop its registry entry for id, unless
// this Port has already been told it is terminating (in which case the
// transport is going away anyway and there is nothing to send to).
func (p *Port) requestDelete(id ServiceID) {
	if atomic.LoadInt32(&p.terminated) != 0 {
		return
	}
	if err := p.client.Delete(uint32(id)); err != nil && p.log != nil {
		p.log.Warningf("rto: delete request for service %d failed: %v", id, err)
	}
}

// RegistrySize reports how many service objects are currently exported.
// Mainly useful for tests observing that a delete request landed.
func (p *Port) RegistrySize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// terminate marks the Port as shutting down so that proxies dropped after
// this point don't race a delete request against transport teardown.
func (p *Port) terminate() {
	atomic.StoreInt32(&p.terminated, 1)
}

func unknownServiceDetail(id ServiceID) string {
	return fmt.Sprintf("unknown service id %d", uint32(id))
}
