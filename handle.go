package rto

import (
	"fmt"
	"runtime"
	"sync"
)

// ServiceID identifies one exported service object within the Port that
// exported it, for as long as that export is live.
type ServiceID uint32

// HandleToExchange is the wire form of a service reference: just the id,
// since which Port it names is implicit in who sent it (the sender's
// registry, from the receiver's point of view).
type HandleToExchange struct {
	ID uint32
}

// Dispatch is the capability generated skeleton code provides for an
// exported service object: given a method id and its serialized arguments,
// invoke the matching method and return the serialized result.
type Dispatch interface {
	DispatchCall(methodID uint32, args []byte) ([]byte, error)
}

// PortBinder is implemented by a Dispatch that needs to export further
// handles from within a dispatched call (the way HelloSkeleton in
// examples/ping does to return a nested service reference). NewContext
// calls BindPort before registering the Context's initial service.
type PortBinder interface {
	BindPort(port *Port)
}

// UnknownMethodError is what a generated skeleton returns when asked to
// dispatch a method id it doesn't recognize.
type UnknownMethodError struct {
	MethodID uint32
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("rto: unknown method id %d", e.MethodID)
}

// ExportHandle registers obj with port and returns the wire-form handle a
// generated skeleton embeds in an argument or return value to hand the
// object to the peer.
func ExportHandle(port *Port, obj Dispatch) HandleToExchange {
	return HandleToExchange{ID: uint32(port.register(obj))}
}

// ImportHandle builds the RemoteObject a generated proxy embeds to stand
// in for the service the peer identified by h.
//
// A finalizer is registered as a backstop that calls Close if the caller
// never does; it is not the primary release mechanism; Go has no
// destructors, so callers are expected to Close proxies explicitly the way
// every other closeable resource in this codebase is closed.
func ImportHandle(port *Port, h HandleToExchange) *RemoteObject {
	r := &RemoteObject{id: ServiceID(h.ID), port: port}
	runtime.SetFinalizer(r, func(r *RemoteObject) { r.Close() })
	return r
}

// RemoteObject is the non-generated half of a generated proxy: it holds
// the imported handle, the Port it was imported through, and implements
// the release-on-close protocol every generated proxy type embeds.
type RemoteObject struct {
	id   ServiceID
	port *Port
	once sync.Once
}

// Port returns the Port this proxy was imported through, for generated
// proxy methods that need to import a nested handle returned by a call.
func (r *RemoteObject) Port() *Port { return r.port }

// Call invokes method on the remote object, passing already-serialized
// args, and returns the already-serialized result.
func (r *RemoteObject) Call(method uint32, args []byte) ([]byte, error) {
	return r.port.callRemote(r.id, method, args)
}

// Close releases the remote handle, asking the exporting peer to drop its
// registry entry. Idempotent; safe to call more than once.
func (r *RemoteObject) Close() {
	r.once.Do(func() {
		runtime.SetFinalizer(r, nil)
		r.port.requestDelete(r.id)
	})
}

// EncodeError is a small helper generated skeletons use for methods whose
// only return value is an error: an empty body means nil, any non-empty
// body is the error's message. Methods that also return data encode both
// with the configured Codec instead.
func EncodeError(err error) ([]byte, error) {
	if err == nil {
		return nil, nil
	}
	return []byte(err.Error()), nil
}

// DecodeError is the inverse of EncodeError.
func DecodeError(body []byte) error {
	if len(body) == 0 {
		return nil
	}
	return fmt.Errorf("%s", body)
}
