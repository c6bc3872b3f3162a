package rto

// NullService is the Dispatch used at id 0 when a Context has nothing of
// its own to export: every method id is a protocol violation, since no
// interface is exposed through it.
type NullService struct{}

// DispatchCall implements Dispatch.
func (NullService) DispatchCall(methodID uint32, args []byte) ([]byte, error) {
	return nil, &UnknownMethodError{MethodID: methodID}
}
