package rto

import "testing"

type echoDispatch struct{}

func (echoDispatch) DispatchCall(methodID uint32, args []byte) ([]byte, error) { return args, nil }

func TestExportHandleAssignsPortRegistryID(t *testing.T) {
	p := newPort(nil, nil, nil, nil)
	h := ExportHandle(p, echoDispatch{})
	if h.ID != 0 {
		t.Fatalf("first ExportHandle id = %d, want 0", h.ID)
	}
	if p.RegistrySize() != 1 {
		t.Fatalf("RegistrySize() = %d, want 1", p.RegistrySize())
	}
}

func TestImportHandleBindsPort(t *testing.T) {
	p := newPort(nil, nil, nil, nil)
	r := ImportHandle(p, HandleToExchange{ID: 5})
	if r.Port() != p {
		t.Fatalf("ImportHandle's RemoteObject.Port() did not return the importing Port")
	}
	if r.id != 5 {
		t.Fatalf("RemoteObject id = %d, want 5", r.id)
	}
}

func TestEncodeDecodeErrorRoundTrip(t *testing.T) {
	body, err := EncodeError(nil)
	if err != nil || body != nil {
		t.Fatalf("EncodeError(nil) = %v, %v, want nil, nil", body, err)
	}
	if got := DecodeError(body); got != nil {
		t.Fatalf("DecodeError(nil body) = %v, want nil", got)
	}

	body, err = EncodeError(&UnknownMethodError{MethodID: 3})
	if err != nil {
		t.Fatalf("EncodeError: %v", err)
	}
	decoded := DecodeError(body)
	if decoded == nil || decoded.Error() != (&UnknownMethodError{MethodID: 3}).Error() {
		t.Fatalf("DecodeError() = %v, want the original error's message", decoded)
	}
}
