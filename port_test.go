package rto

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingDispatch struct{}

func (countingDispatch) DispatchCall(methodID uint32, args []byte) ([]byte, error) {
	return args, nil
}

func TestPortRegisterAssignsSequentialIDs(t *testing.T) {
	p := newPort(nil, nil, nil, nil)

	first := p.register(countingDispatch{})
	second := p.register(countingDispatch{})
	require.Equal(t, ServiceID(0), first)
	require.Equal(t, ServiceID(1), second)
	require.Equal(t, 2, p.RegistrySize())
}

func TestPortDispatchUnknownID(t *testing.T) {
	p := newPort(nil, nil, nil, nil)
	if _, err := p.dispatch(99, 0, nil); err == nil {
		t.Fatalf("dispatch on an unregistered id should fail")
	}
}

func TestPortDeleteRemovesEntry(t *testing.T) {
	p := newPort(nil, nil, nil, nil)
	id := p.register(countingDispatch{})

	if err := p.delete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := p.RegistrySize(); got != 0 {
		t.Fatalf("RegistrySize() after delete = %d, want 0", got)
	}
	if err := p.delete(id); err == nil {
		t.Fatalf("deleting an already-deleted id should fail")
	}
}

func TestPortRegisterConcurrentUniqueIDs(t *testing.T) {
	p := newPort(nil, nil, nil, nil)

	const n = 200
	ids := make(chan ServiceID, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ids <- p.register(countingDispatch{})
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[ServiceID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate service id %d assigned under concurrent registration", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d distinct ids, want %d", len(seen), n)
	}
}
