package rto_test

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/flowtrait/rto"
	"github.com/flowtrait/rto/examples/ping"
	"github.com/flowtrait/rto/transport"
)

type pingImpl struct{}

func (p pingImpl) Ping() error { return nil }

// S1. Single round trip: A exports Ping as initial, B imports and calls it.
func TestSingleRoundTrip(t *testing.T) {
	a, b := transport.NewInprocPair(4)

	ctxA, _ := rto.NewContext(a, &ping.PingSkeleton{Impl: pingImpl{}})
	defer ctxA.Close()
	ctxB, remoteFromB := rto.NewContext(b, nil)
	defer ctxB.Close()

	proxy := &ping.RemotePing{RemoteObject: remoteFromB}
	if err := proxy.Ping(); err != nil {
		t.Fatalf("Ping(): %v", err)
	}
}

type barrierPing struct {
	wg *sync.WaitGroup
}

func (p barrierPing) Ping() error {
	p.wg.Done()
	p.wg.Wait()
	return nil
}

type helloBarrier struct {
	wg *sync.WaitGroup
}

func (h helloBarrier) Hey() (ping.Ping, error) {
	return barrierPing{wg: h.wg}, nil
}

// S2. Handle return: six proxies obtained from Hey(), each Ping()s
// concurrently into a size-7 barrier alongside the main goroutine.
func TestHandleReturnAndBarrier(t *testing.T) {
	a, b := transport.NewInprocPair(8)

	var wg sync.WaitGroup
	wg.Add(7)

	ctxA, _ := rto.NewContext(a, &ping.HelloSkeleton{Impl: helloBarrier{wg: &wg}})
	defer ctxA.Close()
	ctxB, remoteFromB := rto.NewContext(b, nil, rto.WithCallSlots(8))
	defer ctxB.Close()

	hello := &ping.RemoteHello{RemoteObject: remoteFromB}

	proxies := make([]ping.Ping, 6)
	for i := range proxies {
		p, err := hello.Hey()
		if err != nil {
			t.Fatalf("Hey() #%d: %v", i, err)
		}
		proxies[i] = p
	}

	done := make(chan error, 6)
	for _, p := range proxies {
		go func(p ping.Ping) { done <- p.Ping() }(p)
	}

	wg.Done() // the seventh participant: the test goroutine itself

	for i := 0; i < 6; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Ping(): %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("barrier did not release within the deadline")
		}
	}

	for _, p := range proxies {
		p.(*ping.RemotePing).Close()
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ctxA.Port.RegistrySize() == 1 { // only the HelloSkeleton export remains
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("A's registry did not empty back down to 1 entry after closing all six proxies, got %d", ctxA.Port.RegistrySize())
}

type helloOnce struct{}

func (helloOnce) Hey() (ping.Ping, error) { return pingImpl{}, nil }

// S3. Delete on drop: closing an imported proxy's RemoteObject sends
// exactly one DELETE to the exporter, removing its registry entry.
func TestDeleteOnClose(t *testing.T) {
	a, b := transport.NewInprocPair(4)

	ctxA, _ := rto.NewContext(a, &ping.HelloSkeleton{Impl: helloOnce{}})
	defer ctxA.Close()
	ctxB, remoteFromB := rto.NewContext(b, nil)
	defer ctxB.Close()

	hello := &ping.RemoteHello{RemoteObject: remoteFromB}
	p, err := hello.Hey()
	if err != nil {
		t.Fatalf("Hey(): %v", err)
	}
	if err := p.Ping(); err != nil {
		t.Fatalf("Ping(): %v", err)
	}

	closer := p.(*ping.RemotePing)
	closer.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ctxA.Port.RegistrySize() == 1 { // only the initial HelloSkeleton export remains
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("registry did not shrink back to 1 entry after Close(), got %d", ctxA.Port.RegistrySize())
}

// S4. Multiplex correctness: N concurrent calls with random argument
// lengths, each response must match its own request's content.
func TestConcurrentCallsMatchResponses(t *testing.T) {
	a, b := transport.NewInprocPair(32)

	ctxA, _ := rto.NewContext(a, &echoSkeleton{}, rto.WithServerThreads(16))
	defer ctxA.Close()
	ctxB, remoteFromB := rto.NewContext(b, nil, rto.WithCallSlots(32))
	defer ctxB.Close()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			size := rand.Intn(500) + 1
			payload := make([]byte, size)
			rand.Read(payload)

			resp, err := remoteFromB.Call(0, payload)
			if err != nil {
				errs <- fmt.Errorf("call %d: %v", i, err)
				return
			}
			if !bytes.Equal(resp, payload) {
				errs <- fmt.Errorf("call %d: response does not match request", i)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

type echoSkeleton struct{}

func (echoSkeleton) DispatchCall(methodID uint32, args []byte) ([]byte, error) {
	return args, nil
}

// S5. Shutdown cleanliness: after a round trip, Close on both sides joins
// background goroutines within one second.
func TestShutdownJoinsWithinDeadline(t *testing.T) {
	a, b := transport.NewInprocPair(4)

	ctxA, _ := rto.NewContext(a, &ping.PingSkeleton{Impl: pingImpl{}})
	ctxB, remoteFromB := rto.NewContext(b, nil)

	proxy := &ping.RemotePing{RemoteObject: remoteFromB}
	if err := proxy.Ping(); err != nil {
		t.Fatalf("Ping(): %v", err)
	}

	done := make(chan struct{})
	go func() {
		ctxA.Close()
		ctxB.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Close() did not join background goroutines within one second")
	}
}

// S6. Large payload: round-trip a 300,000-byte argument and response.
func TestLargePayload(t *testing.T) {
	a, b := transport.NewInprocPair(4)

	ctxA, _ := rto.NewContext(a, &echoSkeleton{})
	defer ctxA.Close()
	ctxB, remoteFromB := rto.NewContext(b, nil)
	defer ctxB.Close()

	payload := make([]byte, 300000)
	rand.Read(payload)

	resp, err := remoteFromB.Call(0, payload)
	if err != nil {
		t.Fatalf("Call(): %v", err)
	}
	if !bytes.Equal(resp, payload) {
		t.Fatalf("large payload round trip mismatch")
	}
}
