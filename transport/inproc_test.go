package transport

import (
	"testing"
	"time"
)

func TestInprocSendReceive(t *testing.T) {
	a, b := NewInprocPair(4)

	if err := a.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := b.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Receive() = %q, want %q", got, "hello")
	}
}

func TestInprocReceiveTimeout(t *testing.T) {
	a, _ := NewInprocPair(1)
	_, err := a.Receive(10 * time.Millisecond)
	if err == nil {
		t.Fatalf("Receive() on an empty pair should time out")
	}
	te, ok := err.(interface{ Timeout() bool })
	if !ok || !te.Timeout() {
		t.Fatalf("Receive() err = %v, want a Timeout error", err)
	}
}

func TestInprocTerminateUnblocksReceive(t *testing.T) {
	a, _ := NewInprocPair(1)
	term := a.CreateTerminator()

	done := make(chan error, 1)
	go func() {
		_, err := a.Receive(0)
		done <- err
	}()

	term.Terminate()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("Receive() after Terminate should return an error")
		}
	case <-time.After(time.Second):
		t.Fatalf("Terminate() did not unblock a pending Receive")
	}

	if err := a.Send([]byte("x")); err == nil {
		t.Fatalf("Send() on a terminated transport should fail")
	}
}
