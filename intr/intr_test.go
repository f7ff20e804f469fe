package intr

import (
	"net"
	"testing"
	"time"
)

func TestInterruptUnblocksArmedListener(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	var h Handle
	done := make(chan error, 1)
	go func() {
		done <- Guard(&h, l, func() error {
			_, err := l.Accept()
			return err
		})
	}()

	time.Sleep(20 * time.Millisecond)
	h.Interrupt()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from the interrupted accept")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Interrupt did not unblock the armed listener")
	}
}

func TestArmFailsFastAfterInterrupt(t *testing.T) {
	var h Handle
	h.Interrupt()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := h.Arm(l); err != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestInterruptIsIdempotent(t *testing.T) {
	var h Handle
	h.Interrupt()
	h.Interrupt()
	h.Interrupt()
	if !h.IsInterrupted() {
		t.Fatal("expected IsInterrupted to be true")
	}
}
