package stream

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/scrcpy-go/scrcpy/intr"
)

func TestEstablishReverseOrderAndHandshake(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	enabled := Enabled{Video: true, Control: true}

	go func() {
		// Remote connects in the same fixed order: video, then control
		// (audio disabled here).
		v, err := net.Dial("tcp", l.Addr().String())
		if err != nil {
			return
		}
		defer v.Close()
		field := make([]byte, DeviceNameFieldLength)
		copy(field, "Pixel")
		v.Write(field)

		c, err := net.Dial("tcp", l.Addr().String())
		if err != nil {
			return
		}
		defer c.Close()
		time.Sleep(50 * time.Millisecond)
	}()

	var h intr.Handle
	s, err := EstablishReverse(context.Background(), &h, l, enabled)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.Video == nil || s.Control == nil {
		t.Fatal("expected video and control sockets to be established")
	}
	if s.Audio != nil {
		t.Fatal("expected audio socket to remain nil, disabled")
	}
	if s.DeviceName != "Pixel" {
		t.Errorf("got device name %q, want %q", s.DeviceName, "Pixel")
	}
}

func TestTrimNUL(t *testing.T) {
	b := make([]byte, 10)
	copy(b, "abc")
	if got := trimNUL(b); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}
