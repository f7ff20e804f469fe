// Package stream accepts or connects the fixed set of typed sockets a
// remote server opens over an established tunnel, and reads the
// device's handshake off the first one, guarding the read with
// intr.Conn so an Interrupt fails it promptly.
package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/scrcpy-go/scrcpy/intr"
	"github.com/scrcpy-go/scrcpy/logger"
	"github.com/scrcpy-go/scrcpy/retry"
)

// DeviceNameFieldLength is the fixed width, in bytes, of the NUL-padded
// device-name field the remote sends as its very first message on
// whichever stream is established first.
const DeviceNameFieldLength = 64

const (
	forwardConnectAttempts = 100
	forwardConnectInterval = 100 * time.Millisecond
)

// Enabled names which of the three typed streams are expected, in their
// fixed wire order.
type Enabled struct {
	Video   bool
	Audio   bool
	Control bool
}

func (e Enabled) count() int {
	n := 0
	if e.Video {
		n++
	}
	if e.Audio {
		n++
	}
	if e.Control {
		n++
	}
	return n
}

// Streams holds whichever of the three typed sockets were enabled, plus
// the device name read off the first of them.
type Streams struct {
	Video, Audio, Control net.Conn
	DeviceName            string
}

// Close closes every established socket. It is safe to call on a
// partially-populated Streams.
func (s *Streams) Close() {
	for _, c := range []net.Conn{s.Video, s.Audio, s.Control} {
		if c != nil {
			c.Close()
		}
	}
}

// EstablishReverse accepts the enabled streams, in order, off l.
func EstablishReverse(ctx context.Context, h *intr.Handle, l net.Listener, enabled Enabled) (*Streams, error) {
	s := &Streams{}
	accept := func() (net.Conn, error) {
		var conn net.Conn
		err := intr.Guard(h, l, func() error {
			var acceptErr error
			conn, acceptErr = l.Accept()
			return acceptErr
		})
		return conn, err
	}

	if err := acceptInto(accept, enabled, s); err != nil {
		s.Close()
		return nil, err
	}
	if err := readHandshake(h, s, enabled); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// EstablishForward connects to addr once per enabled stream, in order.
// The very first connection additionally performs a one-byte liveness
// probe, retried up to 100 times at 100ms intervals, because the tunnel
// can succeed before the remote process is actually listening.
func EstablishForward(ctx context.Context, h *intr.Handle, addr string, enabled Enabled) (*Streams, error) {
	s := &Streams{}
	first := true
	connect := func() (net.Conn, error) {
		if first {
			first = false
			return connectWithLivenessProbe(ctx, h, addr)
		}
		return dial(ctx, h, addr)
	}

	if err := acceptInto(connect, enabled, s); err != nil {
		s.Close()
		return nil, err
	}
	if err := readHandshake(h, s, enabled); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// acceptInto runs accept once per enabled stream, in fixed order
// (video, audio, control), assigning positionally — the remote connects
// in the same order, so no framing is needed to tell the streams apart.
func acceptInto(accept func() (net.Conn, error), enabled Enabled, s *Streams) error {
	if enabled.Video {
		c, err := accept()
		if err != nil {
			return fmt.Errorf("stream: establishing video socket: %w", err)
		}
		s.Video = c
	}
	if enabled.Audio {
		c, err := accept()
		if err != nil {
			return fmt.Errorf("stream: establishing audio socket: %w", err)
		}
		s.Audio = c
	}
	if enabled.Control {
		c, err := accept()
		if err != nil {
			return fmt.Errorf("stream: establishing control socket: %w", err)
		}
		s.Control = c
	}
	return nil
}

// dial connects to addr, armed against h so an Interrupt arriving while
// the connect is in flight cancels it immediately rather than leaving it
// to run until the kernel's own connect timeout.
func dial(ctx context.Context, h *intr.Handle, addr string) (net.Conn, error) {
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var conn net.Conn
	err := intr.Guard(h, intr.NewCloserFunc(cancel), func() error {
		var dialErr error
		conn, dialErr = (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
		return dialErr
	})
	return conn, err
}

func connectWithLivenessProbe(ctx context.Context, h *intr.Handle, addr string) (net.Conn, error) {
	var conn net.Conn
	attempt := 0
	backoff := retry.WithMaxAttempts(retry.NewConstantBackoff(forwardConnectInterval), forwardConnectAttempts)
	err := retry.Retry(ctx, backoff, func() error {
		attempt++
		c, err := dial(ctx, h, addr)
		if err != nil {
			return err
		}
		var probe [1]byte
		c.SetReadDeadline(time.Now().Add(forwardConnectInterval))
		n, err := c.Read(probe[:])
		c.SetReadDeadline(time.Time{})
		if err != nil || n != 1 {
			c.Close()
			return fmt.Errorf("liveness probe failed: %w", err)
		}
		conn = c
		return nil
	}, func(err error, delay time.Duration) {
		logger.Debugf(ctx, "forward connect attempt %d/%d failed: %v", attempt, forwardConnectAttempts, err)
	})
	if err != nil {
		return nil, fmt.Errorf("stream: no liveness response within %d attempts: %w", forwardConnectAttempts, err)
	}
	return conn, nil
}

// readHandshake reads the fixed device-name field off whichever stream
// was established first among video, audio, control. The read is
// guarded by h so that an Interrupt arriving mid-read fails it promptly
// instead of leaving it to the kernel to notice the conn was closed.
func readHandshake(h *intr.Handle, s *Streams, enabled Enabled) error {
	var first net.Conn
	switch {
	case enabled.Video:
		first = s.Video
	case enabled.Audio:
		first = s.Audio
	case enabled.Control:
		first = s.Control
	default:
		return nil
	}

	var field [DeviceNameFieldLength]byte
	if _, err := io.ReadFull(intr.WrapConn(h, first), field[:]); err != nil {
		return fmt.Errorf("stream: reading device name handshake: %w", err)
	}
	s.DeviceName = trimNUL(field[:])
	return nil
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
