// Package tunnel opens the single channel the remote process connects
// through: a reverse mapping (device accepts are forwarded to the host)
// preferred, falling back to a forward mapping (host connects are
// forwarded to the device) when requested or when the reverse attempt is
// rejected.
package tunnel

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/multierr"

	"github.com/scrcpy-go/scrcpy/adb"
	"github.com/scrcpy-go/scrcpy/logger"
)

// Tunnel is an established bridge channel to a single device-local
// abstract socket name.
type Tunnel struct {
	client *adb.Client
	serial string
	name   string

	Forward bool // true if this is a forward (not reverse) tunnel.

	// LocalPort is the host port participating in the mapping.
	LocalPort int

	// Listener is non-nil only in reverse mode: the host accepts the
	// three typed streams on it.
	Listener net.Listener

	closed bool
}

// Open tries a reverse mapping first, port by port over portRange,
// falling back to forward mode if forceForward is set or every reverse
// attempt is rejected by the bridge.
func Open(ctx context.Context, client *adb.Client, serial, name string, portRange [2]int, forceForward bool) (*Tunnel, error) {
	if !forceForward {
		t, err := openReverse(ctx, client, serial, name, portRange)
		if err == nil {
			return t, nil
		}
		logger.Infof(ctx, "reverse tunnel unavailable (%v), falling back to forward", err)
	}
	return openForward(ctx, client, serial, name, portRange)
}

func openReverse(ctx context.Context, client *adb.Client, serial, name string, portRange [2]int) (*Tunnel, error) {
	lo, hi := portRange[0], portRange[1]
	var lastErr error
	for port := lo; port <= hi; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			lastErr = err
			continue
		}
		if err := client.Reverse(ctx, serial, "localabstract:"+name, fmt.Sprintf("tcp:%d", port)); err != nil {
			l.Close()
			lastErr = err
			continue
		}
		return &Tunnel{
			client:    client,
			serial:    serial,
			name:      name,
			Forward:   false,
			LocalPort: port,
			Listener:  l,
		}, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("empty port range [%d, %d]", lo, hi)
	}
	return nil, fmt.Errorf("tunnel: no port in [%d, %d] available for reverse mapping: %w", lo, hi, lastErr)
}

func openForward(ctx context.Context, client *adb.Client, serial, name string, portRange [2]int) (*Tunnel, error) {
	lo, hi := portRange[0], portRange[1]
	var lastErr error
	for port := lo; port <= hi; port++ {
		if err := client.Forward(ctx, serial, fmt.Sprintf("tcp:%d", port), "localabstract:"+name); err != nil {
			lastErr = err
			continue
		}
		return &Tunnel{
			client:    client,
			serial:    serial,
			name:      name,
			Forward:   true,
			LocalPort: port,
		}, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("empty port range [%d, %d]", lo, hi)
	}
	return nil, fmt.Errorf("tunnel: no port in [%d, %d] available for forward mapping: %w", lo, hi, lastErr)
}

// Close removes the bridge-side mapping and, for reverse tunnels, closes
// the host listener. It is idempotent and aggregates every failure
// instead of reporting only the first.
func (t *Tunnel) Close(ctx context.Context) error {
	if t == nil || t.closed {
		return nil
	}
	t.closed = true
	var err error
	if t.Forward {
		err = multierr.Append(err, t.client.ForwardRemove(ctx, t.serial, fmt.Sprintf("tcp:%d", t.LocalPort)))
	} else {
		err = multierr.Append(err, t.client.ReverseRemove(ctx, t.serial, "localabstract:"+t.name))
		if t.Listener != nil {
			err = multierr.Append(err, t.Listener.Close())
			t.Listener = nil
		}
	}
	return err
}
