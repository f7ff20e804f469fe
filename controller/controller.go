// Package controller drives the full device bring-up as a single
// background worker: select a device, optionally switch its transport,
// push the payload, open a tunnel, launch and supervise the remote
// server, and establish its typed sockets — grounded on the phase
// sequencing of the teacher's cmd/botanist/run.go execute() (load
// config, derive a target, race Start/Wait against ctx.Done(), defer
// Stop/Restart) generalized from a single Fuchsia target type to this
// domain's seven-step bring-up.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/scrcpy-go/scrcpy/adb"
	"github.com/scrcpy-go/scrcpy/device"
	"github.com/scrcpy-go/scrcpy/launcher"
	"github.com/scrcpy-go/scrcpy/logger"
	"github.com/scrcpy-go/scrcpy/netswitch"
	"github.com/scrcpy-go/scrcpy/stream"
	"github.com/scrcpy-go/scrcpy/tunnel"

	"github.com/scrcpy-go/scrcpy/intr"
)

// Listener receives the controller's exactly-once outcome callbacks.
type Listener interface {
	// OnConnectionFailed fires when bring-up fails before the remote
	// reaches the running state. Mutually exclusive with OnConnected.
	OnConnectionFailed(ctx context.Context, err error)

	// OnConnected fires once all required sockets are established.
	OnConnected(ctx context.Context)

	// OnDisconnected fires after OnConnected, once the run has finished
	// (whether by Stop() or by the remote exiting on its own). err is
	// nil for a clean, caller-requested shutdown.
	OnDisconnected(ctx context.Context, err error)
}

// Controller orchestrates a single device bring-up run. A Controller is
// used once: New, Start, Join (or Destroy), discard.
type Controller struct {
	cfg      Config
	listener Listener
	client   *adb.Client
	intr     *intr.Handle

	stopOnce sync.Once
	stopCh   chan struct{}

	g *errgroup.Group

	cancel context.CancelFunc

	mu               sync.Mutex
	serial           string
	remoteSocketName string
	tun              *tunnel.Tunnel
	proc             *launcher.Process
	streams          *stream.Streams
	connected        bool
}

// New validates cfg and returns a Controller ready to Start.
func New(cfg Config, listener Listener) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PortRange == ([2]int{}) {
		cfg.PortRange = DefaultPortRange
	}
	cfg.KillServerArgs = append([]string(nil), cfg.KillServerArgs...)
	return &Controller{
		cfg:      cfg,
		listener: listener,
		client:   adb.New(cfg.BridgeExe),
		intr:     &intr.Handle{},
		stopCh:   make(chan struct{}),
	}, nil
}

// Start spawns the background worker and returns immediately.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	c.g = g
	g.Go(func() error {
		return c.run(gctx)
	})
}

// Stop requests that the run end. It is idempotent and safe to call from
// any goroutine, at any point in the run's lifetime, any number of times.
// Cancelling the worker's own context (rather than only closing stopCh
// and interrupting the I/O handle) is what lets Stop unblock a pending
// retry.Retry backoff sleep or an in-flight bridge command — both of
// those only watch ctx.Done(), not stopCh.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.intr.Interrupt()
		if c.cancel != nil {
			c.cancel()
		}
	})
}

// Join blocks until the worker has finished and returns its terminal
// error, if any.
func (c *Controller) Join() error {
	if c.g == nil {
		return nil
	}
	return c.g.Wait()
}

// Destroy stops the run if still active, joins it, and releases any
// resource that might still be held (normally none, since run's own
// teardown path already releases everything it acquired).
func (c *Controller) Destroy() {
	c.Stop()
	c.Join()

	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.streams != nil {
		c.streams.Close()
		c.streams = nil
	}
	if c.tun != nil {
		err = multierr.Append(err, c.tun.Close(context.Background()))
		c.tun = nil
	}
	if err != nil {
		logger.Warningf(context.Background(), "destroy: %v", err)
	}
}

func (c *Controller) run(ctx context.Context) error {
	if err := c.client.StartServer(ctx); err != nil {
		return c.fail(ctx, wrap(KindBridgeUnavailable, err))
	}

	serial, err := c.resolveSerial(ctx)
	if err != nil {
		return c.fail(ctx, err)
	}
	c.mu.Lock()
	c.serial = serial
	c.mu.Unlock()

	serverPath := c.cfg.ServerPath
	if serverPath == "" {
		serverPath, err = launcher.ResolveServerPath()
		if err != nil {
			return c.fail(ctx, wrap(KindPayloadMissing, err))
		}
	}
	if err := c.client.Push(ctx, serial, serverPath, launcher.DevicePayloadPath); err != nil {
		return c.fail(ctx, wrap(KindPushFailed, err))
	}

	opts := c.cfg.Options
	opts.SessionID = c.cfg.SessionID

	if opts.ListEncoders || opts.ListDisplays || opts.ListCameras {
		return c.runDiscoveryQuery(ctx, serial, opts)
	}

	return c.runStreamingSession(ctx, serial, opts)
}

// runDiscoveryQuery handles the one-shot list_encoders/list_displays/
// list_cameras flows: spawn the remote, let it print and exit, then
// report completion. There is no tunnel and no OnDisconnected — the
// query either produced its answer or it didn't.
func (c *Controller) runDiscoveryQuery(ctx context.Context, serial string, opts launcher.Options) error {
	adbExe, err := c.client.Exe(ctx)
	if err != nil {
		return c.fail(ctx, wrap(KindBridgeUnavailable, err))
	}
	argv := launcher.BuildArgv(adbExe, serial, opts)
	proc, err := launcher.Spawn(ctx, argv)
	if err != nil {
		return c.fail(ctx, wrap(KindRemoteSpawnFailed, err))
	}
	if err := proc.Join(); err != nil {
		logger.Debugf(ctx, "discovery query process exited with: %v", err)
	}
	c.listener.OnConnected(ctx)
	return nil
}

func (c *Controller) runStreamingSession(ctx context.Context, serial string, opts launcher.Options) error {
	c.mu.Lock()
	c.remoteSocketName = fmt.Sprintf("scrcpy_%08x", c.cfg.SessionID)
	socketName := c.remoteSocketName
	c.mu.Unlock()

	tun, err := tunnel.Open(ctx, c.client, serial, socketName, c.cfg.PortRange, c.cfg.ForceForwardTunnel)
	if err != nil {
		return c.fail(ctx, wrap(KindTunnelSetupFailed, err))
	}
	c.mu.Lock()
	c.tun = tun
	c.mu.Unlock()

	opts.TunnelForward = tun.Forward
	adbExe, err := c.client.Exe(ctx)
	if err != nil {
		tun.Close(ctx)
		return c.fail(ctx, wrap(KindBridgeUnavailable, err))
	}
	argv := launcher.BuildArgv(adbExe, serial, opts)

	proc, err := launcher.Spawn(ctx, argv)
	if err != nil {
		tun.Close(ctx)
		return c.fail(ctx, wrap(KindRemoteSpawnFailed, err))
	}
	c.mu.Lock()
	c.proc = proc
	c.mu.Unlock()

	remoteDied := make(chan error, 1)
	proc.OnTerminated(func(err error) {
		c.intr.Interrupt()
		remoteDied <- err
		c.mu.Lock()
		wasConnected := c.connected
		c.mu.Unlock()
		if wasConnected {
			c.Stop()
		}
	})

	enabled := stream.Enabled{Video: opts.VideoEnabled, Audio: opts.AudioEnabled, Control: opts.ControlEnabled}
	streams, err := c.establishStreams(ctx, tun, enabled)
	if err != nil {
		var cleanupErr error
		cleanupErr = multierr.Append(cleanupErr, proc.Kill())
		procErr := proc.Join()
		cleanupErr = multierr.Append(cleanupErr, tun.Close(ctx))
		if cleanupErr != nil {
			logger.Warningf(ctx, "cleanup after failed bring-up: %v", cleanupErr)
		}
		if procErr != nil {
			return c.fail(ctx, wrap(KindRemoteExitedEarly, procErr))
		}
		return c.fail(ctx, wrap(KindHandshakeFailed, err))
	}
	// The tunnel's bridge-side mapping is no longer needed once sockets
	// are established; the host listener (if any) is also done with.
	tun.Close(ctx)

	c.mu.Lock()
	c.streams = streams
	c.connected = true
	c.mu.Unlock()

	c.listener.OnConnected(ctx)

	var terminatedErr error
	select {
	case <-c.stopCh:
	case terminatedErr = <-remoteDied:
	}

	streams.Close()
	if !proc.TimedWait(time.Second) {
		proc.Kill()
	}
	proc.Join()

	if c.cfg.KillBridgeOnClose {
		if err := c.client.KillServer(context.Background(), c.cfg.KillServerArgs...); err != nil {
			logger.Warningf(ctx, "failed to kill bridge daemon on close: %v", err)
		}
	}

	c.listener.OnDisconnected(ctx, terminatedErr)
	return terminatedErr
}

func (c *Controller) establishStreams(ctx context.Context, tun *tunnel.Tunnel, enabled stream.Enabled) (*stream.Streams, error) {
	if tun.Forward {
		host := c.cfg.TunnelHost
		if host == "" {
			host = "127.0.0.1"
		}
		port := c.cfg.TunnelPort
		if port == 0 {
			port = tun.LocalPort
		}
		return stream.EstablishForward(ctx, c.intr, fmt.Sprintf("%s:%d", host, port), enabled)
	}
	return stream.EstablishReverse(ctx, c.intr, tun.Listener, enabled)
}

func (c *Controller) resolveSerial(ctx context.Context) (string, error) {
	if c.cfg.TCPIPDst != "" {
		serial, err := netswitch.ToKnownEndpoint(ctx, c.client, c.cfg.TCPIPDst)
		if err != nil {
			return "", wrap(KindTCPIPSetupFailed, err)
		}
		return serial, nil
	}

	policy := device.Policy{
		Serial:    c.cfg.RequestedSerial,
		USBOnly:   c.cfg.SelectUSB,
		TCPIPOnly: c.cfg.SelectTCPIP,
	}
	dev, err := device.Select(ctx, c.client, policy)
	if err != nil {
		if errors.Is(err, device.ErrAmbiguous) {
			return "", wrap(KindAmbiguousDevice, err)
		}
		return "", wrap(KindNoDevice, err)
	}

	if !c.cfg.TCPIPEnable {
		return dev.Serial, nil
	}
	serial, err := netswitch.ToUnknownEndpoint(ctx, c.client, dev)
	if err != nil {
		return "", wrap(KindTCPIPSetupFailed, err)
	}
	return serial, nil
}

// fail classifies err as KindCancelled when the I/O handle was
// interrupted and err isn't already categorized, reports it through
// OnConnectionFailed, and returns it so Join() surfaces it too.
func (c *Controller) fail(ctx context.Context, err error) error {
	var se *ServerError
	if c.intr.IsInterrupted() && !errors.As(err, &se) {
		err = wrap(KindCancelled, err)
	}
	c.listener.OnConnectionFailed(ctx, err)
	return err
}
