// Package adb wraps the bridge-daemon CLI (adb) with typed operations,
// using procutil.Run to supervise every invocation: the whole process
// group is killed on context cancellation so no child is ever orphaned.
package adb

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/scrcpy-go/scrcpy/logger"
	"github.com/scrcpy-go/scrcpy/procutil"
)

// Transport identifies how a device is currently connected to the host.
type Transport int

const (
	USB Transport = iota
	TCPIP
)

// Device is one line of `adb devices -l`.
type Device struct {
	Serial    string
	State     string // "device", "offline", "unauthorized", ...
	Transport Transport
}

// Client issues bridge-daemon commands. The zero value resolves its
// executable lazily and caches it.
type Client struct {
	exe string
}

// New returns a Client using exe as the bridge executable. If exe is
// empty, the ADB environment variable is consulted, falling back to
// "adb" resolved via PATH.
func New(exe string) *Client {
	return &Client{exe: exe}
}

func (c *Client) resolve() (string, error) {
	if c.exe != "" {
		return c.exe, nil
	}
	if e := os.Getenv("ADB"); e != "" {
		c.exe = e
		return c.exe, nil
	}
	path, err := exec.LookPath("adb")
	if err != nil {
		return "", fmt.Errorf("adb: could not locate bridge executable: %w", err)
	}
	c.exe = path
	return c.exe, nil
}

// run executes the bridge with args, killing the whole process group if
// ctx is cancelled before it exits.
func (c *Client) run(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	exe, err := c.resolve()
	if err != nil {
		return "", "", err
	}
	logger.Debugf(ctx, "adb %s", strings.Join(args, " "))

	cmd := exec.Command(exe, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := procutil.Run(ctx, cmd); err != nil {
		if err == ctx.Err() {
			return "", "", err
		}
		return outBuf.String(), errBuf.String(), fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, errBuf.String())
	}
	return outBuf.String(), errBuf.String(), nil
}

func (c *Client) StartServer(ctx context.Context) error {
	_, _, err := c.run(ctx, "start-server")
	return err
}

// KillServer stops the bridge daemon. extraArgs are passed through
// verbatim (e.g. a specific transport id), matching the configurable
// kill-daemon flags in the component design.
func (c *Client) KillServer(ctx context.Context, extraArgs ...string) error {
	args := append([]string{"kill-server"}, extraArgs...)
	_, _, err := c.run(ctx, args...)
	return err
}

// Devices enumerates attached devices via `devices -l`.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	out, _, err := c.run(ctx, "devices", "-l")
	if err != nil {
		return nil, err
	}
	return parseDevices(out), nil
}

func (c *Client) Push(ctx context.Context, serial, local, remote string) error {
	_, _, err := c.run(ctx, "-s", serial, "push", local, remote)
	return err
}

func (c *Client) Getprop(ctx context.Context, serial, key string) (string, error) {
	out, _, err := c.run(ctx, "-s", serial, "shell", "getprop", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) TCPIP(ctx context.Context, serial string, port int) error {
	_, _, err := c.run(ctx, "-s", serial, "tcpip", strconv.Itoa(port))
	return err
}

func (c *Client) Connect(ctx context.Context, endpoint string) error {
	_, _, err := c.run(ctx, "connect", endpoint)
	return err
}

// Disconnect is best-effort: an endpoint that was never connected is not
// an error, matching the bring-up sequence's "disconnect first, silently"
// step before a fresh connect.
func (c *Client) Disconnect(ctx context.Context, endpoint string) error {
	c.run(ctx, "disconnect", endpoint)
	return nil
}

// Forward registers a host-local-port -> device-local-socket mapping.
func (c *Client) Forward(ctx context.Context, serial, hostSpec, deviceSpec string) error {
	_, _, err := c.run(ctx, "-s", serial, "forward", hostSpec, deviceSpec)
	return err
}

// Reverse registers a device-local-socket -> host-local-port mapping.
func (c *Client) Reverse(ctx context.Context, serial, deviceSpec, hostSpec string) error {
	_, _, err := c.run(ctx, "-s", serial, "reverse", deviceSpec, hostSpec)
	return err
}

func (c *Client) ReverseRemove(ctx context.Context, serial, deviceSpec string) error {
	_, _, err := c.run(ctx, "-s", serial, "reverse", "--remove", deviceSpec)
	return err
}

func (c *Client) ForwardRemove(ctx context.Context, serial, hostSpec string) error {
	_, _, err := c.run(ctx, "-s", serial, "forward", "--remove", hostSpec)
	return err
}

// Exe exposes the resolved bridge executable path, used by the remote
// process launcher to invoke `adb -s SERIAL shell ...` directly rather
// than through another Client method, since that invocation is long-lived
// and separately supervised (see launcher.Spawn).
func (c *Client) Exe(ctx context.Context) (string, error) {
	return c.resolve()
}
