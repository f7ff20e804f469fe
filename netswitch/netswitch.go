// Package netswitch moves a selected device from a USB transport to a
// TCP/IP transport, or connects directly to a caller-specified endpoint,
// grounded on the teacher's own retry.Retry(ctx, &retry.ZeroBackoff{}, fn,
// nil) polling idiom in botanist/ip.go (there used to wait for a node to
// answer mDNS; here used to wait for a device property to flip).
package netswitch

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/scrcpy-go/scrcpy/adb"
	"github.com/scrcpy-go/scrcpy/logger"
	"github.com/scrcpy-go/scrcpy/retry"
)

const (
	defaultPort = 5555

	tcpipPollAttempts = 40
	tcpipPollInterval = 250 * time.Millisecond
)

// ToKnownEndpoint connects directly to a caller-specified HOST[:PORT],
// appending the default port if absent, disconnecting any stale mapping
// first. It returns the normalized serial to use from then on.
func ToKnownEndpoint(ctx context.Context, client *adb.Client, dst string) (string, error) {
	endpoint := normalize(dst)
	client.Disconnect(ctx, endpoint)
	if err := client.Connect(ctx, endpoint); err != nil {
		return "", fmt.Errorf("netswitch: connect to %s failed: %w", endpoint, err)
	}
	return endpoint, nil
}

// ToUnknownEndpoint switches dev (already selected over some transport)
// into TCP/IP mode if it isn't already, resolves its address, and
// connects to it. It returns the new serial to use from then on.
func ToUnknownEndpoint(ctx context.Context, client *adb.Client, dev adb.Device) (string, error) {
	if dev.Transport == adb.TCPIP {
		return dev.Serial, nil
	}

	port, err := client.Getprop(ctx, dev.Serial, "service.adb.tcp.port")
	if err != nil {
		return "", fmt.Errorf("netswitch: could not read current tcp port: %w", err)
	}
	if port != strconv.Itoa(defaultPort) {
		if err := client.TCPIP(ctx, dev.Serial, defaultPort); err != nil {
			return "", fmt.Errorf("netswitch: could not enable tcpip mode: %w", err)
		}
		if err := waitTCPIPEnabled(ctx, client, dev.Serial); err != nil {
			return "", err
		}
	}

	ip, err := resolveDeviceIP(ctx, client, dev.Serial)
	if err != nil {
		return "", fmt.Errorf("netswitch: could not resolve device ip: %w", err)
	}

	endpoint := fmt.Sprintf("%s:%d", ip, defaultPort)
	client.Disconnect(ctx, endpoint)
	if err := client.Connect(ctx, endpoint); err != nil {
		return "", fmt.Errorf("netswitch: connect to %s failed: %w", endpoint, err)
	}
	return endpoint, nil
}

func waitTCPIPEnabled(ctx context.Context, client *adb.Client, serial string) error {
	backoff := retry.WithMaxAttempts(retry.NewConstantBackoff(tcpipPollInterval), tcpipPollAttempts)
	attempt := 0
	err := retry.Retry(ctx, backoff, func() error {
		attempt++
		port, err := client.Getprop(ctx, serial, "service.adb.tcp.port")
		if err != nil {
			return err
		}
		if port != strconv.Itoa(defaultPort) {
			return fmt.Errorf("service.adb.tcp.port is %q, want %d", port, defaultPort)
		}
		return nil
	}, func(err error, delay time.Duration) {
		logger.Debugf(ctx, "waiting for tcpip mode (attempt %d/%d): %v", attempt, tcpipPollAttempts, err)
	})
	if err != nil {
		return fmt.Errorf("netswitch: tcpip mode did not enable within %d attempts: %w", tcpipPollAttempts, err)
	}
	return nil
}

// resolveDeviceIP shells a "getprop" probe to read the device's wlan
// address. Real devices expose this via dumpsys/ip route; this narrow
// probe matches the single property read already used for port polling
// rather than introducing a second way of talking to the device.
func resolveDeviceIP(ctx context.Context, client *adb.Client, serial string) (net.IP, error) {
	out, err := client.Getprop(ctx, serial, "dhcp.wlan0.ipaddress")
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(out)
	if ip == nil {
		return nil, fmt.Errorf("could not parse device ip %q", out)
	}
	return ip, nil
}

func normalize(dst string) string {
	if _, _, err := net.SplitHostPort(dst); err == nil {
		return dst
	}
	return fmt.Sprintf("%s:%d", dst, defaultPort)
}
