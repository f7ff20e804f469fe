// Package device resolves a selection policy against a set of bridge
// devices, in the style of the teacher's target.DeviceConfig/
// NewDeviceTarget constructor: validate the inputs once, fail loudly on
// anything ambiguous, and hand back a single concrete identity.
package device

import (
	"context"
	"fmt"
	"os"

	"github.com/scrcpy-go/scrcpy/adb"
)

// Policy selects a single device out of those the bridge currently sees.
type Policy struct {
	// Serial, if non-empty, matches an exact device serial.
	Serial string

	// USBOnly restricts the candidate set to USB-transport devices.
	USBOnly bool

	// TCPIPOnly restricts the candidate set to TCP/IP-transport devices.
	TCPIPOnly bool
}

// ResolveEnv upgrades an empty, unconstrained Policy using the
// ANDROID_SERIAL environment variable, matching the fallback the bridge
// daemon itself honors.
func (p Policy) ResolveEnv() Policy {
	if p.Serial == "" && !p.USBOnly && !p.TCPIPOnly {
		if s := os.Getenv("ANDROID_SERIAL"); s != "" {
			p.Serial = s
		}
	}
	return p
}

// Select resolves p against the bridge's currently attached devices.
func Select(ctx context.Context, client *adb.Client, p Policy) (adb.Device, error) {
	p = p.ResolveEnv()

	all, err := client.Devices(ctx)
	if err != nil {
		return adb.Device{}, fmt.Errorf("device: could not enumerate devices: %w", err)
	}

	var eligible []adb.Device
	for _, d := range all {
		if d.State != "device" {
			continue
		}
		eligible = append(eligible, d)
	}

	switch {
	case p.Serial != "":
		var matches []adb.Device
		for _, d := range eligible {
			if d.Serial == p.Serial {
				matches = append(matches, d)
			}
		}
		return single(matches, fmt.Sprintf("serial %q", p.Serial))

	case p.USBOnly:
		var matches []adb.Device
		for _, d := range eligible {
			if d.Transport == adb.USB {
				matches = append(matches, d)
			}
		}
		return single(matches, "USB-only selection")

	case p.TCPIPOnly:
		var matches []adb.Device
		for _, d := range eligible {
			if d.Transport == adb.TCPIP {
				matches = append(matches, d)
			}
		}
		return single(matches, "TCP/IP-only selection")

	default:
		return single(eligible, "any")
	}
}

// ErrNoDevice and ErrAmbiguous classify a Select failure so callers can
// branch without string-matching.
var (
	ErrNoDevice  = fmt.Errorf("no eligible device")
	ErrAmbiguous = fmt.Errorf("more than one eligible device")
)

func single(matches []adb.Device, policy string) (adb.Device, error) {
	switch len(matches) {
	case 0:
		return adb.Device{}, fmt.Errorf("device: no eligible device for %s: %w", policy, ErrNoDevice)
	case 1:
		return matches[0], nil
	default:
		return adb.Device{}, fmt.Errorf("device: %d devices match %s, need exactly one: %w", len(matches), policy, ErrAmbiguous)
	}
}
