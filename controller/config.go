package controller

import (
	"fmt"

	"github.com/scrcpy-go/scrcpy/launcher"
)

// Config is immutable once passed to New: apart from KillServerArgs,
// every field is a value type (no maps or pointers), so passing Config by
// value gives New its own copy; New also copies the KillServerArgs slice,
// so the caller may reuse its own buffers afterwards.
type Config struct {
	SessionID uint32

	// Selection policy. At most one of RequestedSerial, SelectUSB,
	// SelectTCPIP may be set; TCPIPDst excludes RequestedSerial.
	RequestedSerial string
	SelectUSB       bool
	SelectTCPIP     bool

	// TCPIPEnable switches the selected device to a network transport
	// before proceeding. TCPIPDst, if set, connects directly to a known
	// HOST[:PORT] and implies TCPIPEnable; it skips device selection
	// entirely.
	TCPIPEnable bool
	TCPIPDst    string

	// Streams, carried straight through to the remote invocation.
	Options launcher.Options

	// ForceForwardTunnel skips the reverse-tunnel attempt entirely.
	ForceForwardTunnel bool
	// TunnelHost/TunnelPort override where the forward-mode establisher
	// connects; zero values default to 127.0.0.1 and the tunnel's chosen
	// local port.
	TunnelHost string
	TunnelPort int
	PortRange  [2]int

	KillBridgeOnClose bool
	PowerOffOnClose   bool

	// KillServerArgs are passed through verbatim to `adb kill-server` when
	// KillBridgeOnClose is set (e.g. a specific transport id), matching
	// the configurable kill-daemon flags already accepted by
	// adb.Client.KillServer.
	KillServerArgs []string

	// ServerPath is the host-side path to the payload to push; if empty
	// it is resolved via SCRCPY_SERVER_PATH and well-known fallbacks (see
	// launcher.ResolveServerPath).
	ServerPath string

	// BridgeExe overrides the bridge executable; empty defers to the ADB
	// environment variable, then PATH lookup.
	BridgeExe string
}

// Validate enforces the selection-policy invariants from the component
// design: at most one explicit selector, and TCPIPDst is mutually
// exclusive with an explicit serial.
func (c Config) Validate() error {
	explicit := 0
	if c.RequestedSerial != "" {
		explicit++
	}
	if c.SelectUSB {
		explicit++
	}
	if c.SelectTCPIP {
		explicit++
	}
	if explicit > 1 {
		return fmt.Errorf("controller: at most one of RequestedSerial, SelectUSB, SelectTCPIP may be set")
	}
	if c.TCPIPDst != "" && c.RequestedSerial != "" {
		return fmt.Errorf("controller: TCPIPDst excludes RequestedSerial")
	}
	if c.PortRange[0] > c.PortRange[1] {
		return fmt.Errorf("controller: invalid port range [%d, %d]", c.PortRange[0], c.PortRange[1])
	}
	return nil
}

// DefaultPortRange matches the range the source reserves for its local
// tunnel ports.
var DefaultPortRange = [2]int{27183, 27199}
