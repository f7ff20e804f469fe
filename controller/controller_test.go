package controller

import (
	"context"
	"testing"
)

func TestConfigValidateRejectsMultipleSelectors(t *testing.T) {
	cfg := Config{SelectUSB: true, SelectTCPIP: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for conflicting selectors")
	}
}

func TestConfigValidateRejectsSerialWithTCPIPDst(t *testing.T) {
	cfg := Config{RequestedSerial: "AAA", TCPIPDst: "10.0.0.5"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for TCPIPDst with an explicit serial")
	}
}

func TestConfigValidateRejectsBadPortRange(t *testing.T) {
	cfg := Config{PortRange: [2]int{100, 50}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an inverted port range")
	}
}

func TestConfigValidateAcceptsDefaults(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected the zero Config to validate, got %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c, err := New(Config{}, noopListener{})
	if err != nil {
		t.Fatal(err)
	}
	c.Stop()
	c.Stop()
	c.Stop()
	if !c.intr.IsInterrupted() {
		t.Fatal("expected the I/O handle to be interrupted after Stop")
	}
	select {
	case <-c.stopCh:
	default:
		t.Fatal("expected stopCh to be closed after Stop")
	}
}

func TestKindStringIsHumanReadable(t *testing.T) {
	if KindTunnelSetupFailed.String() != "tunnel_setup_failed" {
		t.Errorf("got %q", KindTunnelSetupFailed.String())
	}
}

type noopListener struct{}

func (noopListener) OnConnectionFailed(ctx context.Context, err error) {}
func (noopListener) OnConnected(ctx context.Context)                  {}
func (noopListener) OnDisconnected(ctx context.Context, err error)    {}
