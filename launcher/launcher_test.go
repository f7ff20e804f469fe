package launcher

import (
	"strings"
	"testing"
)

func contains(argv []string, kv string) bool {
	for _, a := range argv {
		if a == kv {
			return true
		}
	}
	return false
}

func TestBuildArgvMinimalOmitsDefaults(t *testing.T) {
	argv := BuildArgv("adb", "SERIAL", Options{
		ServerVersion:     "3.1",
		SessionID:         0x0A1B2C3D,
		VideoEnabled:      true,
		AudioEnabled:      true,
		ControlEnabled:    true,
		ClipboardAutosync: true,
		DownsizeOnError:   true,
		Cleanup:           true,
		PowerOn:           true,
	})

	if !contains(argv, "scid=0a1b2c3d") {
		t.Errorf("expected scid=0a1b2c3d in argv, got %v", argv)
	}
	if !contains(argv, "log_level=info") {
		t.Errorf("expected log_level=info in argv, got %v", argv)
	}
	for _, key := range []string{"video=", "audio=", "control=", "clipboard_autosync=", "downsize_on_error=", "cleanup=", "power_on=", "video_codec=", "audio_codec="} {
		for _, a := range argv {
			if strings.HasPrefix(a, key) {
				t.Errorf("did not expect %q to be emitted when at server default, got %v", key, argv)
			}
		}
	}
}

func TestBuildArgvEmitsDisabledStreams(t *testing.T) {
	argv := BuildArgv("adb", "SERIAL", Options{SessionID: 1})
	if !contains(argv, "video=false") || !contains(argv, "audio=false") || !contains(argv, "control=false") {
		t.Errorf("expected all three streams to be emitted as disabled, got %v", argv)
	}
}

func TestBuildArgvCameraWinsOverDisplayID(t *testing.T) {
	argv := BuildArgv("adb", "SERIAL", Options{
		SessionID:   1,
		VideoSource: VideoSourceCamera,
		CameraID:    "0",
		DisplayID:   7,
	})
	if !contains(argv, "video_source=camera") {
		t.Errorf("expected video_source=camera, got %v", argv)
	}
	if !contains(argv, "camera_id=0") {
		t.Errorf("expected camera_id=0, got %v", argv)
	}
	for _, a := range argv {
		if strings.HasPrefix(a, "display_id=") {
			t.Errorf("did not expect display_id to be emitted when video_source=camera, got %v", argv)
		}
	}
}

func TestBuildArgvOrderedPrefix(t *testing.T) {
	argv := BuildArgv("/usr/bin/adb", "SERIAL", Options{SessionID: 1, ServerVersion: "3.1"})
	want := []string{"/usr/bin/adb", "-s", "SERIAL", "shell", "CLASSPATH=/data/local/tmp/scrcpy-server.jar", "app_process", "/", serverClassName, "3.1"}
	if len(argv) < len(want) {
		t.Fatalf("argv too short: %v", argv)
	}
	for i, w := range want {
		if argv[i] != w {
			t.Errorf("argv[%d] = %q, want %q", i, argv[i], w)
		}
	}
}
