package launcher

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveServerPath locates the payload to push, following the same
// search order as the original server bring-up: an explicit environment
// override, then a file living next to the controlling executable (the
// portable-build layout), falling back to the current working directory.
func ResolveServerPath() (string, error) {
	if p := os.Getenv("SCRCPY_SERVER_PATH"); p != "" {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
		return "", fmt.Errorf("launcher: SCRCPY_SERVER_PATH=%q does not refer to a regular file", p)
	}

	const payloadName = "scrcpy-server"
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), payloadName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	if info, err := os.Stat(payloadName); err == nil && !info.IsDir() {
		return payloadName, nil
	}

	return "", fmt.Errorf("launcher: could not locate %q via SCRCPY_SERVER_PATH, executable-adjacent path, or working directory", payloadName)
}
