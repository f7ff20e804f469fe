package main

import (
	"context"
	"flag"
	"math/rand"

	"github.com/google/subcommands"

	"github.com/scrcpy-go/scrcpy/command"
	"github.com/scrcpy-go/scrcpy/controller"
	"github.com/scrcpy-go/scrcpy/launcher"
	"github.com/scrcpy-go/scrcpy/logger"
)

// RunCommand brings up a single device mirroring session and blocks
// until it is interrupted, matching the shape of the teacher's own
// RunCommand (boot a target, block on it, clean up on the way out).
type RunCommand struct {
	serial      string
	usbOnly     bool
	tcpipOnly   bool
	tcpip       bool
	tcpipDst    string

	noVideo   bool
	noAudio   bool
	noControl bool

	videoCodec string
	audioCodec string
	maxSize    int
	maxFPS     int
	videoBitRate int
	audioBitRate int
	lockOrientation int

	displayID      int
	camera         string
	cameraPosition string

	forceForward bool
	portRangeLo  int
	portRangeHi  int

	killBridgeOnClose bool
	killServerArgs    command.StringsFlag

	listEncoders bool
	listDisplays bool
	listCameras  bool

	configFile  string
	configIndex int
}

func (*RunCommand) Name() string     { return "run" }
func (*RunCommand) Synopsis() string { return "mirrors a device: selects it, pushes the payload, opens a tunnel, and streams" }
func (*RunCommand) Usage() string {
	return `scrcpyctl run [flags...]
`
}

func (r *RunCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.serial, "serial", "", "select the device with this exact serial")
	f.BoolVar(&r.usbOnly, "usb", false, "select a USB-attached device (error if none or more than one)")
	f.BoolVar(&r.tcpipOnly, "tcpip-only", false, "select a TCP/IP-attached device (error if none or more than one)")
	f.BoolVar(&r.tcpip, "tcpip", false, "switch the selected device to a TCP/IP transport before proceeding")
	f.StringVar(&r.tcpipDst, "tcpip-dst", "", "connect directly to this HOST[:PORT] instead of selecting an attached device")

	f.BoolVar(&r.noVideo, "no-video", false, "disable the video stream")
	f.BoolVar(&r.noAudio, "no-audio", false, "disable the audio stream")
	f.BoolVar(&r.noControl, "no-control", false, "disable the control stream")

	f.StringVar(&r.videoCodec, "video-codec", "", "h264, h265, or av1 (default h264)")
	f.StringVar(&r.audioCodec, "audio-codec", "", "opus, aac, or raw (default opus)")
	f.IntVar(&r.maxSize, "max-size", 0, "limit the longest video dimension, in pixels (0 = unlimited)")
	f.IntVar(&r.maxFPS, "max-fps", 0, "limit the capture frame rate (0 = unlimited)")
	f.IntVar(&r.videoBitRate, "video-bit-rate", 0, "video bit rate, in bits/second (0 = server default)")
	f.IntVar(&r.audioBitRate, "audio-bit-rate", 0, "audio bit rate, in bits/second (0 = server default)")
	f.IntVar(&r.lockOrientation, "lock-orientation", 0, "lock the captured video orientation (0 = unlocked)")

	f.IntVar(&r.displayID, "display-id", 0, "capture this display instead of the default one")
	f.StringVar(&r.camera, "camera", "", "capture this camera id instead of a display; takes precedence over -display-id")
	f.StringVar(&r.cameraPosition, "camera-position", "", "front, back, or external")

	f.BoolVar(&r.forceForward, "force-forward", false, "use a forward tunnel instead of attempting reverse first")
	f.IntVar(&r.portRangeLo, "port-lo", controller.DefaultPortRange[0], "lower bound of the local tunnel port range")
	f.IntVar(&r.portRangeHi, "port-hi", controller.DefaultPortRange[1], "upper bound of the local tunnel port range")

	f.BoolVar(&r.killBridgeOnClose, "kill-bridge-on-close", false, "stop the bridge daemon once the session ends")
	f.Var(&r.killServerArgs, "kill-server-arg", "extra argument to pass to `adb kill-server` on close (repeatable)")

	f.BoolVar(&r.listEncoders, "list-encoders", false, "list the device's available video/audio encoders and exit")
	f.BoolVar(&r.listDisplays, "list-displays", false, "list the device's available displays and exit")
	f.BoolVar(&r.listCameras, "list-cameras", false, "list the device's available cameras and exit")

	f.StringVar(&r.configFile, "config", "", "load the run configuration from this JSON file instead of the flags above")
	f.IntVar(&r.configIndex, "config-index", 0, "when -config holds a list, the entry to use")
}

func (r *RunCommand) toConfig() controller.Config {
	videoSource := launcher.VideoSourceDisplay
	if r.camera != "" {
		videoSource = launcher.VideoSourceCamera
	}
	audioSource := launcher.AudioSourceOutput

	return controller.Config{
		SessionID:       rand.Uint32(),
		RequestedSerial: r.serial,
		SelectUSB:       r.usbOnly,
		SelectTCPIP:     r.tcpipOnly,
		TCPIPEnable:     r.tcpip,
		TCPIPDst:        r.tcpipDst,
		Options: launcher.Options{
			ServerVersion:     serverVersion,
			VideoEnabled:      !r.noVideo,
			AudioEnabled:      !r.noAudio,
			ControlEnabled:    !r.noControl,
			ClipboardAutosync: true,
			DownsizeOnError:   true,
			Cleanup:           true,
			PowerOn:           true,
			VideoBitRate:      r.videoBitRate,
			AudioBitRate:      r.audioBitRate,
			MaxSize:           r.maxSize,
			MaxFPS:            r.maxFPS,
			LockedOrientation: r.lockOrientation,
			VideoCodec:        r.videoCodec,
			AudioCodec:        r.audioCodec,
			VideoSource:       videoSource,
			AudioSource:       audioSource,
			DisplayID:         r.displayID,
			CameraID:          r.camera,
			CameraPosition:    r.cameraPosition,
			ListEncoders:      r.listEncoders,
			ListDisplays:      r.listDisplays,
			ListCameras:       r.listCameras,
		},
		ForceForwardTunnel: r.forceForward,
		PortRange:          [2]int{r.portRangeLo, r.portRangeHi},
		KillBridgeOnClose:  r.killBridgeOnClose,
		KillServerArgs:     []string(r.killServerArgs),
	}
}

// serverVersion is the payload version string emitted on the remote
// invocation's command line; it must match the pushed payload.
const serverVersion = "3.1"

type cliListener struct {
	done chan error
}

func (l *cliListener) OnConnectionFailed(ctx context.Context, err error) {
	l.done <- err
}

func (l *cliListener) OnConnected(ctx context.Context) {
	logger.Infof(ctx, "connected")
}

func (l *cliListener) OnDisconnected(ctx context.Context, err error) {
	l.done <- err
}

func (r *RunCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if r.camera != "" && r.displayID != 0 {
		logger.Warningf(ctx, "both -camera and -display-id given; camera takes precedence")
	}

	cfg := r.toConfig()
	if r.configFile != "" {
		configs, err := controller.LoadConfigs(r.configFile)
		if err != nil {
			logger.Errorf(ctx, "%v", err)
			return subcommands.ExitUsageError
		}
		if r.configIndex < 0 || r.configIndex >= len(configs) {
			logger.Errorf(ctx, "-config-index %d out of range for %d entries in %q", r.configIndex, len(configs), r.configFile)
			return subcommands.ExitUsageError
		}
		cfg = configs[r.configIndex]
	}
	listener := &cliListener{done: make(chan error, 1)}

	c, err := controller.New(cfg, listener)
	if err != nil {
		logger.Errorf(ctx, "invalid configuration: %v", err)
		return subcommands.ExitUsageError
	}

	c.Start(ctx)
	defer c.Destroy()

	// A discovery query reports completion through OnConnected only, so
	// wait for the worker itself to finish instead of for listener.done.
	if cfg.Options.ListEncoders || cfg.Options.ListDisplays || cfg.Options.ListCameras {
		if err := c.Join(); err != nil {
			logger.Errorf(ctx, "discovery query failed: %v", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	select {
	case err := <-listener.done:
		if err != nil {
			logger.Errorf(ctx, "session ended with error: %v", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	case <-ctx.Done():
		c.Stop()
		c.Join()
		return subcommands.ExitFailure
	}
}
