// Package logger provides a leveled logger carried through a
// context.Context, in the style of the teacher's own logger package: no
// package-level global, attach once at the CLI entrypoint and retrieve it
// wherever a ctx is already threaded through.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/scrcpy-go/scrcpy/color"
)

type LogLevel int

const (
	FatalLevel LogLevel = iota
	ErrorLevel
	WarningLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

func (l *LogLevel) String() string {
	switch *l {
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarningLevel:
		return "warning"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	case TraceLevel:
		return "trace"
	default:
		return "unknown"
	}
}

func (l *LogLevel) Set(s string) error {
	switch s {
	case "fatal":
		*l = FatalLevel
	case "error":
		*l = ErrorLevel
	case "warning", "warn":
		*l = WarningLevel
	case "info":
		*l = InfoLevel
	case "debug":
		*l = DebugLevel
	case "trace":
		*l = TraceLevel
	default:
		return fmt.Errorf("invalid log level %q", s)
	}
	return nil
}

// Logger writes leveled, optionally colorized messages to separate stdout
// and stderr sinks.
type Logger struct {
	level  LogLevel
	color  color.Color
	out    *log.Logger
	errOut *log.Logger
}

func NewLogger(level LogLevel, c color.Color, stdout, stderr io.Writer) *Logger {
	return &Logger{
		level:  level,
		color:  c,
		out:    log.New(stdout, "", log.Ldate|log.Lmicroseconds),
		errOut: log.New(stderr, "", log.Ldate|log.Lmicroseconds),
	}
}

func (l *Logger) logf(level LogLevel, dst *log.Logger, prefix string, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	dst.Output(3, prefix+fmt.Sprintf(format, args...))
}

func (l *Logger) Tracef(format string, args ...interface{}) {
	l.logf(TraceLevel, l.out, l.color.Gray("TRACE: "), format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(DebugLevel, l.out, "", format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(InfoLevel, l.out, "", format, args...)
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.logf(WarningLevel, l.errOut, l.color.Yellow("WARNING: "), format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(ErrorLevel, l.errOut, l.color.Red("ERROR: "), format, args...)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logf(FatalLevel, l.errOut, l.color.Red("FATAL: "), format, args...)
}

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// WithLogger attaches a Logger to ctx for retrieval by Infof/Errorf/etc.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// defaultLogger is used when no Logger has been attached to a context; it
// discards all output (info level, color disabled), so library code never
// panics for lack of ambient setup in tests.
var defaultLogger = NewLogger(InfoLevel, color.NewColor(color.ColorNever), io.Discard, io.Discard)

func fromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return defaultLogger
}

func Tracef(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Tracef(format, args...)
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Debugf(format, args...)
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Infof(format, args...)
}

func Warningf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Warningf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Errorf(format, args...)
}
