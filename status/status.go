// Basic logging infrastructure shared by the reporting tools.

package status

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// LogLevel indicates the level of logging that should be done.

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelCritical
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarning:
		return "warning"
	case LogLevelError:
		return "error"
	case LogLevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Implementations of this must be thread-safe.
type Logger interface {
	// Print only messages at level l or above
	SetLevel(l LogLevel)

	// Lower log level at least to l
	LowerLevelTo(l LogLevel)

	// Current level
	Level() LogLevel

	// Print on this stream, if installed
	SetStderr(w io.Writer)

	// Prefix every message printed on the stream, typically with the program name
	SetPrefix(p string)

	// Print on this underlying (simpler) logger, if installed.
	SetUnderlying(w UnderlyingLogger)

	// Print at various levels.  None of these must exit or panic, the name indicates the log level
	// only.
	Debug(xs ...any)
	Debugf(format string, args ...any)

	Info(xs ...any)
	Infof(format string, args ...any)

	Warning(xs ...any)
	Warningf(format string, args ...any)

	Error(xs ...any)
	Errorf(format string, args ...any)

	Critical(xs ...any)
	Criticalf(format string, args ...any)
}

// Typically the underlying logger would be a syslog thing, and it has a simpler interface.  In
// particular, log/syslog implements UnderlyingLogger.  An underlying logger must be thread-safe.
type UnderlyingLogger interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
	Crit(m string) error
}

type StandardLogger struct {
	sync.Mutex
	level      LogLevel
	prefix     string
	stderr     io.Writer
	underlying UnderlyingLogger
}

// NewLogger returns a logger printing messages at level `level` and above on `stderr`.
func NewLogger(level LogLevel, stderr io.Writer) *StandardLogger {
	return &StandardLogger{level: level, stderr: stderr}
}

// MT: Constant after initialization, thread-safe.
var defaultLogger Logger = NewLogger(LogLevelWarning, os.Stderr)

func Default() Logger {
	return defaultLogger
}

func (sl *StandardLogger) SetLevel(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()

	sl.level = l
}

func (sl *StandardLogger) LowerLevelTo(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level > l {
		sl.level = l
	}
}

func (sl *StandardLogger) Level() LogLevel {
	sl.Lock()
	defer sl.Unlock()

	return sl.level
}

func (sl *StandardLogger) SetStderr(stderr io.Writer) {
	sl.Lock()
	defer sl.Unlock()

	sl.stderr = stderr
}

func (sl *StandardLogger) SetPrefix(p string) {
	sl.Lock()
	defer sl.Unlock()

	sl.prefix = p
}

func (sl *StandardLogger) SetUnderlying(underlying UnderlyingLogger) {
	sl.Lock()
	defer sl.Unlock()

	sl.underlying = underlying
}

// The message is formatted only if it is going to be printed.
func (sl *StandardLogger) emit(l LogLevel, format func() string) {
	sl.Lock()
	defer sl.Unlock()

	if l < sl.level {
		return
	}
	s := format()
	if sl.stderr != nil {
		if sl.prefix != "" {
			fmt.Fprintf(sl.stderr, "%s: %s\n", sl.prefix, s)
		} else {
			fmt.Fprintln(sl.stderr, s)
		}
	}
	if sl.underlying != nil {
		switch l {
		case LogLevelDebug:
			sl.underlying.Debug(s)
		case LogLevelInfo:
			sl.underlying.Info(s)
		case LogLevelWarning:
			sl.underlying.Warning(s)
		case LogLevelError:
			sl.underlying.Err(s)
		default:
			sl.underlying.Crit(s)
		}
	}
}

func (sl *StandardLogger) Critical(xs ...any) {
	sl.emit(LogLevelCritical, func() string { return fmt.Sprint(xs...) })
}

func (sl *StandardLogger) Criticalf(format string, args ...any) {
	sl.emit(LogLevelCritical, func() string { return fmt.Sprintf(format, args...) })
}

func (sl *StandardLogger) Error(xs ...any) {
	sl.emit(LogLevelError, func() string { return fmt.Sprint(xs...) })
}

func (sl *StandardLogger) Errorf(format string, args ...any) {
	sl.emit(LogLevelError, func() string { return fmt.Sprintf(format, args...) })
}

func (sl *StandardLogger) Warning(xs ...any) {
	sl.emit(LogLevelWarning, func() string { return fmt.Sprint(xs...) })
}

func (sl *StandardLogger) Warningf(format string, args ...any) {
	sl.emit(LogLevelWarning, func() string { return fmt.Sprintf(format, args...) })
}

func (sl *StandardLogger) Info(xs ...any) {
	sl.emit(LogLevelInfo, func() string { return fmt.Sprint(xs...) })
}

func (sl *StandardLogger) Infof(format string, args ...any) {
	sl.emit(LogLevelInfo, func() string { return fmt.Sprintf(format, args...) })
}

func (sl *StandardLogger) Debug(xs ...any) {
	sl.emit(LogLevelDebug, func() string { return fmt.Sprint(xs...) })
}

func (sl *StandardLogger) Debugf(format string, args ...any) {
	sl.emit(LogLevelDebug, func() string { return fmt.Sprintf(format, args...) })
}
