package log

import (
	"fmt"
	"io"
	"os"
)

type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	}
	return fmt.Sprintf("LEVEL(%d)", int8(l))
}

// Logger is the sink every engine component writes to.
type Logger interface {
	Log(level Level, msg string)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	// WithStack logs a recovered panic value with the current stack and exits
	WithStack(err any)
	SetOutput(output io.Writer)
}

var (
	DefaultLogger Logger = NewZap(InfoLevel, os.Stderr)
	DebugLogger   Logger = NewZap(DebugLevel, os.Stdout)
	DiscardLogger Logger = discardLogger{}
)
