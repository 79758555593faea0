package flog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
	None
)

var (
	level  atomic.Int32
	logger atomic.Pointer[zerolog.Logger]
)

func init() {
	level.Store(int32(Info))
	SetOutput(os.Stderr)
}

// SetOutput replaces the log sink. Output is human readable, one line per entry.
func SetOutput(w io.Writer) {
	l := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: true}).
		With().Timestamp().Logger()
	logger.Store(&l)
}

func SetLevel(l Level) {
	level.Store(int32(l))
}

func GetLevel() Level {
	return Level(level.Load())
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	case "fatal":
		return Fatal, nil
	case "none", "off":
		return None, nil
	}
	return Info, fmt.Errorf("unknown log level '%s'", s)
}

func Debugf(format string, args ...any) {
	logf(Debug, format, args...)
}

func Infof(format string, args ...any) {
	logf(Info, format, args...)
}

func Warnf(format string, args ...any) {
	logf(Warn, format, args...)
}

func Errorf(format string, args ...any) {
	logf(Error, format, args...)
}

// Fatalf logs and exits the process with status 1.
func Fatalf(format string, args ...any) {
	logf(Fatal, format, args...)
	os.Exit(1)
}

func logf(l Level, format string, args ...any) {
	if l < GetLevel() {
		return
	}
	lg := logger.Load()
	var ev *zerolog.Event
	switch l {
	case Debug:
		ev = lg.Debug()
	case Info:
		ev = lg.Info()
	case Warn:
		ev = lg.Warn()
	case Error:
		ev = lg.Error()
	default:
		// WithLevel keeps zerolog from exiting; Fatalf owns that.
		ev = lg.WithLevel(zerolog.FatalLevel)
	}
	ev.Msgf(format, args...)
}
