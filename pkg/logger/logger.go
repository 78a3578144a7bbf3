package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	DebugLogger = log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	InfoLogger  = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	WarnLogger  = log.New(os.Stdout, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)

	level atomic.Int32
)

func init() {
	level.Store(int32(LevelInfo))
}

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	level.Store(int32(l))
}

// SetOutput redirects every level to w. Tests use it to silence or capture logs.
func SetOutput(w io.Writer) {
	for _, l := range []*log.Logger{DebugLogger, InfoLogger, WarnLogger, ErrorLogger} {
		l.SetOutput(w)
	}
}

func enabled(l Level) bool {
	return Level(level.Load()) <= l
}

// calldepth 2 makes Lshortfile point at the caller of Debug/Info/...
func Debug(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		_ = DebugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		_ = InfoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Warn(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		_ = WarnLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func Error(format string, v ...interface{}) {
	if enabled(LevelError) {
		_ = ErrorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}
