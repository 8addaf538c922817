// Package log wraps logrus with the formatter and level handling CyberCache
// uses across its service threads (signal handler, listener, binlog,
// replicators, optimizers, tag manager, workers).
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Core is the main logger, used for general and debug output.
	Core *logrus.Logger
	// Info is the info-level logger (stdout and/or info log file).
	Info *logrus.Logger
	// Err is the error-level logger (stderr and/or error log file).
	Err *logrus.Logger
)

// Config configures the three loggers.
type Config struct {
	ErrorLogPath string
	InfoLogPath  string
	Level        string // debug|info|warn|error|fatal|panic
}

type ccFormatter struct{}

func (f *ccFormatter) Format(e *logrus.Entry) ([]byte, error) {
	timestamp := e.Time.Format("15:04:05 MST 2006/01/02")
	level := strings.ToUpper(e.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	return []byte(fmt.Sprintf("[%s] [%s] (%s) %s\n", timestamp, level, caller(), e.Message)), nil
}

func caller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "/logrus/") || strings.Contains(file, "internal/log/log.go") ||
			strings.Contains(file, "sirupsen") || strings.Contains(file, "/entry.go") {
			continue
		}
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), runtime.FuncForPC(pc).Name(), line)
	}
	return "unknown:unknown:0"
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// Init configures Core/Info/Err according to cfg. Safe to call once at
// startup; not safe to call concurrently with logging calls.
func Init(cfg Config) error {
	formatter := &ccFormatter{}
	lvl := parseLevel(cfg.Level)

	Core = logrus.New()
	Core.SetFormatter(formatter)
	Core.SetLevel(lvl)

	Info = logrus.New()
	Info.SetFormatter(formatter)
	Info.SetLevel(lvl)

	Err = logrus.New()
	Err.SetFormatter(formatter)
	Err.SetLevel(lvl)

	if cfg.InfoLogPath != "" {
		f, err := openLogFile(cfg.InfoLogPath)
		if err != nil {
			Info.SetOutput(os.Stdout)
			Info.Warnf("failed to open info log %s, falling back to stdout: %v", cfg.InfoLogPath, err)
		} else {
			Info.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	} else {
		Info.SetOutput(os.Stdout)
	}

	if cfg.ErrorLogPath != "" {
		f, err := openLogFile(cfg.ErrorLogPath)
		if err != nil {
			Err.SetOutput(os.Stderr)
			Err.Warnf("failed to open error log %s, falling back to stderr: %v", cfg.ErrorLogPath, err)
		} else {
			Err.SetOutput(io.MultiWriter(os.Stderr, f))
		}
	} else {
		Err.SetOutput(os.Stderr)
	}

	Core.SetOutput(Info.Out)
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

func Debugf(format string, args ...interface{}) {
	if Core != nil {
		Core.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if Info != nil {
		Info.Infof(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Core != nil {
		Core.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if Err != nil {
		Err.Errorf(format, args...)
	}
}

func Fatalf(format string, args ...interface{}) {
	if Err != nil {
		Err.Fatalf(format, args...)
	}
}
