package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	logFileName = "voxnav.log"
	maxLogSize  = 10 * 1024 * 1024
)

// Log is the process-wide logger; packages derive component loggers from it
// Usable before Init with info level on stderr
var Log = newDefault()

// Config selects level, format and sink
// Empty fields fall back to LOG_LEVEL / LOG_FORMAT and stderr
type Config struct {
	Level  string // panic..trace
	Format string // "json" or "text"
	Dir    string // when set, logs go to Dir/voxnav.log with size rotation
	Quiet  bool   // discard output when no Dir is set (terminal tools)
}

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Init configures Log. Returns the opened log file (caller closes) or nil
func Init(cfg Config) (*os.File, error) {
	level := cfg.Level
	if level == "" {
		if env, ok := os.LookupEnv("LOG_LEVEL"); ok {
			level = env
		} else {
			level = "info"
		}
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)

	format := cfg.Format
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: cfg.Dir != "",
		})
	}

	if cfg.Dir == "" {
		if cfg.Quiet {
			Log.SetOutput(io.Discard)
		} else {
			Log.SetOutput(os.Stderr)
		}
		return nil, nil
	}

	f, err := openRotated(cfg.Dir)
	if err != nil {
		Log.SetOutput(io.Discard)
		return nil, err
	}
	Log.SetOutput(f)
	return f, nil
}

// For returns a logger entry tagged with the component name
func For(component string) *logrus.Entry {
	return Log.WithField("component", component)
}

// openRotated opens Dir/voxnav.log, moving an oversized previous file aside first
func openRotated(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: create dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, logFileName)
	if info, err := os.Stat(path); err == nil && info.Size() > maxLogSize {
		rotated := filepath.Join(dir, fmt.Sprintf("voxnav-%s.log", time.Now().Format("20060102-150405")))
		if err := os.Rename(path, rotated); err != nil {
			return nil, fmt.Errorf("logger: rotate %s: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	return f, nil
}
