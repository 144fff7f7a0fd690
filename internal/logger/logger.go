package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the logging level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Options configures the global logger.
type Options struct {
	Enabled bool
	Level   string
	File    string
	Console bool
}

type sink struct {
	level   Level
	logger  *log.Logger
	closer  io.Closer
	enabled bool
}

var (
	mu     sync.RWMutex
	global *sink
	now    = time.Now
)

// Init initializes the global logger. Calling it again replaces the previous
// sink and closes its log file.
func Init(opts Options) error {
	next := &sink{enabled: opts.Enabled}
	if opts.Enabled {
		var writers []io.Writer
		if opts.File != "" {
			dir := filepath.Dir(opts.File)
			if dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create log directory: %w", err)
				}
			}
			f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			writers = append(writers, f)
			next.closer = f
		}
		if opts.Console || len(writers) == 0 {
			writers = append(writers, os.Stdout)
		}
		next.level = ParseLevel(opts.Level)
		next.logger = log.New(io.MultiWriter(writers...), "", 0)
	}

	mu.Lock()
	prev := global
	global = next
	mu.Unlock()

	if prev != nil && prev.closer != nil {
		prev.closer.Close()
	}
	return nil
}

// SetOutput routes all levels at or above level to w. Intended for tests and
// embedding binaries that own their output.
func SetOutput(w io.Writer, level Level) {
	mu.Lock()
	global = &sink{level: level, logger: log.New(w, "", 0), enabled: true}
	mu.Unlock()
}

// ParseLevel maps a level name to a Level. Unknown names map to Info.
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func emit(level Level, component, format string, args ...interface{}) {
	mu.RLock()
	s := global
	mu.RUnlock()
	if s == nil || !s.enabled || s.level > level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if component != "" {
		msg = component + ": " + msg
	}
	s.logger.Printf("[%s] [%s] %s", now().Format("2006-01-02 15:04:05"), level, msg)
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { emit(Debug, "", format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { emit(Info, "", format, args...) }

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) { emit(Warn, "", format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { emit(Error, "", format, args...) }

// Component prefixes every message with a component name.
type Component struct {
	name string
}

// Named returns a component logger writing to the global sink.
func Named(name string) Component {
	return Component{name: name}
}

// Debugf logs a debug message.
func (c Component) Debugf(format string, args ...interface{}) { emit(Debug, c.name, format, args...) }

// Infof logs an info message.
func (c Component) Infof(format string, args ...interface{}) { emit(Info, c.name, format, args...) }

// Warnf logs a warning.
func (c Component) Warnf(format string, args ...interface{}) { emit(Warn, c.name, format, args...) }

// Errorf logs an error message.
func (c Component) Errorf(format string, args ...interface{}) { emit(Error, c.name, format, args...) }
