package logger

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is a subsystem logger. All messages are tagged with the subsystem
// name and filtered by the logger's level.
type Logger struct {
	tag     string
	level   uint32
	backend *LogBackend
}

var (
	registryMtx sync.Mutex
	registry    = make(map[string]*Logger)

	defaultBackend = NewBackend()
)

// RegisterSubSystem returns a logger for the given subsystem tag, creating
// it on first use. All subsystem loggers share the package backend.
func RegisterSubSystem(tag string) *Logger {
	registryMtx.Lock()
	defer registryMtx.Unlock()
	if log, ok := registry[tag]; ok {
		return log
	}
	log := &Logger{tag: tag, level: uint32(LevelInfo), backend: defaultBackend}
	registry[tag] = log
	return log
}

// SetLogLevels sets the log level on every registered subsystem logger.
func SetLogLevels(level Level) {
	registryMtx.Lock()
	defer registryMtx.Unlock()
	for _, log := range registry {
		log.SetLevel(level)
	}
}

// SubSystemTags returns the sorted tags of all registered subsystems.
func SubSystemTags() []string {
	registryMtx.Lock()
	defer registryMtx.Unlock()
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Backend returns the backend shared by all registered subsystem loggers.
func Backend() *LogBackend {
	return defaultBackend
}

// Level returns the current logging level of the logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32(&l.level))
}

// SetLevel changes the logging level of the logger.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32(&l.level, uint32(level))
}

func (l *Logger) print(level Level, args ...interface{}) {
	if level < l.Level() {
		return
	}
	l.backend.write(level, l.formatLine(level, fmt.Sprint(args...)))
}

func (l *Logger) printf(level Level, format string, args ...interface{}) {
	if level < l.Level() {
		return
	}
	l.backend.write(level, l.formatLine(level, fmt.Sprintf(format, args...)))
}

func (l *Logger) formatLine(level Level, message string) []byte {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return []byte(fmt.Sprintf("%s [%s] %s: %s\n", timestamp, level, l.tag, message))
}

// Tracef formats a message according to a format specifier and writes it
// with LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.printf(LevelTrace, format, args...)
}

// Debugf formats a message according to a format specifier and writes it
// with LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.printf(LevelDebug, format, args...)
}

// Infof formats a message according to a format specifier and writes it
// with LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.printf(LevelInfo, format, args...)
}

// Warnf formats a message according to a format specifier and writes it
// with LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.printf(LevelWarn, format, args...)
}

// Errorf formats a message according to a format specifier and writes it
// with LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.printf(LevelError, format, args...)
}

// Criticalf formats a message according to a format specifier and writes it
// with LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.printf(LevelCritical, format, args...)
}

// Trace writes a message with LevelTrace.
func (l *Logger) Trace(args ...interface{}) { l.print(LevelTrace, args...) }

// Debug writes a message with LevelDebug.
func (l *Logger) Debug(args ...interface{}) { l.print(LevelDebug, args...) }

// Info writes a message with LevelInfo.
func (l *Logger) Info(args ...interface{}) { l.print(LevelInfo, args...) }

// Warn writes a message with LevelWarn.
func (l *Logger) Warn(args ...interface{}) { l.print(LevelWarn, args...) }

// Error writes a message with LevelError.
func (l *Logger) Error(args ...interface{}) { l.print(LevelError, args...) }

// Critical writes a message with LevelCritical.
func (l *Logger) Critical(args ...interface{}) { l.print(LevelCritical, args...) }
