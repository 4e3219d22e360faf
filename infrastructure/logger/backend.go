package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
)

const (
	defaultThresholdKB = 10 * 1000 // 10 MB log files by default.
	defaultMaxRolls    = 8         // keep the 8 most recent log files.
)

type logWriter struct {
	io.WriteCloser
	level Level
}

// LogBackend is a logging backend. Subsystem loggers created from the backend
// write to the backend's writers. The backend serializes writes so that
// lines from different subsystems do not interleave.
type LogBackend struct {
	mtx     sync.Mutex
	writers []logWriter
}

// NewBackend creates a new logger backend with no writers attached.
func NewBackend() *LogBackend {
	return &LogBackend{}
}

// AddLogWriter attaches an io.WriteCloser which receives every log line at
// or above the given level.
func (b *LogBackend) AddLogWriter(writer io.WriteCloser, level Level) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.writers = append(b.writers, logWriter{WriteCloser: writer, level: level})
}

// AddLogFile attaches a rotated log file which receives every log line at
// or above the given level. The file and its directory are created if they
// don't exist.
func (b *LogBackend) AddLogFile(logFile string, level Level) error {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		err := os.MkdirAll(logDir, 0700)
		if err != nil {
			return errors.Wrapf(err, "failed to create log directory %s", logDir)
		}
	}
	r, err := rotator.New(logFile, defaultThresholdKB, false, defaultMaxRolls)
	if err != nil {
		return errors.Wrapf(err, "failed to create file rotator for %s", logFile)
	}
	b.AddLogWriter(r, level)
	return nil
}

func (b *LogBackend) write(level Level, line []byte) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	for _, writer := range b.writers {
		if level >= writer.level {
			_, _ = writer.Write(line)
		}
	}
}

// Close finalizes all writers attached to this backend.
func (b *LogBackend) Close() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	for _, writer := range b.writers {
		_ = writer.Close()
	}
	b.writers = nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NopCloserWriter wraps a plain io.Writer (such as os.Stdout) so it can be
// attached to a backend.
func NopCloserWriter(w io.Writer) io.WriteCloser {
	return nopWriteCloser{w}
}
