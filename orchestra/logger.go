package orchestra

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Logger is the minimal sink the engine logs through. Implementations must
// be safe for concurrent use; the engine never logs from the render path.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// NopLogger discards everything. It is the default when no logger is given.
func NopLogger() Logger { return nopLogger{} }

// writerLogger prefixes each line with a timestamp and level tag.
type writerLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterLogger logs timestamped lines to w.
func NewWriterLogger(w io.Writer) Logger {
	return &writerLogger{w: w}
}

func (l *writerLogger) logf(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s [%s] %s\n",
		time.Now().Format("15:04:05.000"), level, fmt.Sprintf(format, args...))
}

func (l *writerLogger) Debugf(format string, args ...any) { l.logf("DEBUG", format, args...) }
func (l *writerLogger) Infof(format string, args ...any)  { l.logf("INFO", format, args...) }
func (l *writerLogger) Warnf(format string, args ...any)  { l.logf("WARN", format, args...) }
func (l *writerLogger) Errorf(format string, args ...any) { l.logf("ERROR", format, args...) }
