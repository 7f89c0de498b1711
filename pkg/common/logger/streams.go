package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Streams holds the two append-only event logs required alongside the
// structured log: one line per completed target, one line per failed
// attempt. Lines are timestamp-prefixed so both humans and downstream
// tooling can tail them.
type Streams struct {
	success *os.File
	failure *os.File
}

// OpenStreams opens (creating if needed) success.log and error.log under dir.
func OpenStreams(dir string) (*Streams, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	success, err := openAppend(filepath.Join(dir, "success.log"))
	if err != nil {
		return nil, err
	}
	failure, err := openAppend(filepath.Join(dir, "error.log"))
	if err != nil {
		success.Close()
		return nil, err
	}
	return &Streams{success: success, failure: failure}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Success appends one line to the success stream. Write errors are
// swallowed; the event streams must never affect run outcome.
func (s *Streams) Success(format string, args ...interface{}) {
	writeLine(s.success, format, args...)
}

// Failure appends one line to the error stream.
func (s *Streams) Failure(format string, args ...interface{}) {
	writeLine(s.failure, format, args...)
}

func writeLine(f *os.File, format string, args ...interface{}) {
	if f == nil {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "%s %s\n", ts, fmt.Sprintf(format, args...))
}

func (s *Streams) Close() {
	if s.success != nil {
		s.success.Close()
	}
	if s.failure != nil {
		s.failure.Close()
	}
}
