// Package sink persists HAR entries into an append-only archive file.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/harfire/internal/har"
)

const (
	creatorName    = "harfire"
	creatorVersion = "0.1.0"
)

// ErrSinkClosed is returned when an entry is appended after Close.
var ErrSinkClosed = errors.New("trace sink is closed")

// WriteError wraps an I/O failure while persisting or finalizing the archive.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("trace sink %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Sink is an append-only destination for recorded entries. Implementations
// own the persisted representation; callers only hand over Entry values.
type Sink interface {
	Append(entry *har.Entry) error
	Close() error
}

// FileSink streams entries into a single HAR 1.2 document on disk. The target
// file is held under an advisory lock for the sink's lifetime so concurrently
// created captures cannot interleave writes into the same archive.
//
// Append is safe for concurrent use, though entry order then follows append
// order rather than call order.
type FileSink struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	lock    *flock.Flock
	entries int
	closed  bool
}

var _ Sink = (*FileSink)(nil)

// DefaultPath generates a trace file name from a coarse UTC timestamp and a
// ULID suffix, unique enough for many captures created within the same minute.
func DefaultPath() string {
	stamp := time.Now().UTC().Format("20060102T1504")
	return fmt.Sprintf("harfire_trace_%s_%s.har", stamp, ulid.Make().String())
}

// NewFileSink opens an archive at path, or at a generated default path when
// path is empty, and writes the document preamble. The returned sink must be
// closed to produce a well-formed archive.
func NewFileSink(path string) (*FileSink, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &WriteError{Op: "lock", Path: path, Err: err}
	}
	if !locked {
		return nil, &WriteError{Op: "lock", Path: path, Err: errors.New("archive is in use by another capture")}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
		return nil, &WriteError{Op: "open", Path: path, Err: err}
	}

	preamble := fmt.Sprintf(
		`{"log":{"version":"1.2","creator":{"name":%q,"version":%q},"entries":[`,
		creatorName, creatorVersion,
	)
	if _, err := file.WriteString(preamble); err != nil {
		_ = file.Close()
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
		return nil, &WriteError{Op: "write", Path: path, Err: err}
	}

	return &FileSink{path: path, file: file, lock: lock}, nil
}

// Path returns the resolved archive path.
func (s *FileSink) Path() string { return s.path }

// Append serializes one entry into the archive.
func (s *FileSink) Append(entry *har.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if entry == nil {
		return &WriteError{Op: "append", Path: s.path, Err: errors.New("entry cannot be nil")}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return &WriteError{Op: "append", Path: s.path, Err: err}
	}

	framing := "\n"
	if s.entries > 0 {
		framing = ",\n"
	}
	if _, err := s.file.WriteString(framing); err != nil {
		return &WriteError{Op: "append", Path: s.path, Err: err}
	}
	if _, err := s.file.Write(data); err != nil {
		return &WriteError{Op: "append", Path: s.path, Err: err}
	}

	s.entries++
	return nil
}

// Close finalizes the document and releases the file and its lock. A second
// Close is a no-op; previously appended entries are never affected.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if _, err := s.file.WriteString("\n]}}\n"); err != nil && firstErr == nil {
		firstErr = &WriteError{Op: "finalize", Path: s.path, Err: err}
	}
	if err := s.file.Sync(); err != nil && firstErr == nil {
		firstErr = &WriteError{Op: "finalize", Path: s.path, Err: err}
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = &WriteError{Op: "close", Path: s.path, Err: err}
	}

	_ = s.lock.Unlock()
	_ = os.Remove(s.lock.Path())

	return firstErr
}
