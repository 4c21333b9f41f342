package logging

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

const DefaultMaxSize = 2 * 1024 * 1024

// RotatingWriter appends to a log file and moves it to path.1 once it grows
// past maxSize. One backup is kept.
type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
}

func NewRotatingWriter(logPath string, maxSize int64) (*RotatingWriter, error) {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	size := int64(0)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	return &RotatingWriter{
		file:    f,
		path:    logPath,
		size:    size,
		maxSize: maxSize,
	}, nil
}

// Setup mirrors the standard logger to stdout and a rotating file.
func Setup(logPath string) (*RotatingWriter, error) {
	rw, err := NewRotatingWriter(logPath, DefaultMaxSize)
	if err != nil {
		return nil, err
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rw))
	return rw, nil
}

// Write never calls into the log package: it runs while log holds its
// output lock. When the file cannot be reopened after rotation, all further
// output goes to stderr.
func (w *RotatingWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return os.Stderr.Write(p)
	}

	n, err = w.file.Write(p)
	w.size += int64(n)

	if w.size > w.maxSize {
		if rerr := w.rotate(); rerr != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", rerr)
		}
	}

	return n, err
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		w.file = nil
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}

	var renameErr error
	if err := os.Rename(w.path, w.path+".1"); err != nil {
		renameErr = fmt.Errorf("failed to move %s aside: %w", w.path, err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if renameErr != nil {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(w.path, flags, 0644)
	if err != nil {
		w.file = nil
		return errors.Join(renameErr, fmt.Errorf("failed to reopen %s: %w", w.path, err))
	}

	w.file = f
	w.size = 0
	return renameErr
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
