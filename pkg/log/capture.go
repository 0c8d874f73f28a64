package log

import (
	"bufio"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// flushInterval bounds how stale the on-disk capture may be while events
// keep arriving.
const flushInterval = time.Second

// CaptureWriter appends events to a capture file. Writes are buffered and
// flushed at most flushInterval apart, on Flush, and on Close. Encoding
// failures never reach the caller of Log; the first one is kept for Err.
type CaptureWriter struct {
	path string

	mu        sync.Mutex
	file      *os.File
	buf       *bufio.Writer
	enc       *cbor.Encoder
	lastFlush time.Time
	written   int
	err       error
}

// OpenCapture opens path for appending, creating it with a capture header
// when it does not exist or is empty.
func OpenCapture(path string) (*CaptureWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	w := &CaptureWriter{
		path:      path,
		file:      f,
		buf:       bufio.NewWriter(f),
		lastFlush: time.Now(),
	}
	w.enc = encMode.NewEncoder(w.buf)

	if info.Size() == 0 {
		hdr := fileHeader{Magic: captureMagic, Version: captureVersion, Created: time.Now().UTC()}
		if err := w.enc.Encode(hdr); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Path returns the capture file path.
func (w *CaptureWriter) Path() string { return w.path }

// Log appends event. Events logged after Close are dropped.
func (w *CaptureWriter) Log(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return
	}
	if err := w.enc.Encode(event); err != nil {
		w.keep(err)
		return
	}
	w.written++
	if time.Since(w.lastFlush) >= flushInterval {
		w.flushLocked()
	}
}

// Flush writes buffered events to the file.
func (w *CaptureWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.flushLocked()
}

// Written returns the number of events encoded so far.
func (w *CaptureWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Err returns the first write or encoding error, if any.
func (w *CaptureWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close flushes and closes the file. Repeated calls return nil.
func (w *CaptureWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	flushErr := w.flushLocked()
	closeErr := w.file.Close()
	w.file = nil
	return errors.Join(flushErr, closeErr)
}

func (w *CaptureWriter) flushLocked() error {
	w.lastFlush = time.Now()
	if err := w.buf.Flush(); err != nil {
		w.keep(err)
		return err
	}
	return nil
}

func (w *CaptureWriter) keep(err error) {
	if w.err == nil {
		w.err = err
	}
}
