package log

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Reader streams events from a capture.
type Reader struct {
	dec     *cbor.Decoder
	closer  io.Closer
	filter  Filter
	created time.Time
}

// NewReader reads a capture from r, yielding only events matching filter.
// It fails with ErrNotCapture unless r starts with a capture header.
func NewReader(r io.Reader, filter Filter) (*Reader, error) {
	dec := decMode.NewDecoder(r)
	var hdr fileHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotCapture, err)
	}
	if hdr.Magic != captureMagic {
		return nil, ErrNotCapture
	}
	if hdr.Version > captureVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}
	return &Reader{dec: dec, filter: filter, created: hdr.Created}, nil
}

// OpenFile opens the capture at path. Close releases the file.
func OpenFile(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, filter)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// Created returns when the capture file was started.
func (r *Reader) Created() time.Time { return r.created }

// Next returns the next matching event, or io.EOF at the end of the
// capture. A capture cut off mid-event yields io.ErrUnexpectedEOF.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// All iterates the remaining matching events. Iteration stops after the
// first error, which is yielded; io.EOF is not.
func (r *Reader) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			event, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// ReadAll collects the remaining matching events.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for event, err := range r.All() {
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Close closes the file opened by OpenFile. It is a no-op for readers
// built with NewReader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
