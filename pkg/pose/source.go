package pose

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Source delivers frames one at a time. Next returns io.EOF when the
// source is exhausted. Any other error belongs to a single frame; the
// caller may keep reading.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Delivery is a frame or the error that replaced it.
type Delivery struct {
	Frame Frame
	Err   error
}

// ChanSource reads deliveries from a channel. A closed channel is EOF.
type ChanSource struct {
	ch        <-chan Delivery
	closeOnce sync.Once
	onClose   func() error
	closeErr  error
}

// NewChanSource wraps ch. onClose, if set, runs once on Close.
func NewChanSource(ch <-chan Delivery, onClose func() error) *ChanSource {
	return &ChanSource{ch: ch, onClose: onClose}
}

// Next blocks until a delivery arrives or ctx is done.
func (s *ChanSource) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case d, ok := <-s.ch:
		if !ok {
			return Frame{}, io.EOF
		}
		return d.Frame, d.Err
	}
}

func (s *ChanSource) Close() error {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.closeErr = s.onClose()
		}
	})
	return s.closeErr
}

// maxLine bounds one JSON-lines record; a full pose is a few KB.
const maxLine = 1 << 20

// FileSource reads JSON-lines frame recordings.
type FileSource struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
	done    bool
}

// OpenFile opens a recording on disk.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pose: open recording: %w", err)
	}
	s := NewReaderSource(f)
	s.closer = f
	return s, nil
}

// NewReaderSource reads JSON-lines frames from r.
func NewReaderSource(r io.Reader) *FileSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return &FileSource{scanner: sc}
}

// Next decodes the next non-blank line.
func (s *FileSource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if s.done {
			return Frame{}, io.EOF
		}
		if !s.scanner.Scan() {
			s.done = true
			if err := s.scanner.Err(); err != nil {
				return Frame{}, fmt.Errorf("pose: read recording: %w", err)
			}
			return Frame{}, io.EOF
		}
		s.line++
		line := s.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		f, err := Decode(line)
		if err != nil {
			return Frame{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		return f, nil
	}
}

func (s *FileSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// CountFrames returns the number of non-blank lines in a recording.
func CountFrames(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	n := 0
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) > 0 {
			n++
		}
	}
	return n, sc.Err()
}

// TimeoutSource yields an empty frame when src produces nothing within
// timeout, so a silent estimator reads as nobody in view.
type TimeoutSource struct {
	src     Source
	timeout time.Duration
}

// WithTimeout wraps src. A non-positive timeout returns src unchanged.
func WithTimeout(src Source, timeout time.Duration) Source {
	if timeout <= 0 {
		return src
	}
	return &TimeoutSource{src: src, timeout: timeout}
}

func (s *TimeoutSource) Next(ctx context.Context) (Frame, error) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	f, err := s.src.Next(tctx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return Frame{Timestamp: time.Now()}, nil
	}
	return f, err
}

func (s *TimeoutSource) Close() error {
	return s.src.Close()
}
