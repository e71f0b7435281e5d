// Package streaming implements the producer/consumer byte buffer that lets a
// decoder read audio while a network downloader writes it: a condvar-guarded
// SharedBuffer written by the download task, read through a per-reader
// StreamingBuffer cursor, with temp-file/rename cache finalization.
package streaming

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrCancelled is returned by reads against a cancelled SharedBuffer.
var ErrCancelled = errors.New("streaming: cancelled")

// pollTimeout bounds how long read_at waits on the condition variable before
// re-checking state; it is a safety net against a missed broadcast, not the
// primary wakeup mechanism (which is cond.Broadcast on every append/cancel/complete).
const pollTimeout = 100 * time.Millisecond

// SharedBuffer is a mutable byte vector, shared by pointer, with progress metadata
// and a condition-variable notifier. The type does not limit its readers: several
// independent StreamingBuffer cursors may read from it concurrently.
type SharedBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	data       []byte
	totalSize  int64
	downloaded int64
	complete   bool
	cancelled  bool
	err        error
}

// NewSharedBuffer creates an empty buffer. totalSize may be 0 if the advertised length
// is not yet known (e.g. before the GET response headers arrive).
func NewSharedBuffer(totalSize int64) *SharedBuffer {
	b := &SharedBuffer{totalSize: totalSize}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Append copies chunk into the buffer, advances downloaded, and wakes waiters.
// It is a no-op once the buffer is complete (the downloader must not call it again).
func (b *SharedBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	if b.complete {
		b.mu.Unlock()
		return
	}
	b.data = append(b.data, chunk...)
	b.downloaded += int64(len(chunk))
	b.mu.Unlock()
	b.cond.Broadcast()
}

// SetTotalSize records the advertised length once known (e.g. from Content-Length).
func (b *SharedBuffer) SetTotalSize(n int64) {
	b.mu.Lock()
	b.totalSize = n
	b.mu.Unlock()
}

// MarkComplete sets the terminal complete flag and wakes waiters. Idempotent.
func (b *SharedBuffer) MarkComplete() {
	b.mu.Lock()
	b.complete = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// SetError records a terminal error and wakes waiters.
func (b *SharedBuffer) SetError(err error) {
	b.mu.Lock()
	if b.err == nil {
		b.err = err
	}
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Cancel is a terminal, one-way flag; waiting readers observe it and error out.
func (b *SharedBuffer) Cancel() {
	b.mu.Lock()
	b.cancelled = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Downloaded returns the monotonically increasing byte count written so far.
func (b *SharedBuffer) Downloaded() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.downloaded
}

// TotalSize returns the advertised length, or 0 if unknown.
func (b *SharedBuffer) TotalSize() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalSize
}

// IsComplete reports whether the download finished successfully.
func (b *SharedBuffer) IsComplete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.complete
}

// readAt is the blocking read with a 100ms poll timeout,
// re-evaluating state on each wake so no broadcast can be missed.
func (b *SharedBuffer) readAt(pos int64, buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		if b.cancelled {
			return 0, ErrCancelled
		}
		if b.err != nil {
			return 0, b.err
		}
		if b.complete && pos >= b.downloaded {
			return 0, nil // EOF
		}
		if pos < b.downloaded {
			n := b.downloaded - pos
			if int64(len(buf)) < n {
				n = int64(len(buf))
			}
			copy(buf, b.data[pos:pos+n])
			return int(n), nil
		}

		// pos >= downloaded, not complete, not errored: block with a timeout-bounded wait.
		// A timer broadcasts the condition after pollTimeout as a safety net in case an
		// append/cancel/complete broadcast was missed; cond.Wait itself must be called
		// on this goroutine since it owns the lock.
		timer := time.AfterFunc(pollTimeout, func() {
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		})
		b.cond.Wait()
		timer.Stop()
	}
}

// SeekFrom mirrors io.Seek's whence constants for StreamingBuffer.Seek.
type SeekFrom int

const (
	SeekStart SeekFrom = iota
	SeekCurrent
	SeekEnd
)

// StreamingBuffer is a per-reader cursor wrapping a SharedBuffer.
type StreamingBuffer struct {
	buf      *SharedBuffer
	position int64
}

// NewStreamingBuffer wraps buf with a cursor starting at 0.
func NewStreamingBuffer(buf *SharedBuffer) *StreamingBuffer {
	return &StreamingBuffer{buf: buf}
}

// ReadAt reads through the cursor, blocking until data arrives, and advances position.
func (s *StreamingBuffer) ReadAt(p []byte) (int, error) {
	n, err := s.buf.readAt(s.position, p)
	s.position += int64(n)
	return n, err
}

// Read implements io.Reader in terms of ReadAt.
func (s *StreamingBuffer) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p)
	if err == nil && n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, err
}

// Seek purely updates the cursor; seeking past downloaded is legal and the next read
// blocks until data arrives. SeekEnd requires a known size: downloaded when complete,
// otherwise totalSize; fails with ErrUnknownSize if both are zero.
func (s *StreamingBuffer) Seek(offset int64, whence SeekFrom) (int64, error) {
	switch whence {
	case SeekStart:
		s.position = offset
	case SeekCurrent:
		s.position += offset
	case SeekEnd:
		s.buf.mu.Lock()
		size := s.buf.downloaded
		if !s.buf.complete && s.buf.totalSize > 0 {
			size = s.buf.totalSize
		}
		known := s.buf.complete || s.buf.totalSize > 0
		s.buf.mu.Unlock()
		if !known {
			return s.position, ErrUnknownSize
		}
		s.position = size + offset
	default:
		return s.position, errors.New("streaming: invalid whence")
	}
	if s.position < 0 {
		s.position = 0
	}
	return s.position, nil
}

// Position returns the current cursor position.
func (s *StreamingBuffer) Position() int64 { return s.position }

// ErrUnknownSize is returned by Seek(SeekEnd) when neither downloaded-and-complete
// nor an advertised total size is available.
var ErrUnknownSize = errors.New("streaming: seek from end requires a known size")
