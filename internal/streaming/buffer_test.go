package streaming

import (
	"io"
	"testing"
	"time"
)

func TestSharedBufferAppendAndDownloaded(t *testing.T) {
	b := NewSharedBuffer(0)
	b.Append([]byte("hello"))
	b.Append([]byte(" world"))

	if got := b.Downloaded(); got != 11 {
		t.Errorf("Downloaded() = %d, want 11", got)
	}
}

func TestSharedBufferAppendAfterCompleteIsNoOp(t *testing.T) {
	b := NewSharedBuffer(0)
	b.Append([]byte("abc"))
	b.MarkComplete()
	b.Append([]byte("def"))

	if got := b.Downloaded(); got != 3 {
		t.Errorf("Downloaded() = %d, want 3 (append after complete must be ignored)", got)
	}
}

func TestStreamingBufferReadAvailableData(t *testing.T) {
	b := NewSharedBuffer(0)
	b.Append([]byte("0123456789"))
	b.MarkComplete()

	sb := NewStreamingBuffer(b)
	buf := make([]byte, 5)

	n, err := sb.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 5 || string(buf) != "01234" {
		t.Errorf("Read() = %d bytes %q, want 5 bytes \"01234\"", n, buf)
	}
}

func TestStreamingBufferReadReturnsEOFAtComplete(t *testing.T) {
	b := NewSharedBuffer(0)
	b.Append([]byte("abc"))
	b.MarkComplete()

	sb := NewStreamingBuffer(b)
	buf := make([]byte, 3)

	if _, err := sb.Read(buf); err != nil {
		t.Fatalf("first Read() error = %v", err)
	}
	if _, err := sb.Read(buf); err != io.EOF {
		t.Errorf("second Read() error = %v, want io.EOF", err)
	}
}

func TestStreamingBufferReadBlocksUntilDataArrives(t *testing.T) {
	b := NewSharedBuffer(0)
	sb := NewStreamingBuffer(b)

	done := make(chan struct{})
	var n int
	var err error
	go func() {
		buf := make([]byte, 10)
		n, err = sb.Read(buf)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	b.Append([]byte("data"))
	b.MarkComplete()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Read() did not unblock after data arrived")
	}

	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 4 {
		t.Errorf("Read() = %d bytes, want 4", n)
	}
}

func TestStreamingBufferReadAfterCancel(t *testing.T) {
	b := NewSharedBuffer(0)
	sb := NewStreamingBuffer(b)

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 10)
		_, err := sb.Read(buf)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	b.Cancel()

	select {
	case err := <-done:
		if err != ErrCancelled {
			t.Errorf("Read() error = %v, want ErrCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read() did not unblock after Cancel")
	}
}

func TestStreamingBufferSeekStartAndCurrent(t *testing.T) {
	b := NewSharedBuffer(0)
	b.Append([]byte("0123456789"))
	b.MarkComplete()
	sb := NewStreamingBuffer(b)

	pos, err := sb.Seek(5, SeekStart)
	if err != nil || pos != 5 {
		t.Fatalf("Seek(5, SeekStart) = %d, %v", pos, err)
	}

	pos, err = sb.Seek(2, SeekCurrent)
	if err != nil || pos != 7 {
		t.Fatalf("Seek(2, SeekCurrent) = %d, %v", pos, err)
	}

	buf := make([]byte, 3)
	n, err := sb.Read(buf)
	if err != nil || n != 3 || string(buf) != "789" {
		t.Errorf("Read() after seek = %d bytes %q, err %v", n, buf, err)
	}
}

func TestStreamingBufferSeekEndRequiresKnownSize(t *testing.T) {
	b := NewSharedBuffer(0)
	sb := NewStreamingBuffer(b)

	if _, err := sb.Seek(0, SeekEnd); err != ErrUnknownSize {
		t.Errorf("Seek(SeekEnd) error = %v, want ErrUnknownSize", err)
	}
}

func TestStreamingBufferSeekEndWithKnownTotalSize(t *testing.T) {
	b := NewSharedBuffer(100)
	sb := NewStreamingBuffer(b)

	pos, err := sb.Seek(-10, SeekEnd)
	if err != nil {
		t.Fatalf("Seek(SeekEnd) error = %v", err)
	}
	if pos != 90 {
		t.Errorf("Seek(-10, SeekEnd) = %d, want 90", pos)
	}
}

func TestStreamingBufferSeekNegativeClampsToZero(t *testing.T) {
	b := NewSharedBuffer(0)
	sb := NewStreamingBuffer(b)

	pos, err := sb.Seek(-5, SeekStart)
	if err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if pos != 0 {
		t.Errorf("Seek(-5, SeekStart) = %d, want clamped to 0", pos)
	}
}
