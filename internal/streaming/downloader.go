package streaming

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Alexander-D-Karpov/waveline/internal/logx"
)

// DefaultHighWaterKiB is the playable threshold: a fixed byte count rather
// than a duration-based heuristic, so low-bitrate streams start a little
// late rather than hi-res streams starting too early.
const DefaultHighWaterKiB = 400

// Downloader issues a GET, writes response body chunks into a SharedBuffer and a
// tempfile, and emits events as it goes. The tempfile is renamed into place
// only after the download completes and the format is known.
type Downloader struct {
	client        *retryablehttp.Client
	highWaterKiB  int64
	log           *logx.Logger
}

// NewDownloader builds a Downloader with bounded retries and a silent
// (non-debug) logger by default.
func NewDownloader(debug bool) *Downloader {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.HTTPClient.Timeout = 0 // streaming body: no overall deadline, rely on context
	if !debug {
		c.Logger = nil
	}
	return &Downloader{
		client:       c,
		highWaterKiB: DefaultHighWaterKiB,
		log:          logx.New("STREAM", debug),
	}
}

// Start begins the download in a background goroutine, writing into buf and into
// destPath+".tmp", finalizing to destPath on success. Returns the buffer and the
// event channel.
func (d *Downloader) Start(ctx context.Context, url, destPath string) (*SharedBuffer, <-chan Event) {
	buf := NewSharedBuffer(0)
	events := make(chan Event, 16)
	go d.run(ctx, url, destPath, buf, events)
	return buf, events
}

func (d *Downloader) run(ctx context.Context, url, destPath string, buf *SharedBuffer, events chan<- Event) {
	defer close(events)

	tmpPath := destPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		buf.SetError(err)
		events <- Event{Kind: EventError, Err: err}
		return
	}
	tmp, err := os.Create(tmpPath)
	if err != nil {
		buf.SetError(err)
		events <- Event{Kind: EventError, Err: err}
		return
	}
	defer tmp.Close()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		buf.SetError(err)
		events <- Event{Kind: EventError, Err: err}
		return
	}
	req.Header.Set("Accept", "audio/mpeg, audio/mp4, audio/*")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := d.client.Do(req)
	if err != nil {
		buf.SetError(err)
		events <- Event{Kind: EventError, Err: err}
		os.Remove(tmpPath)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		err = fmt.Errorf("streaming: HTTP %d: %s", resp.StatusCode, resp.Status)
		buf.SetError(err)
		events <- Event{Kind: EventError, Err: err}
		os.Remove(tmpPath)
		return
	}

	// Content length is taken only from the GET response, never a HEAD.
	if cl := resp.ContentLength; cl > 0 {
		buf.SetTotalSize(cl)
	}

	playableEmitted := false
	chunk := make([]byte, 64*1024)
	var detector formatDetector

	for {
		select {
		case <-ctx.Done():
			buf.Cancel()
			os.Remove(tmpPath)
			return
		default:
		}

		n, rerr := resp.Body.Read(chunk)
		if n > 0 {
			buf.Append(chunk[:n])
			if _, werr := tmp.Write(chunk[:n]); werr != nil {
				buf.SetError(werr)
				events <- Event{Kind: EventError, Err: werr}
				os.Remove(tmpPath)
				return
			}
			detector.feed(chunk[:n])

			downloaded := buf.Downloaded()
			events <- Event{Kind: EventProgress, Downloaded: downloaded, Total: buf.TotalSize()}

			if !playableEmitted && downloaded >= d.highWaterKiB*1024 {
				playableEmitted = true
				events <- Event{Kind: EventPlayable, Downloaded: downloaded, Total: buf.TotalSize()}
			}
		}

		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			buf.SetError(rerr)
			events <- Event{Kind: EventError, Err: rerr}
			os.Remove(tmpPath)
			return
		}
	}

	if !playableEmitted {
		events <- Event{Kind: EventPlayable, Downloaded: buf.Downloaded(), Total: buf.TotalSize()}
	}

	ext := detector.resolve(url, resp.Header.Get("Content-Type"))
	finalPath := replaceExt(destPath, ext)
	tmp.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		buf.SetError(err)
		events <- Event{Kind: EventError, Err: err}
		os.Remove(tmpPath)
		return
	}

	buf.MarkComplete()
	events <- Event{Kind: EventComplete, Downloaded: buf.Downloaded(), Total: buf.TotalSize(), Path: finalPath}
	d.log.Printf("download complete: %s -> %s (%d bytes)", url, finalPath, buf.Downloaded())
}

func replaceExt(path, ext string) string {
	if cur := filepath.Ext(path); cur != "" {
		path = path[:len(path)-len(cur)]
	}
	return path + "." + ext
}

// WaitPlayable blocks until a Playable event arrives or timeout elapses.
func WaitPlayable(events <-chan Event, timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("streaming: download ended before becoming playable")
			}
			if ev.Kind == EventPlayable {
				return nil
			}
			if ev.Kind == EventError {
				return ev.Err
			}
		case <-deadline:
			return fmt.Errorf("streaming: timed out waiting for playable buffer after %s", timeout)
		}
	}
}
