package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/Alexander-D-Karpov/waveline/internal/logx"
	"github.com/Alexander-D-Karpov/waveline/internal/storage"
	"github.com/Alexander-D-Karpov/waveline/internal/streaming"
)

var ncmURIPattern = regexp.MustCompile(`^ncm://(\d+)$`)

func parseNCMURI(uri string) (int64, bool) {
	m := ncmURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func localFileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// bytesPerSecond is the expected-size heuristic's assumed bitrate, ~40 KiB/s.
const bytesPerSecond = 40 * 1024

// cacheHitFraction: a cached file is considered complete once it reaches 80% of the
// expected size.
const cacheHitFraction = 0.8

// Resolver decides how to source audio for a song record, checking the local
// cache by stem before falling back to a remote download.
type Resolver struct {
	songCacheDir  string
	coverCacheDir string
	client        *Client
	downloader    *streaming.Downloader
	hashIndex     *storage.PartialHashIndex
	log           *logx.Logger
}

// NewResolver builds a Resolver rooted at cacheDir (songs/ and covers/
// subdirectories are created on demand).
// hashIndex may be nil, in which case cache hits rely solely on the
// expected-size heuristic.
func NewResolver(cacheDir string, client *Client, hashIndex *storage.PartialHashIndex, debug bool) *Resolver {
	return &Resolver{
		songCacheDir:  filepath.Join(cacheDir, "songs"),
		coverCacheDir: filepath.Join(cacheDir, "covers"),
		client:        client,
		downloader:    streaming.NewDownloader(debug),
		hashIndex:     hashIndex,
		log:           logx.New("RESOLVER", debug),
	}
}

// findCachedAudio looks for {remoteID}.{ext} among the known audio extensions.
func (r *Resolver) findCachedAudio(remoteID int64) (string, int64, bool) {
	for _, ext := range streaming.KnownAudioExtensions {
		path := filepath.Join(r.songCacheDir, fmt.Sprintf("%d.%s", remoteID, ext))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, info.Size(), true
		}
	}
	return "", 0, false
}

// ResolveSong picks a source: local path, complete cache hit, or a fresh
// streaming download.
func (r *Resolver) ResolveSong(ctx context.Context, song Song, getURL func(context.Context, int64) (string, error)) (*ResolvedSong, <-chan streaming.Event, error) {
	// Step 1: local record with an existing path.
	if song.ID >= 0 && song.LocalPath != "" && localFileExists(song.LocalPath) {
		return &ResolvedSong{FilePath: song.LocalPath, DurationSec: song.DurationSec}, nil, nil
	}

	// Step 2: derive remote id.
	remoteID, ok := song.RemoteID()
	if !ok {
		return nil, nil, fmt.Errorf("catalog: song %d has no resolvable remote id", song.ID)
	}

	go r.resolveCoverBackground(remoteID, song.CoverURL)

	// Step 3: local cache lookup with the 80%-of-expected-size heuristic,
	// cross-checked against the partial-file hash index when available so
	// a file that shrank and regrew to the same size isn't mistaken for intact.
	if path, size, found := r.findCachedAudio(remoteID); found {
		expectedMin := int64(song.DurationSec * bytesPerSecond)
		sizeOK := expectedMin == 0 || float64(size) >= float64(expectedMin)*cacheHitFraction
		if sizeOK && r.verifyCachedFile(remoteID, path) {
			r.log.Printf("cache hit for remote id %d (%d bytes)", remoteID, size)
			return &ResolvedSong{FilePath: path, DurationSec: song.DurationSec}, nil, nil
		}
		// Partial or corrupted file: remove and fall through to a fresh download.
		os.Remove(path)
	}

	// Step 4: query the remote URL provider and start a buffered download.
	url, err := getURL(ctx, remoteID)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: resolve song url for %d: %w", remoteID, err)
	}

	destStem := filepath.Join(r.songCacheDir, fmt.Sprintf("%d", remoteID))
	buf, events := r.downloader.Start(ctx, url, destStem+".mp3")

	out := make(chan streaming.Event, 16)
	filePath := destStem + ".mp3"
	go func() {
		defer close(out)
		for ev := range events {
			if ev.Kind == streaming.EventComplete {
				filePath = ev.Path
				r.recordCachedFile(remoteID, filePath)
			}
			out <- ev
		}
	}()

	_ = buf // callers that need raw byte access obtain it via streaming.NewStreamingBuffer(buf)
	return &ResolvedSong{FilePath: filePath, DurationSec: song.DurationSec, Streaming: true}, out, nil
}

// verifyCachedFile checks a cache candidate's partial hash against the index
// before trusting it. With no index configured, or no prior entry for this
// remote id, it trusts the size heuristic alone.
func (r *Resolver) verifyCachedFile(remoteID int64, path string) bool {
	if r.hashIndex == nil {
		return true
	}
	hash, err := PartialFileHash(path)
	if err != nil {
		r.log.Printf("partial hash for %s: %v", path, err)
		return true
	}
	matches, hadEntry := r.hashIndex.Verify(remoteID, hash)
	if !hadEntry {
		_ = r.hashIndex.Record(remoteID, path, hash)
		return true
	}
	return matches
}

// recordCachedFile stores the freshly downloaded file's partial hash so the
// next resolve can detect corruption without re-downloading.
func (r *Resolver) recordCachedFile(remoteID int64, path string) {
	if r.hashIndex == nil {
		return
	}
	hash, err := PartialFileHash(path)
	if err != nil {
		r.log.Printf("partial hash for %s: %v", path, err)
		return
	}
	if err := r.hashIndex.Record(remoteID, path, hash); err != nil {
		r.log.Printf("record partial hash for %d: %v", remoteID, err)
	}
}

// resolveCoverBackground runs alongside song resolution, checking the cover cache
// by stem before falling back to an HTTP GET of coverURL.
func (r *Resolver) resolveCoverBackground(remoteID int64, coverURL string) {
	if path, ok := r.findCachedCover(remoteID); ok {
		_ = path
		return
	}
	if coverURL == "" {
		return
	}
	if err := os.MkdirAll(r.coverCacheDir, 0o755); err != nil {
		r.log.Printf("cover cache dir: %v", err)
		return
	}
	if err := r.downloadCover(remoteID, coverURL); err != nil {
		r.log.Printf("cover download failed for %d: %v", remoteID, err)
	}
}

func (r *Resolver) findCachedCover(remoteID int64) (string, bool) {
	exts := []string{"jpg", "jpeg", "png", "webp"}
	for _, ext := range exts {
		path := filepath.Join(r.coverCacheDir, fmt.Sprintf("cover_%d.%s", remoteID, ext))
		if localFileExists(path) {
			return path, true
		}
	}
	return "", false
}

func (r *Resolver) downloadCover(remoteID int64, url string) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cover HTTP %d", resp.StatusCode)
	}

	ext := "jpg"
	switch resp.Header.Get("Content-Type") {
	case "image/png":
		ext = "png"
	case "image/webp":
		ext = "webp"
	}
	dest := filepath.Join(r.coverCacheDir, fmt.Sprintf("cover_%d.%s", remoteID, ext))
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, resp.Body)
	return err
}
