// Package catalog implements the song resolver and a thin remote-catalog
// client: songs_url, song_detail, song_lyric. The wire envelope is an opaque
// encrypted blob fixed by the remote service; this package only shapes the
// request/response plumbing around it.
package catalog

import "time"

// Song is the minimal record the resolver needs. A non-negative ID with a
// non-empty, existing LocalPath means "local"; otherwise the record is remote and
// RemoteID is derived from ID's sign or a ncm:// URI prefix.
type Song struct {
	ID          int64
	LocalPath   string
	RemoteURI   string // optional "ncm://<id>"-style prefix carrying the remote id
	DurationSec float64
	CoverURL    string
}

// RemoteID derives the id used to key cache filenames: the absolute value of a
// negative ID, or the numeric suffix of a ncm:// URI.
func (s Song) RemoteID() (int64, bool) {
	if s.ID < 0 {
		return -s.ID, true
	}
	if id, ok := parseNCMURI(s.RemoteURI); ok {
		return id, true
	}
	return 0, false
}

// NeedsResolution reports whether audio must be fetched/cached rather than played
// directly from LocalPath.
func (s Song) NeedsResolution() bool {
	if s.ID >= 0 && s.LocalPath != "" {
		return !localFileExists(s.LocalPath)
	}
	return true
}

// ResolvedSong is the Song Resolver's output: a playable local path (possibly still
// filling in via SharedBuffer) plus best-effort duration and cover path.
type ResolvedSong struct {
	FilePath    string
	CoverPath   string
	DurationSec float64
	Streaming   bool // true if FilePath is being filled by an active download
}

// SongURLInfo is one element of the songs_url(ids, bitrate) response.
type SongURLInfo struct {
	ID   int64
	URL  string
	Rate int
}

// SongDetail is the song_detail(ids) response shape.
type SongDetail struct {
	ID       int64
	Title    string
	Artist   string
	Duration time.Duration
	CoverURL string
}

// LyricPayload is the raw song_lyric(id) response: an opaque textual payload plus
// its detected format tag, left to internal/lyrics to parse.
type LyricPayload struct {
	Format string // "lrc", "yrc", "qrc", "lys", "ttml"
	Raw    []byte
}
