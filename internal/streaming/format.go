package streaming

import (
	"bytes"
	"net/url"
	"path/filepath"
	"strings"
)

// formatDetector accumulates the first few bytes of a stream so magic-byte detection
// can run once enough header data has arrived. Detection order: magic bytes
// first, then URL extension, then Content-Type, then default mp3.
type formatDetector struct {
	head []byte
}

const maxMagicBytes = 16

func (d *formatDetector) feed(chunk []byte) {
	if len(d.head) >= maxMagicBytes {
		return
	}
	need := maxMagicBytes - len(d.head)
	if need > len(chunk) {
		need = len(chunk)
	}
	d.head = append(d.head, chunk[:need]...)
}

func (d *formatDetector) resolve(sourceURL, contentType string) string {
	if ext := magicExt(d.head); ext != "" {
		return ext
	}
	if ext := urlExt(sourceURL); ext != "" {
		return ext
	}
	if ext := contentTypeExt(contentType); ext != "" {
		return ext
	}
	return "mp3"
}

// magicExt inspects magic bytes for ID3 (mp3), FLAC, OggS, and RIFF/ftyp containers.
func magicExt(head []byte) string {
	switch {
	case bytes.HasPrefix(head, []byte("ID3")):
		return "mp3"
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return "mp3" // bare MPEG frame sync, no ID3 header
	case bytes.HasPrefix(head, []byte("fLaC")):
		return "flac"
	case bytes.HasPrefix(head, []byte("OggS")):
		return "ogg"
	case bytes.HasPrefix(head, []byte("RIFF")):
		return "wav"
	case len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")):
		return "m4a"
	}
	return ""
}

func urlExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.TrimPrefix(filepath.Ext(u.Path), ".")
	return normalizeExt(ext)
}

func contentTypeExt(ct string) string {
	mediaType := ct
	if i := strings.Index(ct, ";"); i >= 0 {
		mediaType = ct[:i]
	}
	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/flac", "audio/x-flac":
		return "flac"
	case "audio/ogg", "application/ogg":
		return "ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "m4a"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	}
	return ""
}

func normalizeExt(ext string) string {
	switch strings.ToLower(ext) {
	case "mp3", "flac", "ogg", "wav":
		return strings.ToLower(ext)
	case "m4a", "aac", "mp4":
		return "m4a"
	}
	return ""
}

// KnownAudioExtensions lists the accepted audio formats, in the order the song
// resolver should probe the cache directory for an existing file.
var KnownAudioExtensions = []string{"mp3", "flac", "m4a", "ogg", "wav"}
