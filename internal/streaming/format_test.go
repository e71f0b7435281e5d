package streaming

import "testing"

func TestMagicExtDetection(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want string
	}{
		{"id3 mp3", []byte("ID3\x03\x00\x00\x00"), "mp3"},
		{"bare mpeg frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, "mp3"},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), "flac"},
		{"ogg", []byte("OggS\x00\x02\x00\x00"), "ogg"},
		{"riff wav", []byte("RIFF\x24\x00\x00\x00WAVE"), "wav"},
		{"ftyp m4a", []byte("\x00\x00\x00\x20ftypM4A "), "m4a"},
		{"unknown", []byte("xxxxxxxx"), ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := magicExt(c.head); got != c.want {
				t.Errorf("magicExt(%q) = %q, want %q", c.head, got, c.want)
			}
		})
	}
}

func TestFormatDetectorResolvesMagicBytesFirst(t *testing.T) {
	var d formatDetector
	d.feed([]byte("fLaC\x00\x00\x00\x22"))
	// URL extension and Content-Type both disagree; magic bytes must win.
	if got := d.resolve("https://example.com/track.mp3", "audio/ogg"); got != "flac" {
		t.Errorf("resolve() = %q, want %q (magic bytes take priority)", got, "flac")
	}
}

func TestFormatDetectorFallsBackToURLExtension(t *testing.T) {
	var d formatDetector
	d.feed([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	if got := d.resolve("https://example.com/song.flac?x=1", "application/octet-stream"); got != "flac" {
		t.Errorf("resolve() = %q, want %q (URL extension fallback)", got, "flac")
	}
}

func TestFormatDetectorFallsBackToContentType(t *testing.T) {
	var d formatDetector
	d.feed([]byte{0, 0, 0, 0})
	if got := d.resolve("https://example.com/download", "audio/flac"); got != "flac" {
		t.Errorf("resolve() = %q, want %q (content-type fallback)", got, "flac")
	}
}

func TestFormatDetectorDefaultsToMp3(t *testing.T) {
	var d formatDetector
	d.feed([]byte{0, 0, 0, 0})
	if got := d.resolve("https://example.com/download", "application/octet-stream"); got != "mp3" {
		t.Errorf("resolve() = %q, want %q (default)", got, "mp3")
	}
}

func TestFormatDetectorFeedCapsAtMaxMagicBytes(t *testing.T) {
	var d formatDetector
	for i := 0; i < 10; i++ {
		d.feed([]byte("0123456789"))
	}
	if len(d.head) != maxMagicBytes {
		t.Errorf("head length = %d, want capped at %d", len(d.head), maxMagicBytes)
	}
}
