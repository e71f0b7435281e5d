package lyrics

import "testing"

func TestIsCJKOnly(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"你好", true},
		{"hello", false},
		{"", false},
		{"你a", false},
	}
	for _, c := range cases {
		if got := isCJKOnly(c.text); got != c.want {
			t.Errorf("isCJKOnly(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestIsWhitespaceOnly(t *testing.T) {
	if !isWhitespaceOnly("   ") {
		t.Error("expected whitespace-only string to report true")
	}
	if isWhitespaceOnly("") {
		t.Error("empty string should not be considered whitespace-only")
	}
	if isWhitespaceOnly("a ") {
		t.Error("string with non-space rune should not be whitespace-only")
	}
}

// TestChunkAndSplitWordsCJKStandsAlone checks CJK and whitespace words never
// merge into a chunk with neighboring Latin words.
func TestChunkAndSplitWordsCJKStandsAlone(t *testing.T) {
	words := []LyricWord{
		{Text: "hello"},
		{Text: " "},
		{Text: "你"},
		{Text: "好"},
		{Text: "world"},
	}
	chunks := chunkAndSplitWords(words)
	// Expect: [hello], [" "], [你], [好], [world] — 5 standalone-ish chunks since
	// CJK/whitespace always flush and stand alone, and "hello"/"world" are not
	// adjacent (separated by CJK) so they don't merge with each other.
	if len(chunks) != 5 {
		t.Fatalf("chunk count = %d, want 5: %+v", len(chunks), chunks)
	}
	for i, want := range [][]int{{0}, {1}, {2}, {3}, {4}} {
		if len(chunks[i].indices) != len(want) || chunks[i].indices[0] != want[0] {
			t.Errorf("chunk %d = %v, want %v", i, chunks[i].indices, want)
		}
	}
}

// TestChunkAndSplitWordsMergesAdjacentLatinWords checks consecutive non-CJK,
// non-whitespace words merge into a single emphasis chunk.
func TestChunkAndSplitWordsMergesAdjacentLatinWords(t *testing.T) {
	words := []LyricWord{
		{Text: "don't"},
		{Text: "stop"},
	}
	chunks := chunkAndSplitWords(words)
	if len(chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1 (merged)", len(chunks))
	}
	if len(chunks[0].indices) != 2 {
		t.Errorf("merged chunk indices = %v, want both words", chunks[0].indices)
	}
}

// TestProcessWordsWithChunkingEmptyNoPanic checks the empty-words edge case
// doesn't panic.
func TestProcessWordsWithChunkingEmptyNoPanic(t *testing.T) {
	var words []LyricWord
	processWordsWithChunking(words)
}

// TestProcessWordsWithChunkingPropagatesEmphasis checks that if any word in a
// chunk qualifies for emphasis, the whole chunk is marked emphasized.
func TestProcessWordsWithChunkingPropagatesEmphasis(t *testing.T) {
	words := []LyricWord{
		{Text: "a", StartMs: 0, EndMs: 10},            // too short/short to emphasize alone
		{Text: "wonderful", StartMs: 10, EndMs: 2000},  // long enough to emphasize
	}
	processWordsWithChunking(words)
	if !words[0].Emphasize || !words[1].Emphasize {
		t.Errorf("expected both words in the merged chunk to be emphasized, got %+v", words)
	}
}
