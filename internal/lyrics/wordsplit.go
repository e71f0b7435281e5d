package lyrics

import "unicode"

// isCJKOnly reports whether every rune is CJK: CJK Unified Ideographs, CJK
// Extension A, and the broader ideograph ranges.
func isCJKOnly(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !isCJKRune(r) {
			return false
		}
	}
	return true
}

func isCJKRune(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case r >= 0x3400 && r <= 0x4DBF:
		return true
	case r >= 0x0800 && r <= 0x9FFC:
		return true
	}
	return false
}

func isWhitespaceOnly(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// wordChunk groups consecutive words that share emphasis animation. A chunk of
// length 1 behaves like a standalone word; longer chunks animate together.
type wordChunk struct {
	indices []int
}

func (c wordChunk) shouldEmphasize(words []LyricWord) bool {
	for _, i := range c.indices {
		if words[i].shouldEmphasize() {
			return true
		}
	}
	return mergedWord(c, words).shouldEmphasize()
}

func mergedWord(c wordChunk, words []LyricWord) LyricWord {
	if len(c.indices) == 0 {
		return LyricWord{}
	}
	first, last := words[c.indices[0]], words[c.indices[len(c.indices)-1]]
	var text string
	minStart, maxEnd := first.StartMs, first.EndMs
	for _, i := range c.indices {
		text += words[i].Text
		if words[i].StartMs < minStart {
			minStart = words[i].StartMs
		}
		if words[i].EndMs > maxEnd {
			maxEnd = words[i].EndMs
		}
	}
	return LyricWord{Text: text, StartMs: minStart, EndMs: maxEnd, IsLastWord: last.IsLastWord}
}

// chunkAndSplitWords groups consecutive non-whitespace, non-CJK words into chunks
// that share emphasis animation; whitespace and CJK words always stand alone. It
// operates directly on already-tokenized LyricWords (this parser never produces
// words with embedded internal spaces, so no resplit pre-pass is needed here
// and is omitted).
func chunkAndSplitWords(words []LyricWord) []wordChunk {
	var chunks []wordChunk
	var current []int

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, wordChunk{indices: current})
			current = nil
		}
	}

	for i, w := range words {
		if isWhitespaceOnly(w.Text) {
			flush()
			chunks = append(chunks, wordChunk{indices: []int{i}})
			continue
		}
		if isCJKOnly(w.Text) {
			flush()
			chunks = append(chunks, wordChunk{indices: []int{i}})
			continue
		}
		current = append(current, i)
	}
	flush()
	return chunks
}

// processWordsWithChunking updates each word's Emphasize flag based on its
// chunk's merged qualification.
func processWordsWithChunking(words []LyricWord) {
	if len(words) == 0 {
		return
	}
	for _, chunk := range chunkAndSplitWords(words) {
		emphasize := chunk.shouldEmphasize(words)
		for _, i := range chunk.indices {
			words[i].Emphasize = emphasize
		}
	}
}
