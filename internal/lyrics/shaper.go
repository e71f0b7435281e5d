package lyrics

import (
	"sync"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/shaping"
)

// ShapedGlyph is one positioned glyph within a ShapedLine, carrying enough
// word-relative metadata to drive the mask-highlight shader.
type ShapedGlyph struct {
	GID         font.GID
	X, Y        float64
	Advance     float64
	WordIndex   int
	PosInWord   float64
	CharIndex   int
}

// ShapedLine is the output of shaping one line of text.
type ShapedLine struct {
	Glyphs     []ShapedGlyph
	Width      float64
	Height     float64
	Ascent     float64
	WordBounds [][2]float64 // per-word (minX, maxX) in the shaped line's coordinate space
}

type shapeCacheKey struct {
	text         string
	fontSizeX100 int
	maxWidthR10  int
}

func makeShapeCacheKey(text string, fontSize, maxWidth float64) shapeCacheKey {
	return shapeCacheKey{
		text:         text,
		fontSizeX100: int(fontSize*100 + 0.5),
		maxWidthR10:  int(maxWidth/10+0.5) * 10,
	}
}

// TextShaper shapes lyric lines into positioned glyph runs using go-text's
// HarfBuzz-equivalent shaper, memoizing results keyed on (text, font size
// rounded to 1/100px, max width rounded to 10px).
type TextShaper struct {
	face shaping.Face

	mu          sync.Mutex
	lineCache   map[shapeCacheKey]ShapedLine
	simpleCache map[shapeCacheKey]ShapedLine
	shaper      shaping.HarfbuzzShaper
}

// NewTextShaper returns a shaper bound to a single loaded font face. The face
// is expected to be loaded once at startup (font.ParseTTF on an embedded or
// system font) and shared across every lyric line; the SDF cache keys on the
// same face, so the two must reference the same font database.
func NewTextShaper(f shaping.Face) *TextShaper {
	return &TextShaper{
		face:        f,
		lineCache:   make(map[shapeCacheKey]ShapedLine),
		simpleCache: make(map[shapeCacheKey]ShapedLine),
	}
}

const (
	mainLineHeightRatio   = 1.4
	simpleLineHeightRatio = 1.3
	shapeCacheLimit       = 1000
	simpleCacheLimit      = 500
)

// ShapeLine shapes a lyric line's words with per-word/per-char bounds for the
// mask-highlight shader. Words are used as given: a CJK-only line without word
// timing is not split per character here (SplitCJKToWords does that split, and
// ShapeLine does not call it).
func (s *TextShaper) ShapeLine(text string, words []LyricWord, fontSize, maxWidth float64) ShapedLine {
	if text == "" {
		return ShapedLine{Height: fontSize * mainLineHeightRatio, Ascent: fontSize}
	}

	key := makeShapeCacheKey(text, fontSize, maxWidth)
	s.mu.Lock()
	if cached, ok := s.lineCache[key]; ok {
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	result := s.shapeLineUncached(text, words, fontSize, maxWidth)

	s.mu.Lock()
	if len(s.lineCache) > shapeCacheLimit {
		s.lineCache = make(map[shapeCacheKey]ShapedLine)
	}
	s.lineCache[key] = result
	s.mu.Unlock()

	return result
}

func (s *TextShaper) shapeLineUncached(text string, words []LyricWord, fontSize, maxWidth float64) ShapedLine {
	charToWord, wordStartChar := buildCharWordMap(text, words)

	input := shaping.Input{
		Text:      []rune(text),
		RunStart:  0,
		RunEnd:    len([]rune(text)),
		Direction: 0, // left-to-right; lyrics are never shaped vertically/RTL
		Face:      s.face,
		Size:      fixedFromFloat(fontSize),
	}
	out := s.shaper.Shape(input)

	wordBounds := make([][2]float64, len(words))
	for i := range wordBounds {
		wordBounds[i] = [2]float64{1e18, -1e18}
	}

	glyphs := make([]ShapedGlyph, 0, len(out.Glyphs))
	var penX float64
	for _, g := range out.Glyphs {
		charIdx := g.ClusterIndex
		wordIdx := 0
		if charIdx < len(charToWord) {
			wordIdx = charToWord[charIdx]
		}

		posInWord := 0.0
		if wordIdx < len(words) {
			wordCharCount := len([]rune(words[wordIdx].Text))
			if wordCharCount > 0 {
				offset := charIdx - wordStartChar[wordIdx]
				if offset < 0 {
					offset = 0
				}
				posInWord = float64(offset) / float64(wordCharCount)
			}
		}

		advance := floatFromFixed(g.XAdvance)
		x := penX + floatFromFixed(g.XOffset)

		if wordIdx < len(wordBounds) {
			if x < wordBounds[wordIdx][0] {
				wordBounds[wordIdx][0] = x
			}
			if x+advance > wordBounds[wordIdx][1] {
				wordBounds[wordIdx][1] = x + advance
			}
		}

		glyphs = append(glyphs, ShapedGlyph{
			GID:       g.GlyphID,
			X:         x,
			Y:         0,
			Advance:   advance,
			WordIndex: wordIdx,
			PosInWord: posInWord,
			CharIndex: charIdx,
		})
		penX += advance
	}

	for i := range wordBounds {
		if wordBounds[i][0] > wordBounds[i][1] {
			prevEnd := 0.0
			if i > 0 {
				prevEnd = wordBounds[i-1][1]
			}
			wordBounds[i] = [2]float64{prevEnd, prevEnd}
		}
	}

	lineCount := visualLineCount(penX, maxWidth)
	return ShapedLine{
		Glyphs:     glyphs,
		Width:      penX,
		Height:     fontSize * mainLineHeightRatio * float64(lineCount),
		Ascent:     fontSize,
		WordBounds: wordBounds,
	}
}

// ShapeSimple shapes translation/romanized text with no word timing.
func (s *TextShaper) ShapeSimple(text string, fontSize, maxWidth float64) ShapedLine {
	if text == "" {
		return ShapedLine{Height: fontSize * simpleLineHeightRatio, Ascent: fontSize}
	}

	key := makeShapeCacheKey(text, fontSize, maxWidth)
	s.mu.Lock()
	if cached, ok := s.simpleCache[key]; ok {
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	input := shaping.Input{
		Text:     []rune(text),
		RunStart: 0,
		RunEnd:   len([]rune(text)),
		Face:     s.face,
		Size:     fixedFromFloat(fontSize),
	}
	out := s.shaper.Shape(input)

	glyphs := make([]ShapedGlyph, 0, len(out.Glyphs))
	var penX float64
	for _, g := range out.Glyphs {
		advance := floatFromFixed(g.XAdvance)
		glyphs = append(glyphs, ShapedGlyph{GID: g.GlyphID, X: penX, Advance: advance, CharIndex: g.ClusterIndex})
		penX += advance
	}

	lineCount := visualLineCount(penX, maxWidth)
	result := ShapedLine{
		Glyphs:     glyphs,
		Width:      penX,
		Height:     fontSize * simpleLineHeightRatio * float64(lineCount),
		Ascent:     fontSize,
		WordBounds: [][2]float64{{0, penX}},
	}

	s.mu.Lock()
	if len(s.simpleCache) > simpleCacheLimit {
		s.simpleCache = make(map[shapeCacheKey]ShapedLine)
	}
	s.simpleCache[key] = result
	s.mu.Unlock()

	return result
}

// CalculateWordPositions fills each word's XStart/XEnd (normalized 0..1 over
// the shaped line width) from the shaped glyph bounds.
func (s *TextShaper) CalculateWordPositions(text string, words []LyricWord, fontSize, maxWidth float64) {
	shaped := s.ShapeLine(text, words, fontSize, maxWidth)
	for i := range words {
		if i >= len(shaped.WordBounds) {
			continue
		}
		start, end := shaped.WordBounds[i][0], shaped.WordBounds[i][1]
		if shaped.Width > 0 {
			words[i].XStart = start / shaped.Width
			words[i].XEnd = end / shaped.Width
		} else {
			words[i].XStart, words[i].XEnd = 0, 1
		}
	}
}

func visualLineCount(width, maxWidth float64) int {
	if maxWidth <= 0 || width <= maxWidth {
		return 1
	}
	n := int(width/maxWidth) + 1
	if n < 1 {
		return 1
	}
	return n
}

func buildCharWordMap(text string, words []LyricWord) (charToWord []int, wordStartChar []int) {
	runes := []rune(text)
	charToWord = make([]int, len(runes))
	wordStartChar = make([]int, len(words))

	pos := 0
	for wi, w := range words {
		wordStartChar[wi] = pos
		wr := []rune(w.Text)
		if idx := indexRunes(runes[pos:], wr); idx >= 0 {
			start := pos + idx
			end := start + len(wr)
			for i := start; i < end && i < len(charToWord); i++ {
				charToWord[i] = wi
			}
			pos = end
		}
	}
	return charToWord, wordStartChar
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// SplitCJKToWords splits a CJK-only line into one LyricWord per character,
// distributing the line's duration evenly.
func SplitCJKToWords(text string, startMs, endMs int64) []LyricWord {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	duration := endMs - startMs
	if duration < 0 {
		duration = 0
	}
	charDuration := duration / int64(n)

	out := make([]LyricWord, n)
	for i, r := range runes {
		charStart := startMs + int64(i)*charDuration
		charEnd := charStart + charDuration
		if i == n-1 {
			charEnd = endMs
		}
		out[i] = LyricWord{
			Text:       string(r),
			StartMs:    charStart,
			EndMs:      charEnd,
			IsLastWord: i == n-1,
		}
	}
	return out
}

// IsCJKText reports whether more than half of text's non-whitespace
// characters are CJK.
func IsCJKText(text string) bool {
	var cjk, total int
	for _, r := range text {
		if isSpaceRune(r) {
			continue
		}
		total++
		if isCJKRune(r) {
			cjk++
		}
	}
	if total == 0 {
		return false
	}
	return float64(cjk)/float64(total) > 0.5
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// fixedFromFloat/floatFromFixed convert between pixel floats and go-text's
// 26.6 fixed-point font units, matching shaping.Input's Size/advance encoding.
func fixedFromFloat(v float64) shaping.Fixed { return shaping.Fixed(v * 64) }
func floatFromFixed(v shaping.Fixed) float64 { return float64(v) / 64 }
