package lyrics

import "testing"

func threeWordLine() LyricLine {
	return LyricLine{
		Text: "one two three",
		Words: []LyricWord{
			{Text: "one", StartMs: 0, EndMs: 300},
			{Text: "two", StartMs: 300, EndMs: 600},
			{Text: "three", StartMs: 600, EndMs: 1000, IsLastWord: true},
		},
		StartMs: 0,
		EndMs:   1000,
	}
}

// TestComputeMaskKeyframesClampedRange checks every mask position stays
// within [p_min, 0].
func TestComputeMaskKeyframesClampedRange(t *testing.T) {
	line := threeWordLine()
	frames := computeMaskKeyframes(line)
	if len(frames) == 0 {
		t.Fatal("expected non-empty keyframe list for a word-timed line")
	}

	// Positions clamp per word to -(W_j + F); the loosest bound across the
	// line comes from its widest word.
	widest := 0.0
	for _, w := range line.Words {
		if ww := emWordWidth(w); ww > widest {
			widest = ww
		}
	}
	pMin := -(widest + fadeEdgeWidth)

	for _, f := range frames {
		if f.MaskPosition > 0 || f.MaskPosition < pMin {
			t.Errorf("mask position %v out of range [%v, 0]", f.MaskPosition, pMin)
		}
		if f.TimeOffset < 0 || f.TimeOffset > 1 {
			t.Errorf("time offset %v out of range [0, 1]", f.TimeOffset)
		}
	}
}

// TestComputeMaskKeyframesMonotonicTime checks time offsets never regress
// across the keyframe list (the shader binary-searches bracketing keyframes).
func TestComputeMaskKeyframesMonotonicTime(t *testing.T) {
	frames := computeMaskKeyframes(threeWordLine())
	for i := 1; i < len(frames); i++ {
		if frames[i].TimeOffset < frames[i-1].TimeOffset {
			t.Fatalf("time offsets not monotonic at index %d: %v then %v", i, frames[i-1].TimeOffset, frames[i].TimeOffset)
		}
	}
}

// TestComputeMaskKeyframesPositionAdvancesWithinWord checks mask_position
// advances (becomes less negative) across a word's own duration.
func TestComputeMaskKeyframesPositionAdvancesWithinWord(t *testing.T) {
	frames := computeMaskKeyframes(threeWordLine())
	// First word occupies frames[0] (start) and frames[1] (end).
	if len(frames) < 2 {
		t.Fatal("expected at least two keyframes for a single word")
	}
	if frames[1].MaskPosition < frames[0].MaskPosition {
		t.Errorf("mask position should advance (increase) across a word: %v -> %v", frames[0].MaskPosition, frames[1].MaskPosition)
	}
}

// TestComputeMaskKeyframesEmptyWordsReturnsNil checks a line-only (word-less)
// lyric, e.g. from an LRC source, produces no mask animation rather than
// panicking on an empty slice.
func TestComputeMaskKeyframesEmptyWordsReturnsNil(t *testing.T) {
	line := LyricLine{Text: "no words", StartMs: 0, EndMs: 1000}
	if frames := computeMaskKeyframes(line); frames != nil {
		t.Errorf("expected nil keyframes for a word-less line, got %v", frames)
	}
}

// TestComputeMaskKeyframesZeroDurationWord checks a word with StartMs==EndMs
// does not panic or divide by zero.
func TestComputeMaskKeyframesZeroDurationWord(t *testing.T) {
	line := LyricLine{
		Text: "a",
		Words: []LyricWord{
			{Text: "a", StartMs: 500, EndMs: 500, IsLastWord: true},
		},
		StartMs: 500,
		EndMs:   500,
	}
	frames := computeMaskKeyframes(line)
	if len(frames) == 0 {
		t.Fatal("expected keyframes even for a zero-duration single-word line")
	}
}
