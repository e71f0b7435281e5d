package lyrics

import (
	"testing"

	"github.com/go-text/typesetting/font"
)

// TestAtlasAllocateShelfPacking checks that glyphs land on the same shelf when
// width allows, and a new shelf opens once a row's remaining width is
// exhausted.
func TestAtlasAllocateShelfPacking(t *testing.T) {
	a := &Atlas{glyphs: make(map[font.GID]SdfGlyphInfo)}

	x1, y1, ok := a.allocate(100, 50)
	if !ok {
		t.Fatal("first allocation failed unexpectedly")
	}
	x2, y2, ok := a.allocate(100, 50)
	if !ok {
		t.Fatal("second allocation failed unexpectedly")
	}
	if y1 != y2 {
		t.Errorf("same-height glyphs should share a shelf: y1=%d y2=%d", y1, y2)
	}
	if x2 <= x1 {
		t.Errorf("second glyph should be placed to the right of the first: x1=%d x2=%d", x1, x2)
	}
}

// TestAtlasOverflowTriggersExactlyOneClearAndRetry checks a
// glyph larger than any remaining shelf triggers exactly one clear-and-retry,
// then succeeds (assuming it fits in a fresh atlas).
func TestAtlasOverflowTriggersExactlyOneClearAndRetry(t *testing.T) {
	a := &Atlas{glyphs: make(map[font.GID]SdfGlyphInfo)}

	// Fill the atlas with small glyphs until a large glyph can no longer fit
	// anywhere without a clear.
	for i := 0; i < 4090; i++ {
		if _, _, ok := a.allocate(1, 4088); !ok {
			break
		}
	}

	// A glyph spanning nearly the whole atlas cannot fit in what's left.
	_, _, ok := a.allocate(4000, 4000)
	if ok {
		t.Fatal("expected allocation to fail before clear given how full the atlas is")
	}
	if !a.needsRebuild {
		t.Fatal("expected needsRebuild to be set after a failed allocation")
	}

	a.Clear()
	if a.needsRebuild {
		t.Error("Clear should reset needsRebuild")
	}
	if len(a.glyphs) != 0 || len(a.rows) != 0 || a.yCursor != 0 {
		t.Error("Clear should reset all atlas bookkeeping")
	}

	x, y, ok := a.allocate(4000, 4000)
	if !ok {
		t.Fatal("allocation should succeed immediately after Clear on a fresh atlas")
	}
	if x == 0 && y == 0 {
		t.Errorf("allocation should respect the gutter offset, got (0,0)")
	}
}

// TestAtlasGetMissAndHit checks Get reports absence before Cache and presence
// after, independent of GPU upload (the placement bookkeeping is pure).
func TestAtlasGetMissAndHit(t *testing.T) {
	a := &Atlas{glyphs: make(map[font.GID]SdfGlyphInfo)}
	if _, ok := a.Get(font.GID(7)); ok {
		t.Fatal("Get on an empty atlas should miss")
	}
	a.glyphs[font.GID(7)] = SdfGlyphInfo{Width: 10, Height: 10}
	if _, ok := a.Get(font.GID(7)); !ok {
		t.Fatal("Get should hit after an entry is recorded")
	}
}
