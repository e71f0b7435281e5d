package lyrics

import (
	"sync"

	"github.com/go-text/typesetting/font"
)

// SdfCache serializes access to the glyph atlas. The atlas is a single GPU
// resource, so all uploads go through one mutex; background pre-generation
// rasterizes into a side map without the lock and merges the results in one
// short critical section before the frame that needs them.
type SdfCache struct {
	mu    sync.Mutex
	atlas *Atlas
	gen   *SdfGenerator
	face  *font.Face

	pendingMu sync.Mutex
	pending   map[font.GID]*SdfBitmap
}

// NewSdfCache binds a cache to the atlas, generator, and the shaper's font
// face. The face must be the same one the shaper uses or glyph ids will miss
// systematically.
func NewSdfCache(atlas *Atlas, gen *SdfGenerator, face *font.Face) *SdfCache {
	return &SdfCache{
		atlas:   atlas,
		gen:     gen,
		face:    face,
		pending: make(map[font.GID]*SdfBitmap),
	}
}

// Atlas returns the underlying atlas for texture binding.
func (c *SdfCache) Atlas() *Atlas { return c.atlas }

// EnsureGlyphs generates and uploads any glyph in shaped that the atlas does
// not hold yet. Must be called on the GL thread.
func (c *SdfCache) EnsureGlyphs(shaped ShapedLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range shaped.Glyphs {
		if _, ok := c.atlas.Get(g.GID); ok {
			continue
		}
		bitmap := c.takePending(g.GID)
		if bitmap == nil {
			bitmap = c.gen.Generate(c.face, g.GID)
		}
		c.atlas.Cache(g.GID, bitmap)
	}
}

// PreGenerate rasterizes gids into the side map without holding the atlas
// lock. Safe to call from a background goroutine; MergePending publishes the
// results.
func (c *SdfCache) PreGenerate(gids []font.GID) {
	for _, gid := range gids {
		c.pendingMu.Lock()
		_, have := c.pending[gid]
		c.pendingMu.Unlock()
		if have {
			continue
		}
		bitmap := c.gen.Generate(c.face, gid)
		c.pendingMu.Lock()
		c.pending[gid] = bitmap
		c.pendingMu.Unlock()
	}
}

// MergePending uploads every pre-generated bitmap into the atlas. Must be
// called on the GL thread; one short critical section per frame at most.
func (c *SdfCache) MergePending() {
	c.pendingMu.Lock()
	batch := c.pending
	c.pending = make(map[font.GID]*SdfBitmap)
	c.pendingMu.Unlock()

	if len(batch) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for gid, bitmap := range batch {
		if _, ok := c.atlas.Get(gid); ok {
			continue
		}
		c.atlas.Cache(gid, bitmap)
	}
}

func (c *SdfCache) takePending(gid font.GID) *SdfBitmap {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if b, ok := c.pending[gid]; ok {
		delete(c.pending, gid)
		return b
	}
	return nil
}
