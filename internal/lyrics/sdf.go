package lyrics

import (
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-text/typesetting/font"
)

// SdfConfig parameterizes SDF generation.
type SdfConfig struct {
	BaseSize uint32  // glyph rasterization size in pixels before SDF conversion
	Buffer   int     // pixel margin around the glyph, captures distance outside its outline
	Radius   int     // distance field's effective range in pixels
	Cutoff   float64 // distance-to-byte mapping midpoint; 0.5 maps the outline edge to 128
}

// DefaultSdfConfig is the tuning the lyrics renderer uses: 64px glyphs with an
// 8px distance range.
func DefaultSdfConfig() SdfConfig {
	return SdfConfig{BaseSize: 64, Buffer: 4, Radius: 8, Cutoff: 0.5}
}

// SdfBitmap is one glyph's generated single-channel SDF bitmap.
type SdfBitmap struct {
	Data               []byte
	Width, Height      uint32
	BearingX, BearingY int
	Advance            float64
}

// SdfGenerator rasterizes a glyph outline and converts its coverage mask into
// a signed distance field via a bounded brute-force distance search within
// Radius pixels of each texel. Single-channel SDF loses sharp corners
// at very large magnification but anti-aliases correctly against the same
// 0.5 edge-threshold convention the shader uses.
type SdfGenerator struct {
	config SdfConfig
}

// NewSdfGenerator returns a generator at the given base size and margin.
func NewSdfGenerator(baseSize uint32, buffer int) *SdfGenerator {
	cfg := DefaultSdfConfig()
	cfg.BaseSize, cfg.Buffer = baseSize, buffer
	return &SdfGenerator{config: cfg}
}

// NewSdfGeneratorWithConfig returns a generator with full tuning control.
func NewSdfGeneratorWithConfig(config SdfConfig) *SdfGenerator {
	return &SdfGenerator{config: config}
}

func (g *SdfGenerator) Config() SdfConfig { return g.config }

// Generate rasterizes gid from f at the generator's BaseSize and returns its
// SDF bitmap, or nil for a glyph with no visible coverage (space, etc).
func (g *SdfGenerator) Generate(f *font.Face, gid font.GID) *SdfBitmap {
	coverage, w, h, bearingX, bearingY, advance, ok := rasterizeGlyphCoverage(f, gid, g.config.BaseSize)
	if !ok || w == 0 || h == 0 {
		return nil
	}

	buf := g.config.Buffer
	paddedW, paddedH := int(w)+2*buf, int(h)+2*buf
	padded := make([]bool, paddedW*paddedH)
	for y := 0; y < int(h); y++ {
		for x := 0; x < int(w); x++ {
			padded[(y+buf)*paddedW+(x+buf)] = coverage[y*int(w)+x]
		}
	}

	data := make([]byte, paddedW*paddedH)
	radius := g.config.Radius
	for y := 0; y < paddedH; y++ {
		for x := 0; x < paddedW; x++ {
			d := signedDistance(padded, paddedW, paddedH, x, y, radius)
			data[y*paddedW+x] = sdfByte(d, radius, g.config.Cutoff)
		}
	}

	return &SdfBitmap{
		Data:     data,
		Width:    uint32(paddedW),
		Height:   uint32(paddedH),
		BearingX: bearingX - buf,
		BearingY: bearingY + buf,
		Advance:  advance,
	}
}

// signedDistance finds the nearest opposite-coverage texel within radius and
// returns a positive distance inside the glyph, negative outside.
func signedDistance(coverage []bool, w, h, x, y, radius int) float64 {
	inside := coverage[y*w+x]
	best := float64(radius + 1)
	for dy := -radius; dy <= radius; dy++ {
		ny := y + dy
		if ny < 0 || ny >= h {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			nx := x + dx
			if nx < 0 || nx >= w {
				continue
			}
			if coverage[ny*w+nx] == inside {
				continue
			}
			dist := float64(dx*dx + dy*dy)
			if dist < best*best {
				best = sqrtApprox(dist)
			}
		}
	}
	if best > float64(radius) {
		best = float64(radius)
	}
	if inside {
		return best
	}
	return -best
}

func sqrtApprox(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 12; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

func sdfByte(distance float64, radius int, cutoff float64) byte {
	normalized := distance/float64(radius)/2.0 + cutoff
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}
	return byte(normalized * 255)
}

// atlasSize and atlasGutter: large
// enough to hold several thousand CJK glyphs without frequent eviction, with a
// gutter wide enough to prevent bilinear-filter bleed between neighbors.
const (
	atlasSize   = 4096
	atlasGutter = 4
)

// SdfGlyphInfo is one cached glyph's atlas placement.
type SdfGlyphInfo struct {
	UVMin, UVMax       [2]float64
	Width, Height      uint32
	OffsetX, OffsetY   int
	Advance            float64
}

type atlasRow struct {
	y, height, xCursor uint32
}

// Atlas is the GPU-backed SDF glyph texture atlas: shelf-packed allocation
// into a single 4096x4096 RGBA texture (SDF replicated across RGB with full
// alpha so the hardware bilinear filter applies to it), cleared and
// retried on overflow rather than ever growing, since a single clear-and-retry
// is cheap relative to the rendering it protects.
type Atlas struct {
	texture      uint32
	glyphs       map[font.GID]SdfGlyphInfo
	rows         []atlasRow
	yCursor      uint32
	needsRebuild bool
}

// NewAtlas creates the atlas's backing GL texture. Must be called on the GL
// context's owning thread.
func NewAtlas() *Atlas {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, atlasSize, atlasSize, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	return &Atlas{texture: tex, glyphs: make(map[font.GID]SdfGlyphInfo)}
}

// Texture returns the atlas's GL texture name for shader binding.
func (a *Atlas) Texture() uint32 { return a.texture }

// Get returns a cached glyph's placement, if present.
func (a *Atlas) Get(gid font.GID) (SdfGlyphInfo, bool) {
	info, ok := a.glyphs[gid]
	return info, ok
}

// Cache uploads bitmap into the atlas and records its placement, retrying
// once after a full clear on overflow.
func (a *Atlas) Cache(gid font.GID, bitmap *SdfBitmap) (SdfGlyphInfo, bool) {
	if bitmap == nil || bitmap.Width == 0 || bitmap.Height == 0 {
		info := SdfGlyphInfo{}
		a.glyphs[gid] = info
		return info, true
	}

	x, y, ok := a.allocate(bitmap.Width, bitmap.Height)
	if !ok {
		a.Clear()
		x, y, ok = a.allocate(bitmap.Width, bitmap.Height)
		if !ok {
			return SdfGlyphInfo{}, false
		}
	}

	rgba := sdfToRGBA(bitmap.Data)
	gl.BindTexture(gl.TEXTURE_2D, a.texture)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(x), int32(y), int32(bitmap.Width), int32(bitmap.Height),
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))

	info := SdfGlyphInfo{
		UVMin:    [2]float64{float64(x) / atlasSize, float64(y) / atlasSize},
		UVMax:    [2]float64{float64(x+bitmap.Width) / atlasSize, float64(y+bitmap.Height) / atlasSize},
		Width:    bitmap.Width,
		Height:   bitmap.Height,
		OffsetX:  bitmap.BearingX,
		OffsetY:  bitmap.BearingY,
		Advance:  bitmap.Advance,
	}
	a.glyphs[gid] = info
	return info, true
}

func (a *Atlas) allocate(width, height uint32) (uint32, uint32, bool) {
	paddedW := width + atlasGutter*2
	paddedH := height + atlasGutter*2

	for i := range a.rows {
		row := &a.rows[i]
		if row.height >= paddedH && row.xCursor+paddedW <= atlasSize {
			x := row.xCursor + atlasGutter
			y := row.y + atlasGutter
			row.xCursor += paddedW
			return x, y, true
		}
	}

	if a.yCursor+paddedH <= atlasSize {
		row := atlasRow{y: a.yCursor, height: paddedH, xCursor: paddedW}
		x := uint32(atlasGutter)
		y := a.yCursor + atlasGutter
		a.yCursor += paddedH
		a.rows = append(a.rows, row)
		return x, y, true
	}

	a.needsRebuild = true
	return 0, 0, false
}

// Clear empties the atlas's glyph cache and CPU-side bookkeeping; the GPU
// texture's stale contents are simply overwritten by subsequent Cache calls.
func (a *Atlas) Clear() {
	a.glyphs = make(map[font.GID]SdfGlyphInfo)
	a.rows = nil
	a.yCursor = 0
	a.needsRebuild = false
}

// NeedsRebuild reports whether the most recent allocation overflowed the
// atlas before Clear was called to recover.
func (a *Atlas) NeedsRebuild() bool { return a.needsRebuild }

func sdfToRGBA(sdf []byte) []byte {
	rgba := make([]byte, len(sdf)*4)
	for i, v := range sdf {
		rgba[i*4+0] = v
		rgba[i*4+1] = v
		rgba[i*4+2] = v
		rgba[i*4+3] = 255
	}
	return rgba
}
