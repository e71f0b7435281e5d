package lyrics

import (
	"unsafe"

	"github.com/go-gl/gl/v3.3-core/gl"
)

// GlyphVertex is one glyph's per-vertex data sent to the lyrics shader. The
// timing/word fields let the fragment shader compute word-by-word highlight progress
// without any CPU-side re-upload as playback advances; only CurrentTimeMs in
// GlobalUniform changes per frame.
type GlyphVertex struct {
	PosX, PosY               float32
	Width, Height            float32
	UVMin, UVMax             [2]float32
	WordStartMs, WordEndMs   float32
	GlyphStartInWord         float32
	GlyphWidthRatio          float32
	LineIndex                uint32
	Flags                    uint32
	Color                    uint32
	EmphasisProgress         float32
	CornerX, CornerY         float32
	CharIndex, CharCount     float32
	CharDelayMs              float32
	WordDurationMs           float32
	VisualLineInfo           uint32
	PosInVisualLine          float32
}

// Vertex flag bits.
const (
	FlagActive      uint32 = 1 << 0
	FlagEmphasize   uint32 = 1 << 1
	FlagBG          uint32 = 1 << 2
	FlagDuet        uint32 = 1 << 3
	FlagTranslation uint32 = 1 << 4
	FlagRomanized   uint32 = 1 << 5
	FlagLastWord    uint32 = 1 << 6
)

// NewGlyphVertex returns a vertex with opaque-white defaults.
func NewGlyphVertex() GlyphVertex {
	return GlyphVertex{
		Color:          0xFFFFFFFF,
		CharCount:      1,
		VisualLineInfo: 0x00010000,
	}
}

// LineUniform is one lyric line's per-frame uniform block.
type LineUniform struct {
	YPosition float32
	Scale     float32
	Blur      float32
	Opacity   float32
	Glow      float32
	IsActive  uint32
	LineHeight float32
	_padding  float32
}

// GlobalUniform is the shader's per-frame global uniform block.
type GlobalUniform struct {
	ViewportSize  [2]float32
	BoundsOffset  [2]float32
	BoundsSize    [2]float32
	CurrentTimeMs float32
	WordFadeWidth float32
	FontSize      float32
	ScrollY       float32
	AlignPosition float32
	SdfRange      float32
}

// SdfGlobalUniform extends GlobalUniform with the atlas font size needed to
// compute the shader's screen-space SDF range.
type SdfGlobalUniform struct {
	GlobalUniform
	AtlasFontSize float32
	_padding      float32
}

// ScreenPxRange computes the SDF anti-aliasing range in screen pixels:
// sdf_range * (font_size / atlas_font_size).
func (u SdfGlobalUniform) ScreenPxRange() float32 {
	return u.SdfRange * (u.FontSize / u.AtlasFontSize)
}

// InterludeDotsUniform carries the three-dot interlude animation's GPU state.
type InterludeDotsUniform struct {
	Position               [2]float32
	Scale                  float32
	DotSize                float32
	DotSpacing             float32
	Dot0Opacity            float32
	Dot1Opacity            float32
	Dot2Opacity            float32
	Enabled                float32
	_padding               [3]float32
}

// InterludeDotsUniformFrom builds the GPU-facing uniform from live dots state.
func InterludeDotsUniformFrom(dots *InterludeDots, dotSize, dotSpacing float32) InterludeDotsUniform {
	enabled := float32(0)
	if dots.Enabled {
		enabled = 1
	}
	return InterludeDotsUniform{
		Position:    [2]float32{float32(dots.Left), float32(dots.Top)},
		Scale:       float32(dots.Scale),
		DotSize:     dotSize,
		DotSpacing:  dotSpacing,
		Dot0Opacity: float32(dots.DotOpacities[0]),
		Dot1Opacity: float32(dots.DotOpacities[1]),
		Dot2Opacity: float32(dots.DotOpacities[2]),
		Enabled:     enabled,
	}
}

// QuadIndices returns the two-triangle index list for a glyph quad starting
// at baseVertex.
func QuadIndices(baseVertex uint32) [6]uint32 {
	return [6]uint32{
		baseVertex, baseVertex + 1, baseVertex + 2,
		baseVertex + 2, baseVertex + 3, baseVertex,
	}
}

// VertexBuffer owns the GL buffer objects backing a stream of GlyphVertex
// quads: a Go struct paired with its VAO/VBO/EBO handles and an explicit
// Upload/Draw/Close lifecycle.
type VertexBuffer struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

// NewVertexBuffer allocates the GL objects and wires the attribute layout
// matching GlyphVertex's field order.
func NewVertexBuffer() *VertexBuffer {
	vb := &VertexBuffer{}
	gl.GenVertexArrays(1, &vb.vao)
	gl.GenBuffers(1, &vb.vbo)
	gl.GenBuffers(1, &vb.ebo)

	gl.BindVertexArray(vb.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vb.vbo)

	stride := int32(unsafe.Sizeof(GlyphVertex{}))
	offset := func(field uintptr) unsafe.Pointer { return gl.PtrOffset(int(field)) }
	var v GlyphVertex

	attr := func(loc uint32, size int32, typ uint32, off uintptr, integer bool) {
		gl.EnableVertexAttribArray(loc)
		if integer {
			gl.VertexAttribIPointer(loc, size, typ, stride, offset(off))
		} else {
			gl.VertexAttribPointerWithOffset(loc, size, typ, false, stride, uintptr(off))
		}
	}

	attr(0, 2, gl.FLOAT, unsafe.Offsetof(v.PosX), false)
	attr(1, 2, gl.FLOAT, unsafe.Offsetof(v.Width), false)
	attr(2, 2, gl.FLOAT, unsafe.Offsetof(v.UVMin), false)
	attr(3, 2, gl.FLOAT, unsafe.Offsetof(v.UVMax), false)
	attr(4, 2, gl.FLOAT, unsafe.Offsetof(v.WordStartMs), false)
	attr(5, 2, gl.FLOAT, unsafe.Offsetof(v.GlyphStartInWord), false)
	attr(6, 2, gl.UNSIGNED_INT, unsafe.Offsetof(v.LineIndex), true)
	attr(7, 1, gl.UNSIGNED_INT, unsafe.Offsetof(v.Color), true)
	attr(8, 1, gl.FLOAT, unsafe.Offsetof(v.EmphasisProgress), false)
	attr(9, 2, gl.FLOAT, unsafe.Offsetof(v.CornerX), false)
	attr(10, 2, gl.FLOAT, unsafe.Offsetof(v.CharIndex), false)
	attr(11, 2, gl.FLOAT, unsafe.Offsetof(v.CharDelayMs), false)
	attr(12, 1, gl.UNSIGNED_INT, unsafe.Offsetof(v.VisualLineInfo), true)
	attr(13, 1, gl.FLOAT, unsafe.Offsetof(v.PosInVisualLine), false)

	gl.BindVertexArray(0)
	return vb
}

// Upload replaces the buffer's contents with verts/indices.
func (vb *VertexBuffer) Upload(verts []GlyphVertex, indices []uint32) {
	gl.BindVertexArray(vb.vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, vb.vbo)
	if len(verts) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(verts)*int(unsafe.Sizeof(GlyphVertex{})), gl.Ptr(verts), gl.DYNAMIC_DRAW)
	}

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, vb.ebo)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.DYNAMIC_DRAW)
	}
	vb.indexCount = int32(len(indices))

	gl.BindVertexArray(0)
}

// Draw issues the indexed draw call for the currently uploaded glyph quads.
func (vb *VertexBuffer) Draw() {
	if vb.indexCount == 0 {
		return
	}
	gl.BindVertexArray(vb.vao)
	gl.DrawElements(gl.TRIANGLES, vb.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// Close releases the buffer's GL objects.
func (vb *VertexBuffer) Close() {
	gl.DeleteVertexArrays(1, &vb.vao)
	gl.DeleteBuffers(1, &vb.vbo)
	gl.DeleteBuffers(1, &vb.ebo)
}

// BuildGlyphQuads expands one shaped, laid-out line into the GlyphVertex quad
// stream the shader consumes: four corner vertices per glyph sharing the same
// timing/word metadata, distinguished only by CornerX/CornerY and the UV
// corner they sample.
func BuildGlyphQuads(line LyricLine, shaped ShapedLine, atlas *Atlas, layout LineLayout, lineIndex int, baseColor uint32) ([]GlyphVertex, []uint32) {
	verts := make([]GlyphVertex, 0, len(shaped.Glyphs)*4)
	indices := make([]uint32, 0, len(shaped.Glyphs)*6)

	for _, g := range shaped.Glyphs {
		info, ok := atlas.Get(g.GID)
		if !ok || info.Width == 0 {
			continue
		}

		var word LyricWord
		wordDuration := float32(1)
		if g.WordIndex < len(line.Words) {
			word = line.Words[g.WordIndex]
			wordDuration = float32(word.Duration())
		}

		flags := FlagActive
		if word.Emphasize {
			flags |= FlagEmphasize
		}
		if line.IsBG {
			flags |= FlagBG
		}
		if line.IsDuet {
			flags |= FlagDuet
		}
		if word.IsLastWord {
			flags |= FlagLastWord
		}

		charCount := len([]rune(word.Text))
		if charCount == 0 {
			charCount = 1
		}

		base := NewGlyphVertex()
		base.PosX = float32(g.X)
		base.PosY = float32(layout.PositionY)
		base.Width = float32(info.Width)
		base.Height = float32(info.Height)
		base.UVMin = [2]float32{float32(info.UVMin[0]), float32(info.UVMin[1])}
		base.UVMax = [2]float32{float32(info.UVMax[0]), float32(info.UVMax[1])}
		base.WordStartMs = float32(word.StartMs)
		base.WordEndMs = float32(word.EndMs)
		base.GlyphStartInWord = float32(g.PosInWord)
		base.GlyphWidthRatio = float32(g.Advance)
		if wordWidth := wordEmWidthPx(line, g.WordIndex, shaped); wordWidth > 0 {
			base.GlyphWidthRatio = float32(g.Advance) / wordWidth
		}
		base.LineIndex = uint32(lineIndex)
		base.Flags = flags
		base.Color = baseColor
		base.CharIndex = float32(g.CharIndex)
		base.CharCount = float32(charCount)
		base.CharDelayMs = base.CharIndex * (wordDuration / 2.5 / float32(charCount))
		base.WordDurationMs = wordDuration

		baseVertex := uint32(len(verts))
		for _, corner := range [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
			v := base
			v.CornerX, v.CornerY = corner[0], corner[1]
			verts = append(verts, v)
		}
		quad := QuadIndices(baseVertex)
		indices = append(indices, quad[:]...)
	}

	return verts, indices
}

func wordEmWidthPx(line LyricLine, wordIndex int, shaped ShapedLine) float32 {
	if wordIndex < 0 || wordIndex >= len(shaped.WordBounds) {
		return 0
	}
	b := shaped.WordBounds[wordIndex]
	return float32(b[1] - b[0])
}

