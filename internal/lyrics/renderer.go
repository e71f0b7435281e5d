package lyrics

import (
	"sort"

	"github.com/go-gl/gl/v3.3-core/gl"
)

// RenderParams carries the per-frame globals every line pass shares.
type RenderParams struct {
	ViewportWidth  float64
	ViewportHeight float64
	BoundsX        float64
	BoundsY        float64
	BoundsWidth    float64
	BoundsHeight   float64
	ScrollY        float64
	FontSize       float64
	WordFadeWidth  float64
	CurrentTimeMs  float64
}

// linePass pairs one line's uploaded quad stream with the animation state it
// is drawn under.
type linePass struct {
	buffer  *VertexBuffer
	layout  LineLayout
	line    LyricLine
	startMs int64
	fadeMs  float64
}

// Renderer draws the lyric lines line-by-line: each line gets its own pass
// with its own uniforms, sorted far-to-near by blur so heavily blurred lines
// composite underneath sharp ones. The per-line split also leaves room to
// swap the in-shader blur for a real Gaussian at extreme blur levels without
// touching the pass structure.
type Renderer struct {
	program   *Program
	interlude *Program
	atlas     *Atlas
	dotsQuad  *VertexBuffer

	passes []linePass
	spare  []*VertexBuffer

	maskTimes     [maxMaskKeyframes]float32
	maskPositions [maxMaskKeyframes]float32
}

// NewRenderer compiles the lyric and interlude programs against the given
// atlas. Must be called on the GL context's owning thread.
func NewRenderer(atlas *Atlas) (*Renderer, error) {
	program, err := NewProgram(lyricVertexShader, lyricFragmentShader)
	if err != nil {
		return nil, err
	}
	interlude, err := NewProgram(interludeVertexShader, interludeFragmentShader)
	if err != nil {
		program.Close()
		return nil, err
	}
	return &Renderer{program: program, interlude: interlude, atlas: atlas}, nil
}

// Close releases all GL resources the renderer owns.
func (r *Renderer) Close() {
	for _, p := range r.passes {
		p.buffer.Close()
	}
	for _, b := range r.spare {
		b.Close()
	}
	if r.dotsQuad != nil {
		r.dotsQuad.Close()
	}
	r.program.Close()
	r.interlude.Close()
}

// BeginFrame recycles the previous frame's vertex buffers and clears the pass
// list.
func (r *Renderer) BeginFrame() {
	for _, p := range r.passes {
		r.spare = append(r.spare, p.buffer)
	}
	r.passes = r.passes[:0]
}

func (r *Renderer) takeBuffer() *VertexBuffer {
	if n := len(r.spare); n > 0 {
		b := r.spare[n-1]
		r.spare = r.spare[:n-1]
		return b
	}
	return NewVertexBuffer()
}

// AddLine uploads one shaped line's quads and queues its pass.
func (r *Renderer) AddLine(line LyricLine, shaped ShapedLine, layout LineLayout, baseColor uint32) {
	verts, indices := BuildGlyphQuads(line, shaped, r.atlas, layout, layout.LineIndex, baseColor)
	if len(indices) == 0 {
		return
	}
	buf := r.takeBuffer()
	buf.Upload(verts, indices)

	fadeMs := float64(line.EndMs - line.StartMs)
	if fadeMs < 1 {
		fadeMs = 1
	}
	r.passes = append(r.passes, linePass{
		buffer:  buf,
		layout:  layout,
		line:    line,
		startMs: line.StartMs,
		fadeMs:  fadeMs,
	})
}

// sortPassesByBlurDescending orders passes far-first so sharp lines blend on
// top of blurred ones.
func sortPassesByBlurDescending(passes []linePass) {
	sort.SliceStable(passes, func(i, j int) bool {
		return passes[i].layout.Blur > passes[j].layout.Blur
	})
}

// Flush draws every queued line pass plus the interlude dots under a common
// scissor covering the lyrics bounds.
func (r *Renderer) Flush(params RenderParams, dots *InterludeDots) {
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.SCISSOR_TEST)
	gl.Scissor(
		int32(params.BoundsX),
		int32(params.ViewportHeight-params.BoundsY-params.BoundsHeight),
		int32(params.BoundsWidth),
		int32(params.BoundsHeight),
	)

	sortPassesByBlurDescending(r.passes)

	r.program.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.atlas.Texture())
	r.program.SetInt("uAtlas", 0)
	r.program.SetVec2("uViewportSize", float32(params.ViewportWidth), float32(params.ViewportHeight))
	r.program.SetFloat("uScrollY", float32(params.ScrollY))
	r.program.SetFloat("uCurrentTimeMs", float32(params.CurrentTimeMs))
	r.program.SetFloat("uWordFadeWidth", float32(params.WordFadeWidth))

	for i := range r.passes {
		p := &r.passes[i]
		r.program.SetFloat("uLineY", float32(p.layout.PositionY))
		r.program.SetFloat("uLineScale", float32(p.layout.Scale))
		r.program.SetFloat("uLineBlur", float32(p.layout.Blur))
		r.program.SetFloat("uLineOpacity", float32(p.layout.Opacity))
		r.program.SetFloat("uLineGlow", glowFor(p.layout))
		r.program.SetFloat("uLineHeight", float32(params.FontSize*mainLineHeightRatio))
		r.program.SetFloat("uLineStartMs", float32(p.startMs))
		r.program.SetFloat("uLineFadeDurationMs", float32(p.fadeMs))
		r.uploadMaskKeyframes(p.line.MaskAnimation)
		p.buffer.Draw()
	}

	if dots != nil && dots.Enabled {
		r.drawInterlude(params, dots)
	}

	gl.Disable(gl.SCISSOR_TEST)
}

func glowFor(layout LineLayout) float32 {
	if !layout.IsCurrent {
		return 0
	}
	g := (layout.Scale - 0.97) / 0.03
	if g < 0 {
		g = 0
	}
	if g > 1 {
		g = 1
	}
	return float32(g)
}

// uploadMaskKeyframes pushes a line's keyframes into the shader's uniform
// arrays, downsampling evenly if the list exceeds the array length.
func (r *Renderer) uploadMaskKeyframes(keyframes []MaskKeyframe) {
	n := len(keyframes)
	if n > maxMaskKeyframes {
		step := float64(n-1) / float64(maxMaskKeyframes-1)
		for i := 0; i < maxMaskKeyframes; i++ {
			k := keyframes[int(float64(i)*step+0.5)]
			r.maskTimes[i] = float32(k.TimeOffset)
			r.maskPositions[i] = float32(k.MaskPosition)
		}
		n = maxMaskKeyframes
	} else {
		for i, k := range keyframes {
			r.maskTimes[i] = float32(k.TimeOffset)
			r.maskPositions[i] = float32(k.MaskPosition)
		}
	}
	r.program.SetInt("uMaskCount", int32(n))
	if n > 0 {
		r.program.SetFloats("uMaskTimes", r.maskTimes[:n])
		r.program.SetFloats("uMaskPositions", r.maskPositions[:n])
	}
}

func (r *Renderer) drawInterlude(params RenderParams, dots *InterludeDots) {
	if r.dotsQuad == nil {
		r.dotsQuad = NewVertexBuffer()
		verts := make([]GlyphVertex, 4)
		for i, corner := range [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
			verts[i] = NewGlyphVertex()
			verts[i].CornerX, verts[i].CornerY = corner[0], corner[1]
			verts[i].PosX, verts[i].PosY = corner[0], corner[1]
		}
		quad := QuadIndices(0)
		r.dotsQuad.Upload(verts, quad[:])
	}

	dotSize := float32(params.FontSize) * 0.45
	uniform := InterludeDotsUniformFrom(dots, dotSize, dotSize*1.8)

	r.interlude.Use()
	r.interlude.SetVec2("uViewportSize", float32(params.ViewportWidth), float32(params.ViewportHeight))
	r.interlude.SetVec2("uDotsPosition", uniform.Position[0], uniform.Position[1]-float32(params.ScrollY))
	r.interlude.SetFloat("uDotsScale", uniform.Scale)
	r.interlude.SetFloat("uDotSize", uniform.DotSize)
	r.interlude.SetFloat("uDotSpacing", uniform.DotSpacing)
	r.interlude.SetVec3("uDotOpacities", uniform.Dot0Opacity, uniform.Dot1Opacity, uniform.Dot2Opacity)
	r.interlude.SetFloat("uDotsEnabled", uniform.Enabled)
	r.dotsQuad.Draw()
}
