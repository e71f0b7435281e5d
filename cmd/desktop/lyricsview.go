package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-text/typesetting/font"

	"github.com/Alexander-D-Karpov/waveline/internal/audio"
	"github.com/Alexander-D-Karpov/waveline/internal/lyrics"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

// lyricsView owns the GLFW window, GL context, and the full shaping/SDF/render
// pipeline for the animated lyrics display.
type lyricsView struct {
	window   *glfw.Window
	shaper   *lyrics.TextShaper
	cache    *lyrics.SdfCache
	renderer *lyrics.Renderer
	engine   *lyrics.Engine

	lines    []lyrics.LyricLine
	lastTick time.Time

	// Last frame's visible window and framebuffer size; a change to either
	// forces a spring retarget even when the engine state is unchanged.
	lastLo, lastHi         int
	lastWidth, lastHeight  int
}

// newLyricsView creates the window and compiles the pipeline. fontPath must
// name a TTF/OTF file; the same face backs the shaper and the SDF cache.
func newLyricsView(engine *lyrics.Engine, fontPath string, width, height int) (*lyricsView, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("lyricsview: glfw init: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(width, height, "Lyrics", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("lyricsview: create window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("lyricsview: gl init: %w", err)
	}

	f, err := os.Open(fontPath)
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("lyricsview: open font: %w", err)
	}
	defer f.Close()
	face, err := font.ParseTTF(f)
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("lyricsview: parse font: %w", err)
	}

	atlas := lyrics.NewAtlas()
	gen := lyrics.NewSdfGenerator(64, 4)
	renderer, err := lyrics.NewRenderer(atlas)
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, err
	}

	return &lyricsView{
		window:   window,
		shaper:   lyrics.NewTextShaper(face),
		cache:    lyrics.NewSdfCache(atlas, gen, face),
		renderer: renderer,
		engine:   engine,
		lastTick: time.Now(),
	}, nil
}

// SetLines swaps in a new song's parsed lyrics.
func (v *lyricsView) SetLines(lines []lyrics.LyricLine) {
	v.lines = lines
	v.lastLo, v.lastHi = 0, 0
}

// visibleWindow is how many lines either side of the scroll target get shaped
// and drawn each frame.
const visibleWindow = 6

// Frame advances the engine by one tick and draws it. Returns false once the
// window should close.
func (v *lyricsView) Frame(player *audio.Player) bool {
	if v.window.ShouldClose() {
		return false
	}

	now := time.Now()
	deltaMs := float64(now.Sub(v.lastTick)) / float64(time.Millisecond)
	v.lastTick = now

	posMs := float64(player.Position()) / float64(time.Millisecond)
	changed := v.engine.SetCurrentTime(posMs, v.lines, false)
	v.engine.Interlude().Update(deltaMs)

	fbWidth, fbHeight := v.window.GetFramebufferSize()
	winWidth, _ := v.window.GetSize()
	scale := 1.0
	if winWidth > 0 {
		scale = float64(fbWidth) / float64(winWidth)
	}
	metrics := lyrics.NewLayoutMetrics(float64(fbWidth), float64(fbHeight), scale)

	target := v.engine.ScrollToIndex()
	lo, hi := target-visibleWindow, target+visibleWindow
	if lo < 0 {
		lo = 0
	}
	if hi > len(v.lines) {
		hi = len(v.lines)
	}
	visible := v.lines[lo:hi]
	indices := make([]int, len(visible))
	for i := range indices {
		indices[i] = lo + i
	}

	// Retarget only when the engine reports a scroll change or the window
	// itself moved/resized; the stagger countdowns must be left to run
	// between retargets.
	if changed || lo != v.lastLo || hi != v.lastHi || fbWidth != v.lastWidth || fbHeight != v.lastHeight {
		v.engine.Animations().CalcLayoutWithStagger(
			metrics, visible, indices, v.engine.BufferedLines(), target,
			0.35, float64(fbWidth), float64(fbHeight), false,
			player.StatusNow() == audio.StatusPlaying, lyrics.DefaultLayoutParams())
		v.lastLo, v.lastHi = lo, hi
		v.lastWidth, v.lastHeight = fbWidth, fbHeight
	}
	layouts := v.engine.Animations().Advance(deltaMs, indices)

	gl.Viewport(0, 0, int32(fbWidth), int32(fbHeight))
	gl.ClearColor(0.06, 0.06, 0.08, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	v.cache.MergePending()
	v.renderer.BeginFrame()
	for _, layout := range layouts {
		line := v.lines[layout.LineIndex]
		shaped := v.shaper.ShapeLine(line.Text, line.Words, metrics.MainFontSize, metrics.ContentWidth)
		v.cache.EnsureGlyphs(shaped)
		v.renderer.AddLine(line, shaped, layout, 0xFFFFFFFF)
	}

	v.renderer.Flush(lyrics.RenderParams{
		ViewportWidth:  float64(fbWidth),
		ViewportHeight: float64(fbHeight),
		BoundsX:        metrics.PaddingLeft,
		BoundsY:        0,
		BoundsWidth:    float64(fbWidth) - metrics.PaddingLeft - metrics.PaddingRight,
		BoundsHeight:   float64(fbHeight),
		FontSize:       metrics.MainFontSize,
		WordFadeWidth:  0.5,
		CurrentTimeMs:  posMs,
	}, v.engine.Interlude())

	v.window.SwapBuffers()
	glfw.PollEvents()
	return true
}

// Close tears down the GL resources and the window.
func (v *lyricsView) Close() {
	v.renderer.Close()
	v.window.Destroy()
	glfw.Terminate()
}
