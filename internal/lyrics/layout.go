package lyrics

import "math"

// LayoutMetrics holds the font sizes, line heights, and spacing derived from a
// viewport size. All sizes are in physical
// pixels; inputs are physical viewport dimensions plus a display scale factor.
type LayoutMetrics struct {
	MainFontSize    float64
	SubFontSize     float64
	RomanFontSize   float64
	LineHeight      float64
	TransLineHeight float64
	RomanLineHeight float64
	LineSpacing     float64
	ContentWidth    float64
	PaddingLeft     float64
	PaddingRight    float64
}

// NewLayoutMetrics computes layout metrics using DefaultFontSizeConfig.
func NewLayoutMetrics(viewportWidth, viewportHeight, scaleFactor float64) LayoutMetrics {
	return NewLayoutMetricsWithConfig(viewportWidth, viewportHeight, scaleFactor, DefaultFontSizeConfig())
}

// NewLayoutMetricsWithConfig computes layout metrics: font sizes scale off
// logical viewport height via config's
// ratios/clamps, then convert to physical pixels; line heights and spacing are
// fixed multiples of font size; content area is a fixed fraction of viewport width.
func NewLayoutMetricsWithConfig(viewportWidth, viewportHeight, scaleFactor float64, config FontSizeConfig) LayoutMetrics {
	logicalHeight := viewportHeight / scaleFactor

	mainLogical := config.calculateFontSize(logicalHeight)
	subLogical := config.calculateTranslationSize(mainLogical)
	romanLogical := config.calculateRomanizedSize(mainLogical)

	mainFontSize := mainLogical * scaleFactor
	subFontSize := subLogical * scaleFactor
	romanFontSize := romanLogical * scaleFactor

	return LayoutMetrics{
		MainFontSize:    mainFontSize,
		SubFontSize:     subFontSize,
		RomanFontSize:   romanFontSize,
		LineHeight:      mainFontSize * 1.4,
		TransLineHeight: subFontSize * 1.3,
		RomanLineHeight: romanFontSize * 1.2,
		LineSpacing:     mainFontSize * 0.5,
		ContentWidth:    viewportWidth * 0.8,
		PaddingLeft:     viewportWidth * 0.05,
		PaddingRight:    viewportWidth * 0.05,
	}
}

// TotalLineHeight sums the main line height with translation/romanized heights
// when present.
func (m LayoutMetrics) TotalLineHeight(hasTranslation, hasRomanized bool) float64 {
	height := m.LineHeight
	if hasTranslation {
		height += m.TransLineHeight
	}
	if hasRomanized {
		height += m.RomanLineHeight
	}
	return height
}

// LineXPosition returns the left edge of a line's bounding box: right-aligned for
// duet lines, left-aligned otherwise.
func (m LayoutMetrics) LineXPosition(isDuet bool, lineWidth, containerWidth float64) float64 {
	if isDuet {
		return containerWidth - lineWidth - m.PaddingRight
	}
	return m.PaddingLeft
}

// maxStaggerDelayMs bounds the per-line entry stagger, shared with the spring
// queue delay clamp. The stagger formula grows geometrically with line
// distance and would otherwise leave far lines frozen mid-flight.
const maxStaggerDelayMs = 2000

// minimalOpacity keeps a line in the layout while visually invisible, which
// keeps hit-testing simple.
const minimalOpacity = 0.0001

// narrowViewportWidth is the physical width below which blur levels are
// scaled down 0.8x.
const narrowViewportWidth = 700.0

// LayoutParams tunes the staggered layout pass.
type LayoutParams struct {
	BaseDelayMs     float64 // stagger delay for the line right after the target
	ReductionFactor float64 // <1; each further line multiplies the delay by 1/ReductionFactor
	InactiveScale   float64 // scale target for non-buffered lines
	BGLineScale     float64 // extra scale factor for non-buffered background lines
	HidePassedLines bool
}

// DefaultLayoutParams returns the tuning the lyrics view uses.
func DefaultLayoutParams() LayoutParams {
	return LayoutParams{
		BaseDelayMs:     60,
		ReductionFactor: 0.92,
		InactiveScale:   0.92,
		BGLineScale:     0.85,
	}
}

// LineLayout is one line's computed animation state for the current frame:
// position, scale, blur, and opacity, each driven by its own spring or
// time-derived rule.
type LineLayout struct {
	LineIndex  int
	PositionY  float64
	Scale      float64
	Blur       float64
	Opacity    float64
	IsCurrent  bool
}

// LineAnimationManager holds one position/scale/blur spring per visible line.
// CalcLayoutWithStagger sets spring targets and is called only when the scroll
// state actually changes (scroll target moved, seek, new lyrics, resize);
// Advance integrates the springs every frame and reads the layout off them.
type LineAnimationManager struct {
	positionSprings map[int]*Spring
	scaleSprings    map[int]*Spring
	blurSprings     map[int]*Spring
	opacities       map[int]float64
	targetIndex     int
}

// NewLineAnimationManager returns an empty animation manager; springs are created
// lazily as lines enter the visible window.
func NewLineAnimationManager() *LineAnimationManager {
	return &LineAnimationManager{
		positionSprings: make(map[int]*Spring),
		scaleSprings:    make(map[int]*Spring),
		blurSprings:     make(map[int]*Spring),
		opacities:       make(map[int]float64),
	}
}

func (m *LineAnimationManager) positionSpring(index int, initial float64) *Spring {
	s, ok := m.positionSprings[index]
	if !ok {
		s = NewSpring(SpringParamsPositionY, initial)
		m.positionSprings[index] = s
	}
	return s
}

func (m *LineAnimationManager) scaleSpring(index int, initial float64, isBackground bool) *Spring {
	s, ok := m.scaleSprings[index]
	if !ok {
		params := SpringParamsScale
		if isBackground {
			params = SpringParamsScaleBG
		}
		s = NewSpring(params, initial)
		m.scaleSprings[index] = s
	}
	return s
}

// Forget drops the springs for a line index once it scrolls outside the visible
// window, so the manager does not grow unboundedly over a long playback session.
func (m *LineAnimationManager) Forget(index int) {
	delete(m.positionSprings, index)
	delete(m.scaleSprings, index)
	delete(m.blurSprings, index)
	delete(m.opacities, index)
}

func (m *LineAnimationManager) blurSpring(index int, initial float64) *Spring {
	s, ok := m.blurSprings[index]
	if !ok {
		s = NewSpring(SpringParamsPositionY, initial)
		m.blurSprings[index] = s
	}
	return s
}

// CalcLayoutWithStagger retargets every visible line's springs: base Y
// positions stack by cumulative TotalLineHeight+LineSpacing shifted so the
// target line lands on the anchor; lines past the target get a staggered
// retarget delay of BaseDelayMs * ReductionFactor^-(i-T), clamped to
// maxStaggerDelayMs, so they fall into place sequentially; scale targets 1.0
// for buffered lines and InactiveScale (times BGLineScale for background
// lines) otherwise; blur targets 0 for buffered lines and |i-T|+1 otherwise,
// scaled 0.8x on narrow viewports. Opacity is not spring-driven and is stored
// directly. Call this only when the scroll state changes (scroll target
// moved, seek, new lyrics, resize) -- retargeting every frame would restart
// the stagger countdowns before they ever elapse.
func (m *LineAnimationManager) CalcLayoutWithStagger(
	metrics LayoutMetrics,
	visible []LyricLine,
	visibleIndices []int,
	buffered map[int]struct{},
	targetIndex int,
	anchorRatio float64,
	viewportWidth float64,
	viewportHeight float64,
	isSeek bool,
	isPlaying bool,
	params LayoutParams,
) {
	m.targetIndex = targetIndex
	anchorY := viewportHeight * anchorRatio

	// Base Y positions stack outward from the target line using cumulative
	// heights, matching an Apple-Music-style centered, non-overlapping stack.
	baseY := make([]float64, len(visible))
	cursor := anchorY
	targetY := anchorY
	for i, line := range visible {
		h := metrics.TotalLineHeight(line.hasTranslation(), line.hasRomanized())
		if visibleIndices[i] == targetIndex {
			targetY = cursor
		}
		baseY[i] = cursor
		cursor += h + metrics.LineSpacing
	}
	for i := range baseY {
		baseY[i] += anchorY - targetY
	}

	blurScale := 1.0
	if viewportWidth < narrowViewportWidth {
		blurScale = 0.8
	}

	for i, idx := range visibleIndices {
		line := visible[i]
		distance := idx - targetIndex
		_, isBuffered := buffered[idx]

		// Lines before the target, and everything on a seek, snap their
		// targets without a stagger delay.
		delayMs := 0.0
		if distance > 0 && !isSeek {
			delayMs = params.BaseDelayMs * math.Pow(params.ReductionFactor, float64(-distance))
			if delayMs > maxStaggerDelayMs {
				delayMs = maxStaggerDelayMs
			}
		}

		posSpring := m.positionSpring(idx, baseY[i])
		posSpring.SetTargetPositionWithDelay(baseY[i], delayMs)

		targetScale := 1.0
		if !isBuffered {
			targetScale = params.InactiveScale
			if line.IsBG {
				targetScale *= params.BGLineScale
			}
		}
		scaleSpring := m.scaleSpring(idx, targetScale, line.IsBG)
		scaleSpring.SetTargetPositionWithDelay(targetScale, delayMs)

		targetBlur := 0.0
		if !isBuffered {
			targetBlur = (float64(abs(distance)) + 1) * blurScale
		}
		blurSpring := m.blurSpring(idx, targetBlur)
		blurSpring.SetTargetPositionWithDelay(targetBlur, delayMs)

		m.opacities[idx] = lineOpacity(line, idx, targetIndex, isBuffered, isPlaying, params)
	}
}

// lineOpacity: 0.85 for buffered main lines; background lines show at 0.4
// while buffered or while playback is paused and are otherwise invisible;
// passed main lines hide when HidePassedLines is on; everything else is
// fully opaque.
func lineOpacity(line LyricLine, idx, targetIndex int, isBuffered, isPlaying bool, params LayoutParams) float64 {
	switch {
	case line.IsBG:
		if isBuffered || !isPlaying {
			return 0.4
		}
		return minimalOpacity
	case isBuffered:
		return 0.85
	case params.HidePassedLines && idx < targetIndex && isPlaying:
		return minimalOpacity
	default:
		return 1.0
	}
}

// Advance integrates every visible line's springs by deltaMs and reads the
// frame's layout off them. Lines that have not been through
// CalcLayoutWithStagger yet are skipped; they pick up on the next retarget.
func (m *LineAnimationManager) Advance(deltaMs float64, visibleIndices []int) []LineLayout {
	out := make([]LineLayout, 0, len(visibleIndices))
	for _, idx := range visibleIndices {
		posSpring, ok := m.positionSprings[idx]
		if !ok {
			continue
		}
		scaleSpring := m.scaleSprings[idx]
		blurSpring := m.blurSprings[idx]

		posSpring.Update(deltaMs)
		scaleSpring.Update(deltaMs)
		blurSpring.Update(deltaMs)

		out = append(out, LineLayout{
			LineIndex: idx,
			PositionY: posSpring.Position(),
			Scale:     scaleSpring.Position(),
			Blur:      blurSpring.Position(),
			Opacity:   m.opacities[idx],
			IsCurrent: idx == m.targetIndex,
		})
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
