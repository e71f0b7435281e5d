package lyrics

import "testing"

func sampleLayoutLines() []LyricLine {
	return []LyricLine{
		{Text: "L0", StartMs: 0, EndMs: 2000},
		{Text: "L1", StartMs: 2000, EndMs: 4000},
		{Text: "L2", StartMs: 4000, EndMs: 6000},
		{Text: "L3", StartMs: 6000, EndMs: 8000},
	}
}

func set(indices ...int) map[int]struct{} {
	s := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

// TestCalcLayoutIdempotentSameInputs checks that retargeting twice with
// unchanged inputs and advancing with zero elapsed time moves no spring.
func TestCalcLayoutIdempotentSameInputs(t *testing.T) {
	lines := sampleLayoutLines()
	indices := []int{0, 1, 2, 3}
	metrics := NewLayoutMetrics(1920, 1080, 1.0)
	params := DefaultLayoutParams()

	m := NewLineAnimationManager()
	m.CalcLayoutWithStagger(metrics, lines, indices, set(1), 1, 0.4, 1920, 1080, false, true, params)
	first := m.Advance(0, indices)
	m.CalcLayoutWithStagger(metrics, lines, indices, set(1), 1, 0.4, 1920, 1080, false, true, params)
	second := m.Advance(0, indices)

	if len(first) != len(second) {
		t.Fatalf("layout length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].PositionY != second[i].PositionY || first[i].Scale != second[i].Scale {
			t.Errorf("line %d layout changed on repeated call with dt=0: %+v -> %+v", i, first[i], second[i])
		}
	}
}

// TestCalcLayoutBufferedLineTargets checks buffered membership drives the
// visual state: scale toward 1.0, opacity 0.85, blur toward 0.
func TestCalcLayoutBufferedLineTargets(t *testing.T) {
	lines := sampleLayoutLines()
	indices := []int{0, 1, 2, 3}
	metrics := NewLayoutMetrics(1920, 1080, 1.0)

	m := NewLineAnimationManager()
	m.CalcLayoutWithStagger(metrics, lines, indices, set(2), 2, 0.4, 1920, 1080, false, true, DefaultLayoutParams())

	// Let the springs settle; targets were set once, frames only advance.
	var layout []LineLayout
	for i := 0; i < 600; i++ {
		layout = m.Advance(16, indices)
	}

	for _, l := range layout {
		if l.LineIndex == 2 {
			if !l.IsCurrent {
				t.Errorf("target line not marked IsCurrent: %+v", l)
			}
			if l.Opacity != 0.85 {
				t.Errorf("buffered line opacity = %v, want 0.85", l.Opacity)
			}
			if diff := l.Scale - 1.0; diff > 0.02 || diff < -0.02 {
				t.Errorf("buffered line scale = %v, want ~1.0 after settling", l.Scale)
			}
			if l.Blur > 0.02 {
				t.Errorf("buffered line blur = %v, want ~0", l.Blur)
			}
		}
	}
}

// TestCalcLayoutNonBufferedLineTargets checks non-buffered lines head for the
// inactive scale, full opacity, and blur |i-T|+1.
func TestCalcLayoutNonBufferedLineTargets(t *testing.T) {
	lines := sampleLayoutLines()
	indices := []int{0, 1, 2, 3}
	metrics := NewLayoutMetrics(1920, 1080, 1.0)
	params := DefaultLayoutParams()

	m := NewLineAnimationManager()
	// Seek so all retargets apply without stagger delays.
	m.CalcLayoutWithStagger(metrics, lines, indices, set(1), 1, 0.4, 1920, 1080, true, true, params)

	var layout []LineLayout
	for i := 0; i < 600; i++ {
		layout = m.Advance(16, indices)
	}

	for _, l := range layout {
		if l.LineIndex != 3 {
			continue
		}
		if diff := l.Scale - params.InactiveScale; diff > 0.02 || diff < -0.02 {
			t.Errorf("non-buffered scale = %v, want ~%v", l.Scale, params.InactiveScale)
		}
		if l.Opacity != 1.0 {
			t.Errorf("non-buffered opacity = %v, want 1.0", l.Opacity)
		}
		// Distance 2 from the target: blur settles toward 3.
		if diff := l.Blur - 3.0; diff > 0.05 || diff < -0.05 {
			t.Errorf("non-buffered blur = %v, want ~3", l.Blur)
		}
	}
}

// TestCalcLayoutBackgroundLineOpacity checks background lines show at 0.4
// while buffered and go invisible otherwise during playback.
func TestCalcLayoutBackgroundLineOpacity(t *testing.T) {
	lines := []LyricLine{
		{Text: "main", StartMs: 0, EndMs: 2000},
		{Text: "echo", StartMs: 500, EndMs: 1800, IsBG: true},
	}
	indices := []int{0, 1}
	metrics := NewLayoutMetrics(1920, 1080, 1.0)

	m := NewLineAnimationManager()
	m.CalcLayoutWithStagger(metrics, lines, indices, set(0, 1), 0, 0.4, 1920, 1080, false, true, DefaultLayoutParams())
	for _, l := range m.Advance(0, indices) {
		if l.LineIndex == 1 && l.Opacity != 0.4 {
			t.Errorf("buffered background opacity = %v, want 0.4", l.Opacity)
		}
	}

	m2 := NewLineAnimationManager()
	m2.CalcLayoutWithStagger(metrics, lines, indices, set(0), 0, 0.4, 1920, 1080, false, true, DefaultLayoutParams())
	for _, l := range m2.Advance(0, indices) {
		if l.LineIndex == 1 && l.Opacity != minimalOpacity {
			t.Errorf("non-buffered background opacity = %v, want %v", l.Opacity, minimalOpacity)
		}
	}
}

// TestCalcLayoutHidePassedLines checks passed main lines go invisible while
// playing when HidePassedLines is set.
func TestCalcLayoutHidePassedLines(t *testing.T) {
	lines := sampleLayoutLines()
	indices := []int{0, 1, 2, 3}
	metrics := NewLayoutMetrics(1920, 1080, 1.0)
	params := DefaultLayoutParams()
	params.HidePassedLines = true

	m := NewLineAnimationManager()
	m.CalcLayoutWithStagger(metrics, lines, indices, set(2), 2, 0.4, 1920, 1080, false, true, params)
	for _, l := range m.Advance(0, indices) {
		if l.LineIndex < 2 && l.Opacity != minimalOpacity {
			t.Errorf("passed line %d opacity = %v, want %v", l.LineIndex, l.Opacity, minimalOpacity)
		}
	}
}

// TestCalcLayoutStaggerDelayGrowsAndClamps checks the geometric stagger
// formula: each line past the target waits longer than the previous one, and
// far lines saturate at the 2s clamp.
func TestCalcLayoutStaggerDelayGrowsAndClamps(t *testing.T) {
	lines := make([]LyricLine, 50)
	indices := make([]int, 50)
	for i := range lines {
		lines[i] = LyricLine{Text: "x", StartMs: int64(i * 1000), EndMs: int64(i*1000 + 900)}
		indices[i] = i
	}
	metrics := NewLayoutMetrics(1920, 1080, 1.0)

	m := NewLineAnimationManager()
	m.CalcLayoutWithStagger(metrics, lines, indices, set(0), 0, 0.4, 1920, 1080, false, true, DefaultLayoutParams())

	prev := 0.0
	for idx := 1; idx < 50; idx++ {
		q := m.positionSprings[idx].queuedX
		if q == nil {
			t.Fatalf("line %d has no queued retarget", idx)
		}
		if q.delayMs < prev {
			t.Errorf("line %d delay %v shorter than line %d's %v", idx, q.delayMs, idx-1, prev)
		}
		if q.delayMs > 2000 {
			t.Errorf("line %d delay %v exceeds the 2s clamp", idx, q.delayMs)
		}
		prev = q.delayMs
	}
	if m.positionSprings[49].queuedX.delayMs != 2000 {
		t.Errorf("far line delay = %v, want saturated at 2000", m.positionSprings[49].queuedX.delayMs)
	}
}

// TestCalcLayoutRetargetOnceThenAdvance checks that stagger countdowns elapse
// across frames when targets are set once: a staggered line eventually
// retargets and starts moving.
func TestCalcLayoutRetargetOnceThenAdvance(t *testing.T) {
	lines := sampleLayoutLines()
	indices := []int{0, 1, 2, 3}
	metrics := NewLayoutMetrics(1920, 1080, 1.0)

	m := NewLineAnimationManager()
	m.CalcLayoutWithStagger(metrics, lines, indices, set(0), 0, 0.4, 1920, 1080, false, true, DefaultLayoutParams())
	// Move the target so line 3's position target changes under a delay.
	m.CalcLayoutWithStagger(metrics, lines, indices, set(1), 1, 0.4, 1920, 1080, false, true, DefaultLayoutParams())

	want := m.positionSprings[3].queuedX
	if want == nil {
		t.Fatal("expected a queued retarget for a line past the target")
	}
	target := want.position

	for i := 0; i < 600; i++ {
		m.Advance(16, indices)
	}
	got := m.positionSprings[3].Position()
	if diff := got - target; diff > 1 || diff < -1 {
		t.Errorf("staggered line position = %v, want settled near %v", got, target)
	}
}
