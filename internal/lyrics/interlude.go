package lyrics

import "math"

// interludeMinDurationMs is the minimum instrumental gap that triggers the
// three-dot breathing animation.
const interludeMinDurationMs = 4000

func easeInOutBack(x float64) float64 {
	const c1 = 1.70158
	const c2 = c1 * 1.525
	if x < 0.5 {
		return (math.Pow(2*x, 2) * ((c2+1)*2*x - c2)) / 2
	}
	return (math.Pow(2*x-2, 2)*((c2+1)*(x*2-2)+c2) + 2) / 2
}

func easeOutExpo(x float64) float64 {
	if x >= 1 {
		return 1
	}
	return 1 - math.Pow(2, -10*x)
}

func clampF(min, cur, max float64) float64 {
	if cur < min {
		return min
	}
	if cur > max {
		return max
	}
	return cur
}

// InterludeDots animates three dots with a sequential "breathing" light-up
// pattern during instrumental gaps.
type InterludeDots struct {
	Left, Top      float64
	Playing        bool
	Enabled        bool
	Scale          float64
	DotOpacities   [3]float64

	hasInterlude         bool
	interludeStartMs     float64
	interludeEndMs       float64
	currentTimeMs        float64
	targetBreatheDuration float64
}

// NewInterludeDots returns dots that are hidden (not Enabled) with Playing set,
// so they animate as soon as an interlude enables them.
func NewInterludeDots() *InterludeDots {
	return &InterludeDots{Playing: true, targetBreatheDuration: 1500}
}

// SetTransform sets the dots' screen anchor position.
func (d *InterludeDots) SetTransform(left, top float64) { d.Left, d.Top = left, top }

// SetInterlude sets or clears the active interlude time range.
func (d *InterludeDots) SetInterlude(active bool, startMs, endMs float64) {
	d.hasInterlude = active
	d.interludeStartMs, d.interludeEndMs = startMs, endMs
	d.Enabled = active
	if active {
		d.currentTimeMs = startMs
	} else {
		d.currentTimeMs = 0
		d.Scale = 0
		d.DotOpacities = [3]float64{}
	}
}

// Pause freezes animation progression.
func (d *InterludeDots) Pause() { d.Playing = false }

// Resume resumes animation progression.
func (d *InterludeDots) Resume() { d.Playing = true }

// Update advances the breathing animation by deltaMs: a sinusoidal breathe
// cycle sized to fit a whole number of
// target_breathe_duration periods within the interlude, with fade-in/out at
// the edges and a sequential per-dot opacity ramp.
func (d *InterludeDots) Update(deltaMs float64) {
	if !d.Playing {
		return
	}
	d.currentTimeMs += deltaMs

	if !d.hasInterlude {
		d.Scale = 0
		d.DotOpacities = [3]float64{}
		return
	}

	interludeDuration := d.interludeEndMs - d.interludeStartMs
	currentDuration := d.currentTimeMs - d.interludeStartMs

	if currentDuration < 0 || currentDuration > interludeDuration {
		d.Scale = 0
		d.DotOpacities = [3]float64{}
		return
	}

	breatheDuration := interludeDuration / math.Ceil(interludeDuration/d.targetBreatheDuration)

	scale := 1.0
	globalOpacity := 1.0

	scale *= math.Sin(1.5*math.Pi-(currentDuration/breatheDuration)*2.0)/20.0 + 1.0

	if currentDuration < 2000 {
		scale *= easeOutExpo(currentDuration / 2000.0)
	}

	switch {
	case currentDuration < 500:
		globalOpacity = 0
	case currentDuration < 1000:
		globalOpacity *= (currentDuration - 500) / 500
	}

	if interludeDuration-currentDuration < 750 {
		scale *= 1.0 - easeInOutBack((750.0-(interludeDuration-currentDuration))/750.0/2.0)
	}
	if interludeDuration-currentDuration < 375 {
		globalOpacity *= clampF(0, (interludeDuration-currentDuration)/375.0, 1)
	}

	dotsDuration := interludeDuration - 750
	if dotsDuration < 0 {
		dotsDuration = 0
	}

	if scale < 0 {
		scale = 0
	}
	d.Scale = scale * 0.7

	if dotsDuration > 0 {
		d.DotOpacities[0] = clampF(0.25, (currentDuration*3.0/dotsDuration)*0.75, 1) * globalOpacity
		d.DotOpacities[1] = clampF(0.25, ((currentDuration-dotsDuration/3.0)*3.0/dotsDuration)*0.75, 1) * globalOpacity
		d.DotOpacities[2] = clampF(0.25, ((currentDuration-(dotsDuration/3.0)*2.0)*3.0/dotsDuration)*0.75, 1) * globalOpacity
	}
}

// ShouldShowForDuration reports whether a gap of durationMs is long enough to
// warrant showing the interlude dots.
func ShouldShowForDuration(durationMs float64) bool {
	return durationMs >= interludeMinDurationMs
}
