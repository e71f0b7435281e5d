package audio

import (
	"math"

	"github.com/gopxl/beep"
)

// NumBands is the number of biquad peaking filters in the equalizer.
const NumBands = 10

// eqFrequencies and eqQs are the fixed center-frequency and Q tables for the
// ten peaking bands.
var eqFrequencies = [NumBands]float64{31, 62, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}
var eqQs = [NumBands]float64{0.7, 0.8, 1.0, 1.2, 1.4, 1.4, 1.4, 1.2, 1.0, 0.8}

// biquadCoeffs holds a single band's normalized direct-form-I coefficients.
type biquadCoeffs struct {
	b0, b1, b2 float64
	a1, a2     float64 // a0 normalized away
}

// calcPeakingEQ computes normalized biquad coefficients for a peaking EQ band
// (Audio EQ Cookbook form).
func calcPeakingEQ(freq, q, gainDB, sampleRate float64) biquadCoeffs {
	if gainDB > -0.01 && gainDB < 0.01 {
		return biquadCoeffs{b0: 1} // unity shortcut
	}

	a := math.Pow(10, gainDB/40.0)
	omega := 2 * math.Pi * freq / sampleRate
	sinOmega, cosOmega := math.Sin(omega), math.Cos(omega)
	alpha := sinOmega / (2 * q)

	b0 := 1 + alpha*a
	b1 := -2 * cosOmega
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosOmega
	a2 := 1 - alpha/a

	return biquadCoeffs{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// biquadState is the per-band, per-channel {x1, x2, y1, y2} history.
type biquadState struct {
	x1, x2, y1, y2 float64
}

func (s *biquadState) process(c biquadCoeffs, x float64) float64 {
	y := c.b0*x + c.b1*s.x1 + c.b2*s.x2 - c.a1*s.y1 - c.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}

func (s *biquadState) reset() { *s = biquadState{} }

// Equalizer is ten biquad peaking filters in series, with separate per-band state
// for channels 0 and 1. Coefficients are recomputed on first use, any gain change,
// sample-rate change, or an explicit MarkDirty (polled via params.takeDirty once per
// processed buffer, not per sample).
type Equalizer struct {
	source beep.Streamer
	params *ProcessingChainParams

	coeffs [NumBands]biquadCoeffs
	state  [NumBands][2]biquadState // [band][channel]
}

// NewEqualizer wraps source, forcing a coefficient recompute on first use.
func NewEqualizer(source beep.Streamer, params *ProcessingChainParams) *Equalizer {
	params.MarkDirty()
	return &Equalizer{source: source, params: params}
}

func (e *Equalizer) recomputeIfDirty() {
	if !e.params.takeDirty() {
		return
	}
	sr := float64(e.params.SampleRate())
	gains := e.params.EQGains()
	for i := 0; i < NumBands; i++ {
		e.coeffs[i] = calcPeakingEQ(eqFrequencies[i], eqQs[i], gains[i], sr)
	}
}

// Reset zeroes all filter states; called on seek.
func (e *Equalizer) Reset() {
	for i := range e.state {
		e.state[i][0].reset()
		e.state[i][1].reset()
	}
}

func (e *Equalizer) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.source.Stream(samples)
	if n == 0 {
		return n, ok
	}
	e.recomputeIfDirty()

	if !e.params.EQEnabled() {
		return n, ok
	}

	for i := 0; i < n; i++ {
		for ch := 0; ch < 2; ch++ {
			x := samples[i][ch]
			for band := 0; band < NumBands; band++ {
				x = e.state[band][ch].process(e.coeffs[band], x)
			}
			samples[i][ch] = softClip(x)
		}
	}
	return n, ok
}

func (e *Equalizer) Err() error { return e.source.Err() }

var _ beep.Streamer = (*Equalizer)(nil)
