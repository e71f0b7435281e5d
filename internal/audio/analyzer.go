package audio

import (
	"math"
	"sync"

	"github.com/gopxl/beep"
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTSize gives ~11.7Hz resolution at 48kHz (4096-point FFT).
const FFTSize = 4096

// SpectrumBars is the number of logarithmically spaced visualization bands.
const SpectrumBars = 128

const (
	minFreq = 20.0
	maxFreq = 20000.0
)

// AnalysisState is the per-channel RMS accumulators, mono sample ring, smoothed-dB
// spectrum and peak-hold spectrum, all behind a single RWMutex.
type AnalysisState struct {
	mu sync.RWMutex

	leftRMS, rightRMS float64
	spectrumDB        [SpectrumBars]float64
	peakDB            [SpectrumBars]float64

	sampleBuffer []float64 // mono-mixed FFT accumulation buffer
	leftSamples  []float64
	rightSamples []float64

	currentChannel int
	sampleRate     int
	decay          float64
	peakDecay      float64

	fft *fourier.FFT
}

// NewAnalysisState returns a state with spectrum/peak floors at -60dB.
func NewAnalysisState(sampleRate int) *AnalysisState {
	s := &AnalysisState{
		sampleRate: sampleRate,
		decay:      0.85,
		peakDecay:  0.98,
		fft:        fourier.NewFFT(FFTSize),
	}
	for i := range s.spectrumDB {
		s.spectrumDB[i] = -60
		s.peakDB[i] = -60
	}
	return s
}

// LeftRMS returns the smoothed left-channel RMS level (0..1).
func (s *AnalysisState) LeftRMS() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leftRMS
}

// RightRMS returns the smoothed right-channel RMS level (0..1).
func (s *AnalysisState) RightRMS() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rightRMS
}

// SpectrumDB returns a copy of the smoothed per-bar magnitude in dB.
func (s *AnalysisState) SpectrumDB() [SpectrumBars]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spectrumDB
}

// PeakDB returns a copy of the per-bar peak-hold magnitude in dB.
func (s *AnalysisState) PeakDB() [SpectrumBars]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peakDB
}

// SetDecay sets the attack/decay smoothing factor, clamped to [0, 0.99].
func (s *AnalysisState) SetDecay(decay float64) {
	if decay < 0 {
		decay = 0
	} else if decay > 0.99 {
		decay = 0.99
	}
	s.mu.Lock()
	s.decay = decay
	s.mu.Unlock()
}

// Reset clears all accumulators and spectrum floors; called on try_seek.
func (s *AnalysisState) Reset() {
	s.mu.Lock()
	s.leftRMS, s.rightRMS = 0, 0
	for i := range s.spectrumDB {
		s.spectrumDB[i] = -60
		s.peakDB[i] = -60
	}
	s.sampleBuffer = s.sampleBuffer[:0]
	s.leftSamples = s.leftSamples[:0]
	s.rightSamples = s.rightSamples[:0]
	s.currentChannel = 0
	s.mu.Unlock()
}

// processSample accumulates one channel-interleaved sample and triggers FFT once
// the mono-mix buffer reaches FFTSize.
func (s *AnalysisState) processSample(sample float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel := s.currentChannel
	const channels = 2

	switch channel {
	case 0:
		s.leftSamples = append(s.leftSamples, sample)
		s.sampleBuffer = append(s.sampleBuffer, sample)
	case 1:
		s.rightSamples = append(s.rightSamples, sample)
		if n := len(s.sampleBuffer); n > 0 {
			s.sampleBuffer[n-1] = (s.sampleBuffer[n-1] + sample) * 0.5
		}
	}
	s.currentChannel = (channel + 1) % channels

	if len(s.sampleBuffer) >= FFTSize {
		s.performFFT()
	}
}

// performFFT must be called with mu held. One pass per full window: RMS, Hann
// window, FFT magnitude scaled by 1/sqrt(N), log-banding, attack/decay
// smoothing, peak hold, then 50% overlap drain.
func (s *AnalysisState) performFFT() {
	if len(s.leftSamples) > 0 {
		sumSq := 0.0
		for _, v := range s.leftSamples {
			sumSq += v * v
		}
		rms := math.Sqrt(sumSq / float64(len(s.leftSamples)))
		if rms > 1 {
			rms = 1
		}
		s.leftRMS = s.leftRMS*0.7 + rms*0.3
	}
	if len(s.rightSamples) > 0 {
		sumSq := 0.0
		for _, v := range s.rightSamples {
			sumSq += v * v
		}
		rms := math.Sqrt(sumSq / float64(len(s.rightSamples)))
		if rms > 1 {
			rms = 1
		}
		s.rightRMS = s.rightRMS*0.7 + rms*0.3
	}

	windowed := make([]float64, FFTSize)
	hannWindow(s.sampleBuffer[:FFTSize], windowed)

	coeffs := s.fft.Coefficients(nil, windowed)
	sampleRate := float64(s.sampleRate)
	binHz := sampleRate / float64(FFTSize)
	sqrtN := math.Sqrt(float64(FFTSize))

	decay := s.decay
	peakDecay := s.peakDecay

	for bar := 0; bar < SpectrumBars; bar++ {
		t0 := float64(bar) / float64(SpectrumBars)
		t1 := float64(bar+1) / float64(SpectrumBars)
		freqLow := minFreq * math.Pow(maxFreq/minFreq, t0)
		freqHigh := minFreq * math.Pow(maxFreq/minFreq, t1)

		maxMag := 0.0
		for k, c := range coeffs {
			f := float64(k) * binHz
			if f < freqLow || f >= freqHigh {
				continue
			}
			mag := cmplxAbs(c) / sqrtN
			if mag > maxMag {
				maxMag = mag
			}
		}

		db := -60.0
		if maxMag > 0 {
			db = clamp(20*math.Log10(maxMag), -60, 12)
		}

		current := s.spectrumDB[bar]
		if db > current {
			s.spectrumDB[bar] = current*0.3 + db*0.7
		} else {
			s.spectrumDB[bar] = current*decay + db*(1-decay)
		}

		if db > s.peakDB[bar] {
			s.peakDB[bar] = db
		} else {
			s.peakDB[bar] = s.peakDB[bar]*peakDecay + (-60)*(1-peakDecay)
		}
	}

	overlap := FFTSize / 2
	s.sampleBuffer = append(s.sampleBuffer[:0], s.sampleBuffer[overlap:]...)
	s.leftSamples = s.leftSamples[:0]
	s.rightSamples = s.rightSamples[:0]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// hannWindow applies a Hann window in place into dst (len(dst) == len(src)).
func hannWindow(src, dst []float64) {
	n := len(src)
	for i, v := range src {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		dst[i] = v * w
	}
}

// AnalyzingSource is transparent (passes samples unchanged) but feeds AnalysisState.
type AnalyzingSource struct {
	source   beep.Streamer
	analysis *AnalysisState
}

// NewAnalyzingSource wraps source, feeding analysis on every processed sample.
func NewAnalyzingSource(source beep.Streamer, analysis *AnalysisState) *AnalyzingSource {
	return &AnalyzingSource{source: source, analysis: analysis}
}

func (a *AnalyzingSource) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = a.source.Stream(samples)
	for i := 0; i < n; i++ {
		a.analysis.processSample(samples[i][0])
		a.analysis.processSample(samples[i][1])
	}
	return n, ok
}

func (a *AnalyzingSource) Err() error { return a.source.Err() }

// ResetOnSeek resets analysis buffers; call from the player's try_seek handling.
func (a *AnalyzingSource) ResetOnSeek() { a.analysis.Reset() }

var _ beep.Streamer = (*AnalyzingSource)(nil)
