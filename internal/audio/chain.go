// Package audio implements the pull-based DSP chain (preamp -> 10-band EQ ->
// spectrum analyzer) and the preloading player.
//
// Sources are chained by wrapping gopxl/beep's beep.Streamer, the same way the
// player composes beep.Resample and effects.Volume around a
// beep.StreamSeekCloser: each wrapper forwards beep's Stream/Err contract and
// transforms sample frames in place. Stereo frames ([2]float64 per sample) already
// give the per-channel-0/channel-1 split the chain's per-band filter state needs; beep
// never produces more than two channels, so a >2-channel clamp cannot be needed
// through this decoder path.
package audio

import (
	"math"
	"sync"

	"github.com/gopxl/beep"
)

// ProcessingChainParams is the record shared between the UI and DSP threads: all fields are
// read/writable from any thread (UI sets them, the DSP thread polls eqCoeffsDirty
// once per processed buffer to decide whether to recompute coefficients). Guarded by a single
// mutex rather than raw atomics because gains are set together as a batch far more
// often than they are read per-sample; the EQ itself snapshots under a short read
// lock once per processed buffer, not per sample.
type ProcessingChainParams struct {
	mu            sync.RWMutex
	preampDB      float64
	sampleRate    int
	eqEnabled     bool
	eqGains       [NumBands]float64
	eqCoeffsDirty bool
}

// NewProcessingChainParams returns params with preamp at unity and EQ enabled with
// flat (0 dB) gains, flagged dirty so the first use recomputes coefficients.
func NewProcessingChainParams(sampleRate int) *ProcessingChainParams {
	p := &ProcessingChainParams{
		sampleRate:    sampleRate,
		eqEnabled:     true,
		eqCoeffsDirty: true,
	}
	return p
}

func (p *ProcessingChainParams) PreampDB() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.preampDB
}

// SetPreampDB clamps to [-12, +12].
func (p *ProcessingChainParams) SetPreampDB(db float64) {
	if db < -12 {
		db = -12
	} else if db > 12 {
		db = 12
	}
	p.mu.Lock()
	p.preampDB = db
	p.mu.Unlock()
}

func (p *ProcessingChainParams) SampleRate() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sampleRate
}

// SetSampleRate updates the rate and marks EQ coefficients dirty (they are
// frequency-normalized against fs).
func (p *ProcessingChainParams) SetSampleRate(sr int) {
	p.mu.Lock()
	p.sampleRate = sr
	p.eqCoeffsDirty = true
	p.mu.Unlock()
}

func (p *ProcessingChainParams) EQEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.eqEnabled
}

func (p *ProcessingChainParams) SetEQEnabled(enabled bool) {
	p.mu.Lock()
	p.eqEnabled = enabled
	p.mu.Unlock()
}

// EQGains returns a copy of the 10 band gains.
func (p *ProcessingChainParams) EQGains() [NumBands]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.eqGains
}

// SetEQGain clamps gainDB to [-12, +12] and marks coefficients dirty.
func (p *ProcessingChainParams) SetEQGain(band int, gainDB float64) {
	if band < 0 || band >= NumBands {
		return
	}
	if gainDB < -12 {
		gainDB = -12
	} else if gainDB > 12 {
		gainDB = 12
	}
	p.mu.Lock()
	p.eqGains[band] = gainDB
	p.eqCoeffsDirty = true
	p.mu.Unlock()
}

// MarkDirty forces a coefficient recompute on next use; called on every new track
// to flush stale state.
func (p *ProcessingChainParams) MarkDirty() {
	p.mu.Lock()
	p.eqCoeffsDirty = true
	p.mu.Unlock()
}

// takeDirty reports and clears the dirty flag in one step (polled by the EQ).
func (p *ProcessingChainParams) takeDirty() bool {
	p.mu.Lock()
	dirty := p.eqCoeffsDirty
	p.eqCoeffsDirty = false
	p.mu.Unlock()
	return dirty
}

// softClip is the soft-clip limiter shared by PreampSource and the Equalizer's output
// stage: identity below 0.9, smoothly compressed above it.
func softClip(x float64) float64 {
	const knee = 0.9
	if x > -knee && x < knee {
		return x
	}
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	ax := x
	if ax < 0 {
		ax = -ax
	}
	return sign * (knee + 0.1*math.Tanh(10*(ax-knee)))
}

var _ beep.Streamer = (*PreampSource)(nil)
