package audio

import (
	"math"

	"github.com/gopxl/beep"
)

// PreampSource reads preamp_db once per sample buffer (cheap; updates are rare so
// contention is a non-issue) and applies gain with a soft-clip ceiling.
type PreampSource struct {
	source beep.Streamer
	params *ProcessingChainParams
}

// NewPreampSource wraps source, reading gain from params.
func NewPreampSource(source beep.Streamer, params *ProcessingChainParams) *PreampSource {
	return &PreampSource{source: source, params: params}
}

func (p *PreampSource) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = p.source.Stream(samples)
	if n == 0 {
		return n, ok
	}

	gainDB := p.params.PreampDB()
	gain := dbToLinear(gainDB)
	if diff := gain - 1.0; diff > -0.001 && diff < 0.001 {
		return n, ok // pass through, within tolerance of unity
	}

	for i := 0; i < n; i++ {
		samples[i][0] = softClip(samples[i][0] * gain)
		samples[i][1] = softClip(samples[i][1] * gain)
	}
	return n, ok
}

func (p *PreampSource) Err() error { return p.source.Err() }

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}
