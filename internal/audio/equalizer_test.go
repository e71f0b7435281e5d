package audio

import "testing"

func TestEqualizerFlatGainsPassThroughApproximately(t *testing.T) {
	params := NewProcessingChainParams(44100)
	params.SetEQEnabled(true)
	// all gains remain at their zero-value default (0 dB, flat).

	src := &constStreamer{value: 0.3, count: 64}
	eq := NewEqualizer(src, params)

	buf := make([][2]float64, 64)
	n, ok := eq.Stream(buf)
	if !ok || n != 64 {
		t.Fatalf("Stream() = %d, %v, want 64, true", n, ok)
	}

	// A flat 0dB peaking EQ is a unity shortcut per calcPeakingEQ, so after the
	// filter settles the output should be within a small tolerance of the input.
	last := buf[n-1][0]
	if diff := last - 0.3; diff > 0.01 || diff < -0.01 {
		t.Errorf("settled output = %v, want close to input 0.3 with flat gains", last)
	}
}

func TestEqualizerDisabledPassesThroughUnmodified(t *testing.T) {
	params := NewProcessingChainParams(44100)
	params.SetEQEnabled(false)
	params.SetEQGain(0, 12)

	src := &constStreamer{value: 0.42, count: 8}
	eq := NewEqualizer(src, params)

	buf := make([][2]float64, 8)
	eq.Stream(buf)

	for i, s := range buf {
		if s[0] != 0.42 {
			t.Errorf("sample %d = %v, want unchanged while EQ disabled", i, s[0])
		}
	}
}

func TestEqualizerResetClearsFilterState(t *testing.T) {
	params := NewProcessingChainParams(44100)
	params.SetEQEnabled(true)
	params.SetEQGain(2, 6)

	src := &constStreamer{value: 0.2, count: 32}
	eq := NewEqualizer(src, params)

	buf := make([][2]float64, 32)
	eq.Stream(buf)

	eq.Reset()
	for _, st := range eq.state {
		if st[0] != (biquadState{}) || st[1] != (biquadState{}) {
			t.Error("Reset() should zero every band's filter state")
		}
	}
}

func TestCalcPeakingEQUnityShortcutForZeroGain(t *testing.T) {
	c := calcPeakingEQ(1000, 1.4, 0, 44100)
	if c.b0 != 1 || c.b1 != 0 || c.b2 != 0 || c.a1 != 0 || c.a2 != 0 {
		t.Errorf("calcPeakingEQ(gain=0) = %+v, want unity passthrough coefficients", c)
	}
}
