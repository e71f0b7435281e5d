package audio

import "testing"

func TestProcessingChainParamsClampsPreamp(t *testing.T) {
	p := NewProcessingChainParams(44100)

	p.SetPreampDB(100)
	if p.PreampDB() != 12 {
		t.Errorf("PreampDB() = %v, want clamped to 12", p.PreampDB())
	}

	p.SetPreampDB(-100)
	if p.PreampDB() != -12 {
		t.Errorf("PreampDB() = %v, want clamped to -12", p.PreampDB())
	}
}

func TestProcessingChainParamsClampsEQGain(t *testing.T) {
	p := NewProcessingChainParams(44100)

	p.SetEQGain(0, 50)
	if gains := p.EQGains(); gains[0] != 12 {
		t.Errorf("EQGains()[0] = %v, want clamped to 12", gains[0])
	}

	p.SetEQGain(0, -50)
	if gains := p.EQGains(); gains[0] != -12 {
		t.Errorf("EQGains()[0] = %v, want clamped to -12", gains[0])
	}
}

func TestProcessingChainParamsSetEQGainIgnoresOutOfRangeBand(t *testing.T) {
	p := NewProcessingChainParams(44100)
	before := p.EQGains()

	p.SetEQGain(-1, 5)
	p.SetEQGain(NumBands, 5)

	if after := p.EQGains(); after != before {
		t.Error("SetEQGain with an out-of-range band index should be a no-op")
	}
}

func TestProcessingChainParamsDirtyFlag(t *testing.T) {
	p := NewProcessingChainParams(44100)

	if !p.takeDirty() {
		t.Error("a freshly created params should start dirty")
	}
	if p.takeDirty() {
		t.Error("takeDirty should clear the flag after reading it")
	}

	p.SetEQGain(1, 3)
	if !p.takeDirty() {
		t.Error("SetEQGain should mark params dirty")
	}
}

func TestSoftClipIdentityBelowKnee(t *testing.T) {
	for _, x := range []float64{0, 0.5, -0.5, 0.89, -0.89} {
		if got := softClip(x); got != x {
			t.Errorf("softClip(%v) = %v, want identity below the knee", x, got)
		}
	}
}

func TestSoftClipCompressesAboveKnee(t *testing.T) {
	got := softClip(2.0)
	if got <= 0.9 || got >= 2.0 {
		t.Errorf("softClip(2.0) = %v, want compressed into (0.9, 2.0)", got)
	}
}

func TestSoftClipIsOddSymmetric(t *testing.T) {
	for _, x := range []float64{1.5, 3.0, 0.95} {
		pos := softClip(x)
		neg := softClip(-x)
		if pos != -neg {
			t.Errorf("softClip(%v) = %v, softClip(%v) = %v, want symmetric", x, pos, -x, neg)
		}
	}
}
