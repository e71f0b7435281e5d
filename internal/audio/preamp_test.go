package audio

import "testing"

// constStreamer emits a fixed value in every channel of every sample until count
// samples are exhausted.
type constStreamer struct {
	value float64
	count int
}

func (c *constStreamer) Stream(samples [][2]float64) (int, bool) {
	n := len(samples)
	if n > c.count {
		n = c.count
	}
	for i := 0; i < n; i++ {
		samples[i][0] = c.value
		samples[i][1] = c.value
	}
	c.count -= n
	return n, n > 0
}

func (c *constStreamer) Err() error { return nil }

func TestPreampSourcePassesThroughAtUnityGain(t *testing.T) {
	params := NewProcessingChainParams(44100)
	params.SetPreampDB(0)

	src := &constStreamer{value: 0.5, count: 4}
	p := NewPreampSource(src, params)

	buf := make([][2]float64, 4)
	n, ok := p.Stream(buf)

	if !ok || n != 4 {
		t.Fatalf("Stream() = %d, %v, want 4, true", n, ok)
	}
	for i, s := range buf {
		if s[0] != 0.5 || s[1] != 0.5 {
			t.Errorf("sample %d = %v, want unchanged at unity gain", i, s)
		}
	}
}

func TestPreampSourceAppliesPositiveGain(t *testing.T) {
	params := NewProcessingChainParams(44100)
	params.SetPreampDB(6)

	src := &constStreamer{value: 0.1, count: 2}
	p := NewPreampSource(src, params)

	buf := make([][2]float64, 2)
	n, _ := p.Stream(buf)
	if n != 2 {
		t.Fatalf("Stream() n = %d, want 2", n)
	}

	if buf[0][0] <= 0.1 {
		t.Errorf("sample = %v, want amplified above 0.1 at +6dB", buf[0][0])
	}
}

func TestPreampSourceClampsViaSoftClip(t *testing.T) {
	params := NewProcessingChainParams(44100)
	params.SetPreampDB(12)

	src := &constStreamer{value: 1.0, count: 1}
	p := NewPreampSource(src, params)

	buf := make([][2]float64, 1)
	p.Stream(buf)

	if buf[0][0] >= dbToLinear(12) {
		t.Errorf("sample = %v, expected soft-clip to keep output below the raw gain*input", buf[0][0])
	}
}

func TestPreampSourceEmptyStreamPassesThrough(t *testing.T) {
	params := NewProcessingChainParams(44100)
	src := &constStreamer{value: 0.5, count: 0}
	p := NewPreampSource(src, params)

	buf := make([][2]float64, 4)
	n, ok := p.Stream(buf)
	if n != 0 || ok {
		t.Errorf("Stream() on an exhausted source = %d, %v, want 0, false", n, ok)
	}
}
