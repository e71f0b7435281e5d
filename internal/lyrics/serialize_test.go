package lyrics

import "testing"

// TestSerializeLRCRoundTrip feeds SerializeLRC's output back through the LRC
// parser and checks every start time and text survives within 1ms.
func TestSerializeLRCRoundTrip(t *testing.T) {
	in := []LyricLine{
		{Text: "first line", StartMs: 0},
		{Text: "second line", StartMs: 12_345},
		{Text: "third line", StartMs: 61_007},
		{Text: "last line", StartMs: 3_599_999},
	}

	out := parseLRC(SerializeLRC(in))
	if len(out) != len(in) {
		t.Fatalf("round-trip line count = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Text != in[i].Text {
			t.Errorf("line %d text = %q, want %q", i, out[i].Text, in[i].Text)
		}
		delta := out[i].StartMs - in[i].StartMs
		if delta < -1 || delta > 1 {
			t.Errorf("line %d start = %d, want %d (±1ms)", i, out[i].StartMs, in[i].StartMs)
		}
	}
}

func TestFormatLRCTimestamp(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "[00:00.000]"},
		{999, "[00:00.999]"},
		{61_007, "[01:01.007]"},
		{-5, "[00:00.000]"},
	}
	for _, c := range cases {
		if got := formatLRCTimestamp(c.ms); got != c.want {
			t.Errorf("formatLRCTimestamp(%d) = %q, want %q", c.ms, got, c.want)
		}
	}
}
