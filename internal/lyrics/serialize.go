package lyrics

import (
	"fmt"
	"strings"
)

// SerializeLRC renders lines back into line-timed LRC text, one [mm:ss.mmm]
// tag per line. Millisecond-precision fractions are used so a parse of the
// output reproduces the input start times exactly; the classic two-digit
// centisecond form would lose up to 9ms per tag.
func SerializeLRC(lines []LyricLine) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(formatLRCTimestamp(line.StartMs))
		b.WriteString(line.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func formatLRCTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	min := ms / 60_000
	sec := (ms % 60_000) / 1000
	frac := ms % 1000
	return fmt.Sprintf("[%02d:%02d.%03d]", min, sec, frac)
}
