package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Format identifies a supported lyric wire format.
type Format string

const (
	FormatLRC  Format = "lrc"
	FormatYRC  Format = "yrc"
	FormatQRC  Format = "qrc"
	FormatLYS  Format = "lys"
	FormatTTML Format = "ttml"
)

// ParseErrors is an error type collecting lyric parse errors. Parse does not
// return it: Parse returns only lines, and a malformed payload produces an
// empty line list rather than an error.
type ParseErrors struct {
	Errors []error
}

func (e *ParseErrors) Error() string {
	if len(e.Errors) == 0 {
		return "lyrics: parse failed"
	}
	return e.Errors[0].Error()
}

// Parse dispatches to the format-specific parser and always runs processLyrics
// afterward. On any error it returns an empty slice (never nil lines with an error
// that callers might forget to check); playback continues without lyrics.
func Parse(format Format, raw []byte) []LyricLine {
	var lines []LyricLine
	switch format {
	case FormatYRC, FormatQRC, FormatLYS:
		lines = parseWordTimed(string(raw))
	case FormatTTML:
		lines = parseTTML(string(raw))
	default:
		lines = parseLRC(string(raw))
	}
	return processLyrics(lines)
}

var lrcTimeTag = regexp.MustCompile(`\[(\d+):(\d+)(?:[.:](\d+))?\]`)

// parseLRC parses line-timed LRC: one or more [mm:ss.xx] tags per line, each
// producing a separate LyricLine sharing the line's text. Words are left empty.
func parseLRC(raw string) []LyricLine {
	var out []LyricLine
	for _, rawLine := range strings.Split(raw, "\n") {
		rawLine = strings.TrimRight(rawLine, "\r")
		tags := lrcTimeTag.FindAllStringSubmatchIndex(rawLine, -1)
		if len(tags) == 0 {
			continue
		}
		lastEnd := tags[len(tags)-1][1]
		text := strings.TrimSpace(rawLine[lastEnd:])

		for _, m := range lrcTimeTag.FindAllStringSubmatch(rawLine, -1) {
			ms := lrcTimestampMs(m)
			out = append(out, LyricLine{Text: text, StartMs: ms})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMs < out[j].StartMs })
	return out
}

func lrcTimestampMs(m []string) int64 {
	min, _ := strconv.ParseInt(m[1], 10, 64)
	sec, _ := strconv.ParseInt(m[2], 10, 64)
	frac := m[3]
	fracMs := int64(0)
	if frac != "" {
		switch len(frac) {
		case 1:
			fracMs, _ = strconv.ParseInt(frac, 10, 64)
			fracMs *= 100
		case 2:
			fracMs, _ = strconv.ParseInt(frac, 10, 64)
			fracMs *= 10
		default:
			v, _ := strconv.ParseInt(frac[:3], 10, 64)
			fracMs = v
		}
	}
	return min*60_000 + sec*1000 + fracMs
}

// wordTag matches the common word-timed delimiter shape shared by YRC/QRC/LYS:
// "(start,duration)word" — the three formats differ mainly in container framing
// (JSON-ish for YRC, flat for QRC/LYS), which this parser normalizes away.
var wordTag = regexp.MustCompile(`\((\d+),(\d+)\)([^(]*)`)
var lineTimeTag = regexp.MustCompile(`^\[(\d+),(\d+)\]`)

// parseWordTimed parses the YRC/QRC/LYS family: a leading [lineStart,lineDuration]
// tag followed by a run of (wordStart,wordDuration)word tags.
func parseWordTimed(raw string) []LyricLine {
	var out []LyricLine
	for _, rawLine := range strings.Split(raw, "\n") {
		rawLine = strings.TrimRight(rawLine, "\r")
		if rawLine == "" {
			continue
		}
		lm := lineTimeTag.FindStringSubmatch(rawLine)
		if lm == nil {
			continue
		}
		lineStart, _ := strconv.ParseInt(lm[1], 10, 64)
		lineDur, _ := strconv.ParseInt(lm[2], 10, 64)
		rest := rawLine[len(lm[0]):]

		var words []LyricWord
		var textBuf strings.Builder
		matches := wordTag.FindAllStringSubmatch(rest, -1)
		for i, wm := range matches {
			wStart, _ := strconv.ParseInt(wm[1], 10, 64)
			wDur, _ := strconv.ParseInt(wm[2], 10, 64)
			text := wm[3]
			textBuf.WriteString(text)
			words = append(words, LyricWord{
				Text:       text,
				StartMs:    wStart,
				EndMs:      wStart + wDur,
				IsLastWord: i == len(matches)-1,
			})
		}
		out = append(out, LyricLine{
			Text:    textBuf.String(),
			Words:   words,
			StartMs: lineStart,
			EndMs:   lineStart + lineDur,
		})
	}
	return out
}

var ttmlP = regexp.MustCompile(`(?s)<p[^>]*begin="([^"]+)"[^>]*end="([^"]+)"[^>]*>(.*?)</p>`)
var ttmlTag = regexp.MustCompile(`<[^>]+>`)

// parseTTML parses the Apple-style TTML subset: <p begin="..." end="...">text</p>
// entries, with begin/end as clock-time strings "hh:mm:ss.fff" or "ss.fff".
func parseTTML(raw string) []LyricLine {
	var out []LyricLine
	for _, m := range ttmlP.FindAllStringSubmatch(raw, -1) {
		start := ttmlClockMs(m[1])
		end := ttmlClockMs(m[2])
		text := strings.TrimSpace(ttmlTag.ReplaceAllString(m[3], ""))
		out = append(out, LyricLine{Text: text, StartMs: start, EndMs: end})
	}
	return out
}

func ttmlClockMs(s string) int64 {
	parts := strings.Split(s, ":")
	var h, m int64
	var secStr string
	switch len(parts) {
	case 3:
		h, _ = strconv.ParseInt(parts[0], 10, 64)
		m, _ = strconv.ParseInt(parts[1], 10, 64)
		secStr = parts[2]
	case 2:
		m, _ = strconv.ParseInt(parts[0], 10, 64)
		secStr = parts[1]
	default:
		secStr = parts[0]
	}
	secF, _ := strconv.ParseFloat(secStr, 64)
	return h*3_600_000 + m*60_000 + int64(secF*1000)
}

// anticipationMs is how far forward a main line's start time is brought, bounded
// below by the previous line's end, so entry animations start ahead of the
// sung line.
const anticipationMs = 1000

// defaultLastLineTailMs is the fallback duration for the final line's end_ms.
const defaultLastLineTailMs = 5000

// processLyrics is the post-parse pipeline: anticipatory start-time shift,
// end-time derivation, and mask-keyframe computation. Background lines keep
// their own time ranges; they are not merged with their parent lines here.
func processLyrics(lines []LyricLine) []LyricLine {
	if len(lines) == 0 {
		return lines
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].StartMs < lines[j].StartMs })

	// Derive missing end times from the next line's start (or +5s for the last).
	for i := range lines {
		if lines[i].EndMs > lines[i].StartMs {
			continue
		}
		if i+1 < len(lines) {
			lines[i].EndMs = lines[i+1].StartMs
		} else {
			lines[i].EndMs = lines[i].StartMs + defaultLastLineTailMs
		}
	}

	// Anticipatory start shift, bounded below by the previous line's end.
	for i := range lines {
		if lines[i].IsBG {
			continue
		}
		shifted := lines[i].StartMs - anticipationMs
		lowerBound := int64(0)
		if i > 0 {
			lowerBound = lines[i-1].EndMs
		}
		if shifted < lowerBound {
			shifted = lowerBound
		}
		if shifted < lines[i].StartMs {
			lines[i].StartMs = shifted
		}
	}

	for i := range lines {
		for j := range lines[i].Words {
			lines[i].Words[j].Emphasize = lines[i].Words[j].shouldEmphasize()
		}
		processWordsWithChunking(lines[i].Words)
		lines[i].MaskAnimation = computeMaskKeyframes(lines[i])
	}

	return lines
}
