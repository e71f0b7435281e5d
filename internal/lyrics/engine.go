package lyrics

// Engine tracks the hot/buffered line state machine: "hot"
// lines are strictly within the current playback time window; "buffered" lines
// are the hot lines as most recently committed to the scroll target, which lag
// behind hot-line removal so a new hot line arriving while old ones are still
// buffered does not yank the scroll position.
type Engine struct {
	animations *LineAnimationManager
	interlude  *InterludeDots

	currentTimeMs float64
	isPlaying     bool

	scrollToIndex int
	bufferedLines map[int]struct{}
	hotLines      map[int]struct{}
	notYetSeen    bool
}

// NewEngine returns an Engine with no lines loaded yet.
func NewEngine() *Engine {
	return &Engine{
		animations:    NewLineAnimationManager(),
		interlude:     NewInterludeDots(),
		isPlaying:     true,
		bufferedLines: make(map[int]struct{}),
		hotLines:      make(map[int]struct{}),
		notYetSeen:    true,
	}
}

// Animations exposes the per-line spring manager for the renderer.
func (e *Engine) Animations() *LineAnimationManager { return e.animations }

// Interlude exposes the interlude-dots animation for the renderer.
func (e *Engine) Interlude() *InterludeDots { return e.interlude }

// ScrollToIndex returns the line index the view should be anchored on.
func (e *Engine) ScrollToIndex() int { return e.scrollToIndex }

// BufferedLines returns the currently buffered line indices.
func (e *Engine) BufferedLines() map[int]struct{} { return e.bufferedLines }

// Pause stops the interlude breathing animation's forward progress.
func (e *Engine) Pause() { e.isPlaying = false; e.interlude.Pause() }

// Resume resumes the interlude breathing animation.
func (e *Engine) Resume() { e.isPlaying = true; e.interlude.Resume() }

// SetCurrentTime is the engine's main per-tick entry point: update
// hot/buffered line membership and the interlude state, and report whether
// the scroll state freshly changed — membership changed, a seek occurred, or
// this is the first call with a non-empty line list since NewEngine (a later
// song passed to the same Engine does not count by itself). The caller runs
// CalcLayoutWithStagger only on a true return (springs must not be
// retargeted every frame or the stagger countdowns never elapse) and
// advances the springs every frame regardless.
func (e *Engine) SetCurrentTime(timeMs float64, lines []LyricLine, isSeek bool) bool {
	e.currentTimeMs = timeMs
	linesChanged := len(lines) > 0 && e.firstTime()

	scrollChanged := e.updateHotLines(timeMs, lines, isSeek)
	e.updateInterlude(timeMs, lines)

	return scrollChanged || isSeek || linesChanged
}

// firstTime is a one-shot guard so the first SetCurrentTime call with lines
// after NewEngine is always treated as a layout-forcing change; nothing
// re-arms it for later songs.
func (e *Engine) firstTime() bool {
	first := e.notYetSeen
	e.notYetSeen = false
	return first
}

func (e *Engine) updateHotLines(timeMs float64, lines []LyricLine, isSeek bool) bool {
	time := int64(timeMs)
	oldBuffered := cloneSet(e.bufferedLines)

	// Step 1: drop hot lines whose window has closed, handling the paired
	// main+background-line case where both must close together.
	for idx := range cloneSet(e.hotLines) {
		line, ok := lineAt(lines, idx)
		if !ok {
			delete(e.hotLines, idx)
			continue
		}
		if line.IsBG {
			continue
		}
		if next, hasNext := lineAt(lines, idx+1); hasNext && next.IsBG {
			start := line.StartMs
			if next.StartMs < start {
				start = next.StartMs
			}
			end := line.EndMs
			if next.EndMs > end {
				end = next.EndMs
			}
			if nextMain, hasNextMain := lineAt(lines, idx+2); hasNextMain && nextMain.StartMs > end {
				end = nextMain.StartMs
			}
			if start > time || end <= time {
				delete(e.hotLines, idx)
				delete(e.hotLines, idx+1)
			}
		} else if line.StartMs > time || line.EndMs <= time {
			delete(e.hotLines, idx)
		}
	}

	// Step 2: add newly-entered hot lines, pulling in a trailing background line.
	added := make(map[int]struct{})
	for i, line := range lines {
		if line.IsBG || line.StartMs > time || line.EndMs <= time {
			continue
		}
		if _, ok := e.hotLines[i]; ok {
			continue
		}
		e.hotLines[i] = struct{}{}
		added[i] = struct{}{}
		if next, ok := lineAt(lines, i+1); ok && next.IsBG {
			e.hotLines[i+1] = struct{}{}
			added[i+1] = struct{}{}
		}
	}

	// Step 3: lines currently buffered but no longer hot.
	removed := make(map[int]struct{})
	for idx := range e.bufferedLines {
		if _, stillHot := e.hotLines[idx]; !stillHot {
			removed[idx] = struct{}{}
		}
	}

	switch {
	case isSeek:
		if len(e.bufferedLines) > 0 {
			e.scrollToIndex = minKey(e.bufferedLines)
		} else {
			e.scrollToIndex = firstIndexAtOrAfter(lines, time)
		}
		e.bufferedLines = cloneSet(e.hotLines)

	case len(removed) > 0 || len(added) > 0:
		switch {
		case len(removed) == 0:
			for idx := range added {
				e.bufferedLines[idx] = struct{}{}
			}
			e.scrollToIndex = minKey(e.bufferedLines)
		case len(added) == 0:
			// Only drop buffered lines once ALL of them have gone cold, so a
			// still-active line keeps the scroll target pinned.
			if setsEqual(removed, e.bufferedLines) {
				for idx := range e.bufferedLines {
					if _, stillHot := e.hotLines[idx]; !stillHot {
						delete(e.bufferedLines, idx)
					}
				}
			}
		default:
			for idx := range added {
				e.bufferedLines[idx] = struct{}{}
			}
			for idx := range removed {
				delete(e.bufferedLines, idx)
			}
			if len(e.bufferedLines) > 0 {
				e.scrollToIndex = minKey(e.bufferedLines)
			}
		}
	}

	if len(e.bufferedLines) == 0 && len(e.hotLines) == 0 {
		e.scrollToIndex = findNextLineIndex(lines, time)
	}

	return !setsEqual(e.bufferedLines, oldBuffered)
}

func (e *Engine) updateInterlude(timeMs float64, lines []LyricLine) {
	time := int64(timeMs)
	if len(e.bufferedLines) > 0 {
		e.interlude.SetInterlude(false, 0, 0)
		return
	}

	idx := e.scrollToIndex
	if idx == 0 {
		if len(lines) > 0 && lines[0].StartMs > time {
			if lines[0].StartMs-time >= interludeMinDurationMs {
				e.interlude.SetInterlude(true, timeMs, float64(lines[0].StartMs))
				return
			}
		}
	} else if current, ok := lineAt(lines, idx); ok {
		if next, ok2 := lineAt(lines, idx+1); ok2 {
			if current.EndMs < time && next.StartMs > time {
				if next.StartMs-current.EndMs >= interludeMinDurationMs {
					e.interlude.SetInterlude(true, float64(current.EndMs), float64(next.StartMs))
					return
				}
			}
		}
	}
	e.interlude.SetInterlude(false, 0, 0)
}

func lineAt(lines []LyricLine, idx int) (LyricLine, bool) {
	if idx < 0 || idx >= len(lines) {
		return LyricLine{}, false
	}
	return lines[idx], true
}

func firstIndexAtOrAfter(lines []LyricLine, time int64) int {
	for i, l := range lines {
		if l.StartMs >= time {
			return i
		}
	}
	return 0
}

func findNextLineIndex(lines []LyricLine, time int64) int {
	for i, l := range lines {
		if !l.IsBG && l.StartMs > time {
			return i
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if !lines[i].IsBG && lines[i].EndMs <= time {
			return i
		}
	}
	return 0
}

func cloneSet(s map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func setsEqual(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func minKey(s map[int]struct{}) int {
	first := true
	var min int
	for k := range s {
		if first || k < min {
			min = k
			first = false
		}
	}
	return min
}
