package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"

	"github.com/Alexander-D-Karpov/waveline/internal/dispatch"
	"github.com/Alexander-D-Karpov/waveline/internal/logx"
)

// Status is the player's lifecycle state.
type Status int

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
	StatusPausing
	StatusBuffering
)

// FadeKind distinguishes the two fade directions carried by FadeState.
type FadeKind int

const (
	FadeNone FadeKind = iota
	FadeIn
	FadeOut
)

// FadeState captures an in-progress volume fade.
type FadeState struct {
	Kind     FadeKind
	Start    time.Time
	Duration time.Duration
	V0, V1   float64
}

const defaultFadeDuration = 300 * time.Millisecond
const minPlayTime = 5 * time.Second
const finishPositionSlack = 500 * time.Millisecond

// sink bundles one fully constructed, chained, speaker-attached playback path:
// decoder -> PreampSource -> Equalizer -> AnalyzingSource -> beep.Ctrl -> effects.Volume.
// Preloaded sinks are built through the same path and held paused, so a track
// switch only has to unpause them.
type sink struct {
	path      string
	streamer  beep.StreamSeekCloser
	closer    func() error
	format    beep.Format
	params    *ProcessingChainParams
	eq        *Equalizer
	analysis  *AnalysisState
	analyzing *AnalyzingSource
	ctrl      *beep.Ctrl
	volume    *effects.Volume
	duration  time.Duration
	paused    bool
}

func (s *sink) setVolume(linear float64) {
	if linear <= 0 {
		s.volume.Silent = true
		return
	}
	s.volume.Silent = false
	s.volume.Volume = dbFromLinearForBeep(linear)
}

// dbFromLinearForBeep converts a 0..~1.5 linear multiplier into beep's effects.Volume
// Base-2 log-volume convention (Volume is log2 of the amplitude multiplier).
func dbFromLinearForBeep(linear float64) float64 {
	if linear <= 0.0001 {
		return -10
	}
	return log2(linear)
}

// Player owns the current sink and up to two preloaded sinks, implementing play,
// preload_prev/next, switch_to_next/prev, pause/resume, seek, and switch_device.
type Player struct {
	mu sync.Mutex

	status   Status
	volume   float64 // master volume 0..1
	fade     FadeState
	current  *sink
	prePrev  *sink
	preNext  *sink

	sampleRate  int
	startedAt   time.Time
	pausedPos   time.Duration

	dispatcher *dispatch.Dispatcher
	log        *logx.Logger

	positionCallback func(time.Duration)
	finishedCallback func()

	speakerOnce sync.Once
	ticker      *time.Ticker
	tickerDone  chan struct{}
}

// NewPlayer constructs a Player with the given output sample rate and debug flag.
func NewPlayer(sampleRate int, debug bool) *Player {
	return &Player{
		status:     StatusStopped,
		volume:     0.7,
		sampleRate: sampleRate,
		dispatcher: dispatch.New(),
		log:        logx.New("PLAYER", debug),
	}
}

func (p *Player) initSpeaker() {
	p.speakerOnce.Do(func() {
		speaker.Init(beep.SampleRate(p.sampleRate), p.sampleRate/10)
	})
}

// OnPositionChanged registers a callback dispatched on the UI thread (via the
// fyne.Do-style dispatcher), matching player.go's updatePositionCallback idiom.
func (p *Player) OnPositionChanged(cb func(time.Duration)) {
	p.mu.Lock()
	p.positionCallback = cb
	p.mu.Unlock()
}

// OnFinished registers the finish callback the engine uses to advance the queue.
func (p *Player) OnFinished(cb func()) {
	p.mu.Lock()
	p.finishedCallback = cb
	p.mu.Unlock()
}

func (p *Player) openSink(path string, duration time.Duration) (*sink, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", path, err)
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}

	params := NewProcessingChainParams(int(format.SampleRate))
	preamp := NewPreampSource(streamer, params)
	eq := NewEqualizer(preamp, params)
	analysis := NewAnalysisState(int(format.SampleRate))
	analyzing := NewAnalyzingSource(eq, analysis)

	ctrl := &beep.Ctrl{Streamer: analyzing, Paused: true}
	volume := &effects.Volume{Streamer: ctrl, Base: 2}

	return &sink{
		path:      path,
		streamer:  streamer,
		closer:    streamer.Close,
		format:    format,
		params:    params,
		eq:        eq,
		analysis:  analysis,
		analyzing: analyzing,
		ctrl:      ctrl,
		volume:    volume,
		duration:  duration,
		paused:    true,
	}, nil
}

// Play stops the current sink, clears preloads, opens path, and starts playback.
// If fadeIn, begins a 300ms linear fade from 0 to the master volume; there is
// no per-track gain.
func (p *Player) Play(path string, duration time.Duration, fadeIn bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopInternalLocked()
	p.clearPreloadsLocked()
	p.initSpeaker()

	s, err := p.openSink(path, duration)
	if err != nil {
		return err
	}
	s.ctrl.Paused = false
	s.paused = false

	target := p.volume
	if fadeIn {
		s.setVolume(0)
		p.fade = FadeState{Kind: FadeIn, Start: time.Now(), Duration: defaultFadeDuration, V0: 0, V1: target}
	} else {
		s.setVolume(target)
		p.fade = FadeState{}
	}

	p.current = s
	p.status = StatusPlaying
	p.startedAt = time.Now()
	p.pausedPos = 0

	speaker.Play(beep.Seq(s.volume, beep.Callback(p.onSinkFinished)))
	p.startTickerLocked()
	return nil
}

// preload opens path, chains it, and pauses it immediately; any previous preload for
// the same slot is stopped. Skipped if path equals the current path or is already
// the preloaded path for that slot.
func (p *Player) preload(path string, duration time.Duration, next bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.path == path {
		return nil
	}
	existing := p.preNext
	if !next {
		existing = p.prePrev
	}
	if existing != nil && existing.path == path {
		return nil
	}

	p.initSpeaker()
	s, err := p.openSink(path, duration)
	if err != nil {
		return err
	}
	s.setVolume(0)

	if next {
		if p.preNext != nil {
			p.preNext.closer()
		}
		p.preNext = s
	} else {
		if p.prePrev != nil {
			p.prePrev.closer()
		}
		p.prePrev = s
	}

	speaker.Play(s.volume) // added paused; silent and inert until ctrl.Paused is cleared
	return nil
}

// PreloadNext builds a paused, ready-to-play sink for the next track.
func (p *Player) PreloadNext(path string, duration time.Duration) error {
	return p.preload(path, duration, true)
}

// PreloadPrev builds a paused, ready-to-play sink for the previous track.
func (p *Player) PreloadPrev(path string, duration time.Duration) error {
	return p.preload(path, duration, false)
}

// switchTo promotes a preloaded sink to current: stops the current sink, resets
// analysis, marks the EQ dirty, then plays the preload. Returns the new path.
func (p *Player) switchTo(next bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pre *sink
	if next {
		pre = p.preNext
	} else {
		pre = p.prePrev
	}
	if pre == nil {
		return "", errors.New("audio: no preloaded sink for that slot")
	}

	p.stopInternalLocked()
	pre.analysis.Reset()
	pre.params.MarkDirty()

	pre.ctrl.Paused = false
	pre.paused = false
	pre.setVolume(p.volume)

	p.current = pre
	if next {
		p.preNext = nil
	} else {
		p.prePrev = nil
	}
	p.clearPreloadsLocked()

	p.status = StatusPlaying
	p.startedAt = time.Now()
	p.pausedPos = 0
	p.startTickerLocked()

	return pre.path, nil
}

// SwitchToNext promotes the preloaded next sink to current, for gapless switching.
func (p *Player) SwitchToNext() (string, error) { return p.switchTo(true) }

// SwitchToPrev promotes the preloaded previous sink to current.
func (p *Player) SwitchToPrev() (string, error) { return p.switchTo(false) }

// Pause begins a fade-out (if fade) then commits to Paused; otherwise pauses
// immediately. During fade-out the status transitions Playing -> Pausing -> Paused.
func (p *Player) Pause(fade bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.status != StatusPlaying {
		return
	}
	p.pausedPos = time.Since(p.startedAt)
	if !fade {
		speaker.Lock()
		p.current.ctrl.Paused = true
		speaker.Unlock()
		p.status = StatusPaused
		p.stopTickerLocked()
		return
	}
	p.status = StatusPausing
	p.fade = FadeState{Kind: FadeOut, Start: time.Now(), Duration: defaultFadeDuration, V0: p.volume, V1: 0}
}

// Resume begins a fade-in (if fade) then Playing; otherwise resumes immediately.
func (p *Player) Resume(fade bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || (p.status != StatusPaused && p.status != StatusPausing) {
		return
	}
	p.startedAt = time.Now().Add(-p.pausedPos)
	speaker.Lock()
	p.current.ctrl.Paused = false
	speaker.Unlock()
	p.status = StatusPlaying
	p.startTickerLocked()
	if fade {
		p.current.setVolume(0)
		p.fade = FadeState{Kind: FadeIn, Start: time.Now(), Duration: defaultFadeDuration, V0: 0, V1: p.volume}
	} else {
		p.current.setVolume(p.volume)
		p.fade = FadeState{}
	}
}

// updateFade linearly interpolates volume between fade endpoints; called each tick.
// Commits FadingOut -> Paused when the fade completes.
func (p *Player) updateFade() {
	if p.fade.Kind == FadeNone || p.current == nil {
		return
	}
	elapsed := time.Since(p.fade.Start)
	t := float64(elapsed) / float64(p.fade.Duration)
	if t >= 1 {
		t = 1
	}
	v := p.fade.V0 + (p.fade.V1-p.fade.V0)*t
	p.current.setVolume(v)

	if t >= 1 {
		if p.fade.Kind == FadeOut {
			speaker.Lock()
			p.current.ctrl.Paused = true
			speaker.Unlock()
			p.status = StatusPaused
		}
		p.fade = FadeState{}
	}
}

// Seek calls the decoder's try_seek; on failure it reopens the file, seeks the
// fresh decoder, and preserves play/pause state. If that also fails it surfaces
// ErrSeekUnsupported.
var ErrSeekUnsupported = errors.New("audio: seek not supported for this format")

func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return errors.New("audio: no current track")
	}
	if pos < 0 {
		pos = 0
	}
	if d := p.current.duration; d > 0 && pos > d {
		pos = d
	}

	samplePos := p.format().SampleRate.N(pos)
	speaker.Lock()
	err := p.current.streamer.Seek(samplePos)
	speaker.Unlock()
	if err == nil {
		p.current.eq.Reset()
		p.current.analysis.Reset()
		p.current.params.MarkDirty()
		p.startedAt = time.Now().Add(-pos)
		if p.status != StatusPlaying {
			p.pausedPos = pos
		}
		return nil
	}

	wasPlaying := p.status == StatusPlaying
	path := p.current.path
	duration := p.current.duration
	p.current.closer()

	fresh, oerr := p.openSink(path, duration)
	if oerr != nil {
		return ErrSeekUnsupported
	}
	freshSamplePos := fresh.format.SampleRate.N(pos)
	if serr := fresh.streamer.Seek(freshSamplePos); serr != nil {
		fresh.closer()
		return ErrSeekUnsupported
	}
	fresh.ctrl.Paused = !wasPlaying
	fresh.paused = !wasPlaying
	fresh.setVolume(p.volume)

	p.current = fresh
	speaker.Play(beep.Seq(fresh.volume, beep.Callback(p.onSinkFinished)))
	p.startedAt = time.Now().Add(-pos)
	if !wasPlaying {
		p.pausedPos = pos
	}
	return nil
}

func (p *Player) format() beep.Format {
	if p.current == nil {
		return beep.Format{SampleRate: beep.SampleRate(p.sampleRate), NumChannels: 2, Precision: 2}
	}
	return p.current.format
}

// SwitchDevice captures current path/position/playing, stops, and re-initializes
// the speaker on the default output. name is not used: the output is always the
// default device. Nothing is replayed here; the captured state is returned so the
// caller can replay from the captured position.
func (p *Player) SwitchDevice(name string) (path string, position time.Duration, wasPlaying bool, err error) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return "", 0, false, errors.New("audio: no current track")
	}
	path = p.current.path
	position = p.positionLocked()
	wasPlaying = p.status == StatusPlaying
	p.stopInternalLocked()
	p.mu.Unlock()

	p.speakerOnce = sync.Once{}
	p.initSpeaker()
	return path, position, wasPlaying, nil
}

// positionLocked returns the current playback position; caller must hold p.mu.
func (p *Player) positionLocked() time.Duration {
	if p.status == StatusPaused || p.status == StatusPausing {
		return p.pausedPos
	}
	if p.current == nil {
		return 0
	}
	return time.Since(p.startedAt)
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// Duration returns the current track's known duration, or 0 if unknown.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	return p.current.duration
}

// StatusNow returns the player's current status.
func (p *Player) StatusNow() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// SetVolume sets the master volume (0..1) and, outside a fade, applies it immediately.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.volume = v
	if p.fade.Kind == FadeNone && p.current != nil {
		p.current.setVolume(v)
	}
}

// Analysis exposes the current sink's analysis state for spectrum/RMS polling, or
// nil if nothing is playing.
func (p *Player) Analysis() *AnalysisState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return p.current.analysis
}

// Params exposes the current sink's processing chain parameters, or nil.
func (p *Player) Params() *ProcessingChainParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return p.current.params
}

func (p *Player) stopInternalLocked() {
	p.stopTickerLocked()
	if p.current != nil {
		speaker.Lock()
		p.current.ctrl.Paused = true
		speaker.Unlock()
		p.current.closer()
		p.current = nil
	}
	p.status = StatusStopped
	p.fade = FadeState{}
}

// Stop stops playback and releases the current sink.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopInternalLocked()
}

func (p *Player) clearPreloadsLocked() {
	if p.preNext != nil {
		p.preNext.closer()
		p.preNext = nil
	}
	if p.prePrev != nil {
		p.prePrev.closer()
		p.prePrev = nil
	}
}

func (p *Player) startTickerLocked() {
	p.stopTickerLocked()
	p.ticker = time.NewTicker(50 * time.Millisecond)
	p.tickerDone = make(chan struct{})
	go p.tickLoop(p.ticker, p.tickerDone)
}

func (p *Player) stopTickerLocked() {
	if p.ticker != nil {
		p.ticker.Stop()
		close(p.tickerDone)
		p.ticker = nil
	}
}

func (p *Player) tickLoop(ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.updateFade()
			pos := p.positionLocked()
			cb := p.positionCallback
			finished := p.shouldTriggerFinishedLocked(pos)
			p.mu.Unlock()

			if cb != nil {
				c := cb
				p.dispatcher.Do(func() { c(pos) })
			}
			if finished {
				p.onSinkFinished()
				return
			}
		}
	}
}

// shouldTriggerFinishedLocked reports finish when position has reached duration
// within 0.5s while Playing,
// used as a backstop when the underlying sink's own empty-stream signal is unreliable.
func (p *Player) shouldTriggerFinishedLocked(pos time.Duration) bool {
	if p.current == nil || p.status != StatusPlaying {
		return false
	}
	if p.current.duration <= 0 {
		return false
	}
	if time.Since(p.startedAt) < minPlayTime && p.current.duration > minPlayTime {
		return false
	}
	remaining := p.current.duration - pos
	return remaining <= finishPositionSlack
}

func (p *Player) onSinkFinished() {
	p.mu.Lock()
	p.stopTickerLocked()
	p.status = StatusStopped
	cb := p.finishedCallback
	p.mu.Unlock()

	if cb != nil {
		p.dispatcher.Do(cb)
	}
}

// CanSeek reports whether a track is loaded. The decoder's own seek support is
// not checked; Seek reports ErrSeekUnsupported when seeking fails.
func (p *Player) CanSeek() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// GetSeekableRange returns [0, duration] for the current track.
func (p *Player) GetSeekableRange() (time.Duration, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0, 0
	}
	return 0, p.current.duration
}

func log2(x float64) float64 {
	return math.Log2(x)
}
