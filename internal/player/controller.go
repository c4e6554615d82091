// Package player drives playback of one track at a time and exposes the
// analysed signal to the visualizer.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/models"
)

// ErrClosed is returned by operations on a disposed controller.
var ErrClosed = errors.New("player: closed")

// State is the transport state.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Gesture proves that a call originates from a user interaction. The audio
// graph may only be built inside one.
type Gesture struct {
	Origin string
	At     time.Time
}

// UserGesture stamps a gesture now.
func UserGesture(origin string) Gesture {
	return Gesture{Origin: origin, At: time.Now()}
}

// Valid reports whether g was produced by UserGesture.
func (g Gesture) Valid() bool {
	return g.Origin != "" && !g.At.IsZero()
}

// EventKind classifies controller events.
type EventKind string

const (
	EventState      EventKind = "state"
	EventPosition   EventKind = "position"
	EventDuration   EventKind = "duration"
	EventEnded      EventKind = "ended"
	EventError      EventKind = "error"
	EventGraphReady EventKind = "graph"
)

// Event is delivered to listeners outside of any controller lock.
type Event struct {
	Kind     EventKind `json:"kind"`
	State    State     `json:"state"`
	TrackID  string    `json:"trackId,omitempty"`
	Src      string    `json:"src,omitempty"`
	Position float64   `json:"position"`
	Duration float64   `json:"duration"`
	Err      string    `json:"error,omitempty"`
	// Generation identifies the SetTrack call whose source produced it.
	Generation uint64 `json:"generation"`
}

// Status is a point-in-time view of the controller.
type Status struct {
	State      State                `json:"state"`
	Track      models.PlayableTrack `json:"track"`
	Position   float64              `json:"position"`
	Duration   float64              `json:"duration"`
	Volume     float64              `json:"volume"`
	GraphReady bool                 `json:"graphReady"`
}

// Defaults.
const (
	DefaultSampleRate       = beep.SampleRate(44100)
	DefaultPositionInterval = 250 * time.Millisecond
	DefaultVolume           = 0.5
)

type graph struct {
	sink     Sink
	tap      *Tap
	analyser *Analyser
}

// Controller owns the media element (decoded stream, pause control, gain)
// and, after the first user gesture, the decoding/analysis graph.
//
// State machine: Idle → Loaded → Playing ⇄ Paused; SetTrack returns to
// Loaded. The graph is built once by TogglePlay and torn down by Close.
type Controller struct {
	opener   Opener
	logger   *slog.Logger
	newSink  func(rate beep.SampleRate) Sink
	rate     beep.SampleRate
	posEvery int
	interval time.Duration
	fftSize  int

	mu          sync.Mutex
	state       State
	track       models.PlayableTrack
	gen         uint64
	src         beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	gain        *effects.Gain
	out         beep.Streamer
	volume      float64
	position    float64
	duration    float64
	sinceReport int
	ended       bool
	graph       *graph
	closed      bool

	listenerSeq int
	listeners   map[int]func(Event)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSink replaces the output sink factory.
func WithSink(fn func(rate beep.SampleRate) Sink) Option {
	return func(c *Controller) { c.newSink = fn }
}

// WithSampleRate sets the graph output rate.
func WithSampleRate(r beep.SampleRate) Option {
	return func(c *Controller) {
		if r > 0 {
			c.rate = r
		}
	}
}

// WithPositionInterval sets how much played audio separates position events.
func WithPositionInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithVolume sets the initial volume.
func WithVolume(v float64) Option {
	return func(c *Controller) { c.volume = clamp(v, 0, 1) }
}

// WithFFTSize sets the analyser transform size.
func WithFFTSize(n int) Option {
	return func(c *Controller) { c.fftSize = n }
}

// NewController returns an idle controller.
func NewController(opener Opener, opts ...Option) *Controller {
	c := &Controller{
		opener:    opener,
		logger:    slog.Default(),
		rate:      DefaultSampleRate,
		volume:    DefaultVolume,
		fftSize:   DefaultFFTSize,
		listeners: make(map[int]func(Event)),
	}
	c.newSink = func(rate beep.SampleRate) Sink { return NewClockSink(rate, DefaultFrame) }
	c.interval = DefaultPositionInterval
	for _, opt := range opts {
		opt(c)
	}
	c.posEvery = c.rate.N(c.interval)
	return c
}

// OnEvent registers fn and returns a function that removes it.
func (c *Controller) OnEvent(fn func(Event)) (remove func()) {
	c.mu.Lock()
	c.listenerSeq++
	id := c.listenerSeq
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SetTrack stops the current source, loads t and resets position and
// duration. If the controller was Playing it resumes on the new source.
// A source that cannot be opened leaves the controller Loaded with nothing
// to play; the error is logged and returned.
func (c *Controller) SetTrack(ctx context.Context, t models.PlayableTrack) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	wasPlaying := c.state == StatePlaying
	c.gen++
	gen := c.gen
	c.releaseSourceLocked()
	c.track = t
	c.position, c.duration = 0, 0
	c.ended = false
	c.sinceReport = 0
	c.state = StateLoaded
	events := []Event{c.eventLocked(EventState), c.eventLocked(EventPosition), c.eventLocked(EventDuration)}
	c.dispatch(events)

	s, format, err := c.opener.Open(ctx, t.Src)

	c.mu.Lock()
	if c.gen != gen || c.closed {
		c.mu.Unlock()
		if s != nil {
			s.Close()
		}
		return nil
	}
	if err == nil {
		err = c.installLocked(s, format)
	}
	if err != nil {
		c.logger.Warn("player: load failed", slog.String("src", t.Src), slog.String("error", err.Error()))
		ev := c.eventLocked(EventError)
		ev.Err = err.Error()
		c.dispatch([]Event{ev})
		return fmt.Errorf("player: load %s: %w", t.Src, err)
	}

	events = []Event{c.eventLocked(EventDuration)}
	if wasPlaying {
		events = c.playLocked(events)
	}
	c.dispatch(events)
	return nil
}

// installLocked builds decoder → pause control → resampler → gain.
func (c *Controller) installLocked(s beep.StreamSeekCloser, format beep.Format) error {
	if format.SampleRate <= 0 {
		s.Close()
		return fmt.Errorf("invalid sample rate %d", format.SampleRate)
	}
	c.src = s
	c.format = format
	c.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	var chain beep.Streamer = c.ctrl
	if format.SampleRate != c.rate {
		chain = beep.Resample(4, format.SampleRate, c.rate, chain)
	}
	c.gain = &effects.Gain{Streamer: chain, Gain: c.volume - 1}
	c.out = c.gain
	if n := s.Len(); n > 0 {
		c.duration = format.SampleRate.D(n).Seconds()
	}
	return nil
}

func (c *Controller) releaseSourceLocked() {
	if c.src != nil {
		if err := c.src.Close(); err != nil {
			c.logger.Debug("player: close source", slog.String("error", err.Error()))
		}
	}
	c.src, c.ctrl, c.gain, c.out = nil, nil, nil, nil
	c.format = beep.Format{}
}

// TogglePlay flips between Playing and Paused. The first call builds the
// graph and therefore needs a valid gesture. A play attempt that fails is
// logged, reported as an error event and leaves the state Paused.
func (c *Controller) TogglePlay(g Gesture) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	var events []Event
	if c.graph == nil {
		if !g.Valid() {
			c.mu.Unlock()
			return apperr.ErrGestureRequired
		}
		if err := c.buildGraphLocked(); err != nil {
			c.mu.Unlock()
			return err
		}
		events = append(events, c.eventLocked(EventGraphReady))
	}

	if c.state == StatePlaying {
		c.ctrl.Paused = true
		c.state = StatePaused
		events = append(events, c.eventLocked(EventState))
	} else {
		events = c.playLocked(events)
	}
	c.dispatch(events)
	return nil
}

func (c *Controller) buildGraphLocked() error {
	sink := c.newSink(c.rate)
	tap := NewTap(streamerFunc(c.stream), c.fftSize*4)
	analyser, err := NewAnalyser(tap, c.fftSize)
	if err != nil {
		return err
	}
	if err := sink.Start(tap); err != nil {
		return fmt.Errorf("player: start sink: %w", err)
	}
	c.graph = &graph{sink: sink, tap: tap, analyser: analyser}
	c.logger.Info("player: audio graph ready", slog.Int("sample_rate", int(c.rate)), slog.Int("bins", analyser.FrequencyBinCount()))
	return nil
}

// playLocked starts the loaded source, resuming a suspended sink first.
func (c *Controller) playLocked(events []Event) []Event {
	var err error
	switch {
	case c.graph == nil:
		err = errors.New("audio graph not built")
	case c.src == nil:
		err = apperr.ErrNoSource
	}
	if err != nil {
		c.logger.Warn("player: play failed", slog.String("src", c.track.Src), slog.String("error", err.Error()))
		c.state = StatePaused
		ev := c.eventLocked(EventError)
		ev.Err = err.Error()
		return append(events, ev, c.eventLocked(EventState))
	}

	if c.graph.sink.Suspended() {
		c.graph.sink.Resume()
	}
	if c.ended {
		if err := c.src.Seek(0); err != nil {
			c.logger.Warn("player: rewind failed", slog.String("error", err.Error()))
		}
		c.position = 0
		c.ended = false
	}
	c.ctrl.Paused = false
	c.state = StatePlaying
	return append(events, c.eventLocked(EventState))
}

// Seek moves the playhead to sec clamped to [0, duration] and returns the
// applied position. The position is reported immediately.
func (c *Controller) Seek(sec float64) float64 {
	c.mu.Lock()
	if math.IsNaN(sec) {
		sec = 0
	}
	target := clamp(sec, 0, c.duration)
	c.position = target
	if c.src != nil {
		p := c.format.SampleRate.N(time.Duration(target * float64(time.Second)))
		if p > c.src.Len() {
			p = c.src.Len()
		}
		if err := c.src.Seek(p); err != nil {
			c.logger.Warn("player: seek failed", slog.Float64("position", target), slog.String("error", err.Error()))
		}
		if target < c.duration {
			c.ended = false
		}
	}
	c.dispatch([]Event{c.eventLocked(EventPosition)})
	return target
}

// SetVolume sets linear gain clamped to [0, 1] and returns it.
func (c *Controller) SetVolume(v float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsNaN(v) {
		v = c.volume
	}
	c.volume = clamp(v, 0, 1)
	if c.gain != nil {
		c.gain.Gain = c.volume - 1
	}
	return c.volume
}

// Suspend pauses the output sink without changing the transport state.
func (c *Controller) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graph != nil {
		c.graph.sink.Suspend()
	}
}

// Status returns the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:      c.state,
		Track:      c.track,
		Position:   c.position,
		Duration:   c.duration,
		Volume:     c.volume,
		GraphReady: c.graph != nil,
	}
}

// Analyser returns the frequency analyser, or nil before the graph exists.
func (c *Controller) Analyser() *Analyser {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graph == nil {
		return nil
	}
	return c.graph.analyser
}

// Spectrum copies the current frequency magnitudes into dst. It writes
// nothing and returns 0 until the graph exists.
func (c *Controller) Spectrum(dst []byte) int {
	a := c.Analyser()
	if a == nil {
		return 0
	}
	return a.ByteFrequencyData(dst)
}

// Close tears down the graph and releases the source.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.releaseSourceLocked()
	g := c.graph
	c.graph = nil
	c.listeners = make(map[int]func(Event))
	c.mu.Unlock()

	if g != nil {
		return g.sink.Close()
	}
	return nil
}

// stream is the graph source pulled by the sink. It always fills samples,
// padding with silence when nothing is playing.
func (c *Controller) stream(samples [][2]float64) (int, bool) {
	c.mu.Lock()
	n := 0
	var events []Event
	if c.out != nil && !c.ended && c.state == StatePlaying {
		var ok bool
		n, ok = c.out.Stream(samples)
		c.position = c.format.SampleRate.D(c.src.Position()).Seconds()
		c.sinceReport += n
		drained := !ok || (n < len(samples) && c.src.Position() >= c.src.Len())
		switch {
		case drained:
			c.ended = true
			if c.duration > 0 {
				c.position = c.duration
			}
			events = append(events, c.eventLocked(EventPosition), c.eventLocked(EventEnded))
		case c.posEvery > 0 && c.sinceReport >= c.posEvery:
			c.sinceReport = 0
			events = append(events, c.eventLocked(EventPosition))
		}
	}
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	if len(events) > 0 {
		c.dispatch(events)
	} else {
		c.mu.Unlock()
	}
	return len(samples), true
}

func (c *Controller) eventLocked(kind EventKind) Event {
	return Event{
		Kind:       kind,
		State:      c.state,
		TrackID:    c.track.ID,
		Src:        c.track.Src,
		Position:   c.position,
		Duration:   c.duration,
		Generation: c.gen,
	}
}

// Generation returns the id of the most recent SetTrack call.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// dispatch releases c.mu and delivers events in order.
func (c *Controller) dispatch(events []Event) {
	listeners := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()
	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

type streamerFunc func(samples [][2]float64) (int, bool)

func (f streamerFunc) Stream(samples [][2]float64) (int, bool) { return f(samples) }
func (f streamerFunc) Err() error                              { return nil }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
