package visualizer

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Source supplies frequency snapshots. It is read-only from the renderer's
// side; *player.Controller implements it.
type Source interface {
	Spectrum(dst []byte) int
}

// Ticker abstracts time.Ticker so the draw cadence can be driven by tests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// Frame is one issued draw: the snapshot and the time it was painted at.
type Frame struct {
	Seq  uint64  `json:"seq"`
	Time float64 `json:"time"`
	Bins []byte  `json:"bins"`
}

// Config holds renderer settings.
type Config struct {
	Bins       int
	FPS        int
	Width      int
	Height     int
	PixelRatio float64
}

// Defaults.
const (
	DefaultBins   = 128
	DefaultFPS    = 60
	DefaultWidth  = 600
	DefaultHeight = 200
)

func (c Config) withDefaults() Config {
	if c.Bins <= 0 {
		c.Bins = DefaultBins
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.PixelRatio <= 0 {
		c.PixelRatio = 1
	}
	return c
}

// Renderer runs the draw loop. At most one loop is active; Start returns
// its cancellation handle.
type Renderer struct {
	src       Source
	cfg       Config
	logger    *slog.Logger
	newTicker func(time.Duration) Ticker
	now       func() time.Time

	frames atomic.Uint64

	mu      sync.Mutex
	surface *Surface
	bins    []byte
	stop    func()
	done    chan struct{}

	obsMu     sync.Mutex
	obsSeq    int
	observers map[int]func(Frame)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithTicker replaces the refresh ticker factory.
func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(r *Renderer) { r.newTicker = fn }
}

// WithClock replaces time.Now for the colour animation.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// NewRenderer builds a renderer reading from src.
func NewRenderer(src Source, cfg Config, opts ...Option) (*Renderer, error) {
	cfg = cfg.withDefaults()
	surface, err := NewSurface(cfg.Width, cfg.Height, cfg.PixelRatio)
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		src:       src,
		cfg:       cfg,
		logger:    slog.Default(),
		newTicker: func(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} },
		now:       time.Now,
		surface:   surface,
		bins:      make([]byte, cfg.Bins),
		observers: make(map[int]func(Frame)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start launches the draw loop bound to ctx and returns a function that
// cancels it and waits for it to exit. Calling Start while a loop is
// running returns the existing handle.
func (r *Renderer) Start(ctx context.Context) (stop func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runningLocked() {
		return r.stop
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := r.newTicker(time.Second / time.Duration(r.cfg.FPS))
	done := make(chan struct{})
	go r.loop(ctx, ticker, done)

	var once sync.Once
	r.done = done
	r.stop = func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	r.logger.Debug("visualizer: started", slog.Int("fps", r.cfg.FPS), slog.Int("bins", r.cfg.Bins))
	return r.stop
}

// Stop cancels the running loop, if any.
func (r *Renderer) Stop() {
	r.mu.Lock()
	stop := r.stop
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Running reports whether a loop is active.
func (r *Renderer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runningLocked()
}

// runningLocked also covers a loop that exited because its parent context
// was cancelled.
func (r *Renderer) runningLocked() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (r *Renderer) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("visualizer: stopped", slog.Uint64("frames", r.frames.Load()))
			return
		case <-ticker.C():
			// A tick and a cancellation may be ready together.
			if ctx.Err() != nil {
				continue
			}
			r.frame()
		}
	}
}

// frame pulls one snapshot and paints it.
func (r *Renderer) frame() {
	r.mu.Lock()
	n := r.src.Spectrum(r.bins)
	for i := n; i < len(r.bins); i++ {
		r.bins[i] = 0
	}
	t := float64(r.now().UnixMilli()) / 1000
	r.surface.Draw(r.bins, t)
	snapshot := append([]byte(nil), r.bins...)
	r.mu.Unlock()

	f := Frame{Seq: r.frames.Add(1), Time: t, Bins: snapshot}
	r.obsMu.Lock()
	observers := make([]func(Frame), 0, len(r.observers))
	for _, fn := range r.observers {
		observers = append(observers, fn)
	}
	r.obsMu.Unlock()
	for _, fn := range observers {
		fn(f)
	}
}

// Frames returns the number of frames issued so far.
func (r *Renderer) Frames() uint64 {
	return r.frames.Load()
}

// OnFrame registers fn for every issued frame and returns its remover.
// Observers run on the draw loop and must not block.
func (r *Renderer) OnFrame(fn func(Frame)) (remove func()) {
	r.obsMu.Lock()
	r.obsSeq++
	id := r.obsSeq
	r.observers[id] = fn
	r.obsMu.Unlock()
	return func() {
		r.obsMu.Lock()
		delete(r.observers, id)
		r.obsMu.Unlock()
	}
}

// Resize changes the layout size and pixel density of the canvas.
func (r *Renderer) Resize(w, h int, ratio float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surface.Resize(w, h, ratio)
}

// SetCaption sets the overlay text, usually the current track title.
func (r *Renderer) SetCaption(text string) {
	r.mu.Lock()
	r.surface.SetCaption(text)
	r.mu.Unlock()
}

// PNG encodes the most recently painted frame.
func (r *Renderer) PNG() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var buf bytes.Buffer
	if err := r.surface.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Size returns the canvas layout size and pixel ratio.
func (r *Renderer) Size() (w, h, ratio float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surface.Size()
}
