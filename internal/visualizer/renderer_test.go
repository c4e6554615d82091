package visualizer

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

type fixedSource struct {
	bins  []byte
	calls atomic.Int64
}

func (f *fixedSource) Spectrum(dst []byte) int {
	f.calls.Add(1)
	return copy(dst, f.bins)
}

func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func newTestRenderer(t *testing.T, src Source) (*Renderer, *[]*manualTicker) {
	t.Helper()
	var tickers []*manualTicker
	r, err := NewRenderer(src, Config{},
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithClock(func() time.Time { return time.Unix(100, 0) }),
		WithTicker(func(time.Duration) Ticker {
			m := &manualTicker{ch: make(chan time.Time)}
			tickers = append(tickers, m)
			return m
		}))
	if err != nil {
		t.Fatal(err)
	}
	return r, &tickers
}

func TestRenderer_OneFramePerTick(t *testing.T) {
	src := &fixedSource{bins: []byte{255, 200, 100}}
	r, tickers := newTestRenderer(t, src)

	var mu sync.Mutex
	var got []Frame
	r.OnFrame(func(f Frame) {
		mu.Lock()
		got = append(got, f)
		mu.Unlock()
	})

	stop := r.Start(context.Background())
	tk := (*tickers)[0]
	for i := 0; i < 3; i++ {
		tk.ch <- time.Now()
	}
	eventually(t, 2*time.Second, 5*time.Millisecond, func() bool { return r.Frames() == 3 }, "expected 3 frames")

	mu.Lock()
	if len(got) != 3 || got[2].Seq != 3 || got[0].Time != 100 {
		t.Errorf("frames = %+v", got)
	}
	if len(got[0].Bins) != DefaultBins || got[0].Bins[1] != 200 || got[0].Bins[5] != 0 {
		t.Errorf("bins = %v", got[0].Bins[:6])
	}
	mu.Unlock()

	stop()
	if !tk.stopped.Load() {
		t.Error("ticker not stopped")
	}
	select {
	case tk.ch <- time.Now():
		t.Fatal("loop still receiving after stop")
	case <-time.After(50 * time.Millisecond):
	}
	if r.Frames() != 3 {
		t.Errorf("frames after stop = %d", r.Frames())
	}
	stop()
	r.Stop()
}

func TestRenderer_StartIsSingleton(t *testing.T) {
	r, tickers := newTestRenderer(t, &fixedSource{})
	stop1 := r.Start(context.Background())
	r.Start(context.Background())
	if len(*tickers) != 1 {
		t.Fatalf("tickers = %d", len(*tickers))
	}
	if !r.Running() {
		t.Fatal("not running")
	}
	stop1()
	if r.Running() {
		t.Fatal("running after stop")
	}

	stop2 := r.Start(context.Background())
	defer stop2()
	if len(*tickers) != 2 || !r.Running() {
		t.Errorf("restart failed")
	}
}

func TestRenderer_ParentCancelStopsLoop(t *testing.T) {
	r, tickers := newTestRenderer(t, &fixedSource{})
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()
	eventually(t, 2*time.Second, 5*time.Millisecond, func() bool { return !r.Running() }, "loop survived parent cancel")
	if !(*tickers)[0].stopped.Load() {
		t.Error("ticker not stopped")
	}
}

func TestRenderer_PNGTracksPixelRatio(t *testing.T) {
	src := &fixedSource{bins: bytes.Repeat([]byte{255}, 128)}
	r, tickers := newTestRenderer(t, src)
	if err := r.Resize(300, 100, 2); err != nil {
		t.Fatal(err)
	}
	stop := r.Start(context.Background())
	(*tickers)[0].ch <- time.Now()
	eventually(t, 2*time.Second, 5*time.Millisecond, func() bool { return r.Frames() == 1 }, "no frame")
	stop()

	data, err := r.PNG()
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 600 || b.Dy() != 200 {
		t.Errorf("bounds = %v", b)
	}
	if w, h, ratio := r.Size(); w != 300 || h != 100 || ratio != 2 {
		t.Errorf("size = %v %v %v", w, h, ratio)
	}
	if err := r.Resize(0, 100, 1); err == nil {
		t.Error("Resize accepted zero width")
	}
}

func TestSurface_DrawsBars(t *testing.T) {
	s, err := NewSurface(100, 100, 1)
	if err != nil {
		t.Fatal(err)
	}
	s.SetCaption("track")
	s.Draw([]byte{255}, 0)
	// One full bin: 80 units tall, lightness 4+80/4.
	c := s.Image().At(50, 95)
	r, g, b, _ := c.RGBA()
	want := HSL(260, 100, 24)
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Errorf("pixel = %v, want %v", c, want)
	}
}
