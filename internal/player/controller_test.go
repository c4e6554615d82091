package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/blobstore"
	"github.com/starford/tonearm/internal/mediaurl"
	"github.com/starford/tonearm/internal/models"
	"github.com/starford/tonearm/internal/testutil"
)

const testRate = beep.SampleRate(1000)

type toneStream struct {
	n, pos int
	value  float64
	closed bool
}

func (s *toneStream) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	k := min(len(samples), s.n-s.pos)
	for i := 0; i < k; i++ {
		samples[i] = [2]float64{s.value, s.value}
	}
	s.pos += k
	return k, true
}

func (s *toneStream) Err() error    { return nil }
func (s *toneStream) Len() int      { return s.n }
func (s *toneStream) Position() int { return s.pos }
func (s *toneStream) Close() error  { s.closed = true; return nil }
func (s *toneStream) Seek(p int) error {
	if p < 0 || p > s.n {
		return errors.New("seek out of range")
	}
	s.pos = p
	return nil
}

// lengths maps src to a stream length in samples at testRate.
type fakeOpener struct {
	mu      sync.Mutex
	lengths map[string]int
	opened  []*toneStream
}

func (o *fakeOpener) Open(_ context.Context, src string) (beep.StreamSeekCloser, beep.Format, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, ok := o.lengths[src]
	if !ok {
		return nil, beep.Format{}, apperr.ErrNotFound
	}
	s := &toneStream{n: n, value: 1}
	o.opened = append(o.opened, s)
	return s, beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}, nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func newTestController(t *testing.T) (*Controller, *PumpSink, *recorder) {
	t.Helper()
	sink := &PumpSink{}
	opener := &fakeOpener{lengths: map[string]int{"a": 3000, "b": 2000, "c": 1000}}
	c := NewController(opener,
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithSampleRate(testRate),
		WithPositionInterval(250*time.Millisecond),
		WithSink(func(beep.SampleRate) Sink { return sink }),
	)
	rec := &recorder{}
	c.OnEvent(rec.add)
	t.Cleanup(func() { c.Close() })
	return c, sink, rec
}

func track(src string) models.PlayableTrack {
	return models.PlayableTrack{ID: "id-" + src, Title: src, Src: src}
}

func TestTogglePlay_RequiresGesture(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.SetTrack(context.Background(), track("a")); err != nil {
		t.Fatal(err)
	}
	if err := c.TogglePlay(Gesture{}); !errors.Is(err, apperr.ErrGestureRequired) {
		t.Fatalf("err = %v, want ErrGestureRequired", err)
	}
	st := c.Status()
	if st.State != StateLoaded || st.GraphReady {
		t.Errorf("status = %+v", st)
	}
	if c.Analyser() != nil {
		t.Error("analyser exists before gesture")
	}
}

func TestTogglePlay_PlaysAndPauses(t *testing.T) {
	c, sink, rec := newTestController(t)
	ctx := context.Background()
	if c.Status().State != StateIdle {
		t.Fatalf("initial state = %v", c.Status().State)
	}
	_ = c.SetTrack(ctx, track("a"))
	if st := c.Status(); st.State != StateLoaded || st.Duration != 3 {
		t.Fatalf("after SetTrack = %+v", st)
	}

	if err := c.TogglePlay(UserGesture("test")); err != nil {
		t.Fatalf("TogglePlay: %v", err)
	}
	if c.Status().State != StatePlaying {
		t.Fatalf("state = %v", c.Status().State)
	}
	a := c.Analyser()
	if a == nil || a.FrequencyBinCount() != 128 {
		t.Fatalf("analyser = %v", a)
	}
	if rec.count(EventGraphReady) != 1 {
		t.Errorf("graph events = %d", rec.count(EventGraphReady))
	}

	sink.Pump(500)
	if pos := c.Status().Position; pos != 0.5 {
		t.Errorf("position = %v, want 0.5", pos)
	}
	if rec.count(EventPosition) < 2 {
		t.Errorf("position events = %d", rec.count(EventPosition))
	}

	_ = c.TogglePlay(Gesture{})
	if c.Status().State != StatePaused {
		t.Fatalf("state = %v", c.Status().State)
	}
	sink.Pump(500)
	if pos := c.Status().Position; pos != 0.5 {
		t.Errorf("position advanced while paused: %v", pos)
	}

	_ = c.TogglePlay(Gesture{})
	if c.Status().State != StatePlaying {
		t.Errorf("second toggle state = %v", c.Status().State)
	}
}

func TestSetTrack_ResumesWhenPlaying(t *testing.T) {
	c, sink, _ := newTestController(t)
	ctx := context.Background()
	_ = c.SetTrack(ctx, track("a"))
	_ = c.TogglePlay(UserGesture("test"))
	sink.Pump(800)

	if err := c.SetTrack(ctx, track("b")); err != nil {
		t.Fatal(err)
	}
	st := c.Status()
	if st.State != StatePlaying || st.Position != 0 || st.Duration != 2 || st.Track.Src != "b" {
		t.Errorf("status = %+v", st)
	}
}

func TestSetTrack_WhilePausedStaysLoaded(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()
	_ = c.SetTrack(ctx, track("a"))
	_ = c.TogglePlay(UserGesture("test"))
	_ = c.TogglePlay(Gesture{})

	_ = c.SetTrack(ctx, track("b"))
	if st := c.Status(); st.State != StateLoaded {
		t.Errorf("state = %v, want loaded", st.State)
	}
}

func TestSeek_Clamps(t *testing.T) {
	c, _, _ := newTestController(t)
	_ = c.SetTrack(context.Background(), track("a"))

	if got := c.Seek(-5); got != 0 {
		t.Errorf("Seek(-5) = %v", got)
	}
	if got := c.Seek(100); got != 3 {
		t.Errorf("Seek(100) = %v", got)
	}
	if got := c.Seek(math.NaN()); got != 0 {
		t.Errorf("Seek(NaN) = %v", got)
	}
	if got := c.Seek(1.5); got != 1.5 {
		t.Errorf("Seek(1.5) = %v", got)
	}
	if pos := c.Status().Position; pos != 1.5 {
		t.Errorf("position = %v", pos)
	}
}

func TestSeek_WithoutSource(t *testing.T) {
	c, _, _ := newTestController(t)
	if got := c.Seek(10); got != 0 {
		t.Errorf("Seek on idle = %v", got)
	}
}

func TestSetVolume_ClampsAndApplies(t *testing.T) {
	c, _, _ := newTestController(t)
	if got := c.SetVolume(2); got != 1 {
		t.Errorf("SetVolume(2) = %v", got)
	}
	if got := c.SetVolume(-1); got != 0 {
		t.Errorf("SetVolume(-1) = %v", got)
	}

	_ = c.SetTrack(context.Background(), track("a"))
	_ = c.TogglePlay(UserGesture("test"))
	c.SetVolume(0.25)

	buf := make([][2]float64, 4)
	c.stream(buf)
	if math.Abs(buf[0][0]-0.25) > 1e-9 {
		t.Errorf("sample = %v, want 0.25", buf[0][0])
	}
}

func TestEnded_FiresOncePerTrack(t *testing.T) {
	c, sink, rec := newTestController(t)
	_ = c.SetTrack(context.Background(), track("c"))
	_ = c.TogglePlay(UserGesture("test"))

	for i := 0; i < 5; i++ {
		sink.Pump(400)
	}
	if n := rec.count(EventEnded); n != 1 {
		t.Errorf("ended fired %d times", n)
	}
	if pos := c.Status().Position; pos != 1 {
		t.Errorf("position at end = %v", pos)
	}

	_ = c.SetTrack(context.Background(), track("c"))
	for i := 0; i < 5; i++ {
		sink.Pump(400)
	}
	if n := rec.count(EventEnded); n != 2 {
		t.Errorf("ended fired %d times after reload", n)
	}
}

func TestPlayFailure_LeavesPaused(t *testing.T) {
	c, _, rec := newTestController(t)
	if err := c.SetTrack(context.Background(), track("missing")); err == nil {
		t.Error("expected load error")
	}
	if err := c.TogglePlay(UserGesture("test")); err != nil {
		t.Fatalf("TogglePlay returned %v", err)
	}
	if c.Status().State != StatePaused {
		t.Errorf("state = %v", c.Status().State)
	}
	if rec.count(EventError) < 2 {
		t.Errorf("error events = %d", rec.count(EventError))
	}
}

func TestTogglePlay_ResumesSuspendedSink(t *testing.T) {
	c, sink, _ := newTestController(t)
	_ = c.SetTrack(context.Background(), track("a"))
	_ = c.TogglePlay(UserGesture("test"))
	_ = c.TogglePlay(Gesture{})

	c.Suspend()
	if !sink.Suspended() {
		t.Fatal("sink not suspended")
	}
	_ = c.TogglePlay(Gesture{})
	if sink.Suspended() {
		t.Error("play did not resume the sink")
	}
}

func TestPlayAfterEndRestarts(t *testing.T) {
	c, sink, _ := newTestController(t)
	_ = c.SetTrack(context.Background(), track("c"))
	_ = c.TogglePlay(UserGesture("test"))
	for i := 0; i < 4; i++ {
		sink.Pump(500)
	}
	_ = c.TogglePlay(Gesture{})
	_ = c.TogglePlay(Gesture{})
	if pos := c.Status().Position; pos != 0 {
		t.Errorf("position after replay = %v", pos)
	}
}

func TestClose(t *testing.T) {
	c, _, _ := newTestController(t)
	_ = c.SetTrack(context.Background(), track("a"))
	_ = c.TogglePlay(UserGesture("test"))
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.SetTrack(context.Background(), track("b")); !errors.Is(err, ErrClosed) {
		t.Errorf("SetTrack after close = %v", err)
	}
	if c.Analyser() != nil {
		t.Error("analyser survives close")
	}
}

type countingStreamer struct{ n atomic.Int64 }

func (s *countingStreamer) Stream(samples [][2]float64) (int, bool) {
	s.n.Add(int64(len(samples)))
	return len(samples), true
}
func (s *countingStreamer) Err() error { return nil }

func TestClockSink(t *testing.T) {
	sink := NewClockSink(beep.SampleRate(8000), 5*time.Millisecond)
	s := &countingStreamer{}
	if err := sink.Start(s); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.n.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.n.Load() == 0 {
		t.Fatal("sink never pulled")
	}
	_ = sink.Close()
	after := s.n.Load()
	time.Sleep(30 * time.Millisecond)
	if s.n.Load() != after {
		t.Error("sink pulled after close")
	}
}

func TestMediaOpener_DecodesWAV(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemory()
	_ = store.Put(ctx, "blob:t_1", testutil.PCMWAV(8000, 8000*3))
	reg := mediaurl.NewRegistry("")
	src := reg.NewScope().Acquire("blob:t_1", "audio/wav")

	c := NewController(MediaOpener{Source: mediaurl.NewResolver(reg, store, "")},
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithSink(func(beep.SampleRate) Sink { return &PumpSink{} }))
	defer c.Close()

	if err := c.SetTrack(ctx, models.PlayableTrack{Src: src}); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}
	if d := c.Status().Duration; d != 3 {
		t.Errorf("duration = %v, want 3", d)
	}
}
