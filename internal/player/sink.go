package player

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// Sink drains the graph at the output rate. A suspended sink stops pulling
// until resumed.
type Sink interface {
	Start(s beep.Streamer) error
	Suspend()
	Resume()
	Suspended() bool
	Close() error
}

// DefaultFrame is the ClockSink pull period.
const DefaultFrame = 20 * time.Millisecond

// ClockSink pulls one frame of samples per tick and discards them, pacing
// the graph in real time without an audio device.
type ClockSink struct {
	rate  beep.SampleRate
	frame time.Duration

	mu        sync.Mutex
	s         beep.Streamer
	suspended bool
	stop      chan struct{}
	done      chan struct{}
}

// NewClockSink returns a sink paced at rate.
func NewClockSink(rate beep.SampleRate, frame time.Duration) *ClockSink {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &ClockSink{rate: rate, frame: frame}
}

func (c *ClockSink) Start(s beep.Streamer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}
	c.s = s
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(c.stop, c.done)
	return nil
}

func (c *ClockSink) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.frame)
	defer ticker.Stop()
	buf := make([][2]float64, c.rate.N(c.frame))

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			s, suspended := c.s, c.suspended
			c.mu.Unlock()
			if s == nil || suspended {
				continue
			}
			s.Stream(buf)
		}
	}
}

func (c *ClockSink) Suspend() {
	c.mu.Lock()
	c.suspended = true
	c.mu.Unlock()
}

func (c *ClockSink) Resume() {
	c.mu.Lock()
	c.suspended = false
	c.mu.Unlock()
}

func (c *ClockSink) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// Close stops the pull loop and waits for it to exit.
func (c *ClockSink) Close() error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop = nil
	c.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

// PumpSink pulls only when Pump is called. It drives the graph offline.
type PumpSink struct {
	mu        sync.Mutex
	s         beep.Streamer
	suspended bool
	closed    bool
}

func (p *PumpSink) Start(s beep.Streamer) error {
	p.mu.Lock()
	p.s = s
	p.mu.Unlock()
	return nil
}

// Pump streams n samples through the graph and reports whether it ran.
func (p *PumpSink) Pump(n int) bool {
	p.mu.Lock()
	s, idle := p.s, p.suspended || p.closed
	p.mu.Unlock()
	if s == nil || idle {
		return false
	}
	buf := make([][2]float64, n)
	s.Stream(buf)
	return true
}

func (p *PumpSink) Suspend() {
	p.mu.Lock()
	p.suspended = true
	p.mu.Unlock()
}

func (p *PumpSink) Resume() {
	p.mu.Lock()
	p.suspended = false
	p.mu.Unlock()
}

func (p *PumpSink) Suspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suspended
}

func (p *PumpSink) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
