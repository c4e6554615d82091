package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/catalog"
	"github.com/starford/tonearm/internal/models"
)

// Deck is the playlist in front of a Controller: it keeps the queue and the
// current index and advances to the next track when one ends.
type Deck struct {
	ctrl   *Controller
	logger *slog.Logger

	mu    sync.Mutex
	queue []models.PlayableTrack
	index int

	remove func()
}

// NewDeck binds a deck to ctrl.
func NewDeck(ctrl *Controller, logger *slog.Logger) *Deck {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Deck{ctrl: ctrl, logger: logger}
	d.remove = ctrl.OnEvent(d.onEvent)
	return d
}

func (d *Deck) onEvent(ev Event) {
	if ev.Kind != EventEnded {
		return
	}
	if err := d.advanceFrom(context.Background(), ev.Generation); err != nil {
		d.logger.Warn("player: advance failed", slog.String("error", err.Error()))
	}
}

// advanceFrom moves to the next track only if gen is still the loaded
// source. An ended event that lost a race with Select or SetQueue is dropped.
func (d *Deck) advanceFrom(ctx context.Context, gen uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.ctrl.Generation() {
		d.logger.Debug("player: stale ended event ignored", slog.Uint64("generation", gen))
		return nil
	}
	return d.stepLocked(ctx, 1)
}

// Close detaches the deck from the controller.
func (d *Deck) Close() {
	if d.remove != nil {
		d.remove()
	}
}

// SetQueue replaces the queue. When the current track is still present the
// index follows it and playback is left alone, even if its src was
// re-minted; otherwise the first supported track is loaded.
func (d *Deck) SetQueue(ctx context.Context, tracks []models.PlayableTrack) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var current *models.PlayableTrack
	if d.index < len(d.queue) {
		c := d.queue[d.index]
		current = &c
	}
	d.queue = append([]models.PlayableTrack(nil), tracks...)

	if current != nil {
		key := catalog.Identity(*current)
		for i, t := range d.queue {
			if catalog.Identity(t) == key {
				d.index = i
				return nil
			}
		}
	}
	d.index = 0
	for i, t := range d.queue {
		if !t.Unsupported {
			d.index = i
			return d.ctrl.SetTrack(ctx, t)
		}
	}
	return nil
}

// Queue returns a copy of the queue and the current index.
func (d *Deck) Queue() ([]models.PlayableTrack, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.PlayableTrack(nil), d.queue...), d.index
}

// Select loads the track at i.
func (d *Deck) Select(ctx context.Context, i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.queue) {
		return fmt.Errorf("player: select %d of %d: %w", i, len(d.queue), apperr.ErrNotFound)
	}
	d.index = i
	return d.ctrl.SetTrack(ctx, d.queue[i])
}

// Next advances with wrap-around.
func (d *Deck) Next(ctx context.Context) error {
	return d.step(ctx, 1)
}

// Prev steps back with wrap-around.
func (d *Deck) Prev(ctx context.Context) error {
	return d.step(ctx, -1)
}

func (d *Deck) step(ctx context.Context, delta int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stepLocked(ctx, delta)
}

// stepLocked moves by delta, passing over unsupported tracks.
func (d *Deck) stepLocked(ctx context.Context, delta int) error {
	n := len(d.queue)
	if n == 0 {
		return apperr.ErrNoSource
	}
	for range n {
		d.index = ((d.index+delta)%n + n) % n
		if !d.queue[d.index].Unsupported {
			return d.ctrl.SetTrack(ctx, d.queue[d.index])
		}
	}
	return fmt.Errorf("player: no supported track in queue: %w", apperr.ErrNoSource)
}
