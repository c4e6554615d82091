// Package metadata derives display metadata from raw audio bytes.
package metadata

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/starford/tonearm/internal/models"
)

// DefaultProbeTimeout bounds the secondary duration probe.
const DefaultProbeTimeout = 10 * time.Second

// Descriptor is the result of one extraction. Cover is nil when the file
// carries no picture.
type Descriptor struct {
	Title    string
	Artist   string
	Album    string
	Duration string
	Cover    *Picture
}

// Extractor reads tags and, when they carry no length, falls back to a
// bounded decode probe. Extract never fails.
type Extractor struct {
	prober  DurationProber
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithProber replaces the duration fallback.
func WithProber(p DurationProber) Option {
	return func(e *Extractor) { e.prober = p }
}

// WithProbeTimeout bounds how long the fallback may run.
func WithProbeTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor returns an Extractor backed by BeepProber.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		prober:  BeepProber{},
		timeout: DefaultProbeTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract derives a Descriptor from data. name is the original file name and
// mimeType the declared media type.
func (e *Extractor) Extract(ctx context.Context, data []byte, name, mimeType string) Descriptor {
	d := Descriptor{
		Title:    TitleFromName(name),
		Artist:   models.Placeholder,
		Album:    models.Placeholder,
		Duration: models.ZeroDuration,
	}

	var structural time.Duration
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		e.logger.Debug("metadata: no tags",
			slog.String("name", name), slog.String("error", err.Error()))
	} else {
		if v := strings.TrimSpace(m.Title()); v != "" {
			d.Title = v
		}
		if v := strings.TrimSpace(m.Artist()); v != "" {
			d.Artist = v
		} else if v := strings.TrimSpace(m.AlbumArtist()); v != "" {
			d.Artist = v
		}
		if v := strings.TrimSpace(m.Album()); v != "" {
			d.Album = v
		}
		if p := PickCover(pictures(m)); p != nil {
			d.Cover = &Picture{MIMEType: p.MIMEType, Data: p.Data}
		}
		structural = tagLength(m)
	}

	if structural > 0 {
		d.Duration = FormatDuration(structural)
		return d
	}

	if e.prober == nil {
		return d
	}
	probeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	length, err := e.prober.Probe(probeCtx, data, mimeType, name)
	if err != nil {
		e.logger.Debug("metadata: duration probe failed",
			slog.String("name", name), slog.String("error", err.Error()))
		return d
	}
	d.Duration = FormatDuration(length)
	return d
}

// tagLength reads the ID3v2 TLEN frame (milliseconds).
func tagLength(m tag.Metadata) time.Duration {
	for _, key := range []string{"TLEN", "TLE"} {
		v, ok := m.Raw()[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		ms, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && ms > 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	return 0
}
