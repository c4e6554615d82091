// Package library persists imported tracks and projects them into playable
// descriptors.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/tonearm/internal/blobstore"
	"github.com/starford/tonearm/internal/codec"
	"github.com/starford/tonearm/internal/mediaurl"
	"github.com/starford/tonearm/internal/metadata"
	"github.com/starford/tonearm/internal/models"
)

// DefaultCover is shown for tracks without an embedded picture.
const DefaultCover = "/images/default-cover.png"

// Extractor derives display metadata from audio bytes. It must not fail.
type Extractor interface {
	Extract(ctx context.Context, data []byte, name, mimeType string) metadata.Descriptor
}

// RescanReport summarises one rescan pass.
type RescanReport struct {
	Scanned int      `json:"scanned"`
	Updated []string `json:"updated"`
}

// Manager owns the track library inside one Store namespace.
//
// Mutating operations are serialized; LoadAll may run concurrently with
// them and observes either the old or the new Order Index.
type Manager struct {
	store        blobstore.Store
	extractor    Extractor
	urls         *mediaurl.Registry
	logger       *slog.Logger
	now          func() time.Time
	defaultCover string
	maxFileSize  int64

	mu sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithDefaultCover sets the placeholder image path.
func WithDefaultCover(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.defaultCover = path
		}
	}
}

// WithMaxFileSize skips imports larger than n bytes. Zero means unlimited.
func WithMaxFileSize(n int64) Option {
	return func(m *Manager) { m.maxFileSize = n }
}

// NewManager returns a Manager over store.
func NewManager(store blobstore.Store, extractor Extractor, urls *mediaurl.Registry, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		extractor:    extractor,
		urls:         urls,
		logger:       slog.Default(),
		now:          time.Now,
		defaultCover: DefaultCover,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ImportFiles persists every new audio file and returns the newly added
// tracks in their assigned order. Non-audio files and files whose
// fingerprint is already known are skipped; a failure on one file is logged
// and does not abort the batch. The Order Index is written once at the end.
// With a nil scope the tracks carry metadata only: no handles are minted and
// Src is empty.
func (m *Manager) ImportFiles(ctx context.Context, files []File, scope *mediaurl.Scope) ([]models.PlayableTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.readOrder(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(order))
	known := make(map[string]bool, len(order))
	for _, id := range order {
		ids[id] = true
		if rec, ok := m.readRecord(ctx, id); ok {
			known[rec.Fingerprint] = true
		}
	}

	var added []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			m.logger.Warn("library: import interrupted", slog.String("error", err.Error()))
			break
		}
		if !IsAudio(f.Type()) {
			m.logger.Debug("library: skip non-audio", slog.String("name", f.Name()), slog.String("type", f.Type()))
			continue
		}
		fp := Fingerprint(f.Name(), f.Size())
		if known[fp] {
			m.logger.Debug("library: skip duplicate", slog.String("fingerprint", fp))
			continue
		}

		rec, err := m.importOne(ctx, f, fp, ids)
		if err != nil {
			m.logger.Warn("library: import failed",
				slog.String("name", f.Name()), slog.String("error", err.Error()))
			continue
		}
		known[fp] = true
		ids[rec.ID] = true
		order = append(order, rec.ID)
		added = append(added, rec.ID)
		m.logger.Info("library: imported",
			slog.String("id", rec.ID), slog.String("title", rec.Title), slog.String("duration", rec.Duration))
	}

	if len(added) == 0 {
		return []models.PlayableTrack{}, nil
	}
	if err := blobstore.PutJSON(ctx, m.store, OrderKey, order); err != nil {
		return nil, fmt.Errorf("library: import: write order: %w", err)
	}
	return m.project(ctx, added, scope), nil
}

func (m *Manager) importOne(ctx context.Context, f File, fp string, ids map[string]bool) (models.TrackRecord, error) {
	if m.maxFileSize > 0 && f.Size() > m.maxFileSize {
		return models.TrackRecord{}, fmt.Errorf("library: %s exceeds %d bytes", f.Name(), m.maxFileSize)
	}
	rc, err := f.Open()
	if err != nil {
		return models.TrackRecord{}, fmt.Errorf("library: open %s: %w", f.Name(), err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return models.TrackRecord{}, fmt.Errorf("library: read %s: %w", f.Name(), err)
	}

	desc := m.extractor.Extract(ctx, data, f.Name(), f.Type())

	now := m.now()
	id := newID(now)
	for ids[id] {
		id = newID(now)
	}

	rec := models.TrackRecord{
		ID:          id,
		Fingerprint: fp,
		Title:       desc.Title,
		Artist:      desc.Artist,
		Album:       desc.Album,
		Duration:    desc.Duration,
		AddedAt:     now.Format(time.DateOnly),
		MimeType:    f.Type(),
	}

	if err := m.store.Put(ctx, audioKey(id), data); err != nil {
		return models.TrackRecord{}, fmt.Errorf("library: store audio: %w", err)
	}
	if desc.Cover != nil {
		if err := m.store.Put(ctx, coverKey(id), desc.Cover.Data); err != nil {
			m.logger.Warn("library: store cover failed", slog.String("id", id), slog.String("error", err.Error()))
		} else {
			rec.HasCover = true
		}
	}
	if err := blobstore.PutJSON(ctx, m.store, recordKey(id), rec); err != nil {
		_ = m.store.Delete(ctx, audioKey(id))
		_ = m.store.Delete(ctx, coverKey(id))
		return models.TrackRecord{}, fmt.Errorf("library: store record: %w", err)
	}
	return rec, nil
}

// LoadAll projects every track in the Order Index, in order. Ids whose
// record is missing or unreadable are skipped. A nil scope projects metadata
// only, as in ImportFiles.
func (m *Manager) LoadAll(ctx context.Context, scope *mediaurl.Scope) ([]models.PlayableTrack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, err := m.readOrder(ctx)
	if err != nil {
		return nil, err
	}
	return m.project(ctx, order, scope), nil
}

// Records returns the persisted records in order. It mints no URLs.
func (m *Manager) Records(ctx context.Context) ([]models.TrackRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, err := m.readOrder(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.TrackRecord, 0, len(order))
	for _, id := range order {
		if rec, ok := m.readRecord(ctx, id); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// RescanMissingMetadata re-extracts tracks that lack a cover or a duration
// and persists the fields that improved. A value is only replaced when the
// stored one is a default.
func (m *Manager) RescanMissingMetadata(ctx context.Context) (RescanReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := RescanReport{Updated: []string{}}
	order, err := m.readOrder(ctx)
	if err != nil {
		return report, err
	}

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("library: rescan: %w", err)
		}
		rec, ok := m.readRecord(ctx, id)
		if !ok {
			continue
		}
		if rec.HasCover && rec.Duration != models.ZeroDuration {
			continue
		}
		data, err := m.store.Get(ctx, audioKey(id))
		if err != nil {
			if !errors.Is(err, blobstore.ErrNotFound) {
				m.logger.Warn("library: rescan read failed", slog.String("id", id), slog.String("error", err.Error()))
			}
			continue
		}
		report.Scanned++

		name := nameFromFingerprint(rec.Fingerprint)
		desc := m.extractor.Extract(ctx, data, name, rec.MimeType)
		if !m.improve(ctx, &rec, desc, name) {
			continue
		}
		if err := blobstore.PutJSON(ctx, m.store, recordKey(id), rec); err != nil {
			m.logger.Warn("library: rescan persist failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		report.Updated = append(report.Updated, id)
	}

	m.logger.Info("library: rescan finished",
		slog.Int("scanned", report.Scanned), slog.Int("updated", len(report.Updated)))
	return report, nil
}

// improve copies better values from desc into rec and reports whether
// anything changed.
func (m *Manager) improve(ctx context.Context, rec *models.TrackRecord, desc metadata.Descriptor, name string) bool {
	changed := false

	defaultTitle := metadata.TitleFromName(name)
	if (rec.Title == "" || rec.Title == defaultTitle || rec.Title == name) &&
		desc.Title != "" && desc.Title != defaultTitle && desc.Title != rec.Title {
		rec.Title = desc.Title
		changed = true
	}
	if isPlaceholder(rec.Artist) && !isPlaceholder(desc.Artist) {
		rec.Artist = desc.Artist
		changed = true
	}
	if isPlaceholder(rec.Album) && !isPlaceholder(desc.Album) {
		rec.Album = desc.Album
		changed = true
	}
	if rec.Duration == models.ZeroDuration && desc.Duration != "" && desc.Duration != models.ZeroDuration {
		rec.Duration = desc.Duration
		changed = true
	}
	if !rec.HasCover && desc.Cover != nil {
		if err := m.store.Put(ctx, coverKey(rec.ID), desc.Cover.Data); err != nil {
			m.logger.Warn("library: rescan cover failed", slog.String("id", rec.ID), slog.String("error", err.Error()))
		} else {
			rec.HasCover = true
			changed = true
		}
	}
	return changed
}

func isPlaceholder(s string) bool {
	return s == "" || s == models.Placeholder
}

// WipeAll deletes every record, audio blob and cover, then resets the Order
// Index to empty. Individual delete failures do not stop the wipe; they are
// returned joined.
func (m *Manager) WipeAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.readOrder(ctx)
	if err != nil {
		return err
	}

	var errs []error
	keys := make([]string, 0, len(order)*2)
	for _, id := range order {
		for _, key := range []string{recordKey(id), audioKey(id), coverKey(id)} {
			if err := m.store.Delete(ctx, key); err != nil {
				errs = append(errs, err)
			}
		}
		keys = append(keys, audioKey(id), coverKey(id))
	}
	if m.urls != nil {
		m.urls.Forget(keys...)
	}

	if err := blobstore.PutJSON(ctx, m.store, OrderKey, []string{}); err != nil {
		errs = append(errs, fmt.Errorf("library: wipe: reset order: %w", err))
	}
	m.logger.Info("library: wiped", slog.Int("tracks", len(order)), slog.Int("errors", len(errs)))
	return errors.Join(errs...)
}

// readOrder returns the Order Index. A missing or undecodable index reads as
// empty.
func (m *Manager) readOrder(ctx context.Context) ([]string, error) {
	data, err := m.store.Get(ctx, OrderKey)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("library: read order: %w", err)
	}
	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		m.logger.Error("library: order index unreadable", slog.String("error", err.Error()))
		return nil, nil
	}
	return order, nil
}

func (m *Manager) readRecord(ctx context.Context, id string) (models.TrackRecord, bool) {
	var rec models.TrackRecord
	if err := blobstore.GetJSON(ctx, m.store, recordKey(id), &rec); err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			m.logger.Warn("library: record unreadable", slog.String("id", id), slog.String("error", err.Error()))
		}
		return models.TrackRecord{}, false
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, true
}

func (m *Manager) exists(ctx context.Context, key string) bool {
	ok, err := m.store.Exists(ctx, key)
	if err != nil {
		m.logger.Warn("library: exists check failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return ok
}

func (m *Manager) project(ctx context.Context, ids []string, scope *mediaurl.Scope) []models.PlayableTrack {
	out := make([]models.PlayableTrack, 0, len(ids))
	for _, id := range ids {
		rec, ok := m.readRecord(ctx, id)
		if !ok {
			continue
		}
		t := models.PlayableTrack{
			ID:          rec.ID,
			Fingerprint: rec.Fingerprint,
			Title:       rec.Title,
			Artist:      rec.Artist,
			Album:       rec.Album,
			Duration:    rec.Duration,
			HasCover:    rec.HasCover,
			AddedAt:     rec.AddedAt,
			Image:       m.defaultCover,
			Unsupported: !codec.Supported(rec.MimeType, nameFromFingerprint(rec.Fingerprint)),
		}
		if scope != nil {
			if m.exists(ctx, audioKey(id)) {
				t.Src = scope.Acquire(audioKey(id), rec.MimeType)
			}
			if rec.HasCover && m.exists(ctx, coverKey(id)) {
				t.Image = scope.Acquire(coverKey(id), "")
			}
		}
		out = append(out, t)
	}
	return out
}
