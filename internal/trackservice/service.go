// Package trackservice coordinates the library, URL scopes, the static
// catalog and the player queue for the HTTP, MCP and CLI front ends.
package trackservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/tonearm/internal/catalog"
	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/library"
	"github.com/starford/tonearm/internal/mediaurl"
	"github.com/starford/tonearm/internal/models"
	"github.com/starford/tonearm/internal/sse"
)

// PlayerView is the view id whose scope backs the player queue.
const PlayerView = "player"

// ErrNoIndex is returned by Search when no index is configured.
var ErrNoIndex = errors.New("trackservice: search index disabled")

// Publisher receives library change events.
type Publisher interface {
	Publish(sse.Event)
}

// Queue is the playlist fed with the merged catalog.
type Queue interface {
	SetQueue(ctx context.Context, tracks []models.PlayableTrack) error
}

// TrackSummary is the event payload for a library track. It carries no URLs
// since handles are scoped to the view that minted them.
type TrackSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration string `json:"duration"`
	HasCover bool   `json:"hasCover"`
}

func summarize(t models.PlayableTrack) TrackSummary {
	return TrackSummary{ID: t.ID, Title: t.Title, Artist: t.Artist, Album: t.Album, Duration: t.Duration, HasCover: t.HasCover}
}

// Service wraps library operations with scope bookkeeping and events.
type Service struct {
	lib    *library.Manager
	urls   *mediaurl.Registry
	views  *mediaurl.Views
	static []models.PlayableTrack
	queue  Queue
	pub    Publisher
	index  index.TrackIndex
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStatic sets the bundled catalog merged ahead of the library.
func WithStatic(tracks []models.PlayableTrack) Option {
	return func(s *Service) { s.static = tracks }
}

// WithQueue makes every library change refresh q.
func WithQueue(q Queue) Option {
	return func(s *Service) { s.queue = q }
}

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithIndex keeps idx in sync with the library and enables Search.
func WithIndex(idx index.TrackIndex) Option {
	return func(s *Service) { s.index = idx }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a service.
func New(lib *library.Manager, urls *mediaurl.Registry, views *mediaurl.Views, opts ...Option) *Service {
	s := &Service{lib: lib, urls: urls, views: views, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tracks recomputes the library list for view, releasing the URLs the view
// held before.
func (s *Service) Tracks(ctx context.Context, view string) ([]models.PlayableTrack, error) {
	return s.lib.LoadAll(ctx, s.views.Renew(view))
}

// Catalog is the static catalog followed by the library, deduplicated by
// identity.
func (s *Service) Catalog(ctx context.Context, view string) ([]models.PlayableTrack, error) {
	tracks, err := s.Tracks(ctx, view)
	if err != nil {
		return nil, err
	}
	return catalog.Merge(s.static, tracks), nil
}

// Records returns the stored records without minting URLs.
func (s *Service) Records(ctx context.Context) ([]models.TrackRecord, error) {
	return s.lib.Records(ctx)
}

// Import adds files. URLs of the returned tracks belong to view's current
// scope; an empty view mints throwaway URLs that are revoked on return.
func (s *Service) Import(ctx context.Context, files []library.File, view string) ([]models.PlayableTrack, error) {
	var scope *mediaurl.Scope
	if view == "" {
		scope = s.urls.NewScope()
		defer scope.Release()
	} else {
		scope = s.views.Current(view)
	}

	added, err := s.lib.ImportFiles(ctx, files, scope)
	if err != nil {
		return nil, err
	}
	for _, t := range added {
		s.publish(sse.TypeTrackAdded, summarize(t))
	}
	if len(added) > 0 {
		s.refresh(ctx)
	}
	return added, nil
}

// ImportPaths imports local files. Paths that cannot be read are reported in
// the joined error while the rest are still imported.
func (s *Service) ImportPaths(ctx context.Context, paths []string) ([]models.PlayableTrack, error) {
	var files []library.File
	var errs []error
	for _, p := range paths {
		f, err := library.PathFile(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("trackservice: %s: %w", p, err))
			continue
		}
		files = append(files, f)
	}
	added, err := s.Import(ctx, files, "")
	if err != nil {
		errs = append(errs, err)
	}
	return added, errors.Join(errs...)
}

// Rescan re-extracts incomplete tracks.
func (s *Service) Rescan(ctx context.Context) (library.RescanReport, error) {
	report, err := s.lib.RescanMissingMetadata(ctx)
	if err != nil {
		return report, err
	}
	s.publish(sse.TypeLibraryRescanned, report)
	if len(report.Updated) > 0 {
		s.refresh(ctx)
	}
	return report, nil
}

// Wipe deletes the whole library. The queue falls back to the static
// catalog even when some deletes failed.
func (s *Service) Wipe(ctx context.Context) error {
	err := s.lib.WipeAll(ctx)
	s.publish(sse.TypeLibraryWiped, map[string]bool{"ok": err == nil})
	s.refresh(ctx)
	return err
}

// RefreshQueue reloads the player queue from the merged catalog.
func (s *Service) RefreshQueue(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	tracks, err := s.Catalog(ctx, PlayerView)
	if err != nil {
		return fmt.Errorf("trackservice: refresh queue: %w", err)
	}
	return s.queue.SetQueue(ctx, tracks)
}

// Search matches query against title, artist and album.
func (s *Service) Search(query string, limit int) ([]index.Hit, error) {
	if s.index == nil {
		return nil, ErrNoIndex
	}
	hits, err := s.index.Search(query, limit)
	if err != nil {
		return nil, fmt.Errorf("trackservice: search: %w", err)
	}
	return hits, nil
}

// Reindex brings the search index in line with the library.
func (s *Service) Reindex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	records, err := s.lib.Records(ctx)
	if err != nil {
		return fmt.Errorf("trackservice: reindex: %w", err)
	}
	return index.Sync(s.index, records, s.logger)
}

func (s *Service) refresh(ctx context.Context) {
	if err := s.RefreshQueue(ctx); err != nil {
		s.logger.Warn("trackservice: queue refresh failed", slog.String("error", err.Error()))
	}
	if err := s.Reindex(ctx); err != nil {
		s.logger.Warn("trackservice: reindex failed", slog.String("error", err.Error()))
	}
}

func (s *Service) publish(kind string, data any) {
	if s.pub != nil {
		s.pub.Publish(sse.Event{Type: kind, Data: data})
	}
}
