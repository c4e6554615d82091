package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/tonearm/internal/blobstore"
	"github.com/starford/tonearm/internal/catalog"
	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/library"
	"github.com/starford/tonearm/internal/mediaurl"
	"github.com/starford/tonearm/internal/metadata"
	"github.com/starford/tonearm/internal/models"
	"github.com/starford/tonearm/internal/trackservice"
)

// libraryCore is the storage side shared by the server and the one-shot
// commands: the blob store, the manager over it, the search index and the
// URL bookkeeping.
type libraryCore struct {
	store    blobstore.Store
	index    *index.DB
	manager  *library.Manager
	urls     *mediaurl.Registry
	views    *mediaurl.Views
	resolver *mediaurl.Resolver
	static   []models.PlayableTrack
}

func openLibrary(ctx context.Context, cfg *Config, logger *slog.Logger) (*libraryCore, error) {
	store, err := blobstore.Open(ctx, cfg.Store, cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	static, err := catalog.Static()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	idx, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init search index: %w", err)
	}

	extractor := metadata.NewExtractor(
		metadata.WithProbeTimeout(cfg.Library.ExtractTimeout),
		metadata.WithLogger(logger),
	)
	urls := mediaurl.NewRegistry(cfg.Library.MediaPrefix)
	manager := library.NewManager(store, extractor, urls,
		library.WithLogger(logger),
		library.WithDefaultCover(cfg.Library.DefaultCover),
		library.WithMaxFileSize(cfg.Library.MaxUploadBytes()),
	)

	return &libraryCore{
		store:    store,
		index:    idx,
		manager:  manager,
		urls:     urls,
		views:    mediaurl.NewViews(urls),
		resolver: mediaurl.NewResolver(urls, store, cfg.Catalog.MediaDir),
		static:   static,
	}, nil
}

func (c *libraryCore) service(opts ...trackservice.Option) *trackservice.Service {
	opts = append([]trackservice.Option{
		trackservice.WithStatic(c.static),
		trackservice.WithIndex(c.index),
	}, opts...)
	return trackservice.New(c.manager, c.urls, c.views, opts...)
}

// Close revokes every handle and releases the index and the store.
func (c *libraryCore) Close() error {
	c.views.CloseAll()
	return errors.Join(c.index.Close(), c.store.Close())
}
