// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gopxl/beep/v2"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tonearm/internal/account"
	"github.com/starford/tonearm/internal/api"
	"github.com/starford/tonearm/internal/dropwatch"
	"github.com/starford/tonearm/internal/library"
	"github.com/starford/tonearm/internal/models"
	"github.com/starford/tonearm/internal/player"
	"github.com/starford/tonearm/internal/sse"
	"github.com/starford/tonearm/internal/trackservice"
	"github.com/starford/tonearm/internal/visualizer"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closeLog := newLogger(cfg.App, app.logOut)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("media_dir", cfg.Catalog.MediaDir),
		slog.String("watch_dir", cfg.Library.WatchDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	lib, err := openLibrary(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	accounts, err := account.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init accounts: %w", err)
	}
	defer accounts.Close()

	// Playback.
	ctrl := player.NewController(player.MediaOpener{Source: lib.resolver},
		player.WithLogger(logger),
		player.WithSampleRate(beep.SampleRate(cfg.Player.SampleRate)),
		player.WithPositionInterval(cfg.Player.PositionInterval),
		player.WithVolume(cfg.Player.Volume),
		player.WithFFTSize(cfg.Visualizer.Bins*2),
	)
	defer ctrl.Close()
	deck := player.NewDeck(ctrl, logger)
	defer deck.Close()

	// Visualizer.
	renderer, err := visualizer.NewRenderer(ctrl, cfg.Visualizer.Renderer(), visualizer.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init visualizer: %w", err)
	}
	defer renderer.Stop()
	frames := api.NewFrameHub()
	defer frames.Close()
	renderer.OnFrame(frames.Broadcast)

	// SSE broker.
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	defer forwardPlayerEvents(ctrl, broker)()

	svc := lib.service(
		trackservice.WithQueue(deck),
		trackservice.WithPublisher(broker),
		trackservice.WithLogger(logger),
	)

	g, gCtx := errgroup.WithContext(ctx)

	// The draw loop lives as long as the audio graph; the caption follows
	// the loaded track.
	defer ctrl.OnEvent(func(ev player.Event) {
		switch ev.Kind {
		case player.EventGraphReady:
			renderer.Start(gCtx)
		case player.EventDuration:
			renderer.SetCaption(ctrl.Status().Track.Title)
		}
	})()

	if err := svc.RefreshQueue(ctx); err != nil {
		logger.Warn("initial queue load failed", slog.String("error", err.Error()))
	}
	if err := svc.Reindex(ctx); err != nil {
		logger.Warn("search index sync failed", slog.String("error", err.Error()))
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := accounts.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(api.Deps{
		Tracks:    svc,
		Player:    ctrl,
		Deck:      deck,
		Accounts:  accounts,
		Renderer:  renderer,
		Frames:    frames,
		Events:    broker,
		MaxUpload: cfg.Library.MaxUploadBytes(),
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token))

	// Blob handles and bundled media.
	api.NewMediaHandler(lib.resolver).Mount(r, lib.urls.Prefix())

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	if cfg.Library.RescanOnStart {
		g.Go(func() error {
			report, err := svc.Rescan(gCtx)
			if err != nil {
				logger.Warn("startup rescan failed", slog.String("error", err.Error()))
				return nil
			}
			logger.Info("startup rescan finished",
				slog.Int("scanned", report.Scanned), slog.Int("updated", len(report.Updated)))
			return nil
		})
	}

	// Drop folder.
	if cfg.Library.WatchDir != "" {
		g.Go(func() error {
			w := dropwatch.New(cfg.Library.WatchDir,
				func(ctx context.Context, files []library.File) ([]models.PlayableTrack, error) {
					return svc.Import(ctx, files, "")
				},
				dropwatch.WithLogger(logger),
			)
			if err := w.Run(gCtx); err != nil {
				logger.Error("drop folder watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Open SSE and websocket streams would hold Shutdown until its
		// deadline.
		broker.Close()
		frames.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}
