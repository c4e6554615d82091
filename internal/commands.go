package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/tonearm/internal/mcpserver"
	"github.com/starford/tonearm/internal/models"
	"github.com/starford/tonearm/internal/trackservice"
)

// withService runs fn against a library service without the player or the
// HTTP surface. Logs go to stderr unless overridden.
func withService(ctx context.Context, opts []Option, fn func(*trackservice.Service, *slog.Logger) error) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(app.config.App, app.logOut)
	defer closeLog()
	slog.SetDefault(logger)

	lib, err := openLibrary(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	svc := lib.service(trackservice.WithLogger(logger))
	if err := svc.Reindex(ctx); err != nil {
		logger.Warn("search index sync failed", slog.String("error", err.Error()))
	}
	return fn(svc, logger)
}

// Import adds local files to the library and returns the new tracks. Paths
// that fail are reported in the joined error; the rest are still imported.
func Import(ctx context.Context, paths []string, opts ...Option) ([]models.PlayableTrack, error) {
	var added []models.PlayableTrack
	err := withService(ctx, opts, func(svc *trackservice.Service, logger *slog.Logger) error {
		var err error
		added, err = svc.ImportPaths(ctx, paths)
		logger.Info("import finished", slog.Int("files", len(paths)), slog.Int("added", len(added)))
		return err
	})
	return added, err
}

// Rescan runs one metadata rescan pass.
func Rescan(ctx context.Context, opts ...Option) (updated []string, err error) {
	err = withService(ctx, opts, func(svc *trackservice.Service, logger *slog.Logger) error {
		report, err := svc.Rescan(ctx)
		if err != nil {
			return fmt.Errorf("rescan: %w", err)
		}
		logger.Info("rescan finished", slog.Int("scanned", report.Scanned), slog.Int("updated", len(report.Updated)))
		updated = report.Updated
		return nil
	})
	return updated, err
}

// Wipe deletes every imported track.
func Wipe(ctx context.Context, opts ...Option) error {
	return withService(ctx, opts, func(svc *trackservice.Service, logger *slog.Logger) error {
		if err := svc.Wipe(ctx); err != nil {
			return fmt.Errorf("wipe: %w", err)
		}
		logger.Info("library wiped")
		return nil
	})
}

// ServeMCP exposes the library over MCP on stdin/stdout until the client
// disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	return withService(ctx, opts, func(svc *trackservice.Service, logger *slog.Logger) error {
		logger.Info("MCP server starting on stdio")
		return mcpserver.New(svc).ServeStdio()
	})
}
