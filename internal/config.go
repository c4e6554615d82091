package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tonearm/internal/blobstore"
	"github.com/starford/tonearm/internal/library"
	"github.com/starford/tonearm/internal/mediaurl"
	"github.com/starford/tonearm/internal/metadata"
	"github.com/starford/tonearm/internal/player"
	"github.com/starford/tonearm/internal/visualizer"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Store      blobstore.Config  `yaml:"store"`
	Library    LibraryConfig     `yaml:"library"`
	Catalog    CatalogConfig     `yaml:"catalog"`
	Player     PlayerConfig      `yaml:"player"`
	Visualizer VisualizerConfig  `yaml:"visualizer"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Library.Validate(); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if err := c.Player.Validate(); err != nil {
		return fmt.Errorf("player: %w", err)
	}
	if err := c.Visualizer.Validate(); err != nil {
		return fmt.Errorf("visualizer: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives a size-rotated copy of the log.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// LibraryConfig controls imports.
type LibraryConfig struct {
	DefaultCover   string        `yaml:"default_cover"`
	MediaPrefix    string        `yaml:"media_prefix"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
	WatchDir       string        `yaml:"watch_dir"`
	RescanOnStart  bool          `yaml:"rescan_on_start"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultCover, validation.Required),
		validation.Field(&c.MediaPrefix, validation.Required, validation.By(slashed)),
		validation.Field(&c.MaxUploadMB, validation.Min(int64(1))),
		validation.Field(&c.ExtractTimeout, validation.Min(time.Duration(0))),
	)
}

// MaxUploadBytes returns the per-request upload cap.
func (c *LibraryConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func slashed(v any) error {
	s, _ := v.(string)
	if len(s) < 2 || s[0] != '/' || s[len(s)-1] != '/' {
		return fmt.Errorf("must start and end with /")
	}
	return nil
}

// CatalogConfig locates the bundled media.
type CatalogConfig struct {
	// MediaDir holds music/ and images/ for the static catalog. Empty
	// disables static media.
	MediaDir string `yaml:"media_dir"`
}

// PlayerConfig holds playback settings.
type PlayerConfig struct {
	SampleRate       int           `yaml:"sample_rate"`
	PositionInterval time.Duration `yaml:"position_interval"`
	Volume           float64       `yaml:"volume"`
}

// Validate validates the player configuration.
func (c *PlayerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SampleRate, validation.Required, validation.Min(8000), validation.Max(192000)),
		validation.Field(&c.PositionInterval, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.Volume, validation.Min(0.0), validation.Max(1.0)),
	)
}

// VisualizerConfig holds renderer settings.
type VisualizerConfig struct {
	Bins       int     `yaml:"bins"`
	FPS        int     `yaml:"fps"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	PixelRatio float64 `yaml:"pixel_ratio"`
}

// Validate validates the visualizer configuration.
func (c *VisualizerConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Bins, validation.Required, validation.Min(16), validation.Max(16384)),
		validation.Field(&c.FPS, validation.Required, validation.Min(1), validation.Max(240)),
		validation.Field(&c.Width, validation.Required, validation.Min(1)),
		validation.Field(&c.Height, validation.Required, validation.Min(1)),
		validation.Field(&c.PixelRatio, validation.Required, validation.Min(0.1)),
	); err != nil {
		return err
	}
	if !player.ValidFFTSize(c.Bins * 2) {
		return fmt.Errorf("bins: %d is not a power of two", c.Bins)
	}
	return nil
}

// Renderer converts the section into renderer settings.
func (c *VisualizerConfig) Renderer() visualizer.Config {
	return visualizer.Config{
		Bins:       c.Bins,
		FPS:        c.FPS,
		Width:      c.Width,
		Height:     c.Height,
		PixelRatio: c.PixelRatio,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./tonearm.db",
		},
		Store: blobstore.Config{
			Driver:    blobstore.DriverSQLite,
			Namespace: blobstore.DefaultNamespace,
		},
		Library: LibraryConfig{
			DefaultCover:   library.DefaultCover,
			MediaPrefix:    mediaurl.DefaultPrefix,
			MaxUploadMB:    200,
			ExtractTimeout: metadata.DefaultProbeTimeout,
		},
		Catalog: CatalogConfig{
			MediaDir: "./public",
		},
		Player: PlayerConfig{
			SampleRate:       int(player.DefaultSampleRate),
			PositionInterval: player.DefaultPositionInterval,
			Volume:           player.DefaultVolume,
		},
		Visualizer: VisualizerConfig{
			Bins:       visualizer.DefaultBins,
			FPS:        visualizer.DefaultFPS,
			Width:      visualizer.DefaultWidth,
			Height:     visualizer.DefaultHeight,
			PixelRatio: 1,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
