package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/tonearm/internal/blobstore"
	pkgconfig "github.com/starford/tonearm/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Library.MaxUploadBytes() != 200<<20 {
		t.Errorf("max upload = %d", cfg.Library.MaxUploadBytes())
	}
	if cfg.Library.ExtractTimeout != 10*time.Second {
		t.Errorf("extract timeout = %v", cfg.Library.ExtractTimeout)
	}
}

func TestVisualizerConfig_BinsPowerOfTwo(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Visualizer.Bins = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("non power of two bins should fail")
	}
	cfg.Visualizer.Bins = 512
	if err := cfg.Validate(); err != nil {
		t.Fatalf("512 bins should pass: %v", err)
	}
}

func TestLibraryConfig_MediaPrefix(t *testing.T) {
	for _, p := range []string{"media", "/media", "/"} {
		cfg := NewDefaultConfig()
		cfg.Library.MediaPrefix = p
		if err := cfg.Validate(); err == nil {
			t.Errorf("prefix %q should fail", p)
		}
	}
}

func TestStoreConfig_DriverSettings(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Driver = blobstore.DriverRedis
	if err := cfg.Validate(); err == nil {
		t.Fatal("redis without addr should fail")
	}
	cfg.Store.Redis.Addr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("redis with addr should pass: %v", err)
	}

	cfg.Store.Driver = "tape"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail")
	}
}

func TestPlayerConfig_Ranges(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Player.Volume = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("volume above 1 should fail")
	}
	cfg = NewDefaultConfig()
	cfg.Player.SampleRate = 100
	if err := cfg.Validate(); err == nil {
		t.Error("sample rate 100 should fail")
	}
}

func TestLoad_YAMLWithEnv(t *testing.T) {
	t.Setenv("TONEARM_TEST_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
app:
  log_level: debug
  http:
    port: 9090
sqlite:
  path: /tmp/x.db
library:
  extract_timeout: 3s
  watch_dir: /tmp/drop
player:
  position_interval: 500ms
auth:
  mode: token
  token: ${TONEARM_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Library.ExtractTimeout != 3*time.Second || cfg.Library.WatchDir != "/tmp/drop" {
		t.Errorf("library = %+v", cfg.Library)
	}
	if cfg.Player.PositionInterval != 500*time.Millisecond || cfg.Player.SampleRate != 44100 {
		t.Errorf("player = %+v", cfg.Player)
	}
	if !cfg.Auth.AuthEnabled() || cfg.Auth.Token != "from-env" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Library.MediaPrefix != "/media/" {
		t.Errorf("defaults lost: prefix = %q", cfg.Library.MediaPrefix)
	}
}
