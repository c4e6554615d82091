package blobstore

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/minio/minio-go/v7"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sq, err := OpenSQLite(filepath.Join(dir, "kv.db"), DefaultNamespace)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	fs, err := NewFS(filepath.Join(dir, "blobs"), DefaultNamespace)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	out := map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
		"fs":     fs,
	}

	mr := miniredis.RunT(t)
	r, err := OpenRedis(context.Background(), RedisConfig{Addr: mr.Addr()}, "tonearm-test")
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	out["redis"] = r

	for name, s := range integrationBackends(t) {
		out[name] = s
	}
	return out
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := "blob:t_1_abcdef"
			if err := s.Put(ctx, key, []byte("audio")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "audio" {
				t.Errorf("Get = %q", got)
			}
			ok, err := s.Exists(ctx, key)
			if err != nil || !ok {
				t.Errorf("Exists = %v, %v", ok, err)
			}

			if err := s.Put(ctx, key, []byte("replaced")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, _ = s.Get(ctx, key)
			if string(got) != "replaced" {
				t.Errorf("overwrite = %q", got)
			}

			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete err = %v, want ErrNotFound", err)
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Errorf("Delete missing key should succeed: %v", err)
			}
		})
	}
}

func TestStore_MissingKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "tracks-order-missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
			ok, err := s.Exists(ctx, "tracks-order-missing")
			if err != nil || ok {
				t.Errorf("Exists = %v, %v", ok, err)
			}
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	want := []string{"t_1_aaaaaa", "t_2_bbbbbb"}
	if err := PutJSON(ctx, s, "tracks-order", want); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	var got []string
	if err := GetJSON(ctx, s, "tracks-order", &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %v", got)
	}

	_ = s.Put(ctx, "track:broken", []byte("{not json"))
	var rec map[string]any
	if err := GetJSON(ctx, s, "track:broken", &rec); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestSQLite_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")
	a, err := OpenSQLite(path, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := OpenSQLite(path, "b")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.Put(ctx, "k", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("namespace b sees a's key: %v", err)
	}
}

func TestRedis_KeysAreNamespaced(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	a, err := OpenRedis(ctx, RedisConfig{Addr: mr.Addr()}, "player-db/tracks")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := OpenRedis(ctx, RedisConfig{Addr: mr.Addr()}, "other")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.Put(ctx, "tracks-order", []byte(`["t_1"]`)); err != nil {
		t.Fatal(err)
	}
	if got, err := mr.Get("player-db/tracks:tracks-order"); err != nil || got != `["t_1"]` {
		t.Errorf("raw key = %q, %v", got, err)
	}
	if _, err := b.Get(ctx, "tracks-order"); !errors.Is(err, ErrNotFound) {
		t.Errorf("namespace other sees the key: %v", err)
	}
}

func TestOpenRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := OpenRedis(context.Background(), RedisConfig{Addr: addr}, "ns"); err == nil {
		t.Error("expected error for unreachable redis")
	}
}

func TestMinio_NotFoundMapping(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, true},
		{minio.ErrorResponse{Code: "", StatusCode: http.StatusNotFound}, true},
		{minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, false},
		{errors.New("connection reset"), false},
	}
	for _, c := range cases {
		if got := isNoSuchKey(c.err); got != c.want {
			t.Errorf("isNoSuchKey(%v) = %v, want %v", c.err, got, c.want)
		}
	}

	m := &Minio{bucket: "music", prefix: "player-db/tracks"}
	if got := m.object("blob:t_1_abcdef"); got != "player-db/tracks/blob:t_1_abcdef" {
		t.Errorf("object = %q", got)
	}
}

func TestFS_KeysStayInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFS(root, "ns")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "../escape", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape")); !os.IsNotExist(err) {
		t.Errorf("key escaped the namespace directory")
	}
	if err := s.Put(ctx, "..", []byte("x")); err == nil {
		t.Error("expected error for '..' key")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty config should default to sqlite: %v", err)
	}
	if cfg.Driver != DriverSQLite || cfg.Namespace != DefaultNamespace {
		t.Errorf("defaults = %q %q", cfg.Driver, cfg.Namespace)
	}

	cfg = Config{Driver: DriverRedis}
	if err := cfg.Validate(); err == nil {
		t.Error("redis without addr should fail")
	}

	cfg = Config{Driver: "etcd"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown driver should fail")
	}
}
