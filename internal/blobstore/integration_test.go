//go:build integration

package blobstore

import (
	"context"
	"os"
	"testing"
)

// integrationBackends adds stores that need a running server. Set
// TONEARM_TEST_MINIO_ENDPOINT (plus _ACCESS_KEY, _SECRET_KEY) and run with
// -tags integration.
func integrationBackends(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{}

	if endpoint := os.Getenv("TONEARM_TEST_MINIO_ENDPOINT"); endpoint != "" {
		cfg := MinioConfig{
			Endpoint:  endpoint,
			AccessKey: os.Getenv("TONEARM_TEST_MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("TONEARM_TEST_MINIO_SECRET_KEY"),
			Bucket:    "tonearm-test",
		}
		m, err := OpenMinio(context.Background(), cfg, t.Name())
		if err != nil {
			t.Fatalf("OpenMinio: %v", err)
		}
		out["minio"] = m
	}

	if addr := os.Getenv("TONEARM_TEST_REDIS_ADDR"); addr != "" {
		r, err := OpenRedis(context.Background(), RedisConfig{Addr: addr}, "tonearm-test")
		if err != nil {
			t.Fatalf("OpenRedis: %v", err)
		}
		t.Cleanup(func() { r.Close() })
		out["redis-server"] = r
	}
	return out
}
