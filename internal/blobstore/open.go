package blobstore

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Drivers.
const (
	DriverSQLite = "sqlite"
	DriverFS     = "fs"
	DriverRedis  = "redis"
	DriverMinio  = "minio"
)

// DefaultNamespace scopes every key the library writes.
const DefaultNamespace = "player-db/tracks"

// Config selects and configures a backend.
type Config struct {
	Driver    string      `yaml:"driver"`
	Namespace string      `yaml:"namespace"`
	FS        FSConfig    `yaml:"fs"`
	Redis     RedisConfig `yaml:"redis"`
	Minio     MinioConfig `yaml:"minio"`
}

// FSConfig holds the directory backend settings.
type FSConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds the redis backend settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MinioConfig holds the object storage backend settings.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Validate validates the store configuration.
func (c *Config) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverFS, DriverRedis, DriverMinio)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case DriverFS:
		return validation.ValidateStruct(&c.FS,
			validation.Field(&c.FS.Path, validation.Required),
		)
	case DriverRedis:
		return validation.ValidateStruct(&c.Redis,
			validation.Field(&c.Redis.Addr, validation.Required),
			validation.Field(&c.Redis.DB, validation.Min(0)),
		)
	case DriverMinio:
		return validation.ValidateStruct(&c.Minio,
			validation.Field(&c.Minio.Endpoint, validation.Required),
			validation.Field(&c.Minio.Bucket, validation.Required),
		)
	}
	return nil
}

// Open constructs the configured backend. sqlitePath is used by the sqlite
// driver, which shares its database file with the accounts table.
func Open(ctx context.Context, cfg Config, sqlitePath string) (Store, error) {
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	switch cfg.Driver {
	case "", DriverSQLite:
		return OpenSQLite(sqlitePath, ns)
	case DriverFS:
		return NewFS(cfg.FS.Path, ns)
	case DriverRedis:
		return OpenRedis(ctx, cfg.Redis, ns)
	case DriverMinio:
		return OpenMinio(ctx, cfg.Minio, ns)
	default:
		return nil, fmt.Errorf("blobstore: unknown driver %q", cfg.Driver)
	}
}
