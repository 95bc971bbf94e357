// Package config loads server configuration from the environment and
// assembles the gallery service from it.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/artgrove/gallery/pkg/gallery"
	memoryrepo "github.com/artgrove/gallery/pkg/gallery/repo/memory"
	mongorepo "github.com/artgrove/gallery/pkg/gallery/repo/mongo"
	fsstorage "github.com/artgrove/gallery/pkg/gallery/storage/fs"
	memorystorage "github.com/artgrove/gallery/pkg/gallery/storage/memory"
	s3storage "github.com/artgrove/gallery/pkg/gallery/storage/s3"
)

// ServerConfig represents server configuration for the gallery service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Metadata store configuration
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"` // "memory", "mongo"
	DatabaseURL  string `env:"DATABASE_URL" env-default:"mongodb://localhost:27017"`
	DatabaseName string `env:"DATABASE_NAME" env-default:"gallery"`

	// Media storage configuration
	StorageType string `env:"STORAGE_TYPE" env-default:"memory"` // "memory", "fs", "s3"
	FS          FSConfig
	S3          S3Config

	// Media provisioning pool
	UploadWorkers int           `env:"UPLOAD_WORKERS" env-default:"5"`
	UploadRetries uint64        `env:"UPLOAD_RETRIES" env-default:"2"`
	UploadTimeout time.Duration `env:"UPLOAD_TIMEOUT" env-default:"30s"`

	// Boundary auth
	JWTSecret string `env:"JWT_SECRET" env-default:"dev-secret"`
}

// FSConfig configures the filesystem media store
type FSConfig struct {
	BaseDir   string `env:"MEDIA_FS_DIR" env-default:"./data/media"`
	URLPrefix string `env:"MEDIA_FS_URL_PREFIX" env-default:"/media"`
}

// S3Config configures the S3 media store
type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	Bucket          string `env:"AWS_S3_BUCKET" env-default:"gallery-media"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_PATH_STYLE" env-default:"false"`
	URLPrefix       string `env:"MEDIA_URL_PREFIX" env-default:""`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// Load reads configuration from the environment.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration consistency.
func (c *ServerConfig) Validate() error {
	switch c.DatabaseType {
	case "memory", "mongo":
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE %q (use \"memory\" or \"mongo\")", c.DatabaseType)
	}
	switch c.StorageType {
	case "memory", "fs", "s3":
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q (use \"memory\", \"fs\" or \"s3\")", c.StorageType)
	}
	if c.DatabaseType == "mongo" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the mongo repository")
	}
	if c.UploadWorkers < 1 {
		c.UploadWorkers = gallery.DefaultUploadWorkers
	}
	return nil
}

// BuildRepository constructs the configured metadata repository. The
// returned cleanup func disconnects the mongo client and is a no-op
// for the memory repository.
func (c *ServerConfig) BuildRepository(ctx context.Context) (gallery.Repository, func(context.Context) error, error) {
	switch c.DatabaseType {
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.DatabaseURL))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		repo := mongorepo.New(client.Database(c.DatabaseName))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return repo, client.Disconnect, nil
	default:
		return memoryrepo.New(), func(context.Context) error { return nil }, nil
	}
}

// BuildMediaStore constructs the configured media store.
func (c *ServerConfig) BuildMediaStore() (gallery.MediaStore, error) {
	switch c.StorageType {
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			URLPrefix:              c.S3.URLPrefix,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.FS.BaseDir,
			URLPrefix: c.FS.URLPrefix,
		})
	default:
		return memorystorage.New(), nil
	}
}

// BuildService assembles the full gallery service from configuration.
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (gallery.Service, func(context.Context) error, error) {
	repo, cleanup, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := c.BuildMediaStore()
	if err != nil {
		cleanup(ctx) //nolint:errcheck
		return nil, nil, err
	}

	svc, err := gallery.New(
		gallery.WithRepository(repo),
		gallery.WithMediaStore(store,
			gallery.WithWorkers(c.UploadWorkers),
			gallery.WithRetries(c.UploadRetries),
			gallery.WithCallTimeout(c.UploadTimeout),
			gallery.WithProvisionerLogger(logger),
		),
		gallery.WithLogger(logger),
	)
	if err != nil {
		cleanup(ctx) //nolint:errcheck
		return nil, nil, err
	}
	return svc, cleanup, nil
}
