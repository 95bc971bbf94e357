package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.StorageType)
	assert.Equal(t, 5, cfg.UploadWorkers)
	assert.Equal(t, uint64(2), cfg.UploadRetries)
	assert.Equal(t, 30*time.Second, cfg.UploadTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_TYPE", "mongo")
	t.Setenv("DATABASE_URL", "mongodb://db:27017")
	t.Setenv("DATABASE_NAME", "catalog")
	t.Setenv("STORAGE_TYPE", "fs")
	t.Setenv("MEDIA_FS_DIR", "/var/media")
	t.Setenv("UPLOAD_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "mongo", cfg.DatabaseType)
	assert.Equal(t, "mongodb://db:27017", cfg.DatabaseURL)
	assert.Equal(t, "catalog", cfg.DatabaseName)
	assert.Equal(t, "fs", cfg.StorageType)
	assert.Equal(t, "/var/media", cfg.FS.BaseDir)
	assert.Equal(t, 3, cfg.UploadWorkers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ServerConfig)
		wantError bool
	}{
		{"defaults are valid", func(*ServerConfig) {}, false},
		{"unknown database type", func(c *ServerConfig) { c.DatabaseType = "postgres" }, true},
		{"unknown storage type", func(c *ServerConfig) { c.StorageType = "ftp" }, true},
		{"mongo without url", func(c *ServerConfig) {
			c.DatabaseType = "mongo"
			c.DatabaseURL = ""
		}, true},
		{"zero workers fall back to the default", func(c *ServerConfig) { c.UploadWorkers = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ServerConfig{
				DatabaseType:  "memory",
				DatabaseURL:   "mongodb://localhost:27017",
				StorageType:   "memory",
				UploadWorkers: 5,
			}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.GreaterOrEqual(t, cfg.UploadWorkers, 1)
			}
		})
	}
}

func TestBuildServiceMemory(t *testing.T) {
	cfg := ServerConfig{
		DatabaseType:  "memory",
		StorageType:   "memory",
		UploadWorkers: 5,
		UploadRetries: 2,
		UploadTimeout: time.Second,
	}

	ctx := context.Background()
	svc, cleanup, err := cfg.BuildService(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, svc)

	assert.NoError(t, cleanup(ctx))
}

func TestBuildMediaStoreFS(t *testing.T) {
	cfg := ServerConfig{
		StorageType: "fs",
		FS:          FSConfig{BaseDir: t.TempDir(), URLPrefix: "/media"},
	}

	store, err := cfg.BuildMediaStore()
	require.NoError(t, err)
	assert.NotNil(t, store)
}
