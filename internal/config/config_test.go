package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, 5*time.Minute, cfg.SyncTickInterval)
	assert.Equal(t, 24*time.Hour, cfg.ExpirationInterval)
	assert.Equal(t, int64(250*1024*1024), cfg.ArchiveChunkBytes)
	assert.Equal(t, int64(4), cfg.UploadConcurrency)
	assert.False(t, cfg.RunBackgroundJobs)
	assert.False(t, cfg.IsProd())
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/gallery")
	t.Setenv("STORAGE_DRIVER", "MINIO")
	t.Setenv("SYNC_TICK_INTERVAL", "30s")
	t.Setenv("ARCHIVE_CHUNK_BYTES", "1048576")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RUN_BACKGROUND_JOBS", "yes")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.SyncTickInterval)
	assert.Equal(t, int64(1048576), cfg.ArchiveChunkBytes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.RunBackgroundJobs)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"STORAGE_DRIVER":      "ftp",
		"SYNC_TICK_INTERVAL":  "soon",
		"ARCHIVE_CHUNK_BYTES": "-1",
		"UPLOAD_CONCURRENCY":  "zero",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "file:test.db")
			t.Setenv(name, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProdRequiresSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
}
