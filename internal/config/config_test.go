package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "reimbursement-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 60, cfg.Auth.AccessTokenTTLMinutes)
	assert.Equal(t, BlobDriverLocal, cfg.Blob.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Blob.URLTTL())
	assert.Equal(t, int64(5<<20), cfg.Blob.UploadMaxBytes)
	assert.Equal(t, cfg.Auth.JWTSecret, cfg.Blob.SigningSecret)
	assert.True(t, cfg.Audit.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	t.Setenv("BLOB_URL_TTL_SECONDS", "60")
	t.Setenv("BLOB_PUBLIC_BASE_URL", "https://files.example.com/")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.Equal(t, time.Minute, cfg.Blob.URLTTL())
	assert.Equal(t, "https://files.example.com", cfg.Blob.PublicBaseURL)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 30, cfg.App.RequestTimeoutSeconds)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_NAME=from-file\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.App.Name)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing env file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})

	t.Run("unknown blob driver", func(t *testing.T) {
		t.Setenv("BLOB_DRIVER", "ftp")
		_, err := Load("")
		assert.ErrorContains(t, err, "unsupported BLOB_DRIVER")
	})

	t.Run("s3 without endpoint", func(t *testing.T) {
		t.Setenv("BLOB_DRIVER", "s3")
		_, err := Load("")
		assert.ErrorContains(t, err, "BLOB_S3_ENDPOINT")
	})

	t.Run("bad redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "x")
		_, err := Load("")
		assert.ErrorContains(t, err, "REDIS_DB")
	})
}
