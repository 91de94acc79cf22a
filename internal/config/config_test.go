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
	for _, k := range []string{"APP_PORT", "DB_DRIVER", "SESSION_TTL", "ADMIN_USERNAME", "ADMIN_PASSWORD", "MAX_UPLOAD_BYTES", "APP_ENV", "FILE_LINK_SECRET"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.SessionSweepInterval)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "admin2025", cfg.AdminPassword)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("AUDIT_ENABLED", "yes")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://broker:5672/")

	cfg := Load()

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "amqp://broker:5672/", cfg.RabbitMQURL)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Load()
	cfg.DBDriver = "oracle"
	cfg.StorageBackend = "s3"
	cfg.S3.Bucket = ""
	cfg.SessionTTL = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "S3_BUCKET")
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestValidate_ProdNeedsFileLinkSecret(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("FILE_LINK_SECRET", "")

	cfg := Load()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FILE_LINK_SECRET")

	cfg.Env = "dev"
	require.NoError(t, cfg.Validate(), "the built-in secret is fine outside prod")

	cfg.Env = "prod"
	cfg.FileLinkSecret = "9f2c1e7b-real-secret"
	require.NoError(t, cfg.Validate())
}

func TestLoadDotEnv_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("INVOICE_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("INVOICE_TEST_DOTENV") })

	LoadDotEnv(path)

	assert.Equal(t, "loaded", os.Getenv("INVOICE_TEST_DOTENV"))
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()

	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 5*time.Second, rl.TTL)
}
