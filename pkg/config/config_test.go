package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tasklist/pkg/observability"
	"github.com/platinummonkey/tasklist/pkg/storage"
)

const testKey = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasklist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_NeedsSigningKey(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing key")

	cfg.Auth.SigningKey = testKey
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_EnvOnly(t *testing.T) {
	t.Setenv("TASKLIST_AUTH_SIGNING_KEY", testKey)
	t.Setenv("TASKLIST_SERVER_PORT", "8181")
	t.Setenv("TASKLIST_STORAGE_TYPE", "sqlite")
	t.Setenv("TASKLIST_STORAGE_URL", "file::memory:")
	t.Setenv("TASKLIST_STORAGE_CACHE_TTL", "90s")
	t.Setenv("TASKLIST_STORAGE_REPLICA_URLS", "a,b")
	t.Setenv("TASKLIST_RATE_LIMIT_AUTH_REQUESTS", "3")
	t.Setenv("TASKLIST_OBSERVABILITY_LOG_LEVEL", "debug")
	t.Setenv("TASKLIST_OBSERVABILITY_OTEL_SERVICE_NAME", "tasklist-test")
	t.Setenv("TASKLIST_SERVER_CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, storage.TypeSQLite, cfg.Storage.Type)
	assert.Equal(t, 90*time.Second, cfg.Storage.CacheTTL)
	assert.Equal(t, []string{"a", "b"}, cfg.Storage.ReplicaURLs)
	assert.Equal(t, 3, cfg.RateLimit.AuthRequests)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.Level())
	assert.Equal(t, "tasklist-test", cfg.Observability.OTel().ServiceName)
	assert.Len(t, cfg.Server.CORSOrigins, 2)
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: "7000"
  health_port: "7001"
  read_timeout: 5s
storage:
  type: postgres
  url: postgres://db/tasks
  max_conns: 7
redis:
  url: redis://cache:6379/1
auth:
  signing_key: `+testKey+`
  issuer: file-issuer
  password_hash: argon2id
rate_limit:
  distributed: true
seed:
  admin_email: ops@example.com
`)
	t.Setenv("TASKLIST_AUTH_ISSUER", "env-issuer")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "untouched defaults survive")
	assert.Equal(t, "env-issuer", cfg.Auth.Issuer, "environment wins over the file")
	assert.Equal(t, "argon2id", cfg.Auth.PasswordHash)
	assert.True(t, cfg.Redis.Enabled())

	st := cfg.StorageConfig()
	assert.Equal(t, storage.TypePostgres, st.Type)
	assert.Equal(t, 7, st.MaxConns)
	assert.Equal(t, "redis://cache:6379/1", st.RedisURL)

	admin := cfg.AdminConfig()
	assert.Equal(t, "ops@example.com", admin.Email)
	assert.Equal(t, "admin", admin.Username)

	tc := cfg.TokenConfig()
	assert.Equal(t, []byte(testKey), tc.SigningKey)
}

func TestLoad_UsesFileEnvVar(t *testing.T) {
	path := writeFile(t, "auth:\n  signing_key: "+testKey+"\nserver:\n  port: \"6000\"\n")
	t.Setenv(FileEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "6000", cfg.Server.Port)
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "server:\n  prot: \"1\"\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prot")
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("TASKLIST_SERVER_READ_TIMEOUT", "soon")
		_, err := LoadFile("")
		assert.Error(t, err)
	})

	t.Run("empty file uses defaults", func(t *testing.T) {
		t.Setenv("TASKLIST_AUTH_SIGNING_KEY", testKey)
		cfg, err := LoadFile(writeFile(t, ""))
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Server.Port)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"same ports", func(c *Config) { c.Server.HealthPort = c.Server.Port }, "must be different"},
		{"short key", func(c *Config) { c.Auth.SigningKey = "short" }, "signing key"},
		{"no issuer", func(c *Config) { c.Auth.Issuer = " " }, "issuer"},
		{"no audience", func(c *Config) { c.Auth.Audience = "" }, "audience"},
		{"unknown hash", func(c *Config) { c.Auth.PasswordHash = "md5" }, "unsupported password hash"},
		{"sql without url", func(c *Config) { c.Storage.Type = storage.TypePostgres }, "storage URL"},
		{"unknown storage", func(c *Config) { c.Storage.Type = "etcd" }, "unsupported storage type"},
		{"distributed without redis", func(c *Config) { c.RateLimit.Distributed = true }, "requires a redis URL"},
		{"bad schedule", func(c *Config) { c.Maintenance.PoolStats = "every so often" }, "pool_stats"},
		{"seed without password", func(c *Config) { c.Seed.AdminPassword = "" }, "seed admin"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, "endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.SigningKey = testKey
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestValidate_DisabledFeaturesSkipChecks(t *testing.T) {
	cfg := Default()
	cfg.Auth.SigningKey = testKey
	cfg.Seed.Enabled = false
	cfg.Seed.AdminPassword = ""
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Window = 0
	cfg.Maintenance = MaintenanceConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestServerAddrs(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: "8080", HealthPort: "9090"}
	assert.Equal(t, "127.0.0.1:8080", s.Addr())
	assert.Equal(t, "127.0.0.1:9090", s.HealthAddr())
}
