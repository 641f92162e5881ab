package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 1536, config.Index.Dimension)
	assert.Equal(t, "./indexes", config.Index.Dir)
	assert.Equal(t, 30*time.Minute, config.Index.ReloadTimeout)
	assert.Empty(t, config.Server.AdminToken)
	assert.Equal(t, 3, config.Embedding.MaxAttempts)
	assert.Equal(t, time.Second, config.Embedding.Backoff)
	assert.Equal(t, 3, config.Search.FacilityTopK)
	assert.Equal(t, 5, config.Search.DirectionsTopK)
	assert.Equal(t, "trafast", config.Naver.RouteOption)
	assert.Equal(t, "127.0310195", config.Naver.StartX)
	assert.Equal(t, "37.4982517", config.Naver.StartY)
	require.NoError(t, config.Validate())
}

func TestLoadFromFiles_MergesInOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 7000

[catalog]
driver = "sqlite"
dsn = "catalog.db"
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[server]
port = 7100

[index]
dir = "/tmp/indexes"
`), 0644))

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 7100, config.Server.Port)
	assert.Equal(t, "sqlite", config.Catalog.Driver)
	assert.Equal(t, "catalog.db", config.Catalog.DSN)
	assert.Equal(t, "/tmp/indexes", config.Index.Dir)
	// Untouched values keep their defaults
	assert.Equal(t, "axpi_hailey_dataset", config.Catalog.Table)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PLACEFINDER_SERVER_PORT", "9090")
	t.Setenv("NAVER_CLIENT_ID", "naver-id")
	t.Setenv("NAVER_CLIENT_SECRET", "naver-secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PLACEFINDER_CORS_ORIGINS", "http://a.example, ,http://b.example")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "naver-id", config.Naver.ClientID)
	assert.Equal(t, "naver-secret", config.Naver.ClientSecret)
	assert.Equal(t, "sk-test", config.Embedding.APIKey)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, config.Server.CORSOrigins)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 5000, config.Server.Port)

	ApplyFlagOverrides(config, 8181, "0.0.0.0")
	assert.Equal(t, 8181, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown catalog driver", func(c *Config) { c.Catalog.Driver = "mysql" }, true},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }, true},
		{"zero attempts", func(c *Config) { c.Embedding.MaxAttempts = 0 }, true},
		{"valid reload schedule", func(c *Config) { c.Index.ReloadSchedule = "0 3 * * *" }, false},
		{"reload every minute", func(c *Config) { c.Index.ReloadSchedule = "* * * * *" }, true},
		{"reload too frequent", func(c *Config) { c.Index.ReloadSchedule = "*/2 * * * *" }, true},
		{"garbage schedule", func(c *Config) { c.Index.ReloadSchedule = "not a cron" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type stubKV struct {
	values map[string]string
}

func (s *stubKV) Get(ctx context.Context, key string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", os.ErrNotExist
}

func (s *stubKV) Set(ctx context.Context, key, value, description string) error {
	s.values[key] = value
	return nil
}

func (s *stubKV) Delete(ctx context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func (s *stubKV) GetAll(ctx context.Context) (map[string]string, error) {
	return s.values, nil
}

func TestResolveAPIKey(t *testing.T) {
	ctx := context.Background()
	kv := &stubKV{values: map[string]string{"naver_client_id": "from-kv"}}

	t.Run("kv before config", func(t *testing.T) {
		t.Setenv("NAVER_CLIENT_ID", "")
		key, err := ResolveAPIKey(ctx, kv, "naver_client_id", "from-config")
		require.NoError(t, err)
		assert.Equal(t, "from-kv", key)
	})

	t.Run("env wins", func(t *testing.T) {
		t.Setenv("NAVER_CLIENT_ID", "from-env")
		key, err := ResolveAPIKey(ctx, kv, "naver_client_id", "from-config")
		require.NoError(t, err)
		assert.Equal(t, "from-env", key)
	})

	t.Run("config fallback", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		key, err := ResolveAPIKey(ctx, nil, "openai_api_key", "from-config")
		require.NoError(t, err)
		assert.Equal(t, "from-config", key)
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		_, err := ResolveAPIKey(ctx, nil, "openai_api_key", "")
		assert.Error(t, err)
	})
}
