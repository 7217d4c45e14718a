package config

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "HOST", "STORAGE_BACKEND", "STORAGE_KEY", "DATABASE_URL",
		"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_TLS",
		"TMDB_KEY", "TMDB_URL", "TMDB_IMAGE_URL", "TMDB_LANGUAGE", "TMDB_RATE_LIMIT",
		"CATALOG_POPULAR_PAGES", "CATALOG_PAGE_SIZE", "TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TMDB_KEY", "token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Server.Env)
	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, "myMovies", cfg.Storage.Key)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, "https://api.themoviedb.org/3", cfg.TMDB.BaseURL)
	assert.Equal(t, "en-US", cfg.TMDB.Language)
	assert.Equal(t, 20.0, cfg.TMDB.RateLimit)
	assert.Equal(t, 3, cfg.Catalog.PopularPages)
	assert.Equal(t, 9, cfg.Catalog.PageSize)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.UsesPostgres())
	assert.Equal(t, ":4000", cfg.ListenAddr())
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TMDB_KEY", "token")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/reelshelf")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("TMDB_RATE_LIMIT", "4.5")
	t.Setenv("CATALOG_POPULAR_PAGES", "5")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7,::ffff:172.16.0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.UsesPostgres())
	assert.True(t, cfg.Redis.TLS)
	assert.Equal(t, 4.5, cfg.TMDB.RateLimit)
	assert.Equal(t, 5, cfg.Catalog.PopularPages)
	assert.Equal(t, "127.0.0.1:4000", cfg.ListenAddr())
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
		netip.MustParsePrefix("172.16.0.1/32"),
	}, cfg.Server.TrustedProxies)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing tmdb key", map[string]string{}, "TMDB_KEY"},
		{"postgres without url", map[string]string{"TMDB_KEY": "k", "STORAGE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"unknown backend", map[string]string{"TMDB_KEY": "k", "STORAGE_BACKEND": "sqlite"}, "STORAGE_BACKEND"},
		{"bad page count", map[string]string{"TMDB_KEY": "k", "CATALOG_POPULAR_PAGES": "three"}, "CATALOG_POPULAR_PAGES"},
		{"zero page size", map[string]string{"TMDB_KEY": "k", "CATALOG_PAGE_SIZE": "0"}, "CATALOG_PAGE_SIZE"},
		{"bad rate limit", map[string]string{"TMDB_KEY": "k", "TMDB_RATE_LIMIT": "-1"}, "TMDB_RATE_LIMIT"},
		{"bad trusted proxy", map[string]string{"TMDB_KEY": "k", "TRUSTED_PROXIES": "10.0.0.0/33"}, "TRUSTED_PROXIES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
