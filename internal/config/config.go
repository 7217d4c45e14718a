package config

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	TMDB     TMDBConfig
	Catalog  CatalogConfig
}

type ServerConfig struct {
	Env  string
	Port string

	// Host is the listen address, empty for all interfaces
	Host string

	// TrustedProxies may set X-Forwarded-For for rate limiting
	TrustedProxies []netip.Prefix
}

type StorageConfig struct {
	Backend string
	Key     string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	TLS      bool
}

type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Language     string
	RateLimit    float64
}

type CatalogConfig struct {
	PopularPages int
	PageSize     int
}

// Load reads environment variables and returns a Config struct
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	rateLimit, err := getEnvFloat("TMDB_RATE_LIMIT", 20)
	if err != nil {
		return nil, err
	}
	popularPages, err := getEnvInt("CATALOG_POPULAR_PAGES", 3)
	if err != nil {
		return nil, err
	}
	pageSize, err := getEnvInt("CATALOG_PAGE_SIZE", 9)
	if err != nil {
		return nil, err
	}
	trustedProxies, err := parsePrefixes("TRUSTED_PROXIES", getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Env:            getEnv("APP_ENV", "local"),
			Port:           getEnv("PORT", "4000"),
			Host:           getEnv("HOST", ""),
			TrustedProxies: trustedProxies,
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", StorageRedis),
			Key:     getEnv("STORAGE_KEY", "myMovies"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			TLS:      getEnv("REDIS_TLS", "false") == "true",
		},
		TMDB: TMDBConfig{
			APIKey:       getEnv("TMDB_KEY", ""),
			BaseURL:      getEnv("TMDB_URL", "https://api.themoviedb.org/3"),
			ImageBaseURL: getEnv("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p/w500"),
			Language:     getEnv("TMDB_LANGUAGE", "en-US"),
			RateLimit:    rateLimit,
		},
		Catalog: CatalogConfig{
			PopularPages: popularPages,
			PageSize:     pageSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.TMDB.APIKey == "" {
		return fmt.Errorf("TMDB_KEY is required")
	}
	switch c.Storage.Backend {
	case StorageRedis:
	case StoragePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is %s", StoragePostgres)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %s or %s, got %q", StorageRedis, StoragePostgres, c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("STORAGE_KEY must not be empty")
	}
	if c.TMDB.RateLimit <= 0 {
		return fmt.Errorf("TMDB_RATE_LIMIT must be positive")
	}
	if c.Catalog.PopularPages < 1 {
		return fmt.Errorf("CATALOG_POPULAR_PAGES must be at least 1")
	}
	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("CATALOG_PAGE_SIZE must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}

// parsePrefixes reads a comma separated list of IPs or CIDR ranges
func parsePrefixes(key, value string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			prefix, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid CIDR %q: %w", key, part, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid IP %q: %w", key, part, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment returns true if running in development/local mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "local" || c.Server.Env == "development"
}

// ListenAddr returns the host:port the server binds to
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// RedisAddr returns the Redis address in host:port format
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// UsesPostgres reports whether the collection is stored in Postgres
func (c *Config) UsesPostgres() bool {
	return c.Storage.Backend == StoragePostgres
}
