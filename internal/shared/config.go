package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	DirectoryBase  string
	DirectoryKind  string
	DirectoryKey   string
	DirectoryRPS   int
	AccountsSource string // local|remote
	Workers        int
	PageSize       int
	MaxPageSize    int
	CacheTTL       time.Duration
	SessionTTL     time.Duration
	CatalogTTL     time.Duration
	CORSOrigins    []string
	NATSURL        string
	TaxonomyFile   string
}

// Load reads the environment, after an optional .env file in the working
// directory. Variables already set win over .env.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/thyrd?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		DirectoryBase:  env("DIRECTORY_BASE_URL", ""),
		DirectoryKind:  env("DIRECTORY_BACKEND", ""),
		DirectoryKey:   env("DIRECTORY_KEY", ""),
		DirectoryRPS:   atoi("DIRECTORY_RPS", 5),
		AccountsSource: strings.ToLower(env("ACCOUNTS_SOURCE", "local")),
		Workers:        atoi("SYNC_WORKERS", 8),
		PageSize:       atoi("PAGE_SIZE", 5),
		MaxPageSize:    atoi("MAX_PAGE_SIZE", 50),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		SessionTTL:     time.Duration(atoi("SESSION_TTL_SECONDS", 7*24*3600)) * time.Second,
		CatalogTTL:     time.Duration(atoi("CATALOG_TTL_SECONDS", 30)) * time.Second,
		CORSOrigins:    splitList(env("CORS_ORIGINS", "*")),
		NATSURL:        env("NATS_URL", ""),
		TaxonomyFile:   env("TAXONOMY_FILE", ""),
	}
	if c.PageSize < 1 {
		c.PageSize = 5
	}
	if c.MaxPageSize < c.PageSize {
		c.MaxPageSize = c.PageSize
	}
	if c.AccountsSource == "remote" && c.DirectoryBase == "" {
		log.Warn().Msg("ACCOUNTS_SOURCE=remote but DIRECTORY_BASE_URL is empty; using local accounts")
		c.AccountsSource = "local"
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
