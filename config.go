package featuredfix

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxPageSize bounds the limit accepted by the batch endpoint.
const MaxPageSize = 100

// Config holds all configuration for the migration service.
type Config struct {
	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/site.db")

	PageSize  int           // Documents per page (default 20)
	PageDelay time.Duration // Pause between pages when driving a run (default 500ms)
	PostTypes []string      // Document types to migrate (default ["post"])
	Workers   int           // Documents migrated concurrently within a page (default 1)

	LogLevel  string // debug, info, warn, error (default "info")
	LogFormat string // text or json (default "text")

	AdminPassword string // Required for serve: admin login password
	SessionSecret string // Required for serve: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	CountCacheTTL time.Duration // How long the eligible total is reused (default 1min)
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/site.db"
	}
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.PageSize > MaxPageSize {
		c.PageSize = MaxPageSize
	}
	if c.PageDelay < 0 {
		c.PageDelay = 0
	}
	if len(c.PostTypes) == 0 {
		c.PostTypes = []string{"post"}
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.CountCacheTTL == 0 {
		c.CountCacheTTL = time.Minute
	}
}

// LoadConfig reads configuration from the environment, after loading a .env
// file from the working directory if one exists.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          os.Getenv("FEATUREDFIX_ADDR"),
		DatabasePath:  os.Getenv("FEATUREDFIX_DB"),
		PostTypes:     SplitList(os.Getenv("FEATUREDFIX_POST_TYPES")),
		LogLevel:      os.Getenv("FEATUREDFIX_LOG_LEVEL"),
		LogFormat:     os.Getenv("FEATUREDFIX_LOG_FORMAT"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
	}

	var err error
	if cfg.PageSize, err = envInt("FEATUREDFIX_PAGE_SIZE"); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = envInt("FEATUREDFIX_WORKERS"); err != nil {
		return Config{}, err
	}
	if cfg.PageDelay, err = envDuration("FEATUREDFIX_PAGE_DELAY", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.CountCacheTTL, err = envDuration("FEATUREDFIX_COUNT_CACHE_TTL", 0); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		if cfg.CookieSecure, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("COOKIE_SECURE: %w", err)
		}
	}

	cfg.setDefaults()
	return cfg, nil
}

func envInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// SplitList splits a comma separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Option configures additional App behavior.
type Option func(*App)

// WithStore uses an already opened store instead of opening
// Config.DatabasePath. The App does not close a store passed this way.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
		a.ownsStore = false
	}
}

// WithLogger sets the logger used by the App and its controller.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
