package featuredfix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	var cfg Config
	cfg.setDefaults()

	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "data/site.db", cfg.DatabasePath)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, []string{"post"}, cfg.PostTypes)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.CountCacheTTL)
}

func TestSetDefaultsClampsPageSize(t *testing.T) {
	cfg := Config{PageSize: 500, PageDelay: -time.Second}
	cfg.setDefaults()

	assert.Equal(t, MaxPageSize, cfg.PageSize)
	assert.Zero(t, cfg.PageDelay)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	t.Setenv("FEATUREDFIX_ADDR", ":8080")
	t.Setenv("FEATUREDFIX_DB", "/tmp/x.db")
	t.Setenv("FEATUREDFIX_PAGE_SIZE", "50")
	t.Setenv("FEATUREDFIX_PAGE_DELAY", "2s")
	t.Setenv("FEATUREDFIX_POST_TYPES", "post, page ,")
	t.Setenv("FEATUREDFIX_WORKERS", "4")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "/tmp/x.db", cfg.DatabasePath)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 2*time.Second, cfg.PageDelay)
	assert.Equal(t, []string{"post", "page"}, cfg.PostTypes)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.CookieSecure)
}

func TestLoadConfigDefaultDelay(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FEATUREDFIX_PAGE_DELAY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.PageDelay)
}

func TestLoadConfigRejectsBadNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FEATUREDFIX_PAGE_SIZE", "twenty")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "FEATUREDFIX_PAGE_SIZE")
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{"a", "b"}, SplitList(" a,,b "))
}
