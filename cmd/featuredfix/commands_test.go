package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/featuredfix"
	"github.com/eringen/featuredfix/blocks"
	"github.com/eringen/featuredfix/migration"
)

// setupDB seeds a temp database with two migratable posts and isolates the
// process from any .env file or ambient configuration.
func setupDB(t *testing.T) string {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("FEATUREDFIX_LOG_LEVEL", "error")
	t.Setenv("FEATUREDFIX_PAGE_SIZE", "")
	t.Setenv("FEATUREDFIX_PAGE_DELAY", "0s")

	path := filepath.Join(t.TempDir(), "site.db")
	s, err := featuredfix.NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	for _, id := range []int64{1, 2} {
		require.NoError(t, s.SaveDocument(context.Background(), migration.Document{
			ID:              id,
			Title:           "Post",
			Status:          migration.StatusPublished,
			Type:            "post",
			FeaturedImageID: 5,
			Structured:      true,
			Body:            blocks.Tree{blocks.Image(5)},
		}))
	}
	return path
}

func execute(ctx context.Context, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root := newRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}

func openStore(t *testing.T, path string) *featuredfix.Store {
	t.Helper()
	s, err := featuredfix.NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunCmd_DryRunLeavesStoreUntouched(t *testing.T) {
	db := setupDB(t)

	out, err := execute(t.Context(), "run", "--db", db, "--dry-run")

	require.NoError(t, err)
	assert.Contains(t, out, "✓ Would migrate post ID 1: Post")
	assert.Contains(t, out, "✓ Would migrate post ID 2: Post")
	assert.Contains(t, out, "Progress: 100% (2/2)")
	assert.Contains(t, out, "Migration complete.")

	s := openStore(t, db)
	doc, err := s.GetDocument(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, blocks.Tree{blocks.Image(5)}, doc.Body)
	st, err := s.LoadState(context.Background())
	require.NoError(t, err)
	assert.False(t, st.MigrationComplete)
}

func TestRunCmd_RejectsPageSizeOutOfRange(t *testing.T) {
	db := setupDB(t)

	for _, size := range []string{"0", "101"} {
		_, err := execute(t.Context(), "run", "--db", db, "--page-size", size)
		assert.ErrorContains(t, err, "page size must be between 1 and 100", "page size %s", size)
	}

	s := openStore(t, db)
	doc, err := s.GetDocument(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, blocks.Tree{blocks.Image(5)}, doc.Body)
}

func TestRunCmd_UsesConfigPageSize(t *testing.T) {
	db := setupDB(t)
	t.Setenv("FEATUREDFIX_PAGE_SIZE", "1")

	out, err := execute(t.Context(), "run", "--db", db, "-q")

	require.NoError(t, err)
	assert.Contains(t, out, "Migrated 2, skipped 0, processed 2 in 3 pages.")
	assert.NotContains(t, out, "✓ Migrated post ID")

	st, err := openStore(t, db).LoadState(context.Background())
	require.NoError(t, err)
	assert.True(t, st.MigrationComplete)
}

func TestRunCmd_ReportsResumeOffset(t *testing.T) {
	db := setupDB(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := execute(ctx, "run", "--db", db, "--offset", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped at offset 1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVersionCmd(t *testing.T) {
	original := version
	version = "test-1.0.0"
	defer func() { version = original }()

	out, err := execute(t.Context(), "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "featuredfix test-1.0.0")
}
