package featuredfix

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/eringen/featuredfix/blocks"
	"github.com/eringen/featuredfix/migration"
)

// Body formats stored in documents.format.
const (
	formatBlocks  = "blocks"
	formatClassic = "classic"
)

// Settings keys for the notice flags.
const (
	settingNoticeVisible     = "featured_image_notice_visible"
	settingMigrationComplete = "featured_image_migration_complete"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = migration.ErrNotFound

var (
	_ migration.DocumentStore = (*Store)(nil)
	_ migration.FlagStore     = (*Store)(nil)
)

// Store wraps a SQLite database holding documents and the migration flags.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the admin UI read while a page is being written; writers wait
	// on busy_timeout instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    status TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'post',
    featured_image_id INTEGER NOT NULL DEFAULT 0,
    format TEXT NOT NULL DEFAULT 'blocks',
    body TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_documents_eligible ON documents(status, type, featured_image_id);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`)
	return err
}

// filterClause renders f as a WHERE clause with its arguments.
func filterClause(f migration.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.HasFeaturedImage {
		conds = append(conds, "featured_image_id <> 0")
	}
	if len(f.Types) > 0 {
		conds = append(conds, "type IN (?"+strings.Repeat(",?", len(f.Types)-1)+")")
		for _, t := range f.Types {
			args = append(args, t)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CountDocuments returns the number of documents matching f.
func (s *Store) CountDocuments(ctx context.Context, f migration.Filter) (int, error) {
	where, args := filterClause(f)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FetchDocuments returns up to limit documents matching f, ordered by id,
// skipping the first offset matches.
func (s *Store) FetchDocuments(ctx context.Context, f migration.Filter, offset, limit int) ([]migration.Document, error) {
	where, args := filterClause(f)
	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, status, type, featured_image_id, format, body FROM documents`+where+` ORDER BY id ASC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []migration.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument returns a document by id regardless of status.
func (s *Store) GetDocument(ctx context.Context, id int64) (migration.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, status, type, featured_image_id, format, body FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return migration.Document{}, ErrNotFound
	}
	return doc, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one row. A blocks body that fails to decode is treated
// as unstructured content rather than an error.
func scanDocument(r scanner) (migration.Document, error) {
	var doc migration.Document
	var status, format, body string
	if err := r.Scan(&doc.ID, &doc.Title, &status, &doc.Type, &doc.FeaturedImageID, &format, &body); err != nil {
		return migration.Document{}, err
	}
	doc.Status = migration.Status(status)
	if format == formatBlocks {
		var tree blocks.Tree
		if err := json.Unmarshal([]byte(body), &tree); err == nil {
			doc.Structured = true
			doc.Body = tree
			return doc, nil
		}
	}
	doc.Raw = body
	return doc, nil
}

// WriteBody replaces the structured body of document id.
func (s *Store) WriteBody(ctx context.Context, id int64, body blocks.Tree) error {
	data, err := encodeBody(body)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET body = ?, format = ? WHERE id = ?`, data, formatBlocks, id)
	if err != nil {
		return fmt.Errorf("update document %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update document %d: %w", id, ErrNotFound)
	}
	return nil
}

// SaveDocument upserts a document. Unstructured documents keep Raw as their
// body.
func (s *Store) SaveDocument(ctx context.Context, doc migration.Document) error {
	format, body := formatClassic, doc.Raw
	if doc.Structured {
		data, err := encodeBody(doc.Body)
		if err != nil {
			return err
		}
		format, body = formatBlocks, data
	}
	docType := doc.Type
	if docType == "" {
		docType = "post"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, title, status, type, featured_image_id, format, body) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, string(doc.Status), docType, doc.FeaturedImageID, format, body)
	return err
}

func encodeBody(body blocks.Tree) (string, error) {
	if body == nil {
		body = blocks.Tree{}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	return string(data), nil
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// LoadState reads the notice flags. Missing flags read as false.
func (s *Store) LoadState(ctx context.Context) (migration.State, error) {
	visible, err := s.GetSetting(ctx, settingNoticeVisible)
	if err != nil {
		return migration.State{}, err
	}
	complete, err := s.GetSetting(ctx, settingMigrationComplete)
	if err != nil {
		return migration.State{}, err
	}
	return migration.State{
		NoticeVisible:     visible == "1",
		MigrationComplete: complete == "1",
	}, nil
}

// SaveState writes both notice flags in one transaction.
func (s *Store) SaveState(ctx context.Context, st migration.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for key, val := range map[string]bool{
		settingNoticeVisible:     st.NoticeVisible,
		settingMigrationComplete: st.MigrationComplete,
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, flagValue(val)); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func flagValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Install turns the operator notice on, unless the migration already ran.
func (s *Store) Install(ctx context.Context) error {
	st, err := s.LoadState(ctx)
	if err != nil {
		return err
	}
	st.NoticeVisible = !st.MigrationComplete
	return s.SaveState(ctx, st)
}

// Uninstall removes both notice flags.
func (s *Store) Uninstall(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key IN (?, ?)`,
		settingNoticeVisible, settingMigrationComplete)
	return err
}
