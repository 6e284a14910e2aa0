package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"podcaster/internal/logging"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	sqliteTimeLayout        = time.RFC3339Nano
)

var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteStore persists documents in a single SQLite file.
type SQLiteStore struct {
	db     *sqlx.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations. Use ":memory:" only in single-connection tests.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("docstore: sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		path:   path,
		logger: logging.NewComponentLogger(logger, "docstore"),
	}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// sqliteDSN carries the connection pragmas in the DSN so every pooled
// connection gets them. Immediate transactions take the write lock at BEGIN,
// where busy_timeout applies, instead of failing on a later lock upgrade.
func sqliteDSN(path string) string {
	params := url.Values{}
	for _, pragma := range sqlitePragmas {
		params.Add("_pragma", pragma)
	}
	params.Set("_txlock", "immediate")
	if path == ":memory:" {
		return "file::memory:?" + params.Encode()
	}
	return "file:" + path + "?" + params.Encode()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ensureContext(ctx))
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	migrations, err := loadMigrations("sqlite")
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := tx.GetContext(ctx, &count, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
		s.logger.Debug("applied migration", logging.String("version", m.version))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// CreateDocument inserts the document, its blocks, and all tags in one transaction.
func (s *SQLiteStore) CreateDocument(ctx context.Context, workspace string, doc NewDocument) (*Document, error) {
	ctx = ensureContext(ctx)
	if err := validateNewDocument(doc); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	created := time.Now().UTC()
	stamp := created.Format(sqliteTimeLayout)

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (id, workspace, created_at) VALUES (?, ?, ?)",
			id, workspace, stamp,
		); err != nil {
			return err
		}
		for _, tag := range doc.Tags {
			if err := insertSQLiteTag(ctx, tx, id, nil, tag, stamp); err != nil {
				return err
			}
		}
		for pos, block := range doc.Blocks {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO blocks (document_id, position, text) VALUES (?, ?, ?)",
				id, pos, block.Text,
			); err != nil {
				return err
			}
			for _, tag := range block.Tags {
				p := pos
				if err := insertSQLiteTag(ctx, tx, id, &p, tag, stamp); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return s.GetDocument(ctx, workspace, id)
}

func insertSQLiteTag(ctx context.Context, tx *sqlx.Tx, documentID string, pos *int, tag NewTag, stamp string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO tags (id, document_id, block_position, kind, name, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), documentID, nullablePosition(pos), tag.Kind, tag.Name, tag.Value, stamp,
	)
	return err
}

// GetDocument loads one document with its blocks and tags.
func (s *SQLiteStore) GetDocument(ctx context.Context, workspace, id string) (*Document, error) {
	ctx = ensureContext(ctx)
	var row documentRow
	err := s.db.GetContext(ctx, &row,
		"SELECT seq, id, workspace, created_at FROM documents WHERE workspace = ? AND id = ?",
		workspace, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	docs, err := s.loadDocuments(ctx, []documentRow{row})
	if err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// QueryByTag returns each matching document once, in creation order.
func (s *SQLiteStore) QueryByTag(ctx context.Context, workspace string, filter TagFilter) ([]Document, error) {
	ctx = ensureContext(ctx)
	if err := filter.validate(); err != nil {
		return nil, err
	}
	query := `SELECT d.seq, d.id, d.workspace, d.created_at FROM documents d
		WHERE d.workspace = ? AND EXISTS (
			SELECT 1 FROM tags t
			WHERE t.document_id = d.id AND t.block_position IS NULL AND t.kind = ?`
	args := []any{workspace, filter.Kind}
	if filter.Name != "" {
		query += " AND t.name = ?"
		args = append(args, filter.Name)
	}
	query += ") ORDER BY d.seq"

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query documents by tag: %w", err)
	}
	if len(rows) == 0 {
		return []Document{}, nil
	}
	return s.loadDocuments(ctx, rows)
}

func (s *SQLiteStore) loadDocuments(ctx context.Context, rows []documentRow) ([]Document, error) {
	ids := make([]string, len(rows))
	for i := range rows {
		created, err := time.Parse(sqliteTimeLayout, rows[i].Created)
		if err != nil {
			return nil, fmt.Errorf("parse document timestamp: %w", err)
		}
		rows[i].CreatedAt = created
		ids[i] = rows[i].ID
	}

	blockQuery, args, err := sqlx.In("SELECT document_id, position, text FROM blocks WHERE document_id IN (?) ORDER BY document_id, position", ids)
	if err != nil {
		return nil, fmt.Errorf("build block query: %w", err)
	}
	var blocks []blockRow
	if err := s.db.SelectContext(ctx, &blocks, s.db.Rebind(blockQuery), args...); err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}

	tagQuery, args, err := sqlx.In(`SELECT seq, id, document_id, block_position, kind, name, value, created_at
		FROM tags WHERE document_id IN (?) ORDER BY seq`, ids)
	if err != nil {
		return nil, fmt.Errorf("build tag query: %w", err)
	}
	var tags []tagRow
	if err := s.db.SelectContext(ctx, &tags, s.db.Rebind(tagQuery), args...); err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	for i := range tags {
		created, err := time.Parse(sqliteTimeLayout, tags[i].Created)
		if err != nil {
			return nil, fmt.Errorf("parse tag timestamp: %w", err)
		}
		tags[i].CreatedAt = created
	}
	return assemble(rows, blocks, tags), nil
}

// AddTag appends a document-level tag. Tags are never updated or removed.
func (s *SQLiteStore) AddTag(ctx context.Context, workspace, documentID string, tag NewTag) (*Tag, error) {
	ctx = ensureContext(ctx)
	if err := (TagFilter{Kind: tag.Kind}).validate(); err != nil {
		return nil, err
	}
	var exists int
	if err := s.db.GetContext(ctx, &exists,
		"SELECT COUNT(1) FROM documents WHERE workspace = ? AND id = ?", workspace, documentID,
	); err != nil {
		return nil, fmt.Errorf("add tag: %w", err)
	}
	if exists == 0 {
		return nil, ErrDocumentNotFound
	}

	created := time.Now().UTC()
	out := &Tag{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Kind:       tag.Kind,
		Name:       tag.Name,
		Value:      tag.Value,
		CreatedAt:  created,
	}
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tags (id, document_id, block_position, kind, name, value, created_at)
			 VALUES (?, ?, NULL, ?, ?, ?, ?)`,
			out.ID, documentID, tag.Kind, tag.Name, tag.Value, created.Format(sqliteTimeLayout),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add tag: %w", err)
	}
	return out, nil
}

// KVGet returns the stored value, or false when the key is absent.
func (s *SQLiteStore) KVGet(ctx context.Context, workspace, storeID, key string) ([]byte, bool, error) {
	ctx = ensureContext(ctx)
	var value []byte
	err := s.db.GetContext(ctx, &value,
		"SELECT value FROM kv_entries WHERE workspace = ? AND store_id = ? AND key = ?",
		workspace, storeID, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get: %w", err)
	}
	return value, true, nil
}

// KVSet creates or overwrites the entry.
func (s *SQLiteStore) KVSet(ctx context.Context, workspace, storeID, key string, value []byte) error {
	ctx = ensureContext(ctx)
	stamp := time.Now().UTC().Format(sqliteTimeLayout)
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO kv_entries (workspace, store_id, key, value, updated_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (workspace, store_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			workspace, storeID, key, value, stamp,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

// KVStats counts entries per namespace in the workspace.
func (s *SQLiteStore) KVStats(ctx context.Context, workspace string) ([]NamespaceStats, error) {
	ctx = ensureContext(ctx)
	stats := []NamespaceStats{}
	if err := s.db.SelectContext(ctx, &stats,
		"SELECT store_id, COUNT(1) AS entries FROM kv_entries WHERE workspace = ? GROUP BY store_id ORDER BY store_id",
		workspace,
	); err != nil {
		return nil, fmt.Errorf("kv stats: %w", err)
	}
	return stats, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
