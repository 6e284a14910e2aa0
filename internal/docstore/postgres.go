package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"podcaster/internal/logging"
)

// PostgresStore persists documents in Postgres through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres connects, pings, and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("docstore: postgres dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: parse pool DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("docstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("docstore: ping pool: %w", err)
	}

	store := &PostgresStore{pool: pool, logger: logging.NewComponentLogger(logger, "docstore")}
	if err := store.applyMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ensureContext(ctx))
}

func (s *PostgresStore) applyMigrations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("docstore: create schema_migrations: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("docstore: load applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("docstore: load applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	migrations, err := loadMigrations("postgres")
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if done[m.version] {
			continue
		}
		s.logger.Info("running migration", logging.String("version", m.version))
		if _, err := s.pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("docstore: execute migration %s: %w", m.version, err)
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, m.version,
		); err != nil {
			return fmt.Errorf("docstore: record migration %s: %w", m.version, err)
		}
	}
	return nil
}

// CreateDocument inserts the document, its blocks, and all tags in one transaction.
func (s *PostgresStore) CreateDocument(ctx context.Context, workspace string, doc NewDocument) (*Document, error) {
	ctx = ensureContext(ctx)
	if err := validateNewDocument(doc); err != nil {
		return nil, err
	}
	id := uuid.NewString()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO documents (id, workspace) VALUES ($1, $2)`, id, workspace,
		); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, tag := range doc.Tags {
			queueTagInsert(batch, id, nil, tag)
		}
		for pos, block := range doc.Blocks {
			batch.Queue(`INSERT INTO blocks (document_id, position, text) VALUES ($1, $2, $3)`, id, pos, block.Text)
			for _, tag := range block.Tags {
				p := pos
				queueTagInsert(batch, id, &p, tag)
			}
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return s.GetDocument(ctx, workspace, id)
}

func queueTagInsert(batch *pgx.Batch, documentID string, pos *int, tag NewTag) {
	batch.Queue(
		`INSERT INTO tags (id, document_id, block_position, kind, name, value) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), documentID, nullablePosition(pos), tag.Kind, tag.Name, tag.Value,
	)
}

// GetDocument loads one document with its blocks and tags.
func (s *PostgresStore) GetDocument(ctx context.Context, workspace, id string) (*Document, error) {
	ctx = ensureContext(ctx)
	var row documentRow
	err := s.pool.QueryRow(ctx,
		`SELECT seq, id, workspace, created_at FROM documents WHERE workspace = $1 AND id = $2`,
		workspace, id,
	).Scan(&row.Seq, &row.ID, &row.Workspace, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
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
func (s *PostgresStore) QueryByTag(ctx context.Context, workspace string, filter TagFilter) ([]Document, error) {
	ctx = ensureContext(ctx)
	if err := filter.validate(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT d.seq, d.id, d.workspace, d.created_at FROM documents d
		WHERE d.workspace = $1 AND EXISTS (
			SELECT 1 FROM tags t
			WHERE t.document_id = d.id AND t.block_position IS NULL
			  AND t.kind = $2 AND ($3 = '' OR t.name = $3)
		) ORDER BY d.seq`,
		workspace, filter.Kind, filter.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("query documents by tag: %w", err)
	}
	docs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (documentRow, error) {
		var row documentRow
		err := r.Scan(&row.Seq, &row.ID, &row.Workspace, &row.CreatedAt)
		return row, err
	})
	if err != nil {
		return nil, fmt.Errorf("query documents by tag: %w", err)
	}
	if len(docs) == 0 {
		return []Document{}, nil
	}
	return s.loadDocuments(ctx, docs)
}

func (s *PostgresStore) loadDocuments(ctx context.Context, docs []documentRow) ([]Document, error) {
	ids := make([]string, len(docs))
	for i, row := range docs {
		ids[i] = row.ID
	}

	rows, err := s.pool.Query(ctx,
		`SELECT document_id, position, text FROM blocks WHERE document_id = ANY($1) ORDER BY document_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	blocks, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (blockRow, error) {
		var row blockRow
		err := r.Scan(&row.DocumentID, &row.Position, &row.Text)
		return row, err
	})
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT seq, id, document_id, block_position, kind, name, value, created_at
		FROM tags WHERE document_id = ANY($1) ORDER BY seq`, ids)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	tags, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (tagRow, error) {
		var row tagRow
		err := r.Scan(&row.Seq, &row.ID, &row.DocumentID, &row.BlockPosition, &row.Kind, &row.Name, &row.Value, &row.CreatedAt)
		return row, err
	})
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	return assemble(docs, blocks, tags), nil
}

// AddTag appends a document-level tag. Tags are never updated or removed.
func (s *PostgresStore) AddTag(ctx context.Context, workspace, documentID string, tag NewTag) (*Tag, error) {
	ctx = ensureContext(ctx)
	if err := (TagFilter{Kind: tag.Kind}).validate(); err != nil {
		return nil, err
	}
	var row tagRow
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tags (id, document_id, block_position, kind, name, value)
		SELECT $1, d.id, NULL, $3, $4, $5 FROM documents d WHERE d.workspace = $2 AND d.id = $6
		RETURNING seq, id, document_id, block_position, kind, name, value, created_at`,
		uuid.NewString(), workspace, tag.Kind, tag.Name, tag.Value, documentID,
	).Scan(&row.Seq, &row.ID, &row.DocumentID, &row.BlockPosition, &row.Kind, &row.Name, &row.Value, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("add tag: %w", err)
	}
	out := row.toTag()
	return &out, nil
}

// KVGet returns the stored value, or false when the key is absent.
func (s *PostgresStore) KVGet(ctx context.Context, workspace, storeID, key string) ([]byte, bool, error) {
	ctx = ensureContext(ctx)
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE workspace = $1 AND store_id = $2 AND key = $3`,
		workspace, storeID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get: %w", err)
	}
	return value, true, nil
}

// KVSet creates or overwrites the entry.
func (s *PostgresStore) KVSet(ctx context.Context, workspace, storeID, key string, value []byte) error {
	ctx = ensureContext(ctx)
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO kv_entries (workspace, store_id, key, value) VALUES ($1, $2, $3, $4)
		ON CONFLICT (workspace, store_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		workspace, storeID, key, value,
	); err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

// KVStats counts entries per namespace in the workspace.
func (s *PostgresStore) KVStats(ctx context.Context, workspace string) ([]NamespaceStats, error) {
	ctx = ensureContext(ctx)
	rows, err := s.pool.Query(ctx, `
		SELECT store_id, COUNT(1) FROM kv_entries WHERE workspace = $1 GROUP BY store_id ORDER BY store_id`,
		workspace,
	)
	if err != nil {
		return nil, fmt.Errorf("kv stats: %w", err)
	}
	stats, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (NamespaceStats, error) {
		var st NamespaceStats
		err := r.Scan(&st.StoreID, &st.Entries)
		return st, err
	})
	if err != nil {
		return nil, fmt.Errorf("kv stats: %w", err)
	}
	return stats, nil
}
