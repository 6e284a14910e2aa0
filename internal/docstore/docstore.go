package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podcaster/internal/config"
	"podcaster/internal/services"
)

// ErrDocumentNotFound is returned when a document ID does not exist in the
// requested workspace. It matches services.ErrNotFound.
var ErrDocumentNotFound = fmt.Errorf("document %w", services.ErrNotFound)

// Tag annotates a document, or one of its blocks when BlockPosition is set.
type Tag struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"documentId"`
	BlockPosition *int      `json:"blockPosition,omitempty"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name,omitempty"`
	Value         string    `json:"value,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Block is one ordered text segment of a document.
type Block struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
	Tags     []Tag  `json:"tags,omitempty"`
}

// Document is the unit of storage. Tags holds document-level tags in the order
// they were added.
type Document struct {
	ID        string    `json:"id"`
	Workspace string    `json:"workspace"`
	CreatedAt time.Time `json:"createdAt"`
	Blocks    []Block   `json:"blocks"`
	Tags      []Tag     `json:"tags"`
}

// TagsOfKind returns the document-level tags of the given kind, oldest first.
func (d *Document) TagsOfKind(kind string) []Tag {
	var out []Tag
	for _, tag := range d.Tags {
		if tag.Kind == kind {
			out = append(out, tag)
		}
	}
	return out
}

// NewTag describes a tag to attach.
type NewTag struct {
	Kind  string
	Name  string
	Value string
}

// NewBlock describes a block to create along with its block-level tags.
type NewBlock struct {
	Text string
	Tags []NewTag
}

// NewDocument describes a document to create.
type NewDocument struct {
	Blocks []NewBlock
	Tags   []NewTag
}

// TagFilter selects documents carrying a document-level tag with Kind and,
// when Name is non-empty, exactly that Name.
type TagFilter struct {
	Kind string
	Name string
}

func (f TagFilter) validate() error {
	if strings.TrimSpace(f.Kind) == "" {
		return services.Wrap(services.ErrValidation, "docstore", "query", "tag kind is required", nil)
	}
	return nil
}

// NamespaceStats summarizes one key-value namespace.
type NamespaceStats struct {
	StoreID string `json:"storeId" db:"store_id"`
	Entries int64  `json:"entries" db:"entries"`
}

// Store is the persistence contract shared by the SQLite and Postgres backends.
// Every method is scoped to a workspace name.
type Store interface {
	CreateDocument(ctx context.Context, workspace string, doc NewDocument) (*Document, error)
	GetDocument(ctx context.Context, workspace, id string) (*Document, error)
	QueryByTag(ctx context.Context, workspace string, filter TagFilter) ([]Document, error)
	AddTag(ctx context.Context, workspace, documentID string, tag NewTag) (*Tag, error)

	KVGet(ctx context.Context, workspace, storeID, key string) ([]byte, bool, error)
	KVSet(ctx context.Context, workspace, storeID, key string, value []byte) error
	KVStats(ctx context.Context, workspace string) ([]NamespaceStats, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend selected by cfg.Store and applies migrations.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("docstore: config is required")
	}
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Store.DSN, logger)
	case config.DriverSQLite, "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, cfg.Store.DSN, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "docstore", "open", fmt.Sprintf("unsupported driver %q", cfg.Store.Driver), nil)
	}
}

func validateNewDocument(doc NewDocument) error {
	for _, tag := range doc.Tags {
		if strings.TrimSpace(tag.Kind) == "" {
			return services.Wrap(services.ErrValidation, "docstore", "create document", "tag kind is required", nil)
		}
	}
	for _, block := range doc.Blocks {
		for _, tag := range block.Tags {
			if strings.TrimSpace(tag.Kind) == "" {
				return services.Wrap(services.ErrValidation, "docstore", "create document", "block tag kind is required", nil)
			}
		}
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
