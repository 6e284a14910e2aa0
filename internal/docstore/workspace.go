package docstore

import (
	"context"
	"errors"
	"strings"
)

// Workspace binds a Store to one workspace name so repositories and the
// generation cache cannot read across workspaces.
type Workspace struct {
	store Store
	name  string
}

// NewWorkspace returns a handle scoped to name.
func NewWorkspace(store Store, name string) (*Workspace, error) {
	if store == nil {
		return nil, errors.New("docstore: store is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("docstore: workspace name is required")
	}
	return &Workspace{store: store, name: name}, nil
}

// Name returns the workspace name.
func (w *Workspace) Name() string { return w.name }

// Store returns the underlying store.
func (w *Workspace) Store() Store { return w.store }

func (w *Workspace) CreateDocument(ctx context.Context, doc NewDocument) (*Document, error) {
	return w.store.CreateDocument(ctx, w.name, doc)
}

func (w *Workspace) GetDocument(ctx context.Context, id string) (*Document, error) {
	return w.store.GetDocument(ctx, w.name, id)
}

func (w *Workspace) QueryByTag(ctx context.Context, filter TagFilter) ([]Document, error) {
	return w.store.QueryByTag(ctx, w.name, filter)
}

func (w *Workspace) AddTag(ctx context.Context, documentID string, tag NewTag) (*Tag, error) {
	return w.store.AddTag(ctx, w.name, documentID, tag)
}

// Get reads a value from the key-value namespace storeID.
func (w *Workspace) Get(ctx context.Context, storeID, key string) ([]byte, bool, error) {
	return w.store.KVGet(ctx, w.name, storeID, key)
}

// Set writes a value into the key-value namespace storeID.
func (w *Workspace) Set(ctx context.Context, storeID, key string, value []byte) error {
	return w.store.KVSet(ctx, w.name, storeID, key, value)
}

// Stats lists key-value namespaces with entry counts.
func (w *Workspace) Stats(ctx context.Context) ([]NamespaceStats, error) {
	return w.store.KVStats(ctx, w.name)
}
