package docstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"podcaster/internal/docstore"
	"podcaster/internal/logging"
	"podcaster/internal/testsupport"
)

func TestSQLiteStoreContract(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	exerciseStore(t, store)
}

func TestOpenSQLiteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "podcaster.db")
	ctx := context.Background()

	first, err := docstore.OpenSQLite(ctx, path, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	doc, err := first.CreateDocument(ctx, "ws", docstore.NewDocument{Tags: []docstore.NewTag{{Kind: "feed"}}})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := docstore.OpenSQLite(ctx, path, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { second.Close() })
	if second.Path() != path {
		t.Fatalf("unexpected path %q", second.Path())
	}
	if _, err := second.GetDocument(ctx, "ws", doc.ID); err != nil {
		t.Fatalf("expected document to survive reopen: %v", err)
	}
}

func TestWorkspaceScopesCalls(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := docstore.NewWorkspace(store, "  "); err == nil {
		t.Fatal("expected empty workspace name to be rejected")
	}
	alpha, err := docstore.NewWorkspace(store, "alpha")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	beta, err := docstore.NewWorkspace(store, "beta")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	if _, err := alpha.CreateDocument(ctx, docstore.NewDocument{Tags: []docstore.NewTag{{Kind: "feed"}}}); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	docs, err := beta.QueryByTag(ctx, docstore.TagFilter{Kind: "feed"})
	if err != nil {
		t.Fatalf("QueryByTag: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected beta to see no feeds, got %d", len(docs))
	}

	if err := alpha.Set(ctx, "ns", "key", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := beta.Get(ctx, "ns", "key"); err != nil || ok {
		t.Fatalf("expected beta miss, ok=%v err=%v", ok, err)
	}
}

func TestCreateDocumentRejectsEmptyTagKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	_, err := store.CreateDocument(context.Background(), "ws", docstore.NewDocument{
		Blocks: []docstore.NewBlock{{Text: "x", Tags: []docstore.NewTag{{Name: "title"}}}},
	})
	if err == nil {
		t.Fatal("expected error for block tag without kind")
	}
}
