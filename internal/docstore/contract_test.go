package docstore_test

import (
	"context"
	"errors"
	"testing"

	"podcaster/internal/docstore"
	"podcaster/internal/services"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store docstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		doc, err := store.CreateDocument(ctx, "ws-a", docstore.NewDocument{
			Tags: []docstore.NewTag{{Kind: "episode", Name: "data", Value: `{"title":"One"}`}},
			Blocks: []docstore.NewBlock{
				{Text: "One", Tags: []docstore.NewTag{{Kind: "doc", Name: "title"}}},
				{Text: "By Ann", Tags: []docstore.NewTag{{Kind: "doc", Name: "h2"}}},
				{Text: "Body"},
			},
		})
		if err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
		if doc.ID == "" || doc.Workspace != "ws-a" {
			t.Fatalf("unexpected document %+v", doc)
		}

		got, err := store.GetDocument(ctx, "ws-a", doc.ID)
		if err != nil {
			t.Fatalf("GetDocument: %v", err)
		}
		if len(got.Blocks) != 3 || got.Blocks[0].Text != "One" || got.Blocks[2].Text != "Body" {
			t.Fatalf("unexpected blocks %+v", got.Blocks)
		}
		if len(got.Blocks[1].Tags) != 1 || got.Blocks[1].Tags[0].Name != "h2" {
			t.Fatalf("expected h2 block tag, got %+v", got.Blocks[1].Tags)
		}
		if len(got.Tags) != 1 || got.Tags[0].Value != `{"title":"One"}` {
			t.Fatalf("unexpected document tags %+v", got.Tags)
		}
		if got.Tags[0].BlockPosition != nil {
			t.Fatal("document tag should not carry a block position")
		}
	})

	t.Run("workspace isolation", func(t *testing.T) {
		doc, err := store.CreateDocument(ctx, "ws-b", docstore.NewDocument{
			Tags: []docstore.NewTag{{Kind: "feed"}},
		})
		if err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
		if _, err := store.GetDocument(ctx, "ws-other", doc.ID); !errors.Is(err, docstore.ErrDocumentNotFound) {
			t.Fatalf("expected not found across workspaces, got %v", err)
		}
		if !errors.Is(docstore.ErrDocumentNotFound, services.ErrNotFound) {
			t.Fatal("expected ErrDocumentNotFound to classify as not found")
		}
		docs, err := store.QueryByTag(ctx, "ws-other", docstore.TagFilter{Kind: "feed"})
		if err != nil {
			t.Fatalf("QueryByTag: %v", err)
		}
		if len(docs) != 0 {
			t.Fatalf("expected no documents in other workspace, got %d", len(docs))
		}
	})

	t.Run("query by tag returns each document once in creation order", func(t *testing.T) {
		first, err := store.CreateDocument(ctx, "ws-c", docstore.NewDocument{
			Tags: []docstore.NewTag{{Kind: "episode", Name: "data"}},
		})
		if err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
		second, err := store.CreateDocument(ctx, "ws-c", docstore.NewDocument{
			Tags: []docstore.NewTag{{Kind: "episode", Name: "data"}},
		})
		if err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
		for i := 0; i < 2; i++ {
			if _, err := store.AddTag(ctx, "ws-c", second.ID, docstore.NewTag{Kind: "episode", Name: "has_audio"}); err != nil {
				t.Fatalf("AddTag: %v", err)
			}
		}

		all, err := store.QueryByTag(ctx, "ws-c", docstore.TagFilter{Kind: "episode", Name: "data"})
		if err != nil {
			t.Fatalf("QueryByTag: %v", err)
		}
		if len(all) != 2 || all[0].ID != first.ID || all[1].ID != second.ID {
			t.Fatalf("unexpected order %+v", all)
		}

		audio, err := store.QueryByTag(ctx, "ws-c", docstore.TagFilter{Kind: "episode", Name: "has_audio"})
		if err != nil {
			t.Fatalf("QueryByTag: %v", err)
		}
		if len(audio) != 1 || audio[0].ID != second.ID {
			t.Fatalf("expected only the marked document once, got %+v", audio)
		}
		if n := len(audio[0].TagsOfKind("episode")); n != 3 {
			t.Fatalf("expected data tag plus two markers, got %d", n)
		}

		byKind, err := store.QueryByTag(ctx, "ws-c", docstore.TagFilter{Kind: "episode"})
		if err != nil {
			t.Fatalf("QueryByTag: %v", err)
		}
		if len(byKind) != 2 {
			t.Fatalf("expected kind-only filter to match both, got %d", len(byKind))
		}
	})

	t.Run("query requires kind", func(t *testing.T) {
		if _, err := store.QueryByTag(ctx, "ws-c", docstore.TagFilter{}); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("add tag to missing document", func(t *testing.T) {
		if _, err := store.AddTag(ctx, "ws-c", "missing", docstore.NewTag{Kind: "feed"}); !errors.Is(err, docstore.ErrDocumentNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("key value", func(t *testing.T) {
		if _, ok, err := store.KVGet(ctx, "ws-d", "ToolCache-premise", "k"); err != nil || ok {
			t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
		}
		if err := store.KVSet(ctx, "ws-d", "ToolCache-premise", "k", []byte(`{"value":1}`)); err != nil {
			t.Fatalf("KVSet: %v", err)
		}
		if err := store.KVSet(ctx, "ws-d", "ToolCache-premise", "k", []byte(`{"value":2}`)); err != nil {
			t.Fatalf("KVSet overwrite: %v", err)
		}
		value, ok, err := store.KVGet(ctx, "ws-d", "ToolCache-premise", "k")
		if err != nil || !ok || string(value) != `{"value":2}` {
			t.Fatalf("unexpected value %q ok=%v err=%v", value, ok, err)
		}
		if _, ok, _ := store.KVGet(ctx, "ws-d", "ToolCache-script", "k"); ok {
			t.Fatal("namespaces must not collide")
		}
		if _, ok, _ := store.KVGet(ctx, "ws-e", "ToolCache-premise", "k"); ok {
			t.Fatal("workspaces must not collide")
		}
		stats, err := store.KVStats(ctx, "ws-d")
		if err != nil {
			t.Fatalf("KVStats: %v", err)
		}
		if len(stats) != 1 || stats[0].StoreID != "ToolCache-premise" || stats[0].Entries != 1 {
			t.Fatalf("unexpected stats %+v", stats)
		}
	})

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
