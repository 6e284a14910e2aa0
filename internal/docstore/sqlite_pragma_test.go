package docstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"podcaster/internal/logging"
)

func TestSQLitePragmasApplyToEveryConnection(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "podcaster.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	// Hold several connections at once so the pool must open new ones.
	for i := range 3 {
		conn, err := store.db.Connx(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		defer conn.Close()

		var timeout int
		if err := conn.GetContext(ctx, &timeout, "PRAGMA busy_timeout"); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if timeout != 5000 {
			t.Fatalf("conn %d busy_timeout = %d", i, timeout)
		}
		var mode string
		if err := conn.GetContext(ctx, &mode, "PRAGMA journal_mode"); err != nil {
			t.Fatalf("conn %d journal_mode: %v", i, err)
		}
		if mode != "wal" {
			t.Fatalf("conn %d journal_mode = %q", i, mode)
		}
	}
}

func TestSQLiteConcurrentWritersDoNotFailBusy(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "podcaster.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.CreateDocument(ctx, "ws", NewDocument{
				Tags:   []NewTag{{Kind: "feed", Name: "race"}},
				Blocks: []NewBlock{{Text: "body"}},
			})
		}()
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", i, err)
		}
	}
	docs, err := store.QueryByTag(ctx, "ws", TagFilter{Kind: "feed", Name: "race"})
	if err != nil {
		t.Fatalf("QueryByTag: %v", err)
	}
	if len(docs) != writers {
		t.Fatalf("got %d documents, want %d", len(docs), writers)
	}
}
