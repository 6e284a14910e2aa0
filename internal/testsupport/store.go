package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"podcaster/internal/config"
	"podcaster/internal/docstore"
	"podcaster/internal/logging"
)

// MustOpenStore opens the configured docstore for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) docstore.Store {
	t.Helper()

	store, err := docstore.Open(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustWorkspace opens the store and scopes it to the configured workspace.
func MustWorkspace(t testing.TB, cfg *config.Config) *docstore.Workspace {
	t.Helper()

	ws, err := docstore.NewWorkspace(MustOpenStore(t, cfg), cfg.Workspace.Name)
	if err != nil {
		t.Fatalf("docstore.NewWorkspace: %v", err)
	}
	return ws
}

// WriteAudio writes size bytes of placeholder MP3 data (an ID3 header followed
// by filler) to path.
func WriteAudio(t testing.TB, path string, size int) []byte {
	t.Helper()

	if size < 10 {
		size = 10
	}
	data := make([]byte, size)
	copy(data, "ID3\x04\x00\x00\x00\x00\x00\x00")
	for i := 10; i < size; i++ {
		data[i] = 0x42
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return data
}
