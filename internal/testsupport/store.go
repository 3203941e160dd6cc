package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"curator/internal/boards"
	"curator/internal/config"
	"curator/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewImage writes a small file named name under the library dir and
// registers it.
func NewImage(t testing.TB, store *library.Store, cfg *config.Config, name string) *library.Image {
	t.Helper()

	path := filepath.Join(cfg.Paths.LibraryDir, name)
	WriteFile(t, path, 64)
	img, err := store.AddImage(context.Background(), library.NewImage{Filepath: path, Size: 64})
	if err != nil {
		t.Fatalf("store.AddImage: %v", err)
	}
	return img
}

// NewBoard creates a board, optionally under parent.
func NewBoard(t testing.TB, store *library.Store, name string, parent *int64) int64 {
	t.Helper()

	id, err := store.CreateBoard(context.Background(), boards.Draft{Name: name, ParentID: parent})
	if err != nil {
		t.Fatalf("store.CreateBoard: %v", err)
	}
	return id
}
