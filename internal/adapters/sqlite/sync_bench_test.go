package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"graphvault/internal/adapters/filesystem"
	"graphvault/internal/domain"
)

// benchStore opens the store named by GRAPHVAULT_DATA, or builds a ring of
// generated nodes when it is unset
func benchStore(b *testing.B) (*filesystem.Store, string) {
	b.Helper()
	dataPath := os.Getenv("GRAPHVAULT_DATA")
	generate := dataPath == ""
	if generate {
		dataPath = b.TempDir()
	}

	store, err := filesystem.Open(dataPath, filesystem.Options{})
	if err != nil {
		b.Fatalf("failed to open store: %v", err)
	}
	if !generate {
		return store, dataPath
	}

	const n = 200
	var batch domain.Batch
	for i := int64(0); i < n; i++ {
		batch.Nodes = append(batch.Nodes, domain.NewNode(i, fmt.Sprintf("node %d", i)))
		batch.Edges = append(batch.Edges,
			domain.NewEdge(i, (i+1)%n, 1, "next"),
			domain.NewEdge(i, (i+7)%n, 0.5, "skip"),
		)
	}
	if err := store.SaveBatch(batch); err != nil {
		b.Fatalf("failed to build store: %v", err)
	}
	return store, dataPath
}

// BenchmarkSyncFull benchmarks just the sync operation (DB already open)
func BenchmarkSyncFull(b *testing.B) {
	b.Setenv("XDG_DATA_HOME", b.TempDir())
	store, dataPath := benchStore(b)

	c := NewCatalog(nil)
	if err := c.Open(dataPath); err != nil {
		b.Fatalf("failed to open catalog: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			b.Fatalf("failed to close catalog: %v", err)
		}
	}()

	b.ResetTimer()
	for b.Loop() {
		if _, err := c.SyncFull(store); err != nil {
			b.Fatalf("sync failed: %v", err)
		}
	}
}

// BenchmarkFullStartup benchmarks cold startup: open + full sync + close (no existing DB)
func BenchmarkFullStartup(b *testing.B) {
	tmpDir := b.TempDir()
	b.Setenv("XDG_DATA_HOME", tmpDir)
	store, dataPath := benchStore(b)

	b.ResetTimer()
	for b.Loop() {
		c := NewCatalog(nil)
		if err := c.Open(dataPath); err != nil {
			b.Fatalf("failed to open catalog: %v", err)
		}
		if _, err := c.SyncFull(store); err != nil {
			b.Fatalf("sync failed: %v", err)
		}
		if err := c.Close(); err != nil {
			b.Fatalf("failed to close catalog: %v", err)
		}

		// Clean up for next iteration
		if err := os.RemoveAll(filepath.Join(tmpDir, "graphvault")); err != nil {
			b.Fatalf("failed to clean up: %v", err)
		}
	}
}
