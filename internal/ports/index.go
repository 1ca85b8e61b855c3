package ports

import "graphvault/internal/domain"

// Catalog is a rebuildable query cache over a GraphStore.
// It is never authoritative; SyncFull replaces its whole content.
type Catalog interface {
	// Lifecycle
	Open(dataPath string) error
	Close() error
	NeedsFullRebuild(revision uint64) bool

	// Sync operations
	SyncFull(store GraphStore) (*domain.SyncStats, error)

	// Node queries
	GetNode(id int64) (*domain.CatalogNode, error)
	SearchNodes(query string) ([]domain.CatalogNode, error)
	TopNodes(limit int) ([]domain.CatalogNode, error)

	// Edge queries
	EdgesTo(id int64) ([]domain.Edge, error)
}
