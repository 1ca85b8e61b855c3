package domain

import (
	"slices"
	"time"
)

// DirManifest enumerates what lives directly below one edge directory
type DirManifest struct {
	Subdirectories []string `json:"subdirectories"`
	EdgeFiles      []string `json:"edgeFiles"`
}

// IsEmpty reports whether the manifest lists nothing
func (m *DirManifest) IsEmpty() bool {
	return len(m.Subdirectories) == 0 && len(m.EdgeFiles) == 0
}

// RegistryEntry is the global index record of one node
type RegistryEntry struct {
	NodeID      int64  `json:"nodeId"`
	FilePath    string `json:"filePath"`
	EdgeCount   int    `json:"edgeCount"`   // outgoing edges
	InEdgeCount int    `json:"inEdgeCount"` // incoming edges
}

// Registry is the store-wide manifest kept at the store root
type Registry struct {
	RecordFormat string `json:"recordFormat"`
	// Revision grows by one with every persisted change
	Revision   uint64          `json:"revision"`
	TotalNodes int             `json:"totalNodes"`
	TotalEdges int             `json:"totalEdges"`
	Nodes      []RegistryEntry `json:"nodes"`
}

// Recount recomputes the summary counters and orders entries by node ID
func (r *Registry) Recount() {
	slices.SortFunc(r.Nodes, func(a, b RegistryEntry) int {
		switch {
		case a.NodeID < b.NodeID:
			return -1
		case a.NodeID > b.NodeID:
			return 1
		default:
			return 0
		}
	})
	r.TotalNodes = len(r.Nodes)
	r.TotalEdges = 0
	for _, n := range r.Nodes {
		r.TotalEdges += n.EdgeCount
	}
}

// Totals summarizes the registry
type Totals struct {
	Nodes int
	Edges int
}

// SyncStats holds statistics from a catalog sync
type SyncStats struct {
	NodesAdded   int
	EdgesAdded   int
	RecordErrors int
	Duration     time.Duration
}

// CatalogNode is a node row in the query catalog
type CatalogNode struct {
	ID          int64
	Type        NodeType
	Content     string
	FilePath    string
	EdgeCount   int
	InEdgeCount int
}
