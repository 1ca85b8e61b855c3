package application

import "graphvault/internal/domain"

// Re-export direction and node types for use by adapters
type (
	Direction = domain.Direction
	NodeType  = domain.NodeType
)

const (
	Outgoing = domain.Outgoing
	Incoming = domain.Incoming

	NodeTypeStandard = domain.NodeTypeStandard
	NodeTypeSIMO     = domain.NodeTypeSIMO
	NodeTypeMISO     = domain.NodeTypeMISO
)

// Re-export domain types for use by adapters
type (
	Node          = domain.Node
	Edge          = domain.Edge
	EdgeKey       = domain.EdgeKey
	Batch         = domain.Batch
	Properties    = domain.Properties
	Value         = domain.Value
	Totals        = domain.Totals
	RegistryEntry = domain.RegistryEntry
	Report        = domain.Report
	Finding       = domain.Finding
	RepairStats   = domain.RepairStats
	SyncStats     = domain.SyncStats
	CatalogNode   = domain.CatalogNode
	Layout        = domain.Layout
)

// ParseID parses a decimal node ID
func ParseID(s string) (int64, error) {
	return domain.ParseID(s)
}

// FormatID renders an ID the way it appears in file names
func FormatID(id int64) string {
	return domain.FormatID(id)
}

// ParseDirection parses "outgoing"/"out" or "incoming"/"in"
func ParseDirection(s string) (Direction, error) {
	return domain.ParseDirection(s)
}

// ParseNodeType parses "standard", "simo" or "miso"
func ParseNodeType(s string) (NodeType, error) {
	t, err := domain.ParseNodeType(s)
	if err != nil {
		return t, &ValidationError{Field: "type", Message: err.Error()}
	}
	return t, nil
}
