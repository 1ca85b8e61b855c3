package ports

import "graphvault/internal/domain"

// GraphStore is the operation surface consumed by the command layer.
// Absence is not an error: LoadNode returns (nil, nil) and the delete
// operations return (false, nil).
type GraphStore interface {
	// Nodes
	SaveNode(node domain.Node) error
	LoadNode(id int64) (*domain.Node, error)
	DeleteNode(id int64) (bool, error)
	AllNodeIDs() ([]int64, error)

	// Edges
	SaveEdge(edge domain.Edge) error
	LoadEdges(id int64, dir domain.Direction) ([]domain.Edge, error)
	DeleteEdge(from, to int64) (bool, error)
	FindEdgesByDestination(id int64) ([]domain.Edge, error)

	// Batches
	SaveBatch(batch domain.Batch) error

	// Registry
	Init() (bool, error)
	Format() string
	Totals() domain.Totals
	Registry() []domain.RegistryEntry
	Revision() uint64

	// Maintenance
	Check() (*domain.Report, error)
	Repair(report *domain.Report) (*domain.RepairStats, error)

	// Path resolution
	Layout() domain.Layout
}
