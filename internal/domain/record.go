package domain

import (
	"fmt"
	"math"
	"strings"
)

// NodeType represents the role a node plays in the reasoning graph
type NodeType int

const (
	NodeTypeStandard NodeType = iota
	NodeTypeSIMO              // single input, multiple outputs
	NodeTypeMISO              // multiple inputs, single output
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeStandard:
		return "Standard"
	case NodeTypeSIMO:
		return "SIMO"
	case NodeTypeMISO:
		return "MISO"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// ParseNodeType parses the persisted name of a node type (case-insensitive).
// An empty string is Standard.
func ParseNodeType(s string) (NodeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return NodeTypeStandard, nil
	case "simo":
		return NodeTypeSIMO, nil
	case "miso":
		return NodeTypeMISO, nil
	default:
		return NodeTypeStandard, fmt.Errorf("unknown node type: %q", s)
	}
}

// Node is the latest in-memory representation of a node record
type Node struct {
	ID         int64
	Version    int
	Type       NodeType
	Content    string
	Properties Properties
}

// NewNode creates a Standard node at the latest schema version
func NewNode(id int64, content string) Node {
	return Node{
		ID:      id,
		Version: LatestNodeVersion,
		Type:    NodeTypeStandard,
		Content: content,
	}
}

// Validate checks the fields a writer needs before persisting
func (n Node) Validate() error {
	if err := ValidateID(n.ID); err != nil {
		return err
	}
	if _, err := ParseNodeType(n.Type.String()); err != nil {
		return &ValidationError{Field: "type", Message: err.Error()}
	}
	return n.Properties.Validate()
}

// Equal compares every field of two nodes
func (n Node) Equal(o Node) bool {
	return n.ID == o.ID &&
		n.Version == o.Version &&
		n.Type == o.Type &&
		n.Content == o.Content &&
		n.Properties.Equal(o.Properties)
}

// Edge is the latest in-memory representation of an edge record.
// Its logical identity is the ordered pair (From, To).
type Edge struct {
	From       int64
	To         int64
	Version    int
	Weight     float64
	Content    string
	Properties Properties
}

// NewEdge creates an edge at the latest schema version
func NewEdge(from, to int64, weight float64, content string) Edge {
	return Edge{
		From:    from,
		To:      to,
		Version: LatestEdgeVersion,
		Weight:  weight,
		Content: content,
	}
}

// Validate checks the fields a writer needs before persisting
func (e Edge) Validate() error {
	if err := ValidateID(e.From); err != nil {
		return err
	}
	if err := ValidateID(e.To); err != nil {
		return err
	}
	if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
		return &ValidationError{Field: "weight", Message: "weight must be a finite number"}
	}
	return e.Properties.Validate()
}

// Equal compares every field of two edges
func (e Edge) Equal(o Edge) bool {
	return e.From == o.From &&
		e.To == o.To &&
		e.Version == o.Version &&
		e.Weight == o.Weight &&
		e.Content == o.Content &&
		e.Properties.Equal(o.Properties)
}

// Key returns the logical identity of the edge
func (e Edge) Key() EdgeKey {
	return EdgeKey{From: e.From, To: e.To}
}

// EdgeKey is the ordered endpoint pair identifying an edge
type EdgeKey struct {
	From int64
	To   int64
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("%d->%d", k.From, k.To)
}

// Batch is a caller-supplied set of records saved as one unit. Nodes are
// written before edges, so an edge may reference a node of the same batch.
type Batch struct {
	Nodes []Node
	Edges []Edge
}

// Len returns the number of records in the batch
func (b Batch) Len() int {
	return len(b.Nodes) + len(b.Edges)
}
