package domain

import "fmt"

const (
	LatestNodeVersion = 2
	LatestEdgeVersion = 2
)

// VersionedNode is one of the persisted node layouts: NodeV1 or NodeV2
type VersionedNode interface {
	NodeVersion() int
	versionedNode()
}

// NodeV1 is the first node layout; it predates node types and
// extended properties
type NodeV1 struct {
	ID      int64
	Content string
}

// NodeV2 adds the node type and extended properties
type NodeV2 struct {
	ID         int64
	Type       NodeType
	Content    string
	Properties Properties
}

func (NodeV1) NodeVersion() int { return 1 }
func (NodeV2) NodeVersion() int { return 2 }
func (NodeV1) versionedNode()   {}
func (NodeV2) versionedNode()   {}

// VersionedEdge is one of the persisted edge layouts: EdgeV1 or EdgeV2
type VersionedEdge interface {
	EdgeVersion() int
	versionedEdge()
}

// EdgeV1 is the first edge layout
type EdgeV1 struct {
	From        int64
	To          int64
	Weight      float64
	EdgeContent string
}

// EdgeV2 renames the content field and adds extended properties
type EdgeV2 struct {
	From       int64
	To         int64
	Weight     float64
	Content    string
	Properties Properties
}

func (EdgeV1) EdgeVersion() int { return 1 }
func (EdgeV2) EdgeVersion() int { return 2 }
func (EdgeV1) versionedEdge()   {}
func (EdgeV2) versionedEdge()   {}

// nodeUpgrades maps a version to the step producing the next version.
// The latest version maps to a step that returns its input unchanged.
var nodeUpgrades = map[int]func(VersionedNode) (VersionedNode, error){
	1: func(v VersionedNode) (VersionedNode, error) {
		n, ok := v.(NodeV1)
		if !ok {
			return nil, fmt.Errorf("node version 1 step got %T", v)
		}
		return NodeV2{ID: n.ID, Type: NodeTypeStandard, Content: n.Content}, nil
	},
	2: func(v VersionedNode) (VersionedNode, error) { return v, nil },
}

var edgeUpgrades = map[int]func(VersionedEdge) (VersionedEdge, error){
	1: func(v VersionedEdge) (VersionedEdge, error) {
		e, ok := v.(EdgeV1)
		if !ok {
			return nil, fmt.Errorf("edge version 1 step got %T", v)
		}
		return EdgeV2{From: e.From, To: e.To, Weight: e.Weight, Content: e.EdgeContent}, nil
	},
	2: func(v VersionedEdge) (VersionedEdge, error) { return v, nil },
}

// UpgradeNode applies the upgrade chain until a version returns itself
// and converts the result into the in-memory Node
func UpgradeNode(v VersionedNode) (Node, error) {
	for range len(nodeUpgrades) + 1 {
		step, ok := nodeUpgrades[v.NodeVersion()]
		if !ok {
			return Node{}, &UnsupportedVersionError{Kind: "node", Version: v.NodeVersion()}
		}
		next, err := step(v)
		if err != nil {
			return Node{}, err
		}
		if next.NodeVersion() == v.NodeVersion() {
			latest, ok := next.(NodeV2)
			if !ok {
				return Node{}, fmt.Errorf("node upgrade chain ended at %T", next)
			}
			return Node{
				ID:         latest.ID,
				Version:    LatestNodeVersion,
				Type:       latest.Type,
				Content:    latest.Content,
				Properties: latest.Properties,
			}, nil
		}
		v = next
	}
	return Node{}, fmt.Errorf("node upgrade chain does not terminate")
}

// UpgradeEdge applies the upgrade chain until a version returns itself
// and converts the result into the in-memory Edge
func UpgradeEdge(v VersionedEdge) (Edge, error) {
	for range len(edgeUpgrades) + 1 {
		step, ok := edgeUpgrades[v.EdgeVersion()]
		if !ok {
			return Edge{}, &UnsupportedVersionError{Kind: "edge", Version: v.EdgeVersion()}
		}
		next, err := step(v)
		if err != nil {
			return Edge{}, err
		}
		if next.EdgeVersion() == v.EdgeVersion() {
			latest, ok := next.(EdgeV2)
			if !ok {
				return Edge{}, fmt.Errorf("edge upgrade chain ended at %T", next)
			}
			return Edge{
				From:       latest.From,
				To:         latest.To,
				Version:    LatestEdgeVersion,
				Weight:     latest.Weight,
				Content:    latest.Content,
				Properties: latest.Properties,
			}, nil
		}
		v = next
	}
	return Edge{}, fmt.Errorf("edge upgrade chain does not terminate")
}

// Latest returns the layout writers persist for n
func (n Node) Latest() NodeV2 {
	return NodeV2{ID: n.ID, Type: n.Type, Content: n.Content, Properties: n.Properties}
}

// Latest returns the layout writers persist for e
func (e Edge) Latest() EdgeV2 {
	return EdgeV2{From: e.From, To: e.To, Weight: e.Weight, Content: e.Content, Properties: e.Properties}
}
