package domain

import "fmt"

// FindingKind classifies an inconsistency found by a store check
type FindingKind int

const (
	FindingMissingNodeFile FindingKind = iota
	FindingUnregisteredNode
	FindingUnlistedEdgeFile
	FindingPhantomIndexEntry
	FindingMissingMirror
	FindingDivergentMirror
	FindingOrphanMirror
	FindingEdgeCountMismatch
	FindingCorruptRecord
)

func (k FindingKind) String() string {
	switch k {
	case FindingMissingNodeFile:
		return "missing-node-file"
	case FindingUnregisteredNode:
		return "unregistered-node"
	case FindingUnlistedEdgeFile:
		return "unlisted-edge-file"
	case FindingPhantomIndexEntry:
		return "phantom-index-entry"
	case FindingMissingMirror:
		return "missing-mirror"
	case FindingDivergentMirror:
		return "divergent-mirror"
	case FindingOrphanMirror:
		return "orphan-mirror"
	case FindingEdgeCountMismatch:
		return "edge-count-mismatch"
	case FindingCorruptRecord:
		return "corrupt-record"
	default:
		return "unknown"
	}
}

// Finding is one inconsistency. Fields not relevant to the kind are zero.
type Finding struct {
	Kind      FindingKind
	NodeID    int64
	Edge      EdgeKey
	Direction Direction // mirror concerned, for mirror findings
	Path      string    // file or directory concerned
	Entry     string    // manifest entry name, for index findings
	Detail    string
}

func (f Finding) String() string {
	switch f.Kind {
	case FindingMissingMirror, FindingDivergentMirror, FindingOrphanMirror:
		return fmt.Sprintf("%s: %s edge %s (%s)", f.Kind, f.Direction, f.Edge, f.Path)
	case FindingUnlistedEdgeFile, FindingPhantomIndexEntry:
		return fmt.Sprintf("%s: %s in %s", f.Kind, f.Entry, f.Path)
	case FindingEdgeCountMismatch:
		return fmt.Sprintf("%s: node %d %s", f.Kind, f.NodeID, f.Detail)
	default:
		if f.Detail != "" {
			return fmt.Sprintf("%s: node %d %s (%s)", f.Kind, f.NodeID, f.Path, f.Detail)
		}
		return fmt.Sprintf("%s: node %d %s", f.Kind, f.NodeID, f.Path)
	}
}

// Report is the result of a store check
type Report struct {
	NodesChecked int
	EdgesChecked int
	Findings     []Finding
}

// OK reports whether the check found nothing to repair
func (r *Report) OK() bool {
	return len(r.Findings) == 0
}

// RepairStats counts what a repair pass changed
type RepairStats struct {
	Fixed  int
	Failed int
}
