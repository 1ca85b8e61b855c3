package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Direction selects which mirror of an edge is addressed
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	default:
		return "unknown"
	}
}

// ParseDirection parses "outgoing"/"out" or "incoming"/"in"
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outgoing", "out":
		return Outgoing, nil
	case "incoming", "in":
		return Incoming, nil
	default:
		return Outgoing, &ValidationError{Field: "direction", Message: fmt.Sprintf("unknown direction: %q", s)}
	}
}

const (
	// IDWidth is the minimum number of digits an ID is rendered with
	IDWidth = 16

	// EdgesDirName is the top-level directory holding both edge mirrors
	EdgesDirName = "edges"
	// IndexFileName names the global manifest at the root and the
	// per-directory manifests inside edge subtrees
	IndexFileName = "index.json"
)

// shardPrefixes are the prefix lengths used for each directory level
var shardPrefixes = []int{4, 8, 12}

// ValidateID rejects identifiers outside the addressable range
func ValidateID(id int64) error {
	if id < 0 {
		return &InvalidIDError{ID: id}
	}
	return nil
}

// FormatID renders an ID zero-padded to IDWidth digits.
// IDs wider than IDWidth keep all of their digits.
func FormatID(id int64) string {
	return fmt.Sprintf("%0*d", IDWidth, id)
}

// ParseID parses a decimal ID string, accepting zero-padded forms
func ParseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "id", Message: fmt.Sprintf("invalid node ID: %q", s)}
	}
	if err := ValidateID(id); err != nil {
		return 0, err
	}
	return id, nil
}

// ShardSegments returns the fan-out directory names for a rendered ID,
// e.g. "0000000000000042" -> ["0000", "00000000", "000000000000"]
func ShardSegments(rendered string) []string {
	segments := make([]string, 0, len(shardPrefixes))
	for _, n := range shardPrefixes {
		segments = append(segments, rendered[:n])
	}
	return segments
}

// Layout maps identifiers to locations below a store root.
// All methods are pure and deterministic.
type Layout struct {
	Root string
	// Ext is the record file extension including the dot, e.g. ".json"
	Ext string
}

// NewLayout creates a layout rooted at root for records with the given extension
func NewLayout(root, ext string) Layout {
	return Layout{Root: root, Ext: ext}
}

// GlobalIndexPath returns the path of the store-wide manifest
func (l Layout) GlobalIndexPath() string {
	return filepath.Join(l.Root, IndexFileName)
}

// NodeFileName returns the leaf file name of a node record
func (l Layout) NodeFileName(id int64) string {
	return FormatID(id) + l.Ext
}

// NodePath returns the record path of a node.
// root/<4>/<8>/<12>/<id><ext>
func (l Layout) NodePath(id int64) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	rendered := FormatID(id)
	parts := append([]string{l.Root}, ShardSegments(rendered)...)
	parts = append(parts, rendered+l.Ext)
	return filepath.Join(parts...), nil
}

// EdgesRoot returns the top of one mirror's subtree
func (l Layout) EdgesRoot(dir Direction) string {
	return filepath.Join(l.Root, EdgesDirName, dir.String())
}

// EdgeDir returns the directory holding every edge mirror filed under id
// for the given direction.
// root/edges/<direction>/<4>/<8>/<12>/<id>
func (l Layout) EdgeDir(id int64, dir Direction) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	rendered := FormatID(id)
	parts := append([]string{l.EdgesRoot(dir)}, ShardSegments(rendered)...)
	parts = append(parts, rendered)
	return filepath.Join(parts...), nil
}

// EdgeFileName returns the leaf name of an edge mirror: <owner>-<other><ext>
func (l Layout) EdgeFileName(owner, other int64) string {
	return FormatID(owner) + "-" + FormatID(other) + l.Ext
}

// EdgeLeafDir returns the directory that directly contains the edge mirror
// for the pair (from, to) in the given direction. The owning node is from for
// outgoing mirrors and to for incoming ones; the other endpoint's prefixes add a
// second level of fan-out below the owner's directory.
func (l Layout) EdgeLeafDir(from, to int64, dir Direction) (string, error) {
	owner, other := EdgeOwner(from, to, dir)
	base, err := l.EdgeDir(owner, dir)
	if err != nil {
		return "", err
	}
	if err := ValidateID(other); err != nil {
		return "", err
	}
	ownerStr := FormatID(owner)
	parts := []string{base}
	for _, seg := range ShardSegments(FormatID(other)) {
		parts = append(parts, ownerStr+"-"+seg)
	}
	return filepath.Join(parts...), nil
}

// EdgePath returns the record path of one mirror of the edge (from, to)
func (l Layout) EdgePath(from, to int64, dir Direction) (string, error) {
	leaf, err := l.EdgeLeafDir(from, to, dir)
	if err != nil {
		return "", err
	}
	owner, other := EdgeOwner(from, to, dir)
	return filepath.Join(leaf, l.EdgeFileName(owner, other)), nil
}

// EdgeOwner returns the node an edge mirror is filed under and its counterpart
func EdgeOwner(from, to int64, dir Direction) (owner, other int64) {
	if dir == Incoming {
		return to, from
	}
	return from, to
}

// ParseEdgeFileName extracts the owner and counterpart IDs from an edge
// mirror file name
func (l Layout) ParseEdgeFileName(name string) (owner, other int64, err error) {
	base := strings.TrimSuffix(name, l.Ext)
	if base == name && l.Ext != "" {
		return 0, 0, fmt.Errorf("not an edge file: %s", name)
	}
	parts := strings.SplitN(base, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("not an edge file: %s", name)
	}
	if owner, err = ParseID(parts[0]); err != nil {
		return 0, 0, err
	}
	if other, err = ParseID(parts[1]); err != nil {
		return 0, 0, err
	}
	return owner, other, nil
}
