package ports

import "graphvault/internal/domain"

// RecordCodec encodes records at the latest version and decodes any
// supported version into its versioned layout
type RecordCodec interface {
	Name() string
	Ext() string

	EncodeNode(node domain.Node) ([]byte, error)
	DecodeNode(b []byte) (domain.VersionedNode, error)

	EncodeEdge(edge domain.Edge) ([]byte, error)
	DecodeEdge(b []byte) (domain.VersionedEdge, error)
}
