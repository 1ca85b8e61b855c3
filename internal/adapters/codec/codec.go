// Package codec serializes node and edge records inside a versioned envelope.
//
// Every record is written as {version, node|edge} where the payload layout
// depends on the version. Decoding reads the version tag first and then
// dispatches to the layout registered for that version; it never assumes the
// latest schema. Upgrading to the latest in-memory form is left to
// domain.UpgradeNode and domain.UpgradeEdge.
package codec

import (
	"errors"
	"fmt"

	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

const (
	kindNode = "node"
	kindEdge = "edge"
)

var errMissingVersion = errors.New("record has no version tag")

// format is the byte-level encoding behind a Codec
type format interface {
	marshal(v any) ([]byte, error)
	unmarshal(b []byte, v any) error
	// envelope returns the version tag and the raw payload stored under kind
	envelope(b []byte, kind string) (int, []byte, error)
}

// Codec implements ports.RecordCodec on top of a byte format
type Codec struct {
	name string
	ext  string
	f    format
}

var _ ports.RecordCodec = (*Codec)(nil)

// ForFormat returns the codec registered under name ("json" or "msgpack")
func ForFormat(name string) (*Codec, error) {
	switch name {
	case "", FormatJSON:
		return JSON(), nil
	case FormatMsgpack:
		return Msgpack(), nil
	default:
		return nil, &domain.ValidationError{
			Field:   "record_format",
			Message: fmt.Sprintf("unknown record format: %q (expected %s or %s)", name, FormatJSON, FormatMsgpack),
		}
	}
}

// Name returns the format name persisted in the global manifest
func (c *Codec) Name() string { return c.name }

// Ext returns the record file extension
func (c *Codec) Ext() string { return c.ext }

// Version reads only the version tag of an encoded record
func (c *Codec) Version(b []byte, kind string) (int, error) {
	v, _, err := c.f.envelope(b, kind)
	return v, err
}

// --- wire layouts ---

type nodeEnvelope struct {
	Version int `json:"version" msgpack:"version"`
	Node    any `json:"node" msgpack:"node"`
}

type edgeEnvelope struct {
	Version int `json:"version" msgpack:"version"`
	Edge    any `json:"edge" msgpack:"edge"`
}

type nodeV1Wire struct {
	ID      int64  `json:"id" msgpack:"id"`
	Content string `json:"content" msgpack:"content"`
}

type nodeV2Wire struct {
	ID                 int64          `json:"id" msgpack:"id"`
	Type               string         `json:"type" msgpack:"type"`
	Content            string         `json:"content" msgpack:"content"`
	ExtendedProperties map[string]any `json:"extendedProperties,omitempty" msgpack:"extendedProperties,omitempty"`
}

type edgeV1Wire struct {
	FromNode    int64   `json:"fromNode" msgpack:"fromNode"`
	ToNode      int64   `json:"toNode" msgpack:"toNode"`
	Weight      float64 `json:"weight" msgpack:"weight"`
	EdgeContent string  `json:"edgeContent" msgpack:"edgeContent"`
}

type edgeV2Wire struct {
	FromNode           int64          `json:"fromNode" msgpack:"fromNode"`
	ToNode             int64          `json:"toNode" msgpack:"toNode"`
	Weight             float64        `json:"weight" msgpack:"weight"`
	Content            string         `json:"content" msgpack:"content"`
	ExtendedProperties map[string]any `json:"extendedProperties,omitempty" msgpack:"extendedProperties,omitempty"`
}

// --- decode tables, indexed by version ---

var nodeDecoders = map[int]func(f format, payload []byte) (domain.VersionedNode, error){
	1: func(f format, payload []byte) (domain.VersionedNode, error) {
		var w nodeV1Wire
		if err := f.unmarshal(payload, &w); err != nil {
			return nil, err
		}
		return domain.NodeV1{ID: w.ID, Content: w.Content}, nil
	},
	2: func(f format, payload []byte) (domain.VersionedNode, error) {
		var w nodeV2Wire
		if err := f.unmarshal(payload, &w); err != nil {
			return nil, err
		}
		t, err := domain.ParseNodeType(w.Type)
		if err != nil {
			return nil, err
		}
		props, err := domain.PropertiesFromAny(w.ExtendedProperties)
		if err != nil {
			return nil, err
		}
		return domain.NodeV2{ID: w.ID, Type: t, Content: w.Content, Properties: props}, nil
	},
}

var edgeDecoders = map[int]func(f format, payload []byte) (domain.VersionedEdge, error){
	1: func(f format, payload []byte) (domain.VersionedEdge, error) {
		var w edgeV1Wire
		if err := f.unmarshal(payload, &w); err != nil {
			return nil, err
		}
		return domain.EdgeV1{From: w.FromNode, To: w.ToNode, Weight: w.Weight, EdgeContent: w.EdgeContent}, nil
	},
	2: func(f format, payload []byte) (domain.VersionedEdge, error) {
		var w edgeV2Wire
		if err := f.unmarshal(payload, &w); err != nil {
			return nil, err
		}
		props, err := domain.PropertiesFromAny(w.ExtendedProperties)
		if err != nil {
			return nil, err
		}
		return domain.EdgeV2{From: w.FromNode, To: w.ToNode, Weight: w.Weight, Content: w.Content, Properties: props}, nil
	},
}

// EncodeNode writes n at the latest node version
func (c *Codec) EncodeNode(n domain.Node) ([]byte, error) {
	latest := n.Latest()
	return c.f.marshal(nodeEnvelope{
		Version: latest.NodeVersion(),
		Node: nodeV2Wire{
			ID:                 latest.ID,
			Type:               latest.Type.String(),
			Content:            latest.Content,
			ExtendedProperties: latest.Properties.Any(),
		},
	})
}

// EncodeNodeVersion writes a node in an explicit historical layout.
// Stores never call it; it exists to produce fixtures of older versions.
func (c *Codec) EncodeNodeVersion(v domain.VersionedNode) ([]byte, error) {
	switch n := v.(type) {
	case domain.NodeV1:
		return c.f.marshal(nodeEnvelope{Version: 1, Node: nodeV1Wire{ID: n.ID, Content: n.Content}})
	case domain.NodeV2:
		return c.EncodeNode(domain.Node{ID: n.ID, Type: n.Type, Content: n.Content, Properties: n.Properties})
	default:
		return nil, fmt.Errorf("unknown node layout %T", v)
	}
}

// DecodeNode reads the version tag and decodes the matching layout
func (c *Codec) DecodeNode(b []byte) (domain.VersionedNode, error) {
	version, payload, err := c.f.envelope(b, kindNode)
	if err != nil {
		return nil, err
	}
	decode, ok := nodeDecoders[version]
	if !ok {
		return nil, &domain.UnsupportedVersionError{Kind: kindNode, Version: version}
	}
	return decode(c.f, payload)
}

// EncodeEdge writes e at the latest edge version
func (c *Codec) EncodeEdge(e domain.Edge) ([]byte, error) {
	latest := e.Latest()
	return c.f.marshal(edgeEnvelope{
		Version: latest.EdgeVersion(),
		Edge: edgeV2Wire{
			FromNode:           latest.From,
			ToNode:             latest.To,
			Weight:             latest.Weight,
			Content:            latest.Content,
			ExtendedProperties: latest.Properties.Any(),
		},
	})
}

// EncodeEdgeVersion writes an edge in an explicit historical layout
func (c *Codec) EncodeEdgeVersion(v domain.VersionedEdge) ([]byte, error) {
	switch e := v.(type) {
	case domain.EdgeV1:
		return c.f.marshal(edgeEnvelope{Version: 1, Edge: edgeV1Wire{
			FromNode: e.From, ToNode: e.To, Weight: e.Weight, EdgeContent: e.EdgeContent,
		}})
	case domain.EdgeV2:
		return c.EncodeEdge(domain.Edge{From: e.From, To: e.To, Weight: e.Weight, Content: e.Content, Properties: e.Properties})
	default:
		return nil, fmt.Errorf("unknown edge layout %T", v)
	}
}

// DecodeEdge reads the version tag and decodes the matching layout
func (c *Codec) DecodeEdge(b []byte) (domain.VersionedEdge, error) {
	version, payload, err := c.f.envelope(b, kindEdge)
	if err != nil {
		return nil, err
	}
	decode, ok := edgeDecoders[version]
	if !ok {
		return nil, &domain.UnsupportedVersionError{Kind: kindEdge, Version: version}
	}
	return decode(c.f, payload)
}
