package commands

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"graphvault/internal/application"
	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

// SaveBatchResult contains the result of a batch save
type SaveBatchResult struct {
	Nodes   int
	Edges   int
	Message string
}

// SaveBatchCommand saves nodes and edges as one unit: either every record
// is written or none is
type SaveBatchCommand struct {
	store ports.GraphStore
	Batch domain.Batch
}

// NewSaveBatchCommand creates a new SaveBatchCommand
func NewSaveBatchCommand(store ports.GraphStore, batch domain.Batch) *SaveBatchCommand {
	return &SaveBatchCommand{store: store, Batch: batch}
}

// Validate checks that the batch is not empty. Record validation happens
// in the store before anything is written.
func (c *SaveBatchCommand) Validate() error {
	if c.Batch.Len() == 0 {
		return &application.ValidationError{
			Field:   "batch",
			Message: "batch has no nodes or edges",
		}
	}
	return nil
}

// Execute runs the save batch command
func (c *SaveBatchCommand) Execute(ctx context.Context) (*SaveBatchResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := c.store.SaveBatch(c.Batch); err != nil {
		return nil, fmt.Errorf("failed to save batch: %w", err)
	}

	return &SaveBatchResult{
		Nodes:   len(c.Batch.Nodes),
		Edges:   len(c.Batch.Edges),
		Message: fmt.Sprintf("Saved %d nodes and %d edges", len(c.Batch.Nodes), len(c.Batch.Edges)),
	}, nil
}

// batchDocument is the YAML layout read by ParseBatch:
//
//	nodes:
//	  - id: 1
//	    type: simo
//	    content: Alpha
//	    properties: {source: wiki}
//	edges:
//	  - from: 1
//	    to: 2
//	    weight: 0.5
//	    content: supports
type batchDocument struct {
	Nodes []nodeDocument `yaml:"nodes"`
	Edges []edgeDocument `yaml:"edges"`
}

type nodeDocument struct {
	ID         int64          `yaml:"id"`
	Type       string         `yaml:"type"`
	Content    string         `yaml:"content"`
	Properties map[string]any `yaml:"properties"`
}

type edgeDocument struct {
	From       int64          `yaml:"from"`
	To         int64          `yaml:"to"`
	Weight     float64        `yaml:"weight"`
	Content    string         `yaml:"content"`
	Properties map[string]any `yaml:"properties"`
}

// ParseBatch reads a YAML batch document
func ParseBatch(r io.Reader) (domain.Batch, error) {
	var doc batchDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return domain.Batch{}, &application.ValidationError{
			Field:   "batch",
			Message: fmt.Sprintf("invalid batch document: %v", err),
		}
	}

	var batch domain.Batch
	for i, nd := range doc.Nodes {
		nodeType, err := application.ParseNodeType(nd.Type)
		if err != nil {
			return domain.Batch{}, fmt.Errorf("node %d: %w", i, err)
		}
		props, err := propertiesOf(nd.Properties)
		if err != nil {
			return domain.Batch{}, fmt.Errorf("node %d: %w", i, err)
		}
		n := domain.NewNode(nd.ID, nd.Content)
		n.Type = nodeType
		n.Properties = props
		batch.Nodes = append(batch.Nodes, n)
	}
	for i, ed := range doc.Edges {
		props, err := propertiesOf(ed.Properties)
		if err != nil {
			return domain.Batch{}, fmt.Errorf("edge %d: %w", i, err)
		}
		e := domain.NewEdge(ed.From, ed.To, ed.Weight, ed.Content)
		e.Properties = props
		batch.Edges = append(batch.Edges, e)
	}
	return batch, nil
}

func propertiesOf(m map[string]any) (domain.Properties, error) {
	props, err := domain.PropertiesFromAny(m)
	if err != nil {
		return nil, &application.ValidationError{Field: "properties", Message: err.Error()}
	}
	return props, nil
}
