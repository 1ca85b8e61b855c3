package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"graphvault/internal/application"
	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

// SaveEdgeResult contains the result of an edge save
type SaveEdgeResult struct {
	Edge    domain.Edge
	Message string
}

// SaveEdgeCommand creates or replaces the edge From -> To
type SaveEdgeCommand struct {
	store      ports.GraphStore
	From       int64
	To         int64
	Weight     float64
	Content    string
	Properties domain.Properties
}

// NewSaveEdgeCommand creates a new SaveEdgeCommand
func NewSaveEdgeCommand(store ports.GraphStore, from, to int64, weight float64, content string) *SaveEdgeCommand {
	return &SaveEdgeCommand{
		store:   store,
		From:    from,
		To:      to,
		Weight:  weight,
		Content: content,
	}
}

func (c *SaveEdgeCommand) edge() domain.Edge {
	e := domain.NewEdge(c.From, c.To, c.Weight, c.Content)
	e.Properties = c.Properties
	return e
}

// Validate checks if the edge can be saved
func (c *SaveEdgeCommand) Validate() error {
	if err := application.ValidateID("fromID", c.From); err != nil {
		return err
	}
	if err := application.ValidateID("toID", c.To); err != nil {
		return err
	}
	return c.edge().Validate()
}

// Execute runs the save edge command
func (c *SaveEdgeCommand) Execute(ctx context.Context) (*SaveEdgeResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	edge := c.edge()
	if err := c.store.SaveEdge(edge); err != nil {
		return nil, fmt.Errorf("failed to save edge %s: %w", edge.Key(), err)
	}

	return &SaveEdgeResult{
		Edge:    edge,
		Message: fmt.Sprintf("Saved edge %s", edge.Key()),
	}, nil
}

// EdgesResult holds the edges that could be read and the records that were
// skipped because they are corrupt
type EdgesResult struct {
	Edges   []domain.Edge
	Skipped []error
}

// ListEdgesCommand lists the edges of a node in one direction
type ListEdgesCommand struct {
	store     ports.GraphStore
	ID        int64
	Direction domain.Direction
}

// NewListEdgesCommand creates a new ListEdgesCommand
func NewListEdgesCommand(store ports.GraphStore, id int64, dir domain.Direction) *ListEdgesCommand {
	return &ListEdgesCommand{store: store, ID: id, Direction: dir}
}

// Validate checks the node ID
func (c *ListEdgesCommand) Validate() error {
	return application.ValidateID("nodeID", c.ID)
}

// Execute runs the list edges command
func (c *ListEdgesCommand) Execute(ctx context.Context) (*EdgesResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	edges, err := c.store.LoadEdges(c.ID, c.Direction)
	return edgesResult(edges, err)
}

// EdgesToCommand lists the edges pointing at a node
type EdgesToCommand struct {
	store ports.GraphStore
	ID    int64
}

// NewEdgesToCommand creates a new EdgesToCommand
func NewEdgesToCommand(store ports.GraphStore, id int64) *EdgesToCommand {
	return &EdgesToCommand{store: store, ID: id}
}

// Validate checks the node ID
func (c *EdgesToCommand) Validate() error {
	return application.ValidateID("nodeID", c.ID)
}

// Execute runs the edges-to command
func (c *EdgesToCommand) Execute(ctx context.Context) (*EdgesResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	edges, err := c.store.FindEdgesByDestination(c.ID)
	return edgesResult(edges, err)
}

// edgesResult keeps corrupt records as skipped and fails on anything else
func edgesResult(edges []domain.Edge, err error) (*EdgesResult, error) {
	res := &EdgesResult{Edges: edges}
	if err == nil {
		return res, nil
	}

	var errs []error
	if merr, ok := err.(*multierror.Error); ok {
		errs = merr.Errors
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		if !errors.Is(e, domain.ErrCorrupt) {
			return nil, err
		}
	}
	res.Skipped = errs
	return res, nil
}

// DeleteEdgeResult contains the result of an edge delete
type DeleteEdgeResult struct {
	Key     domain.EdgeKey
	Deleted bool
	Message string
}

// DeleteEdgeCommand deletes the edge From -> To
type DeleteEdgeCommand struct {
	store ports.GraphStore
	From  int64
	To    int64
}

// NewDeleteEdgeCommand creates a new DeleteEdgeCommand
func NewDeleteEdgeCommand(store ports.GraphStore, from, to int64) *DeleteEdgeCommand {
	return &DeleteEdgeCommand{store: store, From: from, To: to}
}

// Validate checks both endpoint IDs
func (c *DeleteEdgeCommand) Validate() error {
	if err := application.ValidateID("fromID", c.From); err != nil {
		return err
	}
	return application.ValidateID("toID", c.To)
}

// Execute runs the delete edge command. Deleting an absent edge is not an error.
func (c *DeleteEdgeCommand) Execute(ctx context.Context) (*DeleteEdgeResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	key := domain.EdgeKey{From: c.From, To: c.To}
	deleted, err := c.store.DeleteEdge(c.From, c.To)
	if err != nil {
		return nil, fmt.Errorf("failed to delete edge %s: %w", key, err)
	}

	msg := fmt.Sprintf("Deleted edge %s", key)
	if !deleted {
		msg = fmt.Sprintf("Edge %s does not exist", key)
	}
	return &DeleteEdgeResult{Key: key, Deleted: deleted, Message: msg}, nil
}
