package commands

import (
	"context"
	"fmt"

	"graphvault/internal/application"
	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

// SaveNodeResult contains the result of a node save
type SaveNodeResult struct {
	Node    domain.Node
	Message string
}

// SaveNodeCommand creates or replaces a node
type SaveNodeCommand struct {
	store      ports.GraphStore
	ID         int64
	Type       domain.NodeType
	Content    string
	Properties domain.Properties
}

// NewSaveNodeCommand creates a new SaveNodeCommand for a Standard node
func NewSaveNodeCommand(store ports.GraphStore, id int64, content string) *SaveNodeCommand {
	return &SaveNodeCommand{
		store:   store,
		ID:      id,
		Type:    domain.NodeTypeStandard,
		Content: content,
	}
}

func (c *SaveNodeCommand) node() domain.Node {
	n := domain.NewNode(c.ID, c.Content)
	n.Type = c.Type
	n.Properties = c.Properties
	return n
}

// Validate checks if the node can be saved
func (c *SaveNodeCommand) Validate() error {
	if err := application.ValidateID("nodeID", c.ID); err != nil {
		return err
	}
	return c.node().Validate()
}

// Execute runs the save node command
func (c *SaveNodeCommand) Execute(ctx context.Context) (*SaveNodeResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	node := c.node()
	if err := c.store.SaveNode(node); err != nil {
		return nil, fmt.Errorf("failed to save node %d: %w", c.ID, err)
	}

	return &SaveNodeResult{
		Node:    node,
		Message: fmt.Sprintf("Saved node %d", c.ID),
	}, nil
}

// GetNodeCommand loads a node by ID
type GetNodeCommand struct {
	store ports.GraphStore
	ID    int64
}

// NewGetNodeCommand creates a new GetNodeCommand
func NewGetNodeCommand(store ports.GraphStore, id int64) *GetNodeCommand {
	return &GetNodeCommand{store: store, ID: id}
}

// Validate checks the node ID
func (c *GetNodeCommand) Validate() error {
	return application.ValidateID("nodeID", c.ID)
}

// Execute returns the node, or an error matching ErrNotFound when absent
func (c *GetNodeCommand) Execute(ctx context.Context) (*domain.Node, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	node, err := c.store.LoadNode(c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load node %d: %w", c.ID, err)
	}
	if node == nil {
		return nil, &application.NotFoundError{What: fmt.Sprintf("node %d", c.ID)}
	}
	return node, nil
}

// DeleteNodeResult contains the result of a node delete
type DeleteNodeResult struct {
	ID      int64
	Deleted bool
	Message string
}

// DeleteNodeCommand deletes a node and every edge touching it
type DeleteNodeCommand struct {
	store ports.GraphStore
	ID    int64
}

// NewDeleteNodeCommand creates a new DeleteNodeCommand
func NewDeleteNodeCommand(store ports.GraphStore, id int64) *DeleteNodeCommand {
	return &DeleteNodeCommand{store: store, ID: id}
}

// Validate checks the node ID
func (c *DeleteNodeCommand) Validate() error {
	return application.ValidateID("nodeID", c.ID)
}

// Execute runs the delete node command. Deleting an absent node is not an error.
func (c *DeleteNodeCommand) Execute(ctx context.Context) (*DeleteNodeResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	deleted, err := c.store.DeleteNode(c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete node %d: %w", c.ID, err)
	}

	msg := fmt.Sprintf("Deleted node %d", c.ID)
	if !deleted {
		msg = fmt.Sprintf("Node %d does not exist", c.ID)
	}
	return &DeleteNodeResult{ID: c.ID, Deleted: deleted, Message: msg}, nil
}

// ListNodesCommand lists every registered node ID
type ListNodesCommand struct {
	store ports.GraphStore
}

// NewListNodesCommand creates a new ListNodesCommand
func NewListNodesCommand(store ports.GraphStore) *ListNodesCommand {
	return &ListNodesCommand{store: store}
}

// Execute returns the registered IDs in ascending order
func (c *ListNodesCommand) Execute(ctx context.Context) ([]int64, error) {
	return c.store.AllNodeIDs()
}
