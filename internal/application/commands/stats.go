package commands

import (
	"context"
	"fmt"

	"graphvault/internal/application"
	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

// InitResult contains the result of store setup
type InitResult struct {
	Root    string
	Created bool
	Message string
}

// InitCommand creates the data root and an empty global index when absent
type InitCommand struct {
	store ports.GraphStore
}

// NewInitCommand creates a new InitCommand
func NewInitCommand(store ports.GraphStore) *InitCommand {
	return &InitCommand{store: store}
}

// Execute runs the init command; running it twice is harmless
func (c *InitCommand) Execute(ctx context.Context) (*InitResult, error) {
	created, err := c.store.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	root := c.store.Layout().Root
	msg := fmt.Sprintf("Store already initialized at %s", root)
	if created {
		msg = fmt.Sprintf("Initialized store at %s", root)
	}
	return &InitResult{Root: root, Created: created, Message: msg}, nil
}

// StatsResult summarizes the store
type StatsResult struct {
	Root   string
	Format string
	Totals domain.Totals
}

// StatsCommand reports registry totals
type StatsCommand struct {
	store ports.GraphStore
}

// NewStatsCommand creates a new StatsCommand
func NewStatsCommand(store ports.GraphStore) *StatsCommand {
	return &StatsCommand{store: store}
}

// Execute runs the stats command
func (c *StatsCommand) Execute(ctx context.Context) (*StatsResult, error) {
	return &StatsResult{
		Root:   c.store.Layout().Root,
		Format: c.store.Format(),
		Totals: c.store.Totals(),
	}, nil
}

// PathCommand resolves where a node or an edge mirror lives on disk.
// With HasTo unset it resolves the node file of From.
type PathCommand struct {
	store     ports.GraphStore
	From      int64
	To        int64
	HasTo     bool
	Direction domain.Direction
}

// NewNodePathCommand resolves the file of node id
func NewNodePathCommand(store ports.GraphStore, id int64) *PathCommand {
	return &PathCommand{store: store, From: id}
}

// NewEdgePathCommand resolves one mirror of the edge from -> to
func NewEdgePathCommand(store ports.GraphStore, from, to int64, dir domain.Direction) *PathCommand {
	return &PathCommand{store: store, From: from, To: to, HasTo: true, Direction: dir}
}

// Validate checks the IDs
func (c *PathCommand) Validate() error {
	if err := application.ValidateID("fromID", c.From); err != nil {
		return err
	}
	if c.HasTo {
		return application.ValidateID("toID", c.To)
	}
	return nil
}

// Execute returns the absolute path; the file need not exist
func (c *PathCommand) Execute(ctx context.Context) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	layout := c.store.Layout()
	if !c.HasTo {
		return layout.NodePath(c.From)
	}
	return layout.EdgePath(c.From, c.To, c.Direction)
}
