package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"graphvault/internal/application"
	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

// SearchResult wraps a catalog node with a relevance score
type SearchResult struct {
	domain.CatalogNode
	Score int
}

// SearchCommand searches node content in the catalog with fuzzy matching
type SearchCommand struct {
	catalog ports.Catalog
	Query   string
}

// NewSearchCommand creates a new SearchCommand
func NewSearchCommand(catalog ports.Catalog, query string) *SearchCommand {
	return &SearchCommand{
		catalog: catalog,
		Query:   query,
	}
}

// Execute runs the search command and returns scored, sorted results.
// Substring matches are looked up first; when there are none every node
// is scored fuzzily.
func (c *SearchCommand) Execute(ctx context.Context) ([]SearchResult, error) {
	if len(c.Query) < 2 {
		return nil, nil
	}

	results, err := c.catalog.SearchNodes(c.Query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		if results, err = c.catalog.SearchNodes(""); err != nil {
			return nil, err
		}
	}

	return FuzzySort(results, c.Query), nil
}

// FuzzyScore calculates a relevance score for how well target matches query
func FuzzyScore(target, query string) int {
	target = strings.ToLower(target)
	query = strings.ToLower(query)

	if len(query) == 0 {
		return 0
	}

	// Check for exact substring match first (highest priority)
	if strings.Contains(target, query) {
		score := 100
		// Bonus if it starts with query
		if strings.HasPrefix(target, query) {
			score += 50
		}
		return score
	}

	// Fuzzy match: check if chars appear in order
	score := 0
	queryIdx := 0
	prevMatchIdx := -1

	for i := 0; i < len(target) && queryIdx < len(query); i++ {
		if target[i] == query[queryIdx] {
			if prevMatchIdx == i-1 {
				score += 10 // consecutive chars
			}
			if i == 0 {
				score += 15 // start of string
			}
			if i > 0 && (target[i-1] == ' ' || target[i-1] == '.' || target[i-1] == '-') {
				score += 10 // after separator
			}
			score += 1
			prevMatchIdx = i
			queryIdx++
		}
	}

	if queryIdx == len(query) {
		return score
	}
	return 0
}

// FuzzySort sorts catalog nodes by relevance to the query, dropping nodes
// that do not match at all. Ties keep ascending ID order.
func FuzzySort(nodes []domain.CatalogNode, query string) []SearchResult {
	scored := make([]SearchResult, 0, len(nodes))

	for _, n := range nodes {
		best := max(
			FuzzyScore(strconv.FormatInt(n.ID, 10), query),
			FuzzyScore(n.Content, query),
		)

		if best > 0 {
			scored = append(scored, SearchResult{
				CatalogNode: n,
				Score:       best,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	return scored
}

// SyncCatalogCommand rebuilds the catalog from the store
type SyncCatalogCommand struct {
	store   ports.GraphStore
	catalog ports.Catalog
	// Force rebuilds even when the catalog is current
	Force bool
}

// NewSyncCatalogCommand creates a new SyncCatalogCommand
func NewSyncCatalogCommand(store ports.GraphStore, catalog ports.Catalog, force bool) *SyncCatalogCommand {
	return &SyncCatalogCommand{store: store, catalog: catalog, Force: force}
}

// SyncResult contains the result of a catalog sync
type SyncResult struct {
	Stats   *domain.SyncStats
	Skipped bool
	Message string
}

// Execute runs the sync
func (c *SyncCatalogCommand) Execute(ctx context.Context) (*SyncResult, error) {
	if !c.Force && !c.catalog.NeedsFullRebuild(c.store.Revision()) {
		return &SyncResult{Skipped: true, Message: "Catalog is up to date"}, nil
	}

	stats, err := c.catalog.SyncFull(c.store)
	if err != nil {
		return nil, fmt.Errorf("failed to sync catalog: %w", err)
	}

	msg := fmt.Sprintf("Synced %d nodes and %d edges in %s", stats.NodesAdded, stats.EdgesAdded, stats.Duration.Round(time.Millisecond))
	if stats.RecordErrors > 0 {
		msg += fmt.Sprintf(" (%d unreadable records skipped)", stats.RecordErrors)
	}
	return &SyncResult{Stats: stats, Message: msg}, nil
}

// TopNodesCommand lists the most connected nodes in the catalog
type TopNodesCommand struct {
	catalog ports.Catalog
	Limit   int
}

// NewTopNodesCommand creates a new TopNodesCommand
func NewTopNodesCommand(catalog ports.Catalog, limit int) *TopNodesCommand {
	return &TopNodesCommand{catalog: catalog, Limit: limit}
}

// Execute runs the top nodes command; a non-positive limit means 10
func (c *TopNodesCommand) Execute(ctx context.Context) ([]domain.CatalogNode, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = 10
	}
	return c.catalog.TopNodes(limit)
}

// CatalogNodeResult holds a catalog node and the edges pointing at it
type CatalogNodeResult struct {
	Node     *domain.CatalogNode
	Incoming []domain.Edge
}

// ShowCatalogNodeCommand looks up one node and its incoming edges in the
// catalog
type ShowCatalogNodeCommand struct {
	catalog ports.Catalog
	ID      int64
}

// NewShowCatalogNodeCommand creates a new ShowCatalogNodeCommand
func NewShowCatalogNodeCommand(catalog ports.Catalog, id int64) *ShowCatalogNodeCommand {
	return &ShowCatalogNodeCommand{catalog: catalog, ID: id}
}

// Execute returns the node, or an error matching ErrNotFound when the
// catalog does not hold it
func (c *ShowCatalogNodeCommand) Execute(ctx context.Context) (*CatalogNodeResult, error) {
	if err := application.ValidateID("nodeID", c.ID); err != nil {
		return nil, err
	}

	node, err := c.catalog.GetNode(c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up node %d: %w", c.ID, err)
	}
	if node == nil {
		return nil, &application.NotFoundError{What: fmt.Sprintf("node %d", c.ID)}
	}

	incoming, err := c.catalog.EdgesTo(c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges to node %d: %w", c.ID, err)
	}
	return &CatalogNodeResult{Node: node, Incoming: incoming}, nil
}
