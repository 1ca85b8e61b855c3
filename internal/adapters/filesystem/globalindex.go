package filesystem

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"graphvault/internal/domain"
)

// GlobalIndex is the store-wide node registry kept in the root manifest.
// Every mutation is persisted before it returns; a failed persist leaves the
// in-memory registry as it was.
type GlobalIndex struct {
	mu      sync.RWMutex
	path    string
	format  string
	entries map[int64]domain.RegistryEntry
	log     logrus.FieldLogger

	revision uint64
}

// CountChange adjusts the edge counters of one registry entry
type CountChange struct {
	NodeID int64
	Out    int
	In     int
}

// OpenGlobalIndex loads the registry at path, creating it when absent.
// A registry pinned to a different record format fails with
// domain.ErrFormatMismatch.
func OpenGlobalIndex(path, format string, log logrus.FieldLogger) (*GlobalIndex, error) {
	g := &GlobalIndex{
		path:    path,
		format:  format,
		entries: make(map[int64]domain.RegistryEntry),
		log:     log,
	}

	data, ok, err := readFileIfExists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read global index: %w", err)
	}
	if !ok {
		log.WithField("action", "create_global_index").WithField("path", path).Info("creating global index")
		if err := g.persistLocked(); err != nil {
			return nil, err
		}
		return g, nil
	}

	var reg domain.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, &domain.CorruptionError{Path: path, Err: err}
	}
	if reg.RecordFormat != "" && reg.RecordFormat != format {
		return nil, fmt.Errorf("%w: store holds %s records, configured for %s",
			domain.ErrFormatMismatch, reg.RecordFormat, format)
	}
	for _, e := range reg.Nodes {
		g.entries[e.NodeID] = e
	}
	g.revision = reg.Revision
	if reg.RecordFormat == "" {
		if err := g.persistLocked(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Format returns the record format the store is pinned to
func (g *GlobalIndex) Format() string {
	return g.format
}

// Revision returns the number of changes persisted so far
func (g *GlobalIndex) Revision() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.revision
}

// Touch persists the registry unchanged so that the revision records a
// store change the registry does not otherwise reflect
func (g *GlobalIndex) Touch() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.persistLocked()
}

// Get returns the entry of id
func (g *GlobalIndex) Get(id int64) (domain.RegistryEntry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.entries[id]
	return e, ok
}

// Upsert inserts or replaces entries as one persisted update
func (g *GlobalIndex) Upsert(entries ...domain.RegistryEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := make(map[int64]*domain.RegistryEntry, len(entries))
	for _, e := range entries {
		if _, seen := prev[e.NodeID]; !seen {
			if old, ok := g.entries[e.NodeID]; ok {
				prev[e.NodeID] = &old
			} else {
				prev[e.NodeID] = nil
			}
		}
		g.entries[e.NodeID] = e
	}
	if err := g.persistLocked(); err != nil {
		g.restoreLocked(prev)
		return err
	}
	return nil
}

// Adjust applies count deltas as one persisted update. Entries that are
// not registered are skipped; counts never drop below zero.
func (g *GlobalIndex) Adjust(changes ...CountChange) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := make(map[int64]*domain.RegistryEntry, len(changes))
	changed := false
	for _, c := range changes {
		e, ok := g.entries[c.NodeID]
		if !ok || (c.Out == 0 && c.In == 0) {
			continue
		}
		if _, seen := prev[c.NodeID]; !seen {
			old := e
			prev[c.NodeID] = &old
		}
		e.EdgeCount = max(e.EdgeCount+c.Out, 0)
		e.InEdgeCount = max(e.InEdgeCount+c.In, 0)
		g.entries[c.NodeID] = e
		changed = true
	}
	if !changed {
		return nil
	}
	if err := g.persistLocked(); err != nil {
		g.restoreLocked(prev)
		return err
	}
	return nil
}

// Remove drops the entry of id and reports whether it was registered
func (g *GlobalIndex) Remove(id int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	old, ok := g.entries[id]
	if !ok {
		return false, nil
	}
	delete(g.entries, id)
	if err := g.persistLocked(); err != nil {
		g.entries[id] = old
		return false, err
	}
	return true, nil
}

// Replace swaps the whole registry for entries
func (g *GlobalIndex) Replace(entries []domain.RegistryEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	old := g.entries
	g.entries = make(map[int64]domain.RegistryEntry, len(entries))
	for _, e := range entries {
		g.entries[e.NodeID] = e
	}
	if err := g.persistLocked(); err != nil {
		g.entries = old
		return err
	}
	return nil
}

// AllNodeIDs returns every registered node ID in ascending order
func (g *GlobalIndex) AllNodeIDs() []int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Sorted(maps.Keys(g.entries))
}

// Entries returns a copy of the registry ordered by node ID
func (g *GlobalIndex) Entries() []domain.RegistryEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked().Nodes
}

// Totals returns the registry summary counters
func (g *GlobalIndex) Totals() domain.Totals {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t := domain.Totals{Nodes: len(g.entries)}
	for _, e := range g.entries {
		t.Edges += e.EdgeCount
	}
	return t
}

func (g *GlobalIndex) snapshotLocked() domain.Registry {
	reg := domain.Registry{
		RecordFormat: g.format,
		Revision:     g.revision,
		Nodes:        slices.Collect(maps.Values(g.entries)),
	}
	if reg.Nodes == nil {
		reg.Nodes = []domain.RegistryEntry{}
	}
	reg.Recount()
	return reg
}

func (g *GlobalIndex) persistLocked() error {
	g.revision++
	reg := g.snapshotLocked()
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		g.revision--
		return err
	}
	if err := writeFileAtomic(g.path, data); err != nil {
		g.revision--
		return fmt.Errorf("failed to write global index: %w", err)
	}
	return nil
}

// restoreLocked puts back the entries captured before a failed update.
// A nil value means the entry did not exist.
func (g *GlobalIndex) restoreLocked(prev map[int64]*domain.RegistryEntry) {
	for id, e := range prev {
		if e == nil {
			delete(g.entries, id)
		} else {
			g.entries[id] = *e
		}
	}
}
