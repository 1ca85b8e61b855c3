package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"graphvault/internal/adapters/codec"
	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

// DefaultLoadWorkers bounds parallel record decodes when Options leaves it unset
const DefaultLoadWorkers = 8

// Options configures a Store
type Options struct {
	// Codec encodes records; defaults to JSON
	Codec ports.RecordCodec
	// Logger defaults to a discard logger
	Logger logrus.FieldLogger
	// CacheSize is the number of decoded records kept per kind; 0 disables
	// the read cache
	CacheSize int
	// LoadWorkers bounds parallel record decodes
	LoadWorkers int
}

// Store implements ports.GraphStore on a sharded directory tree.
//
// Locking: structure is held shared by every operation that touches a
// bounded set of nodes and exclusively by operations that touch an unbounded
// set (node delete, batch save, check, repair). Below it, node stripes are
// held for the endpoints concerned, and manifest stripes are taken last, one
// at a time. Methods ending in Locked expect the caller to hold the locks.
type Store struct {
	layout   domain.Layout
	codec    ports.RecordCodec
	log      logrus.FieldLogger
	dirs     *DirIndex
	registry *GlobalIndex
	cache    *recordCache
	workers  int

	structure sync.RWMutex
	nodes     nodeLocks
}

var _ ports.GraphStore = (*Store)(nil)

// Open opens the store rooted at root, creating the root directory and the
// global index when absent
func Open(root string, opts Options) (*Store, error) {
	if opts.Codec == nil {
		opts.Codec = codec.JSON()
	}
	if opts.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		opts.Logger = discard
	}
	if opts.LoadWorkers <= 0 {
		opts.LoadWorkers = DefaultLoadWorkers
	}

	root, err := filepath.Abs(expandHome(root))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data path: %w", err)
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data path: %w", err)
	}

	log := opts.Logger.WithField("store", root)
	layout := domain.NewLayout(root, opts.Codec.Ext())

	registry, err := OpenGlobalIndex(layout.GlobalIndexPath(), opts.Codec.Name(), log)
	if err != nil {
		return nil, err
	}
	cache, err := newRecordCache(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}

	log.WithField("action", "open").
		WithField("format", opts.Codec.Name()).
		WithField("nodes", len(registry.AllNodeIDs())).
		Debug("store opened")

	return &Store{
		layout:   layout,
		codec:    opts.Codec,
		log:      log,
		dirs:     NewDirIndex(log),
		registry: registry,
		cache:    cache,
		workers:  opts.LoadWorkers,
	}, nil
}

// Init recreates the root directory and the global index if either was
// removed since Open. It reports whether anything was created.
func (s *Store) Init() (bool, error) {
	s.structure.Lock()
	defer s.structure.Unlock()

	path := s.layout.GlobalIndexPath()
	ok, err := fileExists(path)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := s.registry.Replace(s.registry.Entries()); err != nil {
		return false, err
	}
	s.log.WithField("action", "init").WithField("path", path).Info("global index created")
	return true, nil
}

// Layout returns the path layout of the store
func (s *Store) Layout() domain.Layout {
	return s.layout
}

// Format returns the record format the store is pinned to
func (s *Store) Format() string {
	return s.codec.Name()
}

// Revision returns the registry revision, which changes with every write
func (s *Store) Revision() uint64 {
	return s.registry.Revision()
}

// Totals returns the registry summary counters
func (s *Store) Totals() domain.Totals {
	return s.registry.Totals()
}

// Registry returns every registry entry ordered by node ID
func (s *Store) Registry() []domain.RegistryEntry {
	return s.registry.Entries()
}

// AllNodeIDs returns every registered node ID in ascending order
func (s *Store) AllNodeIDs() ([]int64, error) {
	return s.registry.AllNodeIDs(), nil
}

// relPath renders path relative to the store root for the registry
func (s *Store) relPath(path string) string {
	rel, err := filepath.Rel(s.layout.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
