package filesystem

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"graphvault/internal/domain"
)

// SaveNode writes node at the latest version, replacing any previous record,
// and registers it. Re-saving keeps the node's edge counts.
func (s *Store) SaveNode(node domain.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}

	s.structure.RLock()
	defer s.structure.RUnlock()
	unlock := s.nodes.lock(node.ID)
	defer unlock()

	return s.saveNodeLocked(node)
}

func (s *Store) saveNodeLocked(node domain.Node) error {
	path, err := s.layout.NodePath(node.ID)
	if err != nil {
		return err
	}
	node.Version = domain.LatestNodeVersion
	data, err := s.codec.EncodeNode(node)
	if err != nil {
		return fmt.Errorf("failed to encode node %d: %w", node.ID, err)
	}

	restore, err := s.snapshotFile(path)
	if err != nil {
		return fmt.Errorf("failed to read node %d: %w", node.ID, err)
	}
	s.cache.invalidate(path)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write node %d: %w", node.ID, err)
	}

	entry, err := s.entryFor(node.ID, path)
	if err == nil {
		err = s.registry.Upsert(entry)
	}
	if err != nil {
		return s.revertNodeFile(node.ID, path, "save_node", restore, err)
	}

	s.log.WithField("action", "save_node").WithField("node", node.ID).Debug("node saved")
	return nil
}

// snapshotFile captures the bytes at path, or their absence, and returns a
// step that puts them back
func (s *Store) snapshotFile(path string) (undoStep, error) {
	prev, existed, err := readFileIfExists(path)
	if err != nil {
		return nil, err
	}
	return func() error {
		s.cache.invalidate(path)
		if existed {
			return writeFileAtomic(path, prev)
		}
		_, err := removeIfExists(path)
		return err
	}, nil
}

// revertNodeFile undoes a node file change after the registry refused the
// matching update. The registry keeps its previous state on failure, so
// restoring the file is enough; when that fails too the node file and the
// registry disagree and a PartialWriteError is returned.
func (s *Store) revertNodeFile(id int64, path, action string, restore undoStep, cause error) error {
	if rbErr := restore(); rbErr != nil {
		s.log.WithField("action", action).
			WithField("node", id).
			WithError(rbErr).
			Error("node file left out of step with the registry")
		return &domain.PartialWriteError{
			Kind: domain.RecordNode, From: id, To: id,
			Stage:   domain.StageGlobalIndex,
			Written: []string{path},
			Err:     multierror.Append(cause, rbErr),
		}
	}
	s.log.WithField("action", action).
		WithField("node", id).
		WithError(cause).
		Warn("node write rolled back")
	return fmt.Errorf("failed to update registry for node %d: %w", id, cause)
}

// entryFor returns the registry entry of id, counting its edges from the
// manifests when the node is not registered yet
func (s *Store) entryFor(id int64, path string) (domain.RegistryEntry, error) {
	if e, ok := s.registry.Get(id); ok {
		e.FilePath = s.relPath(path)
		return e, nil
	}
	e := domain.RegistryEntry{NodeID: id, FilePath: s.relPath(path)}
	var err error
	if e.EdgeCount, err = s.countEdges(id, domain.Outgoing); err != nil {
		return e, err
	}
	if e.InEdgeCount, err = s.countEdges(id, domain.Incoming); err != nil {
		return e, err
	}
	return e, nil
}

func (s *Store) countEdges(id int64, dir domain.Direction) (int, error) {
	edgeDir, err := s.layout.EdgeDir(id, dir)
	if err != nil {
		return 0, err
	}
	return s.dirs.Count(edgeDir)
}

// LoadNode returns the node with id upgraded to the latest version, or nil
// when no such node exists
func (s *Store) LoadNode(id int64) (*domain.Node, error) {
	path, err := s.layout.NodePath(id)
	if err != nil {
		return nil, err
	}

	s.structure.RLock()
	defer s.structure.RUnlock()
	unlock := s.nodes.rlock(id)
	defer unlock()

	return s.loadNodeFile(id, path)
}

func (s *Store) loadNodeFile(id int64, path string) (*domain.Node, error) {
	if n, ok := s.cache.node(path); ok {
		return &n, nil
	}
	data, ok, err := readFileIfExists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read node %d: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	n, err := s.decodeNode(path, data)
	if err != nil {
		return nil, err
	}
	if n.ID != id {
		return nil, &domain.CorruptionError{Path: path, Err: fmt.Errorf("record holds node %d", n.ID)}
	}
	s.cache.putNode(path, n)
	return &n, nil
}

func (s *Store) decodeNode(path string, data []byte) (domain.Node, error) {
	v, err := s.codec.DecodeNode(data)
	if err != nil {
		return domain.Node{}, &domain.CorruptionError{Path: path, Err: err}
	}
	n, err := domain.UpgradeNode(v)
	if err != nil {
		return domain.Node{}, &domain.CorruptionError{Path: path, Err: err}
	}
	return n, nil
}

func (s *Store) nodeExists(id int64) (bool, error) {
	path, err := s.layout.NodePath(id)
	if err != nil {
		return false, err
	}
	return fileExists(path)
}

// DeleteNode removes the node with id together with every edge that
// mentions it. It reports false when the node did not exist.
func (s *Store) DeleteNode(id int64) (bool, error) {
	if err := domain.ValidateID(id); err != nil {
		return false, err
	}

	s.structure.Lock()
	defer s.structure.Unlock()

	return s.deleteNodeLocked(id)
}

func (s *Store) deleteNodeLocked(id int64) (bool, error) {
	path, err := s.layout.NodePath(id)
	if err != nil {
		return false, err
	}
	exists, err := fileExists(path)
	if err != nil {
		return false, err
	}
	_, registered := s.registry.Get(id)
	if !exists && !registered {
		return false, nil
	}

	keys, err := s.edgeKeysOf(id)
	if err != nil {
		return false, err
	}
	var result *multierror.Error
	for _, k := range keys {
		if _, err := s.deleteEdgeLocked(k.From, k.To); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return false, fmt.Errorf("failed to delete edges of node %d: %w", id, err)
	}

	restore, err := s.snapshotFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read node %d: %w", id, err)
	}
	s.cache.invalidate(path)
	if _, err := removeIfExists(path); err != nil {
		return false, fmt.Errorf("failed to remove node %d: %w", id, err)
	}
	if _, err := s.registry.Remove(id); err != nil {
		return false, s.revertNodeFile(id, path, "delete_node", restore, err)
	}

	s.log.WithField("action", "delete_node").
		WithField("node", id).
		WithField("edges", len(keys)).
		Debug("node deleted")
	return true, nil
}

// edgeKeysOf lists the edges that mention id in either direction, taken from
// the names in its manifests
func (s *Store) edgeKeysOf(id int64) ([]domain.EdgeKey, error) {
	seen := make(map[domain.EdgeKey]bool)
	var keys []domain.EdgeKey
	for _, dir := range []domain.Direction{domain.Outgoing, domain.Incoming} {
		edgeDir, err := s.layout.EdgeDir(id, dir)
		if err != nil {
			return nil, err
		}
		paths, err := s.collectRepairing(edgeDir)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			owner, other, err := s.layout.ParseEdgeFileName(filepath.Base(p))
			if err != nil || owner != id {
				s.log.WithField("action", "delete_node").
					WithField("path", p).
					Warn("skipping foreign entry in edge manifest")
				continue
			}
			k := domain.EdgeKey{From: id, To: other}
			if dir == domain.Incoming {
				k = domain.EdgeKey{From: other, To: id}
			}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}

// collectRepairing lists the edge files below root like DirIndex.CollectAll,
// rebuilding from disk any manifest that cannot be decoded. Each manifest is
// rebuilt at most once.
func (s *Store) collectRepairing(root string) ([]string, error) {
	repaired := make(map[string]bool)
	for {
		paths, err := s.dirs.CollectAll(root)
		var corrupt *domain.CorruptionError
		if !errors.As(err, &corrupt) || filepath.Base(corrupt.Path) != domain.IndexFileName || repaired[corrupt.Path] {
			return paths, err
		}
		repaired[corrupt.Path] = true

		dir := filepath.Dir(corrupt.Path)
		s.log.WithField("action", "delete_node").
			WithField("path", corrupt.Path).
			WithError(corrupt.Err).
			Warn("rebuilding unreadable edge manifest")
		if err := s.rebuildManifest(dir); err != nil {
			return nil, fmt.Errorf("failed to rebuild manifest %s: %w", corrupt.Path, err)
		}
	}
}
