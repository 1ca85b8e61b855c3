package filesystem

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"

	"graphvault/internal/domain"
)

// undoStep reverts one applied record
type undoStep func() error

// SaveBatch writes every node and then every edge of batch as one unit.
// Records are validated before anything is written; an edge may reference a
// node saved by the same batch. If a write fails, the records already
// applied are reverted in reverse order. A failed revert is reported as a
// PartialWriteError.
func (s *Store) SaveBatch(batch domain.Batch) error {
	for _, n := range batch.Nodes {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("node %d: %w", n.ID, err)
		}
	}
	for _, e := range batch.Edges {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("edge %s: %w", e.Key(), err)
		}
	}

	s.structure.Lock()
	defer s.structure.Unlock()

	if err := s.checkBatchEndpoints(batch); err != nil {
		return err
	}

	var journal []undoStep
	apply := func() error {
		for _, n := range batch.Nodes {
			undo, err := s.snapshotNode(n.ID)
			if err != nil {
				return err
			}
			journal = append(journal, undo)
			if err := s.saveNodeLocked(n); err != nil {
				return err
			}
		}
		for _, e := range batch.Edges {
			writes, err := s.saveEdgeLocked(e)
			if len(writes) > 0 {
				journal = append(journal, s.edgeUndo(e, writes, err == nil))
			}
			if err != nil {
				return err
			}
		}
		return nil
	}

	err := apply()
	if err == nil {
		s.log.WithField("action", "save_batch").
			WithField("nodes", len(batch.Nodes)).
			WithField("edges", len(batch.Edges)).
			Debug("batch saved")
		return nil
	}

	var undoErr *multierror.Error
	for _, undo := range slices.Backward(journal) {
		if uErr := undo(); uErr != nil {
			undoErr = multierror.Append(undoErr, uErr)
		}
	}
	if undoErr != nil {
		s.log.WithField("action", "save_batch").WithError(undoErr).Error("batch undo failed")
		return &domain.PartialWriteError{
			Stage: domain.StageBatchUndo,
			Err:   multierror.Append(err, undoErr.Errors...),
		}
	}
	s.log.WithField("action", "save_batch").WithError(err).Warn("batch reverted")
	return fmt.Errorf("batch save reverted: %w", err)
}

func (s *Store) checkBatchEndpoints(batch domain.Batch) error {
	inBatch := make(map[int64]bool, len(batch.Nodes))
	for _, n := range batch.Nodes {
		inBatch[n.ID] = true
	}
	for _, e := range batch.Edges {
		for _, end := range []struct {
			id   int64
			role string
		}{{e.From, "source"}, {e.To, "destination"}} {
			if inBatch[end.id] {
				continue
			}
			ok, err := s.nodeExists(end.id)
			if err != nil {
				return err
			}
			if !ok {
				return &domain.MissingEndpointError{NodeID: end.id, Role: end.role}
			}
		}
	}
	return nil
}

// snapshotNode captures the record and registry entry of id so a later save
// can be reverted
func (s *Store) snapshotNode(id int64) (undoStep, error) {
	path, err := s.layout.NodePath(id)
	if err != nil {
		return nil, err
	}
	restoreFile, err := s.snapshotFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read node %d: %w", id, err)
	}
	entry, registered := s.registry.Get(id)

	return func() error {
		if err := restoreFile(); err != nil {
			return err
		}
		if registered {
			return s.registry.Upsert(entry)
		}
		_, err := s.registry.Remove(id)
		return err
	}, nil
}

// edgeUndo reverts both mirror writes of e and, when they were applied, the
// count changes that came with them
func (s *Store) edgeUndo(e domain.Edge, writes []*mirrorWrite, counted bool) undoStep {
	return func() error {
		if counted {
			outListed, inListed := writes[0].listed, writes[1].listed
			if err := s.adjustCounts(e.From, e.To, outListed, inListed, -1); err != nil {
				return err
			}
		}
		var result *multierror.Error
		for _, w := range slices.Backward(writes) {
			if err := s.undoMirror(w); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}
}
