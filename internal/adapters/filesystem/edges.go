package filesystem

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"graphvault/internal/domain"
)

// mirror locates one copy of an edge
type mirror struct {
	dir  domain.Direction
	root string // EdgeDir of the owning node
	leaf string
	name string
	path string
}

func (s *Store) mirrorOf(from, to int64, dir domain.Direction) (mirror, error) {
	owner, other := domain.EdgeOwner(from, to, dir)
	root, err := s.layout.EdgeDir(owner, dir)
	if err != nil {
		return mirror{}, err
	}
	leaf, err := s.layout.EdgeLeafDir(from, to, dir)
	if err != nil {
		return mirror{}, err
	}
	path, err := s.layout.EdgePath(from, to, dir)
	if err != nil {
		return mirror{}, err
	}
	return mirror{dir: dir, root: root, leaf: leaf, name: s.layout.EdgeFileName(owner, other), path: path}, nil
}

// mirrorWrite remembers what a mirror held before a write so it can be undone
type mirrorWrite struct {
	m       mirror
	prev    []byte
	existed bool
	listed  bool // the write added the manifest entry
}

// writeMirror writes data to m and lists it. If listing fails the file is put
// back the way it was; a failed put-back is a PartialWriteError.
func (s *Store) writeMirror(m mirror, data []byte, from, to int64, stage string) (*mirrorWrite, error) {
	prev, existed, err := readFileIfExists(m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s mirror: %w", m.dir, err)
	}
	w := &mirrorWrite{m: m, prev: prev, existed: existed}

	s.cache.invalidate(m.path)
	if err := writeFileAtomic(m.path, data); err != nil {
		return nil, err
	}
	added, err := s.dirs.Link(m.root, m.leaf, m.name)
	w.listed = added
	if err != nil {
		if rbErr := s.undoMirror(w); rbErr != nil {
			return nil, &domain.PartialWriteError{
				From: from, To: to, Stage: stage,
				Written: []string{m.path},
				Err:     multierror.Append(err, rbErr),
			}
		}
		return nil, err
	}
	return w, nil
}

// undoMirror restores a mirror to its state before w
func (s *Store) undoMirror(w *mirrorWrite) error {
	s.cache.invalidate(w.m.path)
	if w.existed {
		if err := writeFileAtomic(w.m.path, w.prev); err != nil {
			return err
		}
	} else if _, err := removeIfExists(w.m.path); err != nil {
		return err
	}
	if w.listed {
		if _, err := s.dirs.Unlink(w.m.root, w.m.leaf, w.m.name); err != nil {
			return err
		}
	}
	return nil
}

// SaveEdge writes both mirrors of edge, replacing any previous edge between
// the same endpoints. Both endpoint nodes must exist.
func (s *Store) SaveEdge(edge domain.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}

	s.structure.RLock()
	defer s.structure.RUnlock()
	unlock := s.nodes.lockPair(edge.From, edge.To)
	defer unlock()

	_, err := s.saveEdgeLocked(edge)
	return err
}

// saveEdgeLocked returns the mirror writes it made so a batch can undo them
func (s *Store) saveEdgeLocked(edge domain.Edge) ([]*mirrorWrite, error) {
	if err := s.checkEndpoints(edge.From, edge.To); err != nil {
		return nil, err
	}

	edge.Version = domain.LatestEdgeVersion
	data, err := s.codec.EncodeEdge(edge)
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge %s: %w", edge.Key(), err)
	}
	out, err := s.mirrorOf(edge.From, edge.To, domain.Outgoing)
	if err != nil {
		return nil, err
	}
	in, err := s.mirrorOf(edge.From, edge.To, domain.Incoming)
	if err != nil {
		return nil, err
	}

	outW, err := s.writeMirror(out, data, edge.From, edge.To, domain.StageOutgoingMirror)
	if err != nil {
		return nil, fmt.Errorf("failed to write outgoing mirror of edge %s: %w", edge.Key(), err)
	}
	inW, err := s.writeMirror(in, data, edge.From, edge.To, domain.StageIncomingMirror)
	if err != nil {
		if rbErr := s.undoMirror(outW); rbErr != nil {
			s.log.WithField("action", "save_edge").
				WithField("from", edge.From).
				WithField("to", edge.To).
				WithError(rbErr).
				Error("outgoing mirror left without incoming mirror")
			return nil, &domain.PartialWriteError{
				From: edge.From, To: edge.To, Stage: domain.StageIncomingMirror,
				Written: []string{out.path},
				Err:     multierror.Append(err, rbErr),
			}
		}
		s.log.WithField("action", "save_edge").
			WithField("from", edge.From).
			WithField("to", edge.To).
			WithError(err).
			Warn("edge write rolled back")
		return nil, fmt.Errorf("failed to write incoming mirror of edge %s: %w", edge.Key(), err)
	}

	if err := s.adjustCounts(edge.From, edge.To, outW.listed, inW.listed, 1); err != nil {
		return []*mirrorWrite{outW, inW}, &domain.PartialWriteError{
			From: edge.From, To: edge.To, Stage: domain.StageGlobalIndex,
			Written: []string{out.path, in.path},
			Err:     err,
		}
	}

	s.log.WithField("action", "save_edge").
		WithField("from", edge.From).
		WithField("to", edge.To).
		Debug("edge saved")
	return []*mirrorWrite{outW, inW}, nil
}

func (s *Store) checkEndpoints(from, to int64) error {
	ok, err := s.nodeExists(from)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.MissingEndpointError{NodeID: from, Role: "source"}
	}
	if ok, err = s.nodeExists(to); err != nil {
		return err
	}
	if !ok {
		return &domain.MissingEndpointError{NodeID: to, Role: "destination"}
	}
	return nil
}

// adjustCounts moves the outgoing count of from and the incoming count of to
// by sign for each mirror whose listing changed. When neither changed, as for
// an overwritten edge, the registry is still touched so its revision moves.
func (s *Store) adjustCounts(from, to int64, outChanged, inChanged bool, sign int) error {
	if !outChanged && !inChanged {
		return s.registry.Touch()
	}
	var out, in int
	if outChanged {
		out = sign
	}
	if inChanged {
		in = sign
	}
	if from == to {
		return s.registry.Adjust(CountChange{NodeID: from, Out: out, In: in})
	}
	return s.registry.Adjust(
		CountChange{NodeID: from, Out: out},
		CountChange{NodeID: to, In: in},
	)
}

// LoadEdges returns the edges filed under id in the given direction. Records
// that cannot be read are skipped and reported together in the returned
// error, alongside the records that could.
func (s *Store) LoadEdges(id int64, dir domain.Direction) ([]domain.Edge, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}

	s.structure.RLock()
	defer s.structure.RUnlock()
	unlock := s.nodes.rlock(id)
	defer unlock()

	return s.loadEdgesLocked(id, dir)
}

// FindEdgesByDestination returns every edge pointing at id
func (s *Store) FindEdgesByDestination(id int64) ([]domain.Edge, error) {
	return s.LoadEdges(id, domain.Incoming)
}

func (s *Store) loadEdgesLocked(id int64, dir domain.Direction) ([]domain.Edge, error) {
	edgeDir, err := s.layout.EdgeDir(id, dir)
	if err != nil {
		return nil, err
	}
	paths, err := s.dirs.CollectAll(edgeDir)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Edge, len(paths))
	var (
		mu     sync.Mutex
		result *multierror.Error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i, p := range paths {
		g.Go(func() error {
			e, err := s.loadEdgeFile(p)
			if err == nil {
				owner, _ := domain.EdgeOwner(e.From, e.To, dir)
				if owner != id {
					err = &domain.CorruptionError{Path: p, Err: fmt.Errorf("record holds edge %s", e.Key())}
				}
			}
			if err != nil {
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
				return nil
			}
			records[i] = &e
			return nil
		})
	}
	_ = g.Wait()

	edges := make([]domain.Edge, 0, len(paths))
	for _, e := range records {
		if e != nil {
			edges = append(edges, *e)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		s.log.WithField("action", "load_edges").
			WithField("node", id).
			WithField("direction", dir.String()).
			WithError(err).
			Warn("skipped unreadable edge records")
		return edges, err
	}
	return edges, nil
}

// loadEdgeFile reads one listed mirror. A listed file that is missing is a
// phantom manifest entry and reported as corruption.
func (s *Store) loadEdgeFile(path string) (domain.Edge, error) {
	if e, ok := s.cache.edge(path); ok {
		return e, nil
	}
	data, ok, err := readFileIfExists(path)
	if err != nil {
		return domain.Edge{}, fmt.Errorf("failed to read edge %s: %w", path, err)
	}
	if !ok {
		return domain.Edge{}, &domain.CorruptionError{Path: path, Err: fmt.Errorf("listed edge file is missing")}
	}
	e, err := s.decodeEdge(path, data)
	if err != nil {
		return domain.Edge{}, err
	}
	s.cache.putEdge(path, e)
	return e, nil
}

func (s *Store) decodeEdge(path string, data []byte) (domain.Edge, error) {
	v, err := s.codec.DecodeEdge(data)
	if err != nil {
		return domain.Edge{}, &domain.CorruptionError{Path: path, Err: err}
	}
	e, err := domain.UpgradeEdge(v)
	if err != nil {
		return domain.Edge{}, &domain.CorruptionError{Path: path, Err: err}
	}
	return e, nil
}

// DeleteEdge removes both mirrors of the edge from -> to. It reports false
// when neither mirror existed.
func (s *Store) DeleteEdge(from, to int64) (bool, error) {
	if err := domain.ValidateID(from); err != nil {
		return false, err
	}
	if err := domain.ValidateID(to); err != nil {
		return false, err
	}

	s.structure.RLock()
	defer s.structure.RUnlock()
	unlock := s.nodes.lockPair(from, to)
	defer unlock()

	return s.deleteEdgeLocked(from, to)
}

func (s *Store) deleteEdgeLocked(from, to int64) (bool, error) {
	out, err := s.mirrorOf(from, to, domain.Outgoing)
	if err != nil {
		return false, err
	}
	in, err := s.mirrorOf(from, to, domain.Incoming)
	if err != nil {
		return false, err
	}

	outFound, outUnlisted, err := s.removeMirror(out)
	if err != nil {
		return false, fmt.Errorf("failed to remove outgoing mirror of edge %d->%d: %w", from, to, err)
	}
	inFound, inUnlisted, err := s.removeMirror(in)
	if err != nil {
		if !outFound {
			return false, fmt.Errorf("failed to remove incoming mirror of edge %d->%d: %w", from, to, err)
		}
		return false, &domain.PartialWriteError{
			From: from, To: to, Stage: domain.StageIncomingMirror,
			Written: []string{out.path},
			Err:     err,
		}
	}
	if !outFound && !inFound {
		return false, nil
	}

	if err := s.adjustCounts(from, to, outUnlisted, inUnlisted, -1); err != nil {
		return true, &domain.PartialWriteError{
			From: from, To: to, Stage: domain.StageGlobalIndex,
			Written: []string{out.path, in.path},
			Err:     err,
		}
	}

	s.log.WithField("action", "delete_edge").
		WithField("from", from).
		WithField("to", to).
		Debug("edge deleted")
	return true, nil
}

// removeMirror deletes the file of m and its manifest entry. found reports
// whether either existed; unlisted whether the entry was removed.
func (s *Store) removeMirror(m mirror) (found, unlisted bool, err error) {
	s.cache.invalidate(m.path)
	removed, err := removeIfExists(m.path)
	if err != nil {
		return false, false, err
	}
	unlisted, err = s.dirs.Unlink(m.root, m.leaf, m.name)
	if err != nil {
		return removed, unlisted, err
	}
	return removed || unlisted, unlisted, nil
}
