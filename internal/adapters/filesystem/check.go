package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"graphvault/internal/domain"
)

// subdirectoryDetail marks index findings about a child directory rather
// than an edge file
const subdirectoryDetail = "subdirectory"

// ownerDepth is the number of path levels between an edges root and the
// directory owned by one node: <4>/<8>/<12>/<id>
const ownerDepth = 4

// mirrorFile is one edge file found on disk during a check
type mirrorFile struct {
	path string
	key  domain.EdgeKey
	edge *domain.Edge // nil when the record could not be decoded
}

// Check compares the files on disk with the manifests, the registry and the
// mirror invariant, and reports every inconsistency found. It changes
// nothing.
func (s *Store) Check() (*domain.Report, error) {
	s.structure.Lock()
	defer s.structure.Unlock()
	return s.checkLocked()
}

func (s *Store) checkLocked() (*domain.Report, error) {
	r := &domain.Report{}
	if err := s.checkNodes(r); err != nil {
		return nil, err
	}
	out, err := s.checkEdgeTree(r, domain.Outgoing)
	if err != nil {
		return nil, err
	}
	in, err := s.checkEdgeTree(r, domain.Incoming)
	if err != nil {
		return nil, err
	}
	r.EdgesChecked = len(out)
	s.checkMirrors(r, out, in)
	s.checkCounts(r)

	slices.SortStableFunc(r.Findings, func(a, b domain.Finding) int {
		return int(a.Kind) - int(b.Kind)
	})
	s.log.WithField("action", "check").
		WithField("nodes", r.NodesChecked).
		WithField("edges", r.EdgesChecked).
		WithField("findings", len(r.Findings)).
		Info("check finished")
	return r, nil
}

func (s *Store) checkNodes(r *domain.Report) error {
	registered := make(map[int64]bool)
	for _, e := range s.registry.Entries() {
		registered[e.NodeID] = true
		r.NodesChecked++
		path, err := s.layout.NodePath(e.NodeID)
		if err != nil {
			return err
		}
		data, ok, err := readFileIfExists(path)
		if err != nil {
			return err
		}
		if !ok {
			r.Findings = append(r.Findings, domain.Finding{Kind: domain.FindingMissingNodeFile, NodeID: e.NodeID, Path: path})
			continue
		}
		n, err := s.decodeNode(path, data)
		if err == nil && n.ID != e.NodeID {
			err = fmt.Errorf("record holds node %d", n.ID)
		}
		if err != nil {
			r.Findings = append(r.Findings, domain.Finding{
				Kind: domain.FindingCorruptRecord, NodeID: e.NodeID, Path: path, Detail: err.Error(),
			})
		}
	}

	edgesDir := filepath.Join(s.layout.Root, domain.EdgesDirName)
	return filepath.WalkDir(s.layout.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == edgesDir {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if isTempFile(name) || path == s.layout.GlobalIndexPath() || !strings.HasSuffix(name, s.layout.Ext) {
			return nil
		}
		id, err := domain.ParseID(strings.TrimSuffix(name, s.layout.Ext))
		if err != nil {
			return nil
		}
		if want, _ := s.layout.NodePath(id); want != path || registered[id] {
			return nil
		}
		r.Findings = append(r.Findings, domain.Finding{Kind: domain.FindingUnregisteredNode, NodeID: id, Path: path})
		return nil
	})
}

// checkEdgeTree compares every owned directory of one mirror tree with its
// manifest and decodes every edge file found on disk
func (s *Store) checkEdgeTree(r *domain.Report, dir domain.Direction) (map[domain.EdgeKey]*mirrorFile, error) {
	root := s.layout.EdgesRoot(dir)
	files := make(map[domain.EdgeKey]*mirrorFile)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if errors.Is(err, fs.ErrNotExist) && path == root {
			return filepath.SkipDir
		}
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || len(strings.Split(rel, string(filepath.Separator))) < ownerDepth {
			return nil
		}
		found, err := s.compareDir(r, dir, path)
		if err != nil {
			return err
		}
		for _, f := range found {
			files[f.key] = f
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, f := range files {
		g.Go(func() error {
			data, err := os.ReadFile(f.path)
			var e domain.Edge
			if err == nil {
				e, err = s.decodeEdge(f.path, data)
			}
			if err == nil && e.Key() != f.key {
				err = fmt.Errorf("record holds edge %s", e.Key())
			}
			if err != nil {
				mu.Lock()
				r.Findings = append(r.Findings, domain.Finding{
					Kind: domain.FindingCorruptRecord, Edge: f.key, Direction: dir,
					Path: filepath.Dir(f.path), Entry: filepath.Base(f.path), Detail: err.Error(),
				})
				mu.Unlock()
				return nil
			}
			f.edge = &e
			return nil
		})
	}
	_ = g.Wait()
	return files, nil
}

// compareDir reports the differences between one directory and its manifest
// and returns the edge files it holds
func (s *Store) compareDir(r *domain.Report, dir domain.Direction, path string) ([]*mirrorFile, error) {
	m, err := s.dirs.Manifest(path)
	if err != nil {
		var corrupt *domain.CorruptionError
		if !errors.As(err, &corrupt) {
			return nil, err
		}
		r.Findings = append(r.Findings, domain.Finding{
			Kind: domain.FindingCorruptRecord, Direction: dir,
			Path: path, Entry: domain.IndexFileName, Detail: err.Error(),
		})
		m = &domain.DirManifest{}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var (
		physFiles, physDirs []string
		found               []*mirrorFile
	)
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			physDirs = append(physDirs, name)
		case name == domain.IndexFileName || isTempFile(name):
		default:
			physFiles = append(physFiles, name)
			owner, other, err := s.layout.ParseEdgeFileName(name)
			if err != nil {
				s.log.WithField("action", "check").WithField("path", filepath.Join(path, name)).Warn("stray file in edge tree")
				continue
			}
			from, to := owner, other
			if dir == domain.Incoming {
				from, to = other, owner
			}
			found = append(found, &mirrorFile{path: filepath.Join(path, name), key: domain.EdgeKey{From: from, To: to}})
		}
	}

	indexFinding := func(kind domain.FindingKind, entry, detail string) domain.Finding {
		return domain.Finding{Kind: kind, Direction: dir, Path: path, Entry: entry, Detail: detail}
	}
	for _, name := range physFiles {
		if !slices.Contains(m.EdgeFiles, name) {
			r.Findings = append(r.Findings, indexFinding(domain.FindingUnlistedEdgeFile, name, ""))
		}
	}
	for _, name := range m.EdgeFiles {
		if !slices.Contains(physFiles, name) {
			r.Findings = append(r.Findings, indexFinding(domain.FindingPhantomIndexEntry, name, ""))
		}
	}
	for _, name := range physDirs {
		if !slices.Contains(m.Subdirectories, name) {
			r.Findings = append(r.Findings, indexFinding(domain.FindingUnlistedEdgeFile, name, subdirectoryDetail))
		}
	}
	for _, name := range m.Subdirectories {
		if !slices.Contains(physDirs, name) {
			r.Findings = append(r.Findings, indexFinding(domain.FindingPhantomIndexEntry, name, subdirectoryDetail))
		}
	}
	return found, nil
}

func (s *Store) checkMirrors(r *domain.Report, out, in map[domain.EdgeKey]*mirrorFile) {
	for _, k := range sortedKeys(out) {
		o := out[k]
		i, ok := in[k]
		if !ok {
			path, _ := s.layout.EdgePath(k.From, k.To, domain.Incoming)
			r.Findings = append(r.Findings, domain.Finding{
				Kind: domain.FindingMissingMirror, Edge: k, Direction: domain.Incoming, Path: path,
			})
			continue
		}
		if o.edge != nil && i.edge != nil && !o.edge.Equal(*i.edge) {
			r.Findings = append(r.Findings, domain.Finding{
				Kind: domain.FindingDivergentMirror, Edge: k, Direction: domain.Incoming, Path: i.path,
			})
		}
	}
	for _, k := range sortedKeys(in) {
		if _, ok := out[k]; !ok {
			r.Findings = append(r.Findings, domain.Finding{
				Kind: domain.FindingOrphanMirror, Edge: k, Direction: domain.Incoming, Path: in[k].path,
			})
		}
	}
}

func (s *Store) checkCounts(r *domain.Report) {
	for _, e := range s.registry.Entries() {
		out, outErr := s.countEdges(e.NodeID, domain.Outgoing)
		in, inErr := s.countEdges(e.NodeID, domain.Incoming)
		if outErr != nil || inErr != nil {
			continue // the corrupt manifest is already reported
		}
		if out != e.EdgeCount || in != e.InEdgeCount {
			r.Findings = append(r.Findings, domain.Finding{
				Kind:   domain.FindingEdgeCountMismatch,
				NodeID: e.NodeID,
				Detail: fmt.Sprintf("registered %d out/%d in, indexed %d out/%d in", e.EdgeCount, e.InEdgeCount, out, in),
			})
		}
	}
}

func sortedKeys(m map[domain.EdgeKey]*mirrorFile) []domain.EdgeKey {
	keys := make([]domain.EdgeKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b domain.EdgeKey) int {
		if a.From != b.From {
			return cmpInt64(a.From, b.From)
		}
		return cmpInt64(a.To, b.To)
	})
	return keys
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// repairOrder fixes the manifests before anything that reads through them
var repairOrder = map[domain.FindingKind]int{
	domain.FindingUnlistedEdgeFile:  0,
	domain.FindingPhantomIndexEntry: 1,
	domain.FindingCorruptRecord:     2,
	domain.FindingMissingMirror:     3,
	domain.FindingDivergentMirror:   4,
	domain.FindingOrphanMirror:      5,
	domain.FindingMissingNodeFile:   6,
	domain.FindingUnregisteredNode:  7,
	domain.FindingEdgeCountMismatch: 8,
}

// repairRank orders findings for repair; a corrupt manifest is rebuilt
// before any other finding touches it
func repairRank(f domain.Finding) int {
	if f.Kind == domain.FindingCorruptRecord && f.Entry == domain.IndexFileName {
		return -1
	}
	return repairOrder[f.Kind]
}

// Repair fixes the findings of report, treating the outgoing mirror as
// authoritative, then recounts every registry entry. A nil report runs a
// check first.
func (s *Store) Repair(report *domain.Report) (*domain.RepairStats, error) {
	s.structure.Lock()
	defer s.structure.Unlock()

	if report == nil {
		var err error
		if report, err = s.checkLocked(); err != nil {
			return nil, err
		}
	}

	findings := slices.Clone(report.Findings)
	slices.SortStableFunc(findings, func(a, b domain.Finding) int {
		return repairRank(a) - repairRank(b)
	})

	stats := &domain.RepairStats{}
	var result *multierror.Error
	for _, f := range findings {
		if err := s.repairFinding(f); err != nil {
			stats.Failed++
			result = multierror.Append(result, fmt.Errorf("%s: %w", f, err))
			continue
		}
		stats.Fixed++
	}
	if err := s.recountLocked(); err != nil {
		result = multierror.Append(result, err)
	}
	s.cache.purge()

	s.log.WithField("action", "repair").
		WithField("fixed", stats.Fixed).
		WithField("failed", stats.Failed).
		Info("repair finished")
	return stats, result.ErrorOrNil()
}

func (s *Store) repairFinding(f domain.Finding) error {
	switch f.Kind {
	case domain.FindingUnlistedEdgeFile:
		if f.Detail == subdirectoryDetail {
			return s.dirs.AddSubdir(f.Path, f.Entry)
		}
		root, err := s.ownerRoot(f)
		if err != nil {
			return err
		}
		_, err = s.dirs.Link(root, f.Path, f.Entry)
		return err

	case domain.FindingPhantomIndexEntry:
		if f.Detail == subdirectoryDetail {
			return s.dirs.RemoveSubdir(f.Path, f.Entry)
		}
		root, err := s.ownerRoot(f)
		if err != nil {
			return err
		}
		_, err = s.dirs.Unlink(root, f.Path, f.Entry)
		return err

	case domain.FindingCorruptRecord:
		switch f.Entry {
		case "":
			return fmt.Errorf("node record cannot be rebuilt")
		case domain.IndexFileName:
			return s.rebuildManifest(f.Path)
		default:
			return s.repairCorruptEdge(f)
		}

	case domain.FindingMissingMirror, domain.FindingDivergentMirror:
		return s.copyMirror(f.Edge, domain.Outgoing)

	case domain.FindingOrphanMirror:
		m, err := s.mirrorOf(f.Edge.From, f.Edge.To, domain.Incoming)
		if err != nil {
			return err
		}
		_, _, err = s.removeMirror(m)
		return err

	case domain.FindingMissingNodeFile:
		_, err := s.deleteNodeLocked(f.NodeID)
		return err

	case domain.FindingUnregisteredNode:
		path, err := s.layout.NodePath(f.NodeID)
		if err != nil {
			return err
		}
		entry, err := s.entryFor(f.NodeID, path)
		if err != nil {
			return err
		}
		return s.registry.Upsert(entry)

	case domain.FindingEdgeCountMismatch:
		return nil // recounted after all findings
	}
	return fmt.Errorf("unknown finding kind %d", f.Kind)
}

// ownerRoot returns the owned edge directory an index finding belongs to
func (s *Store) ownerRoot(f domain.Finding) (string, error) {
	owner, _, err := s.layout.ParseEdgeFileName(f.Entry)
	if err != nil {
		return "", err
	}
	return s.layout.EdgeDir(owner, f.Direction)
}

// rebuildManifest replaces the manifest of dir with what is on disk
func (s *Store) rebuildManifest(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	m := &domain.DirManifest{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			m.Subdirectories = append(m.Subdirectories, name)
		case name == domain.IndexFileName || isTempFile(name):
		default:
			m.EdgeFiles = append(m.EdgeFiles, name)
		}
	}
	unlock := s.dirs.locks.lock(dir)
	defer unlock()
	return s.dirs.write(dir, m)
}

// repairCorruptEdge rewrites an unreadable mirror from its counterpart, or
// drops the edge when neither copy can be read
func (s *Store) repairCorruptEdge(f domain.Finding) error {
	src := domain.Outgoing
	if f.Direction == domain.Outgoing {
		src = domain.Incoming
	}
	err := s.copyMirror(f.Edge, src)
	if err == nil {
		return nil
	}
	s.log.WithField("action", "repair").
		WithField("from", f.Edge.From).
		WithField("to", f.Edge.To).
		WithError(err).
		Warn("no readable mirror left, dropping edge")
	_, err = s.deleteEdgeLocked(f.Edge.From, f.Edge.To)
	return err
}

// copyMirror overwrites the mirror opposite src with the bytes of src
func (s *Store) copyMirror(k domain.EdgeKey, src domain.Direction) error {
	dst := domain.Incoming
	if src == domain.Incoming {
		dst = domain.Outgoing
	}
	from, err := s.mirrorOf(k.From, k.To, src)
	if err != nil {
		return err
	}
	to, err := s.mirrorOf(k.From, k.To, dst)
	if err != nil {
		return err
	}
	data, ok, err := readFileIfExists(from.path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s mirror of %s is missing", src, k)
	}
	if _, err := s.decodeEdge(from.path, data); err != nil {
		return err
	}
	stage := domain.StageIncomingMirror
	if dst == domain.Outgoing {
		stage = domain.StageOutgoingMirror
	}
	_, err = s.writeMirror(to, data, k.From, k.To, stage)
	return err
}

// recountLocked recomputes the edge counts of every registry entry from the
// manifests
func (s *Store) recountLocked() error {
	entries := s.registry.Entries()
	for i := range entries {
		out, err := s.countEdges(entries[i].NodeID, domain.Outgoing)
		if err != nil {
			return err
		}
		in, err := s.countEdges(entries[i].NodeID, domain.Incoming)
		if err != nil {
			return err
		}
		entries[i].EdgeCount = out
		entries[i].InEdgeCount = in
	}
	return s.registry.Replace(entries)
}
