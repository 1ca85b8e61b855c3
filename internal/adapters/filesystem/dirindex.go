package filesystem

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"graphvault/internal/domain"
)

// DirIndex maintains the per-directory manifests of the edge subtrees.
// Each manifest lists the edge files and child directories directly below
// its directory, so a subtree can be traversed without listing the
// filesystem. An empty manifest is never left on disk.
type DirIndex struct {
	locks dirLocks
	log   logrus.FieldLogger
}

// NewDirIndex creates a directory index
func NewDirIndex(log logrus.FieldLogger) *DirIndex {
	return &DirIndex{log: log}
}

func manifestPath(dir string) string {
	return filepath.Join(dir, domain.IndexFileName)
}

// Manifest reads the manifest of dir. A missing manifest is empty.
func (d *DirIndex) Manifest(dir string) (*domain.DirManifest, error) {
	path := manifestPath(dir)
	data, ok, err := readFileIfExists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	m := &domain.DirManifest{}
	if !ok {
		return m, nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, &domain.CorruptionError{Path: path, Err: err}
	}
	return m, nil
}

func (d *DirIndex) write(dir string, m *domain.DirManifest) error {
	path := manifestPath(dir)
	if m.IsEmpty() {
		if _, err := removeIfExists(path); err != nil {
			return fmt.Errorf("failed to remove manifest %s: %w", path, err)
		}
		return nil
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// update runs a read-modify-write of dir's manifest under its lock.
// fn reports whether it changed anything; unchanged manifests are not
// rewritten.
func (d *DirIndex) update(dir string, fn func(m *domain.DirManifest) bool) (bool, error) {
	unlock := d.locks.lock(dir)
	defer unlock()

	m, err := d.Manifest(dir)
	if err != nil {
		return false, err
	}
	if !fn(m) {
		return false, nil
	}
	if err := d.write(dir, m); err != nil {
		return false, err
	}
	return true, nil
}

// AddEntry lists filename as an edge file of dir and reports whether it was
// newly added. Adding a listed name is a no-op.
func (d *DirIndex) AddEntry(dir, filename string) (bool, error) {
	return d.update(dir, func(m *domain.DirManifest) bool {
		return insertSorted(&m.EdgeFiles, filename)
	})
}

// RemoveEntry unlists filename from dir and reports whether it was listed.
// Removing an absent name is a no-op.
func (d *DirIndex) RemoveEntry(dir, filename string) (bool, error) {
	return d.update(dir, func(m *domain.DirManifest) bool {
		return removeName(&m.EdgeFiles, filename)
	})
}

// AddSubdir lists name as a child directory of dir
func (d *DirIndex) AddSubdir(dir, name string) error {
	_, err := d.update(dir, func(m *domain.DirManifest) bool {
		return insertSorted(&m.Subdirectories, name)
	})
	return err
}

// RemoveSubdir unlists the child directory name from dir
func (d *DirIndex) RemoveSubdir(dir, name string) error {
	_, err := d.update(dir, func(m *domain.DirManifest) bool {
		return removeName(&m.Subdirectories, name)
	})
	return err
}

// ListEntries returns the edge files listed directly in dir
func (d *DirIndex) ListEntries(dir string) ([]string, error) {
	m, err := d.Manifest(dir)
	if err != nil {
		return nil, err
	}
	return m.EdgeFiles, nil
}

// CollectAll returns the paths of every edge file listed at or below root,
// following child directories through the manifests only
func (d *DirIndex) CollectAll(root string) ([]string, error) {
	var paths []string
	var walk func(dir string) error
	walk = func(dir string) error {
		m, err := d.Manifest(dir)
		if err != nil {
			return err
		}
		for _, name := range m.EdgeFiles {
			paths = append(paths, filepath.Join(dir, name))
		}
		for _, sub := range m.Subdirectories {
			if err := walk(filepath.Join(dir, sub)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return paths, nil
}

// Count returns the number of edge files listed at or below root
func (d *DirIndex) Count(root string) (int, error) {
	paths, err := d.CollectAll(root)
	return len(paths), err
}

// Link lists filename in leaf and registers every directory between root
// and leaf in its parent's manifest. leaf must be root or below it. The
// result reports whether filename was newly listed.
func (d *DirIndex) Link(root, leaf, filename string) (bool, error) {
	if err := checkWithin(root, leaf); err != nil {
		return false, err
	}
	added, err := d.AddEntry(leaf, filename)
	if err != nil {
		return false, err
	}
	for dir := leaf; dir != root; dir = filepath.Dir(dir) {
		if err := d.AddSubdir(filepath.Dir(dir), filepath.Base(dir)); err != nil {
			return added, err
		}
	}
	return added, nil
}

// Unlink removes filename from leaf and prunes every directory between
// leaf and root (inclusive) that is left with an empty manifest. Directories
// above root are shared with other nodes and are never pruned. The result
// reports whether filename was listed.
func (d *DirIndex) Unlink(root, leaf, filename string) (bool, error) {
	if err := checkWithin(root, leaf); err != nil {
		return false, err
	}
	removed, err := d.RemoveEntry(leaf, filename)
	if err != nil {
		return false, err
	}
	return removed, d.prune(root, leaf)
}

// prune removes empty directories from leaf up to and including root
func (d *DirIndex) prune(root, leaf string) error {
	for dir := leaf; ; dir = filepath.Dir(dir) {
		m, err := d.Manifest(dir)
		if err != nil {
			return err
		}
		if !m.IsEmpty() {
			return nil
		}
		if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			// Unlisted content keeps the directory alive; leave it listed
			// in its parent so the manifests still describe the disk.
			d.log.WithField("action", "prune_edge_dir").
				WithField("path", dir).
				WithError(err).
				Debug("edge directory not pruned")
			return nil
		}
		if dir == root {
			return nil
		}
		if err := d.RemoveSubdir(filepath.Dir(dir), filepath.Base(dir)); err != nil {
			return err
		}
	}
}

func checkWithin(root, leaf string) error {
	rel, err := filepath.Rel(root, leaf)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("directory %s is not below %s", leaf, root)
	}
	return nil
}

func insertSorted(names *[]string, name string) bool {
	i, found := slices.BinarySearch(*names, name)
	if found {
		return false
	}
	*names = slices.Insert(*names, i, name)
	return true
}

func removeName(names *[]string, name string) bool {
	i := slices.Index(*names, name)
	if i < 0 {
		return false
	}
	*names = slices.Delete(*names, i, i+1)
	return true
}
