package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphvault/internal/domain"
)

func newTestDirIndex() *DirIndex {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewDirIndex(log)
}

func TestDirIndex_AddRemoveIdempotent(t *testing.T) {
	d := newTestDirIndex()
	dir := t.TempDir()

	added, err := d.AddEntry(dir, "b.json")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = d.AddEntry(dir, "a.json")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = d.AddEntry(dir, "b.json")
	require.NoError(t, err)
	assert.False(t, added)

	entries, err := d.ListEntries(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, entries)

	removed, err := d.RemoveEntry(dir, "missing.json")
	require.NoError(t, err)
	assert.False(t, removed)

	for _, name := range []string{"a.json", "b.json"} {
		removed, err = d.RemoveEntry(dir, name)
		require.NoError(t, err)
		assert.True(t, removed)
	}

	_, err = os.Stat(filepath.Join(dir, domain.IndexFileName))
	assert.True(t, os.IsNotExist(err), "an empty manifest is removed")
}

func TestDirIndex_LinkCollectUnlink(t *testing.T) {
	d := newTestDirIndex()
	root := filepath.Join(t.TempDir(), "owner")
	leafA := filepath.Join(root, "x1", "x2", "x3")
	leafB := filepath.Join(root, "x1", "y2", "y3")

	for _, tc := range []struct{ leaf, name string }{
		{leafA, "e1.json"},
		{leafA, "e2.json"},
		{leafB, "e3.json"},
	} {
		require.NoError(t, os.MkdirAll(tc.leaf, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(tc.leaf, tc.name), nil, 0644))
		added, err := d.Link(root, tc.leaf, tc.name)
		require.NoError(t, err)
		assert.True(t, added)
	}

	m, err := d.Manifest(filepath.Join(root, "x1"))
	require.NoError(t, err)
	if diff := cmp.Diff(&domain.DirManifest{Subdirectories: []string{"x2", "y2"}}, m); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}

	paths, err := d.CollectAll(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(leafA, "e1.json"),
		filepath.Join(leafA, "e2.json"),
		filepath.Join(leafB, "e3.json"),
	}, paths)

	// removing the last file of a branch prunes it, the sibling stays
	require.NoError(t, os.Remove(filepath.Join(leafB, "e3.json")))
	removed, err := d.Unlink(root, leafB, "e3.json")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = os.Stat(filepath.Join(root, "x1", "y2"))
	assert.True(t, os.IsNotExist(err))

	count, err := d.Count(root)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, name := range []string{"e1.json", "e2.json"} {
		require.NoError(t, os.Remove(filepath.Join(leafA, name)))
		_, err := d.Unlink(root, leafA, name)
		require.NoError(t, err)
	}
	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err), "the owned root is pruned once empty")
	_, err = os.Stat(filepath.Dir(root))
	assert.NoError(t, err, "directories above the root are kept")
}

func TestDirIndex_UnlinkKeepsDirWithUnlistedFiles(t *testing.T) {
	d := newTestDirIndex()
	root := t.TempDir()
	leaf := filepath.Join(root, "a")
	require.NoError(t, os.MkdirAll(leaf, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(leaf, "stray.json"), nil, 0644))

	_, err := d.Link(root, leaf, "e.json")
	require.NoError(t, err)
	_, err = d.Unlink(root, leaf, "e.json")
	require.NoError(t, err)

	_, err = os.Stat(leaf)
	assert.NoError(t, err)
	m, err := d.Manifest(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, m.Subdirectories)
}

func TestDirIndex_RejectsLeafOutsideRoot(t *testing.T) {
	d := newTestDirIndex()
	base := t.TempDir()

	_, err := d.Link(filepath.Join(base, "root"), filepath.Join(base, "other"), "e.json")
	assert.Error(t, err)
}

func TestDirIndex_CorruptManifest(t *testing.T) {
	d := newTestDirIndex()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.IndexFileName), []byte("{"), 0644))

	_, err := d.ListEntries(dir)
	assert.ErrorIs(t, err, domain.ErrCorrupt)
}
