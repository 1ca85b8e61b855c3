package filesystem

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphvault/internal/domain"
)

func openTestGlobalIndex(t *testing.T, path, format string) *GlobalIndex {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	g, err := OpenGlobalIndex(path, format, log)
	require.NoError(t, err)
	return g
}

func TestGlobalIndex_PersistsRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.IndexFileName)
	g := openTestGlobalIndex(t, path, "json")

	require.NoError(t, g.Upsert(
		domain.RegistryEntry{NodeID: 2, FilePath: "b"},
		domain.RegistryEntry{NodeID: 1, FilePath: "a"},
	))
	require.NoError(t, g.Adjust(CountChange{NodeID: 1, Out: 2}, CountChange{NodeID: 2, In: 2}, CountChange{NodeID: 9, Out: 1}))
	require.NoError(t, g.Adjust(CountChange{NodeID: 1, Out: -5}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var reg domain.Registry
	require.NoError(t, json.Unmarshal(data, &reg))

	want := domain.Registry{
		RecordFormat: "json",
		Revision:     4,
		TotalNodes:   2,
		TotalEdges:   0,
		Nodes: []domain.RegistryEntry{
			{NodeID: 1, FilePath: "a"},
			{NodeID: 2, FilePath: "b", InEdgeCount: 2},
		},
	}
	if diff := cmp.Diff(want, reg); diff != "" {
		t.Errorf("registry mismatch (-want +got):\n%s", diff)
	}

	reopened := openTestGlobalIndex(t, path, "json")
	assert.Equal(t, []int64{1, 2}, reopened.AllNodeIDs())

	removed, err := reopened.Remove(1)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = reopened.Remove(1)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, domain.Totals{Nodes: 1}, reopened.Totals())
}

func TestGlobalIndex_Revision(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.IndexFileName)
	g := openTestGlobalIndex(t, path, "json")
	start := g.Revision()

	require.NoError(t, g.Upsert(domain.RegistryEntry{NodeID: 1, FilePath: "a"}))
	require.NoError(t, g.Adjust(CountChange{NodeID: 7, Out: 1}))
	assert.Equal(t, start+1, g.Revision(), "a no-op adjust persists nothing")

	require.NoError(t, g.Touch())
	assert.Equal(t, start+2, g.Revision())
	assert.Equal(t, start+2, openTestGlobalIndex(t, path, "json").Revision())

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0755))
	assert.Error(t, g.Touch())
	assert.Equal(t, start+2, g.Revision())
}

func TestGlobalIndex_FormatPinning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, domain.IndexFileName)
	openTestGlobalIndex(t, path, "msgpack")

	_, err := OpenGlobalIndex(path, "json", logrus.New())
	assert.ErrorIs(t, err, domain.ErrFormatMismatch)

	// an unpinned registry adopts the configured format
	legacy := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{"totalNodes":0,"totalEdges":0,"nodes":[]}`), 0644))
	g := openTestGlobalIndex(t, legacy, "json")
	assert.Equal(t, "json", g.Format())
}

func TestGlobalIndex_FailedPersistKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.IndexFileName)
	g := openTestGlobalIndex(t, path, "json")
	require.NoError(t, g.Upsert(domain.RegistryEntry{NodeID: 1, FilePath: "a", EdgeCount: 1}))

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0755))

	assert.Error(t, g.Upsert(domain.RegistryEntry{NodeID: 2, FilePath: "b"}))
	assert.Error(t, g.Adjust(CountChange{NodeID: 1, Out: 3}))
	_, err := g.Remove(1)
	assert.Error(t, err)

	assert.Equal(t, []int64{1}, g.AllNodeIDs())
	e, ok := g.Get(1)
	require.True(t, ok)
	assert.Equal(t, 1, e.EdgeCount)
}

func TestGlobalIndex_CorruptManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), domain.IndexFileName)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := OpenGlobalIndex(path, "json", logrus.New())
	assert.ErrorIs(t, err, domain.ErrCorrupt)
}
