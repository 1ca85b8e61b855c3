package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphvault/internal/adapters/filesystem"
	"graphvault/internal/application/commands"
	"graphvault/internal/domain"
)

func newTestCatalog(t *testing.T) (*Catalog, *filesystem.Store) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	dataPath := t.TempDir()
	store, err := filesystem.Open(dataPath, filesystem.Options{})
	require.NoError(t, err)

	c := NewCatalog(nil)
	require.NoError(t, c.Open(dataPath))
	t.Cleanup(func() { c.Close() })
	return c, store
}

func seed(t *testing.T, store *filesystem.Store) {
	t.Helper()
	hub := domain.NewNode(1, "Socrates is a man")
	hub.Type = domain.NodeTypeSIMO
	require.NoError(t, store.SaveBatch(domain.Batch{
		Nodes: []domain.Node{
			hub,
			domain.NewNode(2, "All men are mortal"),
			domain.NewNode(3, "Socrates is mortal"),
			domain.NewNode(4, "100%_literal"),
		},
		Edges: []domain.Edge{
			domain.NewEdge(1, 3, 0.9, "premise"),
			domain.NewEdge(2, 3, 0.8, "premise"),
			domain.NewEdge(1, 2, 0.1, "related"),
		},
	}))
}

func TestCatalog_SyncAndQuery(t *testing.T) {
	c, store := newTestCatalog(t)
	seed(t, store)

	assert.True(t, c.NeedsFullRebuild(store.Revision()))
	stats, err := c.SyncFull(store)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.NodesAdded)
	assert.Equal(t, 3, stats.EdgesAdded)
	assert.Zero(t, stats.RecordErrors)
	assert.False(t, c.NeedsFullRebuild(store.Revision()))

	n, err := c.GetNode(1)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, domain.NodeTypeSIMO, n.Type)
	assert.Equal(t, 2, n.EdgeCount)
	assert.Equal(t, 0, n.InEdgeCount)
	assert.Equal(t, store.Registry()[0].FilePath, n.FilePath)

	missing, err := c.GetNode(99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	found, err := c.SearchNodes("MORTAL")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, catalogIDs(found))

	literal, err := c.SearchNodes("0%_")
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, catalogIDs(literal))

	top, err := c.TopNodes(2)
	require.NoError(t, err)
	// 1, 2 and 3 all touch two edges; ties go by ID
	assert.Equal(t, []int64{1, 2}, catalogIDs(top))

	edges, err := c.EdgesTo(3)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, int64(1), edges[0].From)
	assert.Equal(t, int64(2), edges[1].From)
	assert.Equal(t, 0.8, edges[1].Weight)
}

func TestCatalog_ResyncReplacesContent(t *testing.T) {
	c, store := newTestCatalog(t)
	seed(t, store)
	_, err := c.SyncFull(store)
	require.NoError(t, err)

	_, err = store.DeleteNode(3)
	require.NoError(t, err)
	stats, err := c.SyncFull(store)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.NodesAdded)
	assert.Equal(t, 1, stats.EdgesAdded)

	edges, err := c.EdgesTo(3)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestCatalog_StaleAfterStoreWrite(t *testing.T) {
	ctx := context.Background()
	c, store := newTestCatalog(t)
	seed(t, store)

	res, err := commands.NewSyncCatalogCommand(store, c, false).Execute(ctx)
	require.NoError(t, err)
	require.False(t, res.Skipped)
	res, err = commands.NewSyncCatalogCommand(store, c, false).Execute(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	_, err = store.DeleteNode(3)
	require.NoError(t, err)
	assert.True(t, c.NeedsFullRebuild(store.Revision()))

	res, err = commands.NewSyncCatalogCommand(store, c, false).Execute(ctx)
	require.NoError(t, err)
	require.False(t, res.Skipped)
	found, err := c.SearchNodes("mortal")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, catalogIDs(found))

	t.Run("edge overwrite", func(t *testing.T) {
		require.NoError(t, store.SaveEdge(domain.NewEdge(1, 2, 0.7, "related")))
		assert.True(t, c.NeedsFullRebuild(store.Revision()))

		_, err := c.SyncFull(store)
		require.NoError(t, err)
		assert.False(t, c.NeedsFullRebuild(store.Revision()))
	})

	t.Run("reopened store", func(t *testing.T) {
		reopened, err := filesystem.Open(store.Layout().Root, filesystem.Options{})
		require.NoError(t, err)
		assert.Equal(t, store.Revision(), reopened.Revision())
		assert.False(t, c.NeedsFullRebuild(reopened.Revision()))
	})
}

func TestCatalog_SkipsUnreadableRecords(t *testing.T) {
	c, store := newTestCatalog(t)
	seed(t, store)

	nodePath, err := store.Layout().NodePath(4)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(nodePath, []byte("{"), 0644))
	edgePath, err := store.Layout().EdgePath(1, 3, domain.Outgoing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(edgePath, []byte("{"), 0644))

	stats, err := c.SyncFull(store)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.NodesAdded)
	assert.Equal(t, 2, stats.EdgesAdded)
	assert.Equal(t, 2, stats.RecordErrors)
}

func TestDatabasePath(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	a := DatabasePath("/data/a")
	assert.Equal(t, filepath.Join(dataHome, "graphvault"), filepath.Dir(a))
	assert.NotEqual(t, a, DatabasePath("/data/b"))
	assert.Equal(t, a, DatabasePath("/data/a"))
}

func catalogIDs(nodes []domain.CatalogNode) []int64 {
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}
