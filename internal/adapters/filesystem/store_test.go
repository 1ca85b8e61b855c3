package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphvault/internal/adapters/codec"
	"graphvault/internal/domain"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), opts)
	require.NoError(t, err)
	return s
}

func saveNodes(t *testing.T, s *Store, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.SaveNode(domain.NewNode(id, fmt.Sprintf("node %d", id))))
	}
}

func edgeKeys(edges []domain.Edge) []domain.EdgeKey {
	keys := make([]domain.EdgeKey, 0, len(edges))
	for _, e := range edges {
		keys = append(keys, e.Key())
	}
	return keys
}

func TestStore_AlphaBetaScenario(t *testing.T) {
	s := newTestStore(t, Options{})

	require.NoError(t, s.SaveNode(domain.NewNode(1, "Alpha")))
	require.NoError(t, s.SaveNode(domain.NewNode(2, "Beta")))
	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 2, 1.5, "link")))

	out, err := s.LoadEdges(1, domain.Outgoing)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].To)
	assert.Equal(t, 1.5, out[0].Weight)
	assert.Equal(t, "link", out[0].Content)

	in, err := s.LoadEdges(2, domain.Incoming)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, int64(1), in[0].From)
	assert.Equal(t, 1.5, in[0].Weight)
	assert.Equal(t, "link", in[0].Content)

	assert.Equal(t, domain.Totals{Nodes: 2, Edges: 1}, s.Totals())

	deleted, err := s.DeleteNode(1)
	require.NoError(t, err)
	assert.True(t, deleted)

	out, err = s.LoadEdges(1, domain.Outgoing)
	require.NoError(t, err)
	assert.Empty(t, out)
	in, err = s.LoadEdges(2, domain.Incoming)
	require.NoError(t, err)
	assert.Empty(t, in)

	ids, err := s.AllNodeIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
	assert.Equal(t, domain.Totals{Nodes: 1, Edges: 0}, s.Totals())
}

func TestStore_NodeRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts Options
	}{
		{"json", Options{}},
		{"json cached", Options{CacheSize: 16}},
		{"msgpack", Options{Codec: codec.Msgpack()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t, tc.opts)

			node := domain.NewNode(9876543210, "Gamma")
			node.Type = domain.NodeTypeMISO
			node.Properties = domain.Properties{
				"source": domain.String("import"),
				"score":  domain.Number(0.25),
				"nested": domain.Map(map[string]domain.Value{"ok": domain.Bool(true)}),
			}
			require.NoError(t, s.SaveNode(node))

			// twice, so the cached path is exercised when enabled
			for range 2 {
				got, err := s.LoadNode(node.ID)
				require.NoError(t, err)
				require.NotNil(t, got)
				if diff := cmp.Diff(node, *got); diff != "" {
					t.Errorf("LoadNode mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestStore_LoadNodeMissing(t *testing.T) {
	s := newTestStore(t, Options{})

	got, err := s.LoadNode(42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_InvalidIDs(t *testing.T) {
	s := newTestStore(t, Options{})

	err := s.SaveNode(domain.NewNode(-1, "neg"))
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = s.LoadNode(-5)
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = s.DeleteEdge(-1, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_NodeFileLayout(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 42)

	want := filepath.Join(s.Layout().Root, "0000", "00000000", "000000000000", "0000000000000042.json")
	_, err := os.Stat(want)
	require.NoError(t, err)

	reg := s.Registry()
	require.Len(t, reg, 1)
	assert.Equal(t, "0000/00000000/000000000000/0000000000000042.json", reg[0].FilePath)
}

func TestStore_LoadNodeUpgradesVersion1(t *testing.T) {
	s := newTestStore(t, Options{})
	c := codec.JSON()

	path, err := s.Layout().NodePath(7)
	require.NoError(t, err)
	data, err := c.EncodeNodeVersion(domain.NodeV1{ID: 7, Content: "legacy"})
	require.NoError(t, err)
	require.NoError(t, writeFileAtomic(path, data))

	got, err := s.LoadNode(7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.NodeTypeStandard, got.Type)
	assert.Equal(t, domain.LatestNodeVersion, got.Version)
	assert.Equal(t, "legacy", got.Content)
}

func TestStore_LoadNodeCorrupt(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 3)

	path, err := s.Layout().NodePath(3)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err = s.LoadNode(3)
	assert.ErrorIs(t, err, domain.ErrCorrupt)

	var corrupt *domain.CorruptionError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, path, corrupt.Path)
}

func TestStore_MirrorConsistency(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1, 2, 3)

	edge := domain.NewEdge(1, 3, 0.75, "knows")
	edge.Properties = domain.Properties{"since": domain.Number(2020)}
	require.NoError(t, s.SaveEdge(edge))
	require.NoError(t, s.SaveEdge(domain.NewEdge(2, 3, 2, "likes")))

	out, err := s.LoadEdges(1, domain.Outgoing)
	require.NoError(t, err)
	in, err := s.FindEdgesByDestination(3)
	require.NoError(t, err)

	require.Len(t, out, 1)
	require.Len(t, in, 2)
	var match *domain.Edge
	for i := range in {
		if in[i].Key() == edge.Key() {
			match = &in[i]
		}
	}
	require.NotNil(t, match)
	if diff := cmp.Diff(out[0], *match); diff != "" {
		t.Errorf("mirrors differ (-outgoing +incoming):\n%s", diff)
	}

	outPath, err := s.Layout().EdgePath(1, 3, domain.Outgoing)
	require.NoError(t, err)
	inPath, err := s.Layout().EdgePath(1, 3, domain.Incoming)
	require.NoError(t, err)
	outBytes, err := os.ReadFile(outPath)
	require.NoError(t, err)
	inBytes, err := os.ReadFile(inPath)
	require.NoError(t, err)
	assert.Equal(t, outBytes, inBytes)
}

func TestStore_SaveEdgeOverwrites(t *testing.T) {
	s := newTestStore(t, Options{CacheSize: 8})
	saveNodes(t, s, 1, 2)

	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 2, 1, "first")))
	_, err := s.LoadEdges(1, domain.Outgoing)
	require.NoError(t, err)
	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 2, 3, "second")))

	out, err := s.LoadEdges(1, domain.Outgoing)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "second", out[0].Content)
	assert.Equal(t, 3.0, out[0].Weight)

	assert.Equal(t, domain.Totals{Nodes: 2, Edges: 1}, s.Totals())
	reg := s.Registry()
	assert.Equal(t, 1, reg[0].EdgeCount)
	assert.Equal(t, 1, reg[1].InEdgeCount)
}

func TestStore_SaveEdgeMissingEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		from, to int64
		missing  int64
		role     string
	}{
		{"missing source", 9, 1, 9, "source"},
		{"missing destination", 1, 9, 9, "destination"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t, Options{})
			saveNodes(t, s, 1)

			err := s.SaveEdge(domain.NewEdge(tc.from, tc.to, 1, "dangling"))
			require.ErrorIs(t, err, domain.ErrMissingEndpoint)

			var missing *domain.MissingEndpointError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tc.missing, missing.NodeID)
			assert.Equal(t, tc.role, missing.Role)

			_, statErr := os.Stat(filepath.Join(s.Layout().Root, domain.EdgesDirName))
			assert.True(t, os.IsNotExist(statErr), "no edge files may be written")
			assert.Equal(t, domain.Totals{Nodes: 1}, s.Totals())
		})
	}
}

func TestStore_DeleteEdge(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1, 2)
	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 2, 1, "x")))

	deleted, err := s.DeleteEdge(1, 2)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteEdge(1, 2)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteEdge(2, 1)
	require.NoError(t, err)
	assert.False(t, deleted)

	// the owned subtrees are pruned once empty
	for _, tc := range []struct {
		id  int64
		dir domain.Direction
	}{{1, domain.Outgoing}, {2, domain.Incoming}} {
		dir, err := s.Layout().EdgeDir(tc.id, tc.dir)
		require.NoError(t, err)
		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr), "%s should be pruned", dir)
	}
	assert.Equal(t, domain.Totals{Nodes: 2}, s.Totals())
}

func TestStore_DeleteNodeCascades(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1, 2, 3)
	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 2, 1, "out")))
	require.NoError(t, s.SaveEdge(domain.NewEdge(3, 1, 1, "in")))
	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 1, 1, "loop")))
	require.NoError(t, s.SaveEdge(domain.NewEdge(2, 3, 1, "keep")))

	deleted, err := s.DeleteNode(1)
	require.NoError(t, err)
	require.True(t, deleted)

	for _, id := range []int64{1, 2, 3} {
		for _, dir := range []domain.Direction{domain.Outgoing, domain.Incoming} {
			edges, err := s.LoadEdges(id, dir)
			require.NoError(t, err)
			for _, e := range edges {
				assert.NotEqual(t, int64(1), e.From, "edge %s still references node 1", e.Key())
				assert.NotEqual(t, int64(1), e.To, "edge %s still references node 1", e.Key())
			}
		}
	}

	out, err := s.LoadEdges(2, domain.Outgoing)
	require.NoError(t, err)
	assert.Equal(t, []domain.EdgeKey{{From: 2, To: 3}}, edgeKeys(out))

	got, err := s.LoadNode(1)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, domain.Totals{Nodes: 2, Edges: 1}, s.Totals())
	report, err := s.Check()
	require.NoError(t, err)
	assert.True(t, report.OK(), "findings: %v", report.Findings)
}

func TestStore_DeleteNodeRebuildsCorruptManifest(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1, 2)
	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 2, 1, "out")))

	edgeDir, err := s.Layout().EdgeDir(1, domain.Outgoing)
	require.NoError(t, err)
	manifest := filepath.Join(edgeDir, domain.IndexFileName)
	require.FileExists(t, manifest)
	require.NoError(t, os.WriteFile(manifest, []byte("{"), 0644))

	deleted, err := s.DeleteNode(1)
	require.NoError(t, err)
	require.True(t, deleted)

	in, err := s.LoadEdges(2, domain.Incoming)
	require.NoError(t, err)
	assert.Empty(t, in)
	assert.Equal(t, domain.Totals{Nodes: 1}, s.Totals())

	report, err := s.Check()
	require.NoError(t, err)
	assert.True(t, report.OK(), "findings: %v", report.Findings)
}

func TestStore_DeleteNodeMissing(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1)

	deleted, err := s.DeleteNode(2)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, domain.Totals{Nodes: 1}, s.Totals())
}

func TestStore_ResaveNodeKeepsEdgeCounts(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1, 2)
	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 2, 1, "x")))

	require.NoError(t, s.SaveNode(domain.NewNode(1, "renamed")))
	require.NoError(t, s.SaveNode(domain.NewNode(2, "renamed")))

	reg := s.Registry()
	require.Len(t, reg, 2)
	assert.Equal(t, 1, reg[0].EdgeCount)
	assert.Equal(t, 1, reg[1].InEdgeCount)
	assert.Equal(t, 1, s.Totals().Edges)
}

func TestStore_LoadEdgesSkipsCorruptRecords(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1, 2, 3)
	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 2, 1, "good")))
	require.NoError(t, s.SaveEdge(domain.NewEdge(1, 3, 1, "bad")))

	path, err := s.Layout().EdgePath(1, 3, domain.Outgoing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "edge": {}}`), 0644))

	edges, err := s.LoadEdges(1, domain.Outgoing)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorrupt)
	assert.ErrorIs(t, err, domain.ErrUnsupportedVersion)
	assert.Equal(t, []domain.EdgeKey{{From: 1, To: 2}}, edgeKeys(edges))
}

func TestStore_SaveEdgeRollsBackWhenIncomingFails(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1, 2)

	// a file where node 2's incoming subtree belongs blocks the mirror write
	blocked, err := s.Layout().EdgeDir(2, domain.Incoming)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(blocked), 0755))
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0644))

	err = s.SaveEdge(domain.NewEdge(1, 2, 1, "x"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrPartialWrite), "rolled back writes are not partial: %v", err)

	outDir, err := s.Layout().EdgeDir(1, domain.Outgoing)
	require.NoError(t, err)
	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "outgoing mirror should be rolled back")
	assert.Equal(t, domain.Totals{Nodes: 2}, s.Totals())
}

func TestStore_SaveEdgeReportsPartialWrite(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1, 2)

	// every registry update now fails after both mirrors are written
	breakGlobalIndex(t, s)

	err := s.SaveEdge(domain.NewEdge(1, 2, 1, "x"))
	require.ErrorIs(t, err, domain.ErrPartialWrite)

	var partial *domain.PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, domain.StageGlobalIndex, partial.Stage)
	assert.Len(t, partial.Written, 2)

	// the registry was left untouched in memory
	assert.Equal(t, domain.Totals{Nodes: 2}, s.Totals())
}

// breakGlobalIndex puts a directory in place of the root manifest so that
// every later registry update fails
func breakGlobalIndex(t *testing.T, s *Store) {
	t.Helper()
	index := s.Layout().GlobalIndexPath()
	require.NoError(t, os.Remove(index))
	require.NoError(t, os.Mkdir(index, 0755))
}

func TestStore_NodeWritesRollBackWhenRegistryFails(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1)
	breakGlobalIndex(t, s)

	t.Run("new node", func(t *testing.T) {
		err := s.SaveNode(domain.NewNode(5, "x"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrPartialWrite)

		got, err := s.LoadNode(5)
		require.NoError(t, err)
		assert.Nil(t, got, "node file should be removed again")
	})

	t.Run("resave", func(t *testing.T) {
		err := s.SaveNode(domain.NewNode(1, "renamed"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrPartialWrite)

		got, err := s.LoadNode(1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "node 1", got.Content)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := s.DeleteNode(1)
		require.Error(t, err)
		assert.False(t, deleted)
		assert.NotErrorIs(t, err, domain.ErrPartialWrite)

		got, err := s.LoadNode(1)
		require.NoError(t, err)
		require.NotNil(t, got, "node file should be restored")
		assert.Equal(t, "node 1", got.Content)
	})

	ids, err := s.AllNodeIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
	assert.Equal(t, domain.Totals{Nodes: 1}, s.Totals())
}

func TestPartialWriteError_NodeMessage(t *testing.T) {
	err := &domain.PartialWriteError{
		Kind: domain.RecordNode, From: 5, To: 5,
		Stage: domain.StageGlobalIndex, Written: []string{"n"},
		Err: errors.New("disk full"),
	}
	assert.Equal(t, "partial write of node 5 failed at global-index: disk full (written: n)", err.Error())
	assert.ErrorIs(t, err, domain.ErrPartialWrite)
}

func TestOpen_FormatMismatch(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, Options{})
	require.NoError(t, err)
	saveNodes(t, s, 1)

	_, err = Open(root, Options{Codec: codec.Msgpack()})
	assert.ErrorIs(t, err, domain.ErrFormatMismatch)

	reopened, err := Open(root, Options{Codec: codec.JSON()})
	require.NoError(t, err)
	assert.Equal(t, domain.Totals{Nodes: 1}, reopened.Totals())
}

func TestStore_InitRecreatesGlobalIndex(t *testing.T) {
	s := newTestStore(t, Options{})
	saveNodes(t, s, 1)

	created, err := s.Init()
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, os.Remove(s.Layout().GlobalIndexPath()))
	created, err = s.Init()
	require.NoError(t, err)
	assert.True(t, created)

	reopened, err := Open(s.Layout().Root, Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.Totals{Nodes: 1}, reopened.Totals())
}

func TestStore_ConcurrentEdgeSaves(t *testing.T) {
	s := newTestStore(t, Options{CacheSize: 32})
	const n = 12
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i * 1000003)
	}
	saveNodes(t, s, ids...)

	var wg sync.WaitGroup
	errs := make(chan error, n*n)
	for _, from := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, to := range ids {
				if err := s.SaveEdge(domain.NewEdge(from, to, 1, "c")); err != nil {
					errs <- err
				}
				if _, err := s.LoadEdges(to, domain.Incoming); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	assert.Equal(t, domain.Totals{Nodes: n, Edges: n * n}, s.Totals())
	for _, id := range ids {
		in, err := s.FindEdgesByDestination(id)
		require.NoError(t, err)
		assert.Len(t, in, n)
	}

	report, err := s.Check()
	require.NoError(t, err)
	assert.True(t, report.OK(), "findings: %v", report.Findings)
}
