package commands

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"graphvault/internal/application"
	"graphvault/internal/domain"
)

const sampleBatch = `
nodes:
  - id: 1
    type: simo
    content: Socrates is a man
    properties:
      source: wiki
      confidence: 0.9
      meta:
        reviewed: true
  - id: 2
    content: All men are mortal
edges:
  - from: 1
    to: 2
    weight: 0.5
    content: supports
`

func TestParseBatch(t *testing.T) {
	batch, err := ParseBatch(strings.NewReader(sampleBatch))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Nodes) != 2 || len(batch.Edges) != 1 {
		t.Fatalf("expected 2 nodes and 1 edge, got %d and %d", len(batch.Nodes), len(batch.Edges))
	}

	n := batch.Nodes[0]
	if n.Type != domain.NodeTypeSIMO || n.Version != domain.LatestNodeVersion {
		t.Errorf("unexpected node %+v", n)
	}
	if c, ok := n.Properties["confidence"].AsNumber(); !ok || c != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", n.Properties["confidence"])
	}
	meta, ok := n.Properties["meta"].AsMap()
	if !ok {
		t.Fatalf("expected meta map, got %v", n.Properties["meta"])
	}
	if r, ok := meta["reviewed"].AsBool(); !ok || !r {
		t.Errorf("expected reviewed=true, got %v", meta["reviewed"])
	}
	if batch.Nodes[1].Type != domain.NodeTypeStandard {
		t.Errorf("expected default Standard type, got %v", batch.Nodes[1].Type)
	}

	e := batch.Edges[0]
	if e.From != 1 || e.To != 2 || e.Weight != 0.5 || e.Content != "supports" {
		t.Errorf("unexpected edge %+v", e)
	}
}

func TestParseBatch_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown field", doc: "nodes:\n  - id: 1\n    colour: red\n"},
		{name: "unknown type", doc: "nodes:\n  - id: 1\n    type: hub\n"},
		{name: "not yaml", doc: "nodes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseBatch(strings.NewReader(tt.doc)); !errors.Is(err, application.ErrInvalidInput) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestSaveBatchCommand(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := NewSaveBatchCommand(store, domain.Batch{}).Execute(ctx); !errors.Is(err, application.ErrInvalidInput) {
		t.Errorf("expected empty batch to be rejected, got %v", err)
	}

	batch, err := ParseBatch(strings.NewReader(sampleBatch))
	if err != nil {
		t.Fatal(err)
	}
	res, err := NewSaveBatchCommand(store, batch).Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Saved 2 nodes and 1 edges" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if got := store.Totals(); got != (domain.Totals{Nodes: 2, Edges: 1}) {
		t.Errorf("unexpected totals %+v", got)
	}

	bad := domain.Batch{Edges: []domain.Edge{domain.NewEdge(1, 99, 1, "dangling")}}
	if _, err := NewSaveBatchCommand(store, bad).Execute(ctx); !errors.Is(err, application.ErrMissingEndpoint) {
		t.Errorf("expected missing endpoint, got %v", err)
	}
}

func TestInitAndStatsCommands(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	res, err := NewInitCommand(store).Execute(ctx)
	if err != nil || res.Created {
		t.Fatalf("expected existing index, got %+v (%v)", res, err)
	}
	if err := os.Remove(store.Layout().GlobalIndexPath()); err != nil {
		t.Fatal(err)
	}
	res, err = NewInitCommand(store).Execute(ctx)
	if err != nil || !res.Created {
		t.Fatalf("expected index to be recreated, got %+v (%v)", res, err)
	}

	if _, err := NewSaveNodeCommand(store, 1, "a").Execute(ctx); err != nil {
		t.Fatal(err)
	}
	stats, err := NewStatsCommand(store).Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Format != "json" || stats.Totals.Nodes != 1 || stats.Root != store.Layout().Root {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestPathCommand(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	layout := store.Layout()

	got, err := NewNodePathCommand(store, 42).Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := layout.NodePath(42)
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	got, err = NewEdgePathCommand(store, 1, 2, domain.Incoming).Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want, _ = layout.EdgePath(1, 2, domain.Incoming)
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	if _, err := NewEdgePathCommand(store, 1, -2, domain.Outgoing).Execute(ctx); !errors.Is(err, application.ErrInvalidID) {
		t.Errorf("expected invalid ID, got %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, id := range []int64{1, 2} {
		if _, err := NewSaveNodeCommand(store, id, "n").Execute(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := NewSaveEdgeCommand(store, 1, 2, 1, "e").Execute(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := NewCheckCommand(store, false).Execute(ctx)
	if err != nil || !res.Report.OK() {
		t.Fatalf("expected clean store, got %+v (%v)", res, err)
	}

	in, _ := store.Layout().EdgePath(1, 2, domain.Incoming)
	if err := os.Remove(in); err != nil {
		t.Fatal(err)
	}

	res, err = NewCheckCommand(store, false).Execute(ctx)
	if err != nil || res.Report.OK() || res.Repair != nil {
		t.Fatalf("expected findings without repair, got %+v (%v)", res, err)
	}

	res, err = NewCheckCommand(store, true).Execute(ctx)
	if err != nil {
		t.Fatalf("repair failed: %v", err)
	}
	if res.Repair == nil || res.Repair.Fixed == 0 || !res.After.OK() {
		t.Errorf("expected a clean store after repair, got %+v", res)
	}
	if _, err := os.Stat(in); err != nil {
		t.Errorf("expected incoming mirror to be restored: %v", err)
	}
}
