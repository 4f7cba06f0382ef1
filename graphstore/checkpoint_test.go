package graphstore_test

import (
	"testing"

	"github.com/llama-mlcsr/llama/fixture"
	"github.com/llama-mlcsr/llama/graphstore"
	"github.com/llama-mlcsr/llama/mlcsr"
)

func TestCheckpointBuildsExpectedDegreesAndAdjacency(t *testing.T) {
	g := graphstore.NewGraph(graphstore.LoaderConfig{}, mlcsr.DefaultConfig())

	b := fixture.NewBuilder()
	b.AddEdge(0, 1, nil)
	b.AddEdge(0, 2, nil)
	b.AddEdge(1, 2, nil)

	if err := g.Checkpoint(b.Source(false)); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	out := g.Out()
	latestLevel, _ := out.VertexLevels().LatestLevel()

	if d := out.Degree(latestLevel, 0); d != 2 {
		t.Fatalf("degree(0) = %d, want 2", d)
	}
	if d := out.Degree(latestLevel, 1); d != 1 {
		t.Fatalf("degree(1) = %d, want 1", d)
	}
	if d := out.Degree(latestLevel, 2); d != 0 {
		t.Fatalf("degree(2) = %d, want 0", d)
	}

	it := out.IterBegin(0, latestLevel)
	count := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("neighbor count of 0 = %d, want 2", count)
	}
}

func TestCheckpointFindLocatesWrittenEdges(t *testing.T) {
	g := graphstore.NewGraph(graphstore.LoaderConfig{}, mlcsr.DefaultConfig())

	b := fixture.NewBuilder()
	b.AddEdge(0, 1, nil)
	b.AddEdge(0, 2, nil)
	b.AddEdge(1, 2, nil)
	if err := g.Checkpoint(b.Source(false)); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	out := g.Out()
	latest, _ := out.VertexLevels().LatestLevel()
	if e := out.Find(0, latest, 1); e.IsNil() {
		t.Fatalf("Find(0, _, 1) returned nil")
	}
	if e := out.Find(0, latest, 2); e.IsNil() {
		t.Fatalf("Find(0, _, 2) returned nil")
	}
	if e := out.Find(1, latest, 2); e.IsNil() {
		t.Fatalf("Find(1, _, 2) returned nil")
	}
	if e := out.Find(2, latest, 99); !e.IsNil() {
		t.Fatalf("Find on node with no edges should return nil")
	}
}

func TestCheckpointTwoLevelsPageSharing(t *testing.T) {
	g := graphstore.NewGraph(graphstore.LoaderConfig{}, mlcsr.DefaultConfig())

	b1 := fixture.NewBuilder()
	for n := mlcsr.NodeID(0); n < 1024; n++ {
		b1.AddEdge(n, n+1, nil)
	}
	if err := g.Checkpoint(b1.Source(false)); err != nil {
		t.Fatalf("checkpoint 1: %v", err)
	}

	b2 := fixture.NewBuilder()
	b2.AddEdge(3, 500, nil)              // only node 3 gains a second out-edge at level 1
	b2.SetNodeProp(1024, "_touch", true) // keep MaxNodeID at 1024, matching checkpoint 1

	if err := g.Checkpoint(b2.Source(false)); err != nil {
		t.Fatalf("checkpoint 2: %v", err)
	}

	out := g.Out()
	vlevels := out.VertexLevels()
	level1, arr1 := vlevels.LatestLevel()
	level0 := vlevels.PreviousLevel(level1)
	if level0 == nil {
		t.Fatalf("expected a previous level")
	}

	pages1 := (*arr1).PageIDs()
	// Page size is 512 (mlcsr.DefaultConfig); node 3 lives on logical page 0.
	if pages1[1] != (*level0).PageIDs()[1] {
		t.Fatalf("untouched logical page 1 should remain shared across levels")
	}
}

func TestCheckpointReverseEdgesInvolution(t *testing.T) {
	cfg := graphstore.LoaderConfig{ReverseEdges: true, ReverseMaps: true}
	g := graphstore.NewGraph(cfg, mlcsr.DefaultConfig())

	b := fixture.NewBuilder()
	b.AddEdge(0, 1, nil)
	b.AddEdge(0, 2, nil)
	b.AddEdge(1, 2, nil)
	if err := g.Checkpoint(b.Source(false)); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	out := g.Out()
	latest, _ := out.VertexLevels().LatestLevel()

	it := out.IterBegin(0, latest)
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		in := g.OutToIn(e)
		if in.IsNil() {
			t.Fatalf("OutToIn(%v) returned nil for an edge written this checkpoint", e)
		}
		if back := g.InToOut(in); back != e {
			t.Fatalf("InToOut(OutToIn(e)) = %v, want %v", back, e)
		}
	}
}

func TestCheckpointEmptyDeltaSharesEveryPage(t *testing.T) {
	g := graphstore.NewGraph(graphstore.LoaderConfig{}, mlcsr.DefaultConfig())

	b1 := fixture.NewBuilder()
	for n := mlcsr.NodeID(0); n < 10; n++ {
		b1.AddEdge(n, n+1, nil)
	}
	if err := g.Checkpoint(b1.Source(false)); err != nil {
		t.Fatalf("checkpoint 1: %v", err)
	}

	// An empty checkpoint still must report the same max node id to avoid
	// ErrLevelShrunk; reuse the same node count with no new edges.
	empty := fixture.NewBuilder()
	empty.SetNodeProp(10, "_touch", true) // touch node 10, matching checkpoint 1's MaxNodeID
	if err := g.Checkpoint(empty.Source(false)); err != nil {
		t.Fatalf("checkpoint 2 (empty): %v", err)
	}

	out := g.Out()
	vlevels := out.VertexLevels()
	latest, arrLatest := vlevels.LatestLevel()
	prevID := vlevels.PreviousLevel(latest)
	if prevID == nil {
		t.Fatalf("expected a previous level")
	}
	for i, id := range (*arrLatest).PageIDs() {
		if id != (*prevID).PageIDs()[i] {
			t.Fatalf("page %d differs after an empty checkpoint", i)
		}
	}
}
