package mlcsr

import (
	"testing"

	"github.com/llama-mlcsr/llama/levels"
)

func buildTwoLevelTable(t *testing.T) (*Table, levels.ID, levels.ID) {
	t.Helper()
	tbl := NewTable(DefaultConfig())

	lb0 := tbl.InitLevelFromDegrees(3, []int{2, 1, 0}, nil)
	for n := 0; n < 3; n++ {
		lb0.InitNode(n)
	}
	lb0.WriteValues(0, []NodeID{10, 11})
	lb0.WriteValues(1, []NodeID{20})
	lb0.FinishLevelVertices()
	lb0.FinishLevelEdges()
	level0 := lb0.Level()

	lb1 := tbl.InitLevelFromDegrees(3, []int{0, 1, 0}, nil)
	for n := 0; n < 3; n++ {
		lb1.InitNode(n)
	}
	lb1.WriteValues(1, []NodeID{21})
	lb1.FinishLevelVertices()
	lb1.FinishLevelEdges()
	level1 := lb1.Level()

	return tbl, level0, level1
}

func TestDegreeConsistency(t *testing.T) {
	tbl, level0, level1 := buildTwoLevelTable(t)

	if d := tbl.Degree(level0, 0); d != 2 {
		t.Fatalf("Degree(level0, 0) = %d, want 2", d)
	}
	if d := tbl.Degree(level0, 1); d != 1 {
		t.Fatalf("Degree(level0, 1) = %d, want 1", d)
	}
	if d := tbl.Degree(level1, 1); d != 2 {
		t.Fatalf("Degree(level1, 1) = %d, want 2", d)
	}
	if d := tbl.Degree(level1, 0); d != 2 {
		t.Fatalf("Degree(level1, 0) = %d, want 2 (unchanged node carries degree forward)", d)
	}
	if d := tbl.Degree(level1, 2); d != 0 {
		t.Fatalf("Degree(level1, 2) = %d, want 0", d)
	}
}

func collectNeighbors(t *testing.T, tbl *Table, n NodeID, view levels.ID) []NodeID {
	t.Helper()
	it := tbl.IterBegin(n, view)
	var out []NodeID
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, tbl.edgeAt(e).Neighbor)
	}
	return out
}

func TestDescentOrderNewestFirst(t *testing.T) {
	tbl, _, level1 := buildTwoLevelTable(t)

	got := collectNeighbors(t, tbl, 1, level1)
	want := []NodeID{21, 20}
	if len(got) != len(want) {
		t.Fatalf("neighbors of node 1 at level1 = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("neighbors of node 1 at level1 = %v, want %v", got, want)
		}
	}
}

func TestDescentUnchangedNodeInheritsAcrossLevel(t *testing.T) {
	tbl, _, level1 := buildTwoLevelTable(t)

	got := collectNeighbors(t, tbl, 0, level1)
	want := []NodeID{10, 11}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("neighbors of node 0 at level1 = %v, want %v", got, want)
	}
}

func TestFindLocatesEdge(t *testing.T) {
	tbl, _, level1 := buildTwoLevelTable(t)

	e := tbl.Find(1, level1, 20)
	if e.IsNil() {
		t.Fatalf("Find did not locate neighbor 20 on node 1 at level1")
	}
	if tbl.edgeAt(e).Neighbor != 20 {
		t.Fatalf("Find returned edge with neighbor %d, want 20", tbl.edgeAt(e).Neighbor)
	}

	if e := tbl.Find(2, level1, 99); !e.IsNil() {
		t.Fatalf("Find on edgeless node returned non-nil edge")
	}
}

func TestPreviousLevelUnaffectedByLaterLevel(t *testing.T) {
	tbl, level0, _ := buildTwoLevelTable(t)

	got := collectNeighbors(t, tbl, 1, level0)
	if len(got) != 1 || got[0] != 20 {
		t.Fatalf("neighbors of node 1 at level0 = %v, want [20] (later level must not leak backward)", got)
	}
}

func TestEdgeIDRoundTrip(t *testing.T) {
	cases := []struct {
		level levels.ID
		idx   uint64
	}{
		{0, 0},
		{1, 5},
		{1000, 1 << 20},
	}
	for _, c := range cases {
		e := EncodeEdgeID(c.level, c.idx)
		if e.Level() != c.level {
			t.Fatalf("Level() = %d, want %d", e.Level(), c.level)
		}
		if e.Index() != c.idx {
			t.Fatalf("Index() = %d, want %d", e.Index(), c.idx)
		}
		if e.IsNil() {
			t.Fatalf("encoded edge reported as nil")
		}
	}
	if !NilEdgeID.IsNil() {
		t.Fatalf("NilEdgeID.IsNil() = false")
	}
}

func TestInLevelIteratorNeverDescends(t *testing.T) {
	tbl, level0, level1 := buildTwoLevelTable(t)

	it := tbl.InLevelIterBegin(0, level1)
	if _, ok := it.Next(); ok {
		t.Fatalf("node 0 gained no edges at level1, in-level iterator should yield none")
	}

	it = tbl.InLevelIterBegin(1, level1)
	e, ok := it.Next()
	if !ok || tbl.edgeAt(e).Neighbor != 21 {
		t.Fatalf("node 1's in-level edges at level1 should be exactly [21]")
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("in-level iterator yielded more than node 1's level1 contribution")
	}

	it = tbl.InLevelIterBegin(0, level0)
	e, ok = it.Next()
	if !ok || tbl.edgeAt(e).Neighbor != 10 {
		t.Fatalf("node 0's in-level edges at level0 should start with 10")
	}
}

func TestSoftDeletionHidesEdgeAboveDeletionLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SoftDeletions = true
	tbl := NewTable(cfg)

	lb := tbl.InitLevelFromDegrees(1, []int{2}, nil)
	lb.InitNode(0)
	lb.WriteValues(0, []NodeID{100, 101})
	lb.FinishLevelVertices()
	lb.FinishLevelEdges()
	level0 := lb.Level()

	e := tbl.Find(0, level0, 101)
	if e.IsNil() {
		t.Fatalf("expected to find neighbor 101 before deletion")
	}

	lb2 := tbl.InitLevelFromDegrees(1, []int{0}, nil)
	lb2.InitNode(0)
	lb2.FinishLevelVertices()
	lb2.FinishLevelEdges()
	level1 := lb2.Level()

	if !tbl.UpdateMaxVisibleLevelLowerOnly(e, level0) {
		t.Fatalf("UpdateMaxVisibleLevelLowerOnly failed")
	}

	got := collectNeighbors(t, tbl, 0, level0)
	if len(got) != 2 {
		t.Fatalf("neighbors at level0 (deletion's own level) = %v, want both still visible", got)
	}

	got = collectNeighbors(t, tbl, 0, level1)
	want := []NodeID{100}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("neighbors at level1 = %v, want %v (101 hidden after deletion)", got, want)
	}
}
