package fixture

import (
	"testing"

	"github.com/llama-mlcsr/llama/mlcsr"
)

func TestBuilderProducesExpectedDeltas(t *testing.T) {
	b := NewBuilder()
	b.AddEdge(0, 1, map[string]any{"weight": 1.5})
	b.AddEdge(0, 2, nil)
	b.AddEdge(1, 2, nil)
	b.DeleteEdge(1)
	b.SetNodeProp(2, "label", "sink")

	src := b.Source(false)
	if src.MaxNodeID() != 2 {
		t.Fatalf("MaxNodeID() = %d, want 2", src.MaxNodeID())
	}
	if src.NumNewNodes() != 3 {
		t.Fatalf("NumNewNodes() = %d, want 3", src.NumNewNodes())
	}
	if src.NumNewEdges() != 3 {
		t.Fatalf("NumNewEdges() = %d, want 3", src.NumNewEdges())
	}

	d0 := src.NodeDelta(0)
	if len(d0.NewOutEdges) != 2 {
		t.Fatalf("node 0 delta = %+v, want 2 out edges", d0)
	}
	if d0.NewOutEdges[0].Target != 1 || d0.NewOutEdges[0].Props["weight"] != 1.5 {
		t.Fatalf("node 0's first edge = %+v", d0.NewOutEdges[0])
	}

	d1 := src.NodeDelta(1)
	if d1.DeletedOut != 1 {
		t.Fatalf("node 1 DeletedOut = %d, want 1", d1.DeletedOut)
	}

	d2 := src.NodeDelta(2)
	if d2.NodeProps["label"] != "sink" {
		t.Fatalf("node 2 props = %+v", d2.NodeProps)
	}

	// A node never touched returns a zero-value delta, not a panic.
	d9 := src.NodeDelta(mlcsr.NodeID(9))
	if len(d9.NewOutEdges) != 0 || d9.DeletedOut != 0 {
		t.Fatalf("untouched node delta = %+v, want zero value", d9)
	}
}

func TestBuilderSortedSource(t *testing.T) {
	b := NewBuilder()
	b.AddEdge(0, 5, nil)
	b.AddEdge(0, 1, nil)
	b.AddEdge(0, 3, nil)

	src := b.Source(true)
	d := src.NodeDelta(0)
	if len(d.NewOutEdges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(d.NewOutEdges))
	}
	want := []mlcsr.NodeID{1, 3, 5}
	for i, w := range want {
		if d.NewOutEdges[i].Target != w {
			t.Fatalf("sorted edges = %v, want targets in order %v", d.NewOutEdges, want)
		}
	}
}

func TestBuilderEmptySource(t *testing.T) {
	b := NewBuilder()
	src := b.Source(false)
	if src.MaxNodeID() != mlcsr.NilNode {
		t.Fatalf("empty builder MaxNodeID() = %d, want NilNode", src.MaxNodeID())
	}
	if src.NumNewNodes() != 0 {
		t.Fatalf("empty builder NumNewNodes() = %d, want 0", src.NumNewNodes())
	}
}
