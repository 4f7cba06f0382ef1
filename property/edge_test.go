package property

import (
	"testing"

	"github.com/llama-mlcsr/llama/levels"
	"github.com/llama-mlcsr/llama/mlcsr"
)

func TestEdgePropertySetOf(t *testing.T) {
	ep := NewEdgeProperty[string](64)

	ep.InitLevel(levels.ID(0), 4)
	e0 := mlcsr.EncodeEdgeID(levels.ID(0), 0)
	e1 := mlcsr.EncodeEdgeID(levels.ID(0), 1)
	ep.Set(e0, "weight:1")
	ep.Set(e1, "weight:2")
	ep.Finish(levels.ID(0))

	if v, ok := ep.Of(e0); !ok || v != "weight:1" {
		t.Fatalf("Of(e0) = %q, %v, want weight:1, true", v, ok)
	}
	if v, ok := ep.Of(e1); !ok || v != "weight:2" {
		t.Fatalf("Of(e1) = %q, %v, want weight:2, true", v, ok)
	}

	ep.InitLevel(levels.ID(1), 1)
	e2 := mlcsr.EncodeEdgeID(levels.ID(1), 0)
	ep.Set(e2, "weight:3")
	ep.Finish(levels.ID(1))

	if v, ok := ep.Of(e0); !ok || v != "weight:1" {
		t.Fatalf("Of(e0) after later level = %q, %v, want weight:1, true (older level unaffected)", v, ok)
	}
	if v, ok := ep.Of(e2); !ok || v != "weight:3" {
		t.Fatalf("Of(e2) = %q, %v, want weight:3, true", v, ok)
	}
}

func TestEdgePropertyDropLevel(t *testing.T) {
	ep := NewEdgeProperty[int](64)
	ep.InitLevel(levels.ID(0), 2)
	e0 := mlcsr.EncodeEdgeID(levels.ID(0), 0)
	ep.Set(e0, 42)
	ep.Finish(levels.ID(0))

	ep.DropLevel(levels.ID(0))

	if _, ok := ep.Of(e0); ok {
		t.Fatalf("Of(e0) should fail after DropLevel")
	}
}
