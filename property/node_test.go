package property

import "testing"

func TestNodePropertySetGetAcrossLevels(t *testing.T) {
	p := NewNodeProperty[int](64)

	l0, _ := p.InitLevel(3)
	p.Set(l0, 0, 10)
	p.Set(l0, 1, 20)
	p.Freeze(l0)

	l1, _ := p.InitLevel(4)
	p.Set(l1, 3, 40)
	p.Freeze(l1)

	if v, ok := p.Get(l0, 0); !ok || v != 10 {
		t.Fatalf("Get(l0, 0) = %d, %v, want 10, true", v, ok)
	}
	if v, ok := p.Get(l1, 0); !ok || v != 10 {
		t.Fatalf("Get(l1, 0) = %d, %v, want 10, true (inherited via cow)", v, ok)
	}
	if v, ok := p.Get(l1, 3); !ok || v != 40 {
		t.Fatalf("Get(l1, 3) = %d, %v, want 40, true", v, ok)
	}
	if _, ok := p.Get(l0, 3); ok {
		t.Fatalf("Get(l0, 3) should fail: node 3 did not exist at l0")
	}
}

func TestNodePropertyAddAtomic(t *testing.T) {
	p := NewNodeProperty[int](64)
	l0, _ := p.InitLevel(2)
	p.Set(l0, 0, 5)

	p.AddAtomic(l0, 0, func(v int) int { return v + 3 })
	if v, _ := p.Get(l0, 0); v != 8 {
		t.Fatalf("AddAtomic result = %d, want 8", v)
	}
}

func TestNodePropertyKeepOnlyRecent(t *testing.T) {
	p := NewNodeProperty[int](64)
	l0, _ := p.InitLevel(1)
	p.Set(l0, 0, 1)
	p.Freeze(l0)
	l1, _ := p.InitLevel(1)
	p.Set(l1, 0, 2)
	p.Freeze(l1)
	l2, _ := p.InitLevel(1)
	p.Set(l2, 0, 3)
	p.Freeze(l2)

	p.KeepOnlyRecent(1)

	if _, ok := p.Get(l0, 0); ok {
		t.Fatalf("level %d should have been dropped", l0)
	}
	if v, ok := p.Get(l2, 0); !ok || v != 3 {
		t.Fatalf("most recent level should survive: Get(l2,0) = %d, %v", v, ok)
	}
}
