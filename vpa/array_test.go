package vpa

import (
	"testing"

	"github.com/llama-mlcsr/llama/page"
)

func TestDenseInitZeroedAndWritable(t *testing.T) {
	mgr := page.NewManager[int64](4)
	a := NewArray(mgr)
	a.DenseInit(10)
	for i := 0; i < 10; i++ {
		if a.Get(i) != 0 {
			t.Fatalf("index %d not zeroed", i)
		}
	}
	a.DenseWrite(5, 42)
	if a.Get(5) != 42 {
		t.Fatalf("DenseWrite did not take effect")
	}
}

func TestCOWInitSharesPages(t *testing.T) {
	mgr := page.NewManager[int64](4)
	level0 := NewArray(mgr)
	level0.DenseInit(8) // two pages
	level0.DenseWrite(0, 1)
	level0.DenseWrite(5, 2)
	level0.Finalize()

	level1 := NewArray(mgr)
	level1.COWInit(level0, 8)

	for i, id := range level1.PageIDs() {
		if id != level0.PageIDs()[i] {
			t.Fatalf("page %d: COWInit did not share page with previous level", i)
		}
	}
	for _, id := range level1.PageIDs() {
		if got := mgr.Refcount(id); got < 2 {
			t.Fatalf("shared page refcount = %d, want >= 2", got)
		}
	}
	if level1.Get(0) != 1 || level1.Get(5) != 2 {
		t.Fatalf("COWInit did not preserve values")
	}
}

func TestCOWWriteCopiesOnlyTouchedPage(t *testing.T) {
	mgr := page.NewManager[int64](4)
	level0 := NewArray(mgr)
	level0.DenseInit(8)
	level0.DenseWrite(0, 1)
	level0.DenseWrite(5, 2)
	level0.Finalize()

	level1 := NewArray(mgr)
	level1.COWInit(level0, 8)
	level1.COWWrite(5, 99)
	level1.Finalize()

	if level1.PageIDs()[0] != level0.PageIDs()[0] {
		t.Fatalf("untouched page 0 should remain shared")
	}
	if level1.PageIDs()[1] == level0.PageIDs()[1] {
		t.Fatalf("touched page 1 should have been copied")
	}
	if level0.Get(5) != 2 {
		t.Fatalf("write on new level leaked into previous level")
	}
	if level1.Get(5) != 99 {
		t.Fatalf("COWWrite did not take effect")
	}
	if level1.Get(4) != 0 {
		t.Fatalf("copied page lost an untouched value")
	}
	if level1.ModifiedPages() != 1 {
		t.Fatalf("modified pages = %d, want 1", level1.ModifiedPages())
	}
}

func TestCOWWriteFastPathNoExtraCopy(t *testing.T) {
	mgr := page.NewManager[int64](4)
	level0 := NewArray(mgr)
	level0.DenseInit(4)
	level0.COWWrite(0, 1)
	level0.COWWrite(1, 2)
	if level0.ModifiedPages() != 0 {
		t.Fatalf("dense-owned page should never count as modified, got %d", level0.ModifiedPages())
	}
	if level0.Get(0) != 1 || level0.Get(1) != 2 {
		t.Fatalf("fast-path writes did not take effect")
	}
}

func TestModifiedNodeIterIsSupersetAtPageGranularity(t *testing.T) {
	mgr := page.NewManager[int64](4)
	level0 := NewArray(mgr)
	level0.DenseInit(16) // four pages
	level0.Finalize()

	level1 := NewArray(mgr)
	level1.COWInit(level0, 16)
	level1.COWWrite(9, 7) // lands on page index 2

	it := level1.Iter(0, 16)
	var got []int
	for {
		i, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, i)
	}
	if len(got) != 4 {
		t.Fatalf("expected exactly the 4 indices of the touched page, got %v", got)
	}
	for _, i := range got {
		if i < 8 || i >= 12 {
			t.Fatalf("yielded index %d outside touched page [8,12)", i)
		}
	}
	found := false
	for _, i := range got {
		if i == 9 {
			found = true
		}
	}
	if !found {
		t.Fatalf("modified index 9 missing from iterator output")
	}
}

func TestShrinkNarrowsLength(t *testing.T) {
	mgr := page.NewManager[int64](4)
	a := NewArray(mgr)
	a.DenseInit(16)
	a.Shrink(5)
	if a.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", a.Len())
	}
	if len(a.PageIDs()) != 2 {
		t.Fatalf("page table not narrowed: %d pages, want 2", len(a.PageIDs()))
	}
}

func TestFinalizeForbidsFurtherWrites(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on write after finalize")
		}
	}()
	mgr := page.NewManager[int64](4)
	a := NewArray(mgr)
	a.DenseInit(4)
	a.Finalize()
	a.COWWrite(0, 1)
}
