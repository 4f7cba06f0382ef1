package backing

import "testing"

func TestMemoryStrategyAllocateAndRead(t *testing.T) {
	m := NewMemoryStrategy(0)
	id, buf := m.AllocatePage(3)
	if id == InvalidPageID {
		t.Fatalf("AllocatePage returned InvalidPageID")
	}
	if len(buf) != DefaultPageSize {
		t.Fatalf("page size = %d, want %d", len(buf), DefaultPageSize)
	}

	buf[40] = 0xAB
	if err := m.WritePage(id, buf); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	got, err := m.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if got[40] != 0xAB {
		t.Fatalf("read back page missing write")
	}
	if err := VerifyPageCRC(got); err != nil {
		t.Fatalf("VerifyPageCRC: %v", err)
	}
}

func TestMemoryStrategyReadMissingPage(t *testing.T) {
	m := NewMemoryStrategy(0)
	if _, err := m.ReadPage(999); err != ErrPageNotFound {
		t.Fatalf("ReadPage on missing id = %v, want ErrPageNotFound", err)
	}
}

func TestMemoryStrategyFreePageRecyclesID(t *testing.T) {
	m := NewMemoryStrategy(0)
	id1, _ := m.AllocatePage(0)
	m.FreePage(id1)
	id2, _ := m.AllocatePage(0)
	if id2 != id1 {
		t.Fatalf("freed page ID not recycled: got %d, want %d", id2, id1)
	}
}

func TestMemoryStrategyFinalizeRegionRecordsChunk(t *testing.T) {
	m := NewMemoryStrategy(0)
	id1, _ := m.AllocatePage(5)
	id2, _ := m.AllocatePage(5)

	if err := m.FinalizeRegion(5, []PageID{id1, id2}); err != nil {
		t.Fatalf("FinalizeRegion: %v", err)
	}
	chunks := m.ChunksForLevel(5)
	if len(chunks) != 1 {
		t.Fatalf("ChunksForLevel = %d chunks, want 1", len(chunks))
	}
	if chunks[0].StartPageID != id1 || chunks[0].PageCount != 2 {
		t.Fatalf("chunk = %+v, want start=%d count=2", chunks[0], id1)
	}
	if len(m.ChunksForLevel(6)) != 0 {
		t.Fatalf("ChunksForLevel on untouched level should be empty")
	}
}

func TestValidateContextName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"prod__social-graph__3", true},
		{"simple-name_1", true},
		{"", false},
		{"has a space", false},
		{"trailing__", false},
		{"__leading", false},
	}
	for _, c := range cases {
		err := ValidateContextName(c.name)
		if (err == nil) != c.ok {
			t.Fatalf("ValidateContextName(%q) err=%v, want ok=%v", c.name, err, c.ok)
		}
	}
}

func TestJoinAndGenerateContextName(t *testing.T) {
	got := JoinContextName("prod", "social-graph", 3)
	if got != "prod__social-graph__3" {
		t.Fatalf("JoinContextName = %q", got)
	}
	generated := GenerateContextName("")
	if err := ValidateContextName(generated); err != nil {
		t.Fatalf("GenerateContextName produced invalid name %q: %v", generated, err)
	}
}
