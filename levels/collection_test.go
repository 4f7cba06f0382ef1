package levels

import "testing"

func TestNewLevelMonotonicNeverReuses(t *testing.T) {
	c := NewCollection[int](Monotonic)
	id0 := c.NewLevel()
	v0 := 10
	c.Set(id0, &v0)
	id1 := c.NewLevel()
	v1 := 20
	c.Set(id1, &v1)

	c.DeleteLevel(id0)
	id2 := c.NewLevel()
	if id2 == id0 {
		t.Fatalf("monotonic scheme reused a deleted ID")
	}
	if id2 != id1+1 {
		t.Fatalf("NewLevel id = %d, want %d", id2, id1+1)
	}
}

func TestNewLevelWrapReusesHoles(t *testing.T) {
	c := NewCollection[int](WrapWithMinLevel)
	ids := make([]ID, 3)
	for i := range ids {
		ids[i] = c.NewLevel()
		v := i
		c.Set(ids[i], &v)
	}
	c.DeleteLevel(ids[1])
	reused := c.NewLevel()
	if reused != ids[1] {
		t.Fatalf("wrap scheme did not reuse hole: got %d, want %d", reused, ids[1])
	}
}

func TestPrevLevelNoFailSkipsHoles(t *testing.T) {
	c := NewCollection[int](Monotonic)
	var ids []ID
	for i := 0; i < 4; i++ {
		id := c.NewLevel()
		v := i
		c.Set(id, &v)
		ids = append(ids, id)
	}
	c.DeleteLevel(ids[2])

	prevID, prev := c.PrevLevelNoFail(ids[3])
	if prevID != ids[1] {
		t.Fatalf("PrevLevelNoFail skipped to %d, want %d", prevID, ids[1])
	}
	if *prev != 1 {
		t.Fatalf("PrevLevelNoFail value = %d, want 1", *prev)
	}
}

func TestLatestLevelSkipsTrailingHoles(t *testing.T) {
	c := NewCollection[int](Monotonic)
	var ids []ID
	for i := 0; i < 3; i++ {
		id := c.NewLevel()
		v := i * 10
		c.Set(id, &v)
		ids = append(ids, id)
	}
	c.DeleteLevel(ids[2])

	latestID, latest := c.LatestLevel()
	if latestID != ids[1] {
		t.Fatalf("LatestLevel id = %d, want %d", latestID, ids[1])
	}
	if *latest != 10 {
		t.Fatalf("LatestLevel value = %d, want 10", *latest)
	}
}

func TestKeepOnlyRecentDropsOlderLevels(t *testing.T) {
	c := NewCollection[int](Monotonic)
	var ids []ID
	for i := 0; i < 5; i++ {
		id := c.NewLevel()
		v := i
		c.Set(id, &v)
		ids = append(ids, id)
	}
	var dropped []ID
	c.KeepOnlyRecent(2, func(id ID, v *int) { dropped = append(dropped, id) })

	if len(dropped) != 3 {
		t.Fatalf("dropped %d levels, want 3", len(dropped))
	}
	if c.LevelAt(ids[2]) != nil {
		t.Fatalf("level %d should have been dropped", ids[2])
	}
	if c.LevelAt(ids[3]) == nil || c.LevelAt(ids[4]) == nil {
		t.Fatalf("the two most recent levels should survive")
	}
	if c.MinLevel() != ids[3] {
		t.Fatalf("MinLevel = %d, want %d", c.MinLevel(), ids[3])
	}
}
