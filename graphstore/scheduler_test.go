package graphstore_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/llama-mlcsr/llama/fixture"
	"github.com/llama-mlcsr/llama/graphstore"
	"github.com/llama-mlcsr/llama/mlcsr"
)

func TestSchedulerRunsTicksUntilStopped(t *testing.T) {
	g := graphstore.NewGraph(graphstore.LoaderConfig{}, mlcsr.DefaultConfig())

	var ticks int32
	nextSource := func() (graphstore.CheckpointSource, bool) {
		n := atomic.AddInt32(&ticks, 1)
		b := fixture.NewBuilder()
		b.AddEdge(0, mlcsr.NodeID(n), nil)
		return b.Source(false), true
	}

	sched := graphstore.NewCheckpointScheduler(g, nextSource, 0)
	sched.AddEvery(10 * time.Millisecond)
	sched.Start()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&ticks) < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	sched.Stop()

	if got := atomic.LoadInt32(&ticks); got < 3 {
		t.Fatalf("scheduler ran %d ticks in 2s, want >= 3", got)
	}

	// Stop must be idempotent.
	sched.Stop()
}

func TestSchedulerSkipsTickWhenSourceDeclines(t *testing.T) {
	g := graphstore.NewGraph(graphstore.LoaderConfig{}, mlcsr.DefaultConfig())

	var calls int32
	nextSource := func() (graphstore.CheckpointSource, bool) {
		atomic.AddInt32(&calls, 1)
		return nil, false
	}

	sched := graphstore.NewCheckpointScheduler(g, nextSource, 0)
	sched.AddEvery(10 * time.Millisecond)
	sched.Start()
	time.Sleep(60 * time.Millisecond)
	sched.Stop()

	if atomic.LoadInt32(&calls) == 0 {
		t.Fatalf("scheduler never called nextSource")
	}
	if _, arr := g.Out().VertexLevels().LatestLevel(); arr != nil {
		t.Fatalf("a declined tick must not produce a checkpoint level")
	}
}
