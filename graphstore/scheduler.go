package graphstore

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CheckpointScheduler runs periodic checkpoints (and, optionally,
// retention compaction) against a Graph unattended, the capability
// an external caller otherwise has to orchestrate by hand: a robfig/cron.Cron
// running in its own goroutines, a running-job tracker, and a Stop that
// waits for the
// cron engine to drain before returning.
type CheckpointScheduler struct {
	g    *Graph
	cron *cron.Cron

	mu      sync.Mutex
	running bool

	nextSource func() (CheckpointSource, bool)
	keepRecent int
}

// NewCheckpointScheduler creates a scheduler for g. nextSource is called on
// each tick to produce the CheckpointSource for that checkpoint; it
// returns ok=false to skip a tick (e.g. no new data since the last one).
// keepRecent, if > 0, calls g.KeepOnlyRecent(keepRecent) after every
// checkpoint.
func NewCheckpointScheduler(g *Graph, nextSource func() (CheckpointSource, bool), keepRecent int) *CheckpointScheduler {
	loc, _ := time.LoadLocation("UTC")
	return &CheckpointScheduler{
		g:          g,
		cron:       cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		nextSource: nextSource,
		keepRecent: keepRecent,
	}
}

// AddCron registers a standard cron expression (seconds-enabled, matching
// cron.WithSeconds() above) that triggers one checkpoint per tick.
func (s *CheckpointScheduler) AddCron(expr string) (cron.EntryID, error) {
	return s.cron.AddFunc(expr, s.tick)
}

// AddEvery registers a fixed-interval checkpoint trigger, the simple
// alternative to AddCron's full cron expressions.
func (s *CheckpointScheduler) AddEvery(d time.Duration) cron.EntryID {
	return s.cron.Schedule(cron.Every(d), cron.FuncJob(s.tick))
}

// Start begins the cron loop. Safe to call once; a second call is a no-op.
func (s *CheckpointScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	log.Printf("graphstore: checkpoint scheduler started")
}

// Stop halts the cron loop and waits for any in-flight tick to finish.
func (s *CheckpointScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	log.Printf("graphstore: checkpoint scheduler stopped")
}

// tick is the function every registered trigger calls: pull the next
// source, checkpoint, optionally compact. Errors are logged, not
// propagated — a scheduled checkpoint has no caller waiting on its result,
// and a failure shouldn't take the whole process down with it, so this
// logs loudly rather than panicking the scheduler goroutine.
func (s *CheckpointScheduler) tick() {
	source, ok := s.nextSource()
	if !ok {
		return
	}
	if err := s.g.Checkpoint(source); err != nil {
		log.Printf("graphstore: scheduled checkpoint failed: %v", err)
		return
	}
	if s.keepRecent > 0 {
		s.g.KeepOnlyRecent(s.keepRecent)
	}
}
