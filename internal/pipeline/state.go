// Package pipeline runs the update cycle: fetching feed pages, decoding
// listings, folding them through the aggregators, and committing the results
// to the stores and caches.
package pipeline

import (
	"sync/atomic"

	"github.com/skyquery/skyquery/internal/domain"
)

// CycleState tracks whether a cycle is in flight, how many cycles have
// committed since process start, and the feed epoch of the last commit. The
// counter is process-local; a restart resets it and forces the next cycle to
// be a full resync.
type CycleState struct {
	busy      atomic.Bool
	cycles    atomic.Int64
	lastEpoch atomic.Int64
}

// Begin claims the in-flight slot. It returns false when another cycle is
// already running.
func (s *CycleState) Begin() bool {
	return s.busy.CompareAndSwap(false, true)
}

// Abort releases the in-flight slot without advancing the counter or the
// epoch, so the next cycle retries with the same mode and cutoff.
func (s *CycleState) Abort() {
	s.busy.Store(false)
}

// Commit records a finished cycle. The counter advances before the epoch so
// a status read never pairs a new epoch with a stale count.
func (s *CycleState) Commit(epoch int64) {
	s.cycles.Add(1)
	s.lastEpoch.Store(epoch)
	s.busy.Store(false)
}

// FullResyncDue reports whether the next cycle must rebuild from scratch:
// every Nth cycle counting from zero, so the first cycle after a restart is
// always a full resync.
func (s *CycleState) FullResyncDue(every int) bool {
	if every <= 1 {
		return true
	}
	return s.cycles.Load()%int64(every) == 0
}

// LastEpoch returns the feed epoch of the last committed cycle, zero before
// the first commit.
func (s *CycleState) LastEpoch() int64 {
	return s.lastEpoch.Load()
}

// Cycles returns the number of committed cycles since process start.
func (s *CycleState) Cycles() int64 {
	return s.cycles.Load()
}

// Status snapshots the state for the query facade.
func (s *CycleState) Status() domain.CycleStatus {
	return domain.CycleStatus{
		Updating:    s.busy.Load(),
		TotalCycles: s.cycles.Load(),
		LastEpoch:   s.lastEpoch.Load(),
	}
}
