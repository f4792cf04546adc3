package pipeline

import "testing"

func TestCycleStateBeginCommit(t *testing.T) {
	var s CycleState

	if !s.Begin() {
		t.Fatal("Begin failed on idle state")
	}
	if s.Begin() {
		t.Fatal("Begin succeeded while busy")
	}

	s.Commit(42)
	if s.Status().Updating {
		t.Error("busy after commit")
	}
	if s.Cycles() != 1 || s.LastEpoch() != 42 {
		t.Errorf("state = %+v", s.Status())
	}

	if !s.Begin() {
		t.Fatal("Begin failed after commit")
	}
	s.Abort()
	if s.Cycles() != 1 || s.LastEpoch() != 42 {
		t.Error("abort changed counters")
	}
	if s.Status().Updating {
		t.Error("busy after abort")
	}
}

func TestCycleStateFullResyncDue(t *testing.T) {
	var s CycleState

	if !s.FullResyncDue(5) {
		t.Error("first cycle after start must be a full resync")
	}

	for i := 1; i <= 10; i++ {
		s.Begin()
		s.Commit(int64(i))
		want := i%5 == 0
		if got := s.FullResyncDue(5); got != want {
			t.Errorf("after %d commits: due = %v, want %v", i, got, want)
		}
	}
}

func TestCycleStateDegenerateInterval(t *testing.T) {
	var s CycleState
	s.Begin()
	s.Commit(1)
	if !s.FullResyncDue(1) || !s.FullResyncDue(0) {
		t.Error("interval <= 1 must always resync")
	}
}
