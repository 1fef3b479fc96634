package snapshot

import (
	"context"
	"testing"

	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/inspector/fakeinspector"
)

func handlesFrom(t *testing.T, threads []fakeinspector.Thread) []scoredThread {
	t.Helper()
	f := &fakeinspector.Fake{Threads: threads}
	insp := f.Open()
	runtimes, err := insp.Runtimes(context.Background())
	if err != nil || len(runtimes) == 0 {
		t.Fatalf("expected a runtime")
	}
	rt, err := insp.CreateRuntime(context.Background(), 0)
	if err != nil {
		t.Fatalf("CreateRuntime: %v", err)
	}
	handles, err := rt.Threads(context.Background())
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}
	scored := make([]scoredThread, 0, len(handles))
	for _, h := range handles {
		scored = append(scored, scoreThread(h))
	}
	return scored
}

func TestScoreThreadException(t *testing.T) {
	scored := handlesFrom(t, []fakeinspector.Thread{
		{ManagedID: 1, State: "Running"},
		{ManagedID: 2, State: "Wait", Exception: &inspector.ExceptionInfo{TypeName: "NullReferenceException", Message: "boom"}},
	})
	if scored[1].score <= scored[0].score {
		t.Fatalf("exception thread must outscore a running thread: %+v", scored)
	}
}

func TestSelectThreadsKeepsAtLeastTen(t *testing.T) {
	threads := make([]fakeinspector.Thread, 3)
	for i := range threads {
		threads[i] = fakeinspector.Thread{ManagedID: i + 1, State: "Background"}
	}
	scored := handlesFrom(t, threads)
	kept, dropped := selectThreads(scored, Options{})
	if len(kept) != 3 || len(dropped) != 0 {
		t.Fatalf("expected all 3 kept with nothing dropped, got kept=%d dropped=%d", len(kept), len(dropped))
	}
}

func TestSelectThreadsForcesExceptionAndDrops(t *testing.T) {
	threads := make([]fakeinspector.Thread, 15)
	for i := range threads {
		threads[i] = fakeinspector.Thread{ManagedID: i + 1, State: "Background"}
	}
	threads[14].Exception = &inspector.ExceptionInfo{TypeName: "X", Message: "y"}
	scored := handlesFrom(t, threads)

	kept, dropped := selectThreads(scored, Options{TopStackThreads: 10})
	if len(kept) != 10 {
		t.Fatalf("expected 10 kept, got %d", len(kept))
	}
	if len(dropped) != 5 {
		t.Fatalf("expected 5 dropped, got %d", len(dropped))
	}
	found := false
	for _, k := range kept {
		if k.managed == 15 {
			found = true
		}
	}
	if !found {
		t.Fatalf("exception thread must be forced into the kept set")
	}
}

func TestReadStacksCapsFramesAndRecordsFailures(t *testing.T) {
	threads := []fakeinspector.Thread{
		{ManagedID: 1, State: "Running", Frames: []string{"a", "b", "c", "d"}},
		{ManagedID: 2, State: "Background", FailStackFrames: true},
	}
	scored := handlesFrom(t, threads)
	kept, _ := selectThreads(scored, Options{TopStackThreads: 10})
	snaps, failed := readStacks(context.Background(), kept, 2)

	if len(failed) != 1 || failed[0] != 2 {
		t.Fatalf("expected thread 2 to fail, got %v", failed)
	}
	for _, s := range snaps {
		if s.ManagedID == 1 && len(s.Frames) != 2 {
			t.Fatalf("expected frames capped to 2, got %d", len(s.Frames))
		}
	}
}
