package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/model"
)

type scoredThread struct {
	handle   inspector.ThreadHandle
	managed  int
	lockCnt  int
	score    int
	hasExc   bool
	running  bool
	waiting  bool
	forced   bool
}

func stateContains(state, needle string) bool {
	return strings.Contains(strings.ToLower(state), strings.ToLower(needle))
}

// scoreThread implements the §4.1.1 scoring formula.
func scoreThread(h inspector.ThreadHandle) scoredThread {
	st := scoredThread{
		handle:  h,
		managed: h.ManagedID(),
		lockCnt: h.LockCount(),
	}
	state := h.StateText()
	_, hasExc := h.CurrentException()
	st.hasExc = hasExc
	st.running = stateContains(state, "Running")
	st.waiting = stateContains(state, "Wait") || stateContains(state, "Sleep")

	score := 0
	if hasExc {
		score += 1000
	}
	if st.running {
		score += 200
	}
	if st.waiting {
		score += 120
	}
	if h.IsFinalizer() {
		score += 80
	}
	if h.IsGC() {
		score += 40
	}
	lockBonus := st.lockCnt * 5
	if lockBonus > 200 {
		lockBonus = 200
	}
	score += lockBonus
	st.score = score
	return st
}

func byScoreThenLockThenID(a, b scoredThread) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.lockCnt != b.lockCnt {
		return a.lockCnt > b.lockCnt
	}
	return a.managed > b.managed
}

// selectThreads implements the §4.1.1 thread selection algorithm: score
// every alive thread, force in the first exception thread plus up to 5
// Running and up to 5 Wait/Sleep threads, reorder with forced threads
// first, then keep N = opts.topStackThreadCount() (max(TopStackThreads, 10)).
func selectThreads(all []scoredThread, opts Options) (kept []scoredThread, dropped []scoredThread) {
	ordered := append([]scoredThread(nil), all...)
	sort.SliceStable(ordered, func(i, j int) bool { return byScoreThenLockThenID(ordered[i], ordered[j]) })

	excTaken := false
	runningTaken := 0
	waitingTaken := 0
	forcedIdx := make(map[int]bool) // managed id -> forced

	for i := range ordered {
		t := &ordered[i]
		if t.hasExc && !excTaken {
			t.forced = true
			excTaken = true
			forcedIdx[t.managed] = true
			continue
		}
		if t.running && runningTaken < 5 {
			t.forced = true
			runningTaken++
			forcedIdx[t.managed] = true
			continue
		}
		if t.waiting && waitingTaken < 5 {
			t.forced = true
			waitingTaken++
			forcedIdx[t.managed] = true
			continue
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.forced != b.forced {
			return a.forced
		}
		return byScoreThenLockThenID(a, b)
	})

	n := opts.topStackThreadCount()
	if len(ordered) <= n {
		return ordered, nil
	}
	return ordered[:n], ordered[n:]
}

// threadTruncationWarning builds the ThreadTruncation message: up to 20
// dropped ids and an alphabetically sorted histogram of dropped states
// (spec §9 resolves the ordering ambiguity in favor of alphabetical, for
// test determinism).
func threadTruncationWarning(dropped []scoredThread) model.DataWarning {
	ids := make([]string, 0, 20)
	for i, t := range dropped {
		if i >= 20 {
			break
		}
		ids = append(ids, fmt.Sprintf("%d", t.managed))
	}

	histo := map[string]int{}
	for _, t := range dropped {
		histo[t.handle.StateText()]++
	}
	states := make([]string, 0, len(histo))
	for s := range histo {
		states = append(states, s)
	}
	sort.Strings(states)

	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, fmt.Sprintf("%s=%d", s, histo[s]))
	}

	return model.DataWarning{
		Category: model.CategoryThreadTruncation,
		Message: fmt.Sprintf("%d threads dropped; ids=[%s]; dropped states: %s",
			len(dropped), strings.Join(ids, ","), strings.Join(parts, " ")),
	}
}

// readStacks reads up to maxFrames frames for each kept thread, producing
// the final ThreadSnapshot list. Threads whose frame enumeration fails are
// recorded by managed id for a single StackReadPartial warning.
func readStacks(ctx context.Context, kept []scoredThread, maxFrames int) ([]model.ThreadSnapshot, []int) {
	out := make([]model.ThreadSnapshot, 0, len(kept))
	var failedIDs []int

	for _, t := range kept {
		h := t.handle
		ts := model.ThreadSnapshot{
			ManagedID:           t.managed,
			State:                h.StateText(),
			LockCount:            t.lockCnt,
			IsFinalizer:          h.IsFinalizer(),
			IsGC:                 h.IsGC(),
			RequestedFrameCount:  maxFrames,
		}
		if exc, ok := h.CurrentException(); ok {
			ts.CurrentException = fmt.Sprintf("%s: %s", exc.TypeName, exc.Message)
		}
		if ms, ok := h.CPUTimeMs(); ok {
			v := ms
			ts.CPUTimeMs = &v
		}

		frames, err := h.StackFrames(ctx)
		if err != nil {
			failedIDs = append(failedIDs, t.managed)
		} else {
			frameCap := maxFrames
			if frameCap < 0 {
				frameCap = 0
			}
			if len(frames) > frameCap {
				frames = frames[:frameCap]
			}
			ts.Frames = frames
			ts.CapturedFrameCount = len(frames)
		}

		out = append(out, ts)
	}

	return out, failedIDs
}

func stackReadPartialWarning(failedIDs []int) model.DataWarning {
	ids := failedIDs
	if len(ids) > 10 {
		ids = ids[:10]
	}
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, fmt.Sprintf("%d", id))
	}
	return model.DataWarning{
		Category: model.CategoryStackReadPartial,
		Message:  fmt.Sprintf("stack frame read failed for %d thread(s); ids=[%s]", len(failedIDs), strings.Join(strs, ",")),
	}
}
