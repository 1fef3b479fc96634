// Package reasoner turns a model.Snapshot into an ordered list of
// model.Finding. Analyze is pure and does no I/O: every rule group reads
// only the snapshot and appends to a shared slice, in a fixed sequence,
// so two runs over the same snapshot always produce identical findings.
package reasoner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chrono-triage/dumptriage/model"
)

const (
	gib = 1 << 30
	mib = 1 << 20
)

// Analyze runs every rule group over snap, in spec order, and returns the
// accumulated findings. If nothing fired, it appends a single Info finding
// saying so.
func Analyze(snap *model.Snapshot) []model.Finding {
	var findings []model.Finding

	findings = crashSignals(findings, snap)
	findings = memorySignals(findings, snap)
	findings = gcNuanceSignals(findings, snap)
	findings = blockingSignals(findings, snap)
	findings = cpuSignals(findings, snap)
	findings = stringSignals(findings, snap)
	findings = finalizerSignals(findings, snap)
	findings = threadpoolSignals(findings, snap)
	findings = waitClassificationSignals(findings, snap)
	findings = nonMonitorBlockingSignals(findings, snap)
	findings = heapLeakSignals(findings, snap)
	findings = moduleAnomalies(findings, snap)
	findings = coverageSignals(findings, snap)
	findings = nativeSignals(findings, snap)
	findings = dataAvailabilitySignals(findings, snap)
	findings = deadlockSignals(findings, snap)

	if len(findings) == 0 {
		findings = append(findings, model.Finding{
			Title:    "No critical signals detected",
			Severity: model.SeverityInfo,
			Evidence: "No rule group produced a finding for this snapshot.",
		})
	}

	return findings
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func anyContainsFold(haystack string, needles ...string) bool {
	for _, n := range needles {
		if containsFold(haystack, n) {
			return true
		}
	}
	return false
}

func crashSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	for _, t := range snap.Threads {
		if t.CurrentException == "" {
			continue
		}
		findings = append(findings, model.Finding{
			Title:          "Application crash or unhandled exception",
			Severity:       model.SeverityCritical,
			Evidence:       fmt.Sprintf("thread %d: %s", t.ManagedID, t.CurrentException),
			Recommendation: "Inspect the exception's stack and any inner exception chain for the root cause.",
		})
	}
	return findings
}

func memorySignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	switch {
	case snap.GC.TotalHeapBytes > 2*gib:
		findings = append(findings, model.Finding{
			Title:          "High managed memory pressure",
			Severity:       model.SeverityCritical,
			Evidence:       fmt.Sprintf("total managed heap = %d bytes", snap.GC.TotalHeapBytes),
			Recommendation: "Review the heap histogram for the dominant type and check for a leak or an oversized cache.",
		})
	case snap.GC.LargeObjectHeapBytes > 512*mib:
		findings = append(findings, model.Finding{
			Title:          "Large Object Heap growth",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("LOH = %d bytes", snap.GC.LargeObjectHeapBytes),
			Recommendation: "Look for large array or buffer allocations (>= 85000 bytes) that could be pooled or chunked.",
		})
	}
	return findings
}

func gcNuanceSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	total := snap.GC.TotalHeapBytes
	var g2, g0, p float64
	if total > 0 {
		g2 = float64(snap.GC.Gen2Bytes) / float64(total)
		g0 = float64(snap.GC.Gen0Bytes) / float64(total)
		p = float64(snap.GC.PinnedBytes) / float64(total)
	}

	if g2 >= 0.8 && g0 < 0.1 {
		findings = append(findings, model.Finding{
			Title:          "Gen2 dominant",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("gen2=%.1f%% gen0=%.1f%% of total heap", g2*100, g0*100),
			Recommendation: "Most live data has survived to gen2; check for long-lived object growth or a collection that never shrinks.",
		})
	}
	if p >= 0.10 {
		findings = append(findings, model.Finding{
			Title:          "High pinned object pressure",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("pinned=%.1f%% of total heap", p*100),
			Recommendation: "Pinned objects fragment the heap; audit interop/GCHandle.Alloc(Pinned) usage.",
		})
	}
	if !snap.GC.IsServerGC && snap.HostCPUCount >= 4 {
		findings = append(findings, model.Finding{
			Title:          "Workstation GC on multi-core host",
			Severity:       model.SeverityInfo,
			Evidence:       fmt.Sprintf("workstation GC on a %d-core host", snap.HostCPUCount),
			Recommendation: "Consider enabling server GC for throughput-sensitive workloads on multi-core hosts.",
		})
	}
	return findings
}

func blockingSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	locksHeld := 0
	for _, t := range snap.Threads {
		if t.LockCount > 0 {
			locksHeld++
		}
	}

	if snap.Blocking.SyncBlockCount > 0 {
		sev := model.SeverityWarning
		if snap.Blocking.SyncBlockCount > 10 || snap.Blocking.WaitingThreadCount > 5 {
			sev = model.SeverityCritical
		}
		findings = append(findings, model.Finding{
			Title:    "Synchronization contention",
			Severity: sev,
			Evidence: fmt.Sprintf("sync_block_count=%d waiting_thread_count=%d",
				snap.Blocking.SyncBlockCount, snap.Blocking.WaitingThreadCount),
			Recommendation: "Examine the deadlock candidates and the threads holding locks for a contended critical section.",
		})
	} else if locksHeld > 0 {
		findings = append(findings, model.Finding{
			Title:          "Locks held by managed threads",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("%d thread(s) hold at least one lock", locksHeld),
			Recommendation: "No contention observed yet, but lock scope should still be minimized.",
		})
	}
	return findings
}

func cpuSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	cpu := snap.HostCPUCount
	running, gcThreads := 0, 0
	for _, t := range snap.Threads {
		if containsFold(t.State, "Running") {
			running++
		}
		if t.IsGC {
			gcThreads++
		}
	}

	if running > cpu*4 {
		findings = append(findings, model.Finding{
			Title:          "High CPU suspicion",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("%d running threads on a %d-core host", running, cpu),
			Recommendation: "Profile CPU-bound work; a runaway loop or a too-large parallel fan-out is likely.",
		})
	}

	gcCeiling := 2
	if cpu/2 > gcCeiling {
		gcCeiling = cpu / 2
	}
	if gcThreads > gcCeiling {
		findings = append(findings, model.Finding{
			Title:          "GC threads elevated",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("%d GC threads observed, expected at most %d", gcThreads, gcCeiling),
			Recommendation: "Elevated GC thread count often tracks server GC under heavy allocation; check allocation rate.",
		})
	}
	return findings
}

func stringSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	total := snap.TotalStringOccurrences
	if total == 0 {
		return findings
	}
	dup := 1 - float64(snap.UniqueStringCount)/float64(total)

	if dup >= 0.75 && total >= 20 {
		findings = append(findings, model.Finding{
			Title:    "High duplicate string frequency",
			Severity: model.SeverityWarning,
			Evidence: fmt.Sprintf("%.0f%% duplicate occurrences across %d total string observations",
				dup*100, total),
			Recommendation: "Revisit string interning/caching; repeated allocation of identical strings wastes heap.",
		})
	}
	if snap.StackStringOccurrences > 2*snap.HeapStringOccurrences && snap.StackStringOccurrences >= 20 {
		findings = append(findings, model.Finding{
			Title:          "Strings concentrated on stacks",
			Severity:       model.SeverityInfo,
			Evidence:       fmt.Sprintf("stack_occurrences=%d heap_occurrences=%d", snap.StackStringOccurrences, snap.HeapStringOccurrences),
			Recommendation: "",
		})
	}
	return findings
}

func finalizerSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	for _, t := range snap.Threads {
		if t.IsFinalizer && anyContainsFold(t.State, "Wait", "Block") {
			findings = append(findings, model.Finding{
				Title:          "Finalizer thread may be blocked",
				Severity:       model.SeverityCritical,
				Evidence:       fmt.Sprintf("finalizer thread %d state=%q", t.ManagedID, t.State),
				Recommendation: "A blocked finalizer thread stalls the whole finalization queue; inspect its stack for a lock or I/O wait.",
			})
		}
	}

	finalizeFrames := 0
	for _, t := range snap.Threads {
		for _, f := range t.Frames {
			if containsFold(f, "Finalize") {
				finalizeFrames++
			}
		}
	}
	if finalizeFrames > 50 {
		findings = append(findings, model.Finding{
			Title:          "Heavy finalization activity",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("%d captured frames mention Finalize", finalizeFrames),
			Recommendation: "Reduce reliance on finalizers; prefer IDisposable/Dispose(bool) with an explicit dispose path.",
		})
	}
	return findings
}

func threadpoolSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	cpu := snap.HostCPUCount
	running, waiting := 0, 0
	for _, t := range snap.Threads {
		if containsFold(t.State, "Running") {
			running++
		}
		if anyContainsFold(t.State, "Wait", "Sleep") {
			waiting++
		}
	}

	runningCeiling := 1
	if cpu/2 > runningCeiling {
		runningCeiling = cpu / 2
	}
	if running <= runningCeiling && waiting > 4*running && waiting >= 8 {
		findings = append(findings, model.Finding{
			Title:          "ThreadPool starvation or queue backlog",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("running=%d waiting=%d (host has %d cores)", running, waiting, cpu),
			Recommendation: "Check for synchronous blocking on ThreadPool threads (sync-over-async) that prevents queued work from running.",
		})
	}

	gateFrames := 0
	for _, t := range topFrames(snap, 5) {
		if anyContainsFold(t, "ThreadPoolWorkQueue", "PortableThreadPool") {
			gateFrames++
		}
	}
	if gateFrames >= 5 {
		findings = append(findings, model.Finding{
			Title:          "ThreadPool gate congestion",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("%d frames among each thread's top 5 mention the ThreadPool work queue", gateFrames),
			Recommendation: "The ThreadPool dispatch loop itself is contended; reduce work-item churn or increase min worker threads.",
		})
	}
	return findings
}

// topFrames returns, per thread, its first n stack frames, flattened. Used
// by rule groups that only care about the top of each stack.
func topFrames(snap *model.Snapshot, n int) []string {
	var out []string
	for _, t := range snap.Threads {
		frames := t.Frames
		if len(frames) > n {
			frames = frames[:n]
		}
		out = append(out, frames...)
	}
	return out
}

func waitClassificationSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	httpCount := countThreadsWithAnyFrame(snap, "HttpClient", "System.Net.Http", "HttpConnection")
	if httpCount >= 3 {
		findings = append(findings, model.Finding{
			Title:          "HTTP I/O waits observed",
			Severity:       model.SeverityInfo,
			Evidence:       fmt.Sprintf("%d threads waiting in HTTP client code", httpCount),
			Recommendation: "",
		})
	}

	sqlCount := countThreadsWithAnyFrame(snap, "SqlClient", "Microsoft.Data.SqlClient", "System.Data.SqlClient")
	if sqlCount >= 3 {
		findings = append(findings, model.Finding{
			Title:          "SQL I/O waits observed",
			Severity:       model.SeverityInfo,
			Evidence:       fmt.Sprintf("%d threads waiting in SQL client code", sqlCount),
			Recommendation: "",
		})
	}

	taskWaitCount := countThreadsWithAnyFrame(snap, "Task.Wait", "Task`1.GetResult", "GetAwaiter().GetResult")
	if taskWaitCount >= 3 {
		findings = append(findings, model.Finding{
			Title:          "Sync-over-async / Task waits detected",
			Severity:       model.SeverityWarning,
			Evidence:       fmt.Sprintf("%d threads blocked on a Task result", taskWaitCount),
			Recommendation: "Blocking on async code from a sync caller risks ThreadPool starvation; await instead of .Result/.Wait().",
		})
	}
	return findings
}

func countThreadsWithAnyFrame(snap *model.Snapshot, needles ...string) int {
	count := 0
	for _, t := range snap.Threads {
		for _, f := range t.Frames {
			if anyContainsFold(f, needles...) {
				count++
				break
			}
		}
	}
	return count
}

// nonMonitorBlockingSignals takes each blocked thread's first frame that is
// non-empty and not a Monitor frame, skipping over any Monitor frames at
// the top of the stack rather than dropping the thread outright (see
// DESIGN.md Open Questions).
func nonMonitorBlockingSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	counts := map[string]int{}
	var order []string
	for _, t := range snap.Threads {
		if !anyContainsFold(t.State, "Wait", "Sleep", "Block") {
			continue
		}
		for _, f := range t.Frames {
			if f == "" || containsFold(f, "Monitor") {
				continue
			}
			if _, ok := counts[f]; !ok {
				order = append(order, f)
			}
			counts[f]++
			break
		}
	}

	type hotFrame struct {
		frame string
		count int
	}
	var hot []hotFrame
	for _, f := range order {
		if counts[f] >= 5 {
			hot = append(hot, hotFrame{f, counts[f]})
		}
	}
	sort.SliceStable(hot, func(i, j int) bool { return hot[i].count > hot[j].count })
	if len(hot) > 3 {
		hot = hot[:3]
	}
	if len(hot) == 0 {
		return findings
	}

	lines := make([]string, 0, len(hot))
	for _, h := range hot {
		lines = append(lines, fmt.Sprintf("%s (%d threads)", h.frame, h.count))
	}
	findings = append(findings, model.Finding{
		Title:          "Non-monitor blocking hotspot",
		Severity:       model.SeverityWarning,
		Evidence:       strings.Join(lines, "\n"),
		Recommendation: "These threads are blocked outside the monitor/lock machinery; check for unbounded I/O waits or semaphores.",
	})
	return findings
}

func heapLeakSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	if len(snap.HeapHistogram) == 0 || snap.GC.TotalHeapBytes == 0 {
		return findings
	}
	top := snap.HeapHistogram[0]
	if float64(top.TotalSize)/float64(snap.GC.TotalHeapBytes) > 0.5 {
		findings = append(findings, model.Finding{
			Title:    "Dominant heap type detected",
			Severity: model.SeverityWarning,
			Evidence: fmt.Sprintf("%s accounts for %.0f%% of the managed heap (%d instances, %d bytes)",
				top.TypeName, float64(top.TotalSize)/float64(snap.GC.TotalHeapBytes)*100, top.InstanceCount, top.TotalSize),
			Recommendation: "A single type dominating the heap is a common leak signature; check ownership/lifetime of that type.",
		})
	}
	return findings
}

func moduleAnomalies(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	var large []model.ModuleInfo
	for _, m := range snap.Modules {
		if m.Size >= 200*mib {
			large = append(large, m)
		}
	}
	sort.SliceStable(large, func(i, j int) bool { return large[i].Size > large[j].Size })
	if len(large) > 5 {
		large = large[:5]
	}
	if len(large) > 0 {
		names := make([]string, 0, len(large))
		for _, m := range large {
			names = append(names, fmt.Sprintf("%s (%d bytes)", m.Name, m.Size))
		}
		findings = append(findings, model.Finding{
			Title:          "Unusually large modules loaded",
			Severity:       model.SeverityWarning,
			Evidence:       strings.Join(names, ", "),
			Recommendation: "Confirm these large modules are expected; an oversized native dependency inflates working set.",
		})
	}

	var instrumentation []string
	for _, m := range snap.Modules {
		if anyContainsFold(m.Name, "profiler", "instrumentation", "agent") {
			instrumentation = append(instrumentation, m.Name)
		}
	}
	if len(instrumentation) > 0 {
		findings = append(findings, model.Finding{
			Title:          "Profiler/instrumentation modules detected",
			Severity:       model.SeverityInfo,
			Evidence:       strings.Join(instrumentation, ", "),
			Recommendation: "",
		})
	}
	return findings
}

func coverageSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	if len(snap.HeapHistogram) > 0 && snap.HeapHistogramCoverage < 0.5 {
		findings = append(findings, model.Finding{
			Title:          "Heap type coverage limited",
			Severity:       model.SeverityInfo,
			Evidence:       fmt.Sprintf("histogram covers %.0f%% of total heap bytes", snap.HeapHistogramCoverage*100),
			Recommendation: "",
		})
	}
	if len(snap.Modules) > 0 && snap.ModuleCoverageShown < 0.9 {
		findings = append(findings, model.Finding{
			Title:          "Module list truncated",
			Severity:       model.SeverityInfo,
			Evidence:       fmt.Sprintf("shown modules cover %.0f%% of total module bytes", snap.ModuleCoverageShown*100),
			Recommendation: "",
		})
	}
	return findings
}

func nativeSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	if snap.TotalModuleBytes > 1_000_000_000 && snap.GC.TotalHeapBytes < 512*mib {
		findings = append(findings, model.Finding{
			Title:    "Native footprint elevated",
			Severity: model.SeverityInfo,
			Evidence: fmt.Sprintf("total_module_bytes=%d total_heap_bytes=%d",
				snap.TotalModuleBytes, snap.GC.TotalHeapBytes),
			Recommendation: "Managed memory looks modest relative to the loaded native footprint; consider checking unmanaged allocations.",
		})
	}
	return findings
}

func dataAvailabilitySignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	if len(snap.Warnings) == 0 {
		return findings
	}
	lines := make([]string, 0, len(snap.Warnings))
	for _, w := range snap.Warnings {
		lines = append(lines, fmt.Sprintf("[%s] %s", w.Category, w.Message))
	}
	findings = append(findings, model.Finding{
		Title:          "Data availability warning",
		Severity:       model.SeverityWarning,
		Evidence:       strings.Join(lines, "\n"),
		Recommendation: "This snapshot is incomplete in at least one respect; treat other findings as lower-confidence.",
	})
	return findings
}

func deadlockSignals(findings []model.Finding, snap *model.Snapshot) []model.Finding {
	for _, d := range snap.Deadlocks {
		if d.WaitingThreadCount <= 0 {
			continue
		}
		owner := "unknown"
		if d.OwnerThreadID != nil {
			owner = fmt.Sprintf("%d", *d.OwnerThreadID)
		}
		findings = append(findings, model.Finding{
			Title:    "Potential deadlock/monitor contention",
			Severity: model.SeverityCritical,
			Evidence: fmt.Sprintf("object=0x%x owner=%s waiting=%d",
				d.ObjectAddress, owner, d.WaitingThreadCount),
			Recommendation: "Identify the owning thread's stack and what it is blocked on; a lock-ordering cycle is likely.",
		})
	}
	return findings
}
