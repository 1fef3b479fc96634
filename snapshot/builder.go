// Package snapshot implements the SnapshotBuilder: a deterministic,
// bounded extraction pipeline that turns an inspector.Inspector plus a
// set of Options into an immutable model.Snapshot. It is the "hard part"
// of dumptriage (spec §1): every limit on a walk over untrusted,
// potentially huge dump data must be enforced and observable as a
// model.DataWarning rather than as a crash or a silent truncation.
package snapshot

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/model"
)

// Build runs the full extraction pipeline (spec §4.1, phases 1-11) over
// the dump at dumpPath. open is the dump-reader library's entry point
// (inspector.Open); it is injected so tests can substitute a fixture.
func Build(ctx context.Context, dumpPath string, opts Options, open inspector.Open) (*model.Snapshot, error) {
	if strings.TrimSpace(dumpPath) == "" {
		return nil, ErrMissingPath
	}
	if _, err := os.Stat(dumpPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, &InternalError{Cause: err}
	}

	insp, err := open(dumpPath)
	if err != nil {
		return nil, &InternalError{Cause: err}
	}
	defer insp.Close()

	runtimes, err := insp.Runtimes(ctx)
	if err != nil {
		return nil, &InternalError{Cause: err}
	}
	if len(runtimes) == 0 {
		return nil, ErrNoManagedRuntime
	}

	rt, err := insp.CreateRuntime(ctx, 0)
	if err != nil {
		return nil, &InternalError{Cause: err}
	}

	b := &builder{
		opts:               opts,
		dumpPath:           dumpPath,
		runtime:            rt,
		runtimeDescription: runtimes[0].Flavor + " " + runtimes[0].Version,
	}
	return b.run(ctx)
}

type builder struct {
	opts               Options
	dumpPath           string
	runtimeDescription string
	runtime            inspector.Runtime
	warnings           []model.DataWarning
}

func (b *builder) warn(w model.DataWarning) {
	b.warnings = append(b.warnings, w)
}

func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (b *builder) run(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		DumpPath:           b.dumpPath,
		RuntimeDescription: b.runtimeDescription,
		HostCPUCount:       runtime.NumCPU(),
	}

	// Phase 2: seed warnings if the heap is not walkable.
	heap, hasHeap := b.runtime.Heap()
	if !hasHeap || !heap.CanWalk() {
		b.warn(model.DataWarning{Category: model.CategoryHeapUnavailable, Message: "heap is not walkable in this dump"})
	}
	var heapForReads inspector.Heap
	if hasHeap {
		heapForReads = heap
	}

	if err := checkCancel(ctx); err != nil {
		return nil, err
	}

	// Phase 3: thread selection & stack read (§4.1.1).
	threadHandles, err := b.runtime.Threads(ctx)
	if err != nil {
		return nil, &InternalError{Cause: err}
	}
	snap.TotalThreadCount = len(threadHandles)

	addrToManagedID := make(map[uint64]int, len(threadHandles))
	scored := make([]scoredThread, 0, len(threadHandles))
	for _, h := range threadHandles {
		addrToManagedID[h.Address()] = h.ManagedID()
		scored = append(scored, scoreThread(h))
	}

	kept, dropped := selectThreads(scored, b.opts)
	if len(dropped) > 0 {
		b.warn(threadTruncationWarning(dropped))
	}

	threadSnapshots, failedIDs := readStacks(ctx, kept, b.opts.MaxStackFrames)
	if len(failedIDs) > 0 {
		b.warn(stackReadPartialWarning(failedIDs))
	}
	snap.Threads = threadSnapshots

	if err := checkCancel(ctx); err != nil {
		return nil, err
	}

	// Phase 4: GC segment accounting.
	snap.GC = buildGC(ctx, heapForReads)

	// Phase 5: blocking summary.
	var syncBlocks []inspector.SyncBlock
	if heapForReads != nil {
		syncBlocks, _ = heapForReads.SyncBlocks(ctx)
	}
	snap.Blocking = buildBlocking(syncBlocks)

	if err := checkCancel(ctx); err != nil {
		return nil, err
	}

	// Phase 6: stack-root string extraction (§4.1.2).
	stackRes := extractStackStrings(ctx, threadHandles, heapForReads, b.opts, b.warn)

	// Phase 7: deadlock candidates.
	snap.Deadlocks = buildDeadlocks(syncBlocks, addrToManagedID)

	if err := checkCancel(ctx); err != nil {
		return nil, err
	}

	// Phase 8: heap histogram + heap strings (§4.1.3).
	heapRes := walkHeap(ctx, heapForReads, b.opts, snap.GC.TotalHeapBytes, stackRes.dict, stackRes.stackOwners, b.warn)
	snap.TotalHeapObjectCount = heapRes.totalObjects
	snap.TotalHeapTypeCount = heapRes.totalHeapTypeCount
	snap.HeapHistogram = heapRes.histogram
	snap.HeapHistogramCoverage = heapRes.histoCoverage

	if err := checkCancel(ctx); err != nil {
		return nil, err
	}

	// Phase 9-10: modules + coverage.
	mods, totalModuleBytes, moduleCoverage := buildModules(ctx, b.runtime, b.warn)
	snap.Modules = mods
	snap.TotalModuleCount = len(mods)
	snap.TotalModuleBytes = totalModuleBytes
	snap.ModuleCoverageShown = moduleCoverage

	// Finalize strings and their occurrence accounting.
	strs := stackRes.dict.strings()
	snap.Strings = strs
	snap.UniqueStringCount = len(strs)
	for _, s := range strs {
		snap.TotalStringOccurrences += s.Occurrences
		if s.Source == model.SourceStack || s.Source == model.SourceStackAndHeap {
			snap.StackStringOccurrences += s.Occurrences
		}
		if s.Source == model.SourceHeap || s.Source == model.SourceStackAndHeap {
			snap.HeapStringOccurrences += s.Occurrences
		}
	}

	// Phase 11: warning sort.
	sortWarnings(b.warnings)
	snap.Warnings = b.warnings

	return snap, nil
}
