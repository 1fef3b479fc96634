package snapshot

import (
	"context"

	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/model"
)

// stackExtractionResult carries the dictionary plus the stack_owners join
// table (object address -> owning thread ids) that the heap walk (§4.1.3)
// needs to attribute heap-only string hits to the threads that pinned them.
type stackExtractionResult struct {
	dict        *stringDict
	stackOwners map[uint64]map[int]bool
	deduped     int
}

// extractStackStrings implements spec §4.1.2: walk every alive thread's
// stack roots (not just the display-capped kept set — it runs after
// thread selection, but it's scoped over all of A regardless), resolving
// each root to a heap object and aggregating
// string text into the shared dictionary.
func extractStackStrings(ctx context.Context, allThreads []inspector.ThreadHandle, heap inspector.Heap, opts Options, warn func(model.DataWarning)) stackExtractionResult {
	res := stackExtractionResult{
		dict:        newStringDict(),
		stackOwners: make(map[uint64]map[int]bool),
	}

	if opts.MaxStringsToCapture > StringCaptureHardCap || opts.MaxStringLength > StringLengthHardCap {
		warn(model.DataWarning{
			Category: model.CategoryStringClamp,
			Message:  "requested string capture limits exceed hard caps; clamped",
		})
	}

	captureLimit := opts.captureLimit()
	effectiveMaxLen := opts.effectiveMaxLength()

outer:
	for _, th := range allThreads {
		tid := th.ManagedID()
		roots, err := th.StackRoots(ctx)
		if err != nil {
			continue
		}
		for _, addr := range roots {
			if res.stackOwners[addr] == nil {
				res.stackOwners[addr] = make(map[int]bool)
			}
			res.stackOwners[addr][tid] = true

			if res.dict.len() >= captureLimit {
				break outer
			}

			if heap == nil {
				continue
			}
			obj, err := heap.GetObject(addr)
			if err != nil || obj == nil || !obj.IsValid() || !obj.IsString() {
				continue
			}
			raw, err := obj.AsString(ctx, effectiveMaxLen+1)
			if err != nil {
				continue
			}
			if raw == "" {
				continue
			}

			text := raw
			truncated := false
			totalLen := len([]rune(raw))
			if totalLen > effectiveMaxLen {
				text = headTailTruncate(raw, effectiveMaxLen)
				truncated = true
			}

			owner := tid
			isNew := res.dict.upsert(text, totalLen, truncated, model.SourceStack, &owner)
			if !isNew {
				res.deduped++
			}
		}
	}

	if res.deduped > 0 {
		warn(model.DataWarning{
			Category: model.CategoryStringDedupe,
			Message:  dedupeMessage("stack-root", res.deduped),
		})
	}

	return res
}
