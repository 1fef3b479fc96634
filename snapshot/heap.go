package snapshot

import (
	"context"
	"fmt"
	"sort"

	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/model"
)

func dedupeMessage(what string, count int) string {
	return fmt.Sprintf("%d duplicate %s string observation(s) folded into existing entries", count, what)
}

const heapHistogramDisplayMin = 10

// heapWalkResult carries both outputs of the single heap object iteration
// (spec §4.1.3 notes implementations may fuse the histogram walk and the
// heap-string walk into one pass over Objects()).
type heapWalkResult struct {
	totalObjects int
	histogram    []model.HeapTypeStat
	histoCoverage float64
	totalHeapTypeCount int
}

// walkHeap performs the type histogram accumulation and the heap-string
// capture in a single iteration over the heap's objects. dict/stackOwners
// come from the prior stack-root extraction (§4.1.2) and are mutated in
// place to fold in heap-observed strings.
func walkHeap(ctx context.Context, heap inspector.Heap, opts Options, gcTotalHeapBytes uint64, dict *stringDict, stackOwners map[uint64]map[int]bool, warn func(model.DataWarning)) heapWalkResult {
	var res heapWalkResult
	if heap == nil || !heap.CanWalk() || opts.HeapHistogramCount <= 0 {
		return res
	}

	it, err := heap.Objects(ctx)
	if err != nil {
		return res
	}

	type typeAcc struct {
		size  uint64
		count int
	}
	byType := make(map[string]*typeAcc)

	effectiveMaxLen := opts.effectiveMaxLength()
	startingCount := dict.len()
	available := StringCaptureHardCap - startingCount
	if available < 0 {
		available = 0
	}
	captureLimit := opts.HeapStringLimit
	if captureLimit > available {
		if opts.HeapStringLimit > 0 {
			warn(model.DataWarning{
				Category: model.CategoryHeapStringClamp,
				Message:  "requested heap string limit exceeds remaining global string capture budget; clamped",
			})
		}
		captureLimit = available
	}

	heapDeduped := 0

	for {
		obj, ok, err := it.Next(ctx)
		if err != nil {
			continue
		}
		if !ok {
			break
		}
		res.totalObjects++

		if name, hasType := obj.TypeName(); hasType && name != "" {
			acc, ok := byType[name]
			if !ok {
				acc = &typeAcc{}
				byType[name] = acc
			}
			acc.size += obj.Size()
			acc.count++
		}

		if dict.len() >= startingCount+captureLimit {
			continue // keep counting the histogram even once string budget is spent
		}
		if !obj.IsValid() || !obj.IsString() {
			continue
		}
		raw, err := obj.AsString(ctx, effectiveMaxLen+1)
		if err != nil || raw == "" {
			continue
		}

		text := raw
		truncated := false
		totalLen := len([]rune(raw))
		if totalLen > effectiveMaxLen {
			text = headTailTruncate(raw, effectiveMaxLen)
			truncated = true
		}

		isNew := dict.upsert(text, totalLen, truncated, model.SourceHeap, nil)
		if !isNew {
			heapDeduped++
		}
		if owners := stackOwners[obj.Address()]; len(owners) > 0 {
			dict.addOwners(text, owners)
		}
	}

	if heapDeduped > 0 {
		warn(model.DataWarning{
			Category: model.CategoryStringDedupe,
			Message:  dedupeMessage("heap", heapDeduped),
		})
	}

	res.totalHeapTypeCount = len(byType)
	names := make([]string, 0, len(byType))
	for name := range byType {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if byType[names[i]].size != byType[names[j]].size {
			return byType[names[i]].size > byType[names[j]].size
		}
		return names[i] < names[j]
	})

	top := names
	if len(top) > opts.HeapHistogramCount {
		top = top[:opts.HeapHistogramCount]
	}

	var shownBytes uint64
	for _, n := range top {
		acc := byType[n]
		res.histogram = append(res.histogram, model.HeapTypeStat{
			TypeName:      n,
			TotalSize:     acc.size,
			InstanceCount: acc.count,
		})
		shownBytes += acc.size
	}
	res.histoCoverage = clamp01(ratio(shownBytes, gcTotalHeapBytes))

	if len(names) > heapHistogramDisplayMin {
		warn(model.DataWarning{
			Category: model.CategoryHeapHistogramClamp,
			Message: fmt.Sprintf("%d heap types observed, showing top %d by size (coverage=%.2f)",
				len(names), len(top), res.histoCoverage),
		})
	}

	return res
}
