package snapshot

import (
	"context"

	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/model"
)

// buildGC sums segment lengths by kind into a GcSnapshot (spec §4.1 phase 4).
func buildGC(ctx context.Context, heap inspector.Heap) model.GcSnapshot {
	var gc model.GcSnapshot
	if heap == nil {
		return gc
	}
	gc.IsServerGC = heap.IsServer()

	segs, err := heap.Segments(ctx)
	if err != nil {
		return gc
	}
	gc.SegmentCount = len(segs)
	for _, s := range segs {
		switch s.Kind {
		case inspector.SegmentGen0:
			gc.Gen0Bytes += s.Length
		case inspector.SegmentGen1:
			gc.Gen1Bytes += s.Length
		case inspector.SegmentGen2:
			gc.Gen2Bytes += s.Length
		case inspector.SegmentLarge:
			gc.LargeObjectHeapBytes += s.Length
		case inspector.SegmentPinned:
			gc.PinnedBytes += s.Length
		}
		gc.TotalHeapBytes += s.Length
	}
	return gc
}
