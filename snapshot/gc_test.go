package snapshot

import (
	"context"
	"testing"

	"github.com/chrono-triage/dumptriage/inspector"
)

func TestBuildGCNilHeap(t *testing.T) {
	gc := buildGC(context.Background(), nil)
	if gc.TotalHeapBytes != 0 || gc.SegmentCount != 0 {
		t.Fatalf("expected zero-value GcSnapshot for nil heap, got %+v", gc)
	}
}

func TestBuildGCSumsByKind(t *testing.T) {
	f := &fakeHeapForGC{
		server: true,
		segs: []inspector.Segment{
			{Kind: inspector.SegmentGen0, Length: 10},
			{Kind: inspector.SegmentGen1, Length: 20},
			{Kind: inspector.SegmentGen2, Length: 30},
			{Kind: inspector.SegmentLarge, Length: 40},
			{Kind: inspector.SegmentPinned, Length: 5},
		},
	}
	gc := buildGC(context.Background(), f)
	if !gc.IsServerGC {
		t.Fatalf("expected IsServerGC true")
	}
	if gc.Gen0Bytes != 10 || gc.Gen1Bytes != 20 || gc.Gen2Bytes != 30 || gc.LargeObjectHeapBytes != 40 || gc.PinnedBytes != 5 {
		t.Fatalf("unexpected per-gen totals: %+v", gc)
	}
	if gc.TotalHeapBytes != 105 {
		t.Fatalf("TotalHeapBytes = %d, want 105", gc.TotalHeapBytes)
	}
	if gc.SegmentCount != 5 {
		t.Fatalf("SegmentCount = %d, want 5", gc.SegmentCount)
	}
}

// fakeHeapForGC is a minimal inspector.Heap stub scoped to this file's
// GC-accounting tests; its object-walk methods are nil-returning stubs.
type fakeHeapForGC struct {
	server bool
	segs   []inspector.Segment
}

func (f *fakeHeapForGC) CanWalk() bool  { return false }
func (f *fakeHeapForGC) IsServer() bool { return f.server }
func (f *fakeHeapForGC) Segments(ctx context.Context) ([]inspector.Segment, error) {
	return f.segs, nil
}
func (f *fakeHeapForGC) Objects(ctx context.Context) (inspector.ObjectIterator, error) {
	return nil, nil
}
func (f *fakeHeapForGC) GetObject(addr uint64) (inspector.ObjectHandle, error) { return nil, nil }
func (f *fakeHeapForGC) SyncBlocks(ctx context.Context) ([]inspector.SyncBlock, error) {
	return nil, nil
}
