package snapshot

import (
	"testing"

	"github.com/chrono-triage/dumptriage/inspector"
)

func TestBuildDeadlocksResolvesOwner(t *testing.T) {
	blocks := []inspector.SyncBlock{
		{WaitingThreadCount: 2, HoldingThreadAddress: 0x100, ObjectAddress: 0xAAA},
		{WaitingThreadCount: 0, IsMonitorHeld: false}, // not worth surfacing
		{WaitingThreadCount: 0, IsMonitorHeld: true, HoldingThreadAddress: 0x200, ObjectAddress: 0xBBB},
		{WaitingThreadCount: 1, HoldingThreadAddress: 0x999, ObjectAddress: 0xCCC}, // unmapped owner
	}
	addrToID := map[uint64]int{0x100: 7, 0x200: 9}

	got := buildDeadlocks(blocks, addrToID)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %+v", len(got), got)
	}
	if got[0].OwnerThreadID == nil || *got[0].OwnerThreadID != 7 {
		t.Fatalf("expected owner 7, got %+v", got[0])
	}
	if got[1].OwnerThreadID == nil || *got[1].OwnerThreadID != 9 {
		t.Fatalf("expected owner 9, got %+v", got[1])
	}
	if got[2].OwnerThreadID != nil {
		t.Fatalf("expected unresolved owner for unmapped address, got %+v", got[2])
	}
}
