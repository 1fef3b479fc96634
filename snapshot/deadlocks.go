package snapshot

import (
	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/model"
)

// buildDeadlocks turns sync blocks worth surfacing into DeadlockCandidates
// (spec §4.1 phase 7). A block qualifies if it has waiters or its monitor
// is held. The owner is resolved by mapping the holding thread's address
// to a managed id; an unmapped address means an unknown owner.
func buildDeadlocks(blocks []inspector.SyncBlock, addrToManagedID map[uint64]int) []model.DeadlockCandidate {
	var out []model.DeadlockCandidate
	for _, sb := range blocks {
		if sb.WaitingThreadCount <= 0 && !sb.IsMonitorHeld {
			continue
		}
		cand := model.DeadlockCandidate{
			WaitingThreadCount: sb.WaitingThreadCount,
			ObjectAddress:      sb.ObjectAddress,
		}
		if sb.HoldingThreadAddress != 0 {
			if id, ok := addrToManagedID[sb.HoldingThreadAddress]; ok {
				managedID := id
				cand.OwnerThreadID = &managedID
			}
		}
		out = append(out, cand)
	}
	return out
}
