package snapshot

import (
	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/model"
)

// buildBlocking enumerates sync blocks into a BlockingSummary (spec §4.1
// phase 5): sync_block_count = total, waiting_thread_count = sum of each
// block's waiting count.
func buildBlocking(blocks []inspector.SyncBlock) model.BlockingSummary {
	var b model.BlockingSummary
	b.SyncBlockCount = len(blocks)
	for _, sb := range blocks {
		b.WaitingThreadCount += sb.WaitingThreadCount
	}
	return b
}
