package snapshot

import (
	"context"
	"fmt"
	"sort"

	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/model"
)

const moduleDisplayTop = 20

// buildModules enumerates every module and returns the full list, its
// total byte size, and the share of those bytes covered by the top 20
// modules by size (spec §4.1 phases 9-10). The full list is what
// Snapshot.Modules holds; clamping only affects the coverage computation
// and the warning.
func buildModules(ctx context.Context, rt inspector.Runtime, warn func(model.DataWarning)) ([]model.ModuleInfo, uint64, float64) {
	handles, err := rt.Modules(ctx)
	if err != nil {
		return nil, 0, 0
	}

	mods := make([]model.ModuleInfo, 0, len(handles))
	var total uint64
	for _, h := range handles {
		mods = append(mods, model.ModuleInfo{Name: h.Name(), Size: h.Size()})
		total += h.Size()
	}

	if len(mods) > moduleDisplayTop {
		warn(model.DataWarning{
			Category: model.CategoryModuleClamp,
			Message:  fmt.Sprintf("%d modules loaded, showing top %d by size", len(mods), moduleDisplayTop),
		})
	}

	top := append([]model.ModuleInfo(nil), mods...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Size > top[j].Size })
	if len(top) > moduleDisplayTop {
		top = top[:moduleDisplayTop]
	}

	var shown uint64
	for _, m := range top {
		shown += m.Size
	}

	coverage := clamp01(ratio(shown, total))
	return mods, total, coverage
}

func ratio(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
