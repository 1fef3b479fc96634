package snapshot

import (
	"sort"

	"github.com/chrono-triage/dumptriage/model"
)

// sortWarnings stably sorts by category priority (the WarningCategory
// integer values are themselves the priority order, spec §3) then by
// message text, so two builds over the same inspector always produce the
// same warning order.
func sortWarnings(warns []model.DataWarning) {
	sort.SliceStable(warns, func(i, j int) bool {
		if warns[i].Category != warns[j].Category {
			return warns[i].Category < warns[j].Category
		}
		return warns[i].Message < warns[j].Message
	})
}
