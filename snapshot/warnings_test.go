package snapshot

import (
	"testing"

	"github.com/chrono-triage/dumptriage/model"
)

func TestSortWarningsByCategoryThenMessage(t *testing.T) {
	warns := []model.DataWarning{
		{Category: model.CategoryModuleClamp, Message: "z"},
		{Category: model.CategoryHeapUnavailable, Message: "b"},
		{Category: model.CategoryHeapUnavailable, Message: "a"},
	}
	sortWarnings(warns)

	if warns[0].Message != "a" || warns[1].Message != "b" {
		t.Fatalf("expected HeapUnavailable warnings sorted a,b first: %+v", warns)
	}
	if warns[2].Category != model.CategoryModuleClamp {
		t.Fatalf("expected ModuleClamp last: %+v", warns)
	}
}
