package snapshot

import (
	"testing"

	"github.com/chrono-triage/dumptriage/model"
)

func TestStringDictDedupeAndMerge(t *testing.T) {
	d := newStringDict()

	tid1 := 1
	if isNew := d.upsert("hello", 5, false, model.SourceStack, &tid1); !isNew {
		t.Fatalf("first insert should be new")
	}
	if d.len() != 1 {
		t.Fatalf("len = %d, want 1", d.len())
	}

	tid2 := 2
	if isNew := d.upsert("hello", 5, false, model.SourceHeap, &tid2); isNew {
		t.Fatalf("second insert should dedupe")
	}
	if d.len() != 1 {
		t.Fatalf("dedupe hit must not grow len, got %d", d.len())
	}

	out := d.strings()
	if len(out) != 1 {
		t.Fatalf("expected 1 string, got %d", len(out))
	}
	s := out[0]
	if s.Occurrences != 2 {
		t.Fatalf("occurrences = %d, want 2", s.Occurrences)
	}
	if s.Source != model.SourceStackAndHeap {
		t.Fatalf("source = %v, want StackAndHeap", s.Source)
	}
	if len(s.ThreadIDs) != 2 || s.ThreadIDs[0] != 1 || s.ThreadIDs[1] != 2 {
		t.Fatalf("thread ids = %v, want [1 2]", s.ThreadIDs)
	}
}

func TestStringDictAddOwnersDoesNotBumpOccurrences(t *testing.T) {
	d := newStringDict()
	d.upsert("world", 5, false, model.SourceHeap, nil)
	d.addOwners("world", map[int]bool{7: true})

	out := d.strings()
	if out[0].Occurrences != 1 {
		t.Fatalf("addOwners must not change occurrences, got %d", out[0].Occurrences)
	}
	if out[0].Source != model.SourceHeap {
		t.Fatalf("addOwners must not change source, got %v", out[0].Source)
	}
	if len(out[0].ThreadIDs) != 1 || out[0].ThreadIDs[0] != 7 {
		t.Fatalf("expected owner 7, got %v", out[0].ThreadIDs)
	}
}

func TestStringDictFirstSeenOrder(t *testing.T) {
	d := newStringDict()
	d.upsert("b", 1, false, model.SourceStack, nil)
	d.upsert("a", 1, false, model.SourceStack, nil)
	d.upsert("b", 1, false, model.SourceStack, nil)

	out := d.strings()
	if len(out) != 2 || out[0].Text != "b" || out[1].Text != "a" {
		t.Fatalf("expected first-seen order [b a], got %+v", out)
	}
}
