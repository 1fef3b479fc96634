package snapshot

import (
	"context"
	"testing"

	"github.com/chrono-triage/dumptriage/inspector/fakeinspector"
	"github.com/chrono-triage/dumptriage/model"
)

func TestWalkHeapBuildsHistogramAndCapturesStrings(t *testing.T) {
	f := &fakeinspector.Fake{
		Heap: &fakeinspector.FakeHeap{
			Walkable: true,
			Objects: []fakeinspector.Object{
				{Address: 1, Valid: true, HasType: true, Type: "Foo", Sz: 10},
				{Address: 2, Valid: true, HasType: true, Type: "Foo", Sz: 10},
				{Address: 3, Valid: true, HasType: true, Type: "Bar", Sz: 100},
				{Address: 4, Valid: true, HasType: true, Type: "System.String", String: true, Sz: 8, Text: "abc"},
			},
		},
	}
	insp := f.Open()
	rt, err := insp.CreateRuntime(context.Background(), 0)
	if err != nil {
		t.Fatalf("CreateRuntime: %v", err)
	}
	heap, ok := rt.Heap()
	if !ok {
		t.Fatalf("expected heap")
	}

	opts := defaultOptions()
	dict := newStringDict()
	var warns []model.DataWarning
	res := walkHeap(context.Background(), heap, opts, 1000, dict, map[uint64]map[int]bool{}, func(w model.DataWarning) { warns = append(warns, w) })

	if res.totalObjects != 4 {
		t.Fatalf("totalObjects = %d, want 4", res.totalObjects)
	}
	if res.totalHeapTypeCount != 3 {
		t.Fatalf("totalHeapTypeCount = %d, want 3", res.totalHeapTypeCount)
	}
	if len(res.histogram) != 3 {
		t.Fatalf("expected 3 histogram rows (below display min), got %d", len(res.histogram))
	}
	if res.histogram[0].TypeName != "Bar" {
		t.Fatalf("expected Bar (size 100) first, got %+v", res.histogram)
	}
	if dict.len() != 1 {
		t.Fatalf("expected one captured heap string, got %d", dict.len())
	}
}

func TestWalkHeapDisabledWhenHistogramCountZero(t *testing.T) {
	f := &fakeinspector.Fake{
		Heap: &fakeinspector.FakeHeap{Walkable: true, Objects: []fakeinspector.Object{{Address: 1, Valid: true, HasType: true, Type: "Foo", Sz: 10}}},
	}
	insp := f.Open()
	rt, _ := insp.CreateRuntime(context.Background(), 0)
	heap, _ := rt.Heap()

	opts := defaultOptions()
	opts.HeapHistogramCount = 0
	res := walkHeap(context.Background(), heap, opts, 1000, newStringDict(), nil, func(model.DataWarning) {})
	if res.totalObjects != 0 {
		t.Fatalf("expected heap walk to be fully disabled, got %+v", res)
	}
}

func TestExtractStackStringsResolvesRootsAndDedupes(t *testing.T) {
	f := &fakeinspector.Fake{
		Threads: []fakeinspector.Thread{
			{ManagedID: 1, Roots: []uint64{0x10, 0x20}},
			{ManagedID: 2, Roots: []uint64{0x10}},
		},
		Heap: &fakeinspector.FakeHeap{
			Walkable: true,
			Objects: []fakeinspector.Object{
				{Address: 0x10, Valid: true, String: true, HasType: true, Type: "System.String", Text: "shared"},
				{Address: 0x20, Valid: true, String: true, HasType: true, Type: "System.String", Text: "unique"},
			},
		},
	}
	insp := f.Open()
	rt, _ := insp.CreateRuntime(context.Background(), 0)
	threads, _ := rt.Threads(context.Background())
	heap, _ := rt.Heap()

	var warns []model.DataWarning
	res := extractStackStrings(context.Background(), threads, heap, defaultOptions(), func(w model.DataWarning) { warns = append(warns, w) })

	if res.dict.len() != 2 {
		t.Fatalf("expected 2 unique strings, got %d", res.dict.len())
	}
	strs := res.dict.strings()
	for _, s := range strs {
		if s.Text == "shared" {
			if s.Occurrences != 2 {
				t.Fatalf("expected 'shared' to be observed twice, got %d", s.Occurrences)
			}
			if len(s.ThreadIDs) != 2 {
				t.Fatalf("expected both threads recorded as owners, got %v", s.ThreadIDs)
			}
		}
	}
	if len(res.stackOwners[0x10]) != 2 {
		t.Fatalf("expected stackOwners[0x10] to have 2 entries, got %d", len(res.stackOwners[0x10]))
	}
}
