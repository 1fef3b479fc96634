package snapshot

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/inspector/fakeinspector"
	"github.com/chrono-triage/dumptriage/model"
)

func defaultOptions() Options {
	return Options{
		MaxStringsToCapture: 500,
		MaxStringLength:     200,
		HeapStringLimit:     500,
		HeapHistogramCount:  10,
		MaxStackFrames:      32,
		TopStackThreads:     10,
	}
}

func tempDumpFile(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "dump-*.bin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	f.Close()
	return f.Name()
}

func TestBuildMissingPath(t *testing.T) {
	_, err := Build(context.Background(), "", defaultOptions(), open(&fakeinspector.Fake{}))
	if !errors.Is(err, ErrMissingPath) {
		t.Fatalf("expected ErrMissingPath, got %v", err)
	}
}

func TestBuildFileNotFound(t *testing.T) {
	_, err := Build(context.Background(), "/no/such/path/dump.bin", defaultOptions(), open(&fakeinspector.Fake{}))
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestBuildNoManagedRuntime(t *testing.T) {
	path := tempDumpFile(t)
	f := &fakeinspector.Fake{NoRuntime: true}
	_, err := Build(context.Background(), path, defaultOptions(), open(f))
	if !errors.Is(err, ErrNoManagedRuntime) {
		t.Fatalf("expected ErrNoManagedRuntime, got %v", err)
	}
}

func TestBuildHappyPath(t *testing.T) {
	path := tempDumpFile(t)
	f := &fakeinspector.Fake{
		Threads: []fakeinspector.Thread{
			{ManagedID: 1, Address: 0x1000, State: "Running", Roots: []uint64{0xA1}},
			{ManagedID: 2, Address: 0x2000, State: "Wait", LockCount: 3},
		},
		Heap: &fakeinspector.FakeHeap{
			Walkable: true,
			Segments: []inspector.Segment{
				{Kind: inspector.SegmentGen0, Length: 1024},
				{Kind: inspector.SegmentGen2, Length: 4096},
			},
			Objects: []fakeinspector.Object{
				{Address: 0xA1, Valid: true, String: true, HasType: true, Type: "System.String", Sz: 32, Text: "hello from the stack"},
				{Address: 0xB1, Valid: true, String: true, HasType: true, Type: "System.String", Sz: 16, Text: "heap only string"},
			},
		},
		Modules: []fakeinspector.Module{
			{Name: "coreclr.dll", Size: 2048},
			{Name: "myapp.dll", Size: 512},
		},
	}

	snap, err := Build(context.Background(), path, defaultOptions(), open(f))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if snap.TotalThreadCount != 2 {
		t.Fatalf("TotalThreadCount = %d, want 2", snap.TotalThreadCount)
	}
	if snap.GC.TotalHeapBytes != 5120 {
		t.Fatalf("TotalHeapBytes = %d, want 5120", snap.GC.TotalHeapBytes)
	}
	if snap.TotalModuleCount != 2 || snap.TotalModuleBytes != 2560 {
		t.Fatalf("modules = %+v", snap)
	}
	if snap.UniqueStringCount != 2 {
		t.Fatalf("UniqueStringCount = %d, want 2", snap.UniqueStringCount)
	}
	if snap.TotalHeapObjectCount != 2 {
		t.Fatalf("TotalHeapObjectCount = %d, want 2", snap.TotalHeapObjectCount)
	}
	foundStack := false
	for _, s := range snap.Strings {
		if s.Text == "hello from the stack" {
			foundStack = true
			if s.Source != model.SourceStackAndHeap && s.Source != model.SourceStack {
				t.Fatalf("unexpected source for stack-resolved string: %v", s.Source)
			}
		}
	}
	if !foundStack {
		t.Fatalf("expected to find the stack-resolved string, got %+v", snap.Strings)
	}
}

func TestBuildHeapUnavailableWarning(t *testing.T) {
	path := tempDumpFile(t)
	f := &fakeinspector.Fake{
		Threads: []fakeinspector.Thread{{ManagedID: 1, State: "Running"}},
	}
	snap, err := Build(context.Background(), path, defaultOptions(), open(f))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	found := false
	for _, w := range snap.Warnings {
		if w.Category == model.CategoryHeapUnavailable {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected HeapUnavailable warning when no heap is present")
	}
}

func TestBuildContextCancelled(t *testing.T) {
	path := tempDumpFile(t)
	f := &fakeinspector.Fake{Threads: []fakeinspector.Thread{{ManagedID: 1}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, path, defaultOptions(), open(f))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func open(f *fakeinspector.Fake) inspector.Open {
	return func(string) (inspector.Inspector, error) { return f.Open(), nil }
}
