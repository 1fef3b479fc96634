// Package inspector defines the read-only capability set that package
// snapshot consumes to extract a Snapshot from a dump file. The concrete
// implementation (the actual dump-reader library) is external to this
// module — see spec.md §1 and §6; dumptriage never parses dump bytes
// itself, it only walks whatever an Inspector exposes.
package inspector

import "context"

// SegmentKind classifies one GC segment.
type SegmentKind int

const (
	SegmentGen0 SegmentKind = iota
	SegmentGen1
	SegmentGen2
	SegmentLarge
	SegmentPinned
)

// Segment is one GC heap segment.
type Segment struct {
	Kind   SegmentKind
	Length uint64
}

// SyncBlock is a runtime-internal monitor record.
type SyncBlock struct {
	WaitingThreadCount   int
	IsMonitorHeld        bool
	HoldingThreadAddress uint64 // 0 = no holder
	ObjectAddress        uint64
}

// ExceptionInfo describes an in-flight exception on a thread.
type ExceptionInfo struct {
	TypeName string
	Message  string
}

// ObjectHandle is a single heap object reachable from a stack root or the
// heap walk.
type ObjectHandle interface {
	Address() uint64
	IsValid() bool
	TypeName() (string, bool) // ok=false if the type could not be resolved
	IsString() bool
	Size() uint64
	// AsString reads up to maxChars of string content. Implementations may
	// fail partway through a dump; callers treat any error as "skip this
	// object," never as fatal.
	AsString(ctx context.Context, maxChars int) (string, error)
}

// ThreadHandle is one OS/managed thread captured in the dump.
type ThreadHandle interface {
	ManagedID() int
	Address() uint64
	StateText() string
	LockCount() int
	CurrentException() (ExceptionInfo, bool)
	IsFinalizer() bool
	IsGC() bool
	// CPUTimeMs returns the thread's consumed CPU time if the inspector's
	// runtime exposes it, and ok=false otherwise. There is exactly one
	// accessor — no reflective probing of alternate property names.
	CPUTimeMs() (ms float64, ok bool)
	StackRoots(ctx context.Context) ([]uint64, error)
	StackFrames(ctx context.Context) ([]string, error)
}

// Heap is the managed object heap of one runtime.
type Heap interface {
	CanWalk() bool
	IsServer() bool
	Segments(ctx context.Context) ([]Segment, error)
	Objects(ctx context.Context) (ObjectIterator, error)
	GetObject(addr uint64) (ObjectHandle, error)
	SyncBlocks(ctx context.Context) ([]SyncBlock, error)
}

// ObjectIterator walks heap objects one at a time without materializing
// the whole heap in memory; a dump can hold tens of millions of objects.
type ObjectIterator interface {
	Next(ctx context.Context) (ObjectHandle, bool, error)
}

// ModuleHandle is one loaded module.
type ModuleHandle interface {
	Name() string
	Size() uint64
}

// Runtime is one managed runtime found in the dump (a process can host at
// most one in practice, but the inspector always returns an ordered list —
// the builder uses the first).
type Runtime interface {
	Threads(ctx context.Context) ([]ThreadHandle, error)
	Heap() (Heap, bool)
	Modules(ctx context.Context) ([]ModuleHandle, error)
}

// RuntimeInfo describes a runtime candidate before it is materialized.
type RuntimeInfo struct {
	Flavor  string
	Version string
}

// Inspector is the scoped, read-only handle on one opened dump.
type Inspector interface {
	// Runtimes returns the managed runtimes found in the dump, in the
	// inspector's own priority order. An empty slice means no managed
	// runtime was found.
	Runtimes(ctx context.Context) ([]RuntimeInfo, error)
	// CreateRuntime materializes the i'th entry from Runtimes.
	CreateRuntime(ctx context.Context, i int) (Runtime, error)
	// Close releases OS resources held for the opened dump. Safe to call
	// more than once.
	Close() error
}

// Open opens a dump file and returns a scoped Inspector. The concrete
// implementation lives outside this module (spec.md §1); dumptriage links
// against whichever dump-reader library provides it.
type Open func(path string) (Inspector, error)
