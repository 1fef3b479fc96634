// Package model holds the data produced by a triage run: the extracted
// snapshot of a process dump and the findings the reasoner derives from it.
// Every type here is a plain value built once by package snapshot and read
// only afterward — there is no mutation API.
package model

// ThreadSnapshot describes one managed thread captured from the dump.
type ThreadSnapshot struct {
	ManagedID           int
	State               string
	LockCount           int
	CurrentException    string // "" if no exception is in flight
	IsFinalizer         bool
	IsGC                bool
	Frames              []string
	CapturedFrameCount  int
	RequestedFrameCount int
	CPUTimeMs           *float64 // nil if the inspector had no CPU-time accessor
}

// StringSource identifies where a NotableString was observed.
type StringSource int

const (
	SourceStack StringSource = iota
	SourceHeap
	SourceStackAndHeap
)

func (s StringSource) String() string {
	switch s {
	case SourceStack:
		return "stack"
	case SourceHeap:
		return "heap"
	case SourceStackAndHeap:
		return "stack+heap"
	default:
		return "unknown"
	}
}

// NotableString is a deduplicated string value pulled from stack roots
// and/or the heap walk. Text may be head+tail-truncated; TotalLength
// always reflects the pre-truncation length of the first observer.
type NotableString struct {
	ThreadIDs    []int // owning thread ids, ascending, may be empty
	Text         string
	TotalLength  int
	WasTruncated bool
	Source       StringSource
	Occurrences  int
}

// GcSnapshot summarizes the managed heap at dump time.
type GcSnapshot struct {
	TotalHeapBytes       uint64
	LargeObjectHeapBytes uint64
	SegmentCount         int
	IsServerGC           bool
	Gen0Bytes            uint64
	Gen1Bytes            uint64
	Gen2Bytes            uint64
	PinnedBytes          uint64
}

// BlockingSummary aggregates sync-block activity across the whole dump.
type BlockingSummary struct {
	SyncBlockCount     int
	WaitingThreadCount int
}

// DeadlockCandidate is a sync block worth surfacing as possible contention.
type DeadlockCandidate struct {
	OwnerThreadID      *int // nil = owner could not be resolved
	WaitingThreadCount int
	ObjectAddress      uint64
}

// HeapTypeStat is one row of the heap histogram: a type and its retained size.
type HeapTypeStat struct {
	TypeName      string
	TotalSize     uint64
	InstanceCount int
}

// ModuleInfo is one loaded module and its image size.
type ModuleInfo struct {
	Name string
	Size uint64
}

// WarningCategory orders DataWarning entries for stable, deterministic
// display. The integer values ARE the sort priority — do not reorder
// these constants without also reordering the warning sort contract.
type WarningCategory int

const (
	CategoryHeapUnavailable WarningCategory = iota
	CategoryThreadTruncation
	CategoryStackReadPartial
	CategoryThreadSelection
	CategoryStringClamp
	CategoryHeapStringClamp
	CategoryStringDedupe
	CategoryHeapHistogramClamp
	CategoryModuleClamp
	CategoryOther
)

func (c WarningCategory) String() string {
	switch c {
	case CategoryHeapUnavailable:
		return "HeapUnavailable"
	case CategoryThreadTruncation:
		return "ThreadTruncation"
	case CategoryStackReadPartial:
		return "StackReadPartial"
	case CategoryThreadSelection:
		return "ThreadSelection"
	case CategoryStringClamp:
		return "StringClamp"
	case CategoryHeapStringClamp:
		return "HeapStringClamp"
	case CategoryStringDedupe:
		return "StringDedupe"
	case CategoryHeapHistogramClamp:
		return "HeapHistogramClamp"
	case CategoryModuleClamp:
		return "ModuleClamp"
	default:
		return "Other"
	}
}

// DataWarning records a data-quality issue encountered while building a
// snapshot: a bound was hit, a partial read happened, or an optional
// capability was unavailable.
type DataWarning struct {
	Category WarningCategory
	Message  string
}

// Snapshot is the full structured extraction of one dump. It is immutable
// once returned by snapshot.Build and is the sole input to reasoner.Analyze.
type Snapshot struct {
	DumpPath           string
	RuntimeDescription string

	TotalThreadCount int
	Threads          []ThreadSnapshot

	// HostCPUCount is the analyzing host's logical CPU count, captured once
	// at build time. The reasoner's CPU/threadpool/GC rules scale their
	// thresholds against it.
	HostCPUCount int

	GC       GcSnapshot
	Blocking BlockingSummary

	Strings   []NotableString
	Deadlocks []DeadlockCandidate

	HeapHistogram      []HeapTypeStat
	TotalHeapTypeCount int

	Modules          []ModuleInfo
	TotalModuleCount int
	TotalModuleBytes uint64

	ModuleCoverageShown float64

	UniqueStringCount      int
	TotalStringOccurrences int
	StackStringOccurrences int
	HeapStringOccurrences  int

	TotalHeapObjectCount  int
	HeapHistogramCoverage float64

	Warnings []DataWarning
}
