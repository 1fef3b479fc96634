package snapshot

// Hard caps no BuildOptions value can exceed, regardless of what the
// caller asks for.
const (
	StringCaptureHardCap = 2000
	StringLengthHardCap  = 32768
)

// Options controls how much of a dump the builder captures. Every field
// is independent. A zero MaxStringsToCapture, HeapStringLimit or
// HeapHistogramCount disables the corresponding capture; a TopStackThreads
// below 10 still keeps 10 threads.
// Options is always passed explicitly — the builder holds no global
// mutable state.
type Options struct {
	// MaxStringsToCapture bounds stack-root string aggregates. 0 disables
	// stack-root string capture.
	MaxStringsToCapture int
	// MaxStringLength is the character budget before head+tail
	// truncation; hard-capped to StringLengthHardCap.
	MaxStringLength int
	// HeapStringLimit bounds *additional* heap-object string captures,
	// beyond whatever stack-root capture already produced. 0 disables it.
	HeapStringLimit int
	// HeapHistogramCount is the number of top types to surface. 0
	// disables the heap walk entirely.
	HeapHistogramCount int
	// MaxStackFrames caps per-thread frame capture.
	MaxStackFrames int
	// TopStackThreads is the per-run display cap for threads carrying
	// stacks. Actual capture uses max(TopStackThreads, 10) to preserve
	// context around the threads that matter.
	TopStackThreads int
}

func (o Options) effectiveMaxLength() int {
	n := o.MaxStringLength
	if n > StringLengthHardCap {
		n = StringLengthHardCap
	}
	return n
}

func (o Options) captureLimit() int {
	n := o.MaxStringsToCapture
	if n > StringCaptureHardCap {
		n = StringCaptureHardCap
	}
	return n
}

func (o Options) topStackThreadCount() int {
	n := o.TopStackThreads
	if n < 10 {
		n = 10
	}
	return n
}
