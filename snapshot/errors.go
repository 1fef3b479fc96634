package snapshot

import "fmt"

// sentinel errors returned by Build. Callers distinguish them with
// errors.Is; InternalError additionally carries the wrapped cause.
var (
	ErrMissingPath      = fmt.Errorf("dump path is empty")
	ErrFileNotFound     = fmt.Errorf("dump file not found")
	ErrNoManagedRuntime = fmt.Errorf("no managed runtime found in dump")
)

// InternalError wraps an unexpected inspector failure that doesn't fit one
// of the three classified error kinds. Per-item inspector failures during
// the walk (a bad frame read, a dangling object) never reach here — they
// are caught locally and either converted into DataWarnings or skipped
// silently (spec §7). This is
// reserved for failures that abort the whole build, such as the inspector
// refusing to enumerate threads at all.
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal: %v", e.Cause)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}
