package execute

import (
	"context"
	"fmt"

	"github.com/jessicaagarwal/Shoonya-wipe/internal/decision"
	"github.com/jessicaagarwal/Shoonya-wipe/internal/device"
)

// ProgressFunc receives byte progress for a run. bytes_done is monotonically
// non-decreasing for a given run; total may be 0 when the extent size is
// unknown.
type ProgressFunc func(done, total int64)

// TechniqueExecutor applies one sanitization technique to one device.
//
// The boolean distinguishes a clean "this technique does not apply / the
// device refused" failure from an executor fault (err != nil). Either way
// the dispatcher folds the outcome into a Result; faults never escape.
type TechniqueExecutor interface {
	Apply(ctx context.Context, p device.Profile, technique decision.Technique, progress ProgressFunc) (ok bool, details []string, bytes int64, err error)
}

// ExecutionError wraps a technique command or I/O failure.
type ExecutionError struct {
	Technique decision.Technique
	Device    string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Technique, e.Device, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
