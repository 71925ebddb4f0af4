package perf

import "context"

// Reporter receives staged progress updates from a long-running engine.
// Implementations must be fast: reports happen on the placement hot path.
type Reporter interface {
	Report(stage string, percent float64)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(stage string, percent float64)

func (f ReporterFunc) Report(stage string, percent float64) {
	f(stage, percent)
}

// Publish forwards a progress update to an optional sink. A nil reporter is
// a no-op: reporting never blocks and never alters placement decisions.
func Publish(r Reporter, stage string, percent float64) {
	if r == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	r.Report(stage, percent)
}

// Canceled reports whether the caller has requested cooperative
// cancellation. Engines poll this at their yield points and return the
// best-so-far or partial result, never an error.
func Canceled(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
