package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"slices"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines run.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("%d goroutines, threshold %d", n, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when any recent stop-the-world pause exceeded
// threshold.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		if i := slices.IndexFunc(stats.Pause, func(p time.Duration) bool { return p > threshold }); i >= 0 {
			return errors.Errorf("gc pause %s, threshold %s", stats.Pause[i], threshold)
		}
		return nil
	}
}

// MinCountCheck returns a CheckFunc that fails while count reports fewer
// than minimum items of what, e.g. an empty catalog.
func MinCountCheck(what string, minimum int, count func() int) CheckFunc {
	return func(_ context.Context) error {
		if n := count(); n < minimum {
			return errors.Errorf("%s: have %d, need at least %d", what, n, minimum)
		}
		return nil
	}
}
