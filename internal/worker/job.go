// Package worker runs periodic maintenance tasks inside the server process
// or as a standalone worker.
//
// Tasks are registered by name with an interval before calling Pool.Start.
// Each task gets a dedicated goroutine that runs it once at start and then
// on every tick until the context is cancelled.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Task is the function executed on every tick. A non-nil return value is
// logged; the task still runs again on the next tick.
type Task func(ctx context.Context) error

// AuditPruner deletes visibility audit entries older than a cutoff.
// *store.Store satisfies it.
type AuditPruner interface {
	PruneVisibilityChanges(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneAuditTask returns a Task that deletes visibility_changes rows older
// than retention.
func PruneAuditTask(p AuditPruner, retention time.Duration) Task {
	return func(ctx context.Context) error {
		cutoff := time.Now().Add(-retention)
		n, err := p.PruneVisibilityChanges(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune audit: %w", err)
		}
		if n > 0 {
			slog.InfoContext(ctx, "pruned visibility audit entries",
				"count", n, "cutoff", cutoff.Format(time.RFC3339))
		}
		return nil
	}
}
