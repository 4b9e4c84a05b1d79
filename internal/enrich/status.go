package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/model"
)

const (
	statusKey = "exportStatus"

	// MaxProcessingTime is how long a run may hold the processing status
	// before it is considered stuck and reset.
	MaxProcessingTime = 10 * time.Minute
)

// Status is the persisted state of the current export run.
type Status struct {
	State     model.ExportStatus `json:"state"`
	RunID     string             `json:"run_id,omitempty"`
	Folder    string             `json:"folder,omitempty"`
	StartedAt int64              `json:"started_at,omitempty"` // unix milliseconds
}

// Status returns the persisted run state, defaulting to idle.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	var st Status
	found, err := c.store.Get(ctx, statusKey, &st)
	if err != nil {
		return Status{}, eris.Wrap(err, "enrich: read export status")
	}
	if !found || st.State == "" {
		st = Status{State: model.StatusIdle}
	}
	return st, nil
}

func (c *Coordinator) setStatus(ctx context.Context, st Status) error {
	return eris.Wrap(c.store.Set(ctx, statusKey, st), "enrich: write export status")
}

// ResetStuckStatus clears a processing status whose start time is older
// than MaxProcessingTime. It reports whether a reset happened. Called at
// startup and periodically by the watchdog so a crashed run never blocks
// the next one.
func (c *Coordinator) ResetStuckStatus(ctx context.Context) (bool, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return false, err
	}
	if st.State != model.StatusProcessing || st.StartedAt == 0 {
		return false, nil
	}

	stuckFor := c.now().Sub(time.UnixMilli(st.StartedAt))
	if stuckFor <= MaxProcessingTime {
		return false, nil
	}

	if err := c.setStatus(ctx, Status{State: model.StatusIdle}); err != nil {
		return false, err
	}
	c.notifier.Notify(
		c.catalog.Message("autoResetTitle", nil),
		c.catalog.Message("autoResetMessage", nil),
	)
	return true, nil
}

// watchdog periodically resets a stuck status until ctx is cancelled.
func (c *Coordinator) watchdog(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := c.ResetStuckStatus(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn("watchdog status check failed", zap.Error(err))
			}
		}
	}
}
