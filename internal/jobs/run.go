package jobs

import (
	"context"
	"time"

	"replyforge/internal/convo"
	"replyforge/internal/logging"
	"replyforge/internal/model"
	"replyforge/internal/pipeline"
	"replyforge/internal/schedule"
)

const cursorKey = "run:last_ts"

// RunOnce executes one pipeline run followed by a conversation sweep, and
// advances the run cursor. The sweep failure does not fail the run.
func RunOnce(ctx context.Context, deps pipeline.Deps, accountID string) model.RunResult {
	res := pipeline.Run(ctx, deps, accountID, nil)

	syncer := &convo.Syncer{Store: deps.Store, Client: deps.Client}
	if sr, err := syncer.Sync(ctx, accountID); err != nil {
		logging.Error("convo_sweep_error", map[string]any{"error": err.Error()})
	} else {
		logging.Info("convo_sweep", map[string]any{
			"checked": sr.Checked, "updated": sr.Updated, "new_messages": sr.NewMessages,
		})
	}

	_ = deps.Store.SaveCursor(ctx, cursorKey, time.Now().UTC().Format(time.RFC3339Nano))
	return res
}

// RunLoop runs RunOnce on a ticker until ctx is cancelled, holding off
// during the configured quiet hours.
func RunLoop(ctx context.Context, deps pipeline.Deps, accountID string, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	runIfOpen := func() {
		now := time.Now().UTC()
		if schedule.InQuietHours(now, deps.Cfg.Schedule.QuietHours) {
			next := schedule.NextWindow(now, deps.Cfg.Schedule.QuietHours)
			logging.Info("run_skipped_quiet_hours", map[string]any{"next_window": next.Format(time.RFC3339)})
			return
		}
		res := RunOnce(ctx, deps, accountID)
		if !res.Success {
			logging.Error("run_failed", map[string]any{"run_id": res.RunID, "errors": res.Errors})
		}
	}

	runIfOpen()
	for {
		select {
		case <-ctx.Done():
			logging.Info("run_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			runIfOpen()
		}
	}
}
