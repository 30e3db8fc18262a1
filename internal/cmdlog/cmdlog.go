package cmdlog

import (
	"replyforge/internal/logging"
	"replyforge/internal/metrics"
)

// Run wraps a CLI command body with its run/error counters and log lines.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error()})
	} else {
		logging.Info(cmd+"_ok", nil)
	}
	return err
}
