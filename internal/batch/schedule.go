package batch

import (
	"context"
	"fmt"

	"fjacquet/stmt-forensics/internal/logging"

	"github.com/robfig/cron/v3"
)

// Schedule registers a periodic re-analysis of dir on c. Each run logs its
// outcome; a failed run does not unschedule later ones.
func (r *Runner) Schedule(ctx context.Context, c *cron.Cron, spec, dir string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		summary, err := r.Reanalyze(ctx, dir)
		if err != nil {
			r.logger.WithError(err).Error("Scheduled re-analysis failed",
				logging.Field{Key: logging.FieldFile, Value: dir})
			return
		}
		r.logger.Info("Scheduled re-analysis finished",
			logging.Field{Key: logging.FieldFile, Value: dir},
			logging.Field{Key: logging.FieldCount, Value: len(summary.Results)})
	})
	if err != nil {
		return 0, fmt.Errorf("unable to schedule re-analysis %q: %w", spec, err)
	}
	return id, nil
}
