package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ScheduleExpirySweep registers a cron job that expires overdue orders.
// Reads already expire lazily; the sweep releases stock for orders nobody
// looks at.
func ScheduleExpirySweep(ctx context.Context, c *cron.Cron, spec string, s *Service) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		n, err := s.ExpireDue(runCtx)
		if err != nil {
			s.log().Warn("expiry sweep finished with errors", zap.Int("expired", n), zap.Error(err))
			return
		}
		if n > 0 {
			s.log().Info("expiry sweep", zap.Int("expired", n))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("scheduling expiry sweep %q: %w", spec, err)
	}
	return id, nil
}
