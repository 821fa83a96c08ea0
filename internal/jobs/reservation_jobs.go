package jobs

import (
	"context"
	"time"

	"beachrental-backend/internal/logger"
)

// sweepTimeout bounds a single expiry sweep.
const sweepTimeout = 2 * time.Minute

// ExpireUnpaidReservations cancels pending reservations past their payment
// deadline and returns their inventory to the pool
func (jr *JobRunner) ExpireUnpaidReservations() {
	jr.runWithRecovery("ExpireUnpaidReservations", func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		now := jr.clock.Now()
		ids, err := jr.services.Sweeper.ExpireUnpaidReservations(ctx, now)
		if err != nil {
			logger.Error("Expiry sweep finished with errors", "expired", len(ids), "error", err)
			return
		}

		logger.Info("Expired unpaid reservations", "count", len(ids), "as_of", now.UTC().Format(time.RFC3339))
	})
}
