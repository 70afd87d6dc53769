package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartStaleSubscriptionCleaner periodically deletes subscription
// registrations not seen within the retention window. Orphaned records
// left behind by clients that unsubscribed locally but never reached the
// server age out here.
func StartStaleSubscriptionCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM subscriptions
                     WHERE last_seen < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean stale subscriptions", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned stale subscriptions", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
