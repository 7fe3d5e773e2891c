package api

import (
	"context"

	"github.com/FACorreiaa/venue-sales-report/internal/domain/report"
	"github.com/FACorreiaa/venue-sales-report/pkg/cron"
)

// newReloadJob adapts the snapshot store to the scheduler's job signature.
func newReloadJob(store *report.Store) cron.ReloadFunc {
	return func(ctx context.Context) error {
		_, err := store.Reload(ctx)
		return err
	}
}
