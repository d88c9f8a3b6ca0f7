package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"equity-tracker/internal/marketdata"
	"equity-tracker/internal/portfolio"
	"equity-tracker/internal/store"
)

// RefreshJob refreshes prices for every portfolio of a user. It skips the
// whole cycle while the market is closed; stale prices are fine overnight.
type RefreshJob struct {
	userID     string
	store      store.Store
	portfolios *portfolio.Service
	oracle     *marketdata.Oracle
	log        zerolog.Logger
}

// NewRefreshJob creates a price refresh job for one user's portfolios.
func NewRefreshJob(userID string, s store.Store, svc *portfolio.Service, oracle *marketdata.Oracle, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		userID:     userID,
		store:      s,
		portfolios: svc,
		oracle:     oracle,
		log:        log.With().Str("component", "refresh_job").Logger(),
	}
}

// Name implements Job.
func (j *RefreshJob) Name() string { return "price_refresh" }

// Run implements Job. Portfolios are refreshed one at a time; a failure in
// one does not stop the others.
func (j *RefreshJob) Run(ctx context.Context) error {
	if !j.oracle.IsMarketOpen(ctx) {
		j.log.Debug().Msg("Market closed, skipping refresh")
		return nil
	}

	portfolios, err := j.store.ListPortfolios(ctx, j.userID)
	if err != nil {
		return err
	}

	var lastErr error
	for _, p := range portfolios {
		if err := j.portfolios.RefreshPrices(ctx, p.ID); err != nil {
			j.log.Error().Err(err).Str("portfolio_id", p.ID).Msg("Refresh failed")
			lastErr = err
		}
	}
	return lastErr
}
