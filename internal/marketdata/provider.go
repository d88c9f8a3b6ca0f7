// Package marketdata provides market data access with caching and
// graceful degradation on provider failures.
package marketdata

import (
	"context"

	"github.com/shopspring/decimal"

	"equity-tracker/internal/models"
)

// Provider defines the external market-data capability the oracle wraps.
//
// LastTrade and LastBarClose return errors.ErrNoPriceData when the source
// has no data for the symbol; any other error means the provider itself
// failed or timed out.
type Provider interface {
	LastTrade(ctx context.Context, symbol string) (decimal.Decimal, error)
	LastBarClose(ctx context.Context, symbol string) (decimal.Decimal, error)
	MarketClock(ctx context.Context) (models.MarketClock, error)
	AccountStatus(ctx context.Context) (string, error)
}
