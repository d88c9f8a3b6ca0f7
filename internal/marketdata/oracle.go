package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/models"
)

const (
	// DefaultStatusCacheTTL bounds how often the provider clock is queried.
	DefaultStatusCacheTTL = 5 * time.Minute

	// DefaultPacingDelay is the inter-call delay in batch price fetches.
	// Provider rate limits are per-account, so the batch loop is
	// sequential rather than parallel.
	DefaultPacingDelay = 100 * time.Millisecond
)

// Oracle answers price and market-status queries with bounded staleness.
// One symbol's failure never aborts a batch; failed symbols degrade to a
// zero sentinel that callers must treat as "unknown".
type Oracle struct {
	provider Provider
	log      zerolog.Logger
	pacing   time.Duration
	cacheTTL time.Duration
	now      func() time.Time

	// Market-status cache. The status+timestamp pair is updated and read
	// as a unit under mu.
	mu            sync.Mutex
	statusOpen    bool
	statusChecked time.Time
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithPacing overrides the inter-symbol pacing delay.
func WithPacing(d time.Duration) Option {
	return func(o *Oracle) { o.pacing = d }
}

// WithStatusCacheTTL overrides the market-status cache freshness window.
func WithStatusCacheTTL(d time.Duration) Option {
	return func(o *Oracle) { o.cacheTTL = d }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(o *Oracle) { o.now = now }
}

// NewOracle creates a price oracle over the given provider.
func NewOracle(provider Provider, log zerolog.Logger, opts ...Option) *Oracle {
	o := &Oracle{
		provider: provider,
		log:      log.With().Str("component", "oracle").Logger(),
		pacing:   DefaultPacingDelay,
		cacheTTL: DefaultStatusCacheTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetPrice resolves the current price for one symbol: last trade first,
// then latest bar close. It returns ErrNoPriceData only when both sources
// have nothing, and ErrPriceSourceUnavailable when the provider failed.
func (o *Oracle) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, err := o.provider.LastTrade(ctx, symbol)
	if err == nil {
		o.log.Debug().Str("symbol", symbol).Str("price", price.String()).Msg("Trade price resolved")
		return price, nil
	}
	if !errors.Is(err, errors.ErrNoPriceData) {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceSourceUnavailable, "last trade for %s: %v", symbol, err)
	}

	// No trade on record, fall back to the latest bar close.
	price, err = o.provider.LastBarClose(ctx, symbol)
	if err == nil {
		o.log.Debug().Str("symbol", symbol).Str("price", price.String()).Msg("Bar close price resolved")
		return price, nil
	}
	if !errors.Is(err, errors.ErrNoPriceData) {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceSourceUnavailable, "last bar for %s: %v", symbol, err)
	}

	o.log.Warn().Str("symbol", symbol).Msg("No price data found")
	return decimal.Zero, errors.Wrapf(errors.ErrNoPriceData, "symbol %s", symbol)
}

// GetPrices resolves prices for a set of symbols, one at a time with a
// pacing delay between calls. A failed symbol is recorded as zero and the
// batch continues; callers must treat zero as unknown, not as a price.
func (o *Oracle) GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(symbols))

	for i, symbol := range symbols {
		price, err := o.GetPrice(ctx, symbol)
		if err != nil {
			o.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to get price")
			prices[symbol] = decimal.Zero
		} else {
			prices[symbol] = price
		}

		if i == len(symbols)-1 || o.pacing <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return prices, ctx.Err()
		case <-time.After(o.pacing):
		}
	}

	resolved := 0
	for _, p := range prices {
		if p.IsPositive() {
			resolved++
		}
	}
	o.log.Debug().Int("resolved", resolved).Int("total", len(symbols)).Msg("Batch price fetch done")

	return prices, nil
}

// IsMarketOpen reports whether the market is open, serving a cached answer
// while it is younger than the freshness window. On provider failure it
// falls back to a weekday-and-business-hours heuristic without touching
// the cache, so the next call retries the provider.
func (o *Oracle) IsMarketOpen(ctx context.Context) bool {
	o.mu.Lock()
	if o.now().Sub(o.statusChecked) < o.cacheTTL {
		open := o.statusOpen
		o.mu.Unlock()
		return open
	}
	o.mu.Unlock()

	clock, err := o.provider.MarketClock(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("Market clock unavailable, using calendar heuristic")
		now := o.now()
		weekday := now.Weekday() >= time.Monday && now.Weekday() <= time.Friday
		return weekday && now.Hour() >= 9 && now.Hour() < 16
	}

	o.mu.Lock()
	o.statusOpen = clock.IsOpen
	o.statusChecked = o.now()
	o.mu.Unlock()

	o.log.Debug().Bool("open", clock.IsOpen).Msg("Market status refreshed")
	return clock.IsOpen
}

// GetMarketHours returns the trading schedule for a calendar date.
func (o *Oracle) GetMarketHours(date time.Time) models.MarketHours {
	return MarketHoursFor(date)
}

// GetAccountStatus returns the provider account status line, degrading to
// a placeholder when the provider is unreachable.
func (o *Oracle) GetAccountStatus(ctx context.Context) string {
	status, err := o.provider.AccountStatus(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("Account status unavailable")
		return "Account status unavailable"
	}
	return status
}

// TestConnection verifies the provider is reachable.
func (o *Oracle) TestConnection(ctx context.Context) bool {
	_, err := o.provider.AccountStatus(ctx)
	if err != nil {
		o.log.Error().Err(err).Msg("Provider connection test failed")
		return false
	}
	return true
}
