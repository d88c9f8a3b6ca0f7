// Package portfolio provides portfolio management and the valuation
// rollup: price refresh cycles, performance snapshots and aggregate
// gain/loss figures.
package portfolio

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/ledger"
	"equity-tracker/internal/marketdata"
	"equity-tracker/internal/models"
	"equity-tracker/internal/store"
)

var hundred = decimal.NewFromInt(100)

// companyNames maps well-known symbols to display names for the snapshot
// taken when a holding is created.
var companyNames = map[string]string{
	"AAPL":  "Apple Inc.",
	"MSFT":  "Microsoft Corporation",
	"GOOGL": "Alphabet Inc.",
	"AMZN":  "Amazon.com Inc.",
	"TSLA":  "Tesla Inc.",
}

// Service orchestrates refresh cycles and portfolio-level rollups.
type Service struct {
	store  store.Store
	oracle *marketdata.Oracle
	log    zerolog.Logger
}

// NewService creates a portfolio service.
func NewService(s store.Store, oracle *marketdata.Oracle, log zerolog.Logger) *Service {
	return &Service{
		store:  s,
		oracle: oracle,
		log:    log.With().Str("component", "portfolio").Logger(),
	}
}

// CreatePortfolio creates a new, empty portfolio.
func (s *Service) CreatePortfolio(ctx context.Context, userID, name, description string, initialValue decimal.Decimal) (*models.Portfolio, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", name, "must not be empty")
	}

	now := time.Now().UTC()
	p := &models.Portfolio{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Description:  description,
		InitialValue: initialValue,
		CurrentValue: decimal.Zero,
		CreatedAt:    now,
		LastUpdated:  now,
	}
	if err := s.store.CreatePortfolio(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info().Str("portfolio_id", p.ID).Str("name", name).Msg("Portfolio created")
	return p, nil
}

// GetPortfolio retrieves a portfolio by id.
func (s *Service) GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error) {
	return s.store.GetPortfolio(ctx, id)
}

// ListPortfolios retrieves all portfolios of a user.
func (s *Service) ListPortfolios(ctx context.Context, userID string) ([]models.Portfolio, error) {
	return s.store.ListPortfolios(ctx, userID)
}

// DeletePortfolio removes a portfolio with its holdings and transactions.
func (s *Service) DeletePortfolio(ctx context.Context, id string) error {
	if err := s.store.DeletePortfolio(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("portfolio_id", id).Msg("Portfolio deleted")
	return nil
}

// AddHolding records a share purchase in a portfolio, snapshotting the
// company name at creation time.
func (s *Service) AddHolding(ctx context.Context, portfolioID, symbol string, shares int64, purchasePrice decimal.Decimal, purchasedAt time.Time) (*models.Holding, error) {
	if symbol == "" || len(symbol) > 10 {
		return nil, errors.NewValidationError("symbol", symbol, "must be 1-10 characters")
	}
	if shares <= 0 {
		return nil, errors.NewValidationError("shares", shares, "must be positive")
	}
	if !purchasePrice.IsPositive() {
		return nil, errors.NewValidationError("purchasePrice", purchasePrice.String(), "must be positive")
	}

	// The portfolio must exist; a dangling holding is useless.
	if _, err := s.store.GetPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}

	h := &models.Holding{
		ID:            uuid.NewString(),
		PortfolioID:   portfolioID,
		Symbol:        symbol,
		CompanyName:   companyName(symbol),
		Shares:        shares,
		SharesSold:    0,
		PurchasePrice: purchasePrice,
		CurrentPrice:  purchasePrice,
		PurchasedAt:   purchasedAt,
		PriceUpdated:  time.Now().UTC(),
	}
	if err := s.store.CreateHolding(ctx, h); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("portfolio_id", portfolioID).
		Str("symbol", symbol).
		Int64("shares", shares).
		Msg("Holding added")
	return h, nil
}

// GetHolding retrieves a holding by id.
func (s *Service) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	return s.store.GetHolding(ctx, id)
}

// ListHoldings retrieves all holdings of a portfolio.
func (s *Service) ListHoldings(ctx context.Context, portfolioID string) ([]models.Holding, error) {
	return s.store.ListHoldings(ctx, portfolioID)
}

// DeleteHolding removes a holding and cascade-deletes its sell
// transactions, keeping the sum invariant defined at all times.
func (s *Service) DeleteHolding(ctx context.Context, id string) error {
	if err := s.store.DeleteHolding(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("holding_id", id).Msg("Holding deleted with its transactions")
	return nil
}

// ListTransactions retrieves all sell transactions of a portfolio.
func (s *Service) ListTransactions(ctx context.Context, portfolioID string) ([]models.SellTransaction, error) {
	return s.store.ListTransactions(ctx, portfolioID)
}

// RefreshPrices fetches current prices for the portfolio's distinct
// symbols, applies every non-zero result and persists the new rollup
// value. A zero price means "unknown": the holding keeps its last known
// price. Sold counters are never touched here.
func (s *Service) RefreshPrices(ctx context.Context, portfolioID string) error {
	if _, err := s.store.GetPortfolio(ctx, portfolioID); err != nil {
		return err
	}
	holdings, err := s.store.ListHoldings(ctx, portfolioID)
	if err != nil {
		return err
	}

	symbols := distinctSymbols(holdings)
	prices, err := s.oracle.GetPrices(ctx, symbols)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	total := decimal.Zero
	for i := range holdings {
		h := &holdings[i]
		if price, ok := prices[h.Symbol]; ok && price.IsPositive() {
			if err := ledger.ApplyPriceUpdate(h, price, now); err != nil {
				return err
			}
			if err := s.store.UpdateHoldingPrice(ctx, h.ID, price, now); err != nil {
				return err
			}
		}
		total = total.Add(ledger.MarketValue(h))
	}

	if err := s.store.UpdatePortfolioRollup(ctx, portfolioID, total, now); err != nil {
		return err
	}

	s.log.Info().
		Str("portfolio_id", portfolioID).
		Int("symbols", len(symbols)).
		Str("value", total.String()).
		Msg("Prices refreshed")
	return nil
}

// Snapshot records a point-in-time performance snapshot of the portfolio
// relative to its initial value. Snapshots are append-only.
func (s *Service) Snapshot(ctx context.Context, portfolioID string) (*models.PerformanceSnapshot, error) {
	portfolio, err := s.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	gainLoss := portfolio.CurrentValue.Sub(portfolio.InitialValue)
	pct := decimal.Zero
	if !portfolio.InitialValue.IsZero() {
		pct = gainLoss.Div(portfolio.InitialValue).Mul(hundred)
	}

	snap := &models.PerformanceSnapshot{
		ID:              uuid.NewString(),
		PortfolioID:     portfolioID,
		Value:           portfolio.CurrentValue,
		GainLoss:        gainLoss,
		GainLossPercent: pct,
		TakenAt:         time.Now().UTC(),
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	s.log.Info().Str("portfolio_id", portfolioID).Str("value", snap.Value.String()).Msg("Snapshot taken")
	return snap, nil
}

// ListSnapshots retrieves the performance history of a portfolio.
func (s *Service) ListSnapshots(ctx context.Context, portfolioID string) ([]models.PerformanceSnapshot, error) {
	return s.store.ListSnapshots(ctx, portfolioID)
}

// Summary holds portfolio aggregates on the capital-still-at-risk basis:
// remaining shares valued at purchase price, so realized sells are
// reflected correctly.
type Summary struct {
	CurrentValue      decimal.Decimal
	TotalInvested     decimal.Decimal
	UnrealizedGains   decimal.Decimal
	ActualGainLoss    decimal.Decimal
	ActualGainLossPct decimal.Decimal
}

// Summarize computes the aggregate figures across a portfolio's holdings
// from their last known prices. It does not refresh prices.
func (s *Service) Summarize(ctx context.Context, portfolioID string) (*Summary, error) {
	holdings, err := s.store.ListHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		CurrentValue:      decimal.Zero,
		TotalInvested:     decimal.Zero,
		UnrealizedGains:   decimal.Zero,
		ActualGainLoss:    decimal.Zero,
		ActualGainLossPct: decimal.Zero,
	}
	for i := range holdings {
		h := &holdings[i]
		if err := ledger.Validate(h); err != nil {
			return nil, err
		}
		sum.CurrentValue = sum.CurrentValue.Add(ledger.MarketValue(h))
		sum.TotalInvested = sum.TotalInvested.Add(ledger.CostBasis(h))
		sum.UnrealizedGains = sum.UnrealizedGains.Add(ledger.GainLoss(h))
	}

	sum.ActualGainLoss = sum.CurrentValue.Sub(sum.TotalInvested)
	if !sum.TotalInvested.IsZero() {
		sum.ActualGainLossPct = sum.ActualGainLoss.Div(sum.TotalInvested).Mul(hundred)
	}
	return sum, nil
}

func distinctSymbols(holdings []models.Holding) []string {
	seen := make(map[string]bool, len(holdings))
	var symbols []string
	for i := range holdings {
		if !seen[holdings[i].Symbol] {
			seen[holdings[i].Symbol] = true
			symbols = append(symbols, holdings[i].Symbol)
		}
	}
	return symbols
}

func companyName(symbol string) string {
	if name, ok := companyNames[symbol]; ok {
		return name
	}
	return symbol + " Corporation"
}
