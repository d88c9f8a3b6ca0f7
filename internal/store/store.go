// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"equity-tracker/internal/models"
)

// Store defines the interface for data persistence.
//
// Single-record operations are individually atomic. Mutations that must
// touch several records as one unit (a sell transaction plus its holding's
// sold counter) run through ExecTx.
type Store interface {
	// Portfolios
	CreatePortfolio(ctx context.Context, p *models.Portfolio) error
	GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error)
	ListPortfolios(ctx context.Context, userID string) ([]models.Portfolio, error)
	UpdatePortfolioRollup(ctx context.Context, id string, currentValue decimal.Decimal, at time.Time) error
	DeletePortfolio(ctx context.Context, id string) error

	// Holdings
	CreateHolding(ctx context.Context, h *models.Holding) error
	GetHolding(ctx context.Context, id string) (*models.Holding, error)
	ListHoldings(ctx context.Context, portfolioID string) ([]models.Holding, error)
	UpdateHoldingPrice(ctx context.Context, id string, price decimal.Decimal, at time.Time) error
	DeleteHolding(ctx context.Context, id string) error

	// Sell transactions
	GetTransaction(ctx context.Context, id string) (*models.SellTransaction, error)
	ListTransactions(ctx context.Context, portfolioID string) ([]models.SellTransaction, error)
	ListHoldingTransactions(ctx context.Context, holdingID string) ([]models.SellTransaction, error)
	SumSoldShares(ctx context.Context, holdingID string) (int64, error)

	// Performance snapshots
	SaveSnapshot(ctx context.Context, s *models.PerformanceSnapshot) error
	ListSnapshots(ctx context.Context, portfolioID string) ([]models.PerformanceSnapshot, error)

	// ExecTx runs fn inside a single database transaction. A write
	// conflict surfaces as errors.ErrConflict so callers can retry the
	// whole unit.
	ExecTx(ctx context.Context, fn func(q Queries) error) error

	// Lifecycle
	Close() error
}

// Queries is the operation set available inside a transaction.
type Queries interface {
	GetHolding(ctx context.Context, id string) (*models.Holding, error)

	// UpdateHoldingSharesSold writes the sold counter guarded by the
	// version the caller read. A stale version yields errors.ErrConflict.
	UpdateHoldingSharesSold(ctx context.Context, id string, sharesSold, expectedVersion int64) error

	GetTransaction(ctx context.Context, id string) (*models.SellTransaction, error)
	InsertTransaction(ctx context.Context, t *models.SellTransaction) error
	UpdateTransaction(ctx context.Context, t *models.SellTransaction) error
	DeleteTransaction(ctx context.Context, id string) error
	SumSoldShares(ctx context.Context, holdingID string) (int64, error)
}
