// Package journal records sell events against holdings while preserving
// the cross-entity invariant that the sum of transaction shares always
// equals the holding's sold counter.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/ledger"
	"equity-tracker/internal/models"
	"equity-tracker/internal/store"
	"equity-tracker/pkg/utils"
)

// Journal creates, edits and deletes sell transactions. Every mutation
// that touches a transaction and its holding's sold counter runs as one
// atomic unit; lost optimistic-concurrency races are retried as a whole.
type Journal struct {
	store store.Store
	log   zerolog.Logger
	retry utils.RetryConfig
}

// New creates a transaction journal over the given store.
func New(s store.Store, log zerolog.Logger) *Journal {
	cfg := utils.DefaultRetryConfig()
	cfg.RetryableErrors = []error{errors.ErrConflict}
	return &Journal{
		store: s,
		log:   log.With().Str("component", "journal").Logger(),
		retry: cfg,
	}
}

// RecordSell records a sale of shares against a holding. The symbol and
// company name are snapshotted from the holding at this instant. Selling
// more than the remaining shares fails with ErrOversell and performs no
// mutation.
func (j *Journal) RecordSell(ctx context.Context, holdingID string, shares int64, price decimal.Decimal, date time.Time, note string) (*models.SellTransaction, error) {
	if shares <= 0 {
		return nil, errors.NewValidationError("shares", shares, "must be positive")
	}
	if !price.IsPositive() {
		return nil, errors.NewValidationError("price", price.String(), "must be positive")
	}

	var txn *models.SellTransaction
	err := utils.Retry(ctx, j.retry, func() error {
		return j.store.ExecTx(ctx, func(q store.Queries) error {
			holding, err := q.GetHolding(ctx, holdingID)
			if err != nil {
				return err
			}
			if err := ledger.Validate(holding); err != nil {
				return err
			}
			if !ledger.CanSell(holding, shares) {
				return errors.Wrapf(errors.ErrOversell,
					"holding %s: %d sold + %d requested > %d owned",
					holdingID, holding.SharesSold, shares, holding.Shares)
			}

			txn = &models.SellTransaction{
				ID:          uuid.NewString(),
				PortfolioID: holding.PortfolioID,
				HoldingID:   holding.ID,
				Symbol:      holding.Symbol,
				CompanyName: holding.CompanyName,
				Shares:      shares,
				Price:       price,
				Date:        date,
				Note:        note,
				CreatedAt:   time.Now().UTC(),
			}
			if err := q.InsertTransaction(ctx, txn); err != nil {
				return err
			}
			return q.UpdateHoldingSharesSold(ctx, holding.ID, holding.SharesSold+shares, holding.Version)
		})
	})
	if err != nil {
		return nil, err
	}

	j.log.Info().
		Str("holding_id", holdingID).
		Str("symbol", txn.Symbol).
		Int64("shares", shares).
		Str("price", price.String()).
		Msg("Sell recorded")
	return txn, nil
}

// EditSell updates a sell transaction and reconciles the holding's sold
// counter by the share delta. The holding link itself is immutable: a sale
// cannot be moved to a different holding.
func (j *Journal) EditSell(ctx context.Context, txnID string, shares int64, price decimal.Decimal, date time.Time, note string) (*models.SellTransaction, error) {
	if shares <= 0 {
		return nil, errors.NewValidationError("shares", shares, "must be positive")
	}
	if !price.IsPositive() {
		return nil, errors.NewValidationError("price", price.String(), "must be positive")
	}

	var updated *models.SellTransaction
	err := utils.Retry(ctx, j.retry, func() error {
		return j.store.ExecTx(ctx, func(q store.Queries) error {
			original, err := q.GetTransaction(ctx, txnID)
			if err != nil {
				return err
			}
			holding, err := q.GetHolding(ctx, original.HoldingID)
			if err != nil {
				return err
			}
			if err := ledger.Validate(holding); err != nil {
				return err
			}

			delta := shares - original.Shares
			newSold := holding.SharesSold + delta
			if newSold > holding.Shares {
				return errors.Wrapf(errors.ErrOversell,
					"holding %s: edit to %d shares would make %d sold > %d owned",
					holding.ID, shares, newSold, holding.Shares)
			}
			if newSold < 0 {
				return errors.NewConsistencyError(holding.ID,
					"edit would drive shares sold negative")
			}

			edited := *original
			edited.Shares = shares
			edited.Price = price
			edited.Date = date
			edited.Note = note
			if err := q.UpdateTransaction(ctx, &edited); err != nil {
				return err
			}
			if err := q.UpdateHoldingSharesSold(ctx, holding.ID, newSold, holding.Version); err != nil {
				return err
			}
			updated = &edited
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	j.log.Info().
		Str("transaction_id", txnID).
		Int64("shares", shares).
		Msg("Sell transaction updated")
	return updated, nil
}

// DeleteSell removes a sell transaction and gives its shares back to the
// holding's sold counter. If the holding is already gone the transaction
// is simply removed: holding deletion takes precedence.
func (j *Journal) DeleteSell(ctx context.Context, txnID string) error {
	err := utils.Retry(ctx, j.retry, func() error {
		return j.store.ExecTx(ctx, func(q store.Queries) error {
			txn, err := q.GetTransaction(ctx, txnID)
			if err != nil {
				return err
			}

			holding, err := q.GetHolding(ctx, txn.HoldingID)
			if errors.Is(err, errors.ErrNotFound) {
				// Orphaned by a holding delete; nothing to reconcile.
				return q.DeleteTransaction(ctx, txnID)
			}
			if err != nil {
				return err
			}
			if err := ledger.Validate(holding); err != nil {
				return err
			}

			if err := q.DeleteTransaction(ctx, txnID); err != nil {
				return err
			}
			return q.UpdateHoldingSharesSold(ctx, holding.ID, holding.SharesSold-txn.Shares, holding.Version)
		})
	})
	if err != nil {
		return err
	}

	j.log.Info().Str("transaction_id", txnID).Msg("Sell transaction deleted")
	return nil
}

// SoldShares returns the sum of shares over all sell transactions of a
// holding. In a consistent system it always equals the holding's sold
// counter.
func (j *Journal) SoldShares(ctx context.Context, holdingID string) (int64, error) {
	return j.store.SumSoldShares(ctx, holdingID)
}

// CanSell reports whether the holding can still sell the requested number
// of shares. It is advisory: RecordSell re-checks under the transaction.
func (j *Journal) CanSell(ctx context.Context, holdingID string, shares int64) (bool, error) {
	holding, err := j.store.GetHolding(ctx, holdingID)
	if err != nil {
		return false, err
	}
	return ledger.CanSell(holding, shares), nil
}

// VerifyHolding cross-checks the sum invariant for one holding and
// returns a ConsistencyError on mismatch. Violations are logged loudly
// and never corrected in place.
func (j *Journal) VerifyHolding(ctx context.Context, holdingID string) error {
	var verify error
	err := j.store.ExecTx(ctx, func(q store.Queries) error {
		holding, err := q.GetHolding(ctx, holdingID)
		if err != nil {
			return err
		}
		sum, err := q.SumSoldShares(ctx, holdingID)
		if err != nil {
			return err
		}
		if err := ledger.Validate(holding); err != nil {
			verify = err
			return nil
		}
		if sum != holding.SharesSold {
			verify = errors.NewConsistencyError(holdingID,
				fmt.Sprintf("transaction share sum %d != shares sold %d", sum, holding.SharesSold))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if verify != nil {
		j.log.Error().Err(verify).Str("holding_id", holdingID).Msg("Consistency violation detected")
	}
	return verify
}
