// Package ledger provides the authoritative arithmetic for a holding's
// remaining position and valuation. It performs no I/O.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/models"
)

var hundred = decimal.NewFromInt(100)

// RemainingShares returns the shares still held: purchased minus sold.
// A negative result means an invariant was broken upstream; callers that
// persist state should run Validate first and surface the violation.
func RemainingShares(h *models.Holding) int64 {
	return h.Shares - h.SharesSold
}

// MarketValue returns remaining shares times the current price.
func MarketValue(h *models.Holding) decimal.Decimal {
	return h.CurrentPrice.Mul(decimal.NewFromInt(RemainingShares(h)))
}

// CostBasis returns remaining shares times the purchase price.
func CostBasis(h *models.Holding) decimal.Decimal {
	return h.PurchasePrice.Mul(decimal.NewFromInt(RemainingShares(h)))
}

// GainLoss returns market value minus cost basis.
func GainLoss(h *models.Holding) decimal.Decimal {
	return MarketValue(h).Sub(CostBasis(h))
}

// GainLossPercent returns the unrealized gain/loss as a percentage of cost
// basis. A zero cost basis yields 0%, not an error.
func GainLossPercent(h *models.Holding) decimal.Decimal {
	cost := CostBasis(h)
	if cost.IsZero() {
		return decimal.Zero
	}
	return GainLoss(h).Div(cost).Mul(hundred)
}

// ApplyPriceUpdate sets the current price and refresh timestamp. Negative
// prices are rejected; no other validation is performed.
func ApplyPriceUpdate(h *models.Holding, price decimal.Decimal, at time.Time) error {
	if price.IsNegative() {
		return errors.NewValidationError("price", price.String(), "must not be negative")
	}
	h.CurrentPrice = price
	h.PriceUpdated = at
	return nil
}

// CanSell reports whether requestedShares more shares can be sold without
// exceeding the shares purchased. The caller must hold the holding under a
// transactional read so the subsequent mutation cannot race a concurrent
// sell against a stale sold counter.
func CanSell(h *models.Holding, requestedShares int64) bool {
	return h.SharesSold+requestedShares <= h.Shares
}

// Validate checks the bounds invariant 0 <= SharesSold <= Shares and
// returns a ConsistencyError on violation. It never clamps.
func Validate(h *models.Holding) error {
	if h.SharesSold < 0 {
		return errors.NewConsistencyError(h.ID,
			fmt.Sprintf("shares sold is negative (%d)", h.SharesSold))
	}
	if h.SharesSold > h.Shares {
		return errors.NewConsistencyError(h.ID,
			fmt.Sprintf("shares sold (%d) exceeds shares purchased (%d)", h.SharesSold, h.Shares))
	}
	return nil
}
