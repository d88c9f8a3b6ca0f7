package journal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/models"
	"equity-tracker/internal/store"
)

func newTestJournal(t *testing.T) (*Journal, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, zerolog.Nop()), s
}

func seedHolding(t *testing.T, s store.Store, shares int64, purchasePrice decimal.Decimal) *models.Holding {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	p := &models.Portfolio{
		ID:           uuid.NewString(),
		UserID:       "user-1",
		Name:         "Main",
		InitialValue: decimal.NewFromInt(1000),
		CurrentValue: decimal.Zero,
		CreatedAt:    now,
		LastUpdated:  now,
	}
	require.NoError(t, s.CreatePortfolio(ctx, p))

	h := &models.Holding{
		ID:            uuid.NewString(),
		PortfolioID:   p.ID,
		Symbol:        "AAPL",
		CompanyName:   "Apple Inc.",
		Shares:        shares,
		PurchasePrice: purchasePrice,
		CurrentPrice:  purchasePrice,
		PurchasedAt:   now,
		PriceUpdated:  now,
	}
	require.NoError(t, s.CreateHolding(ctx, h))
	return h
}

// Buy 10 at $100, sell 4 at $120, fail to sell 7 more, grow the sale to 6,
// then undo it entirely. The sold counter tracks every step.
func TestSellLifecycle(t *testing.T) {
	j, s := newTestJournal(t)
	ctx := context.Background()
	h := seedHolding(t, s, 10, decimal.NewFromInt(100))

	txn, err := j.RecordSell(ctx, h.ID, 4, decimal.NewFromInt(120), time.Now().UTC(), "first trim")
	require.NoError(t, err)
	require.Equal(t, h.ID, txn.HoldingID)
	require.Equal(t, "AAPL", txn.Symbol)
	require.Equal(t, "Apple Inc.", txn.CompanyName)
	require.True(t, txn.Proceeds().Equal(decimal.NewFromInt(480)))
	require.True(t, txn.RealizedGainLoss(decimal.NewFromInt(100)).Equal(decimal.NewFromInt(80)))

	got, err := s.GetHolding(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(4), got.SharesSold)

	// Only 6 remain, selling 7 must fail without touching anything.
	_, err = j.RecordSell(ctx, h.ID, 7, decimal.NewFromInt(125), time.Now().UTC(), "")
	require.ErrorIs(t, err, errors.ErrOversell)

	got, err = s.GetHolding(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(4), got.SharesSold)
	sum, err := j.SoldShares(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(4), sum)

	// Grow the existing sale from 4 to 6 shares.
	updated, err := j.EditSell(ctx, txn.ID, 6, decimal.NewFromInt(121), txn.Date, "grew the trim")
	require.NoError(t, err)
	require.Equal(t, int64(6), updated.Shares)

	got, err = s.GetHolding(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6), got.SharesSold)

	// Deleting the sale gives all shares back.
	require.NoError(t, j.DeleteSell(ctx, txn.ID))

	got, err = s.GetHolding(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.SharesSold)
	sum, err = j.SoldShares(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), sum)

	require.NoError(t, j.VerifyHolding(ctx, h.ID))
}

func TestRecordSellValidation(t *testing.T) {
	j, s := newTestJournal(t)
	ctx := context.Background()
	h := seedHolding(t, s, 10, decimal.NewFromInt(100))

	_, err := j.RecordSell(ctx, h.ID, 0, decimal.NewFromInt(120), time.Now().UTC(), "")
	require.Error(t, err)

	_, err = j.RecordSell(ctx, h.ID, -2, decimal.NewFromInt(120), time.Now().UTC(), "")
	require.Error(t, err)

	_, err = j.RecordSell(ctx, h.ID, 1, decimal.Zero, time.Now().UTC(), "")
	require.Error(t, err)

	_, err = j.RecordSell(ctx, "missing", 1, decimal.NewFromInt(120), time.Now().UTC(), "")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestEditSellOversellAndUndersell(t *testing.T) {
	j, s := newTestJournal(t)
	ctx := context.Background()
	h := seedHolding(t, s, 10, decimal.NewFromInt(100))

	first, err := j.RecordSell(ctx, h.ID, 4, decimal.NewFromInt(110), time.Now().UTC(), "")
	require.NoError(t, err)
	_, err = j.RecordSell(ctx, h.ID, 4, decimal.NewFromInt(112), time.Now().UTC(), "")
	require.NoError(t, err)

	// 8 sold; growing the first sale to 7 would mean 11 of 10.
	_, err = j.EditSell(ctx, first.ID, 7, decimal.NewFromInt(110), first.Date, "")
	require.ErrorIs(t, err, errors.ErrOversell)

	got, err := s.GetHolding(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(8), got.SharesSold)

	// Shrinking reconciles downward.
	_, err = j.EditSell(ctx, first.ID, 1, decimal.NewFromInt(110), first.Date, "")
	require.NoError(t, err)

	got, err = s.GetHolding(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), got.SharesSold)
	require.NoError(t, j.VerifyHolding(ctx, h.ID))
}

func TestDeleteSellOrphanedTransaction(t *testing.T) {
	j, s := newTestJournal(t)
	ctx := context.Background()
	h := seedHolding(t, s, 10, decimal.NewFromInt(100))

	txn, err := j.RecordSell(ctx, h.ID, 3, decimal.NewFromInt(105), time.Now().UTC(), "")
	require.NoError(t, err)

	// Simulate a transaction left behind after its holding vanished by
	// re-inserting it after a cascade delete.
	require.NoError(t, s.DeleteHolding(ctx, h.ID))
	require.NoError(t, s.ExecTx(ctx, func(q store.Queries) error {
		return q.InsertTransaction(ctx, txn)
	}))

	require.NoError(t, j.DeleteSell(ctx, txn.ID))
	_, err = s.GetTransaction(ctx, txn.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeleteSellMissingTransaction(t *testing.T) {
	j, _ := newTestJournal(t)
	err := j.DeleteSell(context.Background(), "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCanSellAdvisory(t *testing.T) {
	j, s := newTestJournal(t)
	ctx := context.Background()
	h := seedHolding(t, s, 10, decimal.NewFromInt(100))

	ok, err := j.CanSell(ctx, h.ID, 10)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = j.CanSell(ctx, h.ID, 11)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = j.RecordSell(ctx, h.ID, 6, decimal.NewFromInt(110), time.Now().UTC(), "")
	require.NoError(t, err)

	ok, err = j.CanSell(ctx, h.ID, 5)
	require.NoError(t, err)
	require.False(t, ok)
}

// Two concurrent 6-share sells against 10 remaining shares: exactly one may
// win, and the books must balance afterwards.
func TestConcurrentSellsNeverOversell(t *testing.T) {
	j, s := newTestJournal(t)
	ctx := context.Background()
	h := seedHolding(t, s, 10, decimal.NewFromInt(100))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = j.RecordSell(ctx, h.ID, 6, decimal.NewFromInt(120), time.Now().UTC(), "")
		}(i)
	}
	wg.Wait()

	var successes, oversells int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, errors.ErrOversell), errors.Is(err, errors.ErrConflict):
			oversells++
		default:
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, successes, "exactly one sell must win")
	require.Equal(t, 1, oversells)

	got, err := s.GetHolding(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6), got.SharesSold)
	sum, err := j.SoldShares(ctx, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6), sum)
	require.NoError(t, j.VerifyHolding(ctx, h.ID))
}

func TestVerifyHoldingDetectsDrift(t *testing.T) {
	j, s := newTestJournal(t)
	ctx := context.Background()
	h := seedHolding(t, s, 10, decimal.NewFromInt(100))

	_, err := j.RecordSell(ctx, h.ID, 4, decimal.NewFromInt(120), time.Now().UTC(), "")
	require.NoError(t, err)
	require.NoError(t, j.VerifyHolding(ctx, h.ID))

	// Skew the counter behind the journal's back.
	require.NoError(t, s.ExecTx(ctx, func(q store.Queries) error {
		holding, err := q.GetHolding(ctx, h.ID)
		if err != nil {
			return err
		}
		return q.UpdateHoldingSharesSold(ctx, h.ID, 5, holding.Version)
	}))

	err = j.VerifyHolding(ctx, h.ID)
	var cerr *errors.ConsistencyError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, h.ID, cerr.HoldingID)
}
