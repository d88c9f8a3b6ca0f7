package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testPortfolio(t *testing.T, s *SQLiteStore) *models.Portfolio {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	p := &models.Portfolio{
		ID:           uuid.NewString(),
		UserID:       "user-1",
		Name:         "Growth",
		Description:  "long-term positions",
		InitialValue: decimal.NewFromInt(10000),
		CurrentValue: decimal.Zero,
		CreatedAt:    now,
		LastUpdated:  now,
	}
	if err := s.CreatePortfolio(context.Background(), p); err != nil {
		t.Fatalf("Failed to create portfolio: %v", err)
	}
	return p
}

func testHolding(t *testing.T, s *SQLiteStore, portfolioID string, shares int64) *models.Holding {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	h := &models.Holding{
		ID:            uuid.NewString(),
		PortfolioID:   portfolioID,
		Symbol:        "AAPL",
		CompanyName:   "Apple Inc.",
		Shares:        shares,
		SharesSold:    0,
		PurchasePrice: decimal.NewFromInt(100),
		CurrentPrice:  decimal.NewFromInt(100),
		PurchasedAt:   now,
		PriceUpdated:  now,
	}
	if err := s.CreateHolding(context.Background(), h); err != nil {
		t.Fatalf("Failed to create holding: %v", err)
	}
	return h
}

func insertSell(t *testing.T, s *SQLiteStore, h *models.Holding, shares int64) *models.SellTransaction {
	t.Helper()
	txn := &models.SellTransaction{
		ID:          uuid.NewString(),
		PortfolioID: h.PortfolioID,
		HoldingID:   h.ID,
		Symbol:      h.Symbol,
		CompanyName: h.CompanyName,
		Shares:      shares,
		Price:       decimal.NewFromInt(120),
		Date:        time.Now().UTC().Truncate(time.Second),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	err := s.ExecTx(context.Background(), func(q Queries) error {
		return q.InsertTransaction(context.Background(), txn)
	})
	if err != nil {
		t.Fatalf("Failed to insert transaction: %v", err)
	}
	return txn
}

func TestPortfolioCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testPortfolio(t, store)

	got, err := store.GetPortfolio(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to get portfolio: %v", err)
	}
	if got.Name != p.Name || got.UserID != p.UserID {
		t.Errorf("Portfolio mismatch: got %+v, want %+v", got, p)
	}
	if !got.InitialValue.Equal(p.InitialValue) {
		t.Errorf("Initial value mismatch: got %s, want %s", got.InitialValue, p.InitialValue)
	}

	list, err := store.ListPortfolios(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to list portfolios: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 portfolio, got %d", len(list))
	}

	value := decimal.NewFromFloat(12345.67)
	if err := store.UpdatePortfolioRollup(ctx, p.ID, value, time.Now().UTC()); err != nil {
		t.Fatalf("Failed to update rollup: %v", err)
	}
	got, err = store.GetPortfolio(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to get portfolio: %v", err)
	}
	if !got.CurrentValue.Equal(value) {
		t.Errorf("Current value mismatch: got %s, want %s", got.CurrentValue, value)
	}

	if err := store.DeletePortfolio(ctx, p.ID); err != nil {
		t.Fatalf("Failed to delete portfolio: %v", err)
	}
	if _, err := store.GetPortfolio(ctx, p.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetPortfolioNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetPortfolio(context.Background(), "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestHoldingCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testPortfolio(t, store)
	h := testHolding(t, store, p.ID, 10)

	got, err := store.GetHolding(ctx, h.ID)
	if err != nil {
		t.Fatalf("Failed to get holding: %v", err)
	}
	if got.Symbol != "AAPL" || got.Shares != 10 || got.SharesSold != 0 {
		t.Errorf("Holding mismatch: got %+v", got)
	}
	if got.Version != 0 {
		t.Errorf("Expected version 0 on fresh holding, got %d", got.Version)
	}

	price := decimal.NewFromFloat(135.5)
	at := time.Now().UTC().Truncate(time.Second)
	if err := store.UpdateHoldingPrice(ctx, h.ID, price, at); err != nil {
		t.Fatalf("Failed to update price: %v", err)
	}
	got, err = store.GetHolding(ctx, h.ID)
	if err != nil {
		t.Fatalf("Failed to get holding: %v", err)
	}
	if !got.CurrentPrice.Equal(price) {
		t.Errorf("Current price mismatch: got %s, want %s", got.CurrentPrice, price)
	}
	if got.Version != 0 {
		t.Errorf("Price update must not bump version, got %d", got.Version)
	}

	list, err := store.ListHoldings(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list holdings: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 holding, got %d", len(list))
	}
}

func TestUpdateHoldingSharesSoldVersionGuard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testPortfolio(t, store)
	h := testHolding(t, store, p.ID, 10)

	err := store.ExecTx(ctx, func(q Queries) error {
		return q.UpdateHoldingSharesSold(ctx, h.ID, 4, 0)
	})
	if err != nil {
		t.Fatalf("First update failed: %v", err)
	}

	got, err := store.GetHolding(ctx, h.ID)
	if err != nil {
		t.Fatalf("Failed to get holding: %v", err)
	}
	if got.SharesSold != 4 {
		t.Errorf("Expected 4 shares sold, got %d", got.SharesSold)
	}
	if got.Version != 1 {
		t.Errorf("Expected version 1 after update, got %d", got.Version)
	}

	// Writing with the stale version must fail with a conflict.
	err = store.ExecTx(ctx, func(q Queries) error {
		return q.UpdateHoldingSharesSold(ctx, h.ID, 6, 0)
	})
	if !errors.Is(err, errors.ErrConflict) {
		t.Errorf("Expected ErrConflict on stale version, got %v", err)
	}

	// A missing holding is NotFound, not a conflict.
	err = store.ExecTx(ctx, func(q Queries) error {
		return q.UpdateHoldingSharesSold(ctx, "missing", 1, 0)
	})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing holding, got %v", err)
	}
}

func TestDeleteHoldingCascadesTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testPortfolio(t, store)
	h := testHolding(t, store, p.ID, 10)
	txn := insertSell(t, store, h, 4)

	if err := store.DeleteHolding(ctx, h.ID); err != nil {
		t.Fatalf("Failed to delete holding: %v", err)
	}

	if _, err := store.GetHolding(ctx, h.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deleted holding, got %v", err)
	}
	if _, err := store.GetTransaction(ctx, txn.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected transactions to cascade, got %v", err)
	}
}

func TestDeletePortfolioCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testPortfolio(t, store)
	h := testHolding(t, store, p.ID, 10)
	txn := insertSell(t, store, h, 2)

	snap := &models.PerformanceSnapshot{
		ID:              uuid.NewString(),
		PortfolioID:     p.ID,
		Value:           decimal.NewFromInt(1000),
		GainLoss:        decimal.NewFromInt(100),
		GainLossPercent: decimal.NewFromInt(10),
		TakenAt:         time.Now().UTC().Truncate(time.Second),
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}

	if err := store.DeletePortfolio(ctx, p.ID); err != nil {
		t.Fatalf("Failed to delete portfolio: %v", err)
	}

	if _, err := store.GetHolding(ctx, h.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected holdings to cascade, got %v", err)
	}
	if _, err := store.GetTransaction(ctx, txn.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected transactions to cascade, got %v", err)
	}
	snaps, err := store.ListSnapshots(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("Expected snapshots to cascade, got %d", len(snaps))
	}
}

func TestSumSoldShares(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testPortfolio(t, store)
	h := testHolding(t, store, p.ID, 20)

	sum, err := store.SumSoldShares(ctx, h.ID)
	if err != nil {
		t.Fatalf("Failed to sum: %v", err)
	}
	if sum != 0 {
		t.Errorf("Expected 0 for holding without sells, got %d", sum)
	}

	insertSell(t, store, h, 4)
	insertSell(t, store, h, 3)

	sum, err = store.SumSoldShares(ctx, h.ID)
	if err != nil {
		t.Fatalf("Failed to sum: %v", err)
	}
	if sum != 7 {
		t.Errorf("Expected sum 7, got %d", sum)
	}
}

func TestTransactionListsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testPortfolio(t, store)
	h := testHolding(t, store, p.ID, 50)

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		txn := &models.SellTransaction{
			ID:          uuid.NewString(),
			PortfolioID: h.PortfolioID,
			HoldingID:   h.ID,
			Symbol:      h.Symbol,
			CompanyName: h.CompanyName,
			Shares:      1,
			Price:       decimal.NewFromInt(100 + int64(i)),
			Date:        base.AddDate(0, 0, i),
			CreatedAt:   base.AddDate(0, 0, i),
		}
		err := store.ExecTx(ctx, func(q Queries) error {
			return q.InsertTransaction(ctx, txn)
		})
		if err != nil {
			t.Fatalf("Failed to insert transaction: %v", err)
		}
	}

	txns, err := store.ListTransactions(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list transactions: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("Expected 3 transactions, got %d", len(txns))
	}
	for i := 1; i < len(txns); i++ {
		if txns[i].Date.After(txns[i-1].Date) {
			t.Errorf("Transactions not ordered newest first: %v after %v", txns[i].Date, txns[i-1].Date)
		}
	}

	byHolding, err := store.ListHoldingTransactions(ctx, h.ID)
	if err != nil {
		t.Fatalf("Failed to list holding transactions: %v", err)
	}
	if len(byHolding) != 3 {
		t.Fatalf("Expected 3 holding transactions, got %d", len(byHolding))
	}
}

func TestExecTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testPortfolio(t, store)
	h := testHolding(t, store, p.ID, 10)

	wantErr := errors.ErrOversell
	err := store.ExecTx(ctx, func(q Queries) error {
		if err := q.UpdateHoldingSharesSold(ctx, h.ID, 5, 0); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected wrapped error back, got %v", err)
	}

	got, err := store.GetHolding(ctx, h.ID)
	if err != nil {
		t.Fatalf("Failed to get holding: %v", err)
	}
	if got.SharesSold != 0 || got.Version != 0 {
		t.Errorf("Expected rollback, got sold=%d version=%d", got.SharesSold, got.Version)
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testPortfolio(t, store)
	now := time.Now().UTC().Truncate(time.Second)
	h := &models.Holding{
		ID:            uuid.NewString(),
		PortfolioID:   p.ID,
		Symbol:        "BRK.A",
		CompanyName:   "Berkshire Hathaway Inc.",
		Shares:        3,
		PurchasePrice: decimal.RequireFromString("628123.4567"),
		CurrentPrice:  decimal.RequireFromString("631000.0001"),
		PurchasedAt:   now,
		PriceUpdated:  now,
	}
	if err := store.CreateHolding(ctx, h); err != nil {
		t.Fatalf("Failed to create holding: %v", err)
	}

	got, err := store.GetHolding(ctx, h.ID)
	if err != nil {
		t.Fatalf("Failed to get holding: %v", err)
	}
	if !got.PurchasePrice.Equal(h.PurchasePrice) {
		t.Errorf("Purchase price lost precision: got %s, want %s", got.PurchasePrice, h.PurchasePrice)
	}
	if !got.CurrentPrice.Equal(h.CurrentPrice) {
		t.Errorf("Current price lost precision: got %s, want %s", got.CurrentPrice, h.CurrentPrice)
	}
}
