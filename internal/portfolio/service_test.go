package portfolio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/marketdata"
	"equity-tracker/internal/store"
)

func newTestService(t *testing.T) (*Service, *marketdata.StaticProvider, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "portfolio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	provider := marketdata.NewStaticProvider()
	oracle := marketdata.NewOracle(provider, zerolog.Nop(), marketdata.WithPacing(0))
	return NewService(s, oracle, zerolog.Nop()), provider, s
}

func TestCreatePortfolioValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePortfolio(ctx, "user-1", "", "", decimal.Zero)
	require.Error(t, err)

	p, err := svc.CreatePortfolio(ctx, "user-1", "Growth", "tech picks", decimal.NewFromInt(5000))
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.True(t, p.CurrentValue.IsZero())
}

func TestAddHoldingCompanyNames(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, "user-1", "Main", "", decimal.Zero)
	require.NoError(t, err)

	cases := map[string]string{
		"AAPL":  "Apple Inc.",
		"MSFT":  "Microsoft Corporation",
		"GOOGL": "Alphabet Inc.",
		"AMZN":  "Amazon.com Inc.",
		"TSLA":  "Tesla Inc.",
		"NVDA":  "NVDA Corporation",
	}
	for symbol, want := range cases {
		h, err := svc.AddHolding(ctx, p.ID, symbol, 5, decimal.NewFromInt(100), time.Now().UTC())
		require.NoError(t, err)
		require.Equal(t, want, h.CompanyName, symbol)
		require.True(t, h.CurrentPrice.Equal(h.PurchasePrice), "current price starts at cost")
	}
}

func TestAddHoldingValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, "user-1", "Main", "", decimal.Zero)
	require.NoError(t, err)

	_, err = svc.AddHolding(ctx, p.ID, "", 5, decimal.NewFromInt(100), time.Now().UTC())
	require.Error(t, err)
	_, err = svc.AddHolding(ctx, p.ID, "AAPL", 0, decimal.NewFromInt(100), time.Now().UTC())
	require.Error(t, err)
	_, err = svc.AddHolding(ctx, p.ID, "AAPL", 5, decimal.Zero, time.Now().UTC())
	require.Error(t, err)
	_, err = svc.AddHolding(ctx, "missing", "AAPL", 5, decimal.NewFromInt(100), time.Now().UTC())
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRefreshPricesSkipsUnavailableSymbols(t *testing.T) {
	svc, provider, s := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, "user-1", "Main", "", decimal.Zero)
	require.NoError(t, err)

	apple, err := svc.AddHolding(ctx, p.ID, "AAPL", 10, decimal.NewFromInt(100), time.Now().UTC())
	require.NoError(t, err)
	broken, err := svc.AddHolding(ctx, p.ID, "BAD", 4, decimal.NewFromInt(50), time.Now().UTC())
	require.NoError(t, err)

	provider.SetTrade("AAPL", decimal.NewFromInt(120))
	provider.SetFailing("BAD", true)

	require.NoError(t, svc.RefreshPrices(ctx, p.ID))

	got, err := s.GetHolding(ctx, apple.ID)
	require.NoError(t, err)
	require.True(t, got.CurrentPrice.Equal(decimal.NewFromInt(120)))

	// The failed symbol keeps its last known price.
	got, err = s.GetHolding(ctx, broken.ID)
	require.NoError(t, err)
	require.True(t, got.CurrentPrice.Equal(decimal.NewFromInt(50)))

	// Rollup counts both holdings at their effective prices:
	// 10*120 + 4*50 = 1400.
	refreshed, err := svc.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, refreshed.CurrentValue.Equal(decimal.NewFromInt(1400)),
		"got %s", refreshed.CurrentValue)
}

func TestRefreshPricesValuesRemainingSharesOnly(t *testing.T) {
	svc, provider, s := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, "user-1", "Main", "", decimal.Zero)
	require.NoError(t, err)
	h, err := svc.AddHolding(ctx, p.ID, "AAPL", 10, decimal.NewFromInt(100), time.Now().UTC())
	require.NoError(t, err)

	// Sell 4 shares out-of-band.
	require.NoError(t, s.ExecTx(ctx, func(q store.Queries) error {
		return q.UpdateHoldingSharesSold(ctx, h.ID, 4, 0)
	}))

	provider.SetTrade("AAPL", decimal.NewFromInt(120))
	require.NoError(t, svc.RefreshPrices(ctx, p.ID))

	refreshed, err := svc.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, refreshed.CurrentValue.Equal(decimal.NewFromInt(720)),
		"6 remaining at 120, got %s", refreshed.CurrentValue)
}

func TestSummarize(t *testing.T) {
	svc, provider, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, "user-1", "Main", "", decimal.Zero)
	require.NoError(t, err)
	_, err = svc.AddHolding(ctx, p.ID, "AAPL", 10, decimal.NewFromInt(100), time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.AddHolding(ctx, p.ID, "MSFT", 2, decimal.NewFromInt(200), time.Now().UTC())
	require.NoError(t, err)

	provider.SetTrade("AAPL", decimal.NewFromInt(120))
	provider.SetTrade("MSFT", decimal.NewFromInt(150))
	require.NoError(t, svc.RefreshPrices(ctx, p.ID))

	sum, err := svc.Summarize(ctx, p.ID)
	require.NoError(t, err)
	// Value 10*120 + 2*150 = 1500; invested 10*100 + 2*200 = 1400.
	require.True(t, sum.CurrentValue.Equal(decimal.NewFromInt(1500)))
	require.True(t, sum.TotalInvested.Equal(decimal.NewFromInt(1400)))
	require.True(t, sum.ActualGainLoss.Equal(decimal.NewFromInt(100)))
	require.True(t, sum.ActualGainLossPct.Round(4).Equal(decimal.RequireFromString("7.1429")),
		"got %s", sum.ActualGainLossPct)
}

func TestSummarizeEmptyPortfolio(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, "user-1", "Empty", "", decimal.Zero)
	require.NoError(t, err)

	sum, err := svc.Summarize(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, sum.CurrentValue.IsZero())
	require.True(t, sum.ActualGainLossPct.IsZero(), "zero invested means 0%%")
}

func TestSnapshot(t *testing.T) {
	svc, provider, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, "user-1", "Main", "", decimal.NewFromInt(1000))
	require.NoError(t, err)
	_, err = svc.AddHolding(ctx, p.ID, "AAPL", 10, decimal.NewFromInt(100), time.Now().UTC())
	require.NoError(t, err)

	provider.SetTrade("AAPL", decimal.NewFromInt(120))
	require.NoError(t, svc.RefreshPrices(ctx, p.ID))

	snap, err := svc.Snapshot(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, snap.Value.Equal(decimal.NewFromInt(1200)))
	require.True(t, snap.GainLoss.Equal(decimal.NewFromInt(200)))
	require.True(t, snap.GainLossPercent.Equal(decimal.NewFromInt(20)))

	snaps, err := svc.ListSnapshots(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
}

func TestSnapshotZeroInitialValue(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, "user-1", "Main", "", decimal.Zero)
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, snap.GainLossPercent.IsZero())
}

func TestDeletePortfolioCascades(t *testing.T) {
	svc, _, s := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, "user-1", "Main", "", decimal.Zero)
	require.NoError(t, err)
	h, err := svc.AddHolding(ctx, p.ID, "AAPL", 10, decimal.NewFromInt(100), time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, svc.DeletePortfolio(ctx, p.ID))

	_, err = s.GetHolding(ctx, h.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)
}
