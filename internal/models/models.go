// Package models provides domain models for the equity tracker.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen   MarketStatus = "OPEN"
	MarketClosed MarketStatus = "CLOSED"
)

// Portfolio is a container of holdings plus cached rollup figures. The
// CurrentValue field is a projection of the holdings' market values as of
// LastUpdated, not an authoritative figure.
type Portfolio struct {
	ID           string
	UserID       string
	Name         string
	Description  string
	InitialValue decimal.Decimal
	CurrentValue decimal.Decimal
	CreatedAt    time.Time
	LastUpdated  time.Time
}

// Holding is one purchased position in a single symbol.
//
// SharesSold is the cumulative count of shares sold across all of the
// holding's sell transactions. It is mutated only by the journal and is
// guarded by Version for optimistic concurrency: every write bumps Version
// and must match the Version it read.
type Holding struct {
	ID            string
	PortfolioID   string
	Symbol        string
	CompanyName   string
	Shares        int64
	SharesSold    int64
	PurchasePrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	PurchasedAt   time.Time
	PriceUpdated  time.Time
	Version       int64
}

// SellTransaction is one realized sale event against exactly one holding.
// Symbol and CompanyName are denormalized snapshots taken from the holding
// at the time of the sale. The holding link is immutable.
type SellTransaction struct {
	ID          string
	PortfolioID string
	HoldingID   string
	Symbol      string
	CompanyName string
	Shares      int64
	Price       decimal.Decimal
	Date        time.Time
	Note        string
	CreatedAt   time.Time
}

// Proceeds returns the gross amount realized by this sale.
func (t *SellTransaction) Proceeds() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares))
}

// RealizedGainLoss returns the gain or loss realized by this sale relative
// to the given purchase price per share.
func (t *SellTransaction) RealizedGainLoss(purchasePrice decimal.Decimal) decimal.Decimal {
	return t.Price.Sub(purchasePrice).Mul(decimal.NewFromInt(t.Shares))
}

// PerformanceSnapshot is an append-only point-in-time record of a
// portfolio's value and gain/loss relative to its initial value.
type PerformanceSnapshot struct {
	ID              string
	PortfolioID     string
	Value           decimal.Decimal
	GainLoss        decimal.Decimal
	GainLossPercent decimal.Decimal
	TakenAt         time.Time
}

// MarketClock is the provider's view of the market calendar.
type MarketClock struct {
	IsOpen bool
	AsOf   time.Time
}

// MarketHours describes the trading schedule for a single calendar date.
// Closed days carry Open == Close == midnight of that date.
type MarketHours struct {
	Open   time.Time
	Close  time.Time
	IsOpen bool
}
