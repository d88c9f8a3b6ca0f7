package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/models"
)

// StaticProvider is an in-memory Provider for tests and offline use.
// Symbols without a trade price fall through to the bar price; symbols in
// the fail set error out like a broken upstream.
type StaticProvider struct {
	mu         sync.RWMutex
	trades     map[string]decimal.Decimal
	bars       map[string]decimal.Decimal
	failing    map[string]bool
	clockOpen  bool
	clockErr   error
	status     string
	tradeCalls int
	clockCalls int
}

var _ Provider = (*StaticProvider)(nil)

// NewStaticProvider creates an empty static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		trades:  make(map[string]decimal.Decimal),
		bars:    make(map[string]decimal.Decimal),
		failing: make(map[string]bool),
		status:  "Account Status: ACTIVE, Buying Power: $100000.00",
	}
}

// SetTrade sets the last-trade price for a symbol.
func (p *StaticProvider) SetTrade(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades[symbol] = price
}

// SetBar sets the latest-bar close price for a symbol.
func (p *StaticProvider) SetBar(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars[symbol] = price
}

// SetFailing marks a symbol as erroring at the provider level.
func (p *StaticProvider) SetFailing(symbol string, failing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing[symbol] = failing
}

// SetClock sets the market clock result.
func (p *StaticProvider) SetClock(open bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clockOpen = open
	p.clockErr = err
}

// TradeCalls returns the number of LastTrade calls served.
func (p *StaticProvider) TradeCalls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tradeCalls
}

// ClockCalls returns the number of MarketClock calls served.
func (p *StaticProvider) ClockCalls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clockCalls
}

// LastTrade implements Provider.
func (p *StaticProvider) LastTrade(ctx context.Context, symbol string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tradeCalls++
	if p.failing[symbol] {
		return decimal.Zero, errors.NewProviderError("last_trade", symbol, errors.ErrPriceSourceUnavailable)
	}
	price, ok := p.trades[symbol]
	if !ok {
		return decimal.Zero, errors.ErrNoPriceData
	}
	return price, nil
}

// LastBarClose implements Provider.
func (p *StaticProvider) LastBarClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing[symbol] {
		return decimal.Zero, errors.NewProviderError("last_bar", symbol, errors.ErrPriceSourceUnavailable)
	}
	price, ok := p.bars[symbol]
	if !ok {
		return decimal.Zero, errors.ErrNoPriceData
	}
	return price, nil
}

// MarketClock implements Provider.
func (p *StaticProvider) MarketClock(ctx context.Context) (models.MarketClock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clockCalls++
	if p.clockErr != nil {
		return models.MarketClock{}, p.clockErr
	}
	return models.MarketClock{IsOpen: p.clockOpen, AsOf: time.Now()}, nil
}

// AccountStatus implements Provider.
func (p *StaticProvider) AccountStatus(ctx context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status, nil
}
