package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/models"
)

// Default Alpaca paper-trading endpoints.
const (
	DefaultDataBaseURL    = "https://data.alpaca.markets"
	DefaultTradingBaseURL = "https://paper-api.alpaca.markets"
)

// AlpacaConfig holds Alpaca API configuration.
type AlpacaConfig struct {
	APIKey         string
	APISecret      string
	DataBaseURL    string
	TradingBaseURL string
	Timeout        time.Duration
}

// AlpacaProvider implements Provider against the Alpaca REST API.
type AlpacaProvider struct {
	cfg    AlpacaConfig
	client *http.Client
}

var _ Provider = (*AlpacaProvider)(nil)

// NewAlpacaProvider creates a new Alpaca market-data provider.
func NewAlpacaProvider(cfg AlpacaConfig) *AlpacaProvider {
	if cfg.DataBaseURL == "" {
		cfg.DataBaseURL = DefaultDataBaseURL
	}
	if cfg.TradingBaseURL == "" {
		cfg.TradingBaseURL = DefaultTradingBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	// http.DefaultClient has no timeout; always use a configured client.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &AlpacaProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

type latestTradeResponse struct {
	Trade *struct {
		Price decimal.Decimal `json:"p"`
	} `json:"trade"`
}

type latestBarResponse struct {
	Bar *struct {
		Close decimal.Decimal `json:"c"`
	} `json:"bar"`
}

type clockResponse struct {
	IsOpen    bool      `json:"is_open"`
	Timestamp time.Time `json:"timestamp"`
}

type accountResponse struct {
	Status      string `json:"status"`
	BuyingPower string `json:"buying_power"`
}

// LastTrade returns the last traded price for a symbol.
func (p *AlpacaProvider) LastTrade(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var body latestTradeResponse
	url := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", p.cfg.DataBaseURL, symbol)
	if err := p.get(ctx, url, &body); err != nil {
		return decimal.Zero, err
	}
	if body.Trade == nil {
		return decimal.Zero, errors.ErrNoPriceData
	}
	return body.Trade.Price, nil
}

// LastBarClose returns the close price of the latest bar for a symbol.
func (p *AlpacaProvider) LastBarClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var body latestBarResponse
	url := fmt.Sprintf("%s/v2/stocks/%s/bars/latest", p.cfg.DataBaseURL, symbol)
	if err := p.get(ctx, url, &body); err != nil {
		return decimal.Zero, err
	}
	if body.Bar == nil {
		return decimal.Zero, errors.ErrNoPriceData
	}
	return body.Bar.Close, nil
}

// MarketClock returns the provider's market clock.
func (p *AlpacaProvider) MarketClock(ctx context.Context) (models.MarketClock, error) {
	var body clockResponse
	url := p.cfg.TradingBaseURL + "/v2/clock"
	if err := p.get(ctx, url, &body); err != nil {
		return models.MarketClock{}, err
	}
	return models.MarketClock{IsOpen: body.IsOpen, AsOf: body.Timestamp}, nil
}

// AccountStatus returns a human-readable account status line.
func (p *AlpacaProvider) AccountStatus(ctx context.Context) (string, error) {
	var body accountResponse
	url := p.cfg.TradingBaseURL + "/v2/account"
	if err := p.get(ctx, url, &body); err != nil {
		return "", err
	}
	return fmt.Sprintf("Account Status: %s, Buying Power: $%s", body.Status, body.BuyingPower), nil
}

func (p *AlpacaProvider) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewProviderError("request", "", err)
	}
	req.Header.Set("APCA-API-KEY-ID", p.cfg.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", p.cfg.APISecret)

	res, err := p.client.Do(req)
	if err != nil {
		return errors.NewProviderError("http", "", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return errors.ErrNoPriceData
	}
	if res.StatusCode >= 400 {
		return errors.NewProviderError("http", "", fmt.Errorf("alpaca http %d", res.StatusCode))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.NewProviderError("decode", "", err)
	}
	return nil
}
