package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const tickerPricePath = "/api/v3/ticker/price"

// binanceUnknownSymbolCode is the Binance API code for an invalid symbol.
const binanceUnknownSymbolCode = -1121

// BinanceOptions parameterise the Binance fetcher.
type BinanceOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Binance fetches spot prices from the Binance REST API.
type Binance struct {
	opts    BinanceOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBinance constructs a Binance fetcher.
func NewBinance(opts BinanceOptions, logger zerolog.Logger) *Binance {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}

	return &Binance{
		opts:    opts,
		logger:  logger.With().Str("component", "binance_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// GetPrice retrieves the latest spot price for one symbol.
func (b *Binance) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := b.baseURL + tickerPricePath + "?symbol=" + url.QueryEscape(symbol)

	payload, err := b.get(ctx, endpoint)
	if err != nil {
		return decimal.Decimal{}, err
	}

	var ticker tickerPrice
	if err := json.Unmarshal(payload, &ticker); err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse ticker payload: %w", err)
	}

	return parseTickerPrice(ticker)
}

// GetPrices retrieves the full ticker board and returns entries for the
// requested symbols. Symbols missing from the board are absent from the
// result; callers fall back to GetPrice per symbol.
func (b *Binance) GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	payload, err := b.get(ctx, b.baseURL+tickerPricePath)
	if err != nil {
		return nil, err
	}

	var tickers []tickerPrice
	if err := json.Unmarshal(payload, &tickers); err != nil {
		return nil, fmt.Errorf("parse ticker board: %w", err)
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	out := make(map[string]decimal.Decimal, len(symbols))
	for _, ticker := range tickers {
		if _, ok := wanted[ticker.Symbol]; !ok {
			continue
		}
		price, err := parseTickerPrice(ticker)
		if err != nil {
			b.logger.Warn().Err(err).Str("symbol", ticker.Symbol).Msg("skipping unparsable board entry")
			continue
		}
		out[ticker.Symbol] = price
	}
	return out, nil
}

func (b *Binance) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(b.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "swingwatcher/1.0")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseBinanceError(resp.StatusCode, payload)
	}
	return payload, nil
}

func parseTickerPrice(ticker tickerPrice) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price for %s: %w", ticker.Symbol, err)
	}
	if price.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("non-positive price for %s: %s", ticker.Symbol, price)
	}
	return price, nil
}

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type binanceError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func parseBinanceError(status int, payload []byte) error {
	var apiErr binanceError
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Code != 0 {
		if apiErr.Code == binanceUnknownSymbolCode {
			return fmt.Errorf("%w (binance code %d)", ErrUnknownSymbol, apiErr.Code)
		}
		return fmt.Errorf("binance api error (%d): code %d %s", status, apiErr.Code, apiErr.Msg)
	}
	if len(payload) > 0 {
		return fmt.Errorf("binance api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("binance api error (%d)", status)
}

var (
	_ PriceFetcher     = (*Binance)(nil)
	_ BulkPriceFetcher = (*Binance)(nil)
)
