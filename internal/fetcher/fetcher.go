package fetcher

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnknownSymbol marks a symbol the venue does not trade. Command layers
// surface it to the user instead of treating it as an outage.
var ErrUnknownSymbol = errors.New("unknown symbol")

// PriceFetcher retrieves the latest price for a single symbol.
type PriceFetcher interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// BulkPriceFetcher retrieves the latest prices for many symbols in one call.
// Fetchers implement it when the venue offers a batched ticker endpoint.
type BulkPriceFetcher interface {
	GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}
