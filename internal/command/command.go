package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-swing-alerts/internal/fetcher"
	"price-swing-alerts/internal/monitor"
)

// User-visible command failures. Front ends render these as chat replies or
// HTTP statuses rather than treating them as outages.
var (
	ErrEmptySymbol    = errors.New("no symbol given")
	ErrAlreadyWatched = errors.New("symbol already watched")
	ErrNotWatched     = errors.New("symbol not watched")
)

// DefaultPageSize bounds watch list pages when the caller does not choose.
const DefaultPageSize = 20

// Service implements the operations shared by the chat bot and the HTTP
// API: watch set mutation, paginated listing, and live price lookups.
type Service struct {
	engine  *monitor.Engine
	fetcher fetcher.PriceFetcher
	logger  zerolog.Logger
}

// New constructs the command service.
func New(engine *monitor.Engine, priceFetcher fetcher.PriceFetcher, logger zerolog.Logger) *Service {
	return &Service{
		engine:  engine,
		fetcher: priceFetcher,
		logger:  logger.With().Str("component", "command").Logger(),
	}
}

// Add verifies the symbol upstream and puts it under watch. The probe price
// is discarded; history accumulates from the next poll cycle. Returns the
// normalized symbol.
func (s *Service) Add(ctx context.Context, raw string) (string, error) {
	symbol := monitor.NormalizeSymbol(raw)
	if symbol == "" {
		return "", ErrEmptySymbol
	}
	if s.engine.Watched(symbol) {
		return symbol, fmt.Errorf("%w: %s", ErrAlreadyWatched, symbol)
	}

	if _, err := s.fetcher.GetPrice(ctx, symbol); err != nil {
		if errors.Is(err, fetcher.ErrUnknownSymbol) {
			return symbol, err
		}
		return symbol, fmt.Errorf("verify %s: %w", symbol, err)
	}

	if !s.engine.Watch(symbol) {
		return symbol, fmt.Errorf("%w: %s", ErrAlreadyWatched, symbol)
	}

	s.logger.Info().Str("symbol", symbol).Msg("symbol added to watch set")
	return symbol, nil
}

// Remove unwatches the symbol, discarding its history and cooldown record.
func (s *Service) Remove(raw string) (string, error) {
	symbol := monitor.NormalizeSymbol(raw)
	if symbol == "" {
		return "", ErrEmptySymbol
	}
	if !s.engine.Unwatch(symbol) {
		return symbol, fmt.Errorf("%w: %s", ErrNotWatched, symbol)
	}

	s.logger.Info().Str("symbol", symbol).Msg("symbol removed from watch set")
	return symbol, nil
}

// Page is one bounded slice of the watch list.
type Page struct {
	Symbols   []string
	Page      int
	PageCount int
	Total     int
}

// List returns the requested zero-based page of the insertion-ordered watch
// list. Out-of-range pages return an empty slice with correct counts.
func (s *Service) List(page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 0 {
		page = 0
	}

	symbols := s.engine.Symbols()
	total := len(symbols)
	pageCount := (total + pageSize - 1) / pageSize

	start := page * pageSize
	if start >= total {
		return Page{Symbols: []string{}, Page: page, PageCount: pageCount, Total: total}
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page{Symbols: symbols[start:end], Page: page, PageCount: pageCount, Total: total}
}

// Price fetches the live price for any symbol the venue knows, watched or
// not. Returns the normalized symbol alongside the price.
func (s *Service) Price(ctx context.Context, raw string) (string, decimal.Decimal, error) {
	symbol := monitor.NormalizeSymbol(raw)
	if symbol == "" {
		return "", decimal.Decimal{}, ErrEmptySymbol
	}

	price, err := s.fetcher.GetPrice(ctx, symbol)
	if err != nil {
		return symbol, decimal.Decimal{}, err
	}
	return symbol, price, nil
}

// Count reports the watch set size.
func (s *Service) Count() int {
	return s.engine.Count()
}
