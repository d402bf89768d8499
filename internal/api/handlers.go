package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"price-swing-alerts/internal/command"
	"price-swing-alerts/internal/fetcher"
	"price-swing-alerts/internal/monitor"
)

type errorResponse struct {
	Error string `json:"error"`
}

type symbolResponse struct {
	Symbol string `json:"symbol"`
}

type listResponse struct {
	Symbols   []string `json:"symbols"`
	Page      int      `json:"page"`
	PageSize  int      `json:"page_size"`
	PageCount int      `json:"page_count"`
	Total     int      `json:"total"`
}

type changeResponse struct {
	PercentChange  string    `json:"percent_change"`
	ReferencePrice string    `json:"reference_price"`
	CurrentPrice   string    `json:"current_price"`
	ReferenceAt    time.Time `json:"reference_at"`
	CurrentAt      time.Time `json:"current_at"`
}

type detailResponse struct {
	Symbol      string          `json:"symbol"`
	Watched     bool            `json:"watched"`
	SampleCount int             `json:"sample_count"`
	LastPrice   string          `json:"last_price,omitempty"`
	LastSeen    *time.Time      `json:"last_seen,omitempty"`
	Change      *changeResponse `json:"change,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(c echo.Context) error {
	page := intQuery(c, "page", 0)
	pageSize := intQuery(c, "page_size", command.DefaultPageSize)
	if pageSize <= 0 {
		pageSize = command.DefaultPageSize
	}

	listing := s.commands.List(page, pageSize)
	return c.JSON(http.StatusOK, listResponse{
		Symbols:   listing.Symbols,
		Page:      listing.Page,
		PageSize:  pageSize,
		PageCount: listing.PageCount,
		Total:     listing.Total,
	})
}

func (s *Server) handleAdd(c echo.Context) error {
	symbol, err := s.commands.Add(c.Request().Context(), c.Param("symbol"))
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, symbolResponse{Symbol: symbol})
	case errors.Is(err, command.ErrAlreadyWatched):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, command.ErrEmptySymbol), errors.Is(err, fetcher.ErrUnknownSymbol):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("add request failed")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleRemove(c echo.Context) error {
	_, err := s.commands.Remove(c.Param("symbol"))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, command.ErrNotWatched):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleDetail(c echo.Context) error {
	symbol := monitor.NormalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: command.ErrEmptySymbol.Error()})
	}
	if !s.engine.Watched(symbol) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: command.ErrNotWatched.Error()})
	}

	now := time.Now().UTC()
	resp := detailResponse{
		Symbol:      symbol,
		Watched:     true,
		SampleCount: len(s.engine.Window(symbol, now)),
	}
	if latest, ok := s.engine.Latest(symbol); ok {
		resp.LastPrice = latest.Price.String()
		seen := latest.ObservedAt
		resp.LastSeen = &seen
	}
	if change, ok := s.engine.Peek(symbol, now); ok {
		resp.Change = &changeResponse{
			PercentChange:  change.PercentChange.String(),
			ReferencePrice: change.ReferencePrice.String(),
			CurrentPrice:   change.CurrentPrice.String(),
			ReferenceAt:    change.ReferenceAt,
			CurrentAt:      change.CurrentAt,
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func intQuery(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
