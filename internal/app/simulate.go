package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"price-swing-alerts/internal/monitor"
)

// SimulateOptions configure the offline alert drill.
type SimulateOptions struct {
	Symbol   string
	Prices   []float64
	Interval time.Duration
}

// Simulate 用给定的价格序列走一遍完整的检测与告警链路, 时间戳按间隔倒推,
// 最后一笔落在当前时刻。
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	symbol := monitor.NormalizeSymbol(opts.Symbol)
	if symbol == "" {
		return errors.New("symbol is required")
	}
	if len(opts.Prices) < 2 {
		return errors.New("at least two prices are required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = a.Config.Monitor.PollInterval
	}

	var botAPI *tgbotapi.BotAPI
	if a.Config.Telegram.Enabled {
		api, err := a.newBotAPI()
		if err != nil {
			return fmt.Errorf("telegram bot: %w", err)
		}
		botAPI = api
	}

	notifier, err := a.newNotifier(botAPI)
	if err != nil {
		return err
	}
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	engine := monitor.NewEngine(monitor.Options{
		Lookback:     a.Config.Monitor.Lookback,
		ThresholdPct: a.Config.Monitor.ThresholdPct,
		Cooldown:     a.Config.Monitor.Cooldown,
	}, a.Logger)
	engine.Watch(symbol)

	emit := func(ctx context.Context, event monitor.AlertEvent) error {
		return notifier.Send(ctx, event)
	}

	start := time.Now().UTC().Add(-time.Duration(len(opts.Prices)-1) * interval)
	for i, raw := range opts.Prices {
		price := decimal.NewFromFloat(raw)
		observedAt := start.Add(time.Duration(i) * interval)

		outcome, err := engine.Observe(ctx, symbol, price, observedAt, emit)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i+1, err)
		}

		a.Logger.Info().
			Str("symbol", symbol).
			Str("price", price.String()).
			Time("observed_at", observedAt).
			Str("outcome", outcome.String()).
			Msg("simulated sample")
	}

	return nil
}
