package alerting

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"price-swing-alerts/internal/monitor"
)

// Notifier 定义告警投递接口。
type Notifier interface {
	Send(ctx context.Context, event monitor.AlertEvent) error
}

// TelegramNotifier 通过 Telegram Bot API 推送告警消息。
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器,复用与命令机器人共享的 BotAPI 客户端。
func NewTelegramNotifier(api *tgbotapi.BotAPI, chatID int64, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Send 调用 sendMessage 推送渲染后的 Markdown 文本。
func (n *TelegramNotifier) Send(ctx context.Context, event monitor.AlertEvent) error {
	msg := tgbotapi.NewMessage(n.chatID, RenderMessage(event))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}

	n.logger.Info().Str("symbol", event.Symbol).Str("event_id", event.ID).
		Msg("告警已发送 (Telegram)")
	return nil
}

// LogNotifier 将告警写入结构化日志,作为缺省通道。
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier 构造日志告警器。
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Send 以 info 级别记录完整的告警字段。
func (n *LogNotifier) Send(ctx context.Context, event monitor.AlertEvent) error {
	n.logger.Info().
		Str("event_id", event.ID).
		Str("symbol", event.Symbol).
		Str("percent_change", event.PercentChange.StringFixed(2)).
		Str("old_price", event.OldPrice.String()).
		Str("new_price", event.NewPrice.String()).
		Dur("window", event.Window).
		Time("triggered_at", event.TriggeredAt).
		Msg("price swing alert")
	return nil
}

// MultiNotifier 将告警依次投递到多个通道。
type MultiNotifier struct {
	channels []Notifier
	logger   zerolog.Logger
}

// NewMultiNotifier 构造多通道告警器。
func NewMultiNotifier(logger zerolog.Logger, channels ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		channels: channels,
		logger:   logger.With().Str("component", "alert_multi").Logger(),
	}
}

// Send fans the event out to every channel. It fails only when all channels
// fail, so one flapping channel cannot turn a delivered alert into a
// repeating one.
func (n *MultiNotifier) Send(ctx context.Context, event monitor.AlertEvent) error {
	if len(n.channels) == 0 {
		return errors.New("no alert channels configured")
	}

	var delivered int
	var lastErr error
	for _, ch := range n.channels {
		if err := ch.Send(ctx, event); err != nil {
			n.logger.Error().Err(err).Str("symbol", event.Symbol).Str("event_id", event.ID).
				Msg("channel delivery failed")
			lastErr = err
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("all %d alert channels failed: %w", len(n.channels), lastErr)
	}
	return nil
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*MultiNotifier)(nil)
)
