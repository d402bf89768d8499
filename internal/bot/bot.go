package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"price-swing-alerts/internal/command"
	"price-swing-alerts/internal/fetcher"
	"price-swing-alerts/internal/format"
)

const helpText = "Available commands:\n" +
	"/start - Start the bot\n" +
	"/price <symbol> - Get current price (e.g., /price BTCUSDT)\n" +
	"/list - Show all monitored cryptocurrencies\n" +
	"/add <symbol> - Add a cryptocurrency to monitor\n" +
	"/remove <symbol> - Stop monitoring a cryptocurrency\n" +
	"/help - Show this help message"

// Options 控制机器人行为。
type Options struct {
	// PageSize 是 /list 每页展示的 symbol 数量。
	PageSize int
}

// Bot 通过 Telegram 长轮询响应 watch list 指令。
type Bot struct {
	api      *tgbotapi.BotAPI
	commands *command.Service
	pageSize int
	logger   zerolog.Logger
}

// New 构造 Telegram 指令前端。
func New(api *tgbotapi.BotAPI, commands *command.Service, opts Options, logger zerolog.Logger) *Bot {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = command.DefaultPageSize
	}
	return &Bot{
		api:      api,
		commands: commands,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "bot").Logger(),
	}
}

// Run consumes the update stream until ctx is cancelled, then waits for
// in-flight handlers to finish replying.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	b.logger.Info().Str("username", b.api.Self.UserName).Msg("telegram bot listening")

	var wg sync.WaitGroup
	for update := range updates {
		msg := update.Message
		if msg == nil || !msg.IsCommand() {
			continue
		}

		wg.Add(1)
		go func(msg *tgbotapi.Message) {
			defer wg.Done()
			b.handleCommand(ctx, msg)
		}(msg)
	}
	wg.Wait()

	b.logger.Info().Msg("telegram bot stopped")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	arg := firstArg(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.reply(msg.Chat.ID, helpText)
	case "price":
		b.cmdPrice(ctx, msg, arg)
	case "list":
		b.cmdList(msg, arg)
	case "add":
		b.cmdAdd(ctx, msg, arg)
	case "remove":
		b.cmdRemove(msg, arg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	name := "there"
	if msg.From != nil && msg.From.FirstName != "" {
		name = msg.From.FirstName
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Hi %s! I am monitoring %d cryptocurrencies.", name, b.commands.Count()))
}

func (b *Bot) cmdPrice(ctx context.Context, msg *tgbotapi.Message, arg string) {
	if arg == "" {
		arg = "BTCUSDT"
	}

	symbol, price, err := b.commands.Price(ctx, arg)
	if err != nil {
		if errors.Is(err, fetcher.ErrUnknownSymbol) {
			b.reply(msg.Chat.ID, fmt.Sprintf("Invalid symbol: %s", symbol))
			return
		}
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("price lookup failed")
		b.reply(msg.Chat.ID, fmt.Sprintf("Error fetching price for %s, try again later.", symbol))
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("Current *%s* price: %s", symbol, format.Price(price)))
}

func (b *Bot) cmdList(msg *tgbotapi.Message, arg string) {
	// Chat pages are 1-based; the command layer counts from zero.
	page := 1
	if arg != "" {
		if parsed, err := strconv.Atoi(arg); err == nil && parsed > 0 {
			page = parsed
		}
	}

	listing := b.commands.List(page-1, b.pageSize)
	if listing.Total == 0 {
		b.reply(msg.Chat.ID, "No cryptocurrencies are being monitored.")
		return
	}
	if len(listing.Symbols) == 0 {
		b.reply(msg.Chat.ID, fmt.Sprintf("Invalid page number. Max page is %d", listing.PageCount))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Monitoring %d cryptocurrencies (Page %d/%d):\n", listing.Total, page, listing.PageCount)
	for _, symbol := range listing.Symbols {
		fmt.Fprintf(&sb, "• %s\n", symbol)
	}
	sb.WriteString("\nUse /list <page_number> to view more pairs")

	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) cmdAdd(ctx context.Context, msg *tgbotapi.Message, arg string) {
	if arg == "" {
		b.reply(msg.Chat.ID, "Please specify a symbol to add (e.g., /add ETHUSDT)")
		return
	}

	symbol, err := b.commands.Add(ctx, arg)
	switch {
	case err == nil:
		b.reply(msg.Chat.ID, fmt.Sprintf("Now monitoring %s", symbol))
	case errors.Is(err, command.ErrAlreadyWatched):
		b.reply(msg.Chat.ID, fmt.Sprintf("Already monitoring %s", symbol))
	case errors.Is(err, fetcher.ErrUnknownSymbol):
		b.reply(msg.Chat.ID, fmt.Sprintf("Invalid symbol: %s", symbol))
	default:
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("add command failed")
		b.reply(msg.Chat.ID, fmt.Sprintf("Could not verify %s right now, try again later.", symbol))
	}
}

func (b *Bot) cmdRemove(msg *tgbotapi.Message, arg string) {
	if arg == "" {
		b.reply(msg.Chat.ID, "Please specify a symbol to remove (e.g., /remove ETHUSDT)")
		return
	}

	symbol, err := b.commands.Remove(arg)
	switch {
	case err == nil:
		b.reply(msg.Chat.ID, fmt.Sprintf("Stopped monitoring %s", symbol))
	case errors.Is(err, command.ErrNotWatched):
		b.reply(msg.Chat.ID, fmt.Sprintf("Not monitoring %s", symbol))
	default:
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("remove command failed")
		b.reply(msg.Chat.ID, fmt.Sprintf("Could not remove %s", symbol))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send reply failed")
	}
}

func firstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
