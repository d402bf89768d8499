package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"price-swing-alerts/internal/alerting"
	"price-swing-alerts/internal/api"
	"price-swing-alerts/internal/bot"
	"price-swing-alerts/internal/command"
	"price-swing-alerts/internal/config"
	"price-swing-alerts/internal/fetcher"
	"price-swing-alerts/internal/metrics"
	"price-swing-alerts/internal/monitor"
	"price-swing-alerts/internal/scheduler"
	"price-swing-alerts/internal/service"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.PriceFetcher {
	if a.Config.Market.Provider == "chainlink" {
		return fetcher.NewChainlink(fetcher.ChainlinkOptions{
			RPCURL:  a.Config.Market.Chainlink.RPCURL,
			Feeds:   a.Config.Market.Chainlink.Feeds,
			Timeout: a.Config.Market.Chainlink.RequestTimeout,
		}, a.Logger)
	}

	return fetcher.NewBinance(fetcher.BinanceOptions{
		BaseURL:   a.Config.Market.Binance.BaseURL,
		Timeout:   a.Config.Market.Binance.RequestTimeout,
		UserAgent: a.Config.Market.Binance.UserAgent,
	}, a.Logger)
}

func (a *App) newEngine() *monitor.Engine {
	engine := monitor.NewEngine(monitor.Options{
		Lookback:     a.Config.Monitor.Lookback,
		ThresholdPct: a.Config.Monitor.ThresholdPct,
		Cooldown:     a.Config.Monitor.Cooldown,
	}, a.Logger)

	for _, symbol := range a.Config.Monitor.Symbols {
		engine.Watch(symbol)
	}
	return engine
}

func (a *App) newBotAPI() (*tgbotapi.BotAPI, error) {
	cfg := a.Config.Telegram
	if cfg.APIEndpoint != "" {
		return tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, cfg.APIEndpoint)
	}
	return tgbotapi.NewBotAPI(cfg.BotToken)
}

func (a *App) newNotifier(botAPI *tgbotapi.BotAPI) (alerting.Notifier, error) {
	if !a.Config.Alerting.Enabled {
		return nil, nil
	}

	var channels []alerting.Notifier
	for _, channel := range a.Config.Alerting.Channels {
		switch channel {
		case "log":
			channels = append(channels, alerting.NewLogNotifier(a.Logger))
		case "telegram":
			if botAPI == nil {
				return nil, errors.New("alerting channel telegram requires telegram.enabled")
			}
			chatID, err := strconv.ParseInt(a.Config.Telegram.ChatID, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse telegram.chat_id: %w", err)
			}
			channels = append(channels, alerting.NewTelegramNotifier(botAPI, chatID, a.Logger))
		}
	}

	switch len(channels) {
	case 0:
		return nil, nil
	case 1:
		return channels[0], nil
	default:
		return alerting.NewMultiNotifier(a.Logger, channels...), nil
	}
}

// Run executes the long-running monitoring service together with its
// optional Telegram and HTTP front ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := a.newEngine()
	priceFetcher := a.newFetcher()
	recorder := metrics.New()

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
		a.Logger.Warn().Msg("alerting disabled; swings are only logged")
	}

	sched := scheduler.New(scheduler.Options{
		Interval:    a.Config.Monitor.PollInterval,
		TickTimeout: a.Config.CycleDeadline(),
	}, a.Logger)

	commands := command.New(engine, priceFetcher, a.Logger)

	var apiServer *api.Server
	if a.Config.API.Enabled {
		apiServer = api.NewServer(api.Options{
			Listen:       a.Config.API.Listen,
			ReadTimeout:  a.Config.API.ReadTimeout,
			WriteTimeout: a.Config.API.WriteTimeout,
		}, commands, engine, a.Logger)
		apiServer.Start()
	}

	var wg sync.WaitGroup
	if botAPI != nil {
		tgBot := bot.New(botAPI, commands, bot.Options{PageSize: a.Config.Telegram.PageSize}, a.Logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			tgBot.Run(ctx)
		}()
	}

	svc := service.New(a.Config, sched, engine, priceFetcher, notifier, recorder, a.Logger)

	a.Logger.Info().
		Int("symbols", engine.Count()).
		Str("provider", a.Config.Market.Provider).
		Dur("poll_interval", a.Config.Monitor.PollInterval).
		Msg("starting monitoring service")

	runErr := svc.Run(ctx)

	shutdownTimeout := a.Config.App.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if apiServer != nil {
		if err := apiServer.Stop(shutdownCtx); err != nil {
			a.Logger.Error().Err(err).Msg("http api shutdown failed")
		}
	}
	wg.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		a.Logger.Error().Err(runErr).Msg("service terminated with error")
		return runErr
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}
