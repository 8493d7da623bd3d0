// Package app wires configuration into a running bot: ledger backend,
// conversation state, router, channels and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gmsas95/ledgerbot/internal/api"
	"github.com/gmsas95/ledgerbot/internal/bills"
	"github.com/gmsas95/ledgerbot/internal/channels/discord"
	"github.com/gmsas95/ledgerbot/internal/channels/slack"
	"github.com/gmsas95/ledgerbot/internal/channels/telegram"
	"github.com/gmsas95/ledgerbot/internal/commands"
	"github.com/gmsas95/ledgerbot/internal/config"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	"github.com/gmsas95/ledgerbot/internal/ledger/sheets"
	"github.com/gmsas95/ledgerbot/internal/ledger/sqlite"
	"github.com/gmsas95/ledgerbot/internal/metrics"
	"github.com/gmsas95/ledgerbot/internal/state"
	"github.com/gmsas95/ledgerbot/internal/taxonomy"
	"go.uber.org/zap"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Router  *commands.Router
	Metrics *metrics.Metrics
	Version string

	cancel  context.CancelFunc
	closers []io.Closer
}

// New opens the configured backends and builds the router. A sheets backend
// that cannot connect does not fail startup: store commands then answer
// "cannot connect" until the process is restarted with working credentials.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Version: version,
		cancel:  cancel,
	}

	store, source, err := app.openLedger(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	kv, err := openState(cfg.State)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	app.closers = append(app.closers, kv)

	classifier, err := taxonomy.NewClassifier(cfg.Taxonomy.Path, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	if cfg.Taxonomy.Watch && cfg.Taxonomy.Path != "" {
		if err := classifier.Watch(ctx); err != nil {
			logger.Warn("Taxonomy watch disabled", zap.Error(err))
		}
	}

	fallback, _ := ledger.ParsePerson(cfg.Household.DefaultPerson)

	app.Router = commands.NewRouter(commands.Options{
		Store:         store,
		Bills:         source,
		Classifier:    classifier,
		State:         kv,
		Senders:       commands.NewResolver(cfg.Household.Users, fallback),
		Funds:         fundOptions(cfg.Funds),
		Budgets:       cfg.Budgets,
		Picker:        commands.NewRandPicker(uint64(time.Now().UnixNano())),
		DedupCapacity: cfg.State.DedupCapacity,
		Logger:        logger,
		Metrics:       app.Metrics,
	})

	return app, nil
}

func (app *App) openLedger(ctx context.Context) (ledger.Store, bills.Source, error) {
	cfg := app.Config
	configured := configBills(cfg.Bills)

	switch cfg.Storage.Backend {
	case "memory":
		app.Logger.Info("Using in-memory ledger")
		return ledger.NewMemoryStore(), configured, nil

	case "sqlite":
		st, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
		}
		app.closers = append(app.closers, st)
		if len(configured) > 0 {
			if err := st.SeedBills(ctx, configured); err != nil {
				return nil, nil, fmt.Errorf("failed to seed fixed bills: %w", err)
			}
		}
		app.Logger.Info("Using sqlite ledger", zap.String("path", cfg.Storage.SQLitePath))
		return st, st, nil

	default:
		loc, err := cfg.Location()
		if err != nil {
			return nil, nil, err
		}
		creds, err := credentials(cfg.Storage.Credentials)
		if err == nil {
			var st *sheets.Store
			st, err = sheets.New(ctx, sheets.Config{
				SpreadsheetID:     cfg.Storage.SheetID,
				Credentials:       creds,
				Tab:               cfg.Storage.TransactionTab,
				BillsTab:          cfg.Storage.BillsTab,
				RequestsPerMinute: cfg.Storage.RequestsPerMinute,
				Location:          loc,
			}, app.Logger)
			if err == nil {
				app.Logger.Info("Using Google Sheets ledger", zap.String("sheet", cfg.Storage.SheetID))
				return st, st.Bills(), nil
			}
		}
		app.Logger.Error("Google Sheets ledger unavailable", zap.Error(err))
		return ledger.Unavailable{Reason: err}, configured, nil
	}
}

// credentials accepts the service-account JSON inline or as a file path
func credentials(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("google credentials are not configured")
	}
	if strings.HasPrefix(value, "{") {
		return []byte(value), nil
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("failed to read google credentials: %w", err)
	}
	return data, nil
}

func openState(cfg config.StateConfig) (state.Store, error) {
	if cfg.Backend == "badger" {
		return state.NewBadger()
	}
	return state.NewMemory(), nil
}

func configBills(in []config.BillConfig) bills.Static {
	out := make(bills.Static, 0, len(in))
	for _, b := range in {
		out = append(out, bills.Bill{
			Category:      b.Category,
			DefaultAmount: b.Amount,
			Owner:         bills.NormalizeOwner(b.Person),
			AutoInclude:   b.AutoInclude,
		})
	}
	return out
}

func fundOptions(cfg config.FundsConfig) commands.FundOptions {
	opts := commands.FundOptions{
		Default:         cfg.Default,
		Emergency:       cfg.Emergency,
		EmergencyTarget: cfg.EmergencyTarget,
	}
	for _, s := range cfg.Shares {
		opts.Shares = append(opts.Shares, commands.FundShare{Name: s.Name, Percent: s.Percent})
	}
	return opts
}

// Close releases backends in reverse order of opening
func (app *App) Close() {
	app.cancel()
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.Logger.Warn("Close failed", zap.Error(err))
		}
	}
	app.closers = nil
}

// RunServer serves HTTP and every enabled chat channel until SIGINT or SIGTERM
func (app *App) RunServer() {
	cfg := app.Config

	var opts api.Options
	opts.Version = app.Version
	opts.Metrics = app.Metrics.Handler()

	var slackAdapter *slack.Adapter
	if cfg.Slack.Enabled && cfg.Slack.BotToken != "" {
		slackAdapter = slack.NewAdapter(slack.Config{
			BotToken:      cfg.Slack.BotToken,
			SigningSecret: cfg.Slack.SigningSecret,
		}, app.Router, app.Logger)
		opts.Slack = slackAdapter.Events
		if cfg.Slack.SigningSecret == "" {
			app.Logger.Warn("Slack signing secret is empty, requests are not verified")
		}
	}

	var telegramBot *telegram.Bot
	if cfg.Channels.Telegram.Enabled {
		bot, err := telegram.NewBot(telegram.Config{
			Token:     cfg.Channels.Telegram.BotToken,
			Enabled:   true,
			AllowList: cfg.Channels.Telegram.AllowList,
		}, app.Router, app.Logger)
		if err != nil {
			app.Logger.Error("Failed to create Telegram bot", zap.Error(err))
		} else if err := bot.Start(); err != nil {
			app.Logger.Error("Failed to start Telegram bot", zap.Error(err))
		} else {
			telegramBot = bot
		}
	}

	var discordBot *discord.Bot
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		bot, err := discord.NewBot(discord.Config{
			Token:    cfg.Channels.Discord.Token,
			Enabled:  true,
			GuildID:  cfg.Channels.Discord.GuildID,
			Channels: cfg.Channels.Discord.Channels,
			AllowDM:  cfg.Channels.Discord.AllowDM,
		}, app.Router, app.Logger)
		if err != nil {
			app.Logger.Error("Failed to create Discord bot", zap.Error(err))
		} else if err := bot.Start(); err != nil {
			app.Logger.Error("Failed to start Discord bot", zap.Error(err))
		} else {
			discordBot = bot
		}
	}

	server := api.New(cfg, app.Router, opts, app.Logger)
	go func() {
		if err := server.Start(); err != nil {
			app.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	app.Logger.Info("Server started",
		zap.String("address", cfg.Server.Address),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("slack", slackAdapter != nil),
		zap.Bool("telegram", telegramBot != nil),
		zap.Bool("discord", discordBot != nil),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("Shutting down...")

	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown error", zap.Error(err))
	}
	if slackAdapter != nil {
		slackAdapter.Wait()
	}
	if telegramBot != nil {
		telegramBot.Stop()
	}
	if discordBot != nil {
		if err := discordBot.Stop(); err != nil {
			app.Logger.Warn("Discord shutdown error", zap.Error(err))
		}
	}
}
