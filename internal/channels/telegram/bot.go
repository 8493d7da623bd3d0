// Package telegram connects a Telegram bot to the ledger router
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gmsas95/ledgerbot/internal/channels"
	"github.com/gmsas95/ledgerbot/internal/commands"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxMessageLen is Telegram's limit for one text message
const maxMessageLen = 4096

// Bot represents a Telegram bot integration
type Bot struct {
	api       *tgbotapi.BotAPI
	handler   channels.Handler
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	enabled   bool
	allowList map[int64]bool // Allowed user IDs
}

// Config holds Telegram bot configuration
type Config struct {
	Token     string
	Enabled   bool
	AllowList []int64 // List of allowed user IDs (empty = allow all)
}

// NewBot creates a new Telegram bot
func NewBot(cfg Config, handler channels.Handler, logger *zap.Logger) (*Bot, error) {
	if !cfg.Enabled || cfg.Token == "" {
		return &Bot{enabled: false}, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false
	logger.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))

	ctx, cancel := context.WithCancel(context.Background())

	allowList := make(map[int64]bool)
	for _, id := range cfg.AllowList {
		allowList[id] = true
	}

	return &Bot{
		api:       api,
		handler:   handler,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		allowList: allowList,
	}, nil
}

// Start starts the bot
func (b *Bot) Start() error {
	if !b.enabled {
		return nil
	}

	b.wg.Add(1)
	go b.run()

	return nil
}

// Stop stops the bot
func (b *Bot) Stop() {
	if !b.enabled {
		return
	}

	b.api.StopReceivingUpdates()
	b.cancel()
	b.wg.Wait()
}

func (b *Bot) run() {
	defer b.wg.Done()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := b.handleUpdate(update); err != nil {
				b.logger.Error("Failed to handle update", zap.Error(err))
			}
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) error {
	msg, ok := toMessage(update)
	if !ok {
		return nil
	}

	userID := update.Message.From.ID
	if len(b.allowList) > 0 && !b.allowList[userID] {
		b.logger.Debug("Ignoring message from user outside the allow list", zap.Int64("user_id", userID))
		return nil
	}

	ctx, cancel := context.WithTimeout(b.ctx, channels.DefaultTimeout)
	defer cancel()

	reply := b.handler.Handle(ctx, msg)
	if reply.Silent {
		return nil
	}
	return b.send(update.Message.Chat.ID, reply.Text)
}

// toMessage converts an update into a router message. Slash commands become
// their plain-text form, so "/status march" reads as "status march".
func toMessage(update tgbotapi.Update) (commands.Message, bool) {
	m := update.Message
	if m == nil || m.From == nil || m.From.IsBot || m.Text == "" {
		return commands.Message{}, false
	}

	text := m.Text
	if m.IsCommand() {
		cmd := m.Command()
		if cmd == "start" {
			cmd = "help"
		}
		text = strings.TrimSpace(strings.ReplaceAll(cmd, "_", " ") + " " + m.CommandArguments())
	}

	name := strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)
	if name == "" {
		name = m.From.UserName
	}

	return commands.Message{
		ID:       fmt.Sprintf("%d:%d", m.Chat.ID, m.MessageID),
		Channel:  "telegram:" + strconv.FormatInt(m.Chat.ID, 10),
		UserID:   strconv.FormatInt(m.From.ID, 10),
		UserName: name,
		Text:     text,
		Source:   "telegram",
	}, true
}

func (b *Bot) send(chatID int64, text string) error {
	for _, part := range channels.Split(text, maxMessageLen) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := b.api.Send(msg); err != nil {
			// unbalanced markdown in user text makes Telegram reject the message
			msg.ParseMode = ""
			if _, err := b.api.Send(msg); err != nil {
				return fmt.Errorf("failed to send message: %w", err)
			}
		}
	}
	return nil
}
