// Package discord provides Discord bot integration
package discord

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gmsas95/ledgerbot/internal/channels"
	"github.com/gmsas95/ledgerbot/internal/commands"
	"go.uber.org/zap"
)

// maxMessageLen is Discord's content limit
const maxMessageLen = 2000

// Config holds Discord bot configuration
type Config struct {
	Token    string
	Enabled  bool
	GuildID  string   // Optional: restrict to specific server
	Channels []string // Optional: whitelist channels
	AllowDM  bool     // Allow direct messages
}

// Bot represents a Discord bot instance
type Bot struct {
	session *discordgo.Session
	handler channels.Handler
	config  Config
	logger  *zap.Logger
}

// NewBot creates a new Discord bot
func NewBot(cfg Config, handler channels.Handler, logger *zap.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		handler: handler,
		config:  cfg,
		logger:  logger,
	}

	session.AddHandler(bot.messageCreate)
	session.AddHandler(bot.ready)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	return bot, nil
}

// Start starts the Discord bot
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	b.logger.Info("Discord bot started", zap.String("username", b.session.State.User.Username))
	return nil
}

// Stop stops the Discord bot
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) ready(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("Discord bot ready",
		zap.String("username", s.State.User.Username),
		zap.Int("guilds", len(event.Guilds)),
	)
}

func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	msg, ok := b.toMessage(s.State.User.ID, m)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), channels.DefaultTimeout)
	defer cancel()

	reply := b.handler.Handle(ctx, msg)
	if reply.Silent {
		return
	}
	for _, part := range channels.Split(channels.DoubleBold(reply.Text), maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, part); err != nil {
			b.logger.Error("Failed to send reply", zap.String("channel", m.ChannelID), zap.Error(err))
			return
		}
	}
}

// toMessage filters and converts a Discord message. In guild channels the bot
// reads every message of whitelisted channels, elsewhere only mentions.
func (b *Bot) toMessage(selfID string, m *discordgo.MessageCreate) (commands.Message, bool) {
	if m.Author == nil || m.Author.ID == selfID || m.Author.Bot {
		return commands.Message{}, false
	}

	isDM := m.GuildID == ""
	if isDM && !b.config.AllowDM {
		return commands.Message{}, false
	}
	if !isDM && b.config.GuildID != "" && m.GuildID != b.config.GuildID {
		return commands.Message{}, false
	}

	listed := slices.Contains(b.config.Channels, m.ChannelID)
	if len(b.config.Channels) > 0 && !listed && !isDM {
		return commands.Message{}, false
	}

	mentioned := false
	for _, mention := range m.Mentions {
		if mention.ID == selfID {
			mentioned = true
			break
		}
	}
	if !isDM && !listed && !mentioned {
		return commands.Message{}, false
	}

	content := m.Content
	if mentioned {
		content = strings.ReplaceAll(content, "<@"+selfID+">", "")
		content = strings.ReplaceAll(content, "<@!"+selfID+">", "")
	}
	content = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(content), "/"))
	if content == "" {
		return commands.Message{}, false
	}

	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}

	return commands.Message{
		ID:       m.ID,
		Channel:  "discord:" + m.ChannelID,
		UserID:   m.Author.ID,
		UserName: name,
		Text:     content,
		Source:   "discord",
	}, true
}
