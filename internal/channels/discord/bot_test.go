package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const self = "BOT"

func create(guild, channel, content string, mentions ...*discordgo.User) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		GuildID:   guild,
		ChannelID: channel,
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: "jacob_k"},
		Mentions:  mentions,
	}}
}

func TestToMessage_WhitelistedChannel(t *testing.T) {
	b := &Bot{config: Config{Channels: []string{"finance"}}}

	msg, ok := b.toMessage(self, create("g1", "finance", "gas 150K"))
	require.True(t, ok)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "discord:finance", msg.Channel)
	assert.Equal(t, "jacob_k", msg.UserName)
	assert.Equal(t, "gas 150K", msg.Text)

	_, ok = b.toMessage(self, create("g1", "random", "gas 150K"))
	assert.False(t, ok)
}

func TestToMessage_Mentions(t *testing.T) {
	b := &Bot{}

	_, ok := b.toMessage(self, create("g1", "general", "lunch 12k"))
	assert.False(t, ok)

	msg, ok := b.toMessage(self, create("g1", "general", "<@BOT> lunch 12k", &discordgo.User{ID: self}))
	require.True(t, ok)
	assert.Equal(t, "lunch 12k", msg.Text)

	msg, ok = b.toMessage(self, create("g1", "general", "<@!BOT> /status", &discordgo.User{ID: self}))
	require.True(t, ok)
	assert.Equal(t, "status", msg.Text)
}

func TestToMessage_DirectMessages(t *testing.T) {
	b := &Bot{}
	_, ok := b.toMessage(self, create("", "dm", "list"))
	assert.False(t, ok)

	b.config.AllowDM = true
	_, ok = b.toMessage(self, create("", "dm", "list"))
	assert.True(t, ok)
}

func TestToMessage_IgnoresBots(t *testing.T) {
	b := &Bot{config: Config{Channels: []string{"finance"}}}

	m := create("g1", "finance", "✅ Logged")
	m.Author.ID = self
	_, ok := b.toMessage(self, m)
	assert.False(t, ok)

	m = create("g1", "finance", "hello")
	m.Author.Bot = true
	_, ok = b.toMessage(self, m)
	assert.False(t, ok)
}
