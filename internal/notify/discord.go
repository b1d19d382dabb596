package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo.Session method we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts notifications into a Discord channel over the REST API.
type Discord struct {
	sess      discordSession
	channelID string
}

// NewDiscord creates a Discord notifier from a bot token.
func NewDiscord(botToken, channelID string) (*Discord, error) {
	if botToken == "" {
		return nil, fmt.Errorf("notify: discord bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("notify: discord channel is required")
	}
	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("notify: create discord session: %w", err)
	}
	return &Discord{sess: dg, channelID: channelID}, nil
}

// Notify implements Notifier.
func (d *Discord) Notify(ctx context.Context, msg Message) error {
	if _, err := d.sess.ChannelMessageSend(d.channelID, formatChat(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("notify: discord send: %w", err)
	}
	return nil
}
