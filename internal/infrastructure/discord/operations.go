package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/iamwavecut/modbot/internal/bot"
)

const maxMessageLength = 2000

// SelfID returns the bot user's ID once the gateway reported ready.
func (c *Client) SelfID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selfID
}

// SendMessage posts text to a channel
func (c *Client) SendMessage(ctx context.Context, channelID, text string) (*bot.Message, error) {
	return c.create(ctx, channelID, "", text)
}

// Reply posts text to a channel as a reply to messageID
func (c *Client) Reply(ctx context.Context, channelID, messageID, text string) (*bot.Message, error) {
	return c.create(ctx, channelID, messageID, text)
}

func (c *Client) create(ctx context.Context, channelID, replyTo, text string) (*bot.Message, error) {
	chID, err := snowflake.Parse(channelID)
	if err != nil {
		return nil, fmt.Errorf("parse channel id %q: %w", channelID, err)
	}
	create := discord.MessageCreate{
		Content:         truncate(text, maxMessageLength),
		AllowedMentions: &discord.AllowedMentions{},
	}
	if replyTo != "" {
		msgID, err := snowflake.Parse(replyTo)
		if err != nil {
			return nil, fmt.Errorf("parse message id %q: %w", replyTo, err)
		}
		create.MessageReference = &discord.MessageReference{MessageID: &msgID, ChannelID: &chID}
	}
	msg, err := c.client.Rest().CreateMessage(chID, create, rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return toMessage(*msg, nil), nil
}

// DeleteMessage deletes a message from a channel
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	chID, msgID, err := parsePair(channelID, messageID)
	if err != nil {
		return bot.ErrMessageNotFound
	}
	if err := c.client.Rest().DeleteMessage(chID, msgID, rest.WithCtx(ctx)); err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return bot.ErrMessageNotFound
		}
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// FetchMessage loads a message by channel and ID
func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (*bot.Message, error) {
	chID, msgID, err := parsePair(channelID, messageID)
	if err != nil {
		return nil, bot.ErrMessageNotFound
	}
	msg, err := c.client.Rest().GetMessage(chID, msgID, rest.WithCtx(ctx))
	if err != nil {
		if hasStatus(err, http.StatusNotFound, http.StatusForbidden) {
			return nil, bot.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	return toMessage(*msg, nil), nil
}

// ResolveMessage walks guild, channel and message in turn so the caller learns which one is missing.
func (c *Client) ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*bot.Message, error) {
	gID, err := snowflake.Parse(guildID)
	if err != nil {
		return nil, bot.ErrGuildNotFound
	}
	if _, err := c.client.Rest().GetGuild(gID, false, rest.WithCtx(ctx)); err != nil {
		if hasStatus(err, http.StatusNotFound, http.StatusForbidden) {
			return nil, bot.ErrGuildNotFound
		}
		return nil, fmt.Errorf("failed to get guild: %w", err)
	}

	chID, err := snowflake.Parse(channelID)
	if err != nil {
		return nil, bot.ErrChannelNotFound
	}
	ch, err := c.client.Rest().GetChannel(chID, rest.WithCtx(ctx))
	if err != nil {
		if hasStatus(err, http.StatusNotFound, http.StatusForbidden) {
			return nil, bot.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	if gc, ok := ch.(discord.GuildChannel); !ok || gc.GuildID() != gID {
		return nil, bot.ErrChannelNotFound
	}

	msg, err := c.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}
	// REST message objects omit guild_id.
	if msg.GuildID == "" {
		msg.GuildID = guildID
	}
	return msg, nil
}

func parsePair(channelID, messageID string) (snowflake.ID, snowflake.ID, error) {
	chID, err := snowflake.Parse(channelID)
	if err != nil {
		return 0, 0, err
	}
	msgID, err := snowflake.Parse(messageID)
	if err != nil {
		return 0, 0, err
	}
	return chID, msgID, nil
}

func hasStatus(err error, codes ...int) bool {
	var restErr *rest.Error
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return false
	}
	for _, code := range codes {
		if restErr.Response.StatusCode == code {
			return true
		}
	}
	return false
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
