// Package discord connects the moderation core to Discord through disgo.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/disgoorg/disgo"
	disgobot "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/modbot/internal/bot"
)

// Dispatcher receives translated platform events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev *bot.Event)
}

// Client owns the gateway connection and implements bot.Platform on top of the REST API.
type Client struct {
	client     disgobot.Client
	routes     *bot.Routes
	group      string
	logger     *log.Entry
	mu         sync.RWMutex
	selfID     string
	ctx        context.Context
	dispatcher Dispatcher
}

// NewClient prepares a disgo client. The group picks the group-{n} channel pair and is derived
// from the bot's username when empty.
func NewClient(token, group string, routes *bot.Routes) (*Client, error) {
	c := &Client{
		routes: routes,
		group:  group,
		logger: log.WithField("object", "discord"),
		ctx:    context.Background(),
	}
	client, err := disgo.New(token,
		disgobot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentDirectMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentMessageContent,
			),
		),
		disgobot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds|cache.FlagChannels|cache.FlagMessages),
		),
		disgobot.WithEventListeners(&events.ListenerAdapter{
			OnReady:                   c.onReady,
			OnGuildJoin:               c.onGuildJoin,
			OnMessageCreate:           c.onMessageCreate,
			OnMessageUpdate:           c.onMessageUpdate,
			OnGuildMessageReactionAdd: c.onReactionAdd,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create discord client: %w", err)
	}
	c.client = client
	return c, nil
}

// SetDispatcher must be called before Start.
func (c *Client) SetDispatcher(d Dispatcher) {
	c.dispatcher = d
}

// Start opens the gateway. Events are handled with ctx until Stop.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.logger.Info("opening gateway")
	return c.client.OpenGateway(ctx)
}

func (c *Client) Stop(ctx context.Context) error {
	c.logger.Info("closing gateway")
	c.client.Close(ctx)
	return nil
}

func (c *Client) eventContext() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx
}

func (c *Client) dispatch(ev *bot.Event) {
	if c.dispatcher == nil {
		return
	}
	c.dispatcher.Dispatch(c.eventContext(), ev)
}

func (c *Client) onReady(e *events.Ready) {
	c.mu.Lock()
	c.selfID = e.User.ID.String()
	c.mu.Unlock()

	group := c.group
	if group == "" {
		var ok bool
		if group, ok = bot.GroupFromName(e.User.Username); !ok {
			c.logger.WithField("username", e.User.Username).Error("cant derive group from bot name, set MB_GROUP")
			return
		}
	}
	c.mu.Lock()
	c.group = group
	c.mu.Unlock()

	c.logger.WithFields(log.Fields{"user": e.User.Username, "group": group, "guilds": len(e.Guilds)}).Info("gateway ready")
	for _, g := range e.Guilds {
		c.syncGuild(c.eventContext(), g.ID)
	}
}

func (c *Client) onGuildJoin(e *events.GuildJoin) {
	c.syncGuild(c.eventContext(), e.GuildID)
}

// syncGuild looks up the group's main and moderation channels in a guild and registers them.
func (c *Client) syncGuild(ctx context.Context, guildID snowflake.ID) {
	c.mu.RLock()
	group := c.group
	c.mu.RUnlock()
	if group == "" {
		return
	}
	entry := c.logger.WithFields(log.Fields{"method": "syncGuild", "guild_id": guildID})

	channels, err := c.client.Rest().GetGuildChannels(guildID, rest.WithCtx(ctx))
	if err != nil {
		entry.WithError(err).Error("cant list guild channels")
		return
	}
	mainName, modName := bot.ChannelNames(group)
	route := bot.GuildRoute{GuildID: guildID.String()}
	for _, ch := range channels {
		if ch.Type() != discord.ChannelTypeGuildText {
			continue
		}
		switch ch.Name() {
		case mainName:
			route.MainChannelID = ch.ID().String()
		case modName:
			route.ModChannelID = ch.ID().String()
		}
	}
	if route.MainChannelID == "" || route.ModChannelID == "" {
		entry.WithFields(log.Fields{"main": mainName, "mod": modName}).Warn("group channels missing in guild")
	}
	c.routes.Set(route)
	entry.WithFields(log.Fields{"main": route.MainChannelID, "mod": route.ModChannelID}).Debug("guild routed")
}

func (c *Client) onMessageCreate(e *events.MessageCreate) {
	c.dispatch(bot.NewMessageEvent(toMessage(e.Message, e.GuildID)))
}

func (c *Client) onMessageUpdate(e *events.MessageUpdate) {
	var before *bot.Message
	if e.OldMessage.ID != 0 {
		before = toMessage(e.OldMessage, e.GuildID)
	}
	c.dispatch(bot.NewEditEvent(before, toMessage(e.Message, e.GuildID)))
}

func (c *Client) onReactionAdd(e *events.GuildMessageReactionAdd) {
	emoji := ""
	if e.Emoji.Name != nil {
		emoji = *e.Emoji.Name
	}
	c.dispatch(bot.NewReactionEvent(&bot.Reaction{
		GuildID:   e.GuildID.String(),
		ChannelID: e.ChannelID.String(),
		MessageID: e.MessageID.String(),
		UserID:    e.UserID.String(),
		UserName:  e.Member.User.Username,
		Emoji:     emoji,
	}))
}

func toMessage(m discord.Message, guildID *snowflake.ID) *bot.Message {
	msg := &bot.Message{
		ID:          m.ID.String(),
		ChannelID:   m.ChannelID.String(),
		AuthorID:    m.Author.ID.String(),
		AuthorName:  m.Author.Username,
		AuthorIsBot: m.Author.Bot,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
	if m.GuildID != nil {
		guildID = m.GuildID
	}
	if guildID != nil {
		msg.GuildID = guildID.String()
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != nil {
		msg.ReferenceID = m.MessageReference.MessageID.String()
	}
	return msg
}
