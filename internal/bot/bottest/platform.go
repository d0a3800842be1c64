// Package bottest provides an in-memory chat platform for handler tests.
package bottest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/iamwavecut/modbot/internal/bot"
)

type Sent struct {
	ID        string
	ChannelID string
	ReplyTo   string
	Text      string
}

type Platform struct {
	mu       sync.Mutex
	self     string
	nextID   int
	guilds   map[string]bool
	channels map[string]string
	messages map[string]*bot.Message
	sent     []Sent
	deleted  []string
	// FailSend makes every outbound message fail with this error.
	FailSend error
}

func NewPlatform(selfID string) *Platform {
	return &Platform{
		self:     selfID,
		nextID:   9000,
		guilds:   make(map[string]bool),
		channels: make(map[string]string),
		messages: make(map[string]*bot.Message),
	}
}

func (p *Platform) AddChannel(guildID, channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guilds[guildID] = true
	p.channels[channelID] = guildID
}

func (p *Platform) AddMessage(m *bot.Message) *bot.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cp := *m
	p.messages[m.ID] = &cp
	return m
}

func (p *Platform) SelfID() string {
	return p.self
}

func (p *Platform) SendMessage(ctx context.Context, channelID, text string) (*bot.Message, error) {
	return p.send(channelID, "", text)
}

func (p *Platform) Reply(ctx context.Context, channelID, messageID, text string) (*bot.Message, error) {
	return p.send(channelID, messageID, text)
}

func (p *Platform) send(channelID, replyTo, text string) (*bot.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailSend != nil {
		return nil, p.FailSend
	}
	p.nextID++
	id := strconv.Itoa(p.nextID)
	m := &bot.Message{
		ID:          id,
		ChannelID:   channelID,
		GuildID:     p.channels[channelID],
		AuthorID:    p.self,
		AuthorName:  "modbot",
		AuthorIsBot: true,
		Content:     text,
		ReferenceID: replyTo,
		CreatedAt:   time.Now(),
	}
	cp := *m
	p.messages[id] = &cp
	p.sent = append(p.sent, Sent{ID: id, ChannelID: channelID, ReplyTo: replyTo, Text: text})
	return m, nil
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.messages[messageID]; !ok {
		return bot.ErrMessageNotFound
	}
	delete(p.messages, messageID)
	p.deleted = append(p.deleted, messageID)
	return nil
}

func (p *Platform) FetchMessage(ctx context.Context, channelID, messageID string) (*bot.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.messages[messageID]
	if !ok || m.ChannelID != channelID {
		return nil, bot.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (p *Platform) ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*bot.Message, error) {
	p.mu.Lock()
	if !p.guilds[guildID] {
		p.mu.Unlock()
		return nil, bot.ErrGuildNotFound
	}
	if p.channels[channelID] != guildID {
		p.mu.Unlock()
		return nil, bot.ErrChannelNotFound
	}
	p.mu.Unlock()
	return p.FetchMessage(ctx, channelID, messageID)
}

// Sent returns a copy of every outbound message in send order.
func (p *Platform) Sent() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sent(nil), p.sent...)
}

// SentTo returns outbound messages posted in channelID.
func (p *Platform) SentTo(channelID string) []Sent {
	var out []Sent
	for _, s := range p.Sent() {
		if s.ChannelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

func (p *Platform) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.deleted...)
}
