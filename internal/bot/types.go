package bot

import (
	"time"
)

// Message is the platform-neutral view of a chat message.
type Message struct {
	ID          string
	ChannelID   string
	GuildID     string
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	Content     string
	// ReferenceID is the message this one replies to.
	ReferenceID string
	CreatedAt   time.Time
}

func (m *Message) IsDM() bool {
	return m.GuildID == ""
}

func (m *Message) IsReply() bool {
	return m.ReferenceID != ""
}

type Reaction struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	UserName  string
	Emoji     string
}

// MessageEdit carries both versions of an edited message. Before is nil when the old content is unknown.
type MessageEdit struct {
	Before *Message
	After  *Message
}

type EventKind string

const (
	EventMessage  EventKind = "message"
	EventEdit     EventKind = "edit"
	EventReaction EventKind = "reaction"
)

type Event struct {
	Kind     EventKind
	Message  *Message
	Edit     *MessageEdit
	Reaction *Reaction
}

func NewMessageEvent(m *Message) *Event {
	return &Event{Kind: EventMessage, Message: m}
}

func NewEditEvent(before, after *Message) *Event {
	return &Event{Kind: EventEdit, Edit: &MessageEdit{Before: before, After: after}}
}

func NewReactionEvent(r *Reaction) *Event {
	return &Event{Kind: EventReaction, Reaction: r}
}
