package bot

import (
	"context"
	"fmt"

	"github.com/iamwavecut/modbot/internal/db"
	"github.com/iamwavecut/modbot/internal/errors"
)

var (
	ErrGuildNotFound   = fmt.Errorf("guild not found: %w", errors.ErrResolution)
	ErrChannelNotFound = fmt.Errorf("channel not found: %w", errors.ErrResolution)
	ErrMessageNotFound = fmt.Errorf("message not found: %w", errors.ErrResolution)
)

// Platform is the outbound surface of the chat platform.
type Platform interface {
	SelfID() string
	SendMessage(ctx context.Context, channelID, text string) (*Message, error)
	Reply(ctx context.Context, channelID, messageID, text string) (*Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	// ResolveMessage locates a message by its full link coordinates and reports
	// ErrGuildNotFound, ErrChannelNotFound or ErrMessageNotFound for the first missing part.
	ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*Message, error)
}

// ServicePlatform defines platform-specific operations
type ServicePlatform interface {
	GetPlatform() Platform
}

// ServiceDB defines database-specific operations
type ServiceDB interface {
	GetDB() db.Client
}

// Service defines the core bot service interface
type Service interface {
	ServicePlatform
	ServiceDB
	GetRoutes() *Routes
}

// Handler defines the interface for all event handlers in the system
type Handler interface {
	Handle(ctx context.Context, ev *Event) (proceed bool, err error)
}
