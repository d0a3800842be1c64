package report

import (
	"fmt"
	"regexp"

	"github.com/iamwavecut/modbot/internal/errors"
)

var messageLinkPattern = regexp.MustCompile(`(?:^|/)(\d+)/(\d+)/(\d+)/?$`)

// MessageLink is the guild/channel/message triple at the tail of a message link.
type MessageLink struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// ParseMessageLink accepts a full message URL or a bare guild/channel/message path.
func ParseMessageLink(text string) (MessageLink, error) {
	m := messageLinkPattern.FindStringSubmatch(text)
	if m == nil {
		return MessageLink{}, fmt.Errorf("parse message link %q: %w", text, errors.ErrUserInput)
	}
	return MessageLink{GuildID: m[1], ChannelID: m[2], MessageID: m[3]}, nil
}
