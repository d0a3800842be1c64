package db

import (
	"time"
)

type (
	// FlaggedMessage is a channel message that was forwarded to moderators at least once
	// or accumulated non-severe reports.
	FlaggedMessage struct {
		ID             string    `db:"id"`
		GuildID        string    `db:"guild_id"`
		ChannelID      string    `db:"channel_id"`
		AuthorName     string    `db:"author_name"`
		Content        string    `db:"content"`
		NonSevereCount int       `db:"non_severe_count"`
		ReportCount    int       `db:"report_count"`
		CreatedAt      time.Time `db:"created_at"`
	}

	// ReviewerReport is a moderator-authored review attached to a flagged message.
	// Seq is 1-indexed and dense per message.
	ReviewerReport struct {
		MessageID   string    `db:"message_id" json:"message_id"`
		Seq         int       `db:"seq" json:"seq"`
		Author      string    `db:"author" json:"author"`
		Timestamp   time.Time `db:"timestamp" json:"timestamp"`
		Description string    `db:"description" json:"description"`
	}

	// EscalationPrompt correlates a bot message asking for a reviewer report
	// with the flagged message it is about.
	EscalationPrompt struct {
		ID        string    `db:"id"`
		MessageID string    `db:"message_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	// Decision is one moderator reaction on a forwarded message.
	Decision struct {
		ID        string       `db:"id" json:"id"`
		ForwardID string       `db:"forward_id" json:"forward_id"`
		MessageID string       `db:"message_id" json:"message_id"`
		Kind      DecisionKind `db:"kind" json:"kind"`
		ActorID   string       `db:"actor_id" json:"actor_id"`
		ActorName string       `db:"actor_name" json:"actor_name"`
		DecidedAt time.Time    `db:"decided_at" json:"decided_at"`
	}

	DecisionKind string
)

const (
	DecisionConfirm      DecisionKind = "confirm"
	DecisionInsufficient DecisionKind = "insufficient"
	DecisionDelete       DecisionKind = "delete"
)

// ReviewerTimeLayout is how reviewer report timestamps are rendered in forwards.
const ReviewerTimeLayout = "01/02/2006, 15:04:05"
