package db

import (
	"context"
)

// Client is the correlation store. Writes return only after they are durable.
type Client interface {
	// CreateRecord inserts the message or refreshes its content, keeping its counters.
	CreateRecord(ctx context.Context, msg *FlaggedMessage) error
	// GetRecord returns nil without error when the message is unknown.
	GetRecord(ctx context.Context, messageID string) (*FlaggedMessage, error)

	// AppendReport atomically allocates the next sequence number and stores the report under it.
	AppendReport(ctx context.Context, messageID string, report *ReviewerReport) (int, error)
	// GetReports returns reports ordered by sequence; empty for unknown messages.
	GetReports(ctx context.Context, messageID string) ([]*ReviewerReport, error)

	SetPromptMapping(ctx context.Context, promptID, messageID string) error
	ResolvePrompt(ctx context.Context, promptID string) (string, bool, error)
	ClearPrompt(ctx context.Context, promptID string) error

	IncrementNonSevere(ctx context.Context, messageID string) (int, error)
	GetNonSevere(ctx context.Context, messageID string) (int, error)

	// AppendDecision returns false when the actor already recorded the same kind of decision on the forward.
	AppendDecision(ctx context.Context, decision *Decision) (bool, error)
	GetDecisions(ctx context.Context, forwardID string) ([]*Decision, error)

	Ping(ctx context.Context) error
	Close() error
}
