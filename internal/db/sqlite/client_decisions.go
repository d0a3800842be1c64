package sqlite

import (
	"context"
	"fmt"

	"github.com/iamwavecut/modbot/internal/db"
)

func (s *sqliteClient) AppendDecision(ctx context.Context, decision *db.Decision) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.db.NamedExecContext(ctx, `
		INSERT INTO decisions (id, forward_id, message_id, kind, actor_id, actor_name, decided_at)
		VALUES (:id, :forward_id, :message_id, :kind, :actor_id, :actor_name, :decided_at)
		ON CONFLICT(forward_id, actor_id, kind) DO NOTHING
	`, decision)
	if err != nil {
		return false, fmt.Errorf("failed to append decision on %s: %w", decision.ForwardID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (s *sqliteClient) GetDecisions(ctx context.Context, forwardID string) ([]*db.Decision, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var decisions []*db.Decision
	err := s.db.SelectContext(ctx, &decisions, `
		SELECT id, forward_id, message_id, kind, actor_id, actor_name, decided_at
		FROM decisions
		WHERE forward_id = ?
		ORDER BY decided_at ASC, rowid ASC
	`, forwardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decisions for %s: %w", forwardID, err)
	}
	return decisions, nil
}
