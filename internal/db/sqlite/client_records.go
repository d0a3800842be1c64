package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/modbot/internal/db"
)

func (s *sqliteClient) CreateRecord(ctx context.Context, msg *db.FlaggedMessage) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO flagged_messages (id, guild_id, channel_id, author_name, content, created_at)
		VALUES (:id, :guild_id, :channel_id, :author_name, :content, :created_at)
		ON CONFLICT(id) DO UPDATE SET
			guild_id = excluded.guild_id,
			channel_id = excluded.channel_id,
			author_name = excluded.author_name,
			content = excluded.content
	`
	if _, err := s.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("failed to upsert flagged message %s: %w", msg.ID, err)
	}
	return nil
}

func (s *sqliteClient) GetRecord(ctx context.Context, messageID string) (*db.FlaggedMessage, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	msg := &db.FlaggedMessage{}
	err := s.db.GetContext(ctx, msg, `
		SELECT id, guild_id, channel_id, author_name, content, non_severe_count, report_count, created_at
		FROM flagged_messages WHERE id = ?
	`, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get flagged message %s: %w", messageID, err)
	}
	return msg, nil
}

func (s *sqliteClient) IncrementNonSevere(ctx context.Context, messageID string) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var count int
	err := s.db.GetContext(ctx, &count, `
		INSERT INTO flagged_messages (id, non_severe_count, created_at)
		VALUES (?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET non_severe_count = non_severe_count + 1
		RETURNING non_severe_count
	`, messageID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to increment non-severe count for %s: %w", messageID, err)
	}
	return count, nil
}

func (s *sqliteClient) GetNonSevere(ctx context.Context, messageID string) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int
	err := s.db.GetContext(ctx, &count, `SELECT non_severe_count FROM flagged_messages WHERE id = ?`, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get non-severe count for %s: %w", messageID, err)
	}
	return count, nil
}
