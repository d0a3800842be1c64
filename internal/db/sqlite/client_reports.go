package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/modbot/internal/db"
)

func (s *sqliteClient) AppendReport(ctx context.Context, messageID string, report *db.ReviewerReport) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int
	err = tx.GetContext(ctx, &seq, `
		INSERT INTO flagged_messages (id, report_count, created_at)
		VALUES (?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET report_count = report_count + 1
		RETURNING report_count
	`, messageID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to allocate report slot for %s: %w", messageID, err)
	}

	report.MessageID = messageID
	report.Seq = seq
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO reviewer_reports (message_id, seq, author, timestamp, description)
		VALUES (:message_id, :seq, :author, :timestamp, :description)
	`, report); err != nil {
		return 0, fmt.Errorf("failed to insert reviewer report for %s: %w", messageID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reviewer report for %s: %w", messageID, err)
	}
	return seq, nil
}

func (s *sqliteClient) GetReports(ctx context.Context, messageID string) ([]*db.ReviewerReport, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var reports []*db.ReviewerReport
	err := s.db.SelectContext(ctx, &reports, `
		SELECT message_id, seq, author, timestamp, description
		FROM reviewer_reports
		WHERE message_id = ?
		ORDER BY seq ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviewer reports for %s: %w", messageID, err)
	}
	return reports, nil
}

func (s *sqliteClient) SetPromptMapping(ctx context.Context, promptID, messageID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escalation_prompts (id, message_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET message_id = excluded.message_id
	`, promptID, messageID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to map prompt %s: %w", promptID, err)
	}
	return nil
}

func (s *sqliteClient) ResolvePrompt(ctx context.Context, promptID string) (string, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var messageID string
	err := s.db.GetContext(ctx, &messageID, `SELECT message_id FROM escalation_prompts WHERE id = ?`, promptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to resolve prompt %s: %w", promptID, err)
	}
	return messageID, true, nil
}

func (s *sqliteClient) ClearPrompt(ctx context.Context, promptID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM escalation_prompts WHERE id = ?`, promptID); err != nil {
		return fmt.Errorf("failed to clear prompt %s: %w", promptID, err)
	}
	return nil
}
