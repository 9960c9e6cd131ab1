package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/outreach/internal/models"
)

// RecordDispatch appends one row to sent_mail_logs
func (s *Storage) RecordDispatch(ctx context.Context, outcome *models.DispatchOutcome) error {
	if outcome.Timestamp.IsZero() {
		outcome.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO sent_mail_logs (user_id, company_id, sent_at, succeeded)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, s.rebind(query),
		outcome.UserID,
		outcome.CompanyID,
		outcome.Timestamp,
		outcome.Succeeded,
	).Scan(&outcome.ID)
	if err != nil {
		return fmt.Errorf("failed to insert mail log: %w", err)
	}

	return nil
}

// ListDispatches returns the latest outcomes of userID, newest first
func (s *Storage) ListDispatches(ctx context.Context, userID int64, limit int) ([]models.DispatchOutcome, error) {
	query := `
		SELECT id, user_id, company_id, sent_at, succeeded
		FROM sent_mail_logs
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query mail logs: %w", err)
	}
	defer rows.Close()

	var outcomes []models.DispatchOutcome
	for rows.Next() {
		var o models.DispatchOutcome
		if err := rows.Scan(&o.ID, &o.UserID, &o.CompanyID, &o.Timestamp, &o.Succeeded); err != nil {
			return nil, fmt.Errorf("failed to scan mail log: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return outcomes, nil
}
