package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/outreach/internal/models"
	"github.com/iudanet/outreach/internal/server/storage"
)

// CreateCompany creates a new company
func (s *Storage) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.CreatedAt.IsZero() {
		company.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO companies (user_id, hr_name, email, company_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, s.rebind(query),
		company.UserID,
		company.HRName,
		company.Email,
		company.CompanyName,
		company.CreatedAt,
	).Scan(&company.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrCompanyAlreadyExists
		}
		return fmt.Errorf("failed to insert company: %w", err)
	}

	return nil
}

// GetCompany retrieves company owned by userID
func (s *Storage) GetCompany(ctx context.Context, userID, companyID int64) (*models.Company, error) {
	query := `
		SELECT id, user_id, hr_name, email, company_name, created_at
		FROM companies
		WHERE id = ? AND user_id = ?
	`

	company := &models.Company{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), companyID, userID).Scan(
		&company.ID,
		&company.UserID,
		&company.HRName,
		&company.Email,
		&company.CompanyName,
		&company.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return company, nil
}

// UpdateCompany updates company owned by company.UserID
func (s *Storage) UpdateCompany(ctx context.Context, company *models.Company) error {
	query := `
		UPDATE companies
		SET hr_name = ?, email = ?, company_name = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := s.db.ExecContext(ctx, s.rebind(query),
		company.HRName,
		company.Email,
		company.CompanyName,
		company.ID,
		company.UserID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrCompanyAlreadyExists
		}
		return fmt.Errorf("failed to update company: %w", err)
	}

	return expectAffected(result, storage.ErrCompanyNotFound)
}

// DeleteCompany deletes company owned by userID. Журнал отправок не удаляется.
func (s *Storage) DeleteCompany(ctx context.Context, userID, companyID int64) error {
	query := `DELETE FROM companies WHERE id = ? AND user_id = ?`

	result, err := s.db.ExecContext(ctx, s.rebind(query), companyID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	return expectAffected(result, storage.ErrCompanyNotFound)
}

// CountCompanies returns number of companies owned by userID
func (s *Storage) CountCompanies(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM companies WHERE user_id = ?`

	var count int64
	if err := s.db.QueryRowContext(ctx, s.rebind(query), userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}

	return count, nil
}

// ListCompanies returns a page of companies with the number of successful mails
func (s *Storage) ListCompanies(ctx context.Context, userID int64, offset, limit int) ([]models.CompanySummary, error) {
	if limit <= 0 {
		return []models.CompanySummary{}, nil
	}

	query := `
		SELECT c.id, c.user_id, c.hr_name, c.email, c.company_name, c.created_at, u.name,
		       (SELECT COUNT(*) FROM sent_mail_logs l WHERE l.company_id = c.id AND l.succeeded) AS mails_sent
		FROM companies c
		JOIN users u ON u.id = c.user_id
		WHERE c.user_id = ?
		ORDER BY c.id
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	companies := make([]models.CompanySummary, 0, limit)
	for rows.Next() {
		var c models.CompanySummary
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.HRName,
			&c.Email,
			&c.CompanyName,
			&c.CreatedAt,
			&c.OwnerName,
			&c.MailsSent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return companies, nil
}
