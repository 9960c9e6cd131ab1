package storage

import (
	"context"

	"github.com/iudanet/outreach/internal/models"
)

// CompanyStorage defines interface for company persistence.
// Every lookup is scoped to the owning user.
type CompanyStorage interface {
	// CreateCompany creates a new company and fills company.ID
	// Returns ErrCompanyAlreadyExists if email is taken
	CreateCompany(ctx context.Context, company *models.Company) error

	// GetCompany retrieves company owned by userID
	// Returns ErrCompanyNotFound if company doesn't exist or belongs to another user
	GetCompany(ctx context.Context, userID, companyID int64) (*models.Company, error)

	// UpdateCompany updates hr_name, email and company_name
	// Returns ErrCompanyNotFound or ErrCompanyAlreadyExists
	UpdateCompany(ctx context.Context, company *models.Company) error

	// DeleteCompany deletes company owned by userID
	// Returns ErrCompanyNotFound if nothing was deleted
	DeleteCompany(ctx context.Context, userID, companyID int64) error

	// CountCompanies returns number of companies owned by userID
	CountCompanies(ctx context.Context, userID int64) (int64, error)

	// ListCompanies returns a page of companies ordered by id with successful mail counts
	ListCompanies(ctx context.Context, userID int64, offset, limit int) ([]models.CompanySummary, error)
}
