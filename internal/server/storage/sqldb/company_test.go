package sqldb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/outreach/internal/models"
	"github.com/iudanet/outreach/internal/server/storage"
)

func createTestCompany(t *testing.T, ctx context.Context, s *Storage, userID int64, email string) *models.Company {
	t.Helper()

	company := &models.Company{
		UserID:      userID,
		HRName:      "HR " + email,
		Email:       email,
		CompanyName: "Company " + email,
	}
	require.NoError(t, s.CreateCompany(ctx, company))
	require.NotZero(t, company.ID)

	return company
}

func TestCompanyStorage_CreateCompany(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestUser(t, ctx, s, "alice@example.com")
	bob := createTestUser(t, ctx, s, "bob@example.com")

	tests := []struct {
		wantError error
		company   *models.Company
		name      string
	}{
		{
			name:    "create company",
			company: &models.Company{UserID: alice.ID, HRName: "Jane", Email: "hr@acme.com", CompanyName: "Acme"},
		},
		{
			name:      "duplicate email for same user",
			company:   &models.Company{UserID: alice.ID, HRName: "John", Email: "hr@acme.com", CompanyName: "Acme 2"},
			wantError: storage.ErrCompanyAlreadyExists,
		},
		{
			name:      "company email is unique across users",
			company:   &models.Company{UserID: bob.ID, HRName: "Jim", Email: "hr@acme.com", CompanyName: "Acme 3"},
			wantError: storage.ErrCompanyAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CreateCompany(ctx, tt.company)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			got, err := s.GetCompany(ctx, tt.company.UserID, tt.company.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.company.HRName, got.HRName)
			assert.Equal(t, tt.company.Email, got.Email)
			assert.Equal(t, tt.company.CompanyName, got.CompanyName)
		})
	}
}

func TestCompanyStorage_GetCompany_Scoped(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestUser(t, ctx, s, "alice@example.com")
	bob := createTestUser(t, ctx, s, "bob@example.com")
	company := createTestCompany(t, ctx, s, alice.ID, "hr@acme.com")

	_, err := s.GetCompany(ctx, bob.ID, company.ID)
	assert.ErrorIs(t, err, storage.ErrCompanyNotFound, "чужая компания не видна")

	_, err = s.GetCompany(ctx, alice.ID, company.ID+100)
	assert.ErrorIs(t, err, storage.ErrCompanyNotFound)
}

func TestCompanyStorage_UpdateCompany(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestUser(t, ctx, s, "alice@example.com")
	bob := createTestUser(t, ctx, s, "bob@example.com")
	company := createTestCompany(t, ctx, s, alice.ID, "hr@acme.com")
	createTestCompany(t, ctx, s, alice.ID, "hr@globex.com")

	tests := []struct {
		wantError error
		update    models.Company
		name      string
	}{
		{
			name:   "update own company",
			update: models.Company{ID: company.ID, UserID: alice.ID, HRName: "New HR", Email: "jobs@acme.com", CompanyName: "Acme Inc"},
		},
		{
			name:      "email taken by another company",
			update:    models.Company{ID: company.ID, UserID: alice.ID, HRName: "New HR", Email: "hr@globex.com", CompanyName: "Acme Inc"},
			wantError: storage.ErrCompanyAlreadyExists,
		},
		{
			name:      "foreign company",
			update:    models.Company{ID: company.ID, UserID: bob.ID, HRName: "Hijack", Email: "x@acme.com", CompanyName: "X"},
			wantError: storage.ErrCompanyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpdateCompany(ctx, &tt.update)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			got, err := s.GetCompany(ctx, alice.ID, company.ID)
			require.NoError(t, err)
			assert.Equal(t, "New HR", got.HRName)
			assert.Equal(t, "jobs@acme.com", got.Email)
		})
	}
}

func TestCompanyStorage_DeleteCompany(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestUser(t, ctx, s, "alice@example.com")
	bob := createTestUser(t, ctx, s, "bob@example.com")
	company := createTestCompany(t, ctx, s, alice.ID, "hr@acme.com")

	outcome := &models.DispatchOutcome{UserID: alice.ID, CompanyID: company.ID, Succeeded: true}
	require.NoError(t, s.RecordDispatch(ctx, outcome))

	assert.ErrorIs(t, s.DeleteCompany(ctx, bob.ID, company.ID), storage.ErrCompanyNotFound)

	require.NoError(t, s.DeleteCompany(ctx, alice.ID, company.ID))
	assert.ErrorIs(t, s.DeleteCompany(ctx, alice.ID, company.ID), storage.ErrCompanyNotFound)

	// Журнал отправок остается после удаления компании
	logs, err := s.ListDispatches(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, company.ID, logs[0].CompanyID)
}

func TestCompanyStorage_ListCompanies(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestUser(t, ctx, s, "alice@example.com")
	bob := createTestUser(t, ctx, s, "bob@example.com")

	var ids []int64
	for i := 0; i < 7; i++ {
		c := createTestCompany(t, ctx, s, alice.ID, fmt.Sprintf("hr%d@example.com", i))
		ids = append(ids, c.ID)
	}
	createTestCompany(t, ctx, s, bob.ID, "bob-hr@example.com")

	// Две успешные отправки и одна неуспешная для первой компании
	for _, ok := range []bool{true, false, true} {
		require.NoError(t, s.RecordDispatch(ctx, &models.DispatchOutcome{
			UserID: alice.ID, CompanyID: ids[0], Succeeded: ok, Timestamp: time.Now(),
		}))
	}

	count, err := s.CountCompanies(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	first, err := s.ListCompanies(ctx, alice.ID, 0, 5)
	require.NoError(t, err)
	require.Len(t, first, 5)
	for i, c := range first {
		assert.Equal(t, ids[i], c.ID, "сортировка по id")
		assert.Equal(t, alice.Name, c.OwnerName)
	}
	assert.Equal(t, int64(2), first[0].MailsSent)
	assert.Zero(t, first[1].MailsSent)

	second, err := s.ListCompanies(ctx, alice.ID, 5, 5)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, ids[5], second[0].ID)

	empty, err := s.ListCompanies(ctx, alice.ID, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCompanyStorage_DBErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("count error", func(t *testing.T) {
		s, mock := newMockStorage(t, DriverPostgres)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM companies WHERE user_id = \$1`).
			WithArgs(int64(1)).
			WillReturnError(errors.New("timeout"))

		_, err := s.CountCompanies(ctx, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to count companies")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list scan error", func(t *testing.T) {
		s, mock := newMockStorage(t, DriverPostgres)
		mock.ExpectQuery(`(?s)FROM companies c\s+JOIN users u.*LIMIT \$2 OFFSET \$3`).
			WithArgs(int64(1), 5, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		_, err := s.ListCompanies(ctx, 1, 0, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to scan company")
	})

	t.Run("list row error", func(t *testing.T) {
		s, mock := newMockStorage(t, DriverSQLite)
		rows := sqlmock.NewRows([]string{"id", "user_id", "hr_name", "email", "company_name", "created_at", "name", "mails_sent"}).
			AddRow(1, 1, "hr", "e@x.com", "X", time.Now(), "Alice", 0).
			RowError(0, errors.New("broken row"))
		mock.ExpectQuery(`FROM companies c`).WillReturnRows(rows)

		_, err := s.ListCompanies(ctx, 1, 0, 5)
		require.Error(t, err)
	})

	t.Run("delete error", func(t *testing.T) {
		s, mock := newMockStorage(t, DriverSQLite)
		mock.ExpectExec(`DELETE FROM companies`).WillReturnError(errors.New("locked"))

		err := s.DeleteCompany(ctx, 1, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, storage.ErrCompanyNotFound)
	})
}
