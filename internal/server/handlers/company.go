package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/iudanet/outreach/internal/models"
	"github.com/iudanet/outreach/internal/server/storage"
	"github.com/iudanet/outreach/internal/server/web"
	"github.com/iudanet/outreach/internal/validation"
	"github.com/iudanet/outreach/pkg/api"
)

// CompaniesPerPage - размер страницы списка компаний
const CompaniesPerPage = 5

// CompanyHandler обрабатывает CRUD компаний текущего пользователя
type CompanyHandler struct {
	responder
	companies storage.CompanyStorage
}

// NewCompanyHandler создает новый handler для компаний
func NewCompanyHandler(logger *slog.Logger, renderer Renderer, companies storage.CompanyStorage) *CompanyHandler {
	return &CompanyHandler{
		responder: responder{logger: logger, renderer: renderer},
		companies: companies,
	}
}

// RegistrationPage обрабатывает GET /company_registration
func (h *CompanyHandler) RegistrationPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.PageCompanyRegistration, nil)
}

// Register обрабатывает POST /register_company
func (h *CompanyHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := currentUserID(r)
	if !ok {
		h.sendError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	company, err := h.parseCompanyForm(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	company.UserID = userID

	if err := h.companies.CreateCompany(ctx, company); err != nil {
		if errors.Is(err, storage.ErrCompanyAlreadyExists) {
			h.logger.WarnContext(ctx, "company already exists", slog.String("email", company.Email))
			h.sendError(w, "Company with this email already exists.", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create company", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "company registered",
		slog.Int64("user_id", userID),
		slog.Int64("company_id", company.ID))

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// List обрабатывает GET /my_companies?page=N
// По умолчанию отдает HTML фрагмент таблицы, с Accept: application/json - JSON
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := currentUserID(r)
	if !ok {
		h.sendError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	total, err := h.companies.CountCompanies(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to count companies", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// номер страницы за концом списка сводится к последней странице
	if last := web.TotalPages(int(total), CompaniesPerPage); page > last {
		page = max(last, 1)
	}

	items, err := h.companies.ListCompanies(ctx, userID, (page-1)*CompaniesPerPage, CompaniesPerPage)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list companies", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	view := web.NewCompaniesPage(items, page, int(total), CompaniesPerPage)

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		h.sendJSON(w, companiesResponse(view), http.StatusOK)
		return
	}

	h.render(w, r, http.StatusOK, web.FragmentCompanies, view)
}

// Delete обрабатывает POST /delete_company/{id}
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := currentUserID(r)
	if !ok {
		h.sendError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	companyID, ok := pathID(r)
	if !ok {
		h.sendError(w, "Company not found", http.StatusNotFound)
		return
	}

	if err := h.companies.DeleteCompany(ctx, userID, companyID); err != nil {
		if errors.Is(err, storage.ErrCompanyNotFound) {
			h.sendError(w, "Company not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete company", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "company deleted",
		slog.Int64("user_id", userID),
		slog.Int64("company_id", companyID))

	h.sendMessage(w, "Company deleted successfully", http.StatusOK)
}

// EditPage обрабатывает GET /edit_company/{id}
func (h *CompanyHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := currentUserID(r)
	companyID, ok := pathID(r)
	if !ok {
		h.renderMessage(w, r, http.StatusNotFound, "Not found", "Company not found or you are not authorized.")
		return
	}

	company, err := h.companies.GetCompany(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, storage.ErrCompanyNotFound) {
			h.renderMessage(w, r, http.StatusNotFound, "Not found", "Company not found or you are not authorized.")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get company", slog.Any("error", err))
		h.renderMessage(w, r, http.StatusInternalServerError, "Error", "Internal server error.")
		return
	}

	h.render(w, r, http.StatusOK, web.PageEditCompany, web.CompanyForm{
		ID:          company.ID,
		HRName:      company.HRName,
		Email:       company.Email,
		CompanyName: company.CompanyName,
	})
}

// Update обрабатывает POST /update_company/{id}
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := currentUserID(r)
	if !ok {
		h.sendError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	companyID, ok := pathID(r)
	if !ok {
		h.sendError(w, "Company not found", http.StatusNotFound)
		return
	}

	company, err := h.parseCompanyForm(r)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	company.ID = companyID
	company.UserID = userID

	if err := h.companies.UpdateCompany(ctx, company); err != nil {
		switch {
		case errors.Is(err, storage.ErrCompanyNotFound):
			h.sendError(w, "Company not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrCompanyAlreadyExists):
			h.sendError(w, "Company with this email already exists.", http.StatusBadRequest)
		default:
			h.logger.ErrorContext(ctx, "failed to update company", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.InfoContext(ctx, "company updated",
		slog.Int64("user_id", userID),
		slog.Int64("company_id", companyID))

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// parseCompanyForm читает и проверяет hr_name, email, company_name
func (h *CompanyHandler) parseCompanyForm(r *http.Request) (*models.Company, error) {
	if err := r.ParseForm(); err != nil {
		return nil, errors.New("invalid form data")
	}

	company := &models.Company{
		HRName:      strings.TrimSpace(r.PostFormValue("hr_name")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		CompanyName: strings.TrimSpace(r.PostFormValue("company_name")),
	}
	if err := validation.ValidateCompany(company.HRName, company.Email, company.CompanyName); err != nil {
		return nil, err
	}
	return company, nil
}

func companiesResponse(view web.CompaniesPage) api.CompaniesResponse {
	items := make([]api.CompanyItem, 0, len(view.Rows))
	for _, row := range view.Rows {
		items = append(items, api.CompanyItem{
			ID:          row.ID,
			HRName:      row.HRName,
			Email:       row.Email,
			CompanyName: row.CompanyName,
			OwnerName:   row.OwnerName,
			MailsSent:   row.MailsSent,
		})
	}
	return api.CompaniesResponse{
		Companies:  items,
		Page:       view.Page,
		TotalPages: view.TotalPages,
		Total:      view.Total,
	}
}
