package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/outreach/internal/server/mailer"
	"github.com/iudanet/outreach/internal/server/resumes"
	"github.com/iudanet/outreach/internal/server/storage"
)

// MailSubmitter ставит задание на отправку в фоновую очередь
type MailSubmitter interface {
	Submit(job mailer.Job) error
}

// MailHandler обрабатывает запуск отправки резюме
type MailHandler struct {
	responder
	users      storage.UserStorage
	companies  storage.CompanyStorage
	files      resumes.Store
	dispatcher MailSubmitter
}

// NewMailHandler создает новый handler отправки
func NewMailHandler(logger *slog.Logger, users storage.UserStorage, companies storage.CompanyStorage, files resumes.Store, dispatcher MailSubmitter) *MailHandler {
	return &MailHandler{
		responder:  responder{logger: logger},
		users:      users,
		companies:  companies,
		files:      files,
		dispatcher: dispatcher,
	}
}

// Send обрабатывает POST /send_mail/{id}
// Выполняет проверки и ставит письмо в очередь; ответ не ждет отправки.
// Результат попытки виден только в журнале отправок.
func (h *MailHandler) Send(w http.ResponseWriter, r *http.Request) {
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

	company, err := h.companies.GetCompany(ctx, userID, companyID)
	if err != nil {
		if errors.Is(err, storage.ErrCompanyNotFound) {
			h.sendError(w, "Company not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get company", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.sendError(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !user.HasMailCredentials() {
		h.sendError(w, "Missing Gmail credentials", http.StatusBadRequest)
		return
	}

	if user.ResumeKey == "" {
		h.sendError(w, "Resume not found", http.StatusBadRequest)
		return
	}

	exists, err := h.files.Exists(ctx, user.ResumeKey)
	if err != nil && !errors.Is(err, resumes.ErrInvalidKey) {
		h.logger.ErrorContext(ctx, "failed to check resume", slog.String("key", user.ResumeKey), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !exists {
		h.logger.WarnContext(ctx, "resume object missing", slog.Int64("user_id", user.ID), slog.String("key", user.ResumeKey))
		h.sendError(w, "Resume file not found on server", http.StatusNotFound)
		return
	}

	job := mailer.Job{
		UserID:       user.ID,
		CompanyID:    company.ID,
		SenderEmail:  user.Email,
		SenderSecret: user.GmailAppPassword,
		Recipient:    company.Email,
		Body:         user.MessageTemplate,
		ResumeKey:    user.ResumeKey,
		ResumeName:   user.ResumeName,
	}

	if err := h.dispatcher.Submit(job); err != nil {
		h.logger.WarnContext(ctx, "mail job rejected",
			slog.Int64("user_id", user.ID),
			slog.Int64("company_id", company.ID),
			slog.Any("error", err))
		if errors.Is(err, mailer.ErrClosed) {
			h.sendError(w, "Server is shutting down, try again later", http.StatusServiceUnavailable)
			return
		}
		h.sendError(w, "Mail queue is full, try again later", http.StatusServiceUnavailable)
		return
	}

	h.logger.InfoContext(ctx, "mail job queued",
		slog.Int64("user_id", user.ID),
		slog.Int64("company_id", company.ID))

	h.sendMessage(w, fmt.Sprintf("Email to %s is being sent in background.", company.Email), http.StatusOK)
}
