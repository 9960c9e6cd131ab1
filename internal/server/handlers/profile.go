package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/outreach/internal/crypto"
	"github.com/iudanet/outreach/internal/models"
	"github.com/iudanet/outreach/internal/server/resumes"
	"github.com/iudanet/outreach/internal/server/storage"
	"github.com/iudanet/outreach/internal/server/web"
	"github.com/iudanet/outreach/internal/validation"
)

// ProfileHandler обрабатывает dashboard и профиль пользователя
type ProfileHandler struct {
	responder
	users storage.UserStorage
	files resumes.Store
	cost  int
}

// NewProfileHandler создает новый handler профиля
func NewProfileHandler(logger *slog.Logger, renderer Renderer, users storage.UserStorage, files resumes.Store, bcryptCost int) *ProfileHandler {
	return &ProfileHandler{
		responder: responder{logger: logger, renderer: renderer},
		users:     users,
		files:     files,
		cost:      bcryptCost,
	}
}

// Dashboard обрабатывает GET /dashboard
func (h *ProfileHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, web.PageDashboard, web.DashboardPage{UserName: user.Name})
}

// Page обрабатывает GET /updateprofile
func (h *ProfileHandler) Page(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}

	h.render(w, r, http.StatusOK, web.PageProfile, web.ProfilePage{
		Name:            user.Name,
		Email:           user.Email,
		MessageTemplate: user.MessageTemplate,
		MailInterval:    user.MailInterval,
		ResumeName:      resumes.DisplayName(user.ResumeName, user.ResumeKey),
		HasAppPassword:  user.GmailAppPassword != "",
	})
}

// Update обрабатывает POST /updateprofile (multipart)
// Пустые gmail_app_password и password оставляют сохраненные значения.
// Новый файл update_resume заменяет резюме, старый объект удаляется.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := currentUserID(r)
	if !ok {
		h.sendError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.WarnContext(ctx, "failed to parse profile form", slog.Any("error", err))
		h.sendError(w, "invalid form data", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	messageTemplate := r.FormValue("message_template")
	appPassword := r.FormValue("gmail_app_password")
	password := r.FormValue("password")

	mailInterval, err := parseMailInterval(r.FormValue("mail_interval"))
	if err == nil {
		err = validateProfile(name, email, password, messageTemplate)
	}
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
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

	user.Name = name
	user.Email = email
	user.MessageTemplate = messageTemplate
	user.MailInterval = mailInterval
	if appPassword != "" {
		user.GmailAppPassword = appPassword
	}

	oldKey := user.ResumeKey
	newKey := ""
	file, header, err := r.FormFile("update_resume")
	switch {
	case err == nil:
		defer file.Close()
		newKey, err = h.files.Save(ctx, user.ID, header.Filename, file)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to store resume", slog.Int64("user_id", user.ID), slog.Any("error", err))
			h.sendError(w, "failed to store resume", http.StatusInternalServerError)
			return
		}
		user.ResumeKey = newKey
		user.ResumeName = header.Filename
	case !errors.Is(err, http.ErrMissingFile):
		h.sendError(w, "invalid resume upload", http.StatusBadRequest)
		return
	}

	if err := h.users.UpdateUser(ctx, user); err != nil {
		h.discardResume(r, newKey)
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.sendError(w, "Email already registered", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if newKey != "" && oldKey != "" {
		h.discardResume(r, oldKey)
	}

	if password != "" {
		if err := h.updatePassword(r, user, password); err != nil {
			h.sendError(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	h.logger.InfoContext(ctx, "profile updated",
		slog.Int64("user_id", user.ID),
		slog.Bool("resume_replaced", newKey != ""),
		slog.Bool("password_changed", password != ""))

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *ProfileHandler) updatePassword(r *http.Request, user *models.User, password string) error {
	ctx := r.Context()

	hash, err := crypto.HashPasswordWithCost(password, h.cost)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return err
	}
	if err := h.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		h.logger.ErrorContext(ctx, "failed to update password", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return err
	}
	return nil
}

// discardResume удаляет объект; ошибка только логируется
func (h *ProfileHandler) discardResume(r *http.Request, key string) {
	if key == "" {
		return
	}
	if err := h.files.Delete(r.Context(), key); err != nil {
		h.logger.WarnContext(r.Context(), "failed to delete resume", slog.String("key", key), slog.Any("error", err))
	}
}

// loadUser загружает текущего пользователя; пропавший пользователь отправляется на страницу входа
func (h *ProfileHandler) loadUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	ctx := r.Context()

	userID, ok := currentUserID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "session refers to missing user", slog.Int64("user_id", userID))
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return nil, false
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.renderMessage(w, r, http.StatusInternalServerError, "Error", "Internal server error.")
		return nil, false
	}

	return user, true
}

func validateProfile(name, email, password, messageTemplate string) error {
	if err := validation.ValidateName("name", name); err != nil {
		return err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	if password != "" {
		if err := validation.ValidatePassword(password); err != nil {
			return err
		}
	}
	return validation.ValidateTemplate(messageTemplate)
}
