package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iudanet/outreach/internal/crypto"
	"github.com/iudanet/outreach/internal/models"
	"github.com/iudanet/outreach/internal/server/identity"
	"github.com/iudanet/outreach/internal/server/jwt"
	"github.com/iudanet/outreach/internal/server/metrics"
	"github.com/iudanet/outreach/internal/server/resumes"
	"github.com/iudanet/outreach/internal/server/storage"
	"github.com/iudanet/outreach/internal/server/web"
	"github.com/iudanet/outreach/internal/validation"
)

// TokenIssuer выпускает и проверяет токены сессии
type TokenIssuer interface {
	Issue(userID int64, ttl time.Duration) (string, time.Time, error)
	Validate(token string) (*jwt.Claims, error)
}

// TokenRevoker отзывает токен при logout
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// CookieConfig - параметры cookie сессии
type CookieConfig struct {
	Secure bool
}

// AuthConfig - зависимости AuthHandler
type AuthConfig struct {
	Users      storage.UserStorage
	Files      resumes.Store
	Tokens     TokenIssuer
	Revoker    TokenRevoker // nil - отзыв выключен
	Metrics    *metrics.Metrics
	Cookie     CookieConfig
	BcryptCost int
}

// AuthHandler обрабатывает регистрацию, вход и выход
type AuthHandler struct {
	responder
	users   storage.UserStorage
	files   resumes.Store
	tokens  TokenIssuer
	revoker TokenRevoker
	metrics *metrics.Metrics
	now     func() time.Time
	cookie  CookieConfig
	cost    int
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, renderer Renderer, cfg AuthConfig) *AuthHandler {
	return &AuthHandler{
		responder: responder{logger: logger, renderer: renderer},
		users:     cfg.Users,
		files:     cfg.Files,
		tokens:    cfg.Tokens,
		revoker:   cfg.Revoker,
		metrics:   cfg.Metrics,
		now:       time.Now,
		cookie:    cfg.Cookie,
		cost:      cfg.BcryptCost,
	}
}

// LoginPage обрабатывает GET /
// Страница входа; после регистрации email подставляется в форму
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.render(w, r, http.StatusOK, web.PageLogin, web.LoginPage{
		Success: q.Get("success") == "true",
		Email:   q.Get("email"),
	})
}

// RegistrationPage обрабатывает GET /user_registration
func (h *AuthHandler) RegistrationPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.PageRegistration, nil)
}

// Register обрабатывает POST /register (multipart)
// Регистрация нового пользователя вместе с резюме
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.WarnContext(ctx, "failed to parse register form", slog.Any("error", err))
		h.sendError(w, "invalid form data", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	messageTemplate := r.FormValue("message_template")
	mailInterval, err := parseMailInterval(r.FormValue("mail_interval"))
	if err == nil {
		err = validateRegistration(name, email, password, messageTemplate)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "invalid registration form", slog.String("email", email), slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		h.sendError(w, "resume is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Проверка до сохранения файла, чтобы не плодить сирот в хранилище
	if _, err := h.users.GetUserByEmail(ctx, email); err == nil {
		h.logger.WarnContext(ctx, "user already exists", slog.String("email", email))
		h.sendError(w, "Email already registered", http.StatusBadRequest)
		return
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	hash, err := crypto.HashPasswordWithCost(password, h.cost)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	now := h.now()
	user := &models.User{
		Name:             name,
		Email:            email,
		PasswordHash:     hash,
		MessageTemplate:  messageTemplate,
		GmailAppPassword: r.FormValue("gmail_app_password"),
		MailInterval:     mailInterval,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists", slog.String("email", email))
			h.sendError(w, "Email already registered", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Ключ резюме содержит id пользователя, поэтому файл сохраняется после вставки
	key, err := h.files.Save(ctx, user.ID, header.Filename, file)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to store resume",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err))
		h.sendError(w, "failed to store resume", http.StatusInternalServerError)
		return
	}

	user.ResumeKey = key
	user.ResumeName = header.Filename
	if err := h.users.UpdateUser(ctx, user); err != nil {
		h.logger.ErrorContext(ctx, "failed to attach resume to user",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err))
		if derr := h.files.Delete(ctx, key); derr != nil {
			h.logger.WarnContext(ctx, "failed to delete orphaned resume", slog.String("key", key), slog.Any("error", derr))
		}
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("email", email),
		slog.Int64("user_id", user.ID))

	http.Redirect(w, r, "/?success=true&email="+url.QueryEscape(email), http.StatusSeeOther)
}

// Login обрабатывает POST /login
// Проверяет пароль и кладет токен сессии в cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.sendError(w, "invalid form data", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	user, err := h.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("email", email))
			h.metrics.ObserveLogin("invalid")
			h.sendError(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.metrics.ObserveLogin("error")
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !crypto.VerifyPassword(password, user.PasswordHash) {
		h.logger.WarnContext(ctx, "login failed: invalid password", slog.Int64("user_id", user.ID))
		h.metrics.ObserveLogin("invalid")
		h.sendError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID, 0)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session token", slog.Any("error", err))
		h.metrics.ObserveLogin("error")
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, expiresAt))
	h.metrics.ObserveLogin("ok")

	h.logger.InfoContext(ctx, "user logged in successfully", slog.Int64("user_id", user.ID))

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout обрабатывает GET /logout
// Удаляет cookie; если включен отзыв, токен отзывается до истечения
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(identity.CookieName); err == nil && cookie.Value != "" && h.revoker != nil {
		claims, err := h.tokens.Validate(cookie.Value)
		if err == nil && claims.ID != "" && claims.ExpiresAt != nil {
			if err := h.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
				h.logger.ErrorContext(ctx, "failed to revoke session token",
					slog.Int64("user_id", claims.UserID),
					slog.Any("error", err))
			} else {
				h.logger.InfoContext(ctx, "user logged out", slog.Int64("user_id", claims.UserID))
			}
		}
	}

	http.SetCookie(w, h.clearedCookie())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) sessionCookie(token string, expiresAt time.Time) *http.Cookie {
	maxAge := int(expiresAt.Sub(h.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	return &http.Cookie{
		Name:     identity.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) clearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     identity.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func validateRegistration(name, email, password, messageTemplate string) error {
	if err := validation.ValidateName("name", name); err != nil {
		return err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}
	return validation.ValidateTemplate(messageTemplate)
}

// parseMailInterval возвращает значение по умолчанию для пустого поля
func parseMailInterval(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return web.MailIntervals[0], nil
	}
	for _, allowed := range web.MailIntervals {
		if v == allowed {
			return v, nil
		}
	}
	return "", errors.New("invalid mail interval")
}
