package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/outreach/internal/crypto"
	"github.com/iudanet/outreach/internal/server/identity"
	"github.com/iudanet/outreach/internal/server/jwt"
	"github.com/iudanet/outreach/internal/server/web"
	"github.com/iudanet/outreach/pkg/api"
)

// mockRevoker records revoked token ids
type mockRevoker struct {
	err     error
	revoked map[string]time.Time
}

func (m *mockRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if m.err != nil {
		return m.err
	}
	if m.revoked == nil {
		m.revoked = make(map[string]time.Time)
	}
	m.revoked[jti] = expiresAt
	return nil
}

type authFixture struct {
	handler  *AuthHandler
	users    *mockUserStorage
	files    *mockFiles
	renderer *stubRenderer
	tokens   *jwt.Service
	revoker  *mockRevoker
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users:    newMockUserStorage(),
		files:    newMockFiles(),
		renderer: &stubRenderer{},
		tokens:   jwt.NewService([]byte("test-secret"), time.Hour),
		revoker:  &mockRevoker{},
	}
	f.handler = NewAuthHandler(setupTestLogger(), f.renderer, AuthConfig{
		Users:      f.users,
		Files:      f.files,
		Tokens:     f.tokens,
		Revoker:    f.revoker,
		Cookie:     CookieConfig{Secure: true},
		BcryptCost: bcrypt.MinCost,
	})
	return f
}

func registrationFields(email, password string) map[string]string {
	return map[string]string{
		"name":               "Alice",
		"email":              email,
		"password":           password,
		"message_template":   "Hi, my CV is attached.",
		"gmail_app_password": "abcd efgh ijkl mnop",
		"mail_interval":      "weekly",
	}
}

func (f *authFixture) register(t *testing.T, fields map[string]string, withResume bool) *httptest.ResponseRecorder {
	t.Helper()
	fileField := ""
	if withResume {
		fileField = "resume"
	}
	body, ct := multipartBody(t, fields, fileField, "Alice CV.pdf", []byte("%PDF-1.4"))
	return serve(t, http.MethodPost, "/register", "/register", 0, f.handler.Register, body, ct)
}

func (f *authFixture) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := formBody(map[string]string{"email": email, "password": password})
	return serve(t, http.MethodPost, "/login", "/login", 0, f.handler.Login, body, ct)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Error
}

func TestAuthHandler_LoginPage(t *testing.T) {
	f := newAuthFixture(t)

	w := serve(t, http.MethodGet, "/", "/?success=true&email=alice%40example.com", 0, f.handler.LoginPage, nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, web.PageLogin, f.renderer.name)
	assert.Equal(t, web.LoginPage{Success: true, Email: "alice@example.com"}, f.renderer.data)
}

func TestAuthHandler_Register(t *testing.T) {
	f := newAuthFixture(t)

	w := f.register(t, registrationFields("alice@example.com", "hunter2"), true)

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?success=true&email=alice%40example.com", w.Header().Get("Location"))

	user, err := f.users.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "weekly", user.MailInterval)
	assert.Equal(t, "abcd efgh ijkl mnop", user.GmailAppPassword)
	assert.Equal(t, "Alice CV.pdf", user.ResumeName)
	assert.True(t, strings.HasPrefix(user.ResumeKey, "users/1/"))
	assert.True(t, strings.HasSuffix(user.ResumeKey, ".pdf"))
	assert.NotEqual(t, "hunter2", user.PasswordHash)
	assert.True(t, crypto.VerifyPassword("hunter2", user.PasswordHash))

	data, err := f.files.Read(context.Background(), user.ResumeKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestAuthHandler_Register_Errors(t *testing.T) {
	tests := []struct {
		mutate     func(fields map[string]string)
		name       string
		wantError  string
		withResume bool
	}{
		{name: "missing resume", withResume: false, wantError: "resume is required"},
		{name: "invalid email", withResume: true, mutate: func(f map[string]string) { f["email"] = "nope" }, wantError: "invalid email address"},
		{name: "short password", withResume: true, mutate: func(f map[string]string) { f["password"] = "abc" }, wantError: "password must be at least 6 characters long"},
		{name: "empty name", withResume: true, mutate: func(f map[string]string) { f["name"] = " " }, wantError: "name cannot be empty"},
		{name: "unknown interval", withResume: true, mutate: func(f map[string]string) { f["mail_interval"] = "hourly" }, wantError: "invalid mail interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			fields := registrationFields("alice@example.com", "hunter2")
			if tt.mutate != nil {
				tt.mutate(fields)
			}

			w := f.register(t, fields, tt.withResume)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantError, decodeError(t, w))
			assert.Empty(t, f.users.users)
			assert.Empty(t, f.files.objects)
		})
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)

	require.Equal(t, http.StatusSeeOther, f.register(t, registrationFields("alice@example.com", "hunter2"), true).Code)

	w := f.register(t, registrationFields("alice@example.com", "other-password"), true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decodeError(t, w))
	assert.Len(t, f.files.objects, 1, "второй файл не сохраняется")
}

func TestAuthHandler_Register_NotMultipart(t *testing.T) {
	f := newAuthFixture(t)
	body, ct := formBody(registrationFields("alice@example.com", "hunter2"))

	w := serve(t, http.MethodPost, "/register", "/register", 0, f.handler.Register, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Register_StoreFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.files.saveErr = errors.New("disk full")

	w := f.register(t, registrationFields("alice@example.com", "hunter2"), true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	f := newAuthFixture(t)
	require.Equal(t, http.StatusSeeOther, f.register(t, registrationFields("alice@example.com", "hunter2"), true).Code)

	t.Run("correct password", func(t *testing.T) {
		w := f.login(t, "alice@example.com", "hunter2")

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, identity.CookieName, c.Name)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.InDelta(t, time.Hour.Seconds(), float64(c.MaxAge), 5)

		claims, err := f.tokens.Validate(c.Value)
		require.NoError(t, err)
		assert.Equal(t, int64(1), claims.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := f.login(t, "alice@example.com", "hunter3")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", decodeError(t, w))
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("unknown email", func(t *testing.T) {
		w := f.login(t, "bob@example.com", "hunter2")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", decodeError(t, w))
	})

	t.Run("storage failure", func(t *testing.T) {
		f.users.getErr = errors.New("db down")
		defer func() { f.users.getErr = nil }()

		w := f.login(t, "alice@example.com", "hunter2")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	f := newAuthFixture(t)

	token, exp, err := f.tokens.Issue(5, 0)
	require.NoError(t, err)
	claims, err := f.tokens.Validate(token)
	require.NoError(t, err)

	req := newRequestWithCookie(http.MethodGet, "/logout", token)
	w := httptest.NewRecorder()
	f.handler.Logout(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, identity.CookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)

	require.Contains(t, f.revoker.revoked, claims.ID)
	assert.True(t, exp.Equal(f.revoker.revoked[claims.ID]))
}

func TestAuthHandler_Logout_WithoutCookie(t *testing.T) {
	f := newAuthFixture(t)

	w := httptest.NewRecorder()
	f.handler.Logout(w, newRequestWithCookie(http.MethodGet, "/logout", ""))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, f.revoker.revoked)
}

// Регистрация с паролем hunter2: вход с hunter2 успешен, с hunter3 - 401
func TestScenario_RegisterThenLogin(t *testing.T) {
	f := newAuthFixture(t)

	require.Equal(t, http.StatusSeeOther, f.register(t, registrationFields("user@example.com", "hunter2"), true).Code)

	ok := f.login(t, "user@example.com", "hunter2")
	assert.Equal(t, http.StatusSeeOther, ok.Code)
	assert.Len(t, ok.Result().Cookies(), 1)

	bad := f.login(t, "user@example.com", "hunter3")
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, bad.Body.String())
}

func TestParseMailInterval(t *testing.T) {
	v, err := parseMailInterval("")
	require.NoError(t, err)
	assert.Equal(t, "daily", v)

	v, err = parseMailInterval(" monthly ")
	require.NoError(t, err)
	assert.Equal(t, "monthly", v)

	_, err = parseMailInterval("hourly")
	assert.Error(t, err)
}
