package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/outreach/internal/models"
	"github.com/iudanet/outreach/internal/server/identity"
	"github.com/iudanet/outreach/internal/server/mailer"
	"github.com/iudanet/outreach/internal/server/resumes"
	"github.com/iudanet/outreach/internal/server/storage"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockUserStorage is an in-memory UserStorage
type mockUserStorage struct {
	users     map[int64]*models.User
	getErr    error
	updateErr error
	nextID    int64
	mu        sync.Mutex
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{users: make(map[int64]*models.User)}
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return storage.ErrUserAlreadyExists
		}
	}
	m.nextID++
	user.ID = m.nextID
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserStorage) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}
	for id, u := range m.users {
		if id != user.ID && u.Email == user.Email {
			return storage.ErrUserAlreadyExists
		}
	}
	cp := *user
	cp.PasswordHash = existing.PasswordHash
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserStorage) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserStorage) get(id int64) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.users[id]
	return &cp
}

// mockCompanyStorage is an in-memory CompanyStorage
type mockCompanyStorage struct {
	companies map[int64]*models.Company
	listErr   error
	nextID    int64
	mu        sync.Mutex
}

func newMockCompanyStorage() *mockCompanyStorage {
	return &mockCompanyStorage{companies: make(map[int64]*models.Company)}
}

func (m *mockCompanyStorage) CreateCompany(ctx context.Context, company *models.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.companies {
		if c.Email == company.Email {
			return storage.ErrCompanyAlreadyExists
		}
	}
	m.nextID++
	company.ID = m.nextID
	cp := *company
	m.companies[company.ID] = &cp
	return nil
}

func (m *mockCompanyStorage) GetCompany(ctx context.Context, userID, companyID int64) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[companyID]
	if !ok || c.UserID != userID {
		return nil, storage.ErrCompanyNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCompanyStorage) UpdateCompany(ctx context.Context, company *models.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[company.ID]
	if !ok || c.UserID != company.UserID {
		return storage.ErrCompanyNotFound
	}
	for id, other := range m.companies {
		if id != company.ID && other.Email == company.Email {
			return storage.ErrCompanyAlreadyExists
		}
	}
	c.HRName = company.HRName
	c.Email = company.Email
	c.CompanyName = company.CompanyName
	return nil
}

func (m *mockCompanyStorage) DeleteCompany(ctx context.Context, userID, companyID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[companyID]
	if !ok || c.UserID != userID {
		return storage.ErrCompanyNotFound
	}
	delete(m.companies, companyID)
	return nil
}

func (m *mockCompanyStorage) owned(userID int64) []*models.Company {
	var out []*models.Company
	for _, c := range m.companies {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockCompanyStorage) CountCompanies(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.owned(userID))), nil
}

func (m *mockCompanyStorage) ListCompanies(ctx context.Context, userID int64, offset, limit int) ([]models.CompanySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	owned := m.owned(userID)
	out := []models.CompanySummary{}
	for i := offset; i < len(owned) && i < offset+limit; i++ {
		out = append(out, models.CompanySummary{Company: *owned[i], OwnerName: "owner"})
	}
	return out, nil
}

// mockFiles is an in-memory resumes.Store
type mockFiles struct {
	objects map[string][]byte
	saveErr error
	deleted []string
	mu      sync.Mutex
}

func newMockFiles() *mockFiles {
	return &mockFiles{objects: make(map[string][]byte)}
}

func (m *mockFiles) Save(ctx context.Context, userID int64, originalName string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := resumes.NewKey(userID, originalName)
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return key, nil
}

func (m *mockFiles) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, resumes.ErrNotFound
	}
	return data, nil
}

func (m *mockFiles) Exists(ctx context.Context, key string) (bool, error) {
	if err := resumes.ValidateKey(key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *mockFiles) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// mockSubmitter collects submitted jobs
type mockSubmitter struct {
	err  error
	jobs []mailer.Job
}

func (m *mockSubmitter) Submit(job mailer.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

// stubRenderer records the last template and data
type stubRenderer struct {
	err  error
	data any
	name string
}

func (s *stubRenderer) Render(w io.Writer, name string, data any) error {
	if s.err != nil {
		return s.err
	}
	s.name = name
	s.data = data
	_, err := fmt.Fprintf(w, "<html>%s</html>", name)
	return err
}

// serve routes one request through chi so that {id} resolves, with the
// identity already in the context when userID > 0
func serve(t *testing.T, method, pattern, target string, userID int64, h http.HandlerFunc, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return serveRequest(t, method, pattern, req, userID, h)
}

// formBody кодирует поля как application/x-www-form-urlencoded
func formBody(fields map[string]string) (io.Reader, string) {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded"
}

// multipartBody собирает multipart форму с одним необязательным файлом
func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, content []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// newRequestWithCookie создает запрос с cookie сессии, если token не пуст
func newRequestWithCookie(method, target, token string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: token})
	}
	return req
}

// serveRequest - как serve, но для заранее собранного запроса
func serveRequest(t *testing.T, method, pattern string, req *http.Request, userID int64, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.Method(method, pattern, h)
	if userID > 0 {
		req = req.WithContext(identity.WithIdentity(req.Context(), identity.Identity{UserID: userID}))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
