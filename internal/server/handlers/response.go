package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/outreach/internal/server/identity"
	"github.com/iudanet/outreach/internal/server/web"
	"github.com/iudanet/outreach/pkg/api"
)

// Лимиты загрузки резюме
const (
	MaxUploadSize   = 10 << 20
	multipartMemory = 1 << 20
)

// Renderer рендерит HTML шаблон
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// responder - общие методы ответа для всех handlers
type responder struct {
	logger   *slog.Logger
	renderer Renderer
}

// sendJSON отправляет JSON ответ
func (h *responder) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *responder) sendError(w http.ResponseWriter, message string, statusCode int) {
	h.sendJSON(w, api.ErrorResponse{Error: message}, statusCode)
}

// sendMessage отправляет JSON ответ с сообщением
func (h *responder) sendMessage(w http.ResponseWriter, message string, statusCode int) {
	h.sendJSON(w, api.MessageResponse{Message: message}, statusCode)
}

// render отправляет HTML страницу. Ошибка шаблона превращается в 500.
func (h *responder) render(w http.ResponseWriter, r *http.Request, statusCode int, name string, data any) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("template", name),
			slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = buf.WriteTo(w)
}

// renderMessage отправляет страницу с сообщением
func (h *responder) renderMessage(w http.ResponseWriter, r *http.Request, statusCode int, title, message string) {
	h.render(w, r, statusCode, web.PageMessage, web.MessagePage{Title: title, Message: message})
}

// currentUserID возвращает id пользователя, положенный RequireIdentity
func currentUserID(r *http.Request) (int64, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok || id.UserID <= 0 {
		return 0, false
	}
	return id.UserID, true
}

// pathID разбирает {id} из пути
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
