package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/outreach/internal/server/identity"
	"github.com/iudanet/outreach/internal/server/metrics"
	"github.com/iudanet/outreach/pkg/api"
)

// Mode определяет ответ на неаутентифицированный запрос
type Mode int

const (
	// ModePage - редирект на страницу входа
	ModePage Mode = iota
	// ModeAPI - 401 с JSON телом
	ModeAPI
)

// IdentityResolver определяет пользователя по запросу
type IdentityResolver interface {
	Resolve(r *http.Request) (identity.Identity, error)
}

// RequireIdentity создает middleware, которое пропускает запрос дальше только
// с действующим токеном сессии. Identity кладется в контекст запроса.
func RequireIdentity(logger *slog.Logger, resolver IdentityResolver, m *metrics.Metrics, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id, err := resolver.Resolve(r)
			if err != nil {
				reason := identity.ReasonInvalid
				var uerr *identity.UnauthenticatedError
				if errors.As(err, &uerr) {
					reason = uerr.Reason
				}

				attrs := []any{
					slog.String("reason", reason),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				}
				switch reason {
				case identity.ReasonMissing, identity.ReasonExpired:
					logger.InfoContext(ctx, "unauthenticated request", attrs...)
				default:
					logger.WarnContext(ctx, "rejected session token", append(attrs, slog.Any("error", err))...)
				}
				m.ObserveAuthRejected(reason)

				if mode == ModeAPI {
					writeJSONError(w, "Not authenticated", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}

			logger.DebugContext(ctx, "user authenticated", slog.Int64("user_id", id.UserID))

			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(ctx, id)))
		})
	}
}

// writeJSONError пишет {"error": message}
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: message})
}
