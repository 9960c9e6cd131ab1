// Package identity определяет вызывающего пользователя по cookie с токеном сессии.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/iudanet/outreach/internal/server/jwt"
)

// CookieName - имя cookie с токеном сессии
const CookieName = "access_token"

// Причины отказа в аутентификации
const (
	ReasonMissing = "missing"
	ReasonExpired = "expired"
	ReasonInvalid = "invalid"
	ReasonRevoked = "revoked"
)

// Identity - аутентифицированный пользователь текущего запроса
type Identity struct {
	ExpiresAt time.Time
	TokenID   string
	UserID    int64
}

// UnauthenticatedError возвращается Resolve, когда запрос нельзя связать с пользователем
type UnauthenticatedError struct {
	Err    error
	Reason string
}

func (e *UnauthenticatedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthenticated (%s): %v", e.Reason, e.Err)
	}
	return "unauthenticated (" + e.Reason + ")"
}

func (e *UnauthenticatedError) Unwrap() error {
	return e.Err
}

// TokenValidator проверяет токен сессии
type TokenValidator interface {
	Validate(token string) (*jwt.Claims, error)
}

// RevocationChecker сообщает, отозван ли токен при logout
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Resolver derives the caller identity from the request cookie.
// It never touches the user store; revocation lookup is optional.
type Resolver struct {
	tokens  TokenValidator
	revoked RevocationChecker
}

// NewResolver создает Resolver. revoked может быть nil.
func NewResolver(tokens TokenValidator, revoked RevocationChecker) *Resolver {
	return &Resolver{tokens: tokens, revoked: revoked}
}

// Resolve returns the identity carried by the request or *UnauthenticatedError.
func (r *Resolver) Resolve(req *http.Request) (Identity, error) {
	cookie, err := req.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, &UnauthenticatedError{Reason: ReasonMissing}
	}

	claims, err := r.tokens.Validate(cookie.Value)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return Identity{}, &UnauthenticatedError{Reason: ReasonExpired, Err: err}
		}
		return Identity{}, &UnauthenticatedError{Reason: ReasonInvalid, Err: err}
	}

	if r.revoked != nil && claims.ID != "" {
		revoked, err := r.revoked.IsRevoked(req.Context(), claims.ID)
		if err != nil {
			return Identity{}, &UnauthenticatedError{Reason: ReasonInvalid, Err: err}
		}
		if revoked {
			return Identity{}, &UnauthenticatedError{Reason: ReasonRevoked}
		}
	}

	id := Identity{UserID: claims.UserID, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity кладет identity в контекст запроса
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext извлекает identity из контекста
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
