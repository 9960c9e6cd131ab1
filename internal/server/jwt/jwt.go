package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL - время жизни токена сессии по умолчанию
const DefaultTTL = 300 * time.Minute

var (
	// ErrInvalidToken возвращается для поврежденного токена, неверной подписи,
	// неожиданного алгоритма или отсутствующего user_id
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired возвращается, когда exp <= now
	ErrExpired = errors.New("token expired")
)

// Claims представляет JWT claims сессии
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// Option настраивает Service
type Option func(*Service)

// WithClock подменяет источник времени (используется в тестах)
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service выпускает и проверяет токены сессии (HS256)
type Service struct {
	now        func() time.Time
	secret     []byte
	defaultTTL time.Duration
}

// NewService creates a token service. secret should be a cryptographically
// secure random value; ttl <= 0 falls back to DefaultTTL.
func NewService(secret []byte, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{
		secret:     secret,
		defaultTTL: ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultTTL returns the lifetime used when Issue is called with ttl <= 0.
func (s *Service) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Issue создает подписанный токен для пользователя
func (s *Service) Issue(userID int64, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	// exp в токене хранится с точностью до секунды
	return tokenString, claims.ExpiresAt.Time, nil
}

// Validate проверяет подпись и срок действия токена
func (s *Service) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	return claims, nil
}
