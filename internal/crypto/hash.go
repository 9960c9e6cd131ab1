package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MaxPasswordBytes - bcrypt использует только первые 72 байта пароля.
	// Более длинные пароли молча обрезаются до этой длины.
	MaxPasswordBytes = 72

	// DefaultCost - стоимость bcrypt по умолчанию
	DefaultCost = bcrypt.DefaultCost
)

// truncatePassword обрезает пароль до 72 байт.
// Обрезка детерминирована: HashPassword(p) эквивалентен HashPassword(p[:72]).
func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > MaxPasswordBytes {
		b = b[:MaxPasswordBytes]
	}
	return b
}

// HashPassword хеширует пароль с помощью bcrypt со стоимостью по умолчанию
// Соль встроена в результат, поэтому два вызова с одним паролем дают разные хеши
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultCost)
}

// HashPasswordWithCost хеширует пароль с указанной стоимостью bcrypt
func HashPasswordWithCost(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword проверяет пароль против сохраненного bcrypt хеша
// Никогда не возвращает ошибку: несовпадение или поврежденный хеш дают false
func VerifyPassword(password, hash string) bool {
	if hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password)) == nil
}
