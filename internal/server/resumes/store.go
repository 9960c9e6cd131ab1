// Package resumes хранит загруженные резюме. Ключи генерируются внутри пакета,
// исходное имя файла хранится только как метаданные пользователя.
package resumes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound - объект с таким ключом отсутствует
	ErrNotFound = errors.New("resume not found")
	// ErrInvalidKey - ключ выходит за пределы хранилища или имеет неверный формат
	ErrInvalidKey = errors.New("invalid resume key")
)

// Store - файловое хранилище резюме
type Store interface {
	// Save сохраняет содержимое и возвращает сгенерированный ключ
	Save(ctx context.Context, userID int64, originalName string, r io.Reader) (string, error)
	// Read возвращает содержимое объекта
	Read(ctx context.Context, key string) ([]byte, error)
	// Exists проверяет наличие объекта
	Exists(ctx context.Context, key string) (bool, error)
	// Delete удаляет объект; отсутствующий объект не считается ошибкой
	Delete(ctx context.Context, key string) error
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// NewKey builds users/<id>/<uuid><ext>. Only a short alphanumeric extension
// of the uploaded name survives.
func NewKey(userID int64, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("users/%d/%s%s", userID, uuid.NewString(), ext)
}

// ValidateKey rejects keys that are absolute, contain backslashes or
// dot segments, or do not live under users/.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, "\\\x00") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path.Clean(key) != key || !strings.HasPrefix(key, "users/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// DisplayName возвращает безопасное имя вложения для письма
func DisplayName(originalName, key string) string {
	name := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return path.Base(key)
	}
	return name
}
