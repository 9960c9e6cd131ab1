package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// NonceSize - размер nonce для AES-GCM (12 bytes стандартный размер)
	NonceSize = 12

	// sealedPrefix отмечает значения, зашифрованные Sealer
	sealedPrefix = "sealed:v1:"
)

// Sealer шифрует короткие секреты (app password почты) перед записью в БД
// Формат: "sealed:v1:" + base64(nonce + ciphertext + auth_tag)
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer создает Sealer с ключом AES-256
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: aesGCM}, nil
}

// Seal шифрует plaintext. Пустая строка остается пустой: отсутствие
// секрета должно оставаться видимым без расшифровки.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// GCM добавляет authentication tag в конец ciphertext
	ciphertext := s.aead.Seal(nil, nonce, []byte(plaintext), nil)

	result := make([]byte, 0, len(nonce)+len(ciphertext))
	result = append(result, nonce...)
	result = append(result, ciphertext...)

	return sealedPrefix + base64.StdEncoding.EncodeToString(result), nil
}

// Open расшифровывает значение, полученное от Seal.
// Значения без префикса возвращаются как есть (записи, сохраненные до включения шифрования).
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" || !strings.HasPrefix(sealed, sealedPrefix) {
		return sealed, nil
	}

	encrypted, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}
	if len(encrypted) < NonceSize {
		return "", fmt.Errorf("encrypted data too short")
	}

	nonce := encrypted[:NonceSize]
	ciphertext := encrypted[NonceSize:]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: authentication failed or corrupted data: %w", err)
	}

	return string(plaintext), nil
}

// IsSealed reports whether v was produced by Seal.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, sealedPrefix)
}
