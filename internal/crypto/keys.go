package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для вывода ключа шифрования секретов
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// KeySize - длина ключа AES-256 в байтах
	KeySize = 32
)

// sealingSalt фиксирован: ключ должен выводиться одинаково при каждом старте
var sealingSalt = []byte("outreach/mail-credentials/v1")

// DeriveSealingKey выводит 32-байтовый ключ AES-256 из секрета конфигурации
// Использует Argon2id, поэтому короткий секрет не подбирается перебором
func DeriveSealingKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("sealing secret cannot be empty")
	}

	return argon2.IDKey([]byte(secret), sealingSalt, Argon2Time, Argon2Memory, Argon2Threads, KeySize), nil
}

// GenerateKey генерирует криптографически случайный ключ AES-256
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}
