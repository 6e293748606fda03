package crypto

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для деривации ключа запечатывания
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// SaltSize - размер соли в байтах
	SaltSize = 32
	// secretSize - размер device secret в байтах
	secretSize = 32
)

// deviceKeyFile хранит материал деривации ключа запечатывания токенов.
// Сам ключ шифрования на диск не попадает: он каждый раз деривируется
// из secret+salt через Argon2id.
type deviceKeyFile struct {
	Secret []byte `json:"secret"`
	Salt   []byte `json:"salt"`
}

// LoadOrCreateDeviceKey возвращает 32-байтный ключ запечатывания токенов,
// привязанный к этому устройству. При первом вызове генерирует новый device
// secret и сохраняет его в path с правами 0600.
func LoadOrCreateDeviceKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var kf deviceKeyFile
		if err := json.Unmarshal(data, &kf); err != nil {
			return nil, fmt.Errorf("failed to parse device key file: %w", err)
		}
		if len(kf.Secret) != secretSize || len(kf.Salt) != SaltSize {
			return nil, fmt.Errorf("device key file is corrupted")
		}
		return deriveSealingKey(kf.Secret, kf.Salt), nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read device key file: %w", err)
	}

	// Первый запуск на этом устройстве: генерируем secret и salt
	kf := deviceKeyFile{
		Secret: make([]byte, secretSize),
		Salt:   make([]byte, SaltSize),
	}
	if _, err := rand.Read(kf.Secret); err != nil {
		return nil, fmt.Errorf("failed to generate device secret: %w", err)
	}
	if _, err := rand.Read(kf.Salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	data, err = json.Marshal(kf)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal device key file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write device key file: %w", err)
	}

	return deriveSealingKey(kf.Secret, kf.Salt), nil
}

// deriveSealingKey деривирует ключ шифрования токенов через Argon2id
func deriveSealingKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, Argon2Time, Argon2Memory, Argon2Threads, KeySize)
}
