package crypto

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("access-token-value")

	encrypted, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, encrypted)

	decrypted, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncrypt_Validation(t *testing.T) {
	key := testKey(t)

	_, err := Encrypt(nil, key)
	assert.Error(t, err, "empty plaintext must be rejected")

	_, err = Encrypt([]byte("data"), []byte("short-key"))
	assert.Error(t, err, "wrong key size must be rejected")
}

func TestDecrypt_WrongKey(t *testing.T) {
	key := testKey(t)
	encrypted, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	otherKey := testKey(t)
	_, err = Decrypt(encrypted, otherKey)
	assert.Error(t, err, "GCM auth must fail with wrong key")
}

func TestDecrypt_TooShort(t *testing.T) {
	key := testKey(t)
	_, err := Decrypt([]byte("short"), key)
	assert.Error(t, err)
}

func TestBase64RoundTrip(t *testing.T) {
	key := testKey(t)

	encoded, err := EncryptToBase64([]byte("refresh-token"), key)
	require.NoError(t, err)

	decoded, err := DecryptFromBase64(encoded, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("refresh-token"), decoded)

	_, err = DecryptFromBase64("not-base64!!!", key)
	assert.Error(t, err)
}

func TestLoadOrCreateDeviceKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "device.json")

	// Первый вызов создает файл
	key1, err := LoadOrCreateDeviceKey(path)
	require.NoError(t, err)
	require.Len(t, key1, KeySize)

	// Повторный вызов возвращает тот же ключ
	key2, err := LoadOrCreateDeviceKey(path)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	// Другой файл дает другой ключ
	otherPath := filepath.Join(t.TempDir(), "device.json")
	key3, err := LoadOrCreateDeviceKey(otherPath)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3)
}
