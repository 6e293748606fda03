package session

import (
	"context"
	"fmt"

	"github.com/nleskin/repurpose/internal/client/storage"
	"github.com/nleskin/repurpose/internal/crypto"
)

// SealedStore implements storage.SessionStorage and provides a sealing layer
// between the session manager and raw storage. It encrypts tokens with the
// device key before saving and decrypts them when retrieving, so the bolt file
// never holds plaintext credentials.
type SealedStore struct {
	storage storage.SessionStorage
	key     []byte
}

// Compile-time check that SealedStore implements storage.SessionStorage
var _ storage.SessionStorage = (*SealedStore)(nil)

// NewSealedStore creates a sealing layer over raw storage
// key must be exactly 32 bytes (derived from the device secret)
func NewSealedStore(store storage.SessionStorage, key []byte) (*SealedStore, error) {
	if len(key) != crypto.KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", crypto.KeySize, len(key))
	}
	return &SealedStore{
		storage: store,
		key:     key,
	}, nil
}

// SaveSession запечатывает токены и передает данные в хранилище
func (s *SealedStore) SaveSession(ctx context.Context, session *storage.SessionData) error {
	if session == nil {
		return fmt.Errorf("session data is nil")
	}

	sealedAccess, err := crypto.EncryptToBase64([]byte(session.AccessToken), s.key)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}

	sealedRefresh, err := crypto.EncryptToBase64([]byte(session.RefreshToken), s.key)
	if err != nil {
		return fmt.Errorf("failed to seal refresh token: %w", err)
	}

	// Копируем структуру, чтобы не менять входящую
	sealed := *session
	sealed.AccessToken = sealedAccess
	sealed.RefreshToken = sealedRefresh

	return s.storage.SaveSession(ctx, &sealed)
}

// GetSession загружает данные из хранилища и распечатывает токены
func (s *SealedStore) GetSession(ctx context.Context) (*storage.SessionData, error) {
	stored, err := s.storage.GetSession(ctx)
	if err != nil {
		return nil, err
	}

	accessToken, err := crypto.DecryptFromBase64(stored.AccessToken, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal access token: %w", err)
	}

	refreshToken, err := crypto.DecryptFromBase64(stored.RefreshToken, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal refresh token: %w", err)
	}

	session := *stored
	session.AccessToken = string(accessToken)
	session.RefreshToken = string(refreshToken)

	return &session, nil
}

// DeleteSession удаляет данные сессии
func (s *SealedStore) DeleteSession(ctx context.Context) error {
	return s.storage.DeleteSession(ctx)
}

// SaveMarkers persists runtime markers (no sealing needed)
func (s *SealedStore) SaveMarkers(ctx context.Context, markers *storage.Markers) error {
	return s.storage.SaveMarkers(ctx, markers)
}

// GetMarkers retrieves runtime markers
func (s *SealedStore) GetMarkers(ctx context.Context) (*storage.Markers, error) {
	return s.storage.GetMarkers(ctx)
}

// DeleteMarkers removes runtime markers
func (s *SealedStore) DeleteMarkers(ctx context.Context) error {
	return s.storage.DeleteMarkers(ctx)
}
