package storage

import (
	"context"
	"time"

	"github.com/nleskin/repurpose/pkg/api"
)

//go:generate moq -out session_mock.go . SessionStorage

// SessionStorage defines interface for storing the authenticated session on client.
// This is the lowest storage layer - it works with raw data (already sealed tokens)
// and doesn't perform any encryption/decryption itself.
type SessionStorage interface {
	// SaveSession stores session data as-is (tokens should already be sealed)
	SaveSession(ctx context.Context, session *SessionData) error

	// GetSession retrieves stored session data as-is (tokens will be sealed)
	// Returns ErrSessionNotFound if no session exists
	GetSession(ctx context.Context) (*SessionData, error)

	// DeleteSession removes stored session data (logout)
	DeleteSession(ctx context.Context) error

	// SaveMarkers persists runtime markers (last login / last verification)
	SaveMarkers(ctx context.Context, markers *Markers) error

	// GetMarkers retrieves runtime markers; returns zero-value markers if none saved
	GetMarkers(ctx context.Context) (*Markers, error)

	// DeleteMarkers removes runtime markers
	DeleteMarkers(ctx context.Context) error
}

// SessionData represents the persisted session.
// IMPORTANT: This struct is used at different layers with different token states:
// - In memory (session manager): tokens are plaintext
// - In storage (BoltDB): tokens are sealed (base64-encoded ciphertext)
// The sealing/unsealing happens in the session.SealedStore layer.
type SessionData struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         api.UserProfile `json:"user"`
	ExpiresAt    int64           `json:"expires_at,omitempty"` // unix, exp из access token
}

// Markers хранит служебные отметки времени жизненного цикла сессии.
// Они нужны между запусками процесса: троттлинг фоновой проверки (раз в час)
// и подавление ложного teardown сразу после логина (30 секунд).
type Markers struct {
	LastLoginAt    time.Time `json:"last_login_at"`
	LastVerifiedAt time.Time `json:"last_verified_at"`
}
