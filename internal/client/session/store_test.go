package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nleskin/repurpose/internal/client/storage"
	"github.com/nleskin/repurpose/internal/client/storage/boltdb"
	pkgapi "github.com/nleskin/repurpose/pkg/api"
)

func newTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func newTestBolt(t *testing.T) *boltdb.Storage {
	t.Helper()
	s, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSealedStore_InvalidKey(t *testing.T) {
	_, err := NewSealedStore(newTestBolt(t), []byte("short"))
	require.Error(t, err)
}

func TestSealedStore_RoundTrip(t *testing.T) {
	inner := newTestBolt(t)
	store, err := NewSealedStore(inner, newTestKey(t))
	require.NoError(t, err)

	ctx := context.Background()
	data := &storage.SessionData{
		AccessToken:  "access-token-plaintext",
		RefreshToken: "refresh-token-plaintext",
		User:         pkgapi.UserProfile{ID: "user-1", Email: "a@b.com"},
		ExpiresAt:    1700000000,
	}

	require.NoError(t, store.SaveSession(ctx, data))

	// Через sealed store токены возвращаются в открытом виде
	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-token-plaintext", got.AccessToken)
	assert.Equal(t, "refresh-token-plaintext", got.RefreshToken)
	assert.Equal(t, "user-1", got.User.ID)

	// В нижележащем хранилище лежит шифротекст
	raw, err := inner.GetSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "access-token-plaintext", raw.AccessToken)
	assert.NotEqual(t, "refresh-token-plaintext", raw.RefreshToken)
	assert.NotEmpty(t, raw.AccessToken)
}

func TestSealedStore_SaveDoesNotMutateInput(t *testing.T) {
	store, err := NewSealedStore(newTestBolt(t), newTestKey(t))
	require.NoError(t, err)

	data := &storage.SessionData{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         pkgapi.UserProfile{ID: "user-1"},
	}
	require.NoError(t, store.SaveSession(context.Background(), data))

	assert.Equal(t, "access", data.AccessToken)
	assert.Equal(t, "refresh", data.RefreshToken)
}

func TestSealedStore_WrongKey(t *testing.T) {
	inner := newTestBolt(t)
	ctx := context.Background()

	store, err := NewSealedStore(inner, newTestKey(t))
	require.NoError(t, err)
	require.NoError(t, store.SaveSession(ctx, &storage.SessionData{
		AccessToken: "access",
		User:        pkgapi.UserProfile{ID: "user-1"},
	}))

	otherKey := newTestKey(t)
	otherKey[0] ^= 0xFF
	other, err := NewSealedStore(inner, otherKey)
	require.NoError(t, err)

	_, err = other.GetSession(ctx)
	require.Error(t, err)
}

func TestSealedStore_MarkersPassThrough(t *testing.T) {
	store, err := NewSealedStore(newTestBolt(t), newTestKey(t))
	require.NoError(t, err)

	ctx := context.Background()
	markers := &storage.Markers{}
	require.NoError(t, store.SaveMarkers(ctx, markers))

	got, err := store.GetMarkers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)

	require.NoError(t, store.DeleteMarkers(ctx))
}
