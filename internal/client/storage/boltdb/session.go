package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/nleskin/repurpose/internal/client/storage"
)

var (
	sessionKey = []byte("current")
	markersKey = []byte("current")
)

// Compile-time check that Storage implements storage.SessionStorage
var _ storage.SessionStorage = (*Storage)(nil)

// SaveSession stores session data
func (s *Storage) SaveSession(ctx context.Context, session *storage.SessionData) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		// Сериализуем данные в JSON
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session data: %w", err)
		}

		if err := bucket.Put(sessionKey, data); err != nil {
			return fmt.Errorf("failed to save session data: %w", err)
		}

		return nil
	})
}

// GetSession retrieves stored session data
func (s *Storage) GetSession(ctx context.Context) (*storage.SessionData, error) {
	var session *storage.SessionData

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		data := bucket.Get(sessionKey)
		if data == nil {
			return storage.ErrSessionNotFound
		}

		session = &storage.SessionData{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("failed to unmarshal session data: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return session, nil
}

// DeleteSession removes stored session data (logout)
func (s *Storage) DeleteSession(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		// Проверяем существование данных
		if bucket.Get(sessionKey) == nil {
			return storage.ErrSessionNotFound
		}

		if err := bucket.Delete(sessionKey); err != nil {
			return fmt.Errorf("failed to delete session data: %w", err)
		}

		return nil
	})
}

// SaveMarkers persists runtime markers
func (s *Storage) SaveMarkers(ctx context.Context, markers *storage.Markers) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMarkers)
		if bucket == nil {
			return fmt.Errorf("markers bucket not found")
		}

		data, err := json.Marshal(markers)
		if err != nil {
			return fmt.Errorf("failed to marshal markers: %w", err)
		}

		if err := bucket.Put(markersKey, data); err != nil {
			return fmt.Errorf("failed to save markers: %w", err)
		}

		return nil
	})
}

// GetMarkers retrieves runtime markers; returns zero-value markers if none saved
func (s *Storage) GetMarkers(ctx context.Context) (*storage.Markers, error) {
	markers := &storage.Markers{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMarkers)
		if bucket == nil {
			return fmt.Errorf("markers bucket not found")
		}

		data := bucket.Get(markersKey)
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, markers); err != nil {
			return fmt.Errorf("failed to unmarshal markers: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return markers, nil
}

// DeleteMarkers removes runtime markers
func (s *Storage) DeleteMarkers(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMarkers)
		if bucket == nil {
			return fmt.Errorf("markers bucket not found")
		}

		if bucket.Get(markersKey) == nil {
			return nil
		}

		if err := bucket.Delete(markersKey); err != nil {
			return fmt.Errorf("failed to delete markers: %w", err)
		}

		return nil
	})
}
