package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nleskin/repurpose/internal/client/storage"
	"github.com/nleskin/repurpose/internal/models"
)

// Compile-time check that Storage implements storage.PostStorage
var _ storage.PostStorage = (*Storage)(nil)

// SavePost создает или обновляет запись в локальной библиотеке
func (s *Storage) SavePost(ctx context.Context, post *models.SavedPost) error {
	query := `
		INSERT INTO saved_posts (id, user_id, generation_id, platform, title, body, source, source_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body
	`

	_, err := s.db.ExecContext(ctx, query,
		post.ID,
		post.UserID,
		post.GenerationID,
		post.Platform,
		post.Title,
		post.Body,
		post.Source,
		post.SourceRef,
		post.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}

	return nil
}

// GetPost возвращает запись по id
// Returns storage.ErrPostNotFound if the post does not exist
func (s *Storage) GetPost(ctx context.Context, id string) (*models.SavedPost, error) {
	query := `
		SELECT id, user_id, generation_id, platform, title, body, source, source_ref, created_at
		FROM saved_posts
		WHERE id = ?
	`

	post, err := scanPost(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// ListPosts возвращает записи пользователя, новые первыми
func (s *Storage) ListPosts(ctx context.Context, userID string) ([]*models.SavedPost, error) {
	query := `
		SELECT id, user_id, generation_id, platform, title, body, source, source_ref, created_at
		FROM saved_posts
		WHERE user_id = ?
		ORDER BY created_at DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var posts []*models.SavedPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return posts, nil
}

// DeletePost удаляет запись из библиотеки
// Returns storage.ErrPostNotFound if the post does not exist
func (s *Storage) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM saved_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrPostNotFound
	}

	return nil
}

// scanner покрывает *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.SavedPost, error) {
	var post models.SavedPost
	var createdAt int64

	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.GenerationID,
		&post.Platform,
		&post.Title,
		&post.Body,
		&post.Source,
		&post.SourceRef,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	post.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &post, nil
}
