package storage

import (
	"context"

	"github.com/nleskin/repurpose/internal/models"
)

//go:generate moq -out posts_mock.go . PostStorage

// PostStorage defines the interface for the local saved-post library
type PostStorage interface {
	// SavePost creates or updates a saved post
	SavePost(ctx context.Context, post *models.SavedPost) error

	// GetPost retrieves a saved post by id
	// Returns ErrPostNotFound if the post does not exist
	GetPost(ctx context.Context, id string) (*models.SavedPost, error)

	// ListPosts returns the user's saved posts, newest first
	ListPosts(ctx context.Context, userID string) ([]*models.SavedPost, error)

	// DeletePost removes a saved post
	// Returns ErrPostNotFound if the post does not exist
	DeletePost(ctx context.Context, id string) error
}
