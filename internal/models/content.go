package models

import "time"

// SavedPost представляет сохраненный в локальной библиотеке пост
type SavedPost struct {
	ID           string    `json:"id"`                      // UUID записи
	UserID       string    `json:"user_id"`                 // владелец (UUID пользователя)
	GenerationID string    `json:"generation_id,omitempty"` // id генерации на сервере
	Platform     string    `json:"platform"`                // thread / post / carousel
	Title        string    `json:"title,omitempty"`
	Body         string    `json:"body"` // текст поста; для carousel слайды разделены SlideSeparator
	Source       string    `json:"source"`
	SourceRef    string    `json:"source_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SlideSeparator разделяет слайды карусели внутри Body
const SlideSeparator = "\n\n---\n\n"
