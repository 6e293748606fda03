package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired возвращается, когда refresh+replay после 401 не
// восстановил доступ: сессия снесена, пользователю нужен новый логин
var ErrSessionExpired = errors.New("session expired, please log in again")

// Error представляет ошибку HTTP API с нормализованным сообщением
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsAuthError сообщает, является ли ошибка авторизационной (401/403).
// Только такой ответ считается авторитетным признаком невалидного токена;
// все остальные статусы трактуются как transient.
func (e *Error) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsDuplicate сообщает о повторной отправке одноразового кода
// (например, задублированный OAuth callback)
func (e *Error) IsDuplicate() bool {
	return e.StatusCode == http.StatusConflict
}

// IsAuthError проверяет err на авторизационную ошибку API
func IsAuthError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.IsAuthError()
}

// IsDuplicateError проверяет err на повтор одноразового кода
func IsDuplicateError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.IsDuplicate()
}
