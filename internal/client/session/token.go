package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry извлекает exp из access token без проверки подписи.
// Подпись проверяет сервер; клиенту claim нужен только для отображения
// срока и решения о проактивном refresh. Возвращает нулевое время для
// непрозрачных токенов.
func tokenExpiry(tokenString string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
