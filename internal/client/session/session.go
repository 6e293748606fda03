package session

import (
	"errors"

	"github.com/nleskin/repurpose/pkg/api"
)

// State описывает фазу жизненного цикла сессии в этом процессе
type State int

const (
	// StateUninitialized - Initialize еще не вызывался
	StateUninitialized State = iota
	// StateAnonymous - сессии нет
	StateAnonymous
	// StateTentative - сессия оптимистично восстановлена из хранилища,
	// но сервером еще не подтверждена
	StateTentative
	// StateAuthenticated - сессия установлена логином или подтверждена сервером
	StateAuthenticated
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAnonymous:
		return "anonymous"
	case StateTentative:
		return "tentative"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session представляет сессию в памяти процесса (токены в открытом виде).
// Инвариант: user и accessToken всегда выставляются и сбрасываются вместе -
// наружу не видно состояния, где есть одно без другого.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         api.UserProfile
	ExpiresAt    int64 // unix, exp из access token; 0 если токен непрозрачный
}

// Session manager errors
var (
	// ErrNotAuthenticated indicates that no session exists
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoRefreshToken indicates that refresh is impossible
	ErrNoRefreshToken = errors.New("no refresh token held")

	// errNoSiblingSession - wait-and-check не дождался токенов от
	// параллельного запроса
	errNoSiblingSession = errors.New("no session written by sibling request")
)
