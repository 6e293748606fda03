package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nleskin/repurpose/internal/client/api"
	"github.com/nleskin/repurpose/internal/client/cache"
	"github.com/nleskin/repurpose/internal/client/events"
	"github.com/nleskin/repurpose/internal/client/storage"
	"github.com/nleskin/repurpose/internal/validation"
	pkgapi "github.com/nleskin/repurpose/pkg/api"
)

const (
	// VerifyInterval - фоновая проверка сессии не чаще раза в час
	VerifyInterval = time.Hour

	// LoginGracePeriod подавляет teardown по 401 сразу после логина:
	// проверка могла уйти со старым токеном и проиграть гонку
	LoginGracePeriod = 30 * time.Second

	// Параметры wait-and-check при задублированном federated-коде
	duplicateWaitAttempts = 5
	duplicateWaitBackoff  = 300 * time.Millisecond
)

// Manager - единственный владелец сессии: кто залогинен и с каким credential.
// Все мутации идут через его операции; компоненты читают состояние через
// снапшоты и подписку на events.Bus.
type Manager struct {
	api    *api.Client
	store  storage.SessionStorage
	cache  *cache.Cache
	bus    *events.Bus
	logger *slog.Logger

	mu      sync.RWMutex
	session *Session
	state   State
	markers storage.Markers

	wg sync.WaitGroup

	// now подменяется в тестах
	now func() time.Time
}

// Compile-time check that Manager implements api.TokenSource
var _ api.TokenSource = (*Manager)(nil)

// NewManager создает менеджер сессии.
// store обычно - SealedStore поверх boltdb.
func NewManager(apiClient *api.Client, store storage.SessionStorage, c *cache.Cache, bus *events.Bus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		api:    apiClient,
		store:  store,
		cache:  c,
		bus:    bus,
		logger: logger,
		state:  StateUninitialized,
		now:    time.Now,
	}
}

// Initialize восстанавливает сессию из хранилища при старте процесса.
// Восстановление оптимистичное: сессия сразу доступна как tentative, а
// подтверждение у сервера выполняется в фоне и не чаще раза в час.
func (m *Manager) Initialize(ctx context.Context) error {
	// 1. Читаем persisted сессию
	data, err := m.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			m.setAnonymous()
			return nil
		}
		m.setAnonymous()
		return fmt.Errorf("failed to restore session: %w", err)
	}

	// 2. Читаем markers троттлинга
	markers, err := m.store.GetMarkers(ctx)
	if err != nil {
		m.logger.Warn("failed to load session markers", "error", err)
		markers = &storage.Markers{}
	}

	// 3. Оптимистично поднимаем сессию в память
	m.mu.Lock()
	m.session = sessionFromData(data)
	m.state = StateTentative
	m.markers = *markers
	userID := m.session.User.ID
	needVerify := m.now().Sub(markers.LastVerifiedAt) > VerifyInterval
	m.mu.Unlock()

	m.publish(events.TopicSessionRestored, userID)

	// 4. Фоновая best-effort проверка, если час с последней истек
	if needVerify {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), api.VerifyTimeout)
			defer cancel()
			m.verify(vctx)
		}()
	}

	return nil
}

// verify сверяет сессию с сервером. 401/403 - единственный авторитетный
// признак невалидного credential: тогда одна попытка refresh, при неудаче -
// teardown. Любая другая ошибка считается транзиентной и сессию не трогает
// (fail-open: доступность важнее строгой корректности, см. DESIGN.md).
func (m *Manager) verify(ctx context.Context) {
	profile, err := m.api.Me(ctx)
	if err == nil {
		m.confirm(ctx, profile)
		return
	}

	if !api.IsAuthError(err) {
		m.logger.Debug("session verification failed transiently, keeping session", "error", err)
		return
	}

	// Сразу после логина 401 может быть гонкой со старым токеном
	m.mu.RLock()
	recentLogin := m.now().Sub(m.markers.LastLoginAt) <= LoginGracePeriod
	m.mu.RUnlock()
	if recentLogin {
		m.logger.Debug("ignoring auth failure right after login", "error", err)
		return
	}

	if refreshErr := m.Refresh(ctx); refreshErr != nil {
		m.logger.Info("session verification failed and refresh did not recover, tearing down",
			"verify_error", err, "refresh_error", refreshErr)
		m.teardown(ctx)
		return
	}

	// Refresh удался - повторяем проверку с новым токеном
	profile, err = m.api.Me(ctx)
	if err != nil {
		if api.IsAuthError(err) {
			m.teardown(ctx)
		} else {
			m.logger.Debug("post-refresh verification failed transiently", "error", err)
		}
		return
	}
	m.confirm(ctx, profile)
}

// confirm фиксирует подтвержденную сервером сессию
func (m *Manager) confirm(ctx context.Context, profile *pkgapi.UserProfile) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	m.session.User = *profile
	m.state = StateAuthenticated
	m.markers.LastVerifiedAt = m.now()
	data := m.session.data()
	markers := m.markers
	userID := profile.ID
	m.mu.Unlock()

	if err := m.store.SaveSession(ctx, data); err != nil {
		m.logger.Warn("failed to persist verified session", "error", err)
	}
	if err := m.store.SaveMarkers(ctx, &markers); err != nil {
		m.logger.Warn("failed to persist markers", "error", err)
	}

	m.publish(events.TopicSessionConfirmed, userID)
}

// Login обменивает credentials на пару токенов и устанавливает сессию
func (m *Manager) Login(ctx context.Context, email, password string) error {
	// Валидация входных данных
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	resp, err := m.api.Login(ctx, pkgapi.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	return m.establish(ctx, resp)
}

// Register регистрирует нового пользователя.
// Возвращает true, если сервер сразу выдал токены и сессия установлена;
// false, если аккаунту требуется подтверждение email.
func (m *Manager) Register(ctx context.Context, email, username, password, fullName string) (bool, error) {
	// Валидация входных данных
	if err := validation.ValidateEmail(email); err != nil {
		return false, fmt.Errorf("invalid email: %w", err)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return false, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return false, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := m.api.Register(ctx, pkgapi.RegisterRequest{
		Email:    email,
		Username: username,
		Password: password,
		FullName: fullName,
	})
	if err != nil {
		return false, fmt.Errorf("registration failed: %w", err)
	}

	// Сервер может потребовать подтверждение email до выдачи токенов
	if resp.RequiresVerification || resp.AccessToken == "" {
		return false, nil
	}

	if err := m.establish(ctx, &pkgapi.TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	}); err != nil {
		return false, err
	}

	return true, nil
}

// LoginWithGoogle обменивает Google ID token на сессию.
// Задублированный одноразовый код (повторный OAuth callback) не считается
// ошибкой: параллельный запрос мог уже записать токены в хранилище, поэтому
// выполняется ограниченный wait-and-check вместо немедленного отказа.
func (m *Manager) LoginWithGoogle(ctx context.Context, idToken string) error {
	resp, err := m.api.GoogleLogin(ctx, pkgapi.GoogleLoginRequest{IDToken: idToken})
	if err != nil {
		if api.IsDuplicateError(err) {
			if waitErr := m.waitForSiblingSession(ctx); waitErr == nil {
				return nil
			}
			return fmt.Errorf("google login failed: %w", err)
		}
		return fmt.Errorf("google login failed: %w", err)
	}

	return m.establish(ctx, resp)
}

// waitForSiblingSession опрашивает хранилище, ожидая токены, записанные
// параллельным успешным запросом. Ограниченное число попыток с фиксированным
// backoff.
func (m *Manager) waitForSiblingSession(ctx context.Context) error {
	backoff := retry.WithMaxRetries(duplicateWaitAttempts, retry.NewConstant(duplicateWaitBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		restored, err := m.ForceRestore(ctx)
		if err != nil {
			return err
		}
		if !restored {
			return retry.RetryableError(errNoSiblingSession)
		}
		return nil
	})
}

// establish устанавливает сессию из ответа сервера и полностью сохраняет ее
// до возврата: code, дождавшийся вызова, видит консистентное состояние
func (m *Manager) establish(ctx context.Context, resp *pkgapi.TokenResponse) error {
	if resp.AccessToken == "" || resp.User == nil {
		return fmt.Errorf("server returned incomplete token response")
	}

	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         *resp.User,
	}
	if exp := tokenExpiry(resp.AccessToken); !exp.IsZero() {
		session.ExpiresAt = exp.Unix()
	}

	now := m.now()

	m.mu.Lock()
	m.session = session
	m.state = StateAuthenticated
	m.markers = storage.Markers{
		LastLoginAt:    now,
		LastVerifiedAt: now, // логин сам по себе авторитетная проверка
	}
	data := session.data()
	markers := m.markers
	m.mu.Unlock()

	if err := m.store.SaveSession(ctx, data); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if err := m.store.SaveMarkers(ctx, &markers); err != nil {
		m.logger.Warn("failed to persist markers", "error", err)
	}

	m.publish(events.TopicSessionEstablished, session.User.ID)

	return nil
}

// Refresh обменивает refresh token на новый access token.
// Меняется только access token: refresh token и профиль нетронуты.
// При отсутствии refresh token или неудаче обмена сессия не мутируется.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	var refreshToken string
	if m.session != nil {
		refreshToken = m.session.RefreshToken
	}
	m.mu.RUnlock()

	if refreshToken == "" {
		m.logger.Debug("refresh requested without refresh token")
		return ErrNoRefreshToken
	}

	resp, err := m.api.Refresh(ctx, pkgapi.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		m.logger.Debug("token refresh failed", "error", err)
		return fmt.Errorf("refresh failed: %w", err)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("refresh returned empty access token")
	}

	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.session.AccessToken = resp.AccessToken
	if exp := tokenExpiry(resp.AccessToken); !exp.IsZero() {
		m.session.ExpiresAt = exp.Unix()
	}
	data := m.session.data()
	m.mu.Unlock()

	if err := m.store.SaveSession(ctx, data); err != nil {
		return fmt.Errorf("failed to persist refreshed session: %w", err)
	}

	return nil
}

// Logout сносит сессию целиком: память, хранилище, производные кеши.
// Идемпотентен: без сессии не пишет в хранилище и не шлет событий.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.RLock()
	session := m.session
	m.mu.RUnlock()

	if session == nil {
		// Хранилище могло остаться от другого процесса
		if _, err := m.store.GetSession(ctx); errors.Is(err, storage.ErrSessionNotFound) {
			return nil
		}
	}

	// Best effort уведомляем сервер, пока bearer еще на месте
	if session != nil {
		if err := m.api.Logout(ctx); err != nil {
			m.logger.Warn("failed to logout on server", "error", err)
		}
	}

	m.mu.Lock()
	m.session = nil
	m.state = StateAnonymous
	m.markers = storage.Markers{}
	m.mu.Unlock()

	// Всегда удаляем локальные данные, даже если сервер недоступен
	if err := m.store.DeleteSession(ctx); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete local session: %w", err)
	}
	if err := m.store.DeleteMarkers(ctx); err != nil {
		m.logger.Warn("failed to delete markers", "error", err)
	}

	if session != nil {
		// Сбрасываем производные per-user записи кеша
		if m.cache != nil {
			m.cache.InvalidateUser(session.User.ID)
		}
		m.publish(events.TopicSessionCleared, session.User.ID)
	}

	return nil
}

// teardown сносит сессию после неудачной верификации (истекший credential)
func (m *Manager) teardown(ctx context.Context) {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.state = StateAnonymous
	m.markers = storage.Markers{}
	m.mu.Unlock()

	if session == nil {
		return
	}

	if err := m.store.DeleteSession(ctx); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		m.logger.Warn("failed to delete session during teardown", "error", err)
	}
	if err := m.store.DeleteMarkers(ctx); err != nil {
		m.logger.Warn("failed to delete markers during teardown", "error", err)
	}

	if m.cache != nil {
		m.cache.InvalidateUser(session.User.ID)
	}
	m.publish(events.TopicSessionExpired, session.User.ID)
}

// UpdateUser отправляет частичное обновление профиля на сервер и применяет
// ответ к сессии. No-op без сессии.
func (m *Manager) UpdateUser(ctx context.Context, patch pkgapi.UserUpdate) error {
	if !m.IsAuthenticated() {
		return nil
	}

	profile, err := m.api.UpdateMe(ctx, patch)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	m.mu.Lock()
	if m.session == nil {
		// Сессия снесена, пока запрос был в полете
		m.mu.Unlock()
		return nil
	}
	// Серверный профиль авторитетен
	m.session.User = *profile
	data := m.session.data()
	m.mu.Unlock()

	if err := m.store.SaveSession(ctx, data); err != nil {
		return fmt.Errorf("failed to persist updated user: %w", err)
	}

	return nil
}

// ForceRestore синхронно перечитывает хранилище в память. Используется, когда
// токены записаны в обход менеджера (например, OAuth callback другого
// процесса). Возвращает, нашлась ли сессия.
func (m *Manager) ForceRestore(ctx context.Context) (bool, error) {
	data, err := m.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read session: %w", err)
	}

	m.mu.Lock()
	m.session = sessionFromData(data)
	m.state = StateTentative
	userID := m.session.User.ID
	m.mu.Unlock()

	m.publish(events.TopicSessionRestored, userID)

	return true, nil
}

// IsAuthenticated returns true if a session is held (tentative or confirmed)
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && m.session.AccessToken != "" && m.session.User.ID != ""
}

// Current возвращает снапшот сессии и состояние.
// Снапшот - копия: мутировать его бесполезно и безопасно.
func (m *Manager) Current() (Session, State) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, m.state
	}
	return *m.session, m.state
}

// UserID возвращает id пользователя текущей сессии, пустую строку без сессии
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.User.ID
}

// AccessToken реализует api.TokenSource
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// RefreshAccess реализует api.TokenSource: один refresh для 401-interceptor
func (m *Manager) RefreshAccess(ctx context.Context) error {
	return m.Refresh(ctx)
}

// ExpireSession реализует api.TokenSource: refresh+replay после 401 не
// восстановил доступ, сессия сносится немедленно
func (m *Manager) ExpireSession(ctx context.Context) {
	m.teardown(ctx)
}

// Close дожидается фоновых операций менеджера
func (m *Manager) Close() {
	m.wg.Wait()
}

func (m *Manager) setAnonymous() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	m.state = StateAnonymous
}

func (m *Manager) publish(topic events.Topic, userID string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{Topic: topic, UserID: userID})
}

// data собирает persisted-представление сессии (токены в открытом виде,
// запечатывание выполняет SealedStore)
func (s *Session) data() *storage.SessionData {
	return &storage.SessionData{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         s.User,
		ExpiresAt:    s.ExpiresAt,
	}
}

func sessionFromData(data *storage.SessionData) *Session {
	return &Session{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		User:         data.User,
		ExpiresAt:    data.ExpiresAt,
	}
}
