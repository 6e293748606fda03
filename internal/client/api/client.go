package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/nleskin/repurpose/pkg/api"
)

// Таймауты по видам вызовов
const (
	// DefaultTimeout - обычные интерактивные вызовы
	DefaultTimeout = 30 * time.Second
	// VerifyTimeout - фоновая проверка сессии и прогрев кеша
	VerifyTimeout = 5 * time.Second
	// GoogleExchangeTimeout - обмен OAuth кода/токена
	GoogleExchangeTimeout = 15 * time.Second
	// GenerateTimeout - основной вызов генерации контента
	GenerateTimeout = 120 * time.Second
)

// TokenSource отдает текущий access token и умеет его обновлять.
// Реализуется session.Manager; клиент через него выполняет
// один refresh+replay при 401.
type TokenSource interface {
	// AccessToken возвращает текущий bearer credential, пустая строка = нет сессии
	AccessToken() string

	// RefreshAccess обменивает refresh token на новый access token
	RefreshAccess(ctx context.Context) error

	// ExpireSession сносит сессию: refresh+replay после 401 не восстановил
	// доступ, credential мертв
	ExpireSession(ctx context.Context)
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu     sync.RWMutex
	tokens TokenSource
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Таймаут задается per-request контекстом в doRequest
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// SetTokenSource подключает источник токенов. Вызывается один раз при сборке
// приложения, после создания session.Manager.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
}

func (c *Client) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// requestOptions управляет авторизацией и таймаутом одного запроса
type requestOptions struct {
	timeout time.Duration
	auth    bool
	noRetry bool // не делать refresh+replay при 401 (сами auth-endpoints и verify)
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", req, &resp, requestOptions{})
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp, requestOptions{})
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// GoogleLogin обменивает Google ID token на пару токенов
func (c *Client) GoogleLogin(ctx context.Context, req api.GoogleLoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/google", req, &resp, requestOptions{
		timeout: GoogleExchangeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("google login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новый access token
func (c *Client) Refresh(ctx context.Context, req api.RefreshRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", req, &resp, requestOptions{})
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Me возвращает профиль текущего пользователя по bearer credential.
// 401/403 здесь - единственный авторитетный признак невалидного токена,
// поэтому refresh+replay не выполняется: решение принимает session.Manager.
func (c *Client) Me(ctx context.Context) (*api.UserProfile, error) {
	var resp api.UserProfile
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/auth/me", nil, &resp, requestOptions{
		auth:    true,
		noRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("me request failed: %w", err)
	}
	return &resp, nil
}

// UpdateMe применяет частичное обновление профиля
func (c *Client) UpdateMe(ctx context.Context, req api.UserUpdate) (*api.UserProfile, error) {
	var resp api.UserProfile
	err := c.doRequest(ctx, http.MethodPatch, "/api/v1/auth/me", req, &resp, requestOptions{auth: true})
	if err != nil {
		return nil, fmt.Errorf("update me request failed: %w", err)
	}
	return &resp, nil
}

// Logout уведомляет сервер о выходе (best effort)
func (c *Client) Logout(ctx context.Context) error {
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, requestOptions{
		auth:    true,
		noRetry: true,
	})
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any, opts requestOptions) error {
	timeout := opts.timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.do(ctx, method, path, body, result, opts.auth); err != nil {
		// Ровно одна попытка refresh+replay при 401; noRetry
		// защищает auth-endpoints от рекурсии
		var apiErr *Error
		if opts.auth && !opts.noRetry && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			tokens := c.tokenSource()
			if tokens == nil {
				return err
			}
			// Неудача единственного refresh либо повторный 401 после него
			// означают мертвый credential: сессия сносится сразу, а не
			// дожидается часовой фоновой проверки
			if refreshErr := tokens.RefreshAccess(ctx); refreshErr != nil {
				tokens.ExpireSession(ctx)
				return fmt.Errorf("%w: token refresh after 401 failed: %v", ErrSessionExpired, refreshErr)
			}
			replayErr := c.do(ctx, method, path, body, result, opts.auth)
			if IsAuthError(replayErr) {
				tokens.ExpireSession(ctx)
				return fmt.Errorf("%w: %v", ErrSessionExpired, replayErr)
			}
			return replayErr
		}
		return err
	}

	return nil
}

// do выполняет один HTTP запрос без retry-логики
func (c *Client) do(ctx context.Context, method, path string, body, result any, authed bool) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		if tokens := c.tokenSource(); tokens != nil {
			if token := tokens.AccessToken(); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}

		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			apiErr.Message = errResp.HumanMessage()
		}
		if apiErr.Message == "" {
			apiErr.Message = string(respBody)
		}

		return apiErr
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
