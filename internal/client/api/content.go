package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nleskin/repurpose/pkg/api"
)

// Generate запускает генерацию постов из текста или URL.
// Генерация на сервере долгая, поэтому таймаут отдельный (120s).
func (c *Client) Generate(ctx context.Context, req api.GenerateRequest) (*api.GenerateResponse, error) {
	var resp api.GenerateResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/content/generate", req, &resp, requestOptions{
		auth:    true,
		timeout: GenerateTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	return &resp, nil
}

// UsageStats возвращает квоту использования текущего пользователя
func (c *Client) UsageStats(ctx context.Context) (*api.UsageStats, error) {
	var resp api.UsageStats
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/usage", nil, &resp, requestOptions{auth: true})
	if err != nil {
		return nil, fmt.Errorf("usage stats request failed: %w", err)
	}
	return &resp, nil
}

// History возвращает историю генераций текущего пользователя
func (c *Client) History(ctx context.Context) (*api.HistoryResponse, error) {
	var resp api.HistoryResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/content/history", nil, &resp, requestOptions{auth: true})
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	return &resp, nil
}
