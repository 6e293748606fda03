package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nleskin/repurpose/pkg/api"
)

// fakeTokenSource реализует TokenSource для тестов
type fakeTokenSource struct {
	refreshCalls atomic.Int64
	expireCalls  atomic.Int64
	token        atomic.Value // string
	refreshErr   error
	refreshedTo  string
}

func newFakeTokenSource(token string) *fakeTokenSource {
	ts := &fakeTokenSource{}
	ts.token.Store(token)
	return ts
}

func (ts *fakeTokenSource) AccessToken() string {
	return ts.token.Load().(string)
}

func (ts *fakeTokenSource) RefreshAccess(ctx context.Context) error {
	ts.refreshCalls.Add(1)
	if ts.refreshErr != nil {
		return ts.refreshErr
	}
	ts.token.Store(ts.refreshedTo)
	return nil
}

func (ts *fakeTokenSource) ExpireSession(ctx context.Context) {
	ts.expireCalls.Add(1)
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080")

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.httpClient)
}

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@b.com", req.Email)
		assert.Equal(t, "password123", req.Password)

		resp := api.TokenResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			User:         &api.UserProfile{ID: "user-42", Email: "a@b.com"},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.Login(context.Background(), api.LoginRequest{Email: "a@b.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "access-1", resp.AccessToken)
	assert.Equal(t, "refresh-1", resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "user-42", resp.User.ID)
}

func TestClient_Login_ErrorNormalization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": [{"msg": "field required"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Login(context.Background(), api.LoginRequest{})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "field required", apiErr.Message)
	assert.False(t, apiErr.IsAuthError())
}

func TestClient_BearerInjection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(api.UsageStats{UserID: "user-42", GenerationsMax: 10})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetTokenSource(newFakeTokenSource("token-abc"))

	stats, err := client.UsageStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.GenerationsMax)
}

func TestClient_RefreshAndReplayOn401(t *testing.T) {
	var requests atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Authorization") != "Bearer token-new" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail": "token expired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(api.UsageStats{UserID: "user-42"})
	}))
	defer server.Close()

	ts := newFakeTokenSource("token-old")
	ts.refreshedTo = "token-new"

	client := NewClient(server.URL)
	client.SetTokenSource(ts)

	_, err := client.UsageStats(context.Background())
	require.NoError(t, err)

	// Ровно один refresh и ровно один replay
	assert.Equal(t, int64(1), ts.refreshCalls.Load())
	assert.Equal(t, int64(2), requests.Load())
}

func TestClient_NoRefreshLoopWhenRefreshFails(t *testing.T) {
	var requests atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "token revoked"}`))
	}))
	defer server.Close()

	ts := newFakeTokenSource("token-old")
	ts.refreshErr = assert.AnError

	client := NewClient(server.URL)
	client.SetTokenSource(ts)

	_, err := client.UsageStats(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, int64(1), ts.refreshCalls.Load())
	assert.Equal(t, int64(1), requests.Load(), "failed refresh must not replay the request")
	assert.Equal(t, int64(1), ts.expireCalls.Load(), "dead credential must expire the session")
}

func TestClient_ExpireWhenReplayStillUnauthorized(t *testing.T) {
	var requests atomic.Int64

	// Refresh "удается", но сервер отвергает и новый токен
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "token revoked"}`))
	}))
	defer server.Close()

	ts := newFakeTokenSource("token-old")
	ts.refreshedTo = "token-new"

	client := NewClient(server.URL)
	client.SetTokenSource(ts)

	_, err := client.UsageStats(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, int64(1), ts.refreshCalls.Load())
	assert.Equal(t, int64(2), requests.Load(), "exactly one replay, no retry loop")
	assert.Equal(t, int64(1), ts.expireCalls.Load())
}

func TestClient_Me_NoAutoRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "invalid token"}`))
	}))
	defer server.Close()

	ts := newFakeTokenSource("token-abc")
	client := NewClient(server.URL)
	client.SetTokenSource(ts)

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int64(0), ts.refreshCalls.Load(), "verify endpoint must not trigger the interceptor")
}

func TestClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/content/generate", r.URL.Path)

		var req api.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, api.SourceURL, req.Source)

		resp := api.GenerateResponse{
			ID: "gen-1",
			Posts: []api.GeneratedPost{
				{Platform: api.PlatformThread, Body: "1/ ..."},
				{Platform: api.PlatformCarousel, Slides: []string{"s1", "s2"}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetTokenSource(newFakeTokenSource("token-abc"))

	resp, err := client.Generate(context.Background(), api.GenerateRequest{
		Source: api.SourceURL,
		URL:    "https://example.com/article",
	})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", resp.ID)
	assert.Len(t, resp.Posts, 2)
}

func TestClient_UpdateMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/auth/me", r.URL.Path)

		var req api.UserUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.FullName)

		resp := api.UserProfile{ID: "user-1", FullName: *req.FullName}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetTokenSource(newFakeTokenSource("token-abc"))

	name := "New Name"
	profile, err := client.UpdateMe(context.Background(), api.UserUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", profile.FullName)
}

func TestClient_DuplicateDetection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail": "code already used"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.GoogleLogin(context.Background(), api.GoogleLoginRequest{IDToken: "dup-token"})
	require.Error(t, err)
	assert.True(t, IsDuplicateError(err))
}
