package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nleskin/repurpose/internal/client/api"
	"github.com/nleskin/repurpose/internal/client/cache"
	"github.com/nleskin/repurpose/internal/client/events"
	"github.com/nleskin/repurpose/internal/client/storage"
	"github.com/nleskin/repurpose/internal/client/storage/sqlite"
	"github.com/nleskin/repurpose/internal/models"
	pkgapi "github.com/nleskin/repurpose/pkg/api"
)

const testUserID = "user-1"

type fakeIdentity struct {
	userID string
}

func (f *fakeIdentity) IsAuthenticated() bool { return f.userID != "" }
func (f *fakeIdentity) UserID() string        { return f.userID }

type contentServer struct {
	*httptest.Server

	generateCalls atomic.Int64
	usageCalls    atomic.Int64
	historyCalls  atomic.Int64
}

func newContentServer(t *testing.T) *contentServer {
	t.Helper()
	s := &contentServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/content/generate", func(w http.ResponseWriter, r *http.Request) {
		s.generateCalls.Add(1)
		var req pkgapi.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, pkgapi.GenerateResponse{
			ID: "gen-1",
			Posts: []pkgapi.GeneratedPost{
				{Platform: pkgapi.PlatformThread, Body: "thread body"},
				{Platform: pkgapi.PlatformCarousel, Title: "Slides", Slides: []string{"one", "two", "three"}},
			},
			CreatedAt: time.Now().UTC(),
		})
	})
	mux.HandleFunc("GET /api/v1/usage", func(w http.ResponseWriter, r *http.Request) {
		s.usageCalls.Add(1)
		writeJSON(w, pkgapi.UsageStats{
			UserID:          testUserID,
			GenerationsUsed: int(s.generateCalls.Load()),
			GenerationsMax:  10,
		})
	})
	mux.HandleFunc("GET /api/v1/content/history", func(w http.ResponseWriter, r *http.Request) {
		s.historyCalls.Add(1)
		writeJSON(w, pkgapi.HistoryResponse{
			Entries: []pkgapi.HistoryEntry{{ID: "gen-1", Source: pkgapi.SourceText}},
			Total:   1,
		})
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type staticTokens struct{}

func (staticTokens) AccessToken() string                   { return "test-token" }
func (staticTokens) RefreshAccess(_ context.Context) error { return nil }
func (staticTokens) ExpireSession(_ context.Context)       {}

type serviceFixture struct {
	service *Service
	server  *contentServer
	posts   *sqlite.Storage
	cache   *cache.Cache
	bus     *events.Bus
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	server := newContentServer(t)
	client := api.NewClient(server.URL)
	client.SetTokenSource(staticTokens{})

	posts, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = posts.Close() })

	c := cache.New()
	bus := events.NewBus(nil)
	t.Cleanup(bus.Close)

	svc := NewService(client, posts, c, bus, &fakeIdentity{userID: testUserID}, nil)

	return &serviceFixture{service: svc, server: server, posts: posts, cache: c, bus: bus}
}

func TestService_UsageCached(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.service.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, first.GenerationsMax)

	// Повторное чтение в пределах TTL не ходит в сеть
	_, err = f.service.Usage(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.server.usageCalls.Load())
}

func TestService_HistoryCached(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.service.History(ctx)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)

	_, err = f.service.History(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.server.historyCalls.Load())
}

func TestService_GenerateInvalidatesUsage(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	usage, err := f.service.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.GenerationsUsed)

	updated, cancel := f.bus.Subscribe(events.TopicUsageUpdated)
	defer cancel()

	resp, err := f.service.Generate(ctx, pkgapi.GenerateRequest{
		Source:  pkgapi.SourceText,
		Content: "long article text",
	})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", resp.ID)
	require.Len(t, resp.Posts, 2)

	// Квота перечитывается после генерации
	usage, err = f.service.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.GenerationsUsed)
	assert.EqualValues(t, 2, f.server.usageCalls.Load())

	select {
	case ev := <-updated:
		assert.Equal(t, testUserID, ev.UserID)
	case <-time.After(time.Second):
		t.Fatal("no usage updated event")
	}
}

func TestService_SaveJoinsCarouselSlides(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	saved, err := f.service.Save(ctx, "gen-1", pkgapi.GeneratedPost{
		Platform: pkgapi.PlatformCarousel,
		Title:    "Slides",
		Slides:   []string{"one", "two", "three"},
	}, pkgapi.SourceText, "")
	require.NoError(t, err)

	assert.Equal(t, "one"+models.SlideSeparator+"two"+models.SlideSeparator+"three", saved.Body)
	assert.Equal(t, testUserID, saved.UserID)
	assert.NotEmpty(t, saved.ID)

	got, err := f.service.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Body, got.Body)
}

func TestService_SavePlainBody(t *testing.T) {
	f := newServiceFixture(t)

	saved, err := f.service.Save(context.Background(), "gen-1", pkgapi.GeneratedPost{
		Platform: pkgapi.PlatformThread,
		Body:     "thread body",
	}, pkgapi.SourceURL, "https://example.com/article")
	require.NoError(t, err)

	assert.Equal(t, "thread body", saved.Body)
	assert.Equal(t, "https://example.com/article", saved.SourceRef)
}

func TestService_ListAndDelete(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	saved, err := f.service.Save(ctx, "gen-1", pkgapi.GeneratedPost{
		Platform: pkgapi.PlatformPost,
		Body:     "post body",
	}, pkgapi.SourceText, "")
	require.NoError(t, err)

	posts, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	require.NoError(t, f.service.Delete(ctx, saved.ID))

	posts, err = f.service.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)

	assert.ErrorIs(t, f.service.Delete(ctx, saved.ID), storage.ErrPostNotFound)
}

func TestService_ExportMarkdown(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	saved, err := f.service.Save(ctx, "gen-1", pkgapi.GeneratedPost{
		Platform: pkgapi.PlatformPost,
		Title:    "My Post",
		Body:     "post body",
	}, pkgapi.SourceURL, "https://example.com/article")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export", "post.md")
	require.NoError(t, f.service.Export(ctx, saved.ID, path, ExportMarkdown))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# My Post")
	assert.Contains(t, text, "post body")
	assert.Contains(t, text, "https://example.com/article")
}

func TestService_ExportJSON(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	saved, err := f.service.Save(ctx, "gen-1", pkgapi.GeneratedPost{
		Platform: pkgapi.PlatformThread,
		Body:     "body",
	}, pkgapi.SourceText, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "post.json")
	require.NoError(t, f.service.Export(ctx, saved.ID, path, ExportJSON))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got models.SavedPost
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, saved.ID, got.ID)
}

func TestService_ExportErrors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	err := f.service.Export(ctx, "missing", filepath.Join(t.TempDir(), "x.md"), ExportMarkdown)
	assert.ErrorIs(t, err, storage.ErrPostNotFound)

	saved, err := f.service.Save(ctx, "gen-1", pkgapi.GeneratedPost{Platform: pkgapi.PlatformPost, Body: "b"}, pkgapi.SourceText, "")
	require.NoError(t, err)

	err = f.service.Export(ctx, saved.ID, filepath.Join(t.TempDir(), "x.xml"), "xml")
	assert.ErrorIs(t, err, ErrUnknownExportFormat)
}

func TestService_WarmupOnSessionEstablished(t *testing.T) {
	f := newServiceFixture(t)

	f.bus.Publish(events.Event{Topic: events.TopicSessionEstablished, UserID: testUserID})

	assert.Eventually(t, func() bool {
		return f.server.usageCalls.Load() >= 1 && f.server.historyCalls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond, "usage and history must be warmed after login")

	// Прогретые записи читаются без новых запросов
	_, err := f.service.Usage(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.server.usageCalls.Load())
}