// Package content реализует генерацию постов и локальную библиотеку
// сохраненного контента поверх серверного API и sqlite.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nleskin/repurpose/internal/client/api"
	"github.com/nleskin/repurpose/internal/client/cache"
	"github.com/nleskin/repurpose/internal/client/events"
	"github.com/nleskin/repurpose/internal/client/storage"
	"github.com/nleskin/repurpose/internal/models"
	pkgapi "github.com/nleskin/repurpose/pkg/api"
)

// Ресурсы для ключей кеша
const (
	resourceUsage   = "usage-stats"
	resourceHistory = "content-history"
)

// Форматы экспорта
const (
	ExportMarkdown = "markdown"
	ExportJSON     = "json"
)

// ErrUnknownExportFormat возвращается для неподдерживаемого формата экспорта
var ErrUnknownExportFormat = errors.New("unknown export format")

// Identity отдает пользователя текущей сессии
type Identity interface {
	IsAuthenticated() bool
	UserID() string
}

// Service обслуживает генерацию контента, историю, квоты и библиотеку.
// История и квоты ходят через request cache: повторные чтения в пределах TTL
// не порождают сетевых запросов, а конкурентные схлопываются в один.
type Service struct {
	api      *api.Client
	posts    storage.PostStorage
	cache    *cache.Cache
	bus      *events.Bus
	identity Identity
	logger   *slog.Logger
}

// NewService создает сервис контента и подписывает прогрев кеша на
// установление сессии
func NewService(apiClient *api.Client, posts storage.PostStorage, c *cache.Cache, bus *events.Bus, identity Identity, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		api:      apiClient,
		posts:    posts,
		cache:    c,
		bus:      bus,
		identity: identity,
		logger:   logger,
	}

	if bus != nil {
		// Прогрев best effort: логин не должен ждать и не должен падать
		// из-за недоступных usage/history
		bus.SubscribeFunc(events.TopicSessionEstablished, func(ev events.Event) {
			s.warmup(ev.UserID)
		})
	}

	return s
}

// Generate запускает генерацию постов и инвалидирует производные от квоты
// данные: следующая проверка usage увидит свежий счетчик
func (s *Service) Generate(ctx context.Context, req pkgapi.GenerateRequest) (*pkgapi.GenerateResponse, error) {
	resp, err := s.api.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	userID := s.identity.UserID()
	s.cache.Invalidate(cache.Key(resourceUsage, userID))
	s.cache.Invalidate(cache.Key(resourceHistory, userID))

	if s.bus != nil {
		s.bus.Publish(events.Event{Topic: events.TopicUsageUpdated, UserID: userID})
	}

	return resp, nil
}

// Usage возвращает квоту пользователя через request cache
func (s *Service) Usage(ctx context.Context) (*pkgapi.UsageStats, error) {
	userID := s.identity.UserID()
	return cache.Get[*pkgapi.UsageStats](ctx, s.cache, cache.Key(resourceUsage, userID), cache.DefaultTTL,
		func(ctx context.Context) (*pkgapi.UsageStats, error) {
			return s.api.UsageStats(ctx)
		})
}

// History возвращает историю генераций через request cache
func (s *Service) History(ctx context.Context) (*pkgapi.HistoryResponse, error) {
	userID := s.identity.UserID()
	return cache.Get[*pkgapi.HistoryResponse](ctx, s.cache, cache.Key(resourceHistory, userID), cache.DefaultTTL,
		func(ctx context.Context) (*pkgapi.HistoryResponse, error) {
			return s.api.History(ctx)
		})
}

// Save кладет сгенерированный пост в локальную библиотеку.
// Слайды карусели склеиваются в одно тело с разделителем.
func (s *Service) Save(ctx context.Context, generationID string, post pkgapi.GeneratedPost, source, sourceRef string) (*models.SavedPost, error) {
	body := post.Body
	if post.Platform == pkgapi.PlatformCarousel && len(post.Slides) > 0 {
		body = strings.Join(post.Slides, models.SlideSeparator)
	}

	saved := &models.SavedPost{
		ID:           uuid.New().String(),
		UserID:       s.identity.UserID(),
		GenerationID: generationID,
		Platform:     post.Platform,
		Title:        post.Title,
		Body:         body,
		Source:       source,
		SourceRef:    sourceRef,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.posts.SavePost(ctx, saved); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	return saved, nil
}

// List возвращает сохраненные посты текущего пользователя, новые первыми
func (s *Service) List(ctx context.Context) ([]*models.SavedPost, error) {
	return s.posts.ListPosts(ctx, s.identity.UserID())
}

// Get возвращает сохраненный пост по id
func (s *Service) Get(ctx context.Context, id string) (*models.SavedPost, error) {
	return s.posts.GetPost(ctx, id)
}

// Delete удаляет пост из библиотеки
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.posts.DeletePost(ctx, id)
}

// Export выгружает сохраненный пост в файл в формате markdown или json
func (s *Service) Export(ctx context.Context, id, path, format string) error {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case ExportMarkdown:
		data = []byte(renderMarkdown(post))
	case ExportJSON:
		data, err = json.MarshalIndent(post, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal post: %w", err)
		}
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExportFormat, format)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	return nil
}

// warmup заранее прогревает usage и history после логина.
// Ошибки не всплывают: это оптимизация, а не операция.
func (s *Service) warmup(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), api.VerifyTimeout)
	defer cancel()

	if _, err := s.Usage(ctx); err != nil {
		s.logger.Debug("usage warmup failed", "user_id", userID, "error", err)
	}
	if _, err := s.History(ctx); err != nil {
		s.logger.Debug("history warmup failed", "user_id", userID, "error", err)
	}
}

// renderMarkdown форматирует пост для экспорта
func renderMarkdown(post *models.SavedPost) string {
	var b strings.Builder

	title := post.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Platform: %s\n", post.Platform)
	if post.SourceRef != "" {
		fmt.Fprintf(&b, "- Source: %s (%s)\n", post.Source, post.SourceRef)
	} else if post.Source != "" {
		fmt.Fprintf(&b, "- Source: %s\n", post.Source)
	}
	fmt.Fprintf(&b, "- Saved: %s\n\n", post.CreatedAt.Format(time.RFC3339))
	b.WriteString(post.Body)
	b.WriteString("\n")

	return b.String()
}
