package api

import "time"

// Источники входного контента
const (
	SourceText = "text" // длинный текст, переданный напрямую
	SourceURL  = "url"  // ссылка на статью, контент выгружает сервер
)

// Платформы, под которые генерируются посты
const (
	PlatformThread   = "thread"   // короткий тред
	PlatformPost     = "post"     // профессиональный пост
	PlatformCarousel = "carousel" // слайды карусели
)

// GenerateRequest представляет запрос на генерацию постов
type GenerateRequest struct {
	Source    string   `json:"source"`              // SourceText или SourceURL
	Content   string   `json:"content,omitempty"`   // исходный текст (source=text)
	URL       string   `json:"url,omitempty"`       // ссылка на статью (source=url)
	Platforms []string `json:"platforms,omitempty"` // пустой список = все платформы
}

// GeneratedPost представляет один сгенерированный пост
type GeneratedPost struct {
	Platform string   `json:"platform"`
	Title    string   `json:"title,omitempty"`
	Body     string   `json:"body,omitempty"`   // thread/post
	Slides   []string `json:"slides,omitempty"` // carousel
}

// GenerateResponse представляет результат генерации
type GenerateResponse struct {
	ID        string          `json:"id"` // id генерации на сервере
	Posts     []GeneratedPost `json:"posts"`
	CreatedAt time.Time       `json:"created_at"`
}

// UsageStats представляет квоту использования пользователя
type UsageStats struct {
	UserID          string    `json:"user_id"`
	GenerationsUsed int       `json:"generations_used"`
	GenerationsMax  int       `json:"generations_max"`
	PeriodEndsAt    time.Time `json:"period_ends_at"`
}

// Remaining возвращает остаток квоты (не меньше нуля)
func (u UsageStats) Remaining() int {
	if u.GenerationsMax <= u.GenerationsUsed {
		return 0
	}
	return u.GenerationsMax - u.GenerationsUsed
}

// HistoryEntry представляет одну запись истории генераций
type HistoryEntry struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	SourceRef string    `json:"source_ref,omitempty"` // URL или первые символы текста
	Platforms []string  `json:"platforms"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse представляет страницу истории генераций
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int            `json:"total"`
}
