// Package events реализует типизированный publish/subscribe канал для
// синхронизации компонентов клиента: CLI, прогрев кеша и отображение статуса
// подписываются на события сессии вместо опроса хранилища.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Topic идентифицирует тип события
type Topic string

// События жизненного цикла сессии и данных
const (
	// TopicSessionEstablished - успешный login/register/federated login
	TopicSessionEstablished Topic = "session.established"
	// TopicSessionRestored - оптимистичное восстановление из хранилища
	TopicSessionRestored Topic = "session.restored"
	// TopicSessionConfirmed - фоновая проверка подтвердила сессию
	TopicSessionConfirmed Topic = "session.confirmed"
	// TopicSessionExpired - сессия снесена после неудачного refresh
	TopicSessionExpired Topic = "session.expired"
	// TopicSessionCleared - явный logout
	TopicSessionCleared Topic = "session.cleared"
	// TopicUsageUpdated - обновились usage stats в кеше
	TopicUsageUpdated Topic = "usage.updated"
)

// Event представляет одно событие шины
type Event struct {
	Topic  Topic
	UserID string
	At     time.Time
}

// Handler обрабатывает событие. SubscribeFunc вызывает его в отдельной
// горутине подписки, последовательно для каждого события; долгий обработчик
// копит буфер своей подписки и начинает терять события.
type Handler func(Event)

// DefaultBufferSize - размер буфера канала подписчика
const DefaultBufferSize = 16

type subscription struct {
	id    uuid.UUID
	topic Topic
	ch    chan Event
}

// Bus is a thread-safe in-memory publish/subscribe bus.
// Publish never blocks: if a subscriber's buffer is full, the event for that
// subscriber is dropped and logged.
type Bus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[Topic][]*subscription
	closed bool
}

// NewBus creates a new event bus
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		subs:   make(map[Topic][]*subscription),
	}
}

// Subscribe registers a subscriber for the topic. The returned channel is
// buffered; the cancel func removes the subscription and closes the channel.
func (b *Bus) Subscribe(topic Topic) (<-chan Event, func()) {
	sub := &subscription{
		id:    uuid.New(),
		topic: topic,
		ch:    make(chan Event, DefaultBufferSize),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed {
			return
		}
		list := b.subs[topic]
		for i, s := range list {
			if s.id == sub.id {
				b.subs[topic] = append(list[:i], list[i+1:]...)
				close(s.ch)
				return
			}
		}
	}

	return sub.ch, cancel
}

// SubscribeFunc запускает горутину, вызывающую handler для каждого события
// topic. Возвращенный cancel останавливает доставку.
func (b *Bus) SubscribeFunc(topic Topic, handler Handler) func() {
	ch, cancel := b.Subscribe(topic)
	go func() {
		for ev := range ch {
			handler(ev)
		}
	}()
	return cancel
}

// Publish delivers the event to every subscriber of its topic.
// Delivery is non-blocking; slow subscribers lose events.
func (b *Bus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs[event.Topic] {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("event dropped, subscriber buffer full",
				"topic", string(event.Topic),
				"subscriber", sub.id.String(),
			)
		}
	}
}

// Close shuts the bus down and closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, list := range b.subs {
		for _, sub := range list {
			close(sub.ch)
		}
	}
	b.subs = nil
}
