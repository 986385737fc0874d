package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Event событие, публикуемое в топик
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

const EventSnapshot = "snapshot"

// Broker внутрипроцессный pub/sub по топикам.
// Каждая подписка обрабатывается в своей горутине, события доставляются по порядку,
// Publish никогда не блокируется на медленном подписчике.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	closed bool
	logger *zap.Logger
}

func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{
		topics: make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscription подписка на один топик
type Subscription struct {
	broker  *Broker
	topic   string
	handler func([]Event)

	mu     sync.Mutex
	queue  []Event
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Subscribe регистрирует обработчик. Подписка живёт до Cancel или отмены ctx.
// handler получает накопившиеся события пачкой.
func (b *Broker) Subscribe(ctx context.Context, topic string, handler func([]Event)) *Subscription {
	sub := &Subscription{
		broker:  b,
		topic:   topic,
		handler: handler,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.once.Do(func() { close(sub.done) })
		return sub
	}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.run(ctx)

	return sub
}

// Publish отправляет событие всем подписчикам топика
func (b *Broker) Publish(topic string, ev Event) {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.topics[topic]))
	for sub := range b.topics[topic] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.Notify(ev)
	}
}

// Subscribers количество активных подписок на топик
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close отменяет все подписки
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	var all []*Subscription
	for _, subs := range b.topics {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Cancel()
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, sub.topic)
		}
	}
}

// Notify ставит событие в очередь только этой подписки
func (s *Subscription) Notify(ev Event) {
	select {
	case <-s.done:
		return
	default:
	}

	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Cancel останавливает доставку. Повторный вызов безопасен.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.broker.remove(s)
	})
}

// Done закрывается после отмены подписки
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) run(ctx context.Context) {
	defer s.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.signal:
			s.mu.Lock()
			batch := s.queue
			s.queue = nil
			s.mu.Unlock()

			if len(batch) > 0 {
				s.deliver(batch)
			}
		}
	}
}

func (s *Subscription) deliver(batch []Event) {
	defer func() {
		if r := recover(); r != nil {
			s.broker.logger.Error("Subscription handler panicked",
				zap.String("topic", s.topic),
				zap.Any("panic", r),
			)
		}
	}()

	s.handler(batch)
}
