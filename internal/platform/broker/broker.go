package broker

import (
	"context"
	"sync"
	"time"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

// Message is a single event on a topic.
type Message struct {
	Topic     string
	Payload   map[string]interface{}
	Timestamp time.Time
}

type Handler func(ctx context.Context, msg Message)

// Producer is the publishing side of the broker.
type Producer interface {
	Publish(ctx context.Context, topic string, payload map[string]interface{})
}

// Broker is an in-process topic bus. Delivery is synchronous and
// best-effort: a panicking handler is recovered and logged, and never
// fails the publisher.
type Broker struct {
	mu   sync.RWMutex
	subs map[string][]Handler
	log  *logger.Logger
}

func New(logg *logger.Logger) *Broker {
	var scoped *logger.Logger
	if logg != nil {
		scoped = logg.With("service", "Broker")
	}
	return &Broker{subs: map[string][]Handler{}, log: scoped}
}

func (b *Broker) Subscribe(topics []string, h Handler) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		b.subs[topic] = append(b.subs[topic], h)
	}
}

func (b *Broker) Publish(ctx context.Context, topic string, payload map[string]interface{}) {
	if b == nil {
		return
	}
	msg := Message{Topic: topic, Payload: payload, Timestamp: time.Now().UTC()}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[topic]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		b.dispatch(ctx, h, msg)
	}
}

func (b *Broker) dispatch(ctx context.Context, h Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Error("broker handler panicked", "topic", msg.Topic, "panic", r)
		}
	}()
	h(ctx, msg)
}
