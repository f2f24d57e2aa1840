package eventbus

import (
	"context"
	"errors"
	"sync"
)

// Handler consumes events published on one topic.
type Handler[T any] func(ctx context.Context, event T) error

// Topic is a named stream carrying exactly one event type. Declare topics as
// package-level variables next to the event they carry so publishers and
// subscribers share the binding.
type Topic[T any] struct {
	name string
}

// NewTopic declares a topic.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the topic name.
func (t Topic[T]) Name() string { return t.name }

// ErrTopicMismatch is returned when two topics share a name but carry
// different event types.
var ErrTopicMismatch = errors.New("eventbus: event does not match topic type")

// Bus is a minimal in-process dispatcher keyed by topic name.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]func(ctx context.Context, event any) error
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]func(ctx context.Context, event any) error)}
}

// Publish delivers the event to every subscriber of the topic, in
// subscription order. All subscribers run; the first error wins.
func Publish[T any](ctx context.Context, b *Bus, topic Topic[T], event T) error {
	if b == nil || topic.name == "" {
		return nil
	}

	b.mu.RLock()
	handlers := append([]func(ctx context.Context, event any) error(nil), b.subs[topic.name]...)
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Subscribe registers a handler on the topic.
func Subscribe[T any](b *Bus, topic Topic[T], handler Handler[T]) {
	if b == nil || topic.name == "" || handler == nil {
		return
	}
	wrapped := func(ctx context.Context, event any) error {
		typed, ok := event.(T)
		if !ok {
			return ErrTopicMismatch
		}
		return handler(ctx, typed)
	}

	b.mu.Lock()
	b.subs[topic.name] = append(b.subs[topic.name], wrapped)
	b.mu.Unlock()
}
