package service

import (
	"context"
	"sync"

	"wallet-pos-bridge/internal/core/ports"

	"github.com/rs/zerolog"
)

type eventBus struct {
	mu         sync.RWMutex
	listeners  map[string][]ports.Listener
	validators map[string][]ports.Validator
	log        zerolog.Logger
}

// NewEventBus creates an in-process extension registry.
func NewEventBus(log zerolog.Logger) ports.EventBus {
	return &eventBus{
		listeners:  make(map[string][]ports.Listener),
		validators: make(map[string][]ports.Validator),
		log:        log.With().Str("component", "event_bus").Logger(),
	}
}

func (b *eventBus) Subscribe(event string, l ports.Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], l)
}

func (b *eventBus) AddValidator(event string, v ports.Validator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validators[event] = append(b.validators[event], v)
}

// Publish runs every listener. A failing or panicking listener is logged and
// the remaining listeners still run.
func (b *eventBus) Publish(ctx context.Context, event string, payload any) {
	b.mu.RLock()
	listeners := append([]ports.Listener(nil), b.listeners[event]...)
	b.mu.RUnlock()

	for _, l := range listeners {
		b.invoke(ctx, event, l, payload)
	}
}

// Validate returns the first validator error.
func (b *eventBus) Validate(ctx context.Context, event string, payload any) error {
	b.mu.RLock()
	validators := append([]ports.Validator(nil), b.validators[event]...)
	b.mu.RUnlock()

	for _, v := range validators {
		if err := v(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

func (b *eventBus) invoke(ctx context.Context, event string, l ports.Listener, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("event", event).Msg("listener panicked")
		}
	}()

	if err := l(ctx, payload); err != nil {
		b.log.Warn().Err(err).Str("event", event).Msg("listener failed")
	}
}
