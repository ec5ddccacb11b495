package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event representa qualquer evento do sistema.
type Event interface {
	Name() string
}

// Listener é o tratador (ouvinte) de eventos.
type Listener func(ctx context.Context, event Event) error

// Bus é a nossa central de eventos em processo.
type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		logger:    logger,
	}
}

// Subscribe registra um ouvinte para um evento específico.
func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish publica um evento. Todos os inscritos serão chamados em goroutines
// próprias, cada uma com timeout para não deixar goroutine "eterna".
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	eventName := event.Name()
	if listeners, ok := b.listeners[eventName]; ok {
		for _, listener := range listeners {
			go func(l Listener) {
				ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
				defer cancel()

				if err := l(ctxWithTimeout, event); err != nil {
					b.logger.Error("Erro no tratador de evento",
						zap.String("event", eventName),
						zap.Error(err),
					)
				}
			}(listener)
		}
	}
}
