package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type testEvent struct{ payload string }

func (testEvent) Name() string { return "test.event" }

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := New(zap.NewNop())

	received := make(chan string, 2)
	for i := 0; i < 2; i++ {
		bus.Subscribe("test.event", func(ctx context.Context, event Event) error {
			received <- event.(testEvent).payload
			return nil
		})
	}

	bus.Publish(context.Background(), testEvent{payload: "olá"})

	for i := 0; i < 2; i++ {
		select {
		case got := <-received:
			assert.Equal(t, "olá", got)
		case <-time.After(2 * time.Second):
			t.Fatal("ouvinte não recebeu o evento")
		}
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := New(zap.NewNop())
	// Não deve entrar em pânico nem bloquear.
	bus.Publish(context.Background(), testEvent{})
}

func TestSubscriberErrorDoesNotAffectOthers(t *testing.T) {
	bus := New(zap.NewNop())

	received := make(chan struct{}, 1)
	bus.Subscribe("test.event", func(ctx context.Context, event Event) error {
		return assert.AnError
	})
	bus.Subscribe("test.event", func(ctx context.Context, event Event) error {
		received <- struct{}{}
		return nil
	})

	bus.Publish(context.Background(), testEvent{})

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("segundo ouvinte não foi chamado")
	}
}
