package listeners

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"omnicrm/internal/entities"
	"omnicrm/internal/events"
	"omnicrm/pkg/eventbus"
)

type fakeNotificationRepo struct {
	created chan entities.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{created: make(chan entities.Notification, 10)}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n entities.Notification) (*entities.Notification, error) {
	n.ID = 1
	n.CreatedAt = time.Now()
	f.created <- n
	return &n, nil
}

func breachEvent() events.KpiThresholdBreachedEvent {
	kpi := entities.Kpi{
		ID:       3,
		Name:     "taxa_resolucao",
		Category: entities.KpiCategoryCustomerService,
	}
	kpi.WarningThreshold.SetValid(7000)

	return events.KpiThresholdBreachedEvent{
		Kpi:           kpi,
		Value:         6500,
		TextValue:     "65.00%",
		CorrelationID: "corr-123",
	}
}

func TestThresholdBreachCreatesNotification(t *testing.T) {
	repo := newFakeNotificationRepo()
	listener := NewNotificationListener(repo, zap.NewNop())

	err := listener.onKpiThresholdBreached(context.Background(), breachEvent())
	require.NoError(t, err)

	notification := <-repo.created
	assert.Equal(t, "Alerta de KPI: taxa_resolucao", notification.Title)
	assert.Contains(t, notification.Message, "65.00%")
	assert.Equal(t, "kpi_alert", notification.Type)
	assert.Equal(t, entities.NotificationPriorityHigh, notification.Priority)
	assert.Equal(t, []string{"admin", "manager"}, notification.TargetRoles)
	assert.True(t, notification.RequiresAcknowledgement)
	assert.Equal(t, "corr-123", notification.CorrelationID)
}

func TestThresholdBreachViaBus(t *testing.T) {
	repo := newFakeNotificationRepo()
	listener := NewNotificationListener(repo, zap.NewNop())

	bus := eventbus.New(zap.NewNop())
	listener.Register(bus)

	bus.Publish(context.Background(), breachEvent())

	select {
	case notification := <-repo.created:
		assert.Equal(t, "corr-123", notification.CorrelationID)
	case <-time.After(2 * time.Second):
		t.Fatal("notificação não foi criada após o evento")
	}

	// Exatamente uma notificação por violação.
	select {
	case extra := <-repo.created:
		t.Fatalf("notificação duplicada: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListenerRejectsUnexpectedEvent(t *testing.T) {
	repo := newFakeNotificationRepo()
	listener := NewNotificationListener(repo, zap.NewNop())

	err := listener.onKpiThresholdBreached(context.Background(), fakeEvent{})
	require.Error(t, err)
}

type fakeEvent struct{}

func (fakeEvent) Name() string { return "kpi.threshold.breached" }
