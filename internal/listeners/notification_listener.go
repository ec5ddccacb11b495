package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"omnicrm/internal/entities"
	"omnicrm/internal/events"
	"omnicrm/internal/repositories"
	"omnicrm/pkg/eventbus"
)

// NotificationListener transforma eventos de negócio em notificações
// persistidas para o painel administrativo.
type NotificationListener struct {
	notificationRepo repositories.NotificationRepositoryInterface
	logger           *zap.Logger
}

func NewNotificationListener(notificationRepo repositories.NotificationRepositoryInterface, logger *zap.Logger) *NotificationListener {
	return &NotificationListener{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// Register inscreve os tratadores no bus.
func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.KpiThresholdBreachedEvent{}.Name(), l.onKpiThresholdBreached)
}

// onKpiThresholdBreached cria exatamente uma notificação por violação de
// limiar, endereçada a admin e manager e exigindo confirmação de leitura.
func (l *NotificationListener) onKpiThresholdBreached(ctx context.Context, event eventbus.Event) error {
	breach, ok := event.(events.KpiThresholdBreachedEvent)
	if !ok {
		return fmt.Errorf("evento inesperado no tratador de limiar: %T", event)
	}

	display := breach.TextValue
	if display == "" {
		display = fmt.Sprintf("%.2f", breach.Value)
	}

	notification := entities.Notification{
		Title: fmt.Sprintf("Alerta de KPI: %s", breach.Kpi.Name),
		Message: fmt.Sprintf(
			"O indicador %q ficou em %s, abaixo do limiar de aviso (%.2f).",
			breach.Kpi.Name, display, breach.Kpi.WarningThreshold.Float64,
		),
		Type:                    "kpi_alert",
		Priority:                entities.NotificationPriorityHigh,
		TargetRoles:             []string{"admin", "manager"},
		RequiresAcknowledgement: true,
		CorrelationID:           breach.CorrelationID,
	}

	created, err := l.notificationRepo.Create(ctx, notification)
	if err != nil {
		return fmt.Errorf("erro ao criar notificação de limiar: %w", err)
	}

	l.logger.Info("Notificação de limiar criada",
		zap.Uint64("notification_id", created.ID),
		zap.String("kpi", breach.Kpi.Name),
		zap.String("correlation_id", breach.CorrelationID),
	)
	return nil
}
