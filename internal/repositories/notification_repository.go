package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"omnicrm/internal/entities"
)

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n entities.Notification) (*entities.Notification, error)
}

type NotificationRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewNotificationRepository(storage *pgxpool.Pool, logger *zap.Logger) NotificationRepositoryInterface {
	return &NotificationRepository{storage: storage, logger: logger}
}

// Create insere a notificação. Não há garantia de entrega além do insert;
// quem consome a tabela é o painel administrativo.
func (r *NotificationRepository) Create(ctx context.Context, n entities.Notification) (*entities.Notification, error) {
	const query = `
		INSERT INTO notifications
			(title, message, type, priority, target_roles, requires_acknowledgement, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.storage.QueryRow(ctx, query,
		n.Title, n.Message, n.Type, n.Priority, n.TargetRoles,
		n.RequiresAcknowledgement, n.CorrelationID,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("erro ao gravar notificação: %w", err)
	}
	return &n, nil
}
