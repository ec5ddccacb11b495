package entities

import (
	"time"
)

type NotificationPriority string

const (
	NotificationPriorityLow      NotificationPriority = "low"
	NotificationPriorityMedium   NotificationPriority = "medium"
	NotificationPriorityHigh     NotificationPriority = "high"
	NotificationPriorityCritical NotificationPriority = "critical"
)

// Notification é a linha persistida para o painel administrativo.
// Não há garantia de entrega além do insert.
type Notification struct {
	ID                      uint64               `json:"id" db:"id"`
	Title                   string               `json:"title" db:"title"`
	Message                 string               `json:"message" db:"message"`
	Type                    string               `json:"type" db:"type"`
	Priority                NotificationPriority `json:"priority" db:"priority"`
	TargetRoles             []string             `json:"target_roles" db:"target_roles"`
	RequiresAcknowledgement bool                 `json:"requires_acknowledgement" db:"requires_acknowledgement"`
	CorrelationID           string               `json:"correlation_id" db:"correlation_id"`
	CreatedAt               time.Time            `json:"created_at" db:"created_at"`
}
