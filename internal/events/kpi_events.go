package events

import (
	"omnicrm/internal/entities"
)

// KpiThresholdBreachedEvent dispara quando um valor recém-computado fica
// abaixo do limiar de alerta do KPI. O listener de notificações transforma
// isso em uma linha de notificação para admin/manager.
type KpiThresholdBreachedEvent struct {
	Kpi           entities.Kpi
	Value         float64
	TextValue     string
	CorrelationID string
}

func (e KpiThresholdBreachedEvent) Name() string {
	return "kpi.threshold.breached"
}
