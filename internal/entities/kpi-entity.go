package entities

import (
	"encoding/json"
	"time"

	"github.com/aarondl/null/v8"

	"omnicrm/pkg/utils"
)

// Categorias fixas dos dois domínios calculados pelo motor.
const (
	KpiCategoryCustomerService = "customer_service"
	KpiCategorySales           = "sales"
)

// MetricType classifica como o valor do KPI deve ser lido/exibido.
type MetricType string

const (
	MetricTypeNumber     MetricType = "number"
	MetricTypePercentage MetricType = "percentage"
	MetricTypeCurrency   MetricType = "currency"
	MetricTypeTime       MetricType = "time"
	MetricTypeRatio      MetricType = "ratio"
)

// Kpi é a definição do indicador. A identidade é o par (name, category),
// garantido por índice único no banco.
type Kpi struct {
	ID                uint64       `json:"id" db:"id"`
	Name              string       `json:"name" db:"name"`
	Category          string       `json:"category" db:"category"`
	Description       null.String  `json:"description" db:"description"`
	MetricType        MetricType   `json:"metric_type" db:"metric_type"`
	WarningThreshold  null.Float64 `json:"warning_threshold" db:"warning_threshold"`
	CriticalThreshold null.Float64 `json:"critical_threshold" db:"critical_threshold"`
	Goal              null.Float64 `json:"goal" db:"goal"`
	Unit              null.String  `json:"unit" db:"unit"`
	IsActive          bool         `json:"is_active" db:"is_active"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

// KpiValue é um snapshot imutável: um valor medido para uma janela.
// Percentuais e razões monetárias são gravados ×100 (12.34% -> 1234);
// moeda fica em centavos. O TextValue guarda a renderização pronta.
type KpiValue struct {
	ID         uint64           `json:"id" db:"id"`
	KpiID      uint64           `json:"kpi_id" db:"kpi_id"`
	Value      float64          `json:"value" db:"value"`
	TextValue  null.String      `json:"text_value" db:"text_value"`
	DateFrom   time.Time        `json:"date_from" db:"date_from"`
	DateTo     time.Time        `json:"date_to" db:"date_to"`
	PeriodType utils.PeriodType `json:"period_type" db:"period_type"`
	Metadata   json.RawMessage  `json:"metadata" db:"metadata"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}
