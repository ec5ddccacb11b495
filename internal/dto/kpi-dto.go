package dto

// UpdateKpisDTO dispara a recomputação de um domínio sobre a janela dada.
type UpdateKpisDTO struct {
	DateFrom string `json:"dateFrom" validate:"required"`
	DateTo   string `json:"dateTo" validate:"required"`
}

type KpiValueDTO struct {
	ID         uint64  `json:"id"`
	KpiID      uint64  `json:"kpi_id"`
	Value      float64 `json:"value"`
	TextValue  string  `json:"text_value"`
	DateFrom   string  `json:"date_from"`
	DateTo     string  `json:"date_to"`
	PeriodType string  `json:"period_type"`
}
