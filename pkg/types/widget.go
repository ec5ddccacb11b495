package types

// Payloads moldados por tipo de widget. O resolver devolve sempre um destes
// (ou WidgetError); o handler HTTP só serializa.

// WidgetError é o envelope de falha do resolver. O caller DEVE checar o campo
// "error" no payload — o resolver não propaga exceção para fora.
type WidgetError struct {
	Error string `json:"error"`
}

// KpiWidgetData — snapshot atual + tendência contra o valor anterior.
type KpiWidgetData struct {
	KpiID         uint64  `json:"kpi_id"`
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	TextValue     string  `json:"text_value"`
	PreviousValue float64 `json:"previous_value"`
	PercentChange float64 `json:"percent_change"`
	Trend         string  `json:"trend"`
	Unit          string  `json:"unit,omitempty"`
	Goal          float64 `json:"goal,omitempty"`
	PeriodType    string  `json:"period_type"`
}

// SeriesPoint é um ponto x/y das séries de gráfico.
type SeriesPoint struct {
	Label string  `json:"x" db:"label"`
	Value float64 `json:"y" db:"value"`
}

// StageSeriesPoint é um ponto das séries aninhadas por etapa (funil temporal).
type StageSeriesPoint struct {
	Bucket         string  `json:"bucket" db:"bucket"`
	Stage          string  `json:"stage" db:"stage"`
	StageName      string  `json:"stage_name" db:"-"`
	Count          int64   `json:"count" db:"count"`
	StepRate       float64 `json:"step_rate" db:"step_rate"`
	CumulativeRate float64 `json:"cumulative_rate" db:"cumulative_rate"`
}

// ChartWidgetData — série pronta para renderização com metadados de eixo.
type ChartWidgetData struct {
	Metric      string             `json:"metric"`
	GroupBy     string             `json:"group_by"`
	Series      []SeriesPoint      `json:"series,omitempty"`
	StageSeries []StageSeriesPoint `json:"stage_series,omitempty"`
	AxisLabels  []string           `json:"axis_labels"`
	YAxisLabel  string             `json:"y_axis_label,omitempty"`
}

// FunnelStageData — uma etapa do funil com contagem, soma e percentual
// relativo à base (maior etapa no funil de vendas; primeira no de conversão).
type FunnelStageData struct {
	Stage      string  `json:"stage"`
	StageName  string  `json:"stage_name"`
	Count      int64   `json:"count"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

type FunnelWidgetData struct {
	FunnelType string            `json:"funnel_type"`
	Stages     []FunnelStageData `json:"stages"`
}

// KanbanCard — resumo do negócio no quadro.
type KanbanCard struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Value       float64 `json:"value"`
	ValueText   string  `json:"value_text"`
	ContactName string  `json:"contact_name,omitempty"`
	AssignedTo  string  `json:"assigned_to,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type KanbanColumn struct {
	Stage     string       `json:"stage"`
	StageName string       `json:"stage_name"`
	Total     float64      `json:"total"`
	TotalText string       `json:"total_text"`
	Cards     []KanbanCard `json:"cards"`
}

type KanbanWidgetData struct {
	BoardType string         `json:"board_type"`
	Columns   []KanbanColumn `json:"columns"`
}

// IndicatorWidgetData — valor único + comparação com o período anterior.
type IndicatorWidgetData struct {
	Metric        string  `json:"metric"`
	Value         float64 `json:"value"`
	TextValue     string  `json:"text_value"`
	PreviousValue float64 `json:"previous_value"`
	PercentChange float64 `json:"percent_change"`
	Trend         string  `json:"trend"`
}

// CustomWidgetData — resultado de SQL arbitrário do operador, com colunas,
// linhas já formatadas e agregações declarativas.
type CustomWidgetData struct {
	Columns      []string                 `json:"columns"`
	Rows         []map[string]interface{} `json:"rows"`
	Aggregations map[string]float64       `json:"aggregations,omitempty"`
	RowCount     int                      `json:"row_count"`
}

// TableWidgetData — variante tabular das séries por grupo.
type TableWidgetData struct {
	Metric  string        `json:"metric"`
	Columns []string      `json:"columns"`
	Rows    []SeriesPoint `json:"rows"`
}

// MapWidgetData / HeatmapWidgetData — contagens e somas por região.
type RegionStat struct {
	Region string  `json:"region" db:"region"`
	Count  int64   `json:"count" db:"count"`
	Total  float64 `json:"total" db:"total"`
}

type MapWidgetData struct {
	Regions []RegionStat `json:"regions"`
}

// GaugeWidgetData — valor atual contra a meta do KPI.
type GaugeWidgetData struct {
	Value      float64 `json:"value"`
	Goal       float64 `json:"goal"`
	Percentage float64 `json:"percentage"`
	TextValue  string  `json:"text_value"`
}

// TimelineWidgetData — eventos recentes ordenados no tempo.
type TimelineEvent struct {
	Label string `json:"label" db:"label"`
	Text  string `json:"text" db:"text"`
	Date  string `json:"date" db:"-"`
}

type TimelineWidgetData struct {
	Events []TimelineEvent `json:"events"`
}
