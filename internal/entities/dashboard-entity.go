package entities

import (
	"encoding/json"
	"time"

	"github.com/aarondl/null/v8"
)

// WidgetType é o conjunto fechado de tipos de widget. O despacho no resolver
// é um switch exaustivo; tipo novo aqui obriga um case novo lá.
type WidgetType string

const (
	WidgetKpi       WidgetType = "kpi"
	WidgetChart     WidgetType = "chart"
	WidgetTable     WidgetType = "table"
	WidgetMap       WidgetType = "map"
	WidgetHeatmap   WidgetType = "heatmap"
	WidgetGauge     WidgetType = "gauge"
	WidgetTimeline  WidgetType = "timeline"
	WidgetFunnel    WidgetType = "funnel"
	WidgetKanban    WidgetType = "kanban"
	WidgetIndicator WidgetType = "indicator"
	WidgetCustom    WidgetType = "custom"
)

type Dashboard struct {
	ID          uint64          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description null.String     `json:"description" db:"description"`
	Layout      json.RawMessage `json:"layout" db:"layout"`
	IsDefault   bool            `json:"is_default" db:"is_default"`
	IsPublic    bool            `json:"is_public" db:"is_public"`
	OwnerID     null.Uint64     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// WidgetPosition é a célula do grid (x, y, largura, altura).
type WidgetPosition struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type DashboardWidget struct {
	ID              uint64          `json:"id" db:"id"`
	DashboardID     uint64          `json:"dashboard_id" db:"dashboard_id"`
	Type            WidgetType      `json:"type" db:"type"`
	Title           string          `json:"title" db:"title"`
	DataSource      null.String     `json:"data_source" db:"data_source"`
	Configuration   json.RawMessage `json:"configuration" db:"configuration"`
	Position        WidgetPosition  `json:"position" db:"position"`
	RefreshInterval int             `json:"refresh_interval" db:"refresh_interval"`
	IsVisible       bool            `json:"is_visible" db:"is_visible"`
	Permissions     json.RawMessage `json:"permissions" db:"permissions"`
	Filters         json.RawMessage `json:"filters" db:"filters"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// WidgetConfig é a configuração específica por tipo, decodificada de
// Configuration. Os campos relevantes dependem do tipo do widget.
type WidgetConfig struct {
	KpiID        uint64            `json:"kpiId,omitempty"`
	Metric       string            `json:"metric,omitempty"`
	GroupBy      string            `json:"groupBy,omitempty"`
	Comparison   string            `json:"comparison,omitempty"`
	FunnelType   string            `json:"funnelType,omitempty"`
	BoardType    string            `json:"boardType,omitempty"`
	Query        string            `json:"query,omitempty"`
	Formatting   map[string]string `json:"formatting,omitempty"`
	Aggregations map[string]string `json:"aggregations,omitempty"`
	Limit        int               `json:"limit,omitempty"`
}
