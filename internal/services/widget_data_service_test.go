package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"omnicrm/internal/entities"
	"omnicrm/pkg/types"
	"omnicrm/pkg/utils"
)

type widgetTestEnv struct {
	dashboardRepo *fakeDashboardRepo
	kpiRepo       *fakeKpiRepo
	metricsRepo   *fakeMetricsRepo
	cacheRepo     *fakeCacheRepo
	svc           WidgetDataServiceInterface
}

func newWidgetTestEnv(metricsRepo *fakeMetricsRepo) *widgetTestEnv {
	env := &widgetTestEnv{
		dashboardRepo: newFakeDashboardRepo(),
		kpiRepo:       newFakeKpiRepo(),
		metricsRepo:   metricsRepo,
		cacheRepo:     newFakeCacheRepo(),
	}
	env.svc = NewWidgetDataService(env.dashboardRepo, env.kpiRepo, env.metricsRepo, env.cacheRepo, analyticsConfig(), zap.NewNop())
	return env
}

func (env *widgetTestEnv) seedWidget(widgetType entities.WidgetType, cfg entities.WidgetConfig) *entities.DashboardWidget {
	raw, _ := json.Marshal(cfg)
	return env.dashboardRepo.seedWidget(entities.DashboardWidget{
		DashboardID:   1,
		Type:          widgetType,
		Title:         "Widget de teste",
		Configuration: raw,
		IsVisible:     true,
	})
}

func TestGetWidgetDataUnknownWidget(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})

	payload := env.svc.GetWidgetData(context.Background(), 999, nil, nil)

	werr, ok := payload.(types.WidgetError)
	require.True(t, ok)
	assert.Equal(t, "Erro ao buscar dados do widget", werr.Error)
}

func TestGetWidgetDataUnknownType(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})
	widget := env.dashboardRepo.seedWidget(entities.DashboardWidget{Type: entities.WidgetType("sparkline")})

	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	werr, ok := payload.(types.WidgetError)
	require.True(t, ok)
	assert.Equal(t, "Erro ao buscar dados do widget", werr.Error)
}

func TestGetWidgetDataMissingRequiredConfig(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})
	// Widget de KPI sem kpiId na configuração.
	widget := env.seedWidget(entities.WidgetKpi, entities.WidgetConfig{})

	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	_, ok := payload.(types.WidgetError)
	assert.True(t, ok)
}

func TestKpiWidgetData(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})

	kpi := env.kpiRepo.seed(entities.Kpi{
		Name:       KpiAvgResponseTime,
		Category:   entities.KpiCategoryCustomerService,
		MetricType: entities.MetricTypeTime,
	})

	latest := &entities.KpiValue{KpiID: kpi.ID, Value: 500, PeriodType: utils.PeriodWeekly}
	latest.TextValue.SetValid("5.00 min")
	env.kpiRepo.latest[kpi.ID] = latest

	previous := &entities.KpiValue{KpiID: kpi.ID, Value: 400, PeriodType: utils.PeriodWeekly}
	env.kpiRepo.previous[kpi.ID] = previous

	widget := env.seedWidget(entities.WidgetKpi, entities.WidgetConfig{KpiID: kpi.ID})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.KpiWidgetData)
	require.True(t, ok, "payload inesperado: %#v", payload)
	assert.Equal(t, 500.0, data.Value)
	assert.Equal(t, "5.00 min", data.TextValue)
	assert.Equal(t, 400.0, data.PreviousValue)
	assert.InDelta(t, 25.0, data.PercentChange, 0.001)
	assert.Equal(t, "up", data.Trend)
}

func TestKpiWidgetDataWithoutHistory(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})
	kpi := env.kpiRepo.seed(entities.Kpi{Name: KpiResolutionRate, Category: entities.KpiCategoryCustomerService})

	widget := env.seedWidget(entities.WidgetKpi, entities.WidgetConfig{KpiID: kpi.ID})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.KpiWidgetData)
	require.True(t, ok)
	assert.Equal(t, 0.0, data.Value)
	assert.Equal(t, "stable", data.Trend)
}

func TestSalesFunnelWidget(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{
		stageStats: []types.StageStat{
			{Stage: "new", Count: 100, Total: 0},
			{Stage: "contacted", Count: 80},
			{Stage: "qualified", Count: 40},
			{Stage: "won", Count: 10, Total: 500000},
		},
	})

	widget := env.seedWidget(entities.WidgetFunnel, entities.WidgetConfig{FunnelType: "sales"})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.FunnelWidgetData)
	require.True(t, ok, "payload inesperado: %#v", payload)
	require.Len(t, data.Stages, 6)

	// Percentual relativo à maior etapa.
	assert.Equal(t, "Novo", data.Stages[0].StageName)
	assert.InDelta(t, 100.0, data.Stages[0].Percentage, 0.001)
	assert.InDelta(t, 80.0, data.Stages[1].Percentage, 0.001)
	assert.InDelta(t, 40.0, data.Stages[2].Percentage, 0.001)

	// Etapa sem linha no banco aparece zerada.
	assert.Equal(t, "proposal", data.Stages[3].Stage)
	assert.Equal(t, int64(0), data.Stages[3].Count)

	assert.Equal(t, "Ganho", data.Stages[5].StageName)
	assert.InDelta(t, 10.0, data.Stages[5].Percentage, 0.001)
}

func TestConversionFunnelWidget(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{
		funnelMessages: 200,
		funnelDeals:    50,
		funnelWon:      10,
	})

	widget := env.seedWidget(entities.WidgetFunnel, entities.WidgetConfig{FunnelType: "conversion"})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.FunnelWidgetData)
	require.True(t, ok)
	require.Len(t, data.Stages, 3)

	// Percentual relativo à primeira etapa.
	assert.InDelta(t, 100.0, data.Stages[0].Percentage, 0.001)
	assert.InDelta(t, 25.0, data.Stages[1].Percentage, 0.001)
	assert.InDelta(t, 5.0, data.Stages[2].Percentage, 0.001)
}

func TestConversionFunnelWidgetZeroMessages(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})

	widget := env.seedWidget(entities.WidgetFunnel, entities.WidgetConfig{FunnelType: "conversion"})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.FunnelWidgetData)
	require.True(t, ok)
	for _, stage := range data.Stages {
		assert.Equal(t, 0.0, stage.Percentage)
	}
}

func TestFunnelWidgetUnknownType(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})
	widget := env.seedWidget(entities.WidgetFunnel, entities.WidgetConfig{FunnelType: "marketing"})

	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)
	_, ok := payload.(types.WidgetError)
	assert.True(t, ok)
}

func TestKanbanWidget(t *testing.T) {
	created := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	env := newWidgetTestEnv(&fakeMetricsRepo{
		kanbanDeals: []types.DealSummary{
			{ID: 1, Title: "Negócio A", Stage: "new", Value: 10000, ContactName: "Maria", CreatedAt: created},
			{ID: 2, Title: "Negócio B", Stage: "new", Value: 5000, CreatedAt: created},
			{ID: 3, Title: "Negócio C", Stage: "won", Value: 200000, CreatedAt: created},
		},
	})

	widget := env.seedWidget(entities.WidgetKanban, entities.WidgetConfig{})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.KanbanWidgetData)
	require.True(t, ok)
	assert.Equal(t, "pipeline", data.BoardType)
	// Todas as colunas do quadro, incluindo a terminal "lost".
	require.Len(t, data.Columns, 7)

	newColumn := data.Columns[0]
	assert.Equal(t, "Novo", newColumn.StageName)
	require.Len(t, newColumn.Cards, 2)
	assert.Equal(t, 15000.0, newColumn.Total)
	assert.Equal(t, "R$ 150,00", newColumn.TotalText)
	assert.Equal(t, "R$ 100,00", newColumn.Cards[0].ValueText)

	wonColumn := data.Columns[5]
	assert.Equal(t, "Ganho", wonColumn.StageName)
	assert.Equal(t, "R$ 2.000,00", wonColumn.TotalText)

	lostColumn := data.Columns[6]
	assert.Equal(t, "Perdido", lostColumn.StageName)
	assert.Empty(t, lostColumn.Cards)
}

func TestIndicatorWidget(t *testing.T) {
	// O mesmo dublê responde as duas janelas; a comparação sai empatada.
	env := newWidgetTestEnv(&fakeMetricsRepo{funnelDeals: 50, funnelWon: 20})

	widget := env.seedWidget(entities.WidgetIndicator, entities.WidgetConfig{Metric: MetricConversionRate})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.IndicatorWidgetData)
	require.True(t, ok, "payload inesperado: %#v", payload)
	assert.InDelta(t, 40.0, data.Value, 0.001)
	assert.Equal(t, "40.00%", data.TextValue)
	assert.Equal(t, "stable", data.Trend)
	assert.Equal(t, 0.0, data.PercentChange)
}

func TestIndicatorWidgetUnknownMetric(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})
	widget := env.seedWidget(entities.WidgetIndicator, entities.WidgetConfig{Metric: "nps"})

	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)
	_, ok := payload.(types.WidgetError)
	assert.True(t, ok)
}

func TestChartWidgetMessages(t *testing.T) {
	day1 := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	env := newWidgetTestEnv(&fakeMetricsRepo{
		messageSeries: []types.BucketCount{
			{Bucket: day1, Count: 12},
			{Bucket: day1.AddDate(0, 0, 1), Count: 7},
		},
	})

	widget := env.seedWidget(entities.WidgetChart, entities.WidgetConfig{Metric: MetricMessages, GroupBy: "day"})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.ChartWidgetData)
	require.True(t, ok)
	assert.Equal(t, "day", data.GroupBy)
	assert.Equal(t, []string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}, data.AxisLabels)
	require.Len(t, data.Series, 2)
	assert.Equal(t, "03/03/2025", data.Series[0].Label)
	assert.Equal(t, 12.0, data.Series[0].Value)
}

func TestChartWidgetStageConversion(t *testing.T) {
	bucket := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	env := newWidgetTestEnv(&fakeMetricsRepo{
		stageSeries: []types.StageConversion{
			{Bucket: bucket, Stage: "new", Count: 100, StepRate: 100, CumulativeRate: 100},
			{Bucket: bucket, Stage: "contacted", Count: 60, StepRate: 60, CumulativeRate: 60},
			{Bucket: bucket, Stage: "won", Count: 15, StepRate: 25, CumulativeRate: 15},
		},
	})

	widget := env.seedWidget(entities.WidgetChart, entities.WidgetConfig{Metric: MetricConversionRate, GroupBy: "month"})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.ChartWidgetData)
	require.True(t, ok)
	require.Len(t, data.StageSeries, 3)
	assert.Equal(t, "03/2025", data.StageSeries[0].Bucket)
	assert.Equal(t, "Novo", data.StageSeries[0].StageName)
	assert.Equal(t, 25.0, data.StageSeries[2].StepRate)
	assert.Equal(t, 15.0, data.StageSeries[2].CumulativeRate)
}

func TestChartWidgetUnknownMetric(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})
	widget := env.seedWidget(entities.WidgetChart, entities.WidgetConfig{Metric: "nps"})

	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)
	_, ok := payload.(types.WidgetError)
	assert.True(t, ok)
}

func TestCustomWidget(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{
		rawColumns: []string{"regiao", "receita", "ciclo"},
		rawRows: []map[string]interface{}{
			{"regiao": "Sudeste", "receita": float64(100000), "ciclo": float64(93784)},
			{"regiao": "Sul", "receita": float64(50000), "ciclo": float64(3600)},
			{"regiao": "Sudeste", "receita": float64(25000), "ciclo": float64(59)},
		},
	})

	widget := env.seedWidget(entities.WidgetCustom, entities.WidgetConfig{
		Query:        "SELECT region AS regiao, SUM(value) AS receita FROM deals GROUP BY region",
		Formatting:   map[string]string{"receita": "currency", "ciclo": "seconds"},
		Aggregations: map[string]string{"receita": "sum", "regiao": "distinct"},
	})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.CustomWidgetData)
	require.True(t, ok, "payload inesperado: %#v", payload)
	assert.Equal(t, []string{"regiao", "receita", "ciclo"}, data.Columns)
	assert.Equal(t, 3, data.RowCount)

	// Agregação roda no valor cru; célula exibe formatado.
	assert.Equal(t, 175000.0, data.Aggregations["receita"])
	assert.Equal(t, 2.0, data.Aggregations["regiao"])
	assert.Equal(t, "R$ 1.000,00", data.Rows[0]["receita"])
	assert.Equal(t, "1d 2h 3m 4s", data.Rows[0]["ciclo"])
	assert.Equal(t, "1h", data.Rows[1]["ciclo"])
}

func TestGaugeWidget(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})
	kpi := entities.Kpi{Name: KpiConversionRate, Category: entities.KpiCategorySales}
	kpi.Goal.SetValid(5000)
	seeded := env.kpiRepo.seed(kpi)

	latest := &entities.KpiValue{KpiID: seeded.ID, Value: 4000}
	latest.TextValue.SetValid("40.00%")
	env.kpiRepo.latest[seeded.ID] = latest

	widget := env.seedWidget(entities.WidgetGauge, entities.WidgetConfig{KpiID: seeded.ID})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.GaugeWidgetData)
	require.True(t, ok)
	assert.Equal(t, 4000.0, data.Value)
	assert.Equal(t, 5000.0, data.Goal)
	assert.InDelta(t, 80.0, data.Percentage, 0.001)
}

func TestMapWidget(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{
		regions: []types.SumByGroup{
			{GroupName: "Sudeste", Count: 12, Total: 340000},
			{GroupName: "Nordeste", Count: 5, Total: 80000},
		},
	})

	widget := env.seedWidget(entities.WidgetMap, entities.WidgetConfig{})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.MapWidgetData)
	require.True(t, ok)
	require.Len(t, data.Regions, 2)
	assert.Equal(t, "Sudeste", data.Regions[0].Region)
	assert.Equal(t, int64(12), data.Regions[0].Count)
}

func TestTimelineWidget(t *testing.T) {
	ts := time.Date(2025, time.March, 5, 9, 30, 0, 0, time.UTC)
	env := newWidgetTestEnv(&fakeMetricsRepo{
		activity: []types.ActivityItem{
			{Label: "message", Text: "Mensagem de contact", Timestamp: ts},
		},
	})

	widget := env.seedWidget(entities.WidgetTimeline, entities.WidgetConfig{})
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, nil, nil)

	data, ok := payload.(types.TimelineWidgetData)
	require.True(t, ok)
	require.Len(t, data.Events, 1)
	assert.Equal(t, "05/03/2025 09:30", data.Events[0].Date)
}

func TestWidgetDataUsesCache(t *testing.T) {
	// Repositório de métricas quebrado: se o cache for ignorado o teste falha.
	env := newWidgetTestEnv(&fakeMetricsRepo{err: assert.AnError})
	widget := env.seedWidget(entities.WidgetMap, entities.WidgetConfig{})

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	key := widgetCacheKey(widget.ID, from, to)
	env.cacheRepo.store[key] = `{"regions":[{"region":"Sudeste","count":1,"total":100}]}`

	payload := env.svc.GetWidgetData(context.Background(), widget.ID, &from, &to)

	raw, ok := payload.(json.RawMessage)
	require.True(t, ok, "payload inesperado: %#v", payload)
	assert.JSONEq(t, env.cacheRepo.store[key], string(raw))
}

func TestWidgetDataPopulatesCache(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{
		regions: []types.SumByGroup{{GroupName: "Sul", Count: 2, Total: 5000}},
	})
	widget := env.seedWidget(entities.WidgetMap, entities.WidgetConfig{})

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	payload := env.svc.GetWidgetData(context.Background(), widget.ID, &from, &to)
	require.IsType(t, types.MapWidgetData{}, payload)

	cached, ok := env.cacheRepo.store[widgetCacheKey(widget.ID, from, to)]
	require.True(t, ok, "payload não foi cacheado")
	assert.Contains(t, cached, "Sul")
}

func TestInvalidateWidgetClearsAllWindows(t *testing.T) {
	env := newWidgetTestEnv(&fakeMetricsRepo{})

	env.cacheRepo.store["widget_data:7:100:200"] = "a"
	env.cacheRepo.store["widget_data:7:300:400"] = "b"
	env.cacheRepo.store["widget_data:8:100:200"] = "c"

	env.svc.InvalidateWidget(context.Background(), 7)

	assert.NotContains(t, env.cacheRepo.store, "widget_data:7:100:200")
	assert.NotContains(t, env.cacheRepo.store, "widget_data:7:300:400")
	assert.Contains(t, env.cacheRepo.store, "widget_data:8:100:200")
}
