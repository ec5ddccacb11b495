package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"omnicrm/internal/entities"
	"omnicrm/internal/repositories"
	"omnicrm/pkg/config"
	"omnicrm/pkg/constants"
	apperrors "omnicrm/pkg/errors"
	"omnicrm/pkg/types"
	"omnicrm/pkg/utils"
)

// Mensagem única devolvida ao caller quando qualquer coisa falha na
// resolução. O motivo real vai só para o log.
const widgetErrorMessage = "Erro ao buscar dados do widget"

// Métricas aceitas por gráficos, tabelas e indicadores.
const (
	MetricMessages         = "messages"
	MetricDeals            = "deals"
	MetricResponseTime     = "response_time"
	MetricSalesBySource    = "sales_by_source"
	MetricSalesByRegion    = "sales_by_region"
	MetricTeamPerformance  = "team_performance"
	MetricConversionRate   = "conversion_rate"
	MetricSalesFunnel      = "sales_funnel"
	MetricActivityTimeline = "activity_timeline"
)

const (
	FunnelTypeSales      = "sales"
	FunnelTypeConversion = "conversion"

	BoardTypePipeline = "pipeline"
)

// WidgetTypeSettings concentra o que varia por tipo de widget: tamanho
// default no grid, TTL do cache de payload e campos obrigatórios na
// configuração.
type WidgetTypeSettings struct {
	DefaultPosition entities.WidgetPosition
	CacheTTL        time.Duration
	RequiredConfig  []string
}

var widgetTypeSettings = map[entities.WidgetType]WidgetTypeSettings{
	entities.WidgetKpi:       {DefaultPosition: entities.WidgetPosition{Width: 3, Height: 2}, CacheTTL: 1 * time.Minute, RequiredConfig: []string{"kpiId"}},
	entities.WidgetChart:     {DefaultPosition: entities.WidgetPosition{Width: 6, Height: 4}, CacheTTL: 5 * time.Minute, RequiredConfig: []string{"metric"}},
	entities.WidgetTable:     {DefaultPosition: entities.WidgetPosition{Width: 6, Height: 4}, CacheTTL: 5 * time.Minute, RequiredConfig: []string{"metric"}},
	entities.WidgetMap:       {DefaultPosition: entities.WidgetPosition{Width: 6, Height: 4}, CacheTTL: 10 * time.Minute},
	entities.WidgetHeatmap:   {DefaultPosition: entities.WidgetPosition{Width: 6, Height: 4}, CacheTTL: 10 * time.Minute},
	entities.WidgetGauge:     {DefaultPosition: entities.WidgetPosition{Width: 3, Height: 3}, CacheTTL: 1 * time.Minute, RequiredConfig: []string{"kpiId"}},
	entities.WidgetTimeline:  {DefaultPosition: entities.WidgetPosition{Width: 4, Height: 6}, CacheTTL: 1 * time.Minute},
	entities.WidgetFunnel:    {DefaultPosition: entities.WidgetPosition{Width: 4, Height: 5}, CacheTTL: 5 * time.Minute},
	entities.WidgetKanban:    {DefaultPosition: entities.WidgetPosition{Width: 12, Height: 6}, CacheTTL: 2 * time.Minute},
	entities.WidgetIndicator: {DefaultPosition: entities.WidgetPosition{Width: 3, Height: 2}, CacheTTL: 5 * time.Minute, RequiredConfig: []string{"metric"}},
	entities.WidgetCustom:    {DefaultPosition: entities.WidgetPosition{Width: 6, Height: 4}, CacheTTL: 5 * time.Minute, RequiredConfig: []string{"query"}},
}

// SettingsForWidgetType devolve as configurações do tipo ou erro para tipo
// desconhecido. Também é usado na validação de criação de widget.
func SettingsForWidgetType(widgetType entities.WidgetType) (WidgetTypeSettings, error) {
	settings, ok := widgetTypeSettings[widgetType]
	if !ok {
		return WidgetTypeSettings{}, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedWidgetType, widgetType)
	}
	return settings, nil
}

// ValidateWidgetConfig checa se a configuração crua tem a forma exigida pelo
// tipo do widget. Usada na criação/edição, antes de persistir.
func ValidateWidgetConfig(widgetType entities.WidgetType, raw json.RawMessage) error {
	settings, err := SettingsForWidgetType(widgetType)
	if err != nil {
		return err
	}

	var cfg entities.WidgetConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return apperrors.NewInvalidInputError("configuração do widget inválida: %v", err)
		}
	}
	return validateRequiredConfig(settings.RequiredConfig, cfg)
}

func validateRequiredConfig(required []string, cfg entities.WidgetConfig) error {
	for _, key := range required {
		missing := false
		switch key {
		case "kpiId":
			missing = cfg.KpiID == 0
		case "metric":
			missing = cfg.Metric == ""
		case "query":
			missing = strings.TrimSpace(cfg.Query) == ""
		}
		if missing {
			return apperrors.NewInvalidInputError("configuração do widget exige o campo %q", key)
		}
	}
	return nil
}

type WidgetDataServiceInterface interface {
	// GetWidgetData nunca devolve erro: qualquer falha vira types.WidgetError
	// no próprio payload. O contrato é sempre responder algo renderizável.
	GetWidgetData(ctx context.Context, widgetID uint64, dateFrom, dateTo *time.Time) interface{}
	InvalidateWidget(ctx context.Context, widgetID uint64)
}

type WidgetDataService struct {
	dashboardRepo repositories.DashboardRepositoryInterface
	kpiRepo       repositories.KpiRepositoryInterface
	metricsRepo   repositories.MetricsRepositoryInterface
	cacheRepo     repositories.CacheRepositoryInterface
	cfg           config.AnalyticsConfig
	logger        *zap.Logger
}

func NewWidgetDataService(
	dashboardRepo repositories.DashboardRepositoryInterface,
	kpiRepo repositories.KpiRepositoryInterface,
	metricsRepo repositories.MetricsRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
) WidgetDataServiceInterface {
	return &WidgetDataService{
		dashboardRepo: dashboardRepo,
		kpiRepo:       kpiRepo,
		metricsRepo:   metricsRepo,
		cacheRepo:     cacheRepo,
		cfg:           cfg,
		logger:        logger,
	}
}

func (s *WidgetDataService) GetWidgetData(ctx context.Context, widgetID uint64, dateFrom, dateTo *time.Time) interface{} {
	from, to := s.resolveWindow(dateFrom, dateTo)

	payload, err := s.resolve(ctx, widgetID, from, to)
	if err != nil {
		s.logger.Error("Erro ao resolver dados do widget",
			zap.Uint64("widget_id", widgetID),
			zap.Error(err),
		)
		return types.WidgetError{Error: widgetErrorMessage}
	}
	return payload
}

// InvalidateWidget derruba os payloads cacheados do widget. Chamada quando a
// configuração do widget muda.
func (s *WidgetDataService) InvalidateWidget(ctx context.Context, widgetID uint64) {
	if err := s.cacheRepo.DelPattern(ctx, widgetCachePattern(widgetID)); err != nil {
		s.logger.Debug("Falha ao invalidar cache do widget", zap.Uint64("widget_id", widgetID), zap.Error(err))
	}
}

// resolveWindow aplica a janela padrão (mês corrido até agora) quando o
// caller não manda datas.
func (s *WidgetDataService) resolveWindow(dateFrom, dateTo *time.Time) (time.Time, time.Time) {
	to := time.Now()
	if dateTo != nil {
		to = *dateTo
	}
	from := to.Add(-s.cfg.DefaultWindow)
	if dateFrom != nil {
		from = *dateFrom
	}
	return from, to
}

func (s *WidgetDataService) resolve(ctx context.Context, widgetID uint64, from, to time.Time) (interface{}, error) {
	widget, err := s.dashboardRepo.FindWidget(ctx, widgetID)
	if err != nil {
		return nil, err
	}

	settings, err := SettingsForWidgetType(widget.Type)
	if err != nil {
		return nil, err
	}

	var cfg entities.WidgetConfig
	if len(widget.Configuration) > 0 {
		if err := json.Unmarshal(widget.Configuration, &cfg); err != nil {
			return nil, fmt.Errorf("configuração do widget %d inválida: %w", widget.ID, err)
		}
	}
	if err := validateRequiredConfig(settings.RequiredConfig, cfg); err != nil {
		return nil, err
	}

	cacheKey := widgetCacheKey(widget.ID, from, to)
	if cached, err := s.cacheRepo.Get(ctx, cacheKey); err == nil && cached != "" {
		return json.RawMessage(cached), nil
	}

	payload, err := s.buildPayload(ctx, widget, cfg, from, to)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(payload); err == nil {
		ttl := settings.CacheTTL
		if ttl <= 0 {
			ttl = s.cfg.CacheTTL
		}
		if err := s.cacheRepo.Set(ctx, cacheKey, string(raw), ttl); err != nil {
			s.logger.Debug("Falha ao gravar payload no cache", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return payload, nil
}

// buildPayload é o despacho exaustivo por tipo. Tipo novo no enum exige um
// case novo aqui.
func (s *WidgetDataService) buildPayload(ctx context.Context, widget *entities.DashboardWidget, cfg entities.WidgetConfig, from, to time.Time) (interface{}, error) {
	switch widget.Type {
	case entities.WidgetKpi:
		return s.kpiWidgetData(ctx, cfg)
	case entities.WidgetChart:
		return s.chartWidgetData(ctx, cfg, from, to)
	case entities.WidgetFunnel:
		return s.funnelWidgetData(ctx, cfg, from, to)
	case entities.WidgetKanban:
		return s.kanbanWidgetData(ctx, cfg, from, to)
	case entities.WidgetIndicator:
		return s.indicatorWidgetData(ctx, cfg, from, to)
	case entities.WidgetCustom:
		return s.customWidgetData(ctx, cfg)
	case entities.WidgetTable:
		return s.tableWidgetData(ctx, cfg, from, to)
	case entities.WidgetMap, entities.WidgetHeatmap:
		return s.mapWidgetData(ctx, from, to)
	case entities.WidgetGauge:
		return s.gaugeWidgetData(ctx, cfg)
	case entities.WidgetTimeline:
		return s.timelineWidgetData(ctx, cfg, from, to)
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedWidgetType, widget.Type)
	}
}

func (s *WidgetDataService) kpiWidgetData(ctx context.Context, cfg entities.WidgetConfig) (interface{}, error) {
	kpi, err := s.kpiRepo.FindByID(ctx, cfg.KpiID)
	if err != nil {
		return nil, err
	}

	data := types.KpiWidgetData{
		KpiID: kpi.ID,
		Name:  kpi.Name,
		Unit:  kpi.Unit.String,
		Goal:  kpi.Goal.Float64,
		Trend: "stable",
	}

	latest, err := s.kpiRepo.LatestValue(ctx, kpi.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// KPI ainda sem valores computados: snapshot zerado.
			return data, nil
		}
		return nil, err
	}
	data.Value = latest.Value
	data.TextValue = latest.TextValue.String
	data.PeriodType = string(latest.PeriodType)

	previous, err := s.kpiRepo.PreviousValue(ctx, kpi.ID, latest.PeriodType, latest.DateFrom)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return data, nil
	}
	data.PreviousValue = previous.Value
	data.PercentChange, data.Trend = trendOf(latest.Value, previous.Value)
	return data, nil
}

func (s *WidgetDataService) chartWidgetData(ctx context.Context, cfg entities.WidgetConfig, from, to time.Time) (interface{}, error) {
	groupBy := utils.GroupBy(cfg.GroupBy)
	if cfg.GroupBy == "" {
		groupBy = utils.GroupByDay
	}
	axisLabels, err := utils.AxisLabels(groupBy)
	if err != nil {
		return nil, err
	}

	data := types.ChartWidgetData{
		Metric:     cfg.Metric,
		GroupBy:    string(groupBy),
		AxisLabels: axisLabels,
	}

	switch cfg.Metric {
	case MetricMessages:
		rows, err := s.metricsRepo.MessageSeries(ctx, from, to, groupBy)
		if err != nil {
			return nil, err
		}
		data.YAxisLabel = "Mensagens"
		for _, r := range rows {
			data.Series = append(data.Series, types.SeriesPoint{Label: bucketLabel(r.Bucket, groupBy), Value: float64(r.Count)})
		}

	case MetricDeals:
		rows, err := s.metricsRepo.DealSeries(ctx, from, to, groupBy)
		if err != nil {
			return nil, err
		}
		data.YAxisLabel = "Negócios"
		for _, r := range rows {
			data.Series = append(data.Series, types.SeriesPoint{Label: bucketLabel(r.Bucket, groupBy), Value: float64(r.Count)})
		}

	case MetricResponseTime:
		rows, err := s.metricsRepo.ResponseTimeSeries(ctx, from, to, groupBy)
		if err != nil {
			return nil, err
		}
		data.YAxisLabel = "Minutos"
		for _, r := range rows {
			data.Series = append(data.Series, types.SeriesPoint{Label: bucketLabel(r.Bucket, groupBy), Value: r.Average})
		}

	case MetricSalesBySource:
		rows, err := s.metricsRepo.SalesValueBySource(ctx, from, to)
		if err != nil {
			return nil, err
		}
		data.YAxisLabel = "Valor (centavos)"
		for _, r := range rows {
			data.Series = append(data.Series, types.SeriesPoint{Label: r.GroupName, Value: r.Total})
		}

	case MetricSalesByRegion:
		rows, err := s.metricsRepo.WonDealsByRegion(ctx, from, to)
		if err != nil {
			return nil, err
		}
		data.YAxisLabel = "Valor (centavos)"
		for _, r := range rows {
			data.Series = append(data.Series, types.SeriesPoint{Label: r.GroupName, Value: r.Total})
		}

	case MetricTeamPerformance:
		rows, err := s.metricsRepo.TeamPerformance(ctx, from, to)
		if err != nil {
			return nil, err
		}
		data.YAxisLabel = "Valor (centavos)"
		for _, r := range rows {
			data.Series = append(data.Series, types.SeriesPoint{Label: r.GroupName, Value: r.Total})
		}

	case MetricConversionRate, MetricSalesFunnel:
		rows, err := s.metricsRepo.StageConversionSeries(ctx, from, to, groupBy)
		if err != nil {
			return nil, err
		}
		data.YAxisLabel = "%"
		for _, r := range rows {
			data.StageSeries = append(data.StageSeries, types.StageSeriesPoint{
				Bucket:         bucketLabel(r.Bucket, groupBy),
				Stage:          r.Stage,
				StageName:      utils.FormatStageName(r.Stage),
				Count:          r.Count,
				StepRate:       r.StepRate,
				CumulativeRate: r.CumulativeRate,
			})
		}

	case MetricActivityTimeline:
		messages, err := s.metricsRepo.MessageSeries(ctx, from, to, groupBy)
		if err != nil {
			return nil, err
		}
		deals, err := s.metricsRepo.DealSeries(ctx, from, to, groupBy)
		if err != nil {
			return nil, err
		}
		data.YAxisLabel = "Atividades"
		data.Series = mergeBucketCounts(messages, deals, groupBy)

	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedMetric, cfg.Metric)
	}

	return data, nil
}

func (s *WidgetDataService) funnelWidgetData(ctx context.Context, cfg entities.WidgetConfig, from, to time.Time) (interface{}, error) {
	funnelType := cfg.FunnelType
	if funnelType == "" {
		funnelType = FunnelTypeSales
	}

	switch funnelType {
	case FunnelTypeSales:
		stats, err := s.metricsRepo.PipelineStageStats(ctx, from, to)
		if err != nil {
			return nil, err
		}
		byStage := make(map[string]types.StageStat, len(stats))
		var max int64
		for _, st := range stats {
			byStage[st.Stage] = st
			if st.Count > max {
				max = st.Count
			}
		}

		data := types.FunnelWidgetData{FunnelType: funnelType}
		for _, stage := range constants.PipelineStages {
			st := byStage[stage]
			pct := 0.0
			if max > 0 {
				pct = float64(st.Count) / float64(max) * 100
			}
			data.Stages = append(data.Stages, types.FunnelStageData{
				Stage:      stage,
				StageName:  utils.FormatStageName(stage),
				Count:      st.Count,
				Value:      st.Total,
				Percentage: pct,
			})
		}
		return data, nil

	case FunnelTypeConversion:
		messages, deals, won, err := s.metricsRepo.ConversionFunnelCounts(ctx, from, to)
		if err != nil {
			return nil, err
		}

		data := types.FunnelWidgetData{FunnelType: funnelType}
		counts := []struct {
			stage string
			name  string
			count int64
		}{
			{"messages", "Mensagens", messages},
			{"deals", "Negócios", deals},
			{"won", "Ganhos", won},
		}
		for _, c := range counts {
			pct := 0.0
			if messages > 0 {
				pct = float64(c.count) / float64(messages) * 100
			}
			data.Stages = append(data.Stages, types.FunnelStageData{
				Stage:      c.stage,
				StageName:  c.name,
				Count:      c.count,
				Percentage: pct,
			})
		}
		return data, nil

	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFunnelType, funnelType)
	}
}

func (s *WidgetDataService) kanbanWidgetData(ctx context.Context, cfg entities.WidgetConfig, from, to time.Time) (interface{}, error) {
	boardType := cfg.BoardType
	if boardType == "" {
		boardType = BoardTypePipeline
	}
	if boardType != BoardTypePipeline {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedBoardType, boardType)
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = 100
	}
	deals, err := s.metricsRepo.DealsForKanban(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}

	cards := make(map[string][]types.KanbanCard)
	totals := make(map[string]float64)
	for _, d := range deals {
		cards[d.Stage] = append(cards[d.Stage], types.KanbanCard{
			ID:          d.ID,
			Title:       d.Title,
			Value:       d.Value,
			ValueText:   utils.FormatCurrency(d.Value),
			ContactName: d.ContactName,
			AssignedTo:  d.AssignedTo,
			CreatedAt:   utils.FormatDate(d.CreatedAt),
		})
		totals[d.Stage] += d.Value
	}

	data := types.KanbanWidgetData{BoardType: boardType}
	for _, stage := range constants.KanbanStages {
		data.Columns = append(data.Columns, types.KanbanColumn{
			Stage:     stage,
			StageName: utils.FormatStageName(stage),
			Total:     totals[stage],
			TotalText: utils.FormatCurrency(totals[stage]),
			Cards:     cards[stage],
		})
	}
	return data, nil
}

func (s *WidgetDataService) indicatorWidgetData(ctx context.Context, cfg entities.WidgetConfig, from, to time.Time) (interface{}, error) {
	current, text, err := s.scalarMetric(ctx, cfg.Metric, from, to)
	if err != nil {
		return nil, err
	}

	comparison := utils.Comparison(cfg.Comparison)
	if cfg.Comparison == "" {
		comparison = utils.ComparisonPreviousPeriod
	}
	prevFrom, prevTo, err := utils.PreviousPeriod(from, to, comparison)
	if err != nil {
		return nil, err
	}
	previous, _, err := s.scalarMetric(ctx, cfg.Metric, prevFrom, prevTo)
	if err != nil {
		return nil, err
	}

	change, trend := trendOf(current, previous)
	return types.IndicatorWidgetData{
		Metric:        cfg.Metric,
		Value:         current,
		TextValue:     text,
		PreviousValue: previous,
		PercentChange: change,
		Trend:         trend,
	}, nil
}

// scalarMetric reduz a métrica a um número único para a janela, com o texto
// já formatado conforme a natureza da métrica.
func (s *WidgetDataService) scalarMetric(ctx context.Context, metric string, from, to time.Time) (float64, string, error) {
	switch metric {
	case MetricMessages:
		messages, _, _, err := s.metricsRepo.ConversionFunnelCounts(ctx, from, to)
		if err != nil {
			return 0, "", err
		}
		return float64(messages), utils.FormatNumber(float64(messages), 0), nil

	case MetricDeals:
		_, deals, _, err := s.metricsRepo.ConversionFunnelCounts(ctx, from, to)
		if err != nil {
			return 0, "", err
		}
		return float64(deals), utils.FormatNumber(float64(deals), 0), nil

	case MetricConversionRate:
		_, deals, won, err := s.metricsRepo.ConversionFunnelCounts(ctx, from, to)
		if err != nil {
			return 0, "", err
		}
		rate := 0.0
		if deals > 0 {
			rate = float64(won) / float64(deals) * 100
		}
		return rate, utils.FormatPercentage(rate), nil

	case MetricResponseTime:
		avg, _, err := s.metricsRepo.AvgResponseTimeMinutes(ctx, from, to)
		if err != nil {
			return 0, "", err
		}
		return avg, utils.FormatMinutes(avg), nil

	case MetricSalesBySource, MetricSalesByRegion, MetricTeamPerformance, MetricSalesFunnel:
		sum, _, _, err := s.metricsRepo.WonDealValueStats(ctx, from, to)
		if err != nil {
			return 0, "", err
		}
		return sum, utils.FormatCurrency(sum), nil

	case MetricActivityTimeline:
		messages, deals, _, err := s.metricsRepo.ConversionFunnelCounts(ctx, from, to)
		if err != nil {
			return 0, "", err
		}
		total := float64(messages + deals)
		return total, utils.FormatNumber(total, 0), nil

	default:
		return 0, "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedMetric, metric)
	}
}

func (s *WidgetDataService) customWidgetData(ctx context.Context, cfg entities.WidgetConfig) (interface{}, error) {
	columns, rows, err := s.metricsRepo.ExecuteRawQuery(ctx, cfg.Query)
	if err != nil {
		return nil, err
	}

	// Agregações rodam sobre o valor cru, antes da formatação das células.
	aggregations := computeAggregations(rows, cfg.Aggregations)

	if len(cfg.Formatting) > 0 {
		for _, row := range rows {
			for column, kind := range cfg.Formatting {
				if v, ok := row[column]; ok {
					row[column] = applyFormat(kind, v)
				}
			}
		}
	}

	return types.CustomWidgetData{
		Columns:      columns,
		Rows:         rows,
		Aggregations: aggregations,
		RowCount:     len(rows),
	}, nil
}

func (s *WidgetDataService) tableWidgetData(ctx context.Context, cfg entities.WidgetConfig, from, to time.Time) (interface{}, error) {
	payload, err := s.chartWidgetData(ctx, cfg, from, to)
	if err != nil {
		return nil, err
	}
	chart := payload.(types.ChartWidgetData)

	data := types.TableWidgetData{
		Metric:  cfg.Metric,
		Columns: []string{"Grupo", "Valor"},
		Rows:    chart.Series,
	}
	for _, p := range chart.StageSeries {
		data.Rows = append(data.Rows, types.SeriesPoint{
			Label: fmt.Sprintf("%s %s", p.Bucket, p.StageName),
			Value: float64(p.Count),
		})
	}
	return data, nil
}

func (s *WidgetDataService) mapWidgetData(ctx context.Context, from, to time.Time) (interface{}, error) {
	rows, err := s.metricsRepo.WonDealsByRegion(ctx, from, to)
	if err != nil {
		return nil, err
	}

	data := types.MapWidgetData{}
	for _, r := range rows {
		data.Regions = append(data.Regions, types.RegionStat{
			Region: r.GroupName,
			Count:  r.Count,
			Total:  r.Total,
		})
	}
	return data, nil
}

func (s *WidgetDataService) gaugeWidgetData(ctx context.Context, cfg entities.WidgetConfig) (interface{}, error) {
	kpi, err := s.kpiRepo.FindByID(ctx, cfg.KpiID)
	if err != nil {
		return nil, err
	}

	data := types.GaugeWidgetData{Goal: kpi.Goal.Float64}
	latest, err := s.kpiRepo.LatestValue(ctx, kpi.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return data, nil
		}
		return nil, err
	}

	data.Value = latest.Value
	data.TextValue = latest.TextValue.String
	if data.Goal > 0 {
		data.Percentage = latest.Value / data.Goal * 100
	}
	return data, nil
}

func (s *WidgetDataService) timelineWidgetData(ctx context.Context, cfg entities.WidgetConfig, from, to time.Time) (interface{}, error) {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 20
	}
	items, err := s.metricsRepo.RecentActivity(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}

	data := types.TimelineWidgetData{}
	for _, item := range items {
		data.Events = append(data.Events, types.TimelineEvent{
			Label: item.Label,
			Text:  item.Text,
			Date:  utils.FormatDateTime(item.Timestamp),
		})
	}
	return data, nil
}

// trendOf devolve a variação percentual e a direção contra o valor anterior.
// Sem base de comparação (anterior zero) a variação fica em 0 e a direção sai
// do sinal da diferença.
func trendOf(current, previous float64) (float64, string) {
	change := 0.0
	if previous != 0 {
		change = (current - previous) / previous * 100
	}

	switch {
	case current > previous:
		return change, "up"
	case current < previous:
		return change, "down"
	default:
		return change, "stable"
	}
}

func bucketLabel(t time.Time, groupBy utils.GroupBy) string {
	switch groupBy {
	case utils.GroupByMonth:
		return t.Format("01/2006")
	case utils.GroupByYear:
		return t.Format("2006")
	default:
		return utils.FormatDate(t)
	}
}

// mergeBucketCounts soma duas séries de contagem balde a balde, preservando a
// ordem temporal.
func mergeBucketCounts(a, b []types.BucketCount, groupBy utils.GroupBy) []types.SeriesPoint {
	totals := make(map[time.Time]int64)
	var order []time.Time
	add := func(rows []types.BucketCount) {
		for _, r := range rows {
			if _, seen := totals[r.Bucket]; !seen {
				order = append(order, r.Bucket)
			}
			totals[r.Bucket] += r.Count
		}
	}
	add(a)
	add(b)

	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j].Before(order[j-1]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	points := make([]types.SeriesPoint, 0, len(order))
	for _, bucket := range order {
		points = append(points, types.SeriesPoint{Label: bucketLabel(bucket, groupBy), Value: float64(totals[bucket])})
	}
	return points
}

func computeAggregations(rows []map[string]interface{}, ops map[string]string) map[string]float64 {
	if len(ops) == 0 {
		return nil
	}

	result := make(map[string]float64, len(ops))
	for column, op := range ops {
		switch op {
		case "count":
			count := 0.0
			for _, row := range rows {
				if v, ok := row[column]; ok && v != nil {
					count++
				}
			}
			result[column] = count

		case "distinct":
			seen := make(map[string]struct{})
			for _, row := range rows {
				if v, ok := row[column]; ok && v != nil {
					seen[fmt.Sprintf("%v", v)] = struct{}{}
				}
			}
			result[column] = float64(len(seen))

		case "sum", "avg", "min", "max":
			var sum float64
			var n int
			var min, max float64
			for _, row := range rows {
				f, ok := toFloat(row[column])
				if !ok {
					continue
				}
				if n == 0 {
					min, max = f, f
				} else {
					if f < min {
						min = f
					}
					if f > max {
						max = f
					}
				}
				sum += f
				n++
			}
			switch op {
			case "sum":
				result[column] = sum
			case "avg":
				if n > 0 {
					result[column] = sum / float64(n)
				}
			case "min":
				result[column] = min
			case "max":
				result[column] = max
			}
		}
	}
	return result
}

func applyFormat(kind string, v interface{}) interface{} {
	switch kind {
	case "currency":
		if f, ok := toFloat(v); ok {
			return utils.FormatCurrency(f)
		}
	case "percentage":
		if f, ok := toFloat(v); ok {
			return utils.FormatPercentage(f)
		}
	case "number":
		if f, ok := toFloat(v); ok {
			return utils.FormatNumber(f, 2)
		}
	case "minutes":
		if f, ok := toFloat(v); ok {
			return utils.FormatMinutes(f)
		}
	case "seconds":
		if f, ok := toFloat(v); ok {
			return utils.FormatSeconds(f)
		}
	case "date":
		if t, ok := v.(time.Time); ok {
			return utils.FormatDate(t)
		}
	case "datetime":
		if t, ok := v.(time.Time); ok {
			return utils.FormatDateTime(t)
		}
	}
	return v
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

func widgetCacheKey(widgetID uint64, from, to time.Time) string {
	return fmt.Sprintf("widget_data:%d:%d:%d", widgetID, from.Unix(), to.Unix())
}

// widgetCachePattern cobre todas as janelas do widget. O repositório de cache
// resolve o glob via SCAN.
func widgetCachePattern(widgetID uint64) string {
	return fmt.Sprintf("widget_data:%d:*", widgetID)
}
