package services

import (
	"context"
	"strings"
	"time"

	"omnicrm/internal/dto"
	"omnicrm/internal/entities"
	"omnicrm/internal/repositories"
	apperrors "omnicrm/pkg/errors"
	"omnicrm/pkg/types"
	"omnicrm/pkg/utils"
)

// Dublês em memória dos repositórios, no formato mínimo que os testes de
// serviço precisam.

type fakeKpiRepo struct {
	nextID    uint64
	byKey     map[string]*entities.Kpi
	byID      map[uint64]*entities.Kpi
	insertLog [][]entities.KpiValue
	latest    map[uint64]*entities.KpiValue
	previous  map[uint64]*entities.KpiValue
	insertErr error
}

func newFakeKpiRepo() *fakeKpiRepo {
	return &fakeKpiRepo{
		byKey:    make(map[string]*entities.Kpi),
		byID:     make(map[uint64]*entities.Kpi),
		latest:   make(map[uint64]*entities.KpiValue),
		previous: make(map[uint64]*entities.KpiValue),
	}
}

func (f *fakeKpiRepo) seed(kpi entities.Kpi) *entities.Kpi {
	f.nextID++
	kpi.ID = f.nextID
	stored := kpi
	f.byKey[kpi.Name+"/"+kpi.Category] = &stored
	f.byID[stored.ID] = &stored
	return &stored
}

func (f *fakeKpiRepo) GetOrCreate(ctx context.Context, criteria repositories.KpiCriteria) (*entities.Kpi, error) {
	if existing, ok := f.byKey[criteria.Name+"/"+criteria.Category]; ok {
		return existing, nil
	}
	kpi := entities.Kpi{
		Name:       criteria.Name,
		Category:   criteria.Category,
		MetricType: criteria.MetricType,
		IsActive:   true,
	}
	kpi.Unit.SetValid(criteria.Unit)
	kpi.Description.SetValid(criteria.Description)
	return f.seed(kpi), nil
}

func (f *fakeKpiRepo) FindByID(ctx context.Context, id uint64) (*entities.Kpi, error) {
	if kpi, ok := f.byID[id]; ok {
		return kpi, nil
	}
	return nil, apperrors.ErrKpiNotFound
}

func (f *fakeKpiRepo) List(ctx context.Context, category string) ([]entities.Kpi, error) {
	var out []entities.Kpi
	for _, kpi := range f.byID {
		if category == "" || kpi.Category == category {
			out = append(out, *kpi)
		}
	}
	return out, nil
}

func (f *fakeKpiRepo) InsertValues(ctx context.Context, values []entities.KpiValue) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.insertLog = append(f.insertLog, values)
	return nil
}

func (f *fakeKpiRepo) LatestValue(ctx context.Context, kpiID uint64) (*entities.KpiValue, error) {
	if v, ok := f.latest[kpiID]; ok {
		return v, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeKpiRepo) PreviousValue(ctx context.Context, kpiID uint64, periodType utils.PeriodType, before time.Time) (*entities.KpiValue, error) {
	if v, ok := f.previous[kpiID]; ok {
		return v, nil
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeKpiRepo) ListValues(ctx context.Context, kpiID uint64, periodType string, limit int) ([]entities.KpiValue, error) {
	return nil, nil
}

// insertedValue procura um valor inserido pelo ID do KPI.
func (f *fakeKpiRepo) insertedValue(kpiID uint64) (entities.KpiValue, bool) {
	for _, batch := range f.insertLog {
		for _, v := range batch {
			if v.KpiID == kpiID {
				return v, true
			}
		}
	}
	return entities.KpiValue{}, false
}

type fakeMetricsRepo struct {
	avgResponseMinutes float64
	responsePairs      int64
	convTotal          int64
	convResolved       int64
	userMessages       int64

	dealTotal    int64
	dealWon      int64
	wonSum       float64
	wonAvg       float64
	wonCount     int64
	cycleMinutes float64
	leads        []types.CountByGroup
	regions      []types.SumByGroup

	messageSeries  []types.BucketCount
	dealSeries     []types.BucketCount
	responseSeries []types.BucketAvg
	salesBySource  []types.SumByGroup
	teamStats      []types.SumByGroup
	stageSeries    []types.StageConversion

	stageStats     []types.StageStat
	funnelMessages int64
	funnelDeals    int64
	funnelWon      int64
	kanbanDeals    []types.DealSummary
	activity       []types.ActivityItem

	rawColumns []string
	rawRows    []map[string]interface{}

	err error
}

func (f *fakeMetricsRepo) AvgResponseTimeMinutes(ctx context.Context, from, to time.Time) (float64, int64, error) {
	return f.avgResponseMinutes, f.responsePairs, f.err
}

func (f *fakeMetricsRepo) ConversationCounts(ctx context.Context, from, to time.Time) (int64, int64, error) {
	return f.convTotal, f.convResolved, f.err
}

func (f *fakeMetricsRepo) MessageCountBySender(ctx context.Context, from, to time.Time, sender string) (int64, error) {
	return f.userMessages, f.err
}

func (f *fakeMetricsRepo) DealCounts(ctx context.Context, from, to time.Time) (int64, int64, error) {
	return f.dealTotal, f.dealWon, f.err
}

func (f *fakeMetricsRepo) WonDealValueStats(ctx context.Context, from, to time.Time) (float64, float64, int64, error) {
	return f.wonSum, f.wonAvg, f.wonCount, f.err
}

func (f *fakeMetricsRepo) SalesCycleMinutes(ctx context.Context, from, to time.Time) (float64, error) {
	return f.cycleMinutes, f.err
}

func (f *fakeMetricsRepo) LeadsBySource(ctx context.Context, from, to time.Time) ([]types.CountByGroup, error) {
	return f.leads, f.err
}

func (f *fakeMetricsRepo) WonDealsByRegion(ctx context.Context, from, to time.Time) ([]types.SumByGroup, error) {
	return f.regions, f.err
}

func (f *fakeMetricsRepo) MessageSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.BucketCount, error) {
	return f.messageSeries, f.err
}

func (f *fakeMetricsRepo) DealSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.BucketCount, error) {
	return f.dealSeries, f.err
}

func (f *fakeMetricsRepo) ResponseTimeSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.BucketAvg, error) {
	return f.responseSeries, f.err
}

func (f *fakeMetricsRepo) SalesValueBySource(ctx context.Context, from, to time.Time) ([]types.SumByGroup, error) {
	return f.salesBySource, f.err
}

func (f *fakeMetricsRepo) TeamPerformance(ctx context.Context, from, to time.Time) ([]types.SumByGroup, error) {
	return f.teamStats, f.err
}

func (f *fakeMetricsRepo) StageConversionSeries(ctx context.Context, from, to time.Time, groupBy utils.GroupBy) ([]types.StageConversion, error) {
	return f.stageSeries, f.err
}

func (f *fakeMetricsRepo) PipelineStageStats(ctx context.Context, from, to time.Time) ([]types.StageStat, error) {
	return f.stageStats, f.err
}

func (f *fakeMetricsRepo) ConversionFunnelCounts(ctx context.Context, from, to time.Time) (int64, int64, int64, error) {
	return f.funnelMessages, f.funnelDeals, f.funnelWon, f.err
}

func (f *fakeMetricsRepo) DealsForKanban(ctx context.Context, from, to time.Time, limit int) ([]types.DealSummary, error) {
	return f.kanbanDeals, f.err
}

func (f *fakeMetricsRepo) RecentActivity(ctx context.Context, from, to time.Time, limit int) ([]types.ActivityItem, error) {
	return f.activity, f.err
}

func (f *fakeMetricsRepo) ExecuteRawQuery(ctx context.Context, query string) ([]string, []map[string]interface{}, error) {
	return f.rawColumns, f.rawRows, f.err
}

type fakeCacheRepo struct {
	store map[string]string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{store: make(map[string]string)}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string) (string, error) {
	if v, ok := f.store[key]; ok {
		return v, nil
	}
	return "", apperrors.ErrNotFound
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if s, ok := value.(string); ok {
		f.store[key] = s
	}
	return nil
}

func (f *fakeCacheRepo) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.store, k)
	}
	return nil
}

func (f *fakeCacheRepo) DelPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range f.store {
		if strings.HasPrefix(k, prefix) {
			delete(f.store, k)
		}
	}
	return nil
}

type fakeDashboardRepo struct {
	nextID     uint64
	dashboards map[uint64]*entities.Dashboard
	widgets    map[uint64]*entities.DashboardWidget
}

func newFakeDashboardRepo() *fakeDashboardRepo {
	return &fakeDashboardRepo{
		dashboards: make(map[uint64]*entities.Dashboard),
		widgets:    make(map[uint64]*entities.DashboardWidget),
	}
}

func (f *fakeDashboardRepo) seedDashboard(d entities.Dashboard) *entities.Dashboard {
	f.nextID++
	d.ID = f.nextID
	stored := d
	f.dashboards[stored.ID] = &stored
	return &stored
}

func (f *fakeDashboardRepo) seedWidget(w entities.DashboardWidget) *entities.DashboardWidget {
	f.nextID++
	w.ID = f.nextID
	stored := w
	f.widgets[stored.ID] = &stored
	return &stored
}

func (f *fakeDashboardRepo) FindDashboard(ctx context.Context, id uint64) (*entities.Dashboard, error) {
	if d, ok := f.dashboards[id]; ok {
		return d, nil
	}
	return nil, apperrors.ErrDashboardNotFound
}

func (f *fakeDashboardRepo) ListDashboards(ctx context.Context) ([]entities.Dashboard, error) {
	var out []entities.Dashboard
	for _, d := range f.dashboards {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDashboardRepo) CreateDashboard(ctx context.Context, payload dto.CreateDashboardDTO) (*entities.Dashboard, error) {
	d := entities.Dashboard{Name: payload.Name, IsDefault: payload.IsDefault, IsPublic: payload.IsPublic}
	if payload.IsDefault {
		for _, other := range f.dashboards {
			other.IsDefault = false
		}
	}
	return f.seedDashboard(d), nil
}

func (f *fakeDashboardRepo) UpdateDashboard(ctx context.Context, id uint64, payload dto.UpdateDashboardDTO) (*entities.Dashboard, error) {
	d, ok := f.dashboards[id]
	if !ok {
		return nil, apperrors.ErrDashboardNotFound
	}
	if payload.Name != nil {
		d.Name = *payload.Name
	}
	if payload.IsDefault != nil {
		if *payload.IsDefault {
			for _, other := range f.dashboards {
				other.IsDefault = false
			}
		}
		d.IsDefault = *payload.IsDefault
	}
	return d, nil
}

func (f *fakeDashboardRepo) DeleteDashboard(ctx context.Context, id uint64) error {
	if _, ok := f.dashboards[id]; !ok {
		return apperrors.ErrDashboardNotFound
	}
	delete(f.dashboards, id)
	for wid, w := range f.widgets {
		if w.DashboardID == id {
			delete(f.widgets, wid)
		}
	}
	return nil
}

func (f *fakeDashboardRepo) FindWidget(ctx context.Context, id uint64) (*entities.DashboardWidget, error) {
	if w, ok := f.widgets[id]; ok {
		return w, nil
	}
	return nil, apperrors.ErrWidgetNotFound
}

func (f *fakeDashboardRepo) ListWidgets(ctx context.Context, dashboardID uint64) ([]entities.DashboardWidget, error) {
	var out []entities.DashboardWidget
	for _, w := range f.widgets {
		if w.DashboardID == dashboardID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeDashboardRepo) CreateWidget(ctx context.Context, payload dto.CreateWidgetDTO) (*entities.DashboardWidget, error) {
	w := entities.DashboardWidget{
		DashboardID:   payload.DashboardID,
		Type:          entities.WidgetType(payload.Type),
		Title:         payload.Title,
		Configuration: payload.Configuration,
		Position: entities.WidgetPosition{
			X:      payload.Position.X,
			Y:      payload.Position.Y,
			Width:  payload.Position.Width,
			Height: payload.Position.Height,
		},
		IsVisible: true,
	}
	return f.seedWidget(w), nil
}

func (f *fakeDashboardRepo) UpdateWidget(ctx context.Context, id uint64, payload dto.UpdateWidgetDTO) (*entities.DashboardWidget, error) {
	w, ok := f.widgets[id]
	if !ok {
		return nil, apperrors.ErrWidgetNotFound
	}
	if payload.Title != nil {
		w.Title = *payload.Title
	}
	if len(payload.Configuration) > 0 {
		w.Configuration = payload.Configuration
	}
	return w, nil
}

func (f *fakeDashboardRepo) DeleteWidget(ctx context.Context, id uint64) error {
	if _, ok := f.widgets[id]; !ok {
		return apperrors.ErrWidgetNotFound
	}
	delete(f.widgets, id)
	return nil
}
