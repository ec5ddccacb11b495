package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"omnicrm/internal/entities"
	"omnicrm/internal/events"
	"omnicrm/internal/repositories"
	"omnicrm/pkg/config"
	"omnicrm/pkg/eventbus"
	"omnicrm/pkg/utils"
)

// Nomes dos KPIs calculados pelo motor. A identidade no banco é (name, category).
const (
	KpiAvgResponseTime   = "tempo_medio_resposta"
	KpiResolutionRate    = "taxa_resolucao"
	KpiAgentProductivity = "produtividade_agente"

	KpiConversionRate  = "taxa_conversao"
	KpiAvgDealValue    = "valor_medio_negocio"
	KpiSalesCycleTime  = "ciclo_de_vendas"
	KpiTotalSalesValue = "valor_total_vendas"
	KpiAverageTicket   = "ticket_medio"
	KpiLeadsBySource   = "leads_por_origem"
	KpiSalesByRegion   = "vendas_por_regiao"
)

type KpiServiceInterface interface {
	UpdateCustomerServiceKpis(ctx context.Context, dateFrom, dateTo time.Time) error
	UpdateSalesKpis(ctx context.Context, dateFrom, dateTo time.Time) error
	ListKpis(ctx context.Context, category string) ([]entities.Kpi, error)
	ListKpiValues(ctx context.Context, kpiID uint64, periodType string, limit int) ([]entities.KpiValue, error)
	FindKpi(ctx context.Context, id uint64) (*entities.Kpi, error)
}

// KpiService deriva valores de KPI dos dados operacionais crus e persiste
// cada snapshot. Métricas fracionárias (percentual, razão, tempo) são
// gravadas ×100; moeda fica em centavos.
type KpiService struct {
	kpiRepo     repositories.KpiRepositoryInterface
	metricsRepo repositories.MetricsRepositoryInterface
	bus         *eventbus.Bus
	cfg         config.AnalyticsConfig
	logger      *zap.Logger
}

func NewKpiService(
	kpiRepo repositories.KpiRepositoryInterface,
	metricsRepo repositories.MetricsRepositoryInterface,
	bus *eventbus.Bus,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
) KpiServiceInterface {
	return &KpiService{
		kpiRepo:     kpiRepo,
		metricsRepo: metricsRepo,
		bus:         bus,
		cfg:         cfg,
		logger:      logger,
	}
}

// computedValue junta o snapshot pronto com o KPI dono, para a checagem de
// limiar rodar depois que o lote inteiro foi persistido.
type computedValue struct {
	kpi   *entities.Kpi
	value entities.KpiValue
}

// UpdateCustomerServiceKpis computa e persiste os três indicadores de
// atendimento sobre a janela. Os inserts do lote ficam em UMA transação:
// falhou uma métrica, nenhuma fica visível.
func (s *KpiService) UpdateCustomerServiceKpis(ctx context.Context, dateFrom, dateTo time.Time) error {
	periodType := utils.DeterminePeriodType(dateFrom, dateTo)
	var batch []computedValue

	// 1. Tempo médio de primeira resposta (minutos, ×100)
	avgMinutes, pairs, err := s.metricsRepo.AvgResponseTimeMinutes(ctx, dateFrom, dateTo)
	if err != nil {
		return fmt.Errorf("erro ao calcular tempo de resposta: %w", err)
	}
	kpi, err := s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiAvgResponseTime,
		Category:    entities.KpiCategoryCustomerService,
		Description: "Tempo médio entre a mensagem do contato e a primeira resposta do atendente",
		MetricType:  entities.MetricTypeTime,
		Unit:        "min",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, math.Round(avgMinutes*100), utils.FormatMinutes(avgMinutes),
		dateFrom, dateTo, periodType,
		map[string]interface{}{"responded_pairs": pairs},
	)})

	// 2. Taxa de resolução (percentual, ×100)
	total, resolved, err := s.metricsRepo.ConversationCounts(ctx, dateFrom, dateTo)
	if err != nil {
		return fmt.Errorf("erro ao contar conversas: %w", err)
	}
	resolutionRate := 0.0
	if total > 0 {
		resolutionRate = float64(resolved) / float64(total) * 100
	}
	kpi, err = s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiResolutionRate,
		Category:    entities.KpiCategoryCustomerService,
		Description: "Conversas resolvidas sobre o total criado na janela",
		MetricType:  entities.MetricTypePercentage,
		Unit:        "%",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, math.Round(resolutionRate*100), utils.FormatPercentage(resolutionRate),
		dateFrom, dateTo, periodType,
		map[string]interface{}{"total": total, "resolved": resolved},
	)})

	// 3. Produtividade por agente: mensagens enviadas por hora útil (×100).
	userMessages, err := s.metricsRepo.MessageCountBySender(ctx, dateFrom, dateTo, "user")
	if err != nil {
		return fmt.Errorf("erro ao contar mensagens de atendentes: %w", err)
	}
	workingDays := utils.CountWorkingDays(dateFrom, dateTo)
	productivity := 0.0
	if workingDays > 0 {
		productivity = float64(userMessages) / (float64(workingDays) * float64(s.cfg.WorkingHoursPerDay))
	}
	kpi, err = s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiAgentProductivity,
		Category:    entities.KpiCategoryCustomerService,
		Description: "Mensagens enviadas por hora útil da janela",
		MetricType:  entities.MetricTypeRatio,
		Unit:        "msg/h",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, math.Round(productivity*100), fmt.Sprintf("%.2f msg/h", productivity),
		dateFrom, dateTo, periodType,
		map[string]interface{}{"messages": userMessages, "working_days": workingDays},
	)})

	return s.persistAndCheck(ctx, batch)
}

// UpdateSalesKpis computa e persiste os indicadores de vendas da janela,
// incluindo as duas séries de composição (origem dos leads e região).
func (s *KpiService) UpdateSalesKpis(ctx context.Context, dateFrom, dateTo time.Time) error {
	periodType := utils.DeterminePeriodType(dateFrom, dateTo)
	var batch []computedValue

	totalDeals, wonDeals, err := s.metricsRepo.DealCounts(ctx, dateFrom, dateTo)
	if err != nil {
		return fmt.Errorf("erro ao contar negócios: %w", err)
	}

	// 1. Taxa de conversão (ganhos ÷ criados, %, ×100). Zero negócios → 0.
	conversionRate := 0.0
	if totalDeals > 0 {
		conversionRate = float64(wonDeals) / float64(totalDeals) * 100
	}
	kpi, err := s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiConversionRate,
		Category:    entities.KpiCategorySales,
		Description: "Negócios ganhos sobre o total criado na janela",
		MetricType:  entities.MetricTypePercentage,
		Unit:        "%",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, math.Round(conversionRate*100), utils.FormatPercentage(conversionRate),
		dateFrom, dateTo, periodType,
		map[string]interface{}{"total": totalDeals, "won": wonDeals},
	)})

	totalValue, avgValue, wonCount, err := s.metricsRepo.WonDealValueStats(ctx, dateFrom, dateTo)
	if err != nil {
		return fmt.Errorf("erro ao somar negócios ganhos: %w", err)
	}

	// 2. Valor médio por negócio ganho (centavos).
	kpi, err = s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiAvgDealValue,
		Category:    entities.KpiCategorySales,
		Description: "Valor médio dos negócios ganhos",
		MetricType:  entities.MetricTypeCurrency,
		Unit:        "BRL",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, math.Round(avgValue), utils.FormatCurrency(avgValue),
		dateFrom, dateTo, periodType, nil,
	)})

	// 3. Ciclo de vendas: primeira conversa do contato até a criação do
	// negócio ganho (minutos, ×100).
	cycleMinutes, err := s.metricsRepo.SalesCycleMinutes(ctx, dateFrom, dateTo)
	if err != nil {
		return fmt.Errorf("erro ao calcular ciclo de vendas: %w", err)
	}
	kpi, err = s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiSalesCycleTime,
		Category:    entities.KpiCategorySales,
		Description: "Tempo entre o primeiro contato e o fechamento",
		MetricType:  entities.MetricTypeTime,
		Unit:        "min",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, math.Round(cycleMinutes*100), utils.FormatMinutes(cycleMinutes),
		dateFrom, dateTo, periodType, nil,
	)})

	// 4. Valor total de vendas (centavos).
	kpi, err = s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiTotalSalesValue,
		Category:    entities.KpiCategorySales,
		Description: "Soma dos negócios ganhos na janela",
		MetricType:  entities.MetricTypeCurrency,
		Unit:        "BRL",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, totalValue, utils.FormatCurrency(totalValue),
		dateFrom, dateTo, periodType,
		map[string]interface{}{"won": wonCount},
	)})

	// 5. Ticket médio (centavos). Sem ganho na janela → 0.
	averageTicket := 0.0
	if wonCount > 0 {
		averageTicket = totalValue / float64(wonCount)
	}
	kpi, err = s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiAverageTicket,
		Category:    entities.KpiCategorySales,
		Description: "Valor total de vendas dividido pelos negócios ganhos",
		MetricType:  entities.MetricTypeCurrency,
		Unit:        "BRL",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, math.Round(averageTicket), utils.FormatCurrency(averageTicket),
		dateFrom, dateTo, periodType, nil,
	)})

	// 6. Leads por origem (série de composição em metadata).
	leads, err := s.metricsRepo.LeadsBySource(ctx, dateFrom, dateTo)
	if err != nil {
		return fmt.Errorf("erro ao agrupar leads por origem: %w", err)
	}
	var leadTotal int64
	for _, l := range leads {
		leadTotal += l.Count
	}
	kpi, err = s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiLeadsBySource,
		Category:    entities.KpiCategorySales,
		Description: "Negócios criados agrupados pela origem do lead",
		MetricType:  entities.MetricTypeNumber,
		Unit:        "leads",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, float64(leadTotal), utils.FormatNumber(float64(leadTotal), 0),
		dateFrom, dateTo, periodType,
		map[string]interface{}{"series": leads},
	)})

	// 7. Vendas por região (contagem + soma em metadata).
	regions, err := s.metricsRepo.WonDealsByRegion(ctx, dateFrom, dateTo)
	if err != nil {
		return fmt.Errorf("erro ao agrupar vendas por região: %w", err)
	}
	kpi, err = s.kpiRepo.GetOrCreate(ctx, repositories.KpiCriteria{
		Name:        KpiSalesByRegion,
		Category:    entities.KpiCategorySales,
		Description: "Negócios ganhos agrupados por região",
		MetricType:  entities.MetricTypeNumber,
		Unit:        "negócios",
	})
	if err != nil {
		return err
	}
	batch = append(batch, computedValue{kpi: kpi, value: s.newValue(
		kpi.ID, float64(wonCount), utils.FormatNumber(float64(wonCount), 0),
		dateFrom, dateTo, periodType,
		map[string]interface{}{"series": regions},
	)})

	return s.persistAndCheck(ctx, batch)
}

func (s *KpiService) ListKpis(ctx context.Context, category string) ([]entities.Kpi, error) {
	return s.kpiRepo.List(ctx, category)
}

func (s *KpiService) ListKpiValues(ctx context.Context, kpiID uint64, periodType string, limit int) ([]entities.KpiValue, error) {
	return s.kpiRepo.ListValues(ctx, kpiID, periodType, limit)
}

func (s *KpiService) FindKpi(ctx context.Context, id uint64) (*entities.Kpi, error) {
	return s.kpiRepo.FindByID(ctx, id)
}

func (s *KpiService) newValue(kpiID uint64, value float64, textValue string, dateFrom, dateTo time.Time, periodType utils.PeriodType, metadata map[string]interface{}) entities.KpiValue {
	v := entities.KpiValue{
		KpiID:      kpiID,
		Value:      value,
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		PeriodType: periodType,
	}
	v.TextValue.SetValid(textValue)
	if metadata != nil {
		// Metadata é informativo; falha de marshal não derruba a computação.
		if raw, err := json.Marshal(metadata); err == nil {
			v.Metadata = raw
		} else {
			s.logger.Warn("Falha ao serializar metadata do KPI", zap.Uint64("kpi_id", kpiID), zap.Error(err))
		}
	}
	return v
}

// persistAndCheck grava o lote em uma transação e, com tudo visível, roda a
// checagem de limiar de cada valor.
func (s *KpiService) persistAndCheck(ctx context.Context, batch []computedValue) error {
	values := make([]entities.KpiValue, len(batch))
	for i, c := range batch {
		values[i] = c.value
	}
	if err := s.kpiRepo.InsertValues(ctx, values); err != nil {
		return err
	}

	for _, c := range batch {
		s.checkKpiThreshold(ctx, c.kpi, c.value)
	}
	return nil
}

// checkKpiThreshold publica o evento de alerta quando o valor novo fica
// abaixo do limiar de aviso. Efeito colateral puro: nunca bloqueia nem
// desfaz a persistência do valor.
func (s *KpiService) checkKpiThreshold(ctx context.Context, kpi *entities.Kpi, value entities.KpiValue) {
	if !kpi.WarningThreshold.Valid {
		return
	}
	if value.Value >= kpi.WarningThreshold.Float64 {
		return
	}

	s.logger.Warn("KPI abaixo do limiar de aviso",
		zap.String("kpi", kpi.Name),
		zap.Float64("value", value.Value),
		zap.Float64("threshold", kpi.WarningThreshold.Float64),
	)

	s.bus.Publish(ctx, events.KpiThresholdBreachedEvent{
		Kpi:           *kpi,
		Value:         value.Value,
		TextValue:     value.TextValue.String,
		CorrelationID: uuid.NewString(),
	})
}
