package services

import (
	"context"

	"go.uber.org/zap"

	"omnicrm/internal/dto"
	"omnicrm/internal/entities"
	"omnicrm/internal/repositories"
	apperrors "omnicrm/pkg/errors"
)

type DashboardServiceInterface interface {
	FindDashboard(ctx context.Context, id uint64) (*entities.Dashboard, error)
	ListDashboards(ctx context.Context) ([]entities.Dashboard, error)
	CreateDashboard(ctx context.Context, payload dto.CreateDashboardDTO) (*entities.Dashboard, error)
	UpdateDashboard(ctx context.Context, id uint64, payload dto.UpdateDashboardDTO) (*entities.Dashboard, error)
	DeleteDashboard(ctx context.Context, id uint64) error

	FindWidget(ctx context.Context, id uint64) (*entities.DashboardWidget, error)
	ListWidgets(ctx context.Context, dashboardID uint64) ([]entities.DashboardWidget, error)
	CreateWidget(ctx context.Context, payload dto.CreateWidgetDTO) (*entities.DashboardWidget, error)
	UpdateWidget(ctx context.Context, id uint64, payload dto.UpdateWidgetDTO) (*entities.DashboardWidget, error)
	DeleteWidget(ctx context.Context, id uint64) error
}

// DashboardService orquestra o CRUD de dashboards e widgets: validação da
// configuração contra o tipo, defaults de posição e invalidação de cache.
// As garantias transacionais (default único, remoção em cascata) ficam no
// repositório.
type DashboardService struct {
	dashboardRepo repositories.DashboardRepositoryInterface
	widgetData    WidgetDataServiceInterface
	logger        *zap.Logger
}

func NewDashboardService(
	dashboardRepo repositories.DashboardRepositoryInterface,
	widgetData WidgetDataServiceInterface,
	logger *zap.Logger,
) DashboardServiceInterface {
	return &DashboardService{
		dashboardRepo: dashboardRepo,
		widgetData:    widgetData,
		logger:        logger,
	}
}

func (s *DashboardService) FindDashboard(ctx context.Context, id uint64) (*entities.Dashboard, error) {
	return s.dashboardRepo.FindDashboard(ctx, id)
}

func (s *DashboardService) ListDashboards(ctx context.Context) ([]entities.Dashboard, error) {
	return s.dashboardRepo.ListDashboards(ctx)
}

func (s *DashboardService) CreateDashboard(ctx context.Context, payload dto.CreateDashboardDTO) (*entities.Dashboard, error) {
	return s.dashboardRepo.CreateDashboard(ctx, payload)
}

func (s *DashboardService) UpdateDashboard(ctx context.Context, id uint64, payload dto.UpdateDashboardDTO) (*entities.Dashboard, error) {
	return s.dashboardRepo.UpdateDashboard(ctx, id, payload)
}

func (s *DashboardService) DeleteDashboard(ctx context.Context, id uint64) error {
	widgets, err := s.dashboardRepo.ListWidgets(ctx, id)
	if err != nil {
		return err
	}
	if err := s.dashboardRepo.DeleteDashboard(ctx, id); err != nil {
		return err
	}
	for _, w := range widgets {
		s.widgetData.InvalidateWidget(ctx, w.ID)
	}
	return nil
}

func (s *DashboardService) FindWidget(ctx context.Context, id uint64) (*entities.DashboardWidget, error) {
	return s.dashboardRepo.FindWidget(ctx, id)
}

func (s *DashboardService) ListWidgets(ctx context.Context, dashboardID uint64) ([]entities.DashboardWidget, error) {
	// Dashboard inexistente responde 404, não lista vazia.
	if _, err := s.dashboardRepo.FindDashboard(ctx, dashboardID); err != nil {
		return nil, err
	}
	return s.dashboardRepo.ListWidgets(ctx, dashboardID)
}

func (s *DashboardService) CreateWidget(ctx context.Context, payload dto.CreateWidgetDTO) (*entities.DashboardWidget, error) {
	widgetType := entities.WidgetType(payload.Type)
	settings, err := SettingsForWidgetType(widgetType)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("tipo de widget inválido: %s", payload.Type)
	}
	if err := ValidateWidgetConfig(widgetType, payload.Configuration); err != nil {
		return nil, err
	}
	if _, err := s.dashboardRepo.FindDashboard(ctx, payload.DashboardID); err != nil {
		return nil, err
	}

	// Posição ausente recebe o tamanho default do tipo.
	if payload.Position.Width == 0 {
		payload.Position.Width = settings.DefaultPosition.Width
	}
	if payload.Position.Height == 0 {
		payload.Position.Height = settings.DefaultPosition.Height
	}

	return s.dashboardRepo.CreateWidget(ctx, payload)
}

func (s *DashboardService) UpdateWidget(ctx context.Context, id uint64, payload dto.UpdateWidgetDTO) (*entities.DashboardWidget, error) {
	widget, err := s.dashboardRepo.FindWidget(ctx, id)
	if err != nil {
		return nil, err
	}

	// O tipo do widget é imutável; configuração nova valida contra ele.
	if len(payload.Configuration) > 0 {
		if err := ValidateWidgetConfig(widget.Type, payload.Configuration); err != nil {
			return nil, err
		}
	}

	updated, err := s.dashboardRepo.UpdateWidget(ctx, id, payload)
	if err != nil {
		return nil, err
	}

	if len(payload.Configuration) > 0 {
		// Configuração mudou: payloads cacheados ficaram obsoletos.
		s.widgetData.InvalidateWidget(ctx, id)
	}
	return updated, nil
}

func (s *DashboardService) DeleteWidget(ctx context.Context, id uint64) error {
	if err := s.dashboardRepo.DeleteWidget(ctx, id); err != nil {
		return err
	}
	s.widgetData.InvalidateWidget(ctx, id)
	return nil
}
