package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"omnicrm/internal/dto"
	"omnicrm/internal/services"
	apperrors "omnicrm/pkg/errors"
	"omnicrm/pkg/utils"
)

type DashboardController struct {
	dashboardService  services.DashboardServiceInterface
	widgetDataService services.WidgetDataServiceInterface
	logger            *zap.Logger
}

func NewDashboardController(
	dashboardService services.DashboardServiceInterface,
	widgetDataService services.WidgetDataServiceInterface,
	logger *zap.Logger,
) *DashboardController {
	return &DashboardController{
		dashboardService:  dashboardService,
		widgetDataService: widgetDataService,
		logger:            logger,
	}
}

func (c *DashboardController) ListDashboards(ctx echo.Context) error {
	dashboards, err := c.dashboardService.ListDashboards(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dashboards, "Dashboards listados com sucesso", http.StatusOK)
}

func (c *DashboardController) GetDashboard(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	dashboard, err := c.dashboardService.FindDashboard(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dashboard, "Dashboard encontrado com sucesso", http.StatusOK)
}

func (c *DashboardController) CreateDashboard(ctx echo.Context) error {
	var payload dto.CreateDashboardDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("corpo da requisição inválido"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	dashboard, err := c.dashboardService.CreateDashboard(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dashboard, "Dashboard criado com sucesso", http.StatusCreated)
}

func (c *DashboardController) UpdateDashboard(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateDashboardDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("corpo da requisição inválido"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	dashboard, err := c.dashboardService.UpdateDashboard(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dashboard, "Dashboard atualizado com sucesso", http.StatusOK)
}

func (c *DashboardController) DeleteDashboard(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.dashboardService.DeleteDashboard(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Dashboard removido com sucesso", http.StatusOK)
}

func (c *DashboardController) ListWidgets(ctx echo.Context) error {
	dashboardID, err := paramID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	widgets, err := c.dashboardService.ListWidgets(ctx.Request().Context(), dashboardID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, widgets, "Widgets listados com sucesso", http.StatusOK)
}

func (c *DashboardController) CreateWidget(ctx echo.Context) error {
	dashboardID, err := paramID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.CreateWidgetDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("corpo da requisição inválido"), c.logger)
	}
	payload.DashboardID = dashboardID
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	widget, err := c.dashboardService.CreateWidget(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, widget, "Widget criado com sucesso", http.StatusCreated)
}

func (c *DashboardController) UpdateWidget(ctx echo.Context) error {
	id, err := paramID(ctx, "widgetId")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateWidgetDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("corpo da requisição inválido"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	widget, err := c.dashboardService.UpdateWidget(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, widget, "Widget atualizado com sucesso", http.StatusOK)
}

func (c *DashboardController) DeleteWidget(ctx echo.Context) error {
	id, err := paramID(ctx, "widgetId")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.dashboardService.DeleteWidget(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Widget removido com sucesso", http.StatusOK)
}

// GetWidgetData resolve o payload do widget. O resolver não propaga erro de
// domínio: o payload sempre sai 200, no pior caso com o campo "error".
func (c *DashboardController) GetWidgetData(ctx echo.Context) error {
	id, err := paramID(ctx, "widgetId")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var dateFrom, dateTo *time.Time
	if raw := ctx.QueryParam("dateFrom"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("dateFrom inválido, use RFC3339"), c.logger)
		}
		dateFrom = &t
	}
	if raw := ctx.QueryParam("dateTo"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("dateTo inválido, use RFC3339"), c.logger)
		}
		dateTo = &t
	}

	payload := c.widgetDataService.GetWidgetData(ctx.Request().Context(), id, dateFrom, dateTo)
	return ctx.JSON(http.StatusOK, payload)
}

func paramID(ctx echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewInvalidInputError("parâmetro %s inválido", name)
	}
	return id, nil
}
