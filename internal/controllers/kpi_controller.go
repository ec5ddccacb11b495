package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"omnicrm/internal/dto"
	"omnicrm/internal/entities"
	"omnicrm/internal/services"
	apperrors "omnicrm/pkg/errors"
	"omnicrm/pkg/utils"
)

type KpiController struct {
	kpiService services.KpiServiceInterface
	logger     *zap.Logger
}

func NewKpiController(kpiService services.KpiServiceInterface, logger *zap.Logger) *KpiController {
	return &KpiController{kpiService: kpiService, logger: logger}
}

// ListKpis devolve as definições de KPI, com filtro opcional por categoria.
func (c *KpiController) ListKpis(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	category := ctx.QueryParam("category")
	kpis, err := c.kpiService.ListKpis(reqCtx, category)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, kpis, "KPIs listados com sucesso", http.StatusOK)
}

// ListKpiValues devolve o histórico de valores do KPI. Com format=xlsx a
// resposta vira uma planilha para download.
func (c *KpiController) ListKpiValues(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	kpiID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("id de KPI inválido"), c.logger)
	}

	periodType := ctx.QueryParam("periodType")
	limit := 100
	if raw := ctx.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	format := strings.ToLower(ctx.QueryParam("format"))
	if format == "xlsx" {
		// Exporta o histórico inteiro.
		limit = 100000
	}

	kpi, err := c.kpiService.FindKpi(reqCtx, kpiID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	values, err := c.kpiService.ListKpiValues(reqCtx, kpiID, periodType, limit)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if format == "xlsx" {
		return c.respondWithXLSX(ctx, kpi, values)
	}

	return utils.SuccessResponse(ctx, toKpiValueDTOs(values), "Valores do KPI listados com sucesso", http.StatusOK)
}

// toKpiValueDTOs achata os snapshots para o contrato JSON da API: datas em
// RFC3339 e texto sem o invólucro de nulidade.
func toKpiValueDTOs(values []entities.KpiValue) []dto.KpiValueDTO {
	out := make([]dto.KpiValueDTO, 0, len(values))
	for _, v := range values {
		out = append(out, dto.KpiValueDTO{
			ID:         v.ID,
			KpiID:      v.KpiID,
			Value:      v.Value,
			TextValue:  v.TextValue.String,
			DateFrom:   v.DateFrom.Format(time.RFC3339),
			DateTo:     v.DateTo.Format(time.RFC3339),
			PeriodType: string(v.PeriodType),
		})
	}
	return out
}

// UpdateCustomerServiceKpis dispara a computação dos KPIs de atendimento.
func (c *KpiController) UpdateCustomerServiceKpis(ctx echo.Context) error {
	return c.runUpdate(ctx, c.kpiService.UpdateCustomerServiceKpis, "KPIs de atendimento atualizados com sucesso")
}

// UpdateSalesKpis dispara a computação dos KPIs de vendas.
func (c *KpiController) UpdateSalesKpis(ctx echo.Context) error {
	return c.runUpdate(ctx, c.kpiService.UpdateSalesKpis, "KPIs de vendas atualizados com sucesso")
}

func (c *KpiController) runUpdate(ctx echo.Context, update func(reqCtx context.Context, from, to time.Time) error, message string) error {
	reqCtx := ctx.Request().Context()

	var payload dto.UpdateKpisDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("corpo da requisição inválido"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	dateFrom, err := time.Parse(time.RFC3339, payload.DateFrom)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("dateFrom inválido, use RFC3339"), c.logger)
	}
	dateTo, err := time.Parse(time.RFC3339, payload.DateTo)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("dateTo inválido, use RFC3339"), c.logger)
	}
	if dateTo.Before(dateFrom) {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("dateTo anterior a dateFrom"), c.logger)
	}

	if err := update(reqCtx, dateFrom, dateTo); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, message, http.StatusOK)
}

var kpiValueHeaders = []string{
	"ID", "Valor", "Valor formatado", "Período", "Início", "Fim", "Computado em",
}

func kpiValueToRow(v entities.KpiValue) []interface{} {
	return []interface{}{
		v.ID,
		v.Value,
		v.TextValue.String,
		string(v.PeriodType),
		utils.FormatDate(v.DateFrom),
		utils.FormatDate(v.DateTo),
		utils.FormatDateTime(v.CreatedAt),
	}
}

func (c *KpiController) respondWithXLSX(ctx echo.Context, kpi *entities.Kpi, values []entities.KpiValue) error {
	f := excelize.NewFile()
	sheet := "Histórico de KPI"
	f.SetSheetName("Sheet1", sheet)
	f.SetSheetRow(sheet, "A1", &kpiValueHeaders)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "G1", style)

	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := kpiValueToRow(v)
		f.SetSheetRow(sheet, cell, &row)
	}
	f.SetColWidth(sheet, "B", "C", 18)
	f.SetColWidth(sheet, "E", "G", 20)

	fileName := fmt.Sprintf("kpi_%s_%s.xlsx", kpi.Name, time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
