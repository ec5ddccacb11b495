package utils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "omnicrm/pkg/errors"
)

type HTTPResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HTTPResponse{
		Status:  true,
		Body:    body,
		Message: message,
	})
}

// ErrorResponse converte o erro em envelope JSON. HttpError mantém o código;
// sentinelas conhecidas viram 404/400; o resto vira 500 com mensagem genérica
// (o detalhe técnico fica só no log).
func ErrorResponse(ctx echo.Context, err error, logger *zap.Logger) error {
	code := http.StatusInternalServerError
	message := "Erro interno do servidor"

	var httpErr *apperrors.HttpError
	var inputErr *apperrors.InvalidInputError

	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		message = httpErr.Message
	case errors.As(err, &inputErr):
		code = http.StatusBadRequest
		message = inputErr.Message
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrKpiNotFound),
		errors.Is(err, apperrors.ErrWidgetNotFound),
		errors.Is(err, apperrors.ErrDashboardNotFound):
		code = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, apperrors.ErrBadRequest):
		code = http.StatusBadRequest
		message = err.Error()
	}

	if code >= http.StatusInternalServerError {
		logger.Error("Erro não tratado na requisição",
			zap.String("uri", ctx.Request().RequestURI),
			zap.Error(err),
		)
	}

	return ctx.JSON(code, &HTTPResponse{
		Status:  false,
		Message: message,
	})
}
