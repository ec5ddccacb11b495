package utils

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "omnicrm/pkg/errors"
)

// EchoValidator adapta o go-playground/validator para o echo.
type EchoValidator struct {
	validate *validator.Validate
}

func NewValidator(v *validator.Validate) *EchoValidator {
	return &EchoValidator{validate: v}
}

func (ev *EchoValidator) Validate(i interface{}) error {
	if err := ev.validate.Struct(i); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "Dados da requisição inválidos", err)
	}
	return nil
}
