package errors

import "fmt"

var (
	// Genéricos
	ErrNotFound   = fmt.Errorf("registro não encontrado")
	ErrBadRequest = fmt.Errorf("requisição inválida")

	// Núcleo de analytics
	ErrKpiNotFound       = fmt.Errorf("KPI não encontrado")
	ErrWidgetNotFound    = fmt.Errorf("widget não encontrado")
	ErrDashboardNotFound = fmt.Errorf("dashboard não encontrado")

	// Erros de configuração nos pontos de despacho (agrupamento, comparação, métrica...)
	ErrUnsupportedGrouping   = fmt.Errorf("agrupamento não suportado")
	ErrUnsupportedComparison = fmt.Errorf("tipo de comparação não suportado")
	ErrUnsupportedMetric     = fmt.Errorf("métrica não suportada")
	ErrUnsupportedWidgetType = fmt.Errorf("tipo de widget não suportado")
	ErrUnsupportedFunnelType = fmt.Errorf("tipo de funil não suportado")
	ErrUnsupportedBoardType  = fmt.Errorf("tipo de quadro não suportado")
)

// HttpError carrega o código HTTP junto com a mensagem para o usuário.
// A causa original fica encapsulada para o log; ela nunca vai na resposta.
type HttpError struct {
	Code    int
	Message string
	Err     error
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err}
}

func NewInternalError(message string) *HttpError {
	return &HttpError{Code: 500, Message: message}
}

type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}
