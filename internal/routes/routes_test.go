package routes

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"omnicrm/pkg/config"
	"omnicrm/pkg/eventbus"
)

// Os caminhos abaixo são o contrato público da API: clientes já construídos
// contra eles não podem receber 404 por causa de um rename interno.
func TestInitRouterRegistersPublicPaths(t *testing.T) {
	e := echo.New()
	cfg := &config.Config{
		Analytics: config.AnalyticsConfig{
			DefaultWindow:      30 * 24 * time.Hour,
			CacheTTL:           5 * time.Minute,
			WorkingHoursPerDay: 8,
		},
	}

	// Nenhum handler é chamado aqui: o pool nulo e o client sem servidor só
	// viajam pelos construtores.
	InitRouter(e, nil, redis.NewClient(&redis.Options{}), eventbus.New(zap.NewNop()), cfg, zap.NewNop())

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	expected := []string{
		"GET /api/kpis",
		"GET /api/kpis/:id/values",
		"POST /api/kpis/update-customer-service",
		"POST /api/kpis/update-sales",
		"GET /api/dashboards",
		"POST /api/dashboards",
		"GET /api/dashboards/:id",
		"PUT /api/dashboards/:id",
		"DELETE /api/dashboards/:id",
		"GET /api/dashboards/:id/widgets",
		"POST /api/dashboards/:id/widgets",
		"GET /api/dashboards/widgets/:widgetId/data",
		"PUT /api/widgets/:widgetId",
		"DELETE /api/widgets/:widgetId",
	}
	for _, route := range expected {
		require.True(t, registered[route], fmt.Sprintf("rota %s não registrada", route))
	}
}
