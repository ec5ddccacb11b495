package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"omnicrm/internal/controllers"
	"omnicrm/internal/listeners"
	"omnicrm/internal/repositories"
	"omnicrm/internal/services"
	"omnicrm/pkg/config"
	"omnicrm/pkg/eventbus"
)

// InitRouter monta toda a cadeia repositório -> serviço -> controller e
// registra as rotas da API de analytics.
func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, redisClient *redis.Client, bus *eventbus.Bus, cfg *config.Config, logger *zap.Logger) {
	api := e.Group("/api")

	// --- 1. REPOSITÓRIOS ---
	kpiRepo := repositories.NewKpiRepository(dbConn, logger)
	metricsRepo := repositories.NewMetricsRepository(dbConn, logger)
	dashboardRepo := repositories.NewDashboardRepository(dbConn, logger)
	notificationRepo := repositories.NewNotificationRepository(dbConn, logger)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// --- 2. SERVIÇOS ---
	kpiService := services.NewKpiService(kpiRepo, metricsRepo, bus, cfg.Analytics, logger)
	widgetDataService := services.NewWidgetDataService(dashboardRepo, kpiRepo, metricsRepo, cacheRepo, cfg.Analytics, logger)
	dashboardService := services.NewDashboardService(dashboardRepo, widgetDataService, logger)

	// --- 3. OUVINTES DE EVENTO ---
	notificationListener := listeners.NewNotificationListener(notificationRepo, logger)
	notificationListener.Register(bus)

	// --- 4. CONTROLLERS ---
	kpiController := controllers.NewKpiController(kpiService, logger)
	dashboardController := controllers.NewDashboardController(dashboardService, widgetDataService, logger)

	// --- 5. ROTAS ---
	kpis := api.Group("/kpis")
	kpis.GET("", kpiController.ListKpis)
	kpis.GET("/:id/values", kpiController.ListKpiValues)
	kpis.POST("/update-customer-service", kpiController.UpdateCustomerServiceKpis)
	kpis.POST("/update-sales", kpiController.UpdateSalesKpis)

	dashboards := api.Group("/dashboards")
	dashboards.GET("", dashboardController.ListDashboards)
	dashboards.POST("", dashboardController.CreateDashboard)
	dashboards.GET("/:id", dashboardController.GetDashboard)
	dashboards.PUT("/:id", dashboardController.UpdateDashboard)
	dashboards.DELETE("/:id", dashboardController.DeleteDashboard)
	dashboards.GET("/:id/widgets", dashboardController.ListWidgets)
	dashboards.POST("/:id/widgets", dashboardController.CreateWidget)
	dashboards.GET("/widgets/:widgetId/data", dashboardController.GetWidgetData)

	widgets := api.Group("/widgets")
	widgets.PUT("/:widgetId", dashboardController.UpdateWidget)
	widgets.DELETE("/:widgetId", dashboardController.DeleteWidget)
}
