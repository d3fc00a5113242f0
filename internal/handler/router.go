package handler

import (
	"github.com/SergeiKhy/shortlink/internal/logger"
	"github.com/SergeiKhy/shortlink/internal/middleware"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig настройки HTTP слоя
type RouterConfig struct {
	// AllowedOrigins origin дашборда. Пустой список отключает CORS.
	AllowedOrigins []string
}

func NewRouter(
	linkService service.LinkService,
	resolver service.Resolver,
	log *zap.Logger,
	cfg RouterConfig,
) *gin.Engine {
	log = logger.OrNop(log)
	RegisterValidators()

	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(middleware.CORS(cfg.AllowedOrigins))
	}

	router.NoRoute(NoRoute)
	router.NoMethod(NoMethod)

	linkHandler := NewLinkHandler(linkService, log)
	redirectHandler := NewRedirectHandler(resolver, log)

	// Служебные маршруты живут под /api: короткий код не может содержать "/"
	router.GET("/api/healthz", HealthCheck)

	links := router.Group("/links")
	{
		links.POST("", linkHandler.CreateLink)
		links.GET("", linkHandler.ListLinks)
		links.GET("/:code", linkHandler.GetLink)
		links.DELETE("/:code", linkHandler.DeleteLink)
	}

	// Редирект (корневой путь)
	router.GET("/:code", redirectHandler.Redirect)

	return router
}
