package handler

import (
	"net/http"

	"github.com/SergeiKhy/shortlink/internal/logger"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RedirectHandler struct {
	resolver service.Resolver
	logger   *zap.Logger
}

func NewRedirectHandler(resolver service.Resolver, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver: resolver,
		logger:   logger.OrNop(log),
	}
}

// Redirect godoc
// @Summary Redirect to target URL
// @Description Redirect a visitor to the target URL by short code and count the click
// @Tags redirect
// @Produce json
// @Param code path string true "Short code"
// @Success 307
// @Failure 404 {object} ErrorResponse
// @Router /{code} [get]
func (h *RedirectHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	link, err := h.resolver.Resolve(c.Request.Context(), code)
	if err != nil {
		status, body := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to resolve link", zap.String("code", code), zap.Error(err))
		}
		c.AbortWithStatusJSON(status, body)
		return
	}

	// Каждый переход должен доходить до сервера, иначе клик не будет учтён
	c.Header("Cache-Control", "private, no-cache")
	c.Redirect(http.StatusTemporaryRedirect, link.TargetURL)
}
