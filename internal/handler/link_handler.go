package handler

import (
	"net/http"

	"github.com/SergeiKhy/shortlink/internal/logger"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service service.LinkService
	logger  *zap.Logger
}

func NewLinkHandler(service service.LinkService, log *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		logger:  logger.OrNop(log),
	}
}

type CreateLinkRequest struct {
	TargetURL string `json:"targetUrl" binding:"required,httpurl"`
	Code      string `json:"code,omitempty" binding:"omitempty,shortcode"`
}

// CreateLink godoc
// @Summary Create a short link
// @Description Create a new short link with a generated or custom code
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link creation request"
// @Success 201 {object} models.Link
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /links [post]
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", zap.Error(err))
		code, message := bindingError(err)
		abortWithError(c, http.StatusBadRequest, code, message)
		return
	}

	input := &models.CreateLinkInput{
		TargetURL: req.TargetURL,
	}
	// Пустой код означает генерацию
	if req.Code != "" {
		input.Code = &req.Code
	}

	link, err := h.service.CreateLink(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, "Failed to create link", err)
		return
	}

	c.JSON(http.StatusCreated, link)
}

// ListLinks godoc
// @Summary List short links
// @Description List all short links, newest first
// @Tags links
// @Produce json
// @Success 200 {array} models.Link
// @Failure 500 {object} ErrorResponse
// @Router /links [get]
func (h *LinkHandler) ListLinks(c *gin.Context) {
	links, err := h.service.ListLinks(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list links", err)
		return
	}
	if links == nil {
		links = []*models.Link{}
	}

	c.JSON(http.StatusOK, links)
}

// GetLink godoc
// @Summary Get a short link
// @Description Get a short link with its click statistics
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} models.Link
// @Failure 404 {object} ErrorResponse
// @Router /links/{code} [get]
func (h *LinkHandler) GetLink(c *gin.Context) {
	code := c.Param("code")

	link, err := h.service.GetLink(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, "Failed to get link", err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// DeleteLink godoc
// @Summary Delete a short link
// @Description Delete a short link by code
// @Tags links
// @Param code path string true "Short code"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /links/{code} [delete]
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	code := c.Param("code")

	if err := h.service.DeleteLink(c.Request.Context(), code); err != nil {
		h.respondError(c, "Failed to delete link", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// respondError пишет ответ об ошибке; 5xx логируются как ошибки, остальное как debug
func (h *LinkHandler) respondError(c *gin.Context, msg string, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.String("code", c.Param("code")), zap.Error(err))
	} else {
		h.logger.Debug(msg, zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}
