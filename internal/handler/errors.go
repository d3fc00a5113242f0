package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
)

// Машинные коды ошибок в ответах API
const (
	codeInvalidRequest   = "invalid_request"
	codeInvalidURL       = "invalid_url"
	codeInvalidCode      = "invalid_code"
	codeCodeExists       = "code_exists"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeInternal         = "internal_error"
)

// Сообщения для клиента
const (
	msgTargetRequired   = "targetUrl is required"
	msgInvalidURL       = "Invalid URL format"
	msgUnsafeScheme     = "URL must use http or https"
	msgInvalidCode      = "Code must be A-Za-z0-9 length 6-8"
	msgCodeExists       = "Code already exists"
	msgNotFound         = "Not found"
	msgMethodNotAllowed = "Method not allowed"
	msgInternal         = "Internal server error"
	msgMalformedBody    = "Request body must be a JSON object"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

// errorStatus сопоставляет ошибку сервиса со статусом и телом ответа
func errorStatus(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		return http.StatusBadRequest, ErrorResponse{codeInvalidURL, msgInvalidURL}
	case errors.Is(err, service.ErrUnsafeScheme):
		return http.StatusBadRequest, ErrorResponse{codeInvalidURL, msgUnsafeScheme}
	case errors.Is(err, service.ErrInvalidCode):
		return http.StatusBadRequest, ErrorResponse{codeInvalidCode, msgInvalidCode}
	case errors.Is(err, service.ErrCodeExists):
		return http.StatusConflict, ErrorResponse{codeCodeExists, msgCodeExists}
	case errors.Is(err, service.ErrLinkNotFound), errors.Is(err, service.ErrUnsafeTarget):
		return http.StatusNotFound, ErrorResponse{codeNotFound, msgNotFound}
	default:
		return http.StatusInternalServerError, ErrorResponse{codeInternal, msgInternal}
	}
}

// NoRoute отвечает JSON вместо текстового 404 gin
func NoRoute(c *gin.Context) {
	abortWithError(c, http.StatusNotFound, codeNotFound, msgNotFound)
}

// NoMethod отвечает 405 на неподдерживаемый метод существующего маршрута
func NoMethod(c *gin.Context) {
	abortWithError(c, http.StatusMethodNotAllowed, codeMethodNotAllowed, msgMethodNotAllowed)
}
