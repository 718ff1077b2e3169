package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skywatch/internal/service"
)

const exposeErrorDetailKey = "expose_error_detail"

// respondError traduce errores de servicio a status y cuerpo JSON.
// Los errores no clasificados se loguean y responden 500 con el mensaje genérico.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := "invalid request"
		if errors.Is(err, service.ErrAlreadyExists) {
			msg = "already exists"
		}
		body := gin.H{"error": msg}
		if len(verr.Fields) > 0 {
			body["fields"] = verr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, service.ErrLocationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
	case errors.Is(err, service.ErrOAuthInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth credential"})
	case errors.Is(err, service.ErrOAuthUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oauth unavailable"})
	case errors.Is(err, service.ErrWeatherUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "weather unavailable"})
	case errors.Is(err, service.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": "weather provider error"})
	default:
		logger.Error(fallback, zap.Error(err))
		body := gin.H{"error": fallback}
		if c.GetBool(exposeErrorDetailKey) {
			body["detail"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

// badRequest responde a cuerpos JSON que no se pudieron decodificar.
func badRequest(c *gin.Context, logger *zap.Logger, what string, err error) {
	logger.Warn("invalid "+what+" request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
