package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skywatch/internal/service"
)

// WeatherHandler reenvía consultas de clima; no requiere autenticación.
type WeatherHandler struct {
	logger     *zap.Logger
	weatherSvc *service.WeatherService
}

func NewWeatherHandler(logger *zap.Logger, weatherSvc *service.WeatherService) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherHandler{logger: logger, weatherSvc: weatherSvc}
}

// Current maneja GET /api/weather?latitude=&longitude=.
func (h *WeatherHandler) Current(c *gin.Context) {
	body, err := h.weatherSvc.Current(c.Request.Context(), service.CurrentQuery{
		Latitude:  c.Query("latitude"),
		Longitude: c.Query("longitude"),
	})
	if err != nil {
		respondError(c, h.logger, err, "could not fetch weather")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Suggestions maneja GET /api/weather/suggestions?search=.
func (h *WeatherHandler) Suggestions(c *gin.Context) {
	body, err := h.weatherSvc.Suggestions(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, h.logger, err, "could not fetch suggestions")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
