package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skywatch/internal/service"
)

// LocationHandler expone las ubicaciones guardadas del usuario autenticado.
type LocationHandler struct {
	logger      *zap.Logger
	locationSvc *service.LocationService
}

func NewLocationHandler(logger *zap.Logger, locationSvc *service.LocationService) *LocationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationHandler{logger: logger, locationSvc: locationSvc}
}

// List maneja GET /api/userData/locations?search=.
func (h *LocationHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	locations, err := h.locationSvc.List(c.Request.Context(), userID, c.Query("search"))
	if err != nil {
		respondError(c, h.logger, err, "could not list locations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"savedLocations": locations})
}

func (h *LocationHandler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	loc, err := h.locationSvc.Get(c.Request.Context(), userID, c.Param("locationId"))
	if err != nil {
		respondError(c, h.logger, err, "could not load location")
		return
	}
	c.JSON(http.StatusOK, gin.H{"savedLocation": loc})
}

func (h *LocationHandler) Add(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req service.LocationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "add location", err)
		return
	}
	locations, err := h.locationSvc.Add(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err, "could not save location")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"savedLocations": locations})
}

func (h *LocationHandler) Update(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req service.LocationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update location", err)
		return
	}
	loc, err := h.locationSvc.Update(c.Request.Context(), userID, c.Param("locationId"), req)
	if err != nil {
		respondError(c, h.logger, err, "could not update location")
		return
	}
	c.JSON(http.StatusOK, gin.H{"savedLocation": loc})
}

func (h *LocationHandler) Remove(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	locations, err := h.locationSvc.Remove(c.Request.Context(), userID, c.Param("locationId"))
	if err != nil {
		respondError(c, h.logger, err, "could not remove location")
		return
	}
	c.JSON(http.StatusOK, gin.H{"savedLocations": locations})
}

func callerID(c *gin.Context) (string, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok || claims.UserID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return "", false
	}
	return claims.UserID, true
}
