package handlers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keilo/waytrack/internal/location"
	"github.com/keilo/waytrack/internal/models"
)

// ReportFix accepts a device fix from the shell. It satisfies any pending
// sensor read; an "enabled" field toggles the location feature on or off.
func (h *Handler) ReportFix(c *gin.Context) {
	var req struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Enabled   *bool    `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Enabled != nil {
		h.sensor.SetEnabled(*req.Enabled)
	}

	if req.Latitude != nil && req.Longitude != nil {
		lat, lng := *req.Latitude, *req.Longitude
		if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Coordinates must be finite"})
			return
		}
		h.sensor.Report(models.GeoPoint{Latitude: lat, Longitude: lng})
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReportPermission records the shell's permission decision, waking any
// acquisition blocked on the prompt.
func (h *Handler) ReportPermission(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	status := location.PermissionStatus(req.Status)
	switch status {
	case location.PermissionGranted, location.PermissionDenied:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be granted or denied"})
		return
	}

	h.gate.Report(status)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
