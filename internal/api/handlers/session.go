package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keilo/waytrack/internal/models"
	"github.com/keilo/waytrack/internal/navigate"
)

// GetSession returns the current session snapshot.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.viewModel.Snapshot()})
}

// SetTripID updates the trip-id draft.
func (h *Handler) SetTripID(c *gin.Context) {
	var req struct {
		TripID string `json:"trip_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.viewModel.SetTripID(req.TripID)
	c.JSON(http.StatusOK, gin.H{"data": h.viewModel.Snapshot()})
}

// SetDestination records a shell-chosen destination.
func (h *Handler) SetDestination(c *gin.Context) {
	var req models.GeoPoint
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.viewModel.SetDestination(req)
	c.JSON(http.StatusOK, gin.H{"data": h.viewModel.Snapshot()})
}

// SaveTrip runs the save command. A busy session makes this a no-op; the
// caller sees the unchanged snapshot.
func (h *Handler) SaveTrip(c *gin.Context) {
	h.viewModel.Save(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": h.viewModel.Snapshot()})
}

// StartNavigation runs the navigation handoff for the caller's platform.
func (h *Handler) StartNavigation(c *gin.Context) {
	var req struct {
		Platform string `json:"platform"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	platform := navigate.Platform(req.Platform)
	switch platform {
	case navigate.PlatformAndroid, navigate.PlatformIOS, navigate.PlatformWeb:
	default:
		platform = navigate.PlatformWeb
	}

	h.viewModel.StartNavigation(c.Request.Context(), platform)
	c.JSON(http.StatusOK, gin.H{"data": h.viewModel.Snapshot()})
}

// CenterOnCurrent recenters the map on the current fix.
func (h *Handler) CenterOnCurrent(c *gin.Context) {
	h.viewModel.CenterOnCurrent(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": h.viewModel.Snapshot()})
}

// ReportConnectivity records a connectivity-change event from the shell.
func (h *Handler) ReportConnectivity(c *gin.Context) {
	var req struct {
		Access   string   `json:"access"`
		Profiles []string `json:"profiles"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.viewModel.SetConnectivity(req.Access, req.Profiles)
	c.JSON(http.StatusOK, gin.H{"data": h.viewModel.Snapshot()})
}
