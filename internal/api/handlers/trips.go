package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/models"
)

// ListTrips returns the saved snapshots, newest first, with the history
// status line.
func (h *Handler) ListTrips(c *gin.Context) {
	items, status, ok := h.history.Refresh(c.Request.Context())
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "History is busy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   items,
		"status": status,
	})
}

// DeleteTrip removes one snapshot by row id.
func (h *Handler) DeleteTrip(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	// Best-effort lookup so the status line can name the user-entered trip
	// id. A row that is already gone still deletes silently; the store treats
	// unknown ids as a no-op, and so does this endpoint.
	snapshot := models.TripSnapshot{ID: id}
	if items, _, ok := h.history.Refresh(c.Request.Context()); ok {
		for i := range items {
			if items[i].ID == id {
				snapshot = items[i]
				break
			}
		}
	}

	status, ok := h.history.Delete(c.Request.Context(), snapshot)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "History is busy"})
		return
	}

	h.logger.Info("Trip snapshot deleted via API",
		zap.Int64("id", id), zap.String("trip_id", snapshot.TripID))
	c.JSON(http.StatusOK, gin.H{"status": status})
}
