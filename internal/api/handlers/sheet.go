package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSheet returns the bottom sheet's current geometry and phase.
func (h *Handler) GetSheet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.sheetCtl.State()})
}

// ResizeSheet applies a viewport size change.
func (h *Handler) ResizeSheet(c *gin.Context) {
	var req struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Height <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Height must be positive"})
		return
	}

	h.sheetCtl.Resize(req.Width, req.Height)
	c.JSON(http.StatusOK, gin.H{"data": h.sheetCtl.State()})
}

// DragSheet forwards one pan event. Move deltas are cumulative from the
// grab point, matching how pan recognizers report them.
func (h *Handler) DragSheet(c *gin.Context) {
	var req struct {
		Action      string  `json:"action"`
		TotalDeltaY float64 `json:"total_delta_y"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	switch req.Action {
	case "start":
		h.sheetCtl.DragStart()
	case "move":
		h.sheetCtl.DragMove(req.TotalDeltaY)
	case "end":
		h.sheetCtl.DragEnd()
	case "cancel":
		h.sheetCtl.DragCancel()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Action must be start, move, end or cancel"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.sheetCtl.State()})
}

// TapSheet toggles the sheet between collapsed and expanded.
func (h *Handler) TapSheet(c *gin.Context) {
	h.sheetCtl.Tap()
	c.JSON(http.StatusOK, gin.H{"data": h.sheetCtl.State()})
}
