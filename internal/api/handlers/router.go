package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/bridge"
	"github.com/keilo/waytrack/internal/location"
	"github.com/keilo/waytrack/internal/metrics"
	"github.com/keilo/waytrack/internal/session"
	"github.com/keilo/waytrack/internal/sheet"
	"github.com/keilo/waytrack/pkg/ws"
)

// Handler owns the HTTP surface: the session API for shells, the map page
// and socket for map surfaces, and the operational endpoints.
type Handler struct {
	logger    *zap.Logger
	viewModel *session.ViewModel
	history   *session.History
	sheetCtl  *sheet.Controller
	pages     *bridge.PageBuilder
	wsHub     *ws.Hub
	gate      *location.ShellGate
	sensor    *location.FeedSensor
	collector *metrics.Collector
	upgrader  websocket.Upgrader
}

func NewHandler(
	logger *zap.Logger,
	viewModel *session.ViewModel,
	history *session.History,
	sheetCtl *sheet.Controller,
	pages *bridge.PageBuilder,
	wsHub *ws.Hub,
	gate *location.ShellGate,
	sensor *location.FeedSensor,
	collector *metrics.Collector,
) *Handler {
	return &Handler{
		logger:    logger,
		viewModel: viewModel,
		history:   history,
		sheetCtl:  sheetCtl,
		pages:     pages,
		wsHub:     wsHub,
		gate:      gate,
		sensor:    sensor,
		collector: collector,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the map surface loads from this same server
			},
		},
	}
}

// RegisterRoutes attaches every route to the engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// Session
		api.GET("/session", h.GetSession)
		api.POST("/session/trip-id", h.SetTripID)
		api.POST("/session/destination", h.SetDestination)
		api.POST("/session/save", h.SaveTrip)
		api.POST("/session/navigate", h.StartNavigation)
		api.POST("/session/center", h.CenterOnCurrent)

		// History
		api.GET("/trips", h.ListTrips)
		api.DELETE("/trips/:id", h.DeleteTrip)

		// Shell-reported device state
		api.POST("/location/fix", h.ReportFix)
		api.POST("/location/permission", h.ReportPermission)
		api.POST("/connectivity", h.ReportConnectivity)

		// Bottom sheet
		api.GET("/sheet", h.GetSheet)
		api.POST("/sheet/resize", h.ResizeSheet)
		api.POST("/sheet/drag", h.DragSheet)
		api.POST("/sheet/tap", h.TapSheet)
	}

	// Map surface
	r.GET("/map", h.MapPage)
	r.GET("/ws", h.HandleWebSocket)

	// Operational
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(h.collector.Handler()))
}

// MapPage serves the map surface HTML.
func (h *Handler) MapPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, h.pages.Build())
}

// HandleWebSocket upgrades a map surface connection.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
