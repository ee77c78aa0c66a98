package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/keilo/waytrack/internal/api/handlers"
	"github.com/keilo/waytrack/internal/bridge"
	"github.com/keilo/waytrack/internal/config"
	"github.com/keilo/waytrack/internal/events"
	"github.com/keilo/waytrack/internal/location"
	"github.com/keilo/waytrack/internal/metrics"
	"github.com/keilo/waytrack/internal/navigate"
	"github.com/keilo/waytrack/internal/session"
	"github.com/keilo/waytrack/internal/sheet"
	"github.com/keilo/waytrack/internal/store"
	"github.com/keilo/waytrack/pkg/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting Waytrack", zap.String("port", cfg.ServerPort))

	collector := metrics.NewCollector()

	// Trip store: Postgres when configured, in-memory otherwise.
	var tripStore store.Store
	if cfg.DatabaseURL != "" {
		pg := store.NewPostgres(logger, cfg.DatabaseURL)
		defer pg.Close()
		tripStore = pg
		logger.Info("Using Postgres trip store")
	} else {
		tripStore = store.NewMemory()
		logger.Info("No DATABASE_URL set, using in-memory trip store")
	}

	// Last-fix cache, optional.
	var fixCache location.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := location.NewRedisCache(cfg.RedisAddr)
		if err != nil {
			logger.Warn("Redis unavailable, running without fix cache", zap.Error(err))
		} else {
			defer redisCache.Close()
			fixCache = redisCache
			logger.Info("Using Redis fix cache", zap.String("addr", cfg.RedisAddr))
		}
	}

	// Event publisher, optional.
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(logger, cfg.NATSURL, collector)
		if err != nil {
			logger.Warn("NATS unavailable, running without event publishing", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	// Map surface channel.
	wsHub := ws.NewHub(logger, collector)
	mapBridge := bridge.New(logger, wsHub, collector)
	wsHub.SetGateway(bridgeGateway{mapBridge})
	go wsHub.Run()

	// Location acquisition fed by the shell over the API.
	gate := location.NewShellGate(func() {
		logger.Info("Waiting for shell permission decision")
	})
	sensor := location.NewFeedSensor()
	locator := location.NewProvider(logger, gate, sensor, fixCache, cfg.LocationTimeout)

	viewModel := session.NewViewModel(
		logger,
		tripStore,
		locator,
		mapBridge,
		navigate.NewLogLauncher(logger),
		publisher,
		collector,
		cfg.MapZoom,
	)
	history := session.NewHistory(logger, tripStore, collector)

	// Taps decoded from intercepted navigations become the destination; the
	// load-complete signal re-issues whatever the map missed.
	mapBridge.SetTapHandler(viewModel.SetDestination)
	mapBridge.SetReadyHandler(viewModel.OnMapReady)

	sheetCtl := sheet.NewController(logger)

	handler := handlers.NewHandler(
		logger,
		viewModel,
		history,
		sheetCtl,
		bridge.NewPageBuilder(cfg.MapsAPIKey),
		wsHub,
		gate,
		sensor,
		collector,
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// First fix acquisition runs in the background so startup never blocks on
	// the shell reporting permissions.
	go viewModel.Initialize(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// bridgeGateway adapts the bridge to the hub's inbound-message port.
type bridgeGateway struct {
	bridge *bridge.Bridge
}

func (g bridgeGateway) MarkReady() { g.bridge.MarkReady() }
func (g bridgeGateway) Reset()     { g.bridge.Reset() }

func (g bridgeGateway) HandleNavigation(rawURL string) bool {
	return g.bridge.HandleNavigation(rawURL).Cancel
}

func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
