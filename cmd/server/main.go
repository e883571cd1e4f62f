package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	messagesapp "github.com/sellerdesk/backend/internal/application/messages"
	ordersapp "github.com/sellerdesk/backend/internal/application/orders"
	returnsapp "github.com/sellerdesk/backend/internal/application/returns"
	sellersapp "github.com/sellerdesk/backend/internal/application/sellers"
	syncapp "github.com/sellerdesk/backend/internal/application/sync"
	"github.com/sellerdesk/backend/internal/domain/feed"
	domainsync "github.com/sellerdesk/backend/internal/domain/sync"
	"github.com/sellerdesk/backend/internal/infrastructure/cache"
	"github.com/sellerdesk/backend/internal/infrastructure/config"
	"github.com/sellerdesk/backend/internal/infrastructure/feedhttp"
	"github.com/sellerdesk/backend/internal/infrastructure/logger"
	"github.com/sellerdesk/backend/internal/infrastructure/persistence"
	"github.com/sellerdesk/backend/internal/infrastructure/scheduler"
	"github.com/sellerdesk/backend/internal/interfaces/http/handler"
	"github.com/sellerdesk/backend/internal/interfaces/http/middleware"
	"github.com/sellerdesk/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting SellerDesk backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Connect to database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	returnRepo := persistence.NewGormReturnRepository(db.DB)
	messageRepo := persistence.NewGormMessageRepository(db.DB)
	sellerRepo := persistence.NewGormSellerRepository(db.DB)

	// Cursor store: redis when reachable, with an in-memory fallback so
	// a missing redis only costs cursor persistence across restarts.
	var cursorStore feed.CursorStore
	redisCursors, err := cache.NewRedisCursorStore(&cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, poll cursors will not survive restarts", zap.Error(err))
		cursorStore = cache.NewMemoryCursorStore()
	} else {
		cursorStore = redisCursors
		defer func() {
			if err := redisCursors.Close(); err != nil {
				log.Error("Error closing redis", zap.Error(err))
			}
		}()
	}

	// Marketplace feed adapters from config
	feedRegistry := feedhttp.NewFeedRegistry()
	for name, feedCfg := range cfg.Feeds {
		adapter, err := feedhttp.NewHTTPAdapter(feedhttp.AdapterConfig{
			Marketplace: feed.Marketplace(strings.ToUpper(name)),
			BaseURL:     feedCfg.BaseURL,
			APIKey:      feedCfg.APIKey,
			Timeout:     cfg.Poll.RequestTimeout,
		})
		if err != nil {
			log.Fatal("Invalid feed configuration", zap.String("feed", name), zap.Error(err))
		}
		feedRegistry.Register(adapter)
		log.Info("Registered marketplace feed", zap.String("marketplace", strings.ToUpper(name)))
	}

	// Sync pipeline
	reconciler := domainsync.NewReconciler(orderRepo, returnRepo, messageRepo, log)
	pollService := syncapp.NewPollService(
		sellerRepo,
		feedRegistry,
		cursorStore,
		orderRepo,
		reconciler,
		syncapp.Config{
			UpdatesWindowDays: cfg.Poll.UpdatesWindowDays,
			SellerParallelism: cfg.Poll.SellerParallelism,
		},
		log,
	)

	// Application services
	orderService := ordersapp.NewOrderService(orderRepo)
	returnService := returnsapp.NewReturnService(returnRepo)
	messageService := messagesapp.NewMessageService(messageRepo)
	sellerService := sellersapp.NewSellerService(sellerRepo)

	// Handlers
	orderHandler := handler.NewOrderHandler(orderService)
	returnHandler := handler.NewReturnHandler(returnService)
	messageHandler := handler.NewMessageHandler(messageService)
	sellerHandler := handler.NewSellerHandler(sellerService)
	syncHandler := handler.NewSyncHandler(pollService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	orderRoutes := router.NewDomainGroup("orders", "/orders")
	orderRoutes.GET("", orderHandler.List)
	orderRoutes.GET("/:marketplace/:order_id", orderHandler.Get)
	orderRoutes.GET("/:marketplace/:order_id/returns", returnHandler.ListForOrder)
	orderRoutes.PATCH("/:marketplace/:order_id/workflow", orderHandler.SetWorkflowField)
	orderRoutes.DELETE("/:marketplace/:order_id", orderHandler.Delete)

	returnRoutes := router.NewDomainGroup("returns", "/returns")
	returnRoutes.GET("", returnHandler.List)
	returnRoutes.GET("/:marketplace/:return_id", returnHandler.Get)
	returnRoutes.PATCH("/:marketplace/:return_id/worksheet", returnHandler.SetWorksheetStatus)
	returnRoutes.DELETE("/:marketplace/:return_id", returnHandler.Delete)

	messageRoutes := router.NewDomainGroup("messages", "/messages")
	messageRoutes.GET("", messageHandler.List)
	messageRoutes.GET("/threads/:thread_key", messageHandler.GetThread)
	messageRoutes.PATCH("/threads/:thread_key/:message_id/read", messageHandler.MarkRead)

	sellerRoutes := router.NewDomainGroup("sellers", "/sellers")
	sellerRoutes.POST("", sellerHandler.Register)
	sellerRoutes.GET("", sellerHandler.List)
	sellerRoutes.GET("/:marketplace/:code", sellerHandler.Get)
	sellerRoutes.PATCH("/:marketplace/:code", sellerHandler.Update)

	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("/runs", syncHandler.TriggerPoll)
	syncRoutes.GET("/runs/last", syncHandler.GetLastRun)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(orderRoutes).
		Register(returnRoutes).
		Register(messageRoutes).
		Register(sellerRoutes).
		Register(syncRoutes).
		Register(systemRoutes)

	r.Setup()

	// Periodic poll scheduler
	var pollScheduler *scheduler.PollScheduler
	if cfg.Scheduler.Enabled {
		pollScheduler = scheduler.NewPollScheduler(pollService, cfg.Scheduler.Interval, log)
		if err := pollScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start poll scheduler", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	if pollScheduler != nil {
		pollScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
