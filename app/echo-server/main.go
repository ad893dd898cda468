package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"luckyDraw/app/echo-server/router"
	"luckyDraw/business/catalog"
	"luckyDraw/business/ledger"
	"luckyDraw/business/lottery"
	"luckyDraw/business/management"
	"luckyDraw/business/reconcile"
	"luckyDraw/business/recorder"
	"luckyDraw/internal/middleware"
	"luckyDraw/internal/repository/memory"
	redisRepo "luckyDraw/internal/repository/redis"
	"luckyDraw/internal/rest"
	"luckyDraw/pkg/config"
	"luckyDraw/pkg/database"
	redisClient "luckyDraw/pkg/database/redis"
	"luckyDraw/pkg/logger"
	"luckyDraw/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting Lucky Draw", "version", cfg.App.Version, "draw_strategy", cfg.Lottery.DrawStrategy)

	metrics.Init()

	checks := map[string]rest.Pinger{}

	var repos repositories
	switch cfg.Database.Driver {
	case config.DriverMemory:
		store, err := memory.NewStore()
		if err != nil {
			logger.Fatal("Failed to open in-memory database", "error", err)
		}
		defer store.Close()
		checks["database"] = store
		repos = memoryRepositories(store)
		if err := seedDemo(context.Background(), repos); err != nil {
			logger.Fatal("Failed to seed demo data", "error", err)
		}
		logger.Warn("Using in-memory sqlite database, nothing is persisted")
	default:
		db, err := database.InitPostgres(cfg)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		if cfg.App.Environment == "development" {
			if err := database.AutoMigrate(db); err != nil {
				logger.Fatal("Failed to migrate database", "error", err)
			}
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("Failed to get database handle", "error", err)
		}
		checks["database"] = rest.PingFunc(sqlDB.PingContext)
		repos = postgresRepositories(db)
		logger.Info("Database connected successfully")
	}

	rdb, err := redisClient.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	defer func() {
		if err := redisClient.CloseRedisClient(rdb); err != nil {
			logger.Error("Failed to close redis client", "error", err)
		}
	}()
	logger.Info("Redis connected successfully")

	counterStore := redisRepo.NewCounterStore(rdb)
	checks["redis"] = counterStore

	// Init validate
	validate := validator.New()

	// Init service
	quotaLedger := ledger.NewLedger(counterStore, repos.events, repos.quotas)
	prizeCatalog := catalog.NewCatalog(quotaLedger, repos.prizes)

	syncService := reconcile.NewSyncService(counterStore, repos.events, repos.prizes, repos.quotas, repos.audits, cfg.Lottery.SyncTimeout)

	winRecorder := recorder.NewRecorder(counterStore, repos.prizes, repos.events, repos.wins, recorder.Options{
		Workers:   cfg.Lottery.RecorderWorkers,
		QueueSize: cfg.Lottery.RecorderQueueSize,
		Timeout:   cfg.Lottery.RecorderTimeout,
	})
	winRecorder.Start()

	lotteryService := lottery.NewLotteryService(
		quotaLedger,
		prizeCatalog,
		repos.events,
		repos.prizes,
		winRecorder,
		syncService,
		redisRepo.NewLocker(rdb),
		lottery.Options{
			Strategy:  cfg.Lottery.DrawStrategy,
			LockWait:  cfg.Lottery.LockWait,
			LockLease: cfg.Lottery.LockLease,
		},
	)
	managementService := management.NewManagementService(counterStore, prizeCatalog, repos.events, repos.prizes, repos.audits, validate)

	// Init handler
	lotteryHandler := rest.NewLotteryHandler(lotteryService, winRecorder, validate)
	adminHandler := rest.NewAdminHandler(managementService, lotteryService, syncService)
	healthHandler := rest.NewHealthHandler(checks)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupLotteryRoutes(api, lotteryHandler)
	var adminMiddleware []echo.MiddlewareFunc
	if cfg.Admin.Password != "" {
		adminMiddleware = append(adminMiddleware, middleware.AdminAuth(cfg.Admin.Username, cfg.Admin.Password))
	} else {
		logger.Warn("ADMIN_PASSWORD is empty, admin routes are served without auth")
	}
	router.SetupAdminRoutes(api, adminHandler, adminMiddleware...)
	router.SetupOpsRoutes(e, healthHandler)

	// Periodic leveling
	syncCtx, stopSync := context.WithCancel(context.Background())
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		syncService.Run(syncCtx, cfg.Lottery.SyncInterval, cfg.Lottery.SyncEventIDs)
	}()

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	stopSync()
	<-syncDone
	syncService.Wait()

	// drain pending wins before the store connections go away
	if err := winRecorder.Stop(ctx); err != nil {
		logger.Error("Win recorder shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
