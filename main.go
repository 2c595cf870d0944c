// Package main provides the main entry point for the NumBay number storefront
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/numbay/numbay/app/handlers"
	"github.com/numbay/numbay/app/middleware"
	"github.com/numbay/numbay/app/router"
	"github.com/numbay/numbay/app/scheduler"
	"github.com/numbay/numbay/app/services"
	businessflow "github.com/numbay/numbay/business_flow"
	"github.com/numbay/numbay/config"
	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting NumBay application...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase opens Postgres with connection pooling and migrates the schema
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.SMSRange{},
		&models.PhoneNumber{},
		&models.PriceRule{},
		&models.Hold{},
		&models.Transaction{},
		&models.AccessLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache opens the optional Redis client used for upstream cookie persistence
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Printf("Redis connection established at %s", cfg.RedisAddr)
	return client, nil
}

// initializeUpstream builds the panel client with persisted cookies and a rotated log
func initializeUpstream(cfg *config.ProductionConfig, rc *redis.Client) (services.UpstreamService, error) {
	if !cfg.Upstream.Enabled {
		return nil, nil
	}

	var store services.CookieStore
	if rc != nil {
		store = services.NewRedisCookieStore(rc, cfg.Cache.CookieKey, cfg.Cache.CookieTTL)
	}

	var logWriter io.Writer = os.Stdout
	if cfg.Logging.UpstreamLogPath != "" {
		logWriter = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Logging.UpstreamLogPath,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		})
	}
	logger := log.New(logWriter, "upstream ", log.LstdFlags|log.Lmicroseconds|log.LUTC)

	return services.NewUpstreamClient(
		cfg.Upstream.BaseURL,
		cfg.Upstream.Username,
		cfg.Upstream.Password,
		store,
		logger,
	)
}

func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	upstream, err := initializeUpstream(cfg, rc)
	if err != nil {
		return nil, err
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	rangeRepo := repository.NewSMSRangeRepository(db)
	phoneRepo := repository.NewPhoneNumberRepository(db)
	priceRuleRepo := repository.NewPriceRuleRepository(db)
	holdRepo := repository.NewHoldRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	accessLogRepo := repository.NewAccessLogRepository(db)

	// Flows
	pricingFlow := businessflow.NewPricingFlow(priceRuleRepo, cfg.Pricing.DefaultPriceCents)
	ledgerFlow := businessflow.NewLedgerFlow(userRepo, transactionRepo, db)
	allocationFlow := businessflow.NewAllocationFlow(
		userRepo, rangeRepo, phoneRepo, holdRepo, accessLogRepo,
		pricingFlow, db, cfg.Sweeper.GracePeriod, 0,
	)
	lifecycleFlow := businessflow.NewLifecycleFlow(
		holdRepo, userRepo, transactionRepo, accessLogRepo, pricingFlow, db,
	)
	sweeperFlow := businessflow.NewSweeperFlow(holdRepo)
	catalogFlow := businessflow.NewCatalogFlow(rangeRepo, phoneRepo, holdRepo, priceRuleRepo, db)
	userFlow := businessflow.NewUserFlow(userRepo, accessLogRepo)
	adminFlow := businessflow.NewAdminFlow(
		userRepo, rangeRepo, holdRepo, priceRuleRepo, transactionRepo, accessLogRepo,
		ledgerFlow, db,
	)

	var pollingFlow businessflow.PollingFlow
	var syncFlow businessflow.SyncFlow
	if upstream != nil {
		pollingFlow = businessflow.NewPollingFlow(holdRepo, lifecycleFlow, upstream)
		syncFlow = businessflow.NewSyncFlow(catalogFlow, upstream, nil)
	}

	// Handlers and router
	adminAuth := middleware.NewAdminAuth(cfg.Admin.APIToken)
	userHandler := handlers.NewUserHandler(userFlow, ledgerFlow)
	holdHandler := handlers.NewHoldHandler(userFlow, allocationFlow, lifecycleFlow, pollingFlow, sweeperFlow)
	catalogHandler := handlers.NewCatalogHandler(catalogFlow, pricingFlow, adminFlow, syncFlow)
	adminHandler := handlers.NewAdminHandler(adminFlow, sweeperFlow)

	r := router.NewFiberRouter(adminAuth, userHandler, holdHandler, catalogHandler, adminHandler)

	// Background sweeper
	sweeper := scheduler.NewHoldSweeper(sweeperFlow, cfg.Sweeper.GracePeriod, cfg.Sweeper.Interval, cfg.Sweeper.LogPath)
	stopFuncs = append(stopFuncs, sweeper.Start(context.Background()))

	return &Application{
		router:    r,
		config:    cfg,
		server:    r.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}

// serveMetrics exposes Prometheus metrics on a separate listener so the
// scrape endpoint never shares a port with the public API
func serveMetrics(cfg config.MetricsConfig) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Serving metrics on %s%s", addr, cfg.Path)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}
