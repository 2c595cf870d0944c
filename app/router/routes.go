// Package router provides HTTP routing, middleware configuration, and server setup for the admin/ops API
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/numbay/numbay/app/dto"
	"github.com/numbay/numbay/app/handlers"
	"github.com/numbay/numbay/app/middleware"
	"github.com/numbay/numbay/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown() error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	adminAuth      *middleware.AdminAuth
	userHandler    handlers.UserHandlerInterface
	holdHandler    handlers.HoldHandlerInterface
	catalogHandler handlers.CatalogHandlerInterface
	adminHandler   handlers.AdminHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	adminAuth *middleware.AdminAuth,
	userHandler handlers.UserHandlerInterface,
	holdHandler handlers.HoldHandlerInterface,
	catalogHandler handlers.CatalogHandlerInterface,
	adminHandler handlers.AdminHandlerInterface,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "NumBay API",
		ServerHeader: "NumBay",
		ErrorHandler: errorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:            app,
		adminAuth:      adminAuth,
		userHandler:    userHandler,
		holdHandler:    holdHandler,
		catalogHandler: catalogHandler,
		adminHandler:   adminHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	api.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Bot-facing endpoints
	api.Post("/users/register", r.userHandler.Register)
	api.Get("/users/:telegram_id", r.userHandler.Get)
	api.Get("/users/:telegram_id/balance", r.userHandler.Balance)
	api.Get("/users/:telegram_id/transactions", r.userHandler.Transactions)
	api.Get("/users/:telegram_id/holds", r.holdHandler.ListUserHolds)
	api.Delete("/users/:telegram_id/holds", r.holdHandler.ReleaseUserHolds)

	api.Get("/ranges", r.catalogHandler.ListRanges)

	api.Post("/holds", r.holdHandler.Allocate)
	api.Post("/holds/:hold_id/poll", r.holdHandler.FirstPoll)
	api.Post("/holds/:hold_id/sms", r.holdHandler.ConfirmSMS)
	api.Post("/holds/:hold_id/messages", r.holdHandler.CheckMessages)

	// Operator endpoints behind the static token
	admin := api.Group("/admin", r.adminAuth.Authenticate())
	admin.Post("/ledger/credit", r.adminHandler.Credit)
	admin.Post("/ledger/deduct", r.adminHandler.Deduct)
	admin.Post("/ranges/import", r.catalogHandler.ImportNumbers)
	admin.Post("/ranges/sync", r.catalogHandler.Sync)
	admin.Put("/ranges/:range_id/price", r.catalogHandler.SetPrice)
	admin.Delete("/ranges/:range_id", r.catalogHandler.DeleteRange)
	admin.Post("/users/:telegram_id/promote", r.adminHandler.Promote)
	admin.Post("/users/:telegram_id/demote", r.adminHandler.Demote)
	admin.Post("/users/:telegram_id/ban", r.adminHandler.Ban)
	admin.Post("/users/:telegram_id/unban", r.adminHandler.Unban)
	admin.Get("/users", r.adminHandler.ListUsers)
	admin.Get("/stats", r.adminHandler.Stats)
	admin.Post("/holds/sweep", r.adminHandler.SweepNow)
	admin.Delete("/holds", r.adminHandler.ReleaseAll)

	r.app.Use(r.notFoundHandler)
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware, first so every log line can carry it
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	r.app.Use(middleware.Metrics())

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// Shutdown stops the HTTP server gracefully
func (r *FiberRouter) Shutdown() error {
	return r.app.Shutdown()
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"service":   "numbay-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
