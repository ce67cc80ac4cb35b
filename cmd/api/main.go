package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/internal/auth"
	"pos-service/internal/cache"
	"pos-service/internal/catalog"
	"pos-service/internal/checkout"
	"pos-service/internal/config"
	"pos-service/internal/database"
	"pos-service/internal/events"
	"pos-service/internal/handlers"
	"pos-service/internal/inventory"
	"pos-service/internal/ledger"
	"pos-service/internal/receipt"
	"pos-service/pkg/logger"
	"pos-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "pos-service/docs" // Import docs for Swagger
)

// @title           POS Service API
// @version         1.0
// @description     Single-register point of sale: catalog browsing, order building, checkout with VAT, stock deduction and sales reporting.
// @termsOfService  http://swagger.io/terms/

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("🚀 Starting POS Service",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.Float64("vat_rate", cfg.VATRate),
	)

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize the store
	appLogger.Info("🔧 Initializing SQLite store...",
		zap.String("path", cfg.SQLitePath),
	)
	db, err := database.NewSingleWriterDB(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("✅ SQLite store initialized successfully")

	// Seed the register login
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.CreateUser(seedCtx, "admin", "admin123"); err != nil {
		appLogger.Warn("Failed to seed register user", zap.Error(err))
	}
	seedCancel()

	// Event publisher: Kafka when enabled, in-memory otherwise
	var eventBus events.EventPublisher
	if cfg.UseKafka {
		eventBus, err = events.NewKafkaEventPublisher(cfg, appLogger)
		if err != nil {
			appLogger.Warn("Failed to initialize Kafka publisher, using in-memory fallback", zap.Error(err))
			eventBus = events.NewInMemoryEventPublisher(appLogger)
		}
	} else {
		eventBus = events.NewInMemoryEventPublisher(appLogger)
	}

	// Catalog cache: Redis when enabled, nil otherwise
	var catalogCache cache.Cache
	if cfg.UseCache {
		catalogCache = cache.NewCache(cfg, appLogger)
	}

	// Domain services
	inventorySvc := inventory.NewService(db, eventBus, appLogger, cfg.DefaultStock, cfg.MaxStock)
	catalogSvc := catalog.NewService(db, inventorySvc, catalogCache, cfg.CacheTTL, appLogger)
	ledgerSvc := ledger.NewService(db, appLogger)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ledgerSvc.Reload(loadCtx); err != nil {
		appLogger.Fatal("Failed to load sales ledger", zap.Error(err))
	}
	loadCancel()

	// Receipt emitter
	emitter, err := receipt.NewPDFEmitter(cfg.ReceiptDir, cfg.ReceiptHeader, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize receipt emitter", zap.Error(err))
	}

	// Register session: one active order, one checkout flow at a time
	session := handlers.NewRegisterSession(func() *checkout.Checkout {
		return checkout.New(db, inventorySvc, ledgerSvc, emitter, eventBus, cfg.VATRate, appLogger)
	})

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, appLogger)

	// Initialize handlers
	authHandler := auth.NewAuthHandler(jwtManager, db, appLogger)
	catalogHandler := handlers.NewCatalogHandler(catalogSvc, appLogger)
	inventoryHandler := handlers.NewInventoryHandler(inventorySvc, catalogSvc, appLogger)
	registerHandler := handlers.NewRegisterHandler(session, catalogSvc, appLogger)
	salesHandler := handlers.NewSalesHandler(ledgerSvc, appLogger)

	// Initialize router
	router := gin.New()

	// CORS middleware (must be first to handle preflight requests)
	router.Use(middleware.CORSMiddleware())

	router.Use(middleware.RecoveryHandler(appLogger))
	router.Use(logger.GinMiddleware(appLogger))

	// Request ID middleware (must be early in the chain)
	router.Use(middleware.RequestIDMiddleware(appLogger))

	// Error handler middleware
	router.Use(middleware.ErrorHandler(appLogger))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint (public)
		v1.GET("/health", healthCheck(db))

		// Auth endpoints (public)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
		}

		// Catalog browsing (public, the register shows it before login)
		v1.GET("/catalog", catalogHandler.List)
		v1.GET("/catalog/categories", catalogHandler.Categories)
		v1.GET("/products/:id", catalogHandler.Get)

		// Protected endpoints (require JWT authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, appLogger))
		{
			products := protected.Group("/products")
			{
				products.POST("", catalogHandler.Create)
				products.PUT("/:id", catalogHandler.Update)
				products.PATCH("/:id/status", catalogHandler.UpdateStatus)
				products.DELETE("/:id", catalogHandler.Delete)
			}

			inventoryGroup := protected.Group("/inventory")
			{
				inventoryGroup.GET("/:id/stock", inventoryHandler.GetStock)
				inventoryGroup.PUT("/:id/stock", inventoryHandler.SetStock)
				inventoryGroup.POST("/:id/add-stock", inventoryHandler.AddStock)
			}

			order := protected.Group("/order")
			{
				order.POST("", registerHandler.NewOrder)
				order.GET("", registerHandler.GetOrder)
				order.DELETE("", registerHandler.ClearOrder)
				order.POST("/items", registerHandler.AddItem)
				order.DELETE("/items", registerHandler.RemoveItems)
			}

			checkoutGroup := protected.Group("/checkout")
			{
				checkoutGroup.POST("", registerHandler.BeginCheckout)
				checkoutGroup.POST("/back", registerHandler.BackToOrder)
				checkoutGroup.POST("/cancel", registerHandler.CancelCheckout)
				checkoutGroup.POST("/confirm", registerHandler.ConfirmPayment)
			}

			sales := protected.Group("/sales")
			{
				sales.GET("", salesHandler.List)
				sales.GET("/summary", salesHandler.Summary)
			}
		}
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("Starting POS service",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}

// healthCheck godoc
// @Summary      Health check endpoint
// @Description  Reports service and store health.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string  "Service up"
// @Router       /health [get]
func healthCheck(db *database.SingleWriterDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		if err := db.Ping(); err != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"service": "pos-service",
		})
	}
}
