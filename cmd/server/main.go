package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"walletwise-api/internal/cache"
	"walletwise-api/internal/config"
	"walletwise-api/internal/controller"
	"walletwise-api/internal/database"
	"walletwise-api/internal/external"
	"walletwise-api/internal/ledger"
	"walletwise-api/internal/middleware"
	"walletwise-api/internal/monitoring"
	"walletwise-api/internal/repository"
	"walletwise-api/internal/service"
	"walletwise-api/internal/worker"
	"walletwise-api/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"version": version,
		"port":    cfg.Server.Port,
	}).Info("Starting WalletWise API")

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeApp(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logrus.WithField("address", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	cancel()
	logrus.Info("Server exited")
}

// Application holds the wired dependencies.
type Application struct {
	router  *gin.Engine
	cleanup func()
}

func initializeApp(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cacheService, err := cache.NewRedisCache(&cache.CacheConfig{
		Addr:        cfg.Redis.RedisAddr(),
		Password:    cfg.Redis.Password,
		Database:    cfg.Redis.DB,
		PoolSize:    cfg.Redis.PoolSize,
		DialTimeout: cfg.Redis.DialTimeout,
		ReadTimeout: cfg.Redis.ReadTimeout,
		KeyPrefix:   "walletwise",
	})
	if err != nil {
		return nil, err
	}

	var events external.EventPublisher = external.NoopPublisher{}
	if cfg.RabbitMQ.Enabled {
		publisher, err := external.NewEventPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			// The ledger works without the broker; start degraded.
			logrus.WithError(err).Warn("Event publishing disabled, broker unreachable")
		} else {
			events = publisher
		}
	}

	metrics := monitoring.NewPrometheusMetrics()

	repos := db.Repositories
	txLedger := ledger.New(repos.Transaction, repos.User)
	reconciler := ledger.NewReconciler(repos.Transaction, repos.User, repos.User)
	locks := repository.NewLockRepository(cacheService.Client())

	authMiddleware := middleware.NewAuthMiddleware(
		cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiry, cfg.Auth.AdminAPIKey)

	transactionService := service.NewTransactionService(txLedger, repos.Transaction, cacheService, events, metrics)
	dashboardService := service.NewDashboardService(repos.Transaction, repos.User, cacheService, metrics, cfg.Redis.SummaryTTL)
	authService := service.NewAuthService(repos.User, authMiddleware)
	budgetService := service.NewBudgetService(repos.Budget, repos.Transaction)
	goalService := service.NewGoalService(repos.Goal)
	reconcileService := service.NewReconcileService(reconciler, locks, events, metrics, cfg.Reconcile.LockTTL)

	reconcileWorker := worker.NewReconcileWorker(reconcileService, cfg.Reconcile)
	if err := reconcileWorker.Start(); err != nil {
		return nil, fmt.Errorf("failed to start reconciliation worker: %w", err)
	}

	health := monitoring.NewHealthChecker(version)
	health.RegisterCheck("mongodb", db.HealthCheck)
	health.RegisterCheck("redis", cacheService.Ping)

	router := setupRouter(cfg, authMiddleware, metrics, health,
		controller.NewAuthController(authService),
		controller.NewTransactionController(transactionService),
		controller.NewDashboardController(dashboardService),
		controller.NewBudgetController(budgetService),
		controller.NewGoalController(goalService),
		controller.NewAdminController(reconcileService),
	)

	cleanup := func() {
		logrus.Info("Cleaning up application resources...")
		reconcileWorker.Stop()
		if err := events.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close event publisher")
		}
		if err := cacheService.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Redis client")
		}
		closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer closeCancel()
		if err := db.Close(closeCtx); err != nil {
			logrus.WithError(err).Warn("Failed to close MongoDB client")
		}
	}

	return &Application{router: router, cleanup: cleanup}, nil
}

func setupRouter(
	cfg *config.Config,
	auth *middleware.AuthMiddleware,
	metrics monitoring.MetricsService,
	health *monitoring.HealthChecker,
	authController *controller.AuthController,
	transactionController *controller.TransactionController,
	dashboardController *controller.DashboardController,
	budgetController *controller.BudgetController,
	goalController *controller.GoalController,
	adminController *controller.AdminController,
) *gin.Engine {
	router := gin.New()

	controller.RegisterValidators()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(metrics.Middleware())

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	router.GET(cfg.Monitoring.HealthCheckPath, health.Handler())
	router.GET("/ready", health.Handler())
	if cfg.Monitoring.EnableMetrics {
		router.GET(cfg.Monitoring.MetricsPath, metrics.Handler())
	}
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": version, "service": "walletwise-api"})
	})

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		authRoutes.Use(rateLimiter.Limit())
		{
			authRoutes.POST("/register", authController.Register)
			authRoutes.POST("/login", authController.Login)
		}

		protected := api.Group("")
		protected.Use(auth.JWTAuth(), rateLimiter.Limit())
		{
			protected.GET("/profile", authController.GetProfile)
			protected.PUT("/profile", authController.UpdateProfile)

			transactions := protected.Group("/transactions")
			{
				transactions.POST("", transactionController.Create)
				transactions.GET("", transactionController.List)
				transactions.GET("/:id", transactionController.Get)
				transactions.PUT("/:id", transactionController.Update)
				transactions.DELETE("/:id", transactionController.Delete)
			}

			protected.GET("/dashboard/summary", dashboardController.GetSummary)

			budgets := protected.Group("/budgets")
			{
				budgets.PUT("", budgetController.Save)
				budgets.GET("/:month", budgetController.Get)
				budgets.DELETE("/:month", budgetController.Delete)
			}

			goals := protected.Group("/goals")
			{
				goals.POST("", goalController.Create)
				goals.GET("", goalController.List)
				goals.POST("/:id/contribute", goalController.Contribute)
				goals.DELETE("/:id", goalController.Delete)
			}
		}

		admin := api.Group("/admin")
		admin.Use(auth.AdminAuth())
		{
			admin.POST("/reconcile", adminController.RunSweep)
			admin.POST("/reconcile/:userId", adminController.ReconcileUser)
			admin.GET("/drift/:userId", adminController.DriftReport)
		}
	}

	return router
}
