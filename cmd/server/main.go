package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invoicemenecer/api/internal/config"
	"github.com/invoicemenecer/api/internal/handlers"
	"github.com/invoicemenecer/api/internal/middleware"
	"github.com/invoicemenecer/api/internal/models"
	"github.com/invoicemenecer/api/internal/services"
	"github.com/invoicemenecer/api/internal/token"
	"github.com/invoicemenecer/api/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Log.Level)

	codec, err := token.NewCodec(&cfg.JWT)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token codec")
	}

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("failed to seed default data")
	}

	db := models.GetDB()

	authService := services.NewAuthService(db, codec, &cfg.JWT)
	if err := authService.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("failed to create admin user")
	}

	retention := services.NewRetentionService(db, &cfg.Retention)
	if err := retention.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start retention scheduler")
	}

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(logger.GinLogger())
	r.Use(logger.GinRecovery())
	r.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/health", healthHandler.CheckHealth)

	authHandler := handlers.NewAuthHandler(authService)
	customerService := services.NewCustomerService(db)
	invoiceService := services.NewInvoiceService(db)
	customerHandler := handlers.NewCustomerHandler(customerService, invoiceService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)

	api := r.Group("/api")
	{
		// Public auth routes, rate limited per IP.
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/revoke", authHandler.Revoke)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(codec))
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)
			protected.PUT("/auth/profile", authHandler.EditProfile)
			protected.PUT("/auth/password", authHandler.UpdatePassword)
			protected.DELETE("/auth/account", authHandler.DeleteAccount)

			protected.GET("/customers", customerHandler.List)
			protected.GET("/customers/:id", customerHandler.Get)
			protected.GET("/customers/:id/invoices", customerHandler.ListInvoices)
			protected.POST("/customers", customerHandler.Create)
			protected.PUT("/customers/:id", customerHandler.Update)
			protected.DELETE("/customers/:id", customerHandler.Delete)
			protected.DELETE("/customers/:id/hard", customerHandler.HardDelete)

			protected.GET("/invoices", invoiceHandler.List)
			protected.GET("/invoices/:id", invoiceHandler.Get)
			protected.POST("/invoices", invoiceHandler.Create)
			protected.PUT("/invoices/:id", invoiceHandler.Update)
			protected.PATCH("/invoices/:id/status", invoiceHandler.ChangeStatus)
			protected.DELETE("/invoices/:id", invoiceHandler.Archive)
			protected.DELETE("/invoices/:id/hard", invoiceHandler.Delete)

			protected.GET("/invoices/:id/rows", invoiceHandler.ListRows)
			protected.POST("/invoices/:id/rows", invoiceHandler.AddRow)
			protected.GET("/invoice-rows/:id", invoiceHandler.GetRow)
			protected.PUT("/invoice-rows/:id", invoiceHandler.UpdateRow)
			protected.DELETE("/invoice-rows/:id", invoiceHandler.DeleteRow)
		}
	}

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Drain in-flight requests and stop the retention scheduler on
	// SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	retention.Stop()
}
