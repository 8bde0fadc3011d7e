package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Duduxlll/banca-xand/config"
	"github.com/Duduxlll/banca-xand/handlers"
	"github.com/Duduxlll/banca-xand/middleware"
	"github.com/Duduxlll/banca-xand/notify"
	"github.com/Duduxlll/banca-xand/provider"
	"github.com/Duduxlll/banca-xand/reconcile"
	"github.com/Duduxlll/banca-xand/store"
	"github.com/Duduxlll/banca-xand/tokens"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		zap.L().Fatal("failed to load config", zap.Error(err))
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		zap.L().Fatal("failed to connect to database", zap.Error(err))
	}

	// One provider variant per deployment, picked at startup.
	pix, err := selectProvider(cfg)
	if err != nil {
		zap.L().Fatal("failed to select pix provider", zap.Error(err))
	}

	registry := tokens.NewRegistry(tokens.DefaultTTL, 0)
	defer registry.Close()

	notifier := notify.NewBroadcaster()
	ledger := store.NewLedgerStore(db)
	reconciler := reconcile.NewReconciler(db, notifier)

	router := setupRouter(cfg, db, pix, registry, ledger, reconciler, notifier)

	zap.L().Info("starting server",
		zap.String("port", cfg.Port),
		zap.String("provider", pix.Name()),
		zap.String("env", cfg.Env))
	if err := router.Run(":" + cfg.Port); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}

func selectProvider(cfg *config.Config) (provider.PixProvider, error) {
	switch cfg.PixProvider {
	case "livepix":
		return provider.NewLivePix(provider.LivePixOptions{
			ClientID:      cfg.LivePixClientID,
			ClientSecret:  cfg.LivePixClientSecret,
			APIBase:       cfg.LivePixAPIBase,
			RedirectURL:   cfg.LivePixRedirectURL,
			WebhookSecret: cfg.LivePixWebhookSecret,
			Allowlist:     cfg.LivePixWebhookAllowlist,
		}), nil
	case "efi":
		return provider.NewEfi(provider.EfiOptions{
			ClientID:      cfg.EfiClientID,
			ClientSecret:  cfg.EfiClientSecret,
			APIBase:       cfg.EfiAPIBase,
			PixKey:        cfg.EfiPixKey,
			WebhookSecret: cfg.EfiWebhookSecret,
		}), nil
	default:
		return nil, fmt.Errorf("unknown PIX_PROVIDER %q", cfg.PixProvider)
	}
}

func setupRouter(
	cfg *config.Config,
	db *gorm.DB,
	pix provider.PixProvider,
	registry *tokens.Registry,
	ledger *store.LedgerStore,
	reconciler *reconcile.Reconciler,
	notifier *notify.Broadcaster,
) *gin.Engine {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	authHandler := handlers.NewAuthHandler(cfg)
	chargeHandler := handlers.NewChargeHandler(pix, registry, reconciler)
	webhookHandler := handlers.NewWebhookHandler(
		map[string]provider.PixProvider{pix.Name(): pix}, reconciler)
	bancaHandler := handlers.NewBancaHandler(ledger, notifier)
	pagamentoHandler := handlers.NewPagamentoHandler(ledger, notifier)
	streamHandler := handlers.NewStreamHandler(notifier)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "provider": pix.Name()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/me", authHandler.Me)

		api.POST("/charge/create", chargeHandler.Create)
		api.GET("/charge/status/:token", chargeHandler.Status)
		api.POST("/webhook/:provider", webhookHandler.Receive)

		area := api.Group("", middleware.RequireAuth(cfg.JWTSecret))
		{
			area.GET("/bancas", bancaHandler.List)
			area.POST("/bancas", bancaHandler.Create)
			area.PATCH("/bancas/:id", bancaHandler.UpdateAmount)
			area.DELETE("/bancas/:id", bancaHandler.Delete)
			area.POST("/bancas/:id/promote", bancaHandler.Promote)

			area.GET("/pagamentos", pagamentoHandler.List)
			area.PATCH("/pagamentos/:id", pagamentoHandler.UpdateStatus)
			area.DELETE("/pagamentos/:id", pagamentoHandler.Delete)

			area.GET("/stream", streamHandler.Stream)
		}
	}

	return router
}
