package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/config"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
	"github.com/mamadbah2/packwrap/internal/repository/mongodb"
	"github.com/mamadbah2/packwrap/internal/repository/sheets"
	"github.com/mamadbah2/packwrap/internal/scheduler"
	"github.com/mamadbah2/packwrap/internal/server/handlers"
	"github.com/mamadbah2/packwrap/internal/server/router"
	authsvc "github.com/mamadbah2/packwrap/internal/service/auth"
	"github.com/mamadbah2/packwrap/internal/service/bookkeeping"
	commandsvc "github.com/mamadbah2/packwrap/internal/service/commands"
	couriersvc "github.com/mamadbah2/packwrap/internal/service/courier"
	ordersvc "github.com/mamadbah2/packwrap/internal/service/orders"
	reportingsvc "github.com/mamadbah2/packwrap/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/packwrap/internal/service/whatsapp"
	"github.com/mamadbah2/packwrap/pkg/clients/anthropic"
	"github.com/mamadbah2/packwrap/pkg/clients/steadfast"
	whatsappclient "github.com/mamadbah2/packwrap/pkg/clients/whatsapp"
	"github.com/mamadbah2/packwrap/pkg/logger"
	"github.com/mamadbah2/packwrap/pkg/vault"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	mongoRepo, err := mongodb.NewMongoDBRepository(startupCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var cache kv.Cache = kv.NewMemoryCache()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(startupCtx).Err(); err != nil {
			baseLogger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		cache = kv.NewRedisCache(rdb, "packwrap", cfg.Redis.TTL)
		baseLogger.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	}
	store := kv.NewMirroredStore(cache, mongoRepo, baseLogger.Named("repo.kv"))

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetsRepo, err = sheets.NewGoogleSheetRepository(startupCtx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
	} else {
		baseLogger.Warn("google sheets not configured, summaries are kept in mongodb only")
	}

	var aiClient anthropic.Client
	if cfg.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(cfg.AI.AnthropicKey)
		baseLogger.Info("anthropic ai client enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, ai-assisted order parsing disabled")
	}

	location, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	booksSvc := bookkeeping.NewService(store, baseLogger.Named("svc.bookkeeping"))
	authSvc := authsvc.NewService(store, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, baseLogger.Named("svc.auth"))
	courierSvc := couriersvc.NewService(steadfast.NewClient(cfg.Courier), vault.New(cfg.Courier.VaultLabel), store, baseLogger.Named("svc.courier"))
	orderSvc := ordersvc.NewService(store, aiClient, courierSvc, baseLogger.Named("svc.orders"))
	reportingSvc := reportingsvc.NewService(booksSvc, orderSvc, mongoRepo, sheetsRepo, location, baseLogger.Named("svc.reporting"))

	routes := router.Handlers{
		Auth:    handlers.NewAuthHandler(authSvc, baseLogger.Named("handlers.auth")),
		Books:   handlers.NewBooksHandler(booksSvc, baseLogger.Named("handlers.books")),
		Courier: handlers.NewCourierHandler(courierSvc, baseLogger.Named("handlers.courier")),
		Orders:  handlers.NewOrdersHandler(orderSvc, baseLogger.Named("handlers.orders")),
	}

	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(cfg.Reporting.Owner, reportingSvc, orderSvc, booksSvc, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, orderSvc, commandDispatcher, cfg.Reporting.Owner, baseLogger.Named("svc.whatsapp"))
		routes.Webhook = handlers.NewWebhookHandler(messagingSvc, cfg.WhatsApp.AppSecret, baseLogger.Named("handlers.whatsapp"))

		if cfg.WhatsApp.OwnerPhone != "" {
			sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, messagingSvc, baseLogger.Named("scheduler"))
			if err != nil {
				baseLogger.Fatal("failed to init scheduler", zap.Error(err))
			}
			if err := sched.Start(); err != nil {
				baseLogger.Fatal("failed to start scheduler", zap.Error(err))
			}
			defer sched.Stop()
		} else {
			baseLogger.Warn("WHATSAPP_OWNER_PHONE missing, scheduled reports disabled")
		}
	} else {
		baseLogger.Warn("whatsapp not configured, order intake and reports disabled")
	}

	engine := router.New(routes, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
