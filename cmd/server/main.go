package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/trades-marketplace/internal/config"
	"github.com/iliyamo/trades-marketplace/internal/database"
	"github.com/iliyamo/trades-marketplace/internal/handler"
	"github.com/iliyamo/trades-marketplace/internal/logger"
	"github.com/iliyamo/trades-marketplace/internal/mail"
	"github.com/iliyamo/trades-marketplace/internal/middleware"
	"github.com/iliyamo/trades-marketplace/internal/queue"
	"github.com/iliyamo/trades-marketplace/internal/repository"
	"github.com/iliyamo/trades-marketplace/internal/router"
	"github.com/iliyamo/trades-marketplace/internal/service"
	"github.com/iliyamo/trades-marketplace/internal/storage"
)

func main() {
	cfg := config.Load()

	if _, err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("logger: %v", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			SampleRate:  1.0,
		}); err != nil {
			slog.Warn("sentry init failed", "err", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		slog.Error("database open failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("database migrate failed", "err", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		slog.Warn("redis unavailable; rate limiting and response cache disabled", "addr", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}

	// mail pipeline: flows publish, the background consumer delivers
	mailer := mail.NewQueueMailer(queue.NewPublisher(cfg.RabbitURL), cfg.Auth.ClientBaseURL, cfg.Mail.Inbox)
	go func() {
		if err := queue.StartMailConsumer(ctx, cfg.RabbitURL, mail.NewDeliverer(cfg.Mail)); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("mail consumer stopped", "err", err)
		}
	}()

	accounts := repository.NewAccountRepo(db)
	files := storage.NewDisk(cfg.UploadDir, cfg.APIBaseURL)

	authSvc := service.NewAuthService(cfg.Auth, accounts, mailer)
	userSvc := service.NewUserService(cfg.Auth, accounts, accounts, files)
	ratingSvc := service.NewRatingService(repository.NewVoteRepo(db))
	workSvc := service.NewWorkService(repository.NewWorkRepo(db), accounts)
	uploadSvc := service.NewUploadService(accounts, repository.NewPhotoRepo(db), files)
	contactSvc := service.NewContactService(mailer)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}))
	e.Use(middleware.Session(cfg.Auth.JWTSecret))
	e.Use(middleware.RequestLogger())

	limit := middleware.NewTokenBucket(cfg.RateLimit, rdb)
	authLimit := middleware.NewTokenBucket(cfg.RateLimit.WithCapacity(cfg.RateLimit.AuthCapacity, "auth"), rdb)
	cache := middleware.NewRedisCache(cfg.Cache, rdb)
	purge := func(ctx context.Context) { middleware.PurgeCache(ctx, cfg.Cache, rdb) }

	router.RegisterRoutes(e, db, rdb, cfg.UploadDir)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg.Auth, authSvc), cfg.Auth.JWTSecret, authLimit)
	router.RegisterUser(e, handler.NewUserHandler(userSvc, ratingSvc, purge), cfg.Auth.JWTSecret, cache)
	router.RegisterWork(e, handler.NewWorkHandler(workSvc), cfg.Auth.JWTSecret)
	router.RegisterUpload(e, handler.NewUploadHandler(uploadSvc, purge), cfg.Auth.JWTSecret)
	router.RegisterEmail(e, handler.NewEmailHandler(contactSvc), limit)

	addr := ":" + cfg.Port
	go func() {
		slog.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
	slog.Info("server stopped")
}
