package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsapp-console/internal/auth"
	"whatsapp-console/internal/config"
	"whatsapp-console/internal/conversation"
	"whatsapp-console/internal/httpapi"
	"whatsapp-console/internal/message"
	"whatsapp-console/internal/pin"
	"whatsapp-console/internal/push"
	"whatsapp-console/internal/stats"
	"whatsapp-console/internal/template"
	"whatsapp-console/internal/upload"
	"whatsapp-console/internal/user"
	"whatsapp-console/internal/webhookevent"
	"whatsapp-console/internal/whatsapp"
	"whatsapp-console/pkg/logger"
	"whatsapp-console/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Push fanout: local hub plus a redis bridge so events reach
	// subscribers on every api instance.
	hub := push.NewHub(log)
	defer hub.Close()
	publisher := push.NewRedisPublisher(rdb, cfg.Push.Channel)
	go func() {
		if err := push.RunBridge(rootCtx, rdb, cfg.Push.Channel, hub, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("push bridge stopped", "err", err)
			stop()
		}
	}()

	waClient, err := whatsapp.NewClient(cfg.WhatsApp.APIBaseURL, cfg.WhatsApp.APIToken, log)
	if err != nil {
		log.Error("whatsapp client init failed", "err", err)
		os.Exit(1)
	}

	uploads, err := upload.NewStore(cfg.Upload.Dir, cfg.Upload.PublicBase, cfg.Upload.MaxBodyBytes, log)
	if err != nil {
		log.Error("upload store init failed", "err", err)
		os.Exit(1)
	}

	convs := conversation.NewService(conversation.NewSQLRepo(db))
	msgs := message.NewService(message.NewSQLRepo(db), convs, waClient, publisher, log)

	h := httpapi.New(httpapi.Handlers{
		Auth:          authManager,
		Users:         user.NewService(user.NewSQLRepo(db)),
		Conversations: convs,
		Messages:      msgs,
		Pins:          pin.NewService(pin.NewSQLRepo(db)),
		Templates:     template.NewService(template.NewSQLRepo(db)),
		WebhookEvents: webhookevent.NewService(webhookevent.NewSQLRepo(db)),
		Stats:         stats.NewService(stats.NewSQLRepo(db)),
		Push:          publisher,
		WebhookSecret: cfg.WhatsApp.WebhookSecret,
	})

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, hub, uploads, cfg, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
