package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"whatsapp-console/internal/console/api"
	"whatsapp-console/internal/console/cache"
	"whatsapp-console/internal/console/call"
	"whatsapp-console/internal/console/calllog"
	"whatsapp-console/internal/console/pushclient"
	"whatsapp-console/internal/console/unread"
	"whatsapp-console/pkg/logger"
)

type consoleConfig struct {
	apiURL   string
	username string
	password string
	stateDir string
}

func loadConsoleConfig() (consoleConfig, error) {
	c := consoleConfig{
		apiURL:   strings.TrimSuffix(strings.TrimSpace(os.Getenv("CONSOLE_SERVER_URL")), "/"),
		username: strings.TrimSpace(os.Getenv("CONSOLE_USERNAME")),
		password: os.Getenv("CONSOLE_PASSWORD"),
		stateDir: strings.TrimSpace(os.Getenv("CONSOLE_STATE_DIR")),
	}
	if c.apiURL == "" {
		return c, errors.New("CONSOLE_SERVER_URL is required")
	}
	if c.username == "" || c.password == "" {
		return c, errors.New("CONSOLE_USERNAME and CONSOLE_PASSWORD are required")
	}
	if c.stateDir == "" {
		c.stateDir = "console-state"
	}
	return c, nil
}

// wsEventsURL turns the API base URL into the event stream endpoint.
func wsEventsURL(apiURL string) string {
	ws := strings.Replace(apiURL, "http", "ws", 1)
	return ws + "/v1/events"
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConsoleConfig()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.stateDir, 0o755); err != nil {
		slog.Error("state dir init failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(os.Getenv("APP_ENV"))
	slog.SetDefault(log)

	client := api.NewClient(cfg.apiURL)
	if err := client.Login(rootCtx, cfg.username, cfg.password); err != nil {
		log.Error("login failed", "err", err)
		os.Exit(1)
	}
	log.Info("logged in", "user", cfg.username)

	resources := cache.New(log)
	resources.Register(cache.KeyConversationsActive, func(ctx context.Context) (any, error) {
		return client.ListConversations(ctx, false, "")
	})
	resources.Register(cache.KeyConversationsArchived, func(ctx context.Context) (any, error) {
		return client.ListConversations(ctx, true, "")
	})
	resources.Register(cache.KeyPins, func(ctx context.Context) (any, error) {
		return client.ListPins(ctx)
	})
	resources.Register(cache.KeyTemplates, func(ctx context.Context) (any, error) {
		return client.ListTemplates(ctx)
	})

	counts := unread.NewStore(cfg.stateDir, func() {
		resources.Invalidate(cache.KeyConversationsActive, cache.KeyConversationsArchived)
	}, log)

	callLog := calllog.NewStore(cfg.stateDir, log)
	callLog.Subscribe(func(entries []calllog.Entry) {
		log.Info("call log updated", "entries", len(entries))
	})
	go func() {
		if err := callLog.Watch(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("call log watcher stopped", "err", err)
		}
	}()

	calls := call.NewController(callLog, log)
	go calls.RunTicker(rootCtx, func(elapsed time.Duration) {
		log.Debug("call in progress", "elapsed", elapsed.Round(time.Second).String())
	})

	reconciler := &cache.Reconciler{
		Cache:  resources,
		Unread: counts,
		Calls:  calls,
		Log:    log,
	}

	push := pushclient.New(pushclient.Options{
		URL:   wsEventsURL(cfg.apiURL),
		Token: client.AccessToken(),
		Handler: func(event string, data json.RawMessage) {
			log.Info("push event", "event", event)
			reconciler.HandleEvent(rootCtx, event, data)
		},
		OnConnect:    func() { log.Info("push channel connected") },
		OnDisconnect: func() { log.Warn("push channel lost, reconnecting") },
		Log:          log,
	})
	defer push.Close()

	if err := push.Connect(); err != nil {
		// the client keeps retrying on its own; startup continues
		log.Warn("initial push connect failed", "err", err)
	}

	// Prime the caches so the first render is instant.
	for _, key := range []string{cache.KeyConversationsActive, cache.KeyPins, cache.KeyTemplates} {
		if _, err := resources.Get(rootCtx, key); err != nil {
			log.Warn("initial fetch failed", "key", key, "err", err)
		}
	}

	log.Info("console ready", "state_dir", cfg.stateDir)
	<-rootCtx.Done()
	log.Info("shutdown initiated")
}
