package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shwemart/storefront-client/internal/api"
	"github.com/shwemart/storefront-client/internal/badge"
	"github.com/shwemart/storefront-client/internal/cart"
	"github.com/shwemart/storefront-client/internal/chat"
	"github.com/shwemart/storefront-client/internal/config"
	"github.com/shwemart/storefront-client/internal/domain"
	"github.com/shwemart/storefront-client/internal/notify"
	"github.com/shwemart/storefront-client/internal/realtime"
	"github.com/shwemart/storefront-client/internal/session"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting storefront client",
		zap.String("env", cfg.Env),
		zap.String("api", cfg.API.BaseURL),
	)

	sessions, err := session.NewStore(cfg.State.Path, logger)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, sessions, logger)
	rt := realtime.NewManager(realtime.Options{
		URL:              cfg.Realtime.URL,
		HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
		ReconnectMin:     cfg.Realtime.ReconnectMin,
		ReconnectMax:     cfg.Realtime.ReconnectMax,
	}, logger)

	cartStore := cart.NewStore()
	badges := badge.NewAggregator(client, rt, logger)
	enforcer := cart.NewEnforcer(client, cartStore, badges.Notify, logger)
	_ = enforcer // used by the UI surfaces layered on top

	notifications := notify.NewEngine(client, rt, 20, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	badges.Start(ctx)
	notifications.Start()
	defer notifications.Close()

	binder := &sessionBinder{
		rt:     rt,
		logger: logger,
		chatFactory: func(selfID string) *chat.Engine {
			return chat.NewEngine(client, rt, selfID, cfg.Chat.HistoryLimit, logger)
		},
		onChange: badges.Notify,
	}
	unsubscribe := sessions.Subscribe(binder.apply)
	defer unsubscribe()
	binder.apply(sessions.Current())

	if sessions.Current().Authenticated() {
		if err := notifications.Load(ctx); err != nil {
			logger.Warn("Initial notification load failed", zap.Error(err))
		}
		badges.Notify()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	binder.apply(domain.Session{})
}

func initLogger() (*zap.Logger, error) {
	if os.Getenv("ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// sessionBinder keeps exactly one realtime claim and one chat engine
// alive per signed-in session, swapping both whenever the session
// changes.
type sessionBinder struct {
	rt          *realtime.Manager
	logger      *zap.Logger
	chatFactory func(selfID string) *chat.Engine
	onChange    func()

	mu     sync.Mutex
	handle *realtime.Handle
	chat   *chat.Engine
}

func (b *sessionBinder) apply(s domain.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.chat != nil {
		b.chat.Close()
		b.chat = nil
	}
	if b.handle != nil {
		b.handle.Release()
		b.handle = nil
	}

	if !s.Authenticated() {
		return
	}

	b.handle = b.rt.Acquire(s.Token)

	selfID, err := session.UserIDFromToken(s.Token)
	if err != nil {
		b.logger.Warn("Could not derive user id from token", zap.Error(err))
	}
	b.chat = b.chatFactory(selfID)
	b.chat.Start()

	if b.onChange != nil {
		b.onChange()
	}
}
