package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"prochain-bridge/internal/config"
	"prochain-bridge/internal/connectivity"
	"prochain-bridge/internal/gateway"
	"prochain-bridge/internal/handler"
	"prochain-bridge/internal/offline"
	"prochain-bridge/internal/repository"
	"prochain-bridge/internal/service"
	"prochain-bridge/internal/session"
	"prochain-bridge/internal/storage"
	"prochain-bridge/internal/websocket"
	"prochain-bridge/pkg/jwt"

	"github.com/go-kivik/kivik/v4"
	"github.com/go-kivik/kivik/v4/couchdb"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := storage.Open(ctx, cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("Failed to open local storage: %v", err)
	}
	defer kv.Close()

	sessions := session.NewStore(kv)

	// every backend call carries the signed-in user's token
	client, err := kivik.New("couch", cfg.Database.URL(), couchdb.OptionHTTPClient(&http.Client{
		Transport: session.NewTransport(sessions, nil),
	}))
	if err != nil {
		log.Fatalf("Failed to create CouchDB client: %v", err)
	}
	defer client.Close()

	// The bridge starts even when the backend is down; the monitor brings the
	// store online once it answers.
	setupCtx, cancelSetup := context.WithTimeout(ctx, cfg.Sync.PingTimeout)
	if err := repository.EnsureDatabase(setupCtx, client, cfg.Database.Name); err != nil {
		log.Printf("[bridge] database setup skipped: %v", err)
	}
	cancelSetup()

	store := offline.NewStore(kv, offline.Options{
		RetryInterval:  cfg.Sync.RetryInterval,
		MaxQueueLength: cfg.Sync.MaxQueueLength,
		MaxDeadLetters: cfg.Sync.MaxDeadLetters,
	})
	gw := gateway.New(store)

	chainRepo := repository.NewChainRepository(client, cfg.Database.Name)
	socialRepo := repository.NewSocialRepository(client, cfg.Database.Name)
	pluginRepo := repository.NewPluginRepository(client, cfg.Database.Name)
	shareRepo := repository.NewShareRepository(client, cfg.Database.Name)

	chainService := service.NewChainService(chainRepo, gw, sessions)
	socialService := service.NewSocialService(socialRepo, gw, sessions)
	pluginService := service.NewPluginService(pluginRepo, gw, sessions)
	shareService := service.NewShareService(shareRepo, chainRepo, gw, sessions)
	replayer := service.NewReplayer(chainRepo, socialRepo, pluginRepo, shareRepo, sessions, nil)

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnections,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	monitor := connectivity.NewMonitor(client, store, connectivity.Options{
		Interval: cfg.Sync.PingInterval,
		Timeout:  cfg.Sync.PingTimeout,
	})

	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler(store, monitor, wsManager))
	shareWatcher := service.NewShareWatcher(shareService, cfg.Sync.SharePollInterval, wsManager.PublishShares, nil)
	unsubscribe := store.Subscribe(wsManager.PublishState)
	defer unsubscribe()

	store.Initialize(replayer.Execute)
	defer store.StopRetryLoop()

	router := handler.NewRouter(handler.Handlers{
		Chains:    handler.NewChainHandler(chainService),
		Social:    handler.NewSocialHandler(socialService),
		Plugins:   handler.NewPluginHandler(pluginService),
		Shares:    handler.NewShareHandler(shareService),
		Sync:      handler.NewSyncHandler(store, monitor),
		Session:   handler.NewSessionHandler(sessions),
		WebSocket: handler.NewWebSocketHandler(wsManager, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, cfg.WebSocket.MaxMessageSize),
	}, cfg.Bridge.TokenSecret, cfg.CORS)

	token, err := jwt.GenerateToken(cfg.Bridge.ClientID, cfg.Bridge.TokenExpiration, cfg.Bridge.TokenSecret)
	if err != nil {
		log.Fatalf("Failed to issue bridge token: %v", err)
	}
	if err := writeTokenFile(token); err != nil {
		log.Printf("[bridge] could not write token file: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting ProChain bridge on %s (env: %s)", addr, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return wsManager.Run(gctx)
	})
	g.Go(func() error {
		return monitor.Run(gctx)
	})
	g.Go(func() error {
		return shareWatcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down bridge...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Bridge stopped with error: %v", err)
		os.Exit(1)
	}

	log.Println("Bridge stopped gracefully")
}

// writeTokenFile leaves the bridge token where the UI shell picks it up.
func writeTokenFile(token string) error {
	path := os.Getenv("PROCHAIN_TOKEN_FILE")
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "prochain", "bridge.token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}
