/*
Package main is the entry point for the pixelplanet chat server.

It is responsible for loading configuration, initializing the global logging system,
connecting the channel directory (Postgres) and the mute store (Redis), starting the
WebSocket hub, and gracefully handling operating system interrupt signals (SIGINT,
SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/equwal/pixelplanet/internal/app/chat"
	"github.com/equwal/pixelplanet/internal/app/db"
	"github.com/equwal/pixelplanet/internal/app/directory"
	"github.com/equwal/pixelplanet/internal/app/mute"
	"github.com/equwal/pixelplanet/internal/app/proxy"
	"github.com/equwal/pixelplanet/internal/app/socket"
	"github.com/equwal/pixelplanet/internal/configs"
	"github.com/equwal/pixelplanet/internal/handler"
	"github.com/equwal/pixelplanet/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Channel directory storage
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	// Mute store
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logx.Fatal(err, "Invalid REDIS_URL")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		logx.Fatal(err, "Failed to connect to Redis")
	}
	cancelPing()

	// Wire the chat pipeline: hub <-> provider reference each other, so the
	// sink is set after construction.
	hub := socket.NewHub()
	dir := directory.New(directory.NewPgxRepository(pool), hub)

	initCtx, cancelInit := context.WithTimeout(ctx, 30*time.Second)
	if err := dir.Initialize(initCtx); err != nil {
		cancelInit()
		logx.Fatal(err, "Failed to initialize channel directory")
	}
	cancelInit()

	provider := chat.NewProvider(
		dir,
		mute.NewStore(rdb),
		proxy.NewDetector(cfg.ProxyCheckKey),
		hub,
	)
	hub.SetSink(provider)

	go hub.Run()

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Hub:       hub,
		Provider:  provider,
		Directory: dir,
		Config:    cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}
