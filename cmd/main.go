/*
Package main is the entry point for the SpiderLink server.

It is responsible for loading configuration, initializing the global logging system,
opening the datastore, starting the realtime Hub and optional Redis relay, setting up
the HTTP server, and gracefully handling operating system interrupt signals (SIGINT,
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

	"spiderlink/internal/app/bus"
	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/gateway"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/presence"
	"spiderlink/internal/app/storage"
	"spiderlink/internal/app/store"
	"spiderlink/internal/app/user"
	"spiderlink/internal/configs"
	"spiderlink/internal/handler"
	"spiderlink/internal/pkg/logx"
	"spiderlink/internal/pkg/pow"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_driver", cfg.StoreDriver).
		Bool("redis_bus", cfg.RedisAddr != "").
		Bool("uploads", cfg.UploadsEnabled()).
		Int("pow_difficulty", cfg.PowDifficulty).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open datastore", "driver", cfg.StoreDriver)
	}

	users := user.NewDirectory(st.Users, cfg.AdminEmail, cfg.AdminAvatar)
	channels := channel.NewRegistry(st.Channels)
	messages := message.NewService(st.Messages, cfg.HistoryLimit)

	// Nobody is connected yet, whatever the store says.
	if err := users.ResetPresence(ctx); err != nil {
		logx.Fatal(err, "Failed to reset presence")
	}
	if err := messages.SeedDefaults(ctx); err != nil {
		logx.Fatal(err, "Failed to seed default channel content")
	}

	var eventBus bus.Bus
	if cfg.RedisAddr != "" {
		redisBus, err := bus.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisChannel)
		if err != nil {
			logx.Fatal(err, "Failed to connect to Redis", "addr", cfg.RedisAddr)
		}
		eventBus = redisBus
	}

	hub := gateway.NewHub(eventBus)
	go hub.Run()

	if eventBus != nil {
		go func() {
			if err := eventBus.Subscribe(ctx, hub.DeliverRemote); err != nil && ctx.Err() == nil {
				logx.Error(err, "Event bus subscription ended")
			}
		}()
	}

	powManager := pow.NewManager(ctx, cfg.PowDifficulty)

	gw := gateway.New(gateway.Deps{
		Hub:      hub,
		Presence: presence.NewCoordinator(users, hub),
		Users:    users,
		Channels: channels,
		Messages: messages,
		Pow:      powManager,
	})

	deps := &handler.AppDeps{
		Config:  cfg,
		Users:   users,
		Hub:     hub,
		Gateway: gw,
		Pow:     powManager,
	}

	if cfg.UploadsEnabled() {
		storageService, err := storage.NewService(ctx, storage.ServiceConfig{
			BucketName:      cfg.S3BucketName,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize storage service")
		}
		deps.Storage = storageService
	}

	// Setup HTTP server and routes
	router := handler.Router(ctx, deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("SpiderLink server starting on http://localhost%s", serverAddr))
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
		logx.Error(err, "Server forced to shutdown")
	}

	hub.Stop()

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			logx.Error(err, "Failed to close event bus")
		}
	}

	if err := st.Close(shutdownCtx); err != nil {
		logx.Error(err, "Failed to close datastore")
	}

	logx.Info("Server gracefully stopped.")
}
