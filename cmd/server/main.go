package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/auth"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/config"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/dispatch"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/server"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/session"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/store"
	"github.com/shivsaxena91/ChatServiceProtocol/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Pretty)

	// Initialize persistence
	fileStore := store.NewFileStore(cfg.Store.AccountsFile, cfg.Store.RoomsFile)

	// Initialize services
	authService := auth.NewService(cfg)
	registry := session.NewRegistry()
	dispatcher := dispatch.New(fileStore, registry, authService)

	// The hub is the single execution context for all dispatching
	hub := server.NewHub(registry, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// Start listeners
	srv := server.New(cfg, hub)
	if err := srv.Start(ctx); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	cancel()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}
