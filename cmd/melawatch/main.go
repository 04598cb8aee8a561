package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/savegress/melawatch/internal/api"
	"github.com/savegress/melawatch/internal/config"
	"github.com/savegress/melawatch/internal/insights"
	"github.com/savegress/melawatch/internal/reports"
	"github.com/savegress/melawatch/internal/simulation"
)

func main() {
	// Load configuration
	var cfg *config.Config
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else {
		cfg = config.LoadFromEnv()
	}

	log.Printf("Starting melawatch - Mela Device Monitoring Service")
	log.Printf("Environment: %s", cfg.Server.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the simulated fleet
	store := simulation.NewStore(&cfg.Simulation)
	if err := store.Start(ctx); err != nil {
		log.Fatalf("Failed to start simulation store: %v", err)
	}
	log.Printf("Simulation store started with %d devices", simulation.FleetSize)

	// Initialize the insights service and wire it to fleet changes
	insightsService := insights.NewService(&cfg.Insights)
	store.Subscribe(func() {
		insightsService.UpdateInsights(store.AllDevices())
	})
	insightsService.UpdateInsights(store.AllDevices())
	log.Println("Insights service started")

	// Initialize citizen reports
	reportRegistry := reports.NewRegistry(&cfg.Reports)
	log.Println("Report registry started")

	// Create API server
	server := api.NewServer(store, insightsService, reportRegistry)

	// Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	store.Stop()

	log.Println("melawatch stopped")
}
