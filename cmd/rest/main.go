package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"notes-rag-be/internal/bootstrap"
	"notes-rag-be/internal/config"
	"notes-rag-be/internal/model"
	"notes-rag-be/internal/server"
	"notes-rag-be/internal/tracer"
	"notes-rag-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Configuration
	cfg := config.Load()

	// 2. Database, skipped entirely for the in-memory backend
	var gormDB *gorm.DB
	if cfg.Database.Backend != "memory" {
		var err error
		gormDB, err = database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(gormDB, model.All()...); err != nil {
				log.Panicf("Migration failed: %v", err)
			}
		}
	}

	// 3. Dependencies
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Panicf("Unable to build container: %v", err)
	}
	defer container.Close()

	// Global tracers delegate, so spans created by components built above
	// pick up the provider installed here.
	shutdownTracer := tracer.InitTracer(cfg.Tracing, container.Logger)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Background workers
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()
	if err := container.IndexService.Start(ctx); err != nil {
		log.Printf("Reconcile worker not started: %v", err)
	}
	go container.WebSocketHub.Run(ctx)
	if err := container.LiveService.Start(ctx); err != nil {
		log.Printf("Live updates not started: %v", err)
	}

	// 5. Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
