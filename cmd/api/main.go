package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"task-manager/backend/internal/config"
	"task-manager/backend/internal/repositories"
	"task-manager/backend/internal/routes"
	"task-manager/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fatal: Failed to load config: %v", err)
	}
	if cfg.AppEnv == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	primary, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Fatal: Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	// フォールバックはプロセスが生きている間だけ保持される
	fallback := repositories.NewInMemoryTaskRepository()
	taskService := services.NewTaskService(primary, fallback, cfg.ForceFallback())
	taskService.SetHealthTimeout(cfg.HealthTimeout)

	r := routes.SetupRouter(cfg, taskService)
	srv := &http.Server{Addr: cfg.Addr(), Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shut down server: %v", err)
		}
	}()

	log.Printf("Server started on port %s (store: %s, mode: %s)", cfg.Port, cfg.StoreDriver, cfg.AppEnv)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
