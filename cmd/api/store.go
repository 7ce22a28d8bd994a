package main

import (
	"context"
	"log"

	"task-manager/backend/internal/config"
	"task-manager/backend/internal/database"
	"task-manager/backend/internal/repositories"
)

// openStore は設定に従って永続ストアを用意します。
// モックモードでは nil を返し、すべてのリクエストをインメモリで処理します。
func openStore(ctx context.Context, cfg *config.Config) (repositories.TaskRepository, func(), error) {
	if cfg.ForceFallback() {
		log.Println("Running with mock database - no store connection required")
		return nil, func() {}, nil
	}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.HealthTimeout)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewMongoTaskRepository(client, cfg.MongoDatabase)

		pingCtx, cancel := context.WithTimeout(ctx, cfg.HealthTimeout)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			log.Printf("MongoDB connection error: %v", err)
			log.Println("Continuing with in-memory data until the store is reachable")
		} else {
			log.Println("MongoDB Connected Successfully")
		}

		return repo, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("Failed to disconnect MongoDB: %v", err)
			}
		}, nil

	default:
		db, err := database.OpenSQL(cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		repo, err := repositories.NewSQLTaskRepository(db, cfg.StoreDriver)
		if err != nil {
			db.Close()
			return nil, nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.HealthTimeout)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			log.Printf("%s connection error: %v", cfg.StoreDriver, err)
			log.Println("Continuing with in-memory data until the store is reachable")
		} else {
			log.Printf("Successfully connected to %s database!", cfg.StoreDriver)
		}

		return repo, func() {
			if err := db.Close(); err != nil {
				log.Printf("Failed to close database: %v", err)
			}
		}, nil
	}
}
