package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"token-exchange-go/internal/api"
	"token-exchange-go/internal/database"
	"token-exchange-go/internal/market"
	"token-exchange-go/internal/metrics"
	"token-exchange-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Engine    *market.Engine
	Exchange  *api.ExchangeService
	Metrics   *metrics.Metrics
}

func InitializeLogger(development bool) (*zap.Logger, func()) {
	var logger *zap.Logger
	var err error
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database, seeds or migrates the token catalog and
// wires the exchange facade on top.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	catalog, err := LoadTokenCatalog(cfg.Market.TokensFile)
	if err != nil {
		dbService.Close()
		return nil, fmt.Errorf("failed to load token catalog: %w", err)
	}

	m := metrics.New()
	engine := market.NewEngine(dbService, cfg.Market, market.WithMetrics(m))

	zap.L().Info("Preparing token catalog", zap.Int("catalog_size", len(catalog)))
	if _, err := engine.Seed(ctx, catalog); err != nil {
		dbService.Close()
		return nil, fmt.Errorf("failed to seed token catalog: %w", err)
	}

	return &Services{
		DbService: dbService,
		Engine:    engine,
		Exchange:  api.NewExchangeService(dbService, engine, cfg, m),
		Metrics:   m,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without the market engine
// Useful for read-only operations like listing accounts
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.Exchange != nil {
		cs.Exchange.Sessions().Stop()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
