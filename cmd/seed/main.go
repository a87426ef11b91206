package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"realestate-payments/internal/config"
	pg "realestate-payments/internal/infra/db/postgres"
	"realestate-payments/internal/infra/logging"
	"realestate-payments/internal/usecase"
)

func intPtr(n int) *int { return &n }

// Catalogue offered by the app. Ids are stable because clients send them back.
var catalogue = []struct {
	ID          string
	Name        string
	DisplayName string
	Price       string
	MaxAds      *int
}{
	{"1", "basico", "Básico", "29.90", intPtr(5)},
	{"2", "premium", "Premium", "49.90", intPtr(20)},
	{"3", "ilimitado", "Ilimitado", "99.90", nil},
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	// Only the database settings matter here, so the provider checks are skipped.
	cfg, err := config.ReadConfig(*cfgPath)
	if err != nil || cfg.Database.URL == "" {
		fmt.Fprintf(os.Stderr, "config: database.url required (%v)\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool), logger)
	for _, c := range catalogue {
		p, err := planUC.Upsert(ctx, c.ID, c.Name, c.DisplayName, decimal.RequireFromString(c.Price), c.MaxAds)
		if err != nil {
			logger.Fatal().Err(err).Str("plan", c.Name).Msg("seed plan")
		}
		logger.Info().Str("id", p.ID).Str("name", p.DisplayName).Str("price", p.Price.StringFixed(2)).Msg("plan seeded")
	}
}
