package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"carrental/internal/config"
	"carrental/internal/database"
	"carrental/internal/repository"
	"carrental/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		fleetPath = flag.String("fleet", "configs/fleet.yaml", "path to fleet.yaml")
		dbPath    = flag.String("db", "./data/carrental.db", "path to sqlite db")
	)
	flag.Parse()

	fleet, err := config.LoadFleet(*fleetPath)
	if err != nil {
		return err
	}
	if len(fleet) == 0 {
		return fmt.Errorf("no cars in %s", *fleetPath)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cars := service.NewCarService(db, repository.NewMemoryCacheRepository(), &logger)
	created, skipped, err := cars.SeedFleet(ctx, fleet)
	if err != nil {
		return err
	}

	logger.Info().Int("created", created).Int("skipped", skipped).Str("db", *dbPath).Msg("Fleet seeded")
	return nil
}
