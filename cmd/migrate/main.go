// migrate runs DB migrations from embedded SQL; use with go run ./cmd/migrate -direction up.
package main

import (
	"flag"
	"os"

	"medconsult/backend/internal/config"
	"medconsult/backend/internal/db/migrate"
	"medconsult/backend/internal/logger"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New("local", "info")
		log.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		log.Error().Err(err).Msg("invalid direction")
		os.Exit(2)
	}
	if err := migrate.Run(cfg.DatabaseURL, dir); err != nil {
		log.Fatal().Err(err).Str("direction", string(dir)).Msg("migrate")
	}
	log.Info().Str("direction", string(dir)).Msg("migrations applied")
}
