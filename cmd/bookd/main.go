package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"bookd/internal/admin"
	"bookd/internal/config"
	"bookd/internal/netsim"
	"bookd/internal/observability"
	"bookd/internal/server"
	"bookd/internal/store"
)

// Usage: bookd [port [semantics [lossRate [seed]]]]
// Settings come from $BOOKD_CONFIG (TOML) when set; positional args
// override it.
func main() {
	observability.InitLogger("bookd")

	cfg, err := config.LoadServerConfig(os.Getenv("BOOKD_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	args := os.Args[1:]
	if len(args) == 0 {
		log.Info().Msg("no args provided, using defaults: 5000 AMO 0.0 42")
	}
	if err := cfg.ApplyArgs(args); err != nil {
		log.Fatal().Err(err).Msg("bad arguments")
	}
	sem, err := config.ParseSemantics(cfg.Semantics)
	if err != nil {
		log.Fatal().Err(err).Msg("bad semantics")
	}

	st := store.New(cfg.Seed)
	for _, name := range cfg.Facilities {
		st.Add(name)
	}

	srv, err := server.Listen(cfg.Port, server.Options{
		Semantics: sem,
		Store:     st,
		Dropper:   netsim.NewDropper(cfg.LossRate, cfg.Seed),
		Logger:    log.Logger,
	})
	if err != nil {
		log.Fatal().Err(err).Int("port", cfg.Port).Msg("failed to bind udp socket")
	}

	if cfg.AdminAddr != "" {
		adm := admin.New(cfg.AdminAddr, srv, log.Logger)
		go func() {
			if err := adm.Run(); err != nil {
				log.Error().Err(err).Msg("admin server stopped")
			}
		}()
		log.Info().Str("addr", cfg.AdminAddr).Msg("admin http listening")
	}

	log.Info().
		Int("port", cfg.Port).
		Str("semantics", config.SemanticsName(sem)).
		Float64("loss_rate", cfg.LossRate).
		Int64("seed", cfg.Seed).
		Strs("facilities", cfg.Facilities).
		Msg("server listening")

	if err := srv.Run(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
