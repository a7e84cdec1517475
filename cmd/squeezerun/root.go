package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"squeezerun/internal/config"
	"squeezerun/internal/data/cache"
	"squeezerun/internal/engine"
	"squeezerun/internal/persistence"
	"squeezerun/internal/providers"
)

const version = "v1.2.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "squeezerun",
		Short:   "Short-squeeze candidate discovery engine",
		Version: version,
		Long: `squeezerun scans the listed universe for short-squeeze setups:
crowded shorts, expensive borrow, a live catalyst and a tape that is
already moving. Each run produces a ranked, audited candidate list.

Configuration comes from the preset selected by SQUEEZE_CONFIG_PATH
(built-in defaults otherwise) plus environment knobs; see the preset
file for the full threshold table.`,
		SilenceUsage: true,
	}

	// Accept underscore spellings of multi-word flags (--offline_mode etc.)
	// so preset files and shell scripts can share one naming convention.
	root.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	root.AddCommand(newScanCmd())
	root.AddCommand(newScheduleCmd())
	return root
}

// buildEngine assembles a production engine: config, cache registry,
// HTTP providers, optional Postgres sink. The returned closer flushes
// caches and the DB pool.
func buildEngine() (*engine.Engine, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	registry := cache.NewRegistry(cfg.DataDir)
	port := providers.NewHTTPPort(cfg, registry)

	var repo persistence.DiscoveryRepo = persistence.Noop{}
	if dsn := os.Getenv(persistence.EnvDatabaseURL); dsn != "" {
		pg, err := persistence.NewPostgres(dsn)
		if err != nil {
			registry.Close()
			return nil, nil, nil, err
		}
		repo = pg
		log.Info().Msg("postgres persistence enabled")
	}

	eng, err := engine.New(engine.Options{
		Config: cfg,
		Port:   port,
		Market: port,
		Repo:   repo,
	})
	if err != nil {
		registry.Close()
		repo.Close()
		return nil, nil, nil, err
	}

	closer := func() {
		registry.Close()
		if err := repo.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close persistence")
		}
	}
	return eng, cfg, closer, nil
}
