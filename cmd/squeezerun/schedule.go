package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"squeezerun/internal/scheduler"
)

func newScheduleCmd() *cobra.Command {
	var (
		cronSpec string
		listen   string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run discovery continuously on the preset cadence",
		Long: `Starts the scheduler daemon: discovery runs fire on the preset's
refresh cadence (or an explicit cron expression) until interrupted.
Ticks that land while a run is still executing are skipped, not queued.
Prometheus metrics are served on --listen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng, cfg, closer, err := buildEngine()
			if err != nil {
				return err
			}
			defer closer()

			var sched *scheduler.Scheduler
			if cronSpec != "" {
				sched, err = scheduler.NewCron(eng, cronSpec)
			} else {
				sched, err = scheduler.New(eng, cfg.RefreshCadence())
			}
			if err != nil {
				return err
			}

			if listen != "" {
				go serveMetrics(ctx, listen)
			}

			log.Info().Str("preset", cfg.Preset).Str("cron", cronSpec).
				Dur("cadence", cfg.RefreshCadence()).Msg("starting scheduler")
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cronSpec, "cron", "", "cron expression overriding the preset cadence")
	cmd.Flags().StringVar(&listen, "listen", ":9098", "metrics listen address (empty disables)")
	return cmd
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
