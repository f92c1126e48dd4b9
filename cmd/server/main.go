package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/keremar/watchroom/internal/adapters/http"
	"github.com/keremar/watchroom/internal/app"
	"github.com/keremar/watchroom/internal/config"
	"github.com/keremar/watchroom/internal/core"
	"github.com/keremar/watchroom/internal/domain"
	"github.com/keremar/watchroom/internal/metrics"
)

func domainSettings(cfg *config.Config) domain.Settings {
	s := domain.DefaultSettings()
	if cfg.MaxMembers > 0 {
		s.MaxMembers = cfg.MaxMembers
	}
	return s
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	registry := core.NewRegistry(
		core.WithIdleTimeout(cfg.RoomIdleTimeout),
		core.WithRoomOptions(
			core.WithSettings(domainSettings(cfg)),
			core.WithHostOnlyPlayback(cfg.RestrictPlaybackToHost),
		),
	)
	hub := app.NewHub()

	m := metrics.NewMetrics()
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	if err := m.Register(promReg); err != nil {
		log.Error().Err(err).Msg("failed to register metrics")
	}
	if err := metrics.RegisterGauges(promReg,
		func() float64 { return float64(registry.Count()) },
		func() float64 { return float64(hub.Count()) },
	); err != nil {
		log.Error().Err(err).Msg("failed to register gauges")
	}

	orch := &app.Orchestrator{
		Registry: registry,
		Hub:      hub,
		Metrics:  m,
	}

	go maintenanceLoop(ctx, cfg, registry, hub)

	r := router.SetupRouter(ctx, cfg, orch, promReg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("watchroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	// Tell everyone first, give clients a moment, then drop connections.
	hub.SetDraining()
	hub.BroadcastAll(core.ServerShutdownEvent{
		Message:   "Server is going down for maintenance, please retry in a few minutes",
		Timestamp: time.Now().UnixMilli(),
	})
	time.Sleep(cfg.ShutdownGrace)
	hub.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

// maintenanceLoop periodically sweeps idle rooms and culls dead
// connections.
func maintenanceLoop(ctx context.Context, cfg *config.Config, registry *core.Registry, hub *app.Hub) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept := registry.Sweep()
			culled := hub.CullIdle(cfg.ConnIdleTimeout)
			log.Info().
				Int("rooms", registry.Count()).
				Int("connections", hub.Count()).
				Int("rooms_swept", swept).
				Int("conns_culled", culled).
				Msg("maintenance pass")
		}
	}
}
