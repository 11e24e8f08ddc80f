package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"midnight-village/internal/ai"
	"midnight-village/internal/config"
	"midnight-village/internal/game"
	"midnight-village/internal/logging"
	"midnight-village/internal/room"
	"midnight-village/internal/store"
	"midnight-village/internal/ws"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	var st *store.Store
	var recorder room.Recorder
	if cfg.Server.PostgresDSN != "" {
		st, err = store.New(cfg.Server.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store init failed")
		}
		if err := st.Ping(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("db ping failed")
		}
		if err := st.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ensure schema failed")
		}
		applyRolePresets(st)
		applyPersonas(st)
		recorder = st
	} else {
		log.Warn().Msg("no postgres dsn, persistence disabled")
	}

	var gen ai.Generator
	if cfg.AI.APIKey != "" {
		gen = ai.NewOpenAIGenerator(ai.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		})
		log.Info().Str("model", cfg.AI.Model).Msg("speech generation enabled")
	} else {
		log.Warn().Msg("no ai api key, agents use canned table talk")
	}

	gateway := ws.NewServer()
	mgr := room.NewManager(cfg.Game, cfg.Server.MaxRooms, room.Options{
		Generator:   gen,
		AITimeout:   time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		Broadcaster: gateway,
		Recorder:    recorder,
	})
	gateway.Bind(mgr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	mgr.StartJanitor(ctx, time.Minute,
		time.Duration(cfg.Server.RoomIdleMinutes)*time.Minute)

	r := newRouter(mgr, gateway, st, cfg.Server)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	mgr.Shutdown()
	if st != nil {
		st.Close()
	}
}

// applyRolePresets overlays operator-defined compositions from the database
// onto the compiled-in defaults.
func applyRolePresets(st *store.Store) {
	presets, err := st.LoadRolePresets(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("load role presets failed")
		return
	}
	for seats, preset := range presets {
		game.Presets[seats] = preset
		log.Info().Int("seats", seats).Msg("role preset overridden")
	}
}

// applyPersonas extends or replaces the compiled-in AI temperaments with
// operator-defined ones.
func applyPersonas(st *store.Store) {
	personas, err := st.ListPersonas(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("load personas failed")
		return
	}
	for _, p := range personas {
		ai.UpsertPreset(p)
		log.Info().Str("persona", p.Name).Msg("persona loaded")
	}
}
