// perpquoted serves swap and position quotes over HTTP against a market snapshot file.
//
// The snapshot is re-read on SIGHUP; SIGINT and SIGTERM drain in-flight requests.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	perpdex "github.com/krazyTry/perpdex-go"
	"github.com/krazyTry/perpdex-go/config"
	"github.com/krazyTry/perpdex-go/internal/server"
	"github.com/krazyTry/perpdex-go/snapshot"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load environment")
	}
	if level, err := zerolog.ParseLevel(env.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", env.LogLevel).Msg("Unknown log level, using info")
	}

	cfg, err := env.Config()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve chain configuration")
	}

	snap, err := snapshot.Load(env.SnapshotPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", env.SnapshotPath).Msg("Failed to load snapshot")
	}
	if snap.ChainID != 0 && snap.ChainID != uint64(cfg.ChainID) {
		log.Warn().Uint64("snapshot", snap.ChainID).Stringer("config", cfg.ChainID).Msg("Snapshot chain differs from configured chain")
	}

	engine := perpdex.NewEngine(cfg, perpdex.WithLogger(log.Logger))
	srv := server.New(engine, snap, log.Logger)

	httpServer := &http.Server{
		Addr:         env.ListenAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", env.ListenAddr).
			Stringer("chain", cfg.ChainID).
			Int("markets", len(snap.Info.Markets)).
			Msg("Quote server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-reload:
			next, err := snapshot.Load(env.SnapshotPath)
			if err != nil {
				log.Error().Err(err).Msg("Snapshot reload failed, keeping previous snapshot")
				continue
			}
			srv.SetSnapshot(next)
			log.Info().Int("markets", len(next.Info.Markets)).Int("positions", len(next.Positions)).Msg("Snapshot reloaded")
		case <-quit:
			log.Info().Msg("Shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := httpServer.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("Forced shutdown")
			}
			cancel()
			return
		}
	}
}
