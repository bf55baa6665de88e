// Command autoscaler runs the §4.5 Capacity provider role: it watches
// demand and drives a pluggable backend that provisions/decommissions
// session runners.
//
// No concrete hypervisor integration is in scope (§1's Non-goals), so this
// binary wires capacity.FakeBackend as its runtime backend. Swapping in a
// real provisioner only requires satisfying the capacity.Backend interface
// and replacing the construction below.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandwich-match/arena/internal/capacity"
	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/store"
)

var zlog = zerolog.New(zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.Stamp,
}).With().Timestamp().Logger()

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	cfg := config.FromEnv()

	st := store.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, zlog)
	defer st.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := st.Ping(pingCtx); err != nil {
		cancel()
		zlog.Panic().Err(err).Msg("could not reach coordination store")
	}
	cancel()

	backend := capacity.NewFakeBackend()
	provider := capacity.New(st, backend, cfg, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Info().Int("min_sessions", cfg.MinSessions).Int("max_sessions", cfg.MaxSessions).Msg("capacity provider starting")
	provider.Run(ctx)
	zlog.Info().Msg("capacity provider stopped")
}
