// Command matchmaker runs the §4.2 Matchmaker role: it forms fixed-size
// batches of ready players, reserves session capacity, and materializes
// game records. Many instances may run concurrently against the same
// coordination store.
package main

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nats-io/stan.go"

	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/events"
	"github.com/sandwich-match/arena/internal/ids"
	"github.com/sandwich-match/arena/internal/matchmaker"
	"github.com/sandwich-match/arena/internal/store"

	"os/signal"
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

	var mirror stan.Conn
	clientID := "matchmaker-" + hostnameOrRandom()
	if sc, err := events.DialStreaming(cfg.NatsAddress, cfg.NatsCluster, clientID); err != nil {
		zlog.Warn().Err(err).Msg("nats streaming mirror unavailable, continuing without it")
	} else {
		mirror = sc
	}

	pub := events.NewPublisher(st, mirror, cfg.NatsChannel, zlog)
	mm := matchmaker.New(st, pub, cfg, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Info().Int("players_per_game", cfg.PlayersPerGame).Msg("matchmaker starting")
	mm.Run(ctx)
	zlog.Info().Msg("matchmaker stopped")
}

func hostnameOrRandom() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return ids.New()
}
