// Command runner runs the §4.3 Session runner role: one process represents
// one session:{id} with a fixed slot capacity, watching its own games to
// completion and publishing availability.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/stan.go"
	"github.com/rs/zerolog"

	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/events"
	"github.com/sandwich-match/arena/internal/ids"
	"github.com/sandwich-match/arena/internal/runner"
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
	sessionID := flag.String("session-id", "", "session identity; defaults to the hostname if it starts with session-, else a fresh UUID (§4.3)")
	maxSlots := flag.Int("max-slots", 0, "max concurrent games; 0 uses SESSION_MAX_SLOTS/default")
	flag.Parse()

	cfg := config.FromEnv()
	if *maxSlots == 0 {
		*maxSlots = cfg.SessionMaxSlots
	}

	id := ids.SessionID(*sessionID)

	st := store.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, zlog)
	defer st.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := st.Ping(pingCtx); err != nil {
		cancel()
		zlog.Panic().Err(err).Msg("could not reach coordination store")
	}
	cancel()

	var mirror stan.Conn
	if sc, err := events.DialStreaming(cfg.NatsAddress, cfg.NatsCluster, "runner-"+id); err != nil {
		zlog.Warn().Err(err).Msg("nats streaming mirror unavailable, continuing without it")
	} else {
		mirror = sc
	}

	pub := events.NewPublisher(st, mirror, cfg.NatsChannel, zlog)
	rn := runner.New(st, pub, cfg, id, *maxSlots, zlog)

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := rn.Start(startCtx); err != nil {
		startCancel()
		zlog.Panic().Err(err).Msg("session runner failed to start")
	}
	startCancel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Info().Str("session_id", id).Int("max_slots", *maxSlots).Msg("session runner starting")
	rn.Run(ctx)
	zlog.Info().Str("session_id", id).Msg("session runner stopped")
}
