// Command reaper runs the §4.4 background sweeper: queue hygiene and player
// hygiene, safe to run alongside every other role and safe to run more than
// one instance of at once.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/reaper"
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

	rp := reaper.New(st, cfg, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Info().Dur("period", cfg.ReaperPeriod).Msg("reaper starting")
	rp.Run(ctx)
	zlog.Info().Msg("reaper stopped")
}
