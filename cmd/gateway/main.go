// Command gateway runs the §4.1 Gateway role: it accepts player
// connections over a websocket, serializes per-connection message
// handling, and forwards match lifecycle events back to players.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandwich-match/arena/internal/config"
	"github.com/sandwich-match/arena/internal/gateway"
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
	port := flag.Int("port", 0, "port the gateway will accept player connections on (0 uses GATEWAY_PORT/default)")
	flag.Parse()

	cfg := config.FromEnv()
	if *port != 0 {
		cfg.GatewayPort = *port
	}

	st := store.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, zlog)
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := st.Ping(ctx); err != nil {
		cancel()
		zlog.Panic().Err(err).Msg("could not reach coordination store")
	}
	cancel()

	gw := gateway.New(st, cfg, zlog)

	runCtx, runCancel := context.WithCancel(context.Background())
	go gw.RunEventForwarding(runCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/connect", gw.ServeHTTP)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.GatewayPort), Handler: mux}

	go func() {
		zlog.Info().Int("port", cfg.GatewayPort).Msg("gateway accepting connections")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Error().Err(err).Msg("gateway server stopped")
		}
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	zlog.Info().Msg("shutting down gateway")
	runCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("gateway shutdown error")
	}
}
