package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fenrir/internal/aggregator"
	"fenrir/internal/config"
	"fenrir/internal/netio"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load configuration")
	}
	configureLogging(cfg.Logging)

	// Setup the aggregator and the TCP ingress driving it.
	engine := aggregator.New(aggregator.FromFileConfig(cfg), nil)
	srv := netio.New("0.0.0.0", 9001, engine)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}

func configureLogging(lc config.LoggingConfig) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if lc.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
