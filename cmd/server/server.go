package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"fenrir/internal/aggregator"
	"fenrir/internal/config"
	"fenrir/internal/netio"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the aggregator config file")
	port := flag.Int("port", 9001, "TCP port to listen on")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load configuration")
	}

	engine := aggregator.New(aggregator.FromFileConfig(cfg), nil)
	srv := netio.New("0.0.0.0", *port, engine)

	go srv.Run(ctx)
	<-ctx.Done()
}
