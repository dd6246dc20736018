package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/suenchunyu/word-frequency/internal/config"
	"github.com/suenchunyu/word-frequency/internal/frequency"
	"github.com/suenchunyu/word-frequency/internal/job"
	"github.com/suenchunyu/word-frequency/internal/logger"
	"github.com/suenchunyu/word-frequency/internal/pkg/server"
)

const (
	defaultConfigFilename = "server.yaml"
)

var (
	configFileName = flag.String("config", defaultConfigFilename, "server config filename, empty for defaults")
)

func main() {
	flag.Parse()

	c := config.Default()
	if *configFileName != "" {
		if err := config.Load(*configFileName, c); err != nil {
			log.Fatal().Err(err).Str("config", *configFileName).Msg("failed to load config")
		}
	}

	l, err := logger.New(c.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build logger")
	}

	runner, err := job.FromConfig(c, l)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to set up job runner")
	}

	s, err := server.New(
		server.WithNetwork(server.NetworkFromString(c.Network)),
		server.WithAddr(c.Host),
		server.WithPort(c.Port),
		server.WithMaxMessageSize(c.MaxMessageSize),
		server.WithLogger(l),
	)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create server")
	}

	frequency.RegisterFrequencyServiceServer(s.Raw(), frequency.NewGrpcService(runner, l))
	s.StopHook(func() error {
		stats := runner.Stats()
		l.Info().Uint64("finished", stats.Finished).Uint64("failed", stats.Failed).Msg("server stopped")
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = s.Start(ctx); err != nil {
		l.Fatal().Err(err).Msg("server failed")
	}
}
