// Command petvision-web serves the pet description web UI.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/petvision/petvision/config"
	"github.com/petvision/petvision/describe"
	"github.com/petvision/petvision/internal/web"
)

const shutdownGrace = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	var cfgFile string
	flag.StringVar(&cfgFile, "config", "", "path to config file (TOML)")
	flag.Parse()

	cfg, err := web.LoadConfig(cfgFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	describer := describe.New(describe.Opts{
		ParamsPath: cfg.ParamsFile,
		Timeout:    cfg.RequestTimeout,
	})
	srv := web.New(cfg, describer, log.Logger)

	log.Info().
		Str("listen", cfg.Listen).
		Str("paramsFile", cfg.ParamsFile).
		Msg("starting petvision web UI")

	// Context cancels on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
