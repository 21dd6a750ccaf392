package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danilovkiri/dk-go-refill/internal/api/rest"
	"github.com/danilovkiri/dk-go-refill/internal/config"
	"github.com/danilovkiri/dk-go-refill/internal/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	// get configuration
	cfg, err := config.NewConfiguration()
	if err != nil {
		logger.InitLog("").Fatal().Err(err).Msg("")
	}
	if err := cfg.ParseFlags(os.Args[1:]); err != nil {
		logger.InitLog("").Fatal().Err(err).Msg("")
	}
	log := logger.InitLog(cfg.ServerConfig.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize server
	app, err := rest.InitServer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	defer app.Storage.Close()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Watcher.ListenAndPoll(gCtx)
	})
	g.Go(func() error {
		log.Info().Msg("server start attempted")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("server shutdown attempted")
		ctxTO, cancelTO := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelTO()
		return app.Server.Shutdown(ctxTO)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server shutdown succeeded")
}
