package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/api/server"
	"github.com/photon-storage/photon-settlement/api/service"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "run the settlement HTTP API",
	Action: serve,
}

func serve(ctx *cli.Context) error {
	c, err := setup(ctx)
	if err != nil {
		log.Fatal("fail on setup", "error", err)
	}
	defer c.close()

	deps := service.Deps{
		Lifecycle:       c.lifecycle,
		Quotes:          c.quotes,
		Prices:          c.oracle,
		Builder:         c.builder,
		Accounts:        c.accounts,
		Chain:           c.solana,
		StablecoinToken: c.cfg.Filecoin.TokenContract,
	}
	if c.verifier != nil {
		deps.Verifier = c.verifier
	}
	srv := server.New(c.cfg.API.Port, service.New(deps))

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")

		go func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown api server failed", "error", err)
			}
		}()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.Info("Already shutting down, interrupt more to panic", "times", i-1)
			}
		}
		panic("Panic closing the settlement service")
	}()

	return srv.Run()
}
