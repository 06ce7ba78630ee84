package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/keeper"
)

var onceFlag = &cli.BoolFlag{
	Name:  "once",
	Usage: "Run every job a single time and exit",
}

var keeperCommand = &cli.Command{
	Name:   "keeper",
	Usage:  "run the expiry warning, deletion and usage jobs",
	Flags:  []cli.Flag{onceFlag},
	Action: runKeeper,
}

func runKeeper(ctx *cli.Context) error {
	c, err := setup(ctx)
	if err != nil {
		log.Fatal("fail on setup", "error", err)
	}
	defer c.close()

	kc := c.cfg.Keeper
	k := keeper.New(
		ctx.Context,
		time.Duration(kc.RefreshInterval)*time.Second,
		keeper.NewWarningJob(
			c.lifecycle,
			keeper.LogNotifier{},
			time.Duration(kc.WarningWindowDays)*24*time.Hour,
			kc.Concurrency,
		),
		keeper.NewExpiryJob(c.lifecycle, keeper.LogRemover{}, kc.Concurrency),
		keeper.NewUsageJob(c.lifecycle, kc.PlanLimitBytes),
	)

	if ctx.Bool(onceFlag.Name) {
		k.RunOnce()
		return nil
	}

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")

		go k.Stop()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.Info("Already shutting down, interrupt more to panic", "times", i-1)
			}
		}
		panic("Panic closing the keeper")
	}()
	k.Run()
	return nil
}
