package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/cmd"
	"github.com/photon-storage/photon-settlement/cmd/runtime/version"
)

func main() {
	app := cli.App{
		Name:    "photon-settlement",
		Usage:   "payment settlement and storage lifecycle service for photon uploads",
		Version: version.Get(),
		Flags: []cli.Flag{
			cmd.ConfigPathFlag,
			cmd.VerbosityFlag,
			cmd.LogFormatFlag,
			cmd.LogFilenameFlag,
			cmd.LogColorFlag,
		},
		Commands: []*cli.Command{
			serveCommand,
			keeperCommand,
			initConfigCommand,
			configCommand,
		},
	}

	app.Before = func(ctx *cli.Context) error {
		logLvl, err := log.ParseLevel(ctx.String(cmd.VerbosityFlag.Name))
		if err != nil {
			return err
		}

		logFmt, err := log.ParseFormat(ctx.String(cmd.LogFormatFlag.Name))
		if err != nil {
			return err
		}

		if err := log.Init(logLvl, logFmt); err != nil {
			return err
		}

		logFilename := ctx.String(cmd.LogFilenameFlag.Name)
		if logFilename != "" {
			if err := log.ConfigurePersistentLogging(logFilename, false); err != nil {
				log.Error("Failed to configuring logging to disk",
					"error", err)
			}
		}
		if ctx.Bool(cmd.LogColorFlag.Name) {
			log.ForceColor()
		}

		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("running application failed", "error", err)
		os.Exit(1)
	}
}
