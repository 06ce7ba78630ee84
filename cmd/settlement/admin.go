package main

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/instruction"
	"github.com/photon-storage/photon-settlement/lifecycle"
)

var initConfigCommand = &cli.Command{
	Name:   "init-config",
	Usage:  "initialize the escrow program config account with the admin key",
	Action: initConfig,
}

func initConfig(ctx *cli.Context) error {
	c, err := setup(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	if c.admin == nil {
		return errors.New("admin keypair is required to initialize the config")
	}

	withdrawal, err := solana.PublicKeyFromBase58(c.cfg.Pricing.WithdrawalWallet)
	if err != nil {
		return errors.Wrapf(err, "parse withdrawal wallet %q", c.cfg.Pricing.WithdrawalWallet)
	}

	sig, err := c.builder.EnsureConfig(ctx.Context, c.solana, c.solana, instruction.ConfigParams{
		Admin:           c.admin.PublicKey(),
		RateSubunits:    c.cfg.Solana.RateSubunits,
		MinDurationDays: uint64(c.cfg.Pricing.MinDurationDays),
		Withdrawal:      withdrawal,
	})
	if err != nil {
		return err
	}

	if sig != "" {
		log.Info("config initialization submitted", "signature", sig)
	}
	return nil
}

var (
	rateFlag = &cli.Float64Flag{
		Name:  "rate",
		Usage: "USD per byte per day",
	}
	minDaysFlag = &cli.UintFlag{
		Name:  "min-days",
		Usage: "Minimum storage duration in days for new deposits",
	}
	adminKeyFlag = &cli.StringFlag{
		Name:  "admin-key",
		Usage: "Admin public key",
	}
	withdrawalFlag = &cli.StringFlag{
		Name:  "withdrawal-wallet",
		Usage: "Wallet receiving escrow withdrawals",
	}
	filecoinWalletFlag = &cli.StringFlag{
		Name:  "filecoin-wallet",
		Usage: "Address receiving USDFC payments",
	}
)

var configCommand = &cli.Command{
	Name:  "config",
	Usage: "change the pricing config",
	Subcommands: []*cli.Command{
		{
			Name:  "set",
			Usage: "update pricing config fields",
			Flags: []cli.Flag{
				rateFlag,
				minDaysFlag,
				adminKeyFlag,
				withdrawalFlag,
				filecoinWalletFlag,
			},
			Action: setConfig,
		},
	},
}

func setConfig(ctx *cli.Context) error {
	c, err := setup(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	u := lifecycle.ConfigUpdate{}
	if ctx.IsSet(rateFlag.Name) {
		rate := ctx.Float64(rateFlag.Name)
		u.RatePerBytePerDay = &rate
	}
	if ctx.IsSet(minDaysFlag.Name) {
		days := uint32(ctx.Uint(minDaysFlag.Name))
		u.MinDurationDays = &days
	}
	if ctx.IsSet(adminKeyFlag.Name) {
		key := ctx.String(adminKeyFlag.Name)
		u.AdminKey = &key
	}
	if ctx.IsSet(withdrawalFlag.Name) {
		wallet := ctx.String(withdrawalFlag.Name)
		u.WithdrawalWallet = &wallet
	}
	if ctx.IsSet(filecoinWalletFlag.Name) {
		wallet := ctx.String(filecoinWalletFlag.Name)
		u.FilecoinWallet = &wallet
	}

	cfg, err := c.lifecycle.UpdateConfig(ctx.Context, u)
	if err != nil {
		return err
	}

	log.Info("pricing config updated",
		"rate", cfg.RatePerBytePerDay,
		"min_days", cfg.MinDurationDays,
		"withdrawal_wallet", cfg.WithdrawalWallet,
		"filecoin_wallet", cfg.FilecoinWallet)
	return nil
}
