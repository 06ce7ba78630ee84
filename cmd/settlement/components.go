package main

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/chain/evm"
	"github.com/photon-storage/photon-settlement/chain/pda"
	"github.com/photon-storage/photon-settlement/chain/solrpc"
	"github.com/photon-storage/photon-settlement/cmd"
	"github.com/photon-storage/photon-settlement/config"
	"github.com/photon-storage/photon-settlement/database/mysql"
	"github.com/photon-storage/photon-settlement/instruction"
	"github.com/photon-storage/photon-settlement/lifecycle"
	"github.com/photon-storage/photon-settlement/price"
	"github.com/photon-storage/photon-settlement/quote"
	"github.com/photon-storage/photon-settlement/verifier"
)

// components is the wired service graph shared by every command.
type components struct {
	cfg       *config.Config
	db        *gorm.DB
	lifecycle *lifecycle.Manager
	oracle    *price.Oracle
	quotes    *quote.Calculator
	accounts  *pda.Resolver
	builder   *instruction.Builder
	admin     *solana.PrivateKey
	solana    *solrpc.Client
	// verifier is nil unless USDFC payments are enabled.
	verifier *verifier.Verifier
}

func setup(ctx *cli.Context) (*components, error) {
	cfg := &config.Config{}
	if err := config.Load(ctx.String(cmd.ConfigPathFlag.Name), cfg); err != nil {
		return nil, err
	}

	db, err := mysql.NewMySQLDB(cfg.MySQL)
	if err != nil {
		return nil, errors.Wrap(err, "initialize mysql db")
	}

	if err := mysql.Migrate(db, cfg.PricingDefaults()); err != nil {
		return nil, err
	}

	c := &components{
		cfg:       cfg,
		db:        db,
		lifecycle: lifecycle.New(db, nil),
		oracle: price.NewOracle(
			price.NewHermesFeed(cfg.Price.Endpoint),
			cfg.Price.FeedID,
			price.WithTTL(time.Duration(cfg.Price.TTLSeconds)*time.Second),
		),
	}
	c.quotes = quote.New(c.lifecycle, c.oracle)

	program, err := solana.PublicKeyFromBase58(cfg.Solana.ProgramID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse program id %q", cfg.Solana.ProgramID)
	}

	deriver, err := pda.NewCachedDeriver(pda.ProgramDeriver{}, cfg.Solana.AddressCacheLen)
	if err != nil {
		return nil, err
	}
	c.accounts = pda.NewResolver(deriver, program)
	c.builder = instruction.NewBuilder(c.accounts, c.quotes)

	if path := cfg.Solana.AdminKeypairPath; path != "" {
		admin, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read admin keypair %s", path)
		}
		c.admin = &admin
	}
	c.solana = solrpc.NewClient(cfg.Solana.RPCEndpoint, c.admin)

	if cfg.Filecoin.Enabled {
		c.verifier = verifier.New(
			evm.NewClient(cfg.Filecoin.RPCEndpoint),
			time.Duration(cfg.Filecoin.PollIntervalSeconds)*time.Second,
			time.Duration(cfg.Filecoin.TimeoutSeconds)*time.Second,
			nil,
		)
		log.Info("stablecoin payments enabled",
			"network", cfg.Filecoin.Network,
			"token", cfg.Filecoin.TokenContract)
	}

	return c, nil
}

func (c *components) close() {
	if sqlDB, err := c.db.DB(); err == nil {
		sqlDB.Close()
	}
}
