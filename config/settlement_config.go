package config

import (
	"time"

	"github.com/photon-storage/photon-settlement/chain/evm"
	"github.com/photon-storage/photon-settlement/database/mysql"
	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/lifecycle"
	"github.com/photon-storage/photon-settlement/price"
	"github.com/photon-storage/photon-settlement/verifier"
)

// Config represent the settlement service config.
type Config struct {
	MySQL    mysql.Config   `yaml:"mysql"`
	API      APIConfig      `yaml:"api"`
	Price    PriceConfig    `yaml:"price"`
	Solana   SolanaConfig   `yaml:"solana"`
	Filecoin FilecoinConfig `yaml:"filecoin"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Keeper   KeeperConfig   `yaml:"keeper"`

	Secrets Secrets `yaml:"-"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Port int `yaml:"port"`
}

// PriceConfig configures the price feed.
type PriceConfig struct {
	Endpoint   string `yaml:"endpoint"`
	FeedID     string `yaml:"feed_id"`
	TTLSeconds uint64 `yaml:"ttl_seconds"`
}

// SolanaConfig configures the settlement chain.
type SolanaConfig struct {
	RPCEndpoint string `yaml:"rpc_endpoint"`
	ProgramID   string `yaml:"program_id"`
	// AdminKeypairPath is a solana-keygen JSON file.
	AdminKeypairPath string `yaml:"admin_keypair_path"`
	// RateSubunits is the per byte per day rate written on chain at
	// config initialization.
	RateSubunits    uint64 `yaml:"rate_subunits"`
	AddressCacheLen int    `yaml:"address_cache_len"`
}

// FilecoinConfig configures the USDFC payment chain.
type FilecoinConfig struct {
	Enabled             bool   `yaml:"enabled"`
	Network             string `yaml:"network"`
	RPCEndpoint         string `yaml:"rpc_endpoint"`
	TokenContract       string `yaml:"token_contract"`
	PollIntervalSeconds uint64 `yaml:"poll_interval_seconds"`
	TimeoutSeconds      uint64 `yaml:"timeout_seconds"`
}

// PricingConfig seeds the config row on first start.
type PricingConfig struct {
	AdminKey          string  `yaml:"admin_key"`
	RatePerBytePerDay float64 `yaml:"rate_per_byte_per_day"`
	MinDurationDays   uint32  `yaml:"min_duration_days"`
	WithdrawalWallet  string  `yaml:"withdrawal_wallet"`
	FilecoinWallet    string  `yaml:"filecoin_wallet"`
}

// KeeperConfig configures the batch jobs.
type KeeperConfig struct {
	RefreshInterval   uint64 `yaml:"refresh_interval"`
	WarningWindowDays uint64 `yaml:"warning_window_days"`
	Concurrency       int    `yaml:"concurrency"`
	PlanLimitBytes    uint64 `yaml:"plan_limit_bytes"`
}

// Secrets are read from the environment only.
type Secrets struct {
	MySQLPassword    string `envconfig:"MYSQL_PASSWORD"`
	AdminKeypairPath string `envconfig:"ADMIN_KEYPAIR_PATH"`
}

// Overrides returns the struct filled from the environment.
func (c *Config) Overrides() interface{} {
	return &c.Secrets
}

// SetDefaults fills unset values and applies secrets.
func (c *Config) SetDefaults() {
	c.MySQL.SetDefaults()
	if c.Secrets.MySQLPassword != "" {
		c.MySQL.Master.Password = c.Secrets.MySQLPassword
		for i := range c.MySQL.Slaves {
			c.MySQL.Slaves[i].Password = c.Secrets.MySQLPassword
		}
	}
	if c.Secrets.AdminKeypairPath != "" {
		c.Solana.AdminKeypairPath = c.Secrets.AdminKeypairPath
	}

	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.Price.Endpoint == "" {
		c.Price.Endpoint = price.DefaultHermesEndpoint
	}
	if c.Price.FeedID == "" {
		c.Price.FeedID = price.SOLUSDFeedID
	}
	if c.Price.TTLSeconds == 0 {
		c.Price.TTLSeconds = uint64(price.DefaultTTL / time.Second)
	}

	if c.Solana.AddressCacheLen == 0 {
		c.Solana.AddressCacheLen = 4096
	}

	if c.Filecoin.Network == "" {
		c.Filecoin.Network = "mainnet"
	}
	if c.Filecoin.RPCEndpoint == "" {
		c.Filecoin.RPCEndpoint = evm.FilecoinMainnetRPC
		if c.Filecoin.Network == "calibration" {
			c.Filecoin.RPCEndpoint = evm.FilecoinCalibrationRPC
		}
	}
	if c.Filecoin.TokenContract == "" {
		c.Filecoin.TokenContract = evm.USDFCMainnet
		if c.Filecoin.Network == "calibration" {
			c.Filecoin.TokenContract = evm.USDFCCalibration
		}
	}
	if c.Filecoin.PollIntervalSeconds == 0 {
		c.Filecoin.PollIntervalSeconds = uint64(verifier.DefaultPollInterval / time.Second)
	}
	if c.Filecoin.TimeoutSeconds == 0 {
		c.Filecoin.TimeoutSeconds = uint64(verifier.DefaultTimeout / time.Second)
	}

	if c.Pricing.MinDurationDays == 0 {
		c.Pricing.MinDurationDays = 1
	}

	if c.Keeper.RefreshInterval == 0 {
		c.Keeper.RefreshInterval = 3600
	}
	if c.Keeper.WarningWindowDays == 0 {
		c.Keeper.WarningWindowDays = uint64(lifecycle.DefaultWarningWindow / (24 * time.Hour))
	}
	if c.Keeper.Concurrency == 0 {
		c.Keeper.Concurrency = 4
	}
}

// PricingDefaults is the config row seeded on first migration.
func (c *Config) PricingDefaults() orm.Config {
	return orm.Config{
		AdminKey:          c.Pricing.AdminKey,
		RatePerBytePerDay: c.Pricing.RatePerBytePerDay,
		MinDurationDays:   c.Pricing.MinDurationDays,
		WithdrawalWallet:  c.Pricing.WithdrawalWallet,
		FilecoinWallet:    c.Pricing.FilecoinWallet,
	}
}
