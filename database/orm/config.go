package orm

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfigID is the primary key of the only config row.
const ConfigID = 1

// Config represents the singleton pricing config of gorm table.
type Config struct {
	ID                uint64 `gorm:"primary_key"`
	AdminKey          string `gorm:"size:64"`
	RatePerBytePerDay float64
	MinDurationDays   uint32
	WithdrawalWallet  string `gorm:"size:64"`
	FilecoinWallet    string `gorm:"size:64"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName change default table name
func (c Config) TableName() string {
	return "config"
}

// Rate returns the USD rate per byte per day.
func (c *Config) Rate() decimal.Decimal {
	return decimal.NewFromFloat(c.RatePerBytePerDay)
}
