package orm

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeletionStatus is the retention state of an upload.
type DeletionStatus string

const (
	StatusActive  DeletionStatus = "active"
	StatusWarned  DeletionStatus = "warned"
	StatusDeleted DeletionStatus = "deleted"
)

// MaxDurationDays bounds a single deposit or renewal.
const MaxDurationDays = 100 * 365

// PaymentChain identifies where a deposit was settled.
type PaymentChain string

const (
	ChainSolana   PaymentChain = "sol"
	ChainFilecoin PaymentChain = "fil"
)

// Upload is a gorm table definition represents the uploads. One row per
// paid content identifier.
type Upload struct {
	ID              uint64          `gorm:"primary_key"`
	DepositKey      string          `gorm:"size:64;index"`
	ContentCID      string          `gorm:"column:content_cid;size:128;uniqueIndex"`
	DurationDays    uint32
	DepositAmount   decimal.Decimal `gorm:"type:DECIMAL(38,0)"`
	ClaimedAmount   decimal.Decimal `gorm:"type:DECIMAL(38,0)"`
	DepositSlot     uint64
	LastClaimedSlot uint64
	PaymentChain    PaymentChain `gorm:"size:8;index"`
	PaymentToken    string       `gorm:"size:16"`
	UserEmail       string       `gorm:"size:255"`
	FileName        string       `gorm:"size:255"`
	FileType        string       `gorm:"size:128"`
	FileSize        uint64
	TransactionHash *string        `gorm:"size:128"`
	DeletionStatus  DeletionStatus `gorm:"size:16;index"`
	WarningSentAt   *time.Time
	ExpiresAt       time.Time `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Expired reports whether the retention window ended before today.
func (u *Upload) Expired(today time.Time) bool {
	return u.ExpiresAt.Before(today)
}
