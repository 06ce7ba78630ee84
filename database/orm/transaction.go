package orm

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TransactionType represents ledger entry type
type TransactionType uint8

const (
	Invalid TransactionType = iota
	InitialDeposit
	Renewal
)

var (
	txTypeValue = map[TransactionType]string{
		InitialDeposit: "initial_deposit",
		Renewal:        "renewal",
	}

	txValueType = map[string]TransactionType{
		"initial_deposit": InitialDeposit,
		"renewal":         Renewal,
	}
)

// StrToType converts type string to transaction type
func StrToType(str string) TransactionType {
	if _, ok := txValueType[str]; !ok {
		return Invalid
	}

	return txValueType[str]
}

// String returns the string of transaction type
func (t TransactionType) String() string {
	if _, ok := txTypeValue[t]; !ok {
		return "unknown"
	}

	return txTypeValue[t]
}

// Value stores the type by name.
func (t TransactionType) Value() (driver.Value, error) {
	if _, ok := txTypeValue[t]; !ok {
		return nil, errors.Errorf("invalid transaction type %d", t)
	}

	return t.String(), nil
}

// Scan reads a type stored by name.
func (t *TransactionType) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return errors.Errorf("cannot scan %T into transaction type", src)
	}

	if *t = StrToType(s); *t == Invalid {
		return errors.Errorf("unknown transaction type %q", s)
	}

	return nil
}

// Transaction is a gorm table definition represents the append-only
// payment ledger.
type Transaction struct {
	ID              uint64          `gorm:"primary_key"`
	DepositID       uint64          `gorm:"index"`
	ContentCID      string          `gorm:"column:content_cid;size:128;index"`
	TransactionHash string          `gorm:"size:128;uniqueIndex"`
	TransactionType TransactionType `gorm:"type:varchar(32)"`
	Amount          decimal.Decimal `gorm:"type:DECIMAL(38,0)"`
	DurationDays    uint32
	CreatedAt       time.Time
}
