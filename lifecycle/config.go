package lifecycle

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/errs"
)

// ConfigUpdate holds the config fields to change; nil fields are kept.
type ConfigUpdate struct {
	AdminKey          *string
	RatePerBytePerDay *float64
	MinDurationDays   *uint32
	WithdrawalWallet  *string
	FilecoinWallet    *string
}

// PricingConfig loads the singleton config row. It is read on every call
// so admin changes apply to the next quote.
func (m *Manager) PricingConfig(ctx context.Context) (*orm.Config, error) {
	cfg := &orm.Config{}
	if err := m.db.WithContext(ctx).First(cfg, orm.ConfigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("config row")
		}
		return nil, errs.Persistence(err)
	}

	return cfg, nil
}

// UpdateConfig applies u to the singleton config row.
func (m *Manager) UpdateConfig(ctx context.Context, u ConfigUpdate) (*orm.Config, error) {
	updates := map[string]interface{}{}
	if u.AdminKey != nil {
		updates["admin_key"] = *u.AdminKey
	}
	if u.RatePerBytePerDay != nil {
		if r := *u.RatePerBytePerDay; math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			return nil, errs.Validation("rate must be a positive finite number")
		}
		updates["rate_per_byte_per_day"] = *u.RatePerBytePerDay
	}
	if u.MinDurationDays != nil {
		if *u.MinDurationDays == 0 {
			return nil, errs.Validation("minimum duration must be positive")
		}
		updates["min_duration_days"] = *u.MinDurationDays
	}
	if u.WithdrawalWallet != nil {
		updates["withdrawal_wallet"] = *u.WithdrawalWallet
	}
	if u.FilecoinWallet != nil {
		updates["filecoin_wallet"] = *u.FilecoinWallet
	}

	if len(updates) > 0 {
		res := m.db.WithContext(ctx).
			Model(&orm.Config{}).
			Where("id = ?", orm.ConfigID).
			Updates(updates)
		if res.Error != nil {
			return nil, errs.Persistence(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, errs.NotFound("config row")
		}
	}

	return m.PricingConfig(ctx)
}
