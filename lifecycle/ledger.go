package lifecycle

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/errs"
)

// DepositRecord is a settled initial deposit.
type DepositRecord struct {
	Owner        string
	CID          string
	DurationDays uint64
	Amount       decimal.Decimal
	Slot         uint64
	Chain        orm.PaymentChain
	Token        string
	TxHash       string
	Email        string
	FileName     string
	FileType     string
	FileSize     uint64
}

func (r *DepositRecord) validate() error {
	if r.Owner == "" || r.CID == "" {
		return errs.Validation("owner and cid are required")
	}
	if r.TxHash == "" {
		return errs.Validation("transaction hash is required")
	}
	if r.DurationDays == 0 {
		return errs.Validation("duration must be positive")
	}
	if r.DurationDays > orm.MaxDurationDays {
		return errs.Validation("duration %d exceeds %d days", r.DurationDays, orm.MaxDurationDays)
	}
	if r.Amount.IsNegative() {
		return errs.Validation("amount must not be negative")
	}
	if r.Chain != orm.ChainSolana && r.Chain != orm.ChainFilecoin {
		return errs.Validation("unknown payment chain %q", r.Chain)
	}

	return nil
}

// RenewalRecord is a settled renewal.
type RenewalRecord struct {
	CID            string
	AdditionalDays uint64
	Amount         decimal.Decimal
	TxHash         string
}

// RecordDeposit stores the upload and its initial_deposit ledger entry in
// one transaction. A record created before its payment hash was known
// gets the hash attached; any other existing record is a conflict.
func (m *Manager) RecordDeposit(ctx context.Context, r DepositRecord) (*orm.Upload, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	u := &orm.Upload{}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNewHash(tx, r.TxHash); err != nil {
			return err
		}

		amount, days := r.Amount, r.DurationDays
		err := tx.Where("content_cid = ?", r.CID).First(u).Error
		switch {
		case err == nil:
			if u.TransactionHash != nil && *u.TransactionHash != "" {
				return errors.Wrapf(errs.ErrConflict, "upload %s already confirmed", r.CID)
			}
			res := tx.Model(&orm.Upload{}).
				Where("id = ? AND transaction_hash IS NULL", u.ID).
				Update("transaction_hash", r.TxHash)
			if res.Error != nil {
				return errs.Persistence(res.Error)
			}
			if res.RowsAffected != 1 {
				return errors.Wrapf(errs.ErrConflict, "upload %s already confirmed", r.CID)
			}
			u.TransactionHash = &r.TxHash
			// The stored record was priced when it was created.
			amount, days = u.DepositAmount, uint64(u.DurationDays)

		case errors.Is(err, gorm.ErrRecordNotFound):
			*u = m.newUpload(r)
			if err := tx.Create(u).Error; err != nil {
				return persistenceOrConflict(err)
			}

		default:
			return errs.Persistence(err)
		}

		return appendLedger(tx, &orm.Transaction{
			DepositID:       u.ID,
			ContentCID:      u.ContentCID,
			TransactionHash: r.TxHash,
			TransactionType: orm.InitialDeposit,
			Amount:          amount,
			DurationDays:    uint32(days),
		})
	})
	if err != nil {
		return nil, err
	}

	return u, nil
}

func (m *Manager) newUpload(r DepositRecord) orm.Upload {
	hash := r.TxHash
	return orm.Upload{
		DepositKey:      r.Owner,
		ContentCID:      r.CID,
		DurationDays:    uint32(r.DurationDays),
		DepositAmount:   r.Amount,
		ClaimedAmount:   decimal.Zero,
		DepositSlot:     r.Slot,
		PaymentChain:    r.Chain,
		PaymentToken:    r.Token,
		UserEmail:       strings.TrimSpace(r.Email),
		FileName:        r.FileName,
		FileType:        r.FileType,
		FileSize:        r.FileSize,
		TransactionHash: &hash,
		DeletionStatus:  orm.StatusActive,
		ExpiresAt:       m.Today().AddDate(0, 0, int(r.DurationDays)),
	}
}

// RecordRenewal renews cid and appends the renewal ledger entry
// atomically.
func (m *Manager) RecordRenewal(ctx context.Context, r RenewalRecord) (*orm.Upload, error) {
	if r.TxHash == "" {
		return nil, errs.Validation("transaction hash is required")
	}
	if r.Amount.IsNegative() {
		return nil, errs.Validation("amount must not be negative")
	}

	var u *orm.Upload
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNewHash(tx, r.TxHash); err != nil {
			return err
		}

		renewed, err := m.renew(tx, r.CID, r.AdditionalDays)
		if err != nil {
			return err
		}
		u = renewed

		return appendLedger(tx, &orm.Transaction{
			DepositID:       u.ID,
			ContentCID:      u.ContentCID,
			TransactionHash: r.TxHash,
			TransactionType: orm.Renewal,
			Amount:          r.Amount,
			DurationDays:    uint32(r.AdditionalDays),
		})
	})
	if err != nil {
		return nil, err
	}

	return u, nil
}

// RecordClaim books an admin withdrawal of amount from the deposit at
// slot. Claims never exceed the deposited amount and slots never go back.
func (m *Manager) RecordClaim(ctx context.Context, id uint64, amount decimal.Decimal, slot uint64) error {
	if !amount.IsPositive() {
		return errs.Validation("claim amount must be positive")
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := &orm.Upload{}
		if err := tx.First(u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("upload %d", id)
			}
			return errs.Persistence(err)
		}

		claimed := u.ClaimedAmount.Add(amount)
		if claimed.GreaterThan(u.DepositAmount) {
			return errs.Validation("claim %s exceeds remaining %s",
				amount, u.DepositAmount.Sub(u.ClaimedAmount))
		}
		if slot < u.LastClaimedSlot {
			return errs.Validation("claim slot %d is before %d", slot, u.LastClaimedSlot)
		}

		res := tx.Model(&orm.Upload{}).
			Where("id = ? AND last_claimed_slot = ?", u.ID, u.LastClaimedSlot).
			Updates(map[string]interface{}{
				"claimed_amount":    claimed,
				"last_claimed_slot": slot,
			})
		if res.Error != nil {
			return errs.Persistence(res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(errs.ErrConflict, "claim on upload %d", id)
		}

		return nil
	})
}

// Transactions lists the ledger entries of cid, oldest first.
func (m *Manager) Transactions(ctx context.Context, cid string) ([]*orm.Transaction, error) {
	txs := make([]*orm.Transaction, 0)
	if err := m.db.WithContext(ctx).
		Where("content_cid = ?", cid).
		Order("id asc").
		Find(&txs).
		Error; err != nil {
		return nil, errs.Persistence(err)
	}

	return txs, nil
}

// EscrowBalance recomputes what the escrow holds for chain: every ledger
// amount paid on it minus what has been claimed.
func (m *Manager) EscrowBalance(ctx context.Context, chain orm.PaymentChain) (decimal.Decimal, error) {
	db := m.db.WithContext(ctx)

	paid := make([]decimal.Decimal, 0)
	if err := db.Model(&orm.Transaction{}).
		Joins("JOIN uploads ON uploads.id = transactions.deposit_id").
		Where("uploads.payment_chain = ?", string(chain)).
		Pluck("transactions.amount", &paid).
		Error; err != nil {
		return decimal.Zero, errs.Persistence(err)
	}

	claimed := make([]decimal.Decimal, 0)
	if err := db.Model(&orm.Upload{}).
		Where("payment_chain = ?", string(chain)).
		Pluck("claimed_amount", &claimed).
		Error; err != nil {
		return decimal.Zero, errs.Persistence(err)
	}

	return decimal.Sum(decimal.Zero, paid...).Sub(decimal.Sum(decimal.Zero, claimed...)), nil
}

func ensureNewHash(tx *gorm.DB, hash string) error {
	count := int64(0)
	if err := tx.Model(&orm.Transaction{}).
		Where("transaction_hash = ?", hash).
		Count(&count).
		Error; err != nil {
		return errs.Persistence(err)
	}

	if count > 0 {
		return errors.Wrapf(errs.ErrConflict, "transaction %s already recorded", hash)
	}

	return nil
}

func appendLedger(tx *gorm.DB, entry *orm.Transaction) error {
	if err := tx.Create(entry).Error; err != nil {
		return persistenceOrConflict(err)
	}

	return nil
}

func persistenceOrConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrap(errs.ErrConflict, err.Error())
	}

	return errs.Persistence(err)
}
