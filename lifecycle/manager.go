// Package lifecycle owns the retention state of paid uploads: the
// active, warned and deleted transitions, renewals, and the payment
// ledger that backs them.
package lifecycle

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"gorm.io/gorm"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/errs"
)

const (
	day = 24 * time.Hour

	maxRenewAttempts = 3
)

// Manager applies lifecycle changes as conditional updates so concurrent
// callers never overwrite each other.
type Manager struct {
	db    *gorm.DB
	clock clock.Clock
}

// New returns a manager on db. A nil clock uses wall time.
func New(db *gorm.DB, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.New()
	}

	return &Manager{
		db:    db,
		clock: clk,
	}
}

// Today returns the current UTC date at midnight.
func (m *Manager) Today() time.Time {
	return m.clock.Now().UTC().Truncate(day)
}

// MarkWarned moves an active upload to warned and stamps the warning time.
func (m *Manager) MarkWarned(ctx context.Context, id uint64) error {
	return m.transition(ctx, "id", id, []orm.DeletionStatus{orm.StatusActive}, m.warnedUpdates())
}

// MarkWarnedByCID is MarkWarned keyed by content identifier.
func (m *Manager) MarkWarnedByCID(ctx context.Context, cid string) error {
	return m.transition(ctx, "content_cid", cid, []orm.DeletionStatus{orm.StatusActive}, m.warnedUpdates())
}

// MarkDeleted moves an active or warned upload to deleted.
func (m *Manager) MarkDeleted(ctx context.Context, id uint64) error {
	return m.transition(ctx, "id", id,
		[]orm.DeletionStatus{orm.StatusActive, orm.StatusWarned}, deletedUpdates())
}

// MarkDeletedByCID is MarkDeleted keyed by content identifier.
func (m *Manager) MarkDeletedByCID(ctx context.Context, cid string) error {
	return m.transition(ctx, "content_cid", cid,
		[]orm.DeletionStatus{orm.StatusActive, orm.StatusWarned}, deletedUpdates())
}

func (m *Manager) warnedUpdates() map[string]interface{} {
	return map[string]interface{}{
		"deletion_status": orm.StatusWarned,
		"warning_sent_at": m.clock.Now().UTC(),
	}
}

func deletedUpdates() map[string]interface{} {
	return map[string]interface{}{
		"deletion_status": orm.StatusDeleted,
	}
}

func (m *Manager) transition(
	ctx context.Context,
	column string,
	key interface{},
	from []orm.DeletionStatus,
	updates map[string]interface{},
) error {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	res := m.db.WithContext(ctx).
		Model(&orm.Upload{}).
		Where(column+" = ?", key).
		Where("deletion_status IN ?", allowed).
		Updates(updates)
	if res.Error != nil {
		return errs.Persistence(res.Error)
	}

	if res.RowsAffected > 0 {
		return nil
	}

	count := int64(0)
	if err := m.db.WithContext(ctx).
		Model(&orm.Upload{}).
		Where(column+" = ?", key).
		Count(&count).
		Error; err != nil {
		return errs.Persistence(err)
	}

	if count == 0 {
		return errs.NotFound("upload %s %v", column, key)
	}

	return errors.Wrapf(errs.ErrInvalidTransition,
		"upload %s %v is not %v", column, key, allowed)
}

// Renew extends the retention window of cid by additionalDays, counted
// from the later of the current expiry and today. The record returns to
// active and may be warned again.
func (m *Manager) Renew(ctx context.Context, cid string, additionalDays uint64) (*orm.Upload, error) {
	return m.renew(m.db.WithContext(ctx), cid, additionalDays)
}

// RenewedExpiry is the expiry u would have after renewing it by days now.
func (m *Manager) RenewedExpiry(u *orm.Upload, days uint64) time.Time {
	base := u.ExpiresAt.UTC()
	if today := m.Today(); base.Before(today) {
		base = today
	}

	return base.AddDate(0, 0, int(days))
}

func (m *Manager) renew(db *gorm.DB, cid string, additionalDays uint64) (*orm.Upload, error) {
	if additionalDays == 0 {
		return nil, errs.Validation("renewal days must be positive")
	}
	if additionalDays > orm.MaxDurationDays {
		return nil, errs.Validation("renewal of %d days exceeds %d", additionalDays, orm.MaxDurationDays)
	}

	for attempt := 0; attempt < maxRenewAttempts; attempt++ {
		u := &orm.Upload{}
		if err := db.Where("content_cid = ?", cid).First(u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.NotFound("upload %s", cid)
			}
			return nil, errs.Persistence(err)
		}

		if u.DeletionStatus == orm.StatusDeleted {
			return nil, errors.Wrapf(errs.ErrRenewalRejected, "upload %s is deleted", cid)
		}

		expiresAt := m.RenewedExpiry(u, additionalDays)

		res := db.Model(&orm.Upload{}).
			Where("id = ? AND deletion_status = ? AND expires_at = ?",
				u.ID, string(u.DeletionStatus), u.ExpiresAt).
			Updates(map[string]interface{}{
				"expires_at":      expiresAt,
				"duration_days":   gorm.Expr("duration_days + ?", additionalDays),
				"deletion_status": orm.StatusActive,
				"warning_sent_at": nil,
			})
		if res.Error != nil {
			return nil, errs.Persistence(res.Error)
		}

		if res.RowsAffected == 1 {
			u.ExpiresAt = expiresAt
			u.DurationDays += uint32(additionalDays)
			u.DeletionStatus = orm.StatusActive
			u.WarningSentAt = nil
			return u, nil
		}

		log.Debug("renewal lost a concurrent update, retrying",
			"cid", cid, "attempt", attempt+1)
	}

	return nil, errors.Wrapf(errs.ErrConflict, "renew %s", cid)
}
