package lifecycle

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/errs"
)

// DefaultWarningWindow is how far ahead of expiry owners are warned.
const DefaultWarningWindow = 7 * day

// Upload returns the record of cid.
func (m *Manager) Upload(ctx context.Context, cid string) (*orm.Upload, error) {
	u := &orm.Upload{}
	if err := m.db.WithContext(ctx).Where("content_cid = ?", cid).First(u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("upload %s", cid)
		}
		return nil, errs.Persistence(err)
	}

	return u, nil
}

// UploadsByOwner pages through the uploads paid by owner, newest first.
// An empty chain matches every chain.
func (m *Manager) UploadsByOwner(
	ctx context.Context,
	owner string,
	chain orm.PaymentChain,
	offset, limit int,
) ([]*orm.Upload, int64, error) {
	query := m.db.WithContext(ctx).
		Model(&orm.Upload{}).
		Where("deposit_key = ?", owner)
	if chain != "" {
		query = query.Where("payment_chain = ?", string(chain))
	}
	query = query.Session(&gorm.Session{})

	count := int64(0)
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, errs.Persistence(err)
	}

	ups := make([]*orm.Upload, 0)
	if err := query.Offset(offset).
		Limit(limit).
		Order("id desc").
		Find(&ups).
		Error; err != nil {
		return nil, 0, errs.Persistence(err)
	}

	return ups, count, nil
}

// UploadsNeedingWarning returns active uploads that expire within window,
// have a contact email and were never warned.
func (m *Manager) UploadsNeedingWarning(ctx context.Context, window time.Duration) ([]*orm.Upload, error) {
	horizon := m.Today().Add(window)
	ups := make([]*orm.Upload, 0)
	if err := m.db.WithContext(ctx).
		Where("deletion_status = ?", string(orm.StatusActive)).
		Where("expires_at <= ?", horizon).
		Where("user_email IS NOT NULL AND user_email <> ''").
		Where("warning_sent_at IS NULL").
		Order("id asc").
		Find(&ups).
		Error; err != nil {
		return nil, errs.Persistence(err)
	}

	return ups, nil
}

// ExpiredUploads returns uploads whose retention ended before today and
// are not deleted yet.
func (m *Manager) ExpiredUploads(ctx context.Context) ([]*orm.Upload, error) {
	ups := make([]*orm.Upload, 0)
	if err := m.db.WithContext(ctx).
		Where("expires_at < ?", m.Today()).
		Where("deletion_status IN ?", []string{string(orm.StatusActive), string(orm.StatusWarned)}).
		Order("id asc").
		Find(&ups).
		Error; err != nil {
		return nil, errs.Persistence(err)
	}

	return ups, nil
}

// Usage is the stored volume of non-deleted uploads.
type Usage struct {
	TotalBytes    uint64
	ActiveUploads uint64
}

// Usage sums the file sizes of every upload that is not deleted.
func (m *Manager) Usage(ctx context.Context) (*Usage, error) {
	sizes := make([]uint64, 0)
	if err := m.db.WithContext(ctx).
		Model(&orm.Upload{}).
		Where("deletion_status <> ?", string(orm.StatusDeleted)).
		Pluck("file_size", &sizes).
		Error; err != nil {
		return nil, errs.Persistence(err)
	}

	usage := &Usage{ActiveUploads: uint64(len(sizes))}
	for _, s := range sizes {
		usage.TotalBytes += s
	}

	return usage, nil
}

// SaveUsageSnapshot persists s.
func (m *Manager) SaveUsageSnapshot(ctx context.Context, s *orm.UsageSnapshot) error {
	return errs.Persistence(m.db.WithContext(ctx).Create(s).Error)
}
