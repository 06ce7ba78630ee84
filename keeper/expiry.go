package keeper

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/database/orm"
)

// ContentRemover drops content from the storage provider.
type ContentRemover interface {
	Remove(ctx context.Context, cid string) error
}

// ExpiryStore is the lifecycle surface used by ExpiryJob.
type ExpiryStore interface {
	ExpiredUploads(ctx context.Context) ([]*orm.Upload, error)
	MarkDeleted(ctx context.Context, id uint64) error
}

// ExpiryJob removes expired content and marks its record deleted.
type ExpiryJob struct {
	store       ExpiryStore
	remover     ContentRemover
	concurrency int
}

// NewExpiryJob returns an expiry job.
func NewExpiryJob(store ExpiryStore, remover ContentRemover, concurrency int) *ExpiryJob {
	return &ExpiryJob{
		store:       store,
		remover:     remover,
		concurrency: concurrency,
	}
}

// Name implements Job.
func (j *ExpiryJob) Name() string {
	return "expiry_deletion"
}

// Run implements Job.
func (j *ExpiryJob) Run(ctx context.Context) *Result {
	start := time.Now()
	res := newResult(j.Name())

	uploads, err := j.store.ExpiredUploads(ctx)
	if err != nil {
		res.Err = errors.Wrap(err, "scan expired uploads")
		return res.finish(start)
	}
	res.Scanned = len(uploads)

	var g errgroup.Group
	g.SetLimit(concurrencyLimit(j.concurrency))
	for _, u := range uploads {
		u := u
		g.Go(func() error {
			j.expire(ctx, res, u)
			return nil
		})
	}
	g.Wait()

	return res.finish(start)
}

// expire removes before marking so a failed removal is retried next run.
func (j *ExpiryJob) expire(ctx context.Context, res *Result, u *orm.Upload) {
	if err := j.remover.Remove(ctx, u.ContentCID); err != nil {
		log.Error("remove expired content failed", "cid", u.ContentCID, "error", err)
		res.failure(1, errors.Wrapf(err, "remove %s", u.ContentCID))
		return
	}

	if err := j.store.MarkDeleted(ctx, u.ID); err != nil {
		log.Error("mark upload deleted failed", "cid", u.ContentCID, "error", err)
		res.failure(1, errors.Wrapf(err, "mark deleted %s", u.ContentCID))
		return
	}

	log.Info("expired upload deleted",
		"cid", u.ContentCID, "expires_at", u.ExpiresAt.Format("2006-01-02"))
	res.success(1)
}
