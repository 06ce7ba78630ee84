package keeper

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/database/orm"
)

// Notifier tells an owner that uploads are about to expire.
type Notifier interface {
	NotifyExpiring(ctx context.Context, email string, uploads []*orm.Upload) error
}

// WarningStore is the lifecycle surface used by WarningJob.
type WarningStore interface {
	UploadsNeedingWarning(ctx context.Context, window time.Duration) ([]*orm.Upload, error)
	MarkWarned(ctx context.Context, id uint64) error
}

// WarningJob sends one notice per email for the uploads expiring within
// the window, then marks each of them warned.
type WarningJob struct {
	store       WarningStore
	notifier    Notifier
	window      time.Duration
	concurrency int
}

// NewWarningJob returns a warning job.
func NewWarningJob(store WarningStore, notifier Notifier, window time.Duration, concurrency int) *WarningJob {
	return &WarningJob{
		store:       store,
		notifier:    notifier,
		window:      window,
		concurrency: concurrency,
	}
}

// Name implements Job.
func (j *WarningJob) Name() string {
	return "expiry_warning"
}

// Run implements Job. An email whose notice fails is left unmarked and is
// picked up again by the next run.
func (j *WarningJob) Run(ctx context.Context) *Result {
	start := time.Now()
	res := newResult(j.Name())

	uploads, err := j.store.UploadsNeedingWarning(ctx, j.window)
	if err != nil {
		res.Err = errors.Wrap(err, "scan uploads needing warning")
		return res.finish(start)
	}
	res.Scanned = len(uploads)

	groups := groupByEmail(uploads)
	emails := make([]string, 0, len(groups))
	for email := range groups {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	var g errgroup.Group
	g.SetLimit(concurrencyLimit(j.concurrency))
	for _, email := range emails {
		email, group := email, groups[email]
		g.Go(func() error {
			j.warn(ctx, res, email, group)
			return nil
		})
	}
	g.Wait()

	return res.finish(start)
}

func (j *WarningJob) warn(ctx context.Context, res *Result, email string, uploads []*orm.Upload) {
	if err := j.notifier.NotifyExpiring(ctx, email, uploads); err != nil {
		log.Error("send expiry warning failed",
			"email", email, "uploads", len(uploads), "error", err)
		res.failure(len(uploads), errors.Wrapf(err, "notify %s", email))
		return
	}

	for _, u := range uploads {
		if err := j.store.MarkWarned(ctx, u.ID); err != nil {
			log.Error("mark upload warned failed",
				"cid", u.ContentCID, "error", err)
			res.failure(1, errors.Wrapf(err, "mark warned %s", u.ContentCID))
			continue
		}
		res.success(1)
	}
}

func groupByEmail(uploads []*orm.Upload) map[string][]*orm.Upload {
	groups := make(map[string][]*orm.Upload)
	for _, u := range uploads {
		if u.UserEmail == "" {
			continue
		}
		groups[u.UserEmail] = append(groups[u.UserEmail], u)
	}

	return groups
}

func concurrencyLimit(n int) int {
	if n <= 0 {
		return 1
	}

	return n
}
