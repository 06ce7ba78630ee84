package keeper

import (
	"context"
	"time"

	"github.com/docker/go-units"
	"github.com/pkg/errors"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/lifecycle"
)

// utilizationAlerts are the plan utilization percentages that raise a
// warning, highest first.
var utilizationAlerts = []float64{95, 90, 80}

// UsageStore is the lifecycle surface used by UsageJob.
type UsageStore interface {
	Usage(ctx context.Context) (*lifecycle.Usage, error)
	SaveUsageSnapshot(ctx context.Context, s *orm.UsageSnapshot) error
}

// UsageJob records stored volume against the storage plan limit.
type UsageJob struct {
	store          UsageStore
	planLimitBytes uint64
}

// NewUsageJob returns a usage job. A zero limit disables utilization
// alerts.
func NewUsageJob(store UsageStore, planLimitBytes uint64) *UsageJob {
	return &UsageJob{
		store:          store,
		planLimitBytes: planLimitBytes,
	}
}

// Name implements Job.
func (j *UsageJob) Name() string {
	return "usage_snapshot"
}

// Run implements Job.
func (j *UsageJob) Run(ctx context.Context) *Result {
	start := time.Now()
	res := newResult(j.Name())

	usage, err := j.store.Usage(ctx)
	if err != nil {
		res.Err = errors.Wrap(err, "compute usage")
		return res.finish(start)
	}
	res.Scanned = int(usage.ActiveUploads)

	snapshot := &orm.UsageSnapshot{
		TotalBytesStored:   usage.TotalBytes,
		TotalActiveUploads: usage.ActiveUploads,
		PlanLimitBytes:     j.planLimitBytes,
	}
	if j.planLimitBytes > 0 {
		snapshot.UtilizationPercentage = float64(usage.TotalBytes) / float64(j.planLimitBytes) * 100
	}

	if err := j.store.SaveUsageSnapshot(ctx, snapshot); err != nil {
		res.failure(1, errors.Wrap(err, "save usage snapshot"))
		return res.finish(start)
	}
	res.success(1)

	log.Info("storage usage",
		"stored", units.HumanSize(float64(usage.TotalBytes)),
		"uploads", usage.ActiveUploads,
		"utilization", snapshot.UtilizationPercentage,
	)
	if level, ok := alertLevel(snapshot.UtilizationPercentage); ok && j.planLimitBytes > 0 {
		log.Warn("storage plan utilization above threshold",
			"threshold", level,
			"stored", units.HumanSize(float64(usage.TotalBytes)),
			"limit", units.HumanSize(float64(j.planLimitBytes)),
		)
	}

	return res.finish(start)
}

func alertLevel(pct float64) (float64, bool) {
	for _, level := range utilizationAlerts {
		if pct >= level {
			return level, true
		}
	}

	return 0, false
}
