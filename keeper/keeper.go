// Package keeper runs the periodic retention jobs: expiry warnings,
// expiry deletion and usage snapshots.
package keeper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/multierr"

	"github.com/photon-storage/go-common/log"
)

var (
	jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_keeper_runs_total",
		Help: "Keeper job runs.",
	}, []string{"job"})
	jobItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_keeper_items_total",
		Help: "Items processed by keeper jobs by result.",
	}, []string{"job", "result"})
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_keeper_run_duration_seconds",
		Help:    "Keeper job run duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

// Job is one batch job. Run must isolate item failures and report them in
// the result instead of stopping.
type Job interface {
	Name() string
	Run(ctx context.Context) *Result
}

// Result summarizes one job run.
type Result struct {
	RunID     string
	Job       string
	Scanned   int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Err       error

	mu sync.Mutex
}

func newResult(job string) *Result {
	return &Result{
		RunID: uuid.NewString(),
		Job:   job,
	}
}

func (r *Result) success(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded += n
	jobItemsTotal.WithLabelValues(r.Job, "ok").Add(float64(n))
}

func (r *Result) failure(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed += n
	r.Err = multierr.Append(r.Err, err)
	jobItemsTotal.WithLabelValues(r.Job, "error").Add(float64(n))
}

func (r *Result) finish(start time.Time) *Result {
	r.Duration = time.Since(start)
	jobRunsTotal.WithLabelValues(r.Job).Inc()
	jobDuration.WithLabelValues(r.Job).Observe(r.Duration.Seconds())

	if r.Failed > 0 || r.Err != nil {
		log.Warn("keeper job finished with errors",
			"job", r.Job,
			"run", r.RunID,
			"scanned", r.Scanned,
			"succeeded", r.Succeeded,
			"failed", r.Failed,
			"error", r.Err,
		)
	} else {
		log.Info("keeper job finished",
			"job", r.Job,
			"run", r.RunID,
			"scanned", r.Scanned,
			"succeeded", r.Succeeded,
			"duration", r.Duration.String(),
		)
	}

	return r
}

// Keeper runs its jobs on a fixed interval.
type Keeper struct {
	ctx             context.Context
	refreshInterval time.Duration
	jobs            []Job
	quit            chan struct{}
	stopOnce        sync.Once
}

// New returns a keeper running jobs every refreshInterval.
func New(ctx context.Context, refreshInterval time.Duration, jobs ...Job) *Keeper {
	return &Keeper{
		ctx:             ctx,
		refreshInterval: refreshInterval,
		jobs:            jobs,
		quit:            make(chan struct{}),
	}
}

// Run executes the jobs once, then on every tick until stopped.
func (k *Keeper) Run() {
	k.RunOnce()

	ticker := time.NewTicker(k.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-k.quit:
			return

		case <-k.ctx.Done():
			return

		case <-ticker.C:

		}

		k.RunOnce()
	}
}

// RunOnce executes every job in order and returns their results.
func (k *Keeper) RunOnce() []*Result {
	results := make([]*Result, 0, len(k.jobs))
	for _, j := range k.jobs {
		if k.ctx.Err() != nil {
			break
		}
		results = append(results, j.Run(k.ctx))
	}

	return results
}

// Stop exits the run loop.
func (k *Keeper) Stop() {
	k.stopOnce.Do(func() {
		close(k.quit)
	})
}
