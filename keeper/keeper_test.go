package keeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/photon-storage/photon-settlement/database/dbtest"
	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/lifecycle"
)

type fakeNotifier struct {
	mu   sync.Mutex
	fail map[string]bool
	sent map[string][]string
}

func (f *fakeNotifier) NotifyExpiring(_ context.Context, email string, uploads []*orm.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[email] {
		return errors.New("smtp unavailable")
	}
	for _, u := range uploads {
		f.sent[email] = append(f.sent[email], u.ContentCID)
	}
	return nil
}

type fakeRemover struct {
	mu      sync.Mutex
	fail    map[string]bool
	removed []string
}

func (f *fakeRemover) Remove(_ context.Context, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[cid] {
		return errors.New("provider error")
	}
	f.removed = append(f.removed, cid)
	return nil
}

func newTestStore(t *testing.T) (*lifecycle.Manager, *gorm.DB) {
	db := dbtest.New(t)
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	return lifecycle.New(db, clk), db
}

func seed(t *testing.T, db *gorm.DB, cid string, status orm.DeletionStatus, expiresDay int, email string) *orm.Upload {
	hash := "sig-" + cid
	u := &orm.Upload{
		DepositKey:      "owner",
		ContentCID:      cid,
		DurationDays:    30,
		DepositAmount:   decimal.NewFromInt(1),
		PaymentChain:    orm.ChainSolana,
		UserEmail:       email,
		FileSize:        1 << 20,
		TransactionHash: &hash,
		DeletionStatus:  status,
		ExpiresAt:       time.Date(2026, 3, expiresDay, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func status(t *testing.T, db *gorm.DB, id uint64) orm.DeletionStatus {
	u := &orm.Upload{}
	require.NoError(t, db.First(u, id).Error)
	return u.DeletionStatus
}

func TestWarningJob(t *testing.T) {
	store, db := newTestStore(t)
	a1 := seed(t, db, "bafy-a1", orm.StatusActive, 12, "a@example.com")
	a2 := seed(t, db, "bafy-a2", orm.StatusActive, 15, "a@example.com")
	b1 := seed(t, db, "bafy-b1", orm.StatusActive, 13, "b@example.com")
	late := seed(t, db, "bafy-late", orm.StatusActive, 25, "a@example.com")

	n := &fakeNotifier{
		fail: map[string]bool{"b@example.com": true},
		sent: map[string][]string{},
	}
	res := NewWarningJob(store, n, lifecycle.DefaultWarningWindow, 4).Run(context.Background())

	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Error(t, res.Err)
	assert.NotEmpty(t, res.RunID)

	assert.ElementsMatch(t, []string{"bafy-a1", "bafy-a2"}, n.sent["a@example.com"])
	assert.Equal(t, orm.StatusWarned, status(t, db, a1.ID))
	assert.Equal(t, orm.StatusWarned, status(t, db, a2.ID))
	assert.Equal(t, orm.StatusActive, status(t, db, b1.ID))
	assert.Equal(t, orm.StatusActive, status(t, db, late.ID))

	n.fail = nil
	res = NewWarningJob(store, n, lifecycle.DefaultWarningWindow, 4).Run(context.Background())
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Succeeded)
	assert.NoError(t, res.Err)
	assert.Equal(t, orm.StatusWarned, status(t, db, b1.ID))
}

func TestExpiryJob(t *testing.T) {
	store, db := newTestStore(t)
	gone := seed(t, db, "bafy-gone", orm.StatusActive, 9, "")
	warned := seed(t, db, "bafy-warned", orm.StatusWarned, 1, "")
	stuck := seed(t, db, "bafy-stuck", orm.StatusActive, 2, "")
	today := seed(t, db, "bafy-today", orm.StatusActive, 10, "")

	r := &fakeRemover{fail: map[string]bool{"bafy-stuck": true}}
	res := NewExpiryJob(store, r, 2).Run(context.Background())

	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.ElementsMatch(t, []string{"bafy-gone", "bafy-warned"}, r.removed)
	assert.Equal(t, orm.StatusDeleted, status(t, db, gone.ID))
	assert.Equal(t, orm.StatusDeleted, status(t, db, warned.ID))
	assert.Equal(t, orm.StatusActive, status(t, db, stuck.ID))
	assert.Equal(t, orm.StatusActive, status(t, db, today.ID))
}

func TestUsageJob(t *testing.T) {
	store, db := newTestStore(t)
	for _, cid := range []string{"bafy-1", "bafy-2", "bafy-3"} {
		seed(t, db, cid, orm.StatusActive, 20, "")
	}
	seed(t, db, "bafy-deleted", orm.StatusDeleted, 1, "")

	res := NewUsageJob(store, 4<<20).Run(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Scanned)

	snap := &orm.UsageSnapshot{}
	require.NoError(t, db.Last(snap).Error)
	assert.Equal(t, uint64(3<<20), snap.TotalBytesStored)
	assert.Equal(t, uint64(3), snap.TotalActiveUploads)
	assert.InDelta(t, 75.0, snap.UtilizationPercentage, 1e-9)
}

func TestAlertLevel(t *testing.T) {
	testCases := []struct {
		pct   float64
		level float64
		ok    bool
	}{
		{pct: 50},
		{pct: 80, level: 80, ok: true},
		{pct: 93.5, level: 90, ok: true},
		{pct: 120, level: 95, ok: true},
	}
	for _, c := range testCases {
		level, ok := alertLevel(c.pct)
		assert.Equal(t, c.ok, ok)
		assert.Equal(t, c.level, level)
	}
}

type countingJob struct {
	mu   sync.Mutex
	runs int
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return newResult(j.Name())
}

func (j *countingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func TestKeeperRunStop(t *testing.T) {
	job := &countingJob{}
	k := New(context.Background(), 5*time.Millisecond, job)

	done := make(chan struct{})
	go func() {
		k.Run()
		close(done)
	}()

	require.Eventually(t, func() bool { return job.count() >= 3 }, time.Second, time.Millisecond)
	k.Stop()
	k.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keeper did not stop")
	}
}

func TestKeeperRunOnceStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := &countingJob{}
	assert.Empty(t, New(ctx, time.Hour, job).RunOnce())
	assert.Zero(t, job.count())
}
