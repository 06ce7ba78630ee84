package lifecycle

import (
	"context"
	"math"
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
	"github.com/photon-storage/photon-settlement/errs"
)

var testNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, *gorm.DB, *clock.Mock) {
	db := dbtest.New(t)
	clk := clock.NewMock()
	clk.Set(testNow)
	return New(db, clk), db, clk
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedUpload(t *testing.T, db *gorm.DB, cid string, status orm.DeletionStatus, expires time.Time, email string) *orm.Upload {
	hash := "sig-" + cid
	u := &orm.Upload{
		DepositKey:      "owner",
		ContentCID:      cid,
		DurationDays:    30,
		DepositAmount:   decimal.NewFromInt(20000),
		PaymentChain:    orm.ChainSolana,
		PaymentToken:    "SOL",
		UserEmail:       email,
		FileSize:        1000,
		TransactionHash: &hash,
		DeletionStatus:  status,
		ExpiresAt:       expires,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func reload(t *testing.T, db *gorm.DB, id uint64) *orm.Upload {
	u := &orm.Upload{}
	require.NoError(t, db.First(u, id).Error)
	return u
}

func TestToday(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.True(t, m.Today().Equal(date(2026, 3, 10)))
}

func TestMarkWarned(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()
	u := seedUpload(t, db, "bafy-a", orm.StatusActive, date(2026, 3, 15), "a@example.com")

	require.NoError(t, m.MarkWarned(ctx, u.ID))
	got := reload(t, db, u.ID)
	assert.Equal(t, orm.StatusWarned, got.DeletionStatus)
	require.NotNil(t, got.WarningSentAt)
	assert.True(t, got.WarningSentAt.Equal(testNow))

	err := m.MarkWarned(ctx, u.ID)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))

	err = m.MarkWarned(ctx, 9999)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestMarkDeleted(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()
	active := seedUpload(t, db, "bafy-a", orm.StatusActive, date(2026, 3, 1), "")
	warned := seedUpload(t, db, "bafy-w", orm.StatusWarned, date(2026, 3, 1), "")

	require.NoError(t, m.MarkDeleted(ctx, active.ID))
	require.NoError(t, m.MarkDeletedByCID(ctx, warned.ContentCID))
	assert.Equal(t, orm.StatusDeleted, reload(t, db, active.ID).DeletionStatus)
	assert.Equal(t, orm.StatusDeleted, reload(t, db, warned.ID).DeletionStatus)

	err := m.MarkDeleted(ctx, active.ID)
	assert.True(t, errors.Is(err, errs.ErrInvalidTransition))
	err = m.MarkWarnedByCID(ctx, "bafy-missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestRenewPastExpiryWarned(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()
	u := seedUpload(t, db, "bafy-r", orm.StatusWarned, date(2026, 3, 7), "r@example.com")
	require.NoError(t, db.Model(u).Update("warning_sent_at", testNow.Add(-96*time.Hour)).Error)

	renewed, err := m.Renew(ctx, u.ContentCID, 10)
	require.NoError(t, err)
	assert.True(t, renewed.ExpiresAt.Equal(date(2026, 3, 20)))

	got := reload(t, db, u.ID)
	assert.True(t, got.ExpiresAt.Equal(date(2026, 3, 20)))
	assert.Equal(t, orm.StatusActive, got.DeletionStatus)
	assert.Nil(t, got.WarningSentAt)
	assert.Equal(t, uint32(40), got.DurationDays)
}

func TestRenewBeforeExpiryExtendsFromExpiry(t *testing.T) {
	m, db, _ := newTestManager(t)
	u := seedUpload(t, db, "bafy-f", orm.StatusActive, date(2026, 4, 1), "")

	renewed, err := m.Renew(context.Background(), u.ContentCID, 30)
	require.NoError(t, err)
	assert.True(t, renewed.ExpiresAt.Equal(date(2026, 5, 1)))
}

func TestRenewRejections(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()
	u := seedUpload(t, db, "bafy-d", orm.StatusDeleted, date(2026, 3, 1), "")

	_, err := m.Renew(ctx, u.ContentCID, 10)
	assert.True(t, errors.Is(err, errs.ErrRenewalRejected))
	assert.Equal(t, orm.StatusDeleted, reload(t, db, u.ID).DeletionStatus)

	_, err = m.Renew(ctx, "bafy-missing", 10)
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = m.Renew(ctx, u.ContentCID, 0)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestRecordDepositAndRenewal(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()

	rec := DepositRecord{
		Owner:        "owner-1",
		CID:          "bafy-new",
		DurationDays: 30,
		Amount:       decimal.NewFromInt(20000),
		Slot:         77,
		Chain:        orm.ChainSolana,
		Token:        "SOL",
		TxHash:       "sig-1",
		Email:        " n@example.com ",
		FileSize:     1_000_000,
	}
	u, err := m.RecordDeposit(ctx, rec)
	require.NoError(t, err)
	assert.True(t, u.ExpiresAt.Equal(date(2026, 4, 9)))
	assert.Equal(t, "n@example.com", u.UserEmail)
	assert.Equal(t, orm.StatusActive, u.DeletionStatus)

	_, err = m.RecordDeposit(ctx, rec)
	assert.True(t, errors.Is(err, errs.ErrConflict))

	rec.TxHash = "sig-2"
	_, err = m.RecordDeposit(ctx, rec)
	assert.True(t, errors.Is(err, errs.ErrConflict))

	renewed, err := m.RecordRenewal(ctx, RenewalRecord{
		CID:            "bafy-new",
		AdditionalDays: 10,
		Amount:         decimal.NewFromInt(6667),
		TxHash:         "sig-3",
	})
	require.NoError(t, err)
	assert.True(t, renewed.ExpiresAt.Equal(date(2026, 4, 19)))

	_, err = m.RecordRenewal(ctx, RenewalRecord{
		CID:            "bafy-new",
		AdditionalDays: 10,
		Amount:         decimal.NewFromInt(6667),
		TxHash:         "sig-3",
	})
	assert.True(t, errors.Is(err, errs.ErrConflict))
	assert.True(t, reload(t, db, u.ID).ExpiresAt.Equal(date(2026, 4, 19)))

	txs, err := m.Transactions(ctx, "bafy-new")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, orm.InitialDeposit, txs[0].TransactionType)
	assert.Equal(t, orm.Renewal, txs[1].TransactionType)
	assert.Equal(t, u.ID, txs[1].DepositID)
}

func TestRecordDepositAttachesMissingHash(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()
	pending := &orm.Upload{
		DepositKey:     "owner-1",
		ContentCID:     "bafy-pending",
		DurationDays:   7,
		DepositAmount:  decimal.NewFromInt(10),
		PaymentChain:   orm.ChainSolana,
		DeletionStatus: orm.StatusActive,
		ExpiresAt:      date(2026, 3, 17),
	}
	require.NoError(t, db.Create(pending).Error)

	u, err := m.RecordDeposit(ctx, DepositRecord{
		Owner:        "owner-1",
		CID:          "bafy-pending",
		DurationDays: 30,
		Amount:       decimal.NewFromInt(99999),
		Chain:        orm.ChainSolana,
		TxHash:       "sig-late",
	})
	require.NoError(t, err)
	assert.Equal(t, pending.ID, u.ID)
	require.NotNil(t, reload(t, db, pending.ID).TransactionHash)
	assert.Equal(t, "sig-late", *reload(t, db, pending.ID).TransactionHash)

	txs, err := m.Transactions(ctx, "bafy-pending")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "10", txs[0].Amount.String())
	assert.Equal(t, uint32(7), txs[0].DurationDays)

	_, err = m.RecordDeposit(ctx, DepositRecord{
		Owner:        "owner-1",
		CID:          "bafy-pending",
		DurationDays: 7,
		Amount:       decimal.NewFromInt(10),
		Chain:        orm.ChainSolana,
		TxHash:       "sig-later",
	})
	assert.True(t, errors.Is(err, errs.ErrConflict))
}

func TestUploadByCID(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()
	seeded := seedUpload(t, db, "bafy-lookup", orm.StatusActive, date(2026, 4, 1), "")

	u, err := m.Upload(ctx, "bafy-lookup")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, u.ID)
	assert.Equal(t, uint64(1000), u.FileSize)

	_, err = m.Upload(ctx, "bafy-absent")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	require.NoError(t, m.MarkWarnedByCID(ctx, "bafy-lookup"))
	assert.Equal(t, orm.StatusWarned, reload(t, db, seeded.ID).DeletionStatus)
}

func TestRenewedExpiry(t *testing.T) {
	m, _, _ := newTestManager(t)
	lapsed := &orm.Upload{ExpiresAt: date(2026, 3, 1)}
	future := &orm.Upload{ExpiresAt: date(2026, 6, 1)}

	assert.True(t, m.RenewedExpiry(lapsed, 5).Equal(date(2026, 3, 15)))
	assert.True(t, m.RenewedExpiry(future, 5).Equal(date(2026, 6, 6)))
}

func TestDurationBounds(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()
	u := seedUpload(t, db, "bafy-long", orm.StatusActive, date(2026, 4, 1), "")

	_, err := m.RecordRenewal(ctx, RenewalRecord{
		CID:            u.ContentCID,
		AdditionalDays: (1 << 32) + 5,
		Amount:         decimal.NewFromInt(1),
		TxHash:         "sig-huge",
	})
	assert.True(t, errors.Is(err, errs.ErrValidation))

	got := reload(t, db, u.ID)
	assert.Equal(t, uint32(30), got.DurationDays)
	assert.True(t, got.ExpiresAt.Equal(date(2026, 4, 1)))

	renewed, err := m.Renew(ctx, u.ContentCID, orm.MaxDurationDays)
	require.NoError(t, err)
	assert.Equal(t, uint32(30+orm.MaxDurationDays), renewed.DurationDays)
	assert.Equal(t, renewed.DurationDays, reload(t, db, u.ID).DurationDays)

	_, err = m.RecordDeposit(ctx, DepositRecord{
		Owner:        "owner",
		CID:          "bafy-forever",
		DurationDays: orm.MaxDurationDays + 1,
		Chain:        orm.ChainSolana,
		TxHash:       "sig-forever",
	})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestRecordDepositValidation(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.RecordDeposit(context.Background(), DepositRecord{
		Owner:        "o",
		CID:          "c",
		DurationDays: 1,
		Chain:        "eth",
		TxHash:       "h",
	})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestEscrowBalance(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	for i, c := range []struct {
		cid    string
		chain  orm.PaymentChain
		amount int64
	}{
		{cid: "bafy-1", chain: orm.ChainSolana, amount: 20000},
		{cid: "bafy-2", chain: orm.ChainSolana, amount: 5000},
		{cid: "bafy-3", chain: orm.ChainFilecoin, amount: 999},
	} {
		_, err := m.RecordDeposit(ctx, DepositRecord{
			Owner:        "owner",
			CID:          c.cid,
			DurationDays: 30,
			Amount:       decimal.NewFromInt(c.amount),
			Chain:        c.chain,
			TxHash:       "sig-" + string(rune('a'+i)),
		})
		require.NoError(t, err)
	}

	_, err := m.RecordRenewal(ctx, RenewalRecord{
		CID: "bafy-2", AdditionalDays: 5, Amount: decimal.NewFromInt(800), TxHash: "sig-renew",
	})
	require.NoError(t, err)

	balance, err := m.EscrowBalance(ctx, orm.ChainSolana)
	require.NoError(t, err)
	assert.Equal(t, "25800", balance.String())

	u, err := m.Upload(ctx, "bafy-1")
	require.NoError(t, err)
	require.NoError(t, m.RecordClaim(ctx, u.ID, decimal.NewFromInt(15000), 100))

	balance, err = m.EscrowBalance(ctx, orm.ChainSolana)
	require.NoError(t, err)
	assert.Equal(t, "10800", balance.String())

	err = m.RecordClaim(ctx, u.ID, decimal.NewFromInt(5001), 101)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	err = m.RecordClaim(ctx, u.ID, decimal.NewFromInt(1), 99)
	assert.True(t, errors.Is(err, errs.ErrValidation))

	fil, err := m.EscrowBalance(ctx, orm.ChainFilecoin)
	require.NoError(t, err)
	assert.Equal(t, "999", fil.String())
}

func TestScans(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()

	soon := seedUpload(t, db, "bafy-soon", orm.StatusActive, date(2026, 3, 17), "a@example.com")
	seedUpload(t, db, "bafy-later", orm.StatusActive, date(2026, 3, 18), "a@example.com")
	seedUpload(t, db, "bafy-noemail", orm.StatusActive, date(2026, 3, 12), "")
	seedUpload(t, db, "bafy-warned", orm.StatusWarned, date(2026, 3, 12), "b@example.com")
	expired := seedUpload(t, db, "bafy-expired", orm.StatusActive, date(2026, 3, 9), "c@example.com")
	expiredWarned := seedUpload(t, db, "bafy-expired-w", orm.StatusWarned, date(2026, 3, 1), "")
	seedUpload(t, db, "bafy-today", orm.StatusActive, date(2026, 3, 10), "")
	seedUpload(t, db, "bafy-gone", orm.StatusDeleted, date(2026, 2, 1), "")

	warn, err := m.UploadsNeedingWarning(ctx, DefaultWarningWindow)
	require.NoError(t, err)
	cids := make([]string, len(warn))
	for i, u := range warn {
		cids[i] = u.ContentCID
	}
	assert.ElementsMatch(t, []string{soon.ContentCID, expired.ContentCID}, cids)

	gone, err := m.ExpiredUploads(ctx)
	require.NoError(t, err)
	ids := make([]uint64, len(gone))
	for i, u := range gone {
		ids[i] = u.ID
	}
	assert.ElementsMatch(t, []uint64{expired.ID, expiredWarned.ID}, ids)

	usage, err := m.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), usage.ActiveUploads)
	assert.Equal(t, uint64(7000), usage.TotalBytes)
}

func TestUploadsByOwner(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()
	for _, cid := range []string{"bafy-1", "bafy-2", "bafy-3"} {
		seedUpload(t, db, cid, orm.StatusActive, date(2026, 4, 1), "")
	}

	ups, total, err := m.UploadsByOwner(ctx, "owner", orm.ChainSolana, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, ups, 2)
	assert.Equal(t, "bafy-3", ups[0].ContentCID)

	ups, total, err = m.UploadsByOwner(ctx, "owner", orm.ChainFilecoin, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, ups)
}

func TestConfig(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	cfg, err := m.PricingConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), cfg.MinDurationDays)

	days := uint32(30)
	rate := 2e-10
	cfg, err = m.UpdateConfig(ctx, ConfigUpdate{MinDurationDays: &days, RatePerBytePerDay: &rate})
	require.NoError(t, err)
	assert.Equal(t, uint32(30), cfg.MinDurationDays)
	assert.Equal(t, "0.0000000002", cfg.Rate().String())

	for _, bad := range []float64{-1, 0, math.NaN(), math.Inf(1)} {
		bad := bad
		_, err = m.UpdateConfig(ctx, ConfigUpdate{RatePerBytePerDay: &bad})
		assert.True(t, errors.Is(err, errs.ErrValidation), "rate %v", bad)
	}

	cfg, err = m.PricingConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.0000000002", cfg.Rate().String())
}
