// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/photon-storage/photon-settlement/database/mysql"
	"github.com/photon-storage/photon-settlement/database/orm"
)

// DefaultConfig is the config row seeded by New.
var DefaultConfig = orm.Config{
	AdminKey:          "11111111111111111111111111111111",
	RatePerBytePerDay: 1e-10,
	MinDurationDays:   1,
	WithdrawalWallet:  "11111111111111111111111111111111",
	FilecoinWallet:    "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
}

// New returns an in-memory database with the settlement schema. A single
// connection keeps every statement on the same memory database.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), mysql.GormConfig(int(logger.Silent)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	if err := mysql.Migrate(db, DefaultConfig); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}
