package mysql

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/photon-storage/photon-settlement/database/orm"
)

// Migrate creates or updates the settlement tables and seeds the config
// row from defaults when it is missing. An existing row is never
// overwritten.
func Migrate(db *gorm.DB, defaults orm.Config) error {
	if err := db.AutoMigrate(
		&orm.Config{},
		&orm.Upload{},
		&orm.Transaction{},
		&orm.UsageSnapshot{},
	); err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	defaults.ID = orm.ConfigID
	if err := db.Where(orm.Config{ID: orm.ConfigID}).
		FirstOrCreate(&defaults).
		Error; err != nil {
		return errors.Wrap(err, "seed config row")
	}

	return nil
}
